package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigFile       = "autoposter.yaml"
	DefaultProfile          = "default"
	DefaultPDS              = "https://bsky.social"
	DefaultFeedLimit        = 100
	DefaultMaxPerRun        = 100
	DefaultMaxPerAuthor     = 5
	DefaultRecencyWindow    = 3 * time.Hour
	DefaultIdentifierEnv    = "BSKY_IDENTIFIER"
	DefaultPasswordEnv      = "BSKY_APP_PASSWORD"
	DefaultFeedEnv          = "AUTOPOSTER_FEED"
	DefaultJetstreamURL     = "wss://jetstream1.us-east.bsky.network/subscribe"
	DefaultJetstreamTimeout = 30 * time.Second
	DefaultSQLitePath       = "autoposter.db"
	DefaultDynamoDBTable    = "autoposter_seen"
	DefaultMongoDatabase    = "autoposter"
)

const (
	SourceFeed      = "feed"
	SourceJetstream = "jetstream"
)

const (
	StoreFile     = "file"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreDynamoDB = "dynamodb"
	StoreMongoDB  = "mongodb"
)

var (
	ErrMissingCredentials = errors.New("missing credentials")
	ErrUnknownProfile     = errors.New("unknown profile")
	ErrProfileRequired    = errors.New("profile is required when the config defines several")
	ErrConfigNotFound     = errors.New("config file not found")
)

// Duration wraps time.Duration for YAML and TOML unmarshaling from strings
// like "3h".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	return d.UnmarshalText([]byte(s))
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", string(text), err)
	}
	d.Duration = parsed
	return nil
}

// File is the on-disk configuration: one profile per boosted feed/account.
type File struct {
	Profiles map[string]*Profile `yaml:"profiles" toml:"profiles"`
}

// Names returns the profile names in lexical order.
func (f *File) Names() []string {
	names := make([]string, 0, len(f.Profiles))
	for name := range f.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Profile is the full configuration of one autoposter account.
type Profile struct {
	Name string `yaml:"-" toml:"-"`

	// Feed is the AT-URI of the feed generator to boost from.
	Feed      string `yaml:"feed" toml:"feed"`
	FeedLimit int    `yaml:"feed_limit" toml:"feed_limit"`

	MaxPerRun     int      `yaml:"max_per_run" toml:"max_per_run"`
	MaxPerAuthor  int      `yaml:"max_per_author" toml:"max_per_author"`
	RecencyWindow Duration `yaml:"recency_window" toml:"recency_window"`
	Delay         Duration `yaml:"delay" toml:"delay"`

	// Filters default to true; pointers tell "unset" apart from false.
	MediaOnly           *bool `yaml:"media_only" toml:"media_only"`
	AcceptLinkThumbnail *bool `yaml:"accept_link_thumbnail" toml:"accept_link_thumbnail"`
	ExcludeQuotes       *bool `yaml:"exclude_quotes" toml:"exclude_quotes"`

	PDS           string `yaml:"pds" toml:"pds"`
	IdentifierEnv string `yaml:"identifier_env" toml:"identifier_env"`
	PasswordEnv   string `yaml:"password_env" toml:"password_env"`

	Source    string          `yaml:"source" toml:"source"`
	Jetstream JetstreamConfig `yaml:"jetstream" toml:"jetstream"`
	Store     StoreConfig     `yaml:"store" toml:"store"`

	// Resolved from env vars at load time.
	Identifier string `yaml:"-" toml:"-"`
	Password   string `yaml:"-" toml:"-"`
}

type JetstreamConfig struct {
	URL     string   `yaml:"url" toml:"url"`
	DIDs    []string `yaml:"dids" toml:"dids"`
	Timeout Duration `yaml:"timeout" toml:"timeout"`
}

// StoreConfig selects and configures the seen-post store.
type StoreConfig struct {
	Type     string `yaml:"type" toml:"type"` // "file", "sqlite", "postgres", "dynamodb", "mongodb"
	Path     string `yaml:"path" toml:"path"` // file and sqlite
	DSN      string `yaml:"dsn" toml:"dsn"`   // postgres and mongodb
	Table    string `yaml:"table" toml:"table"`
	Region   string `yaml:"region" toml:"region"`
	Endpoint string `yaml:"endpoint" toml:"endpoint"` // DynamoDB Local
	Database string `yaml:"database" toml:"database"`
}

// LoadFile reads a YAML or TOML config file, chosen by extension.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	var f File
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if len(f.Profiles) == 0 {
		return nil, errors.New("config defines no profiles")
	}
	for name, p := range f.Profiles {
		if p == nil {
			f.Profiles[name] = &Profile{}
		}
	}
	return &f, nil
}

// Load resolves a single profile. When path is empty, DefaultConfigFile in the
// working directory is used if present; otherwise the profile comes entirely
// from defaults and the environment. A .env file next to the config (or in
// the working directory) is loaded first; it never overrides variables that
// are already set. overrides run on the raw profile before defaults and
// validation, so command-line flags are validated like file values.
func Load(path, profile string, overrides ...func(*Profile)) (*Profile, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}

	f, err := LoadFile(path)
	if err != nil && (explicit || !errors.Is(err, ErrConfigNotFound)) {
		return nil, err
	}

	if err := loadDotEnv(filepath.Dir(path)); err != nil {
		return nil, err
	}

	var p *Profile
	if f == nil {
		p = envProfile(profile)
	} else {
		p, err = f.pick(profile)
		if err != nil {
			return nil, err
		}
	}

	for _, override := range overrides {
		override(p)
	}

	applyDefaults(p)
	resolveEnv(p)

	if err := validate(p); err != nil {
		return nil, fmt.Errorf("validate profile %s: %w", p.Name, err)
	}
	return p, nil
}

func (f *File) pick(name string) (*Profile, error) {
	if name == "" {
		if len(f.Profiles) != 1 {
			return nil, fmt.Errorf("%w (have: %s)", ErrProfileRequired, strings.Join(f.Names(), ", "))
		}
		name = f.Names()[0]
	}

	p, ok := f.Profiles[name]
	if !ok {
		return nil, fmt.Errorf("%w %q (have: %s)", ErrUnknownProfile, name, strings.Join(f.Names(), ", "))
	}
	cp := *p
	cp.Name = name
	return &cp, nil
}

func envProfile(name string) *Profile {
	if name == "" {
		name = DefaultProfile
	}
	return &Profile{
		Name: name,
		Feed: os.Getenv(DefaultFeedEnv),
	}
}

func loadDotEnv(dir string) error {
	path := filepath.Join(dir, ".env")
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func applyDefaults(p *Profile) {
	if p.FeedLimit == 0 {
		p.FeedLimit = DefaultFeedLimit
	}
	if p.MaxPerRun == 0 {
		p.MaxPerRun = DefaultMaxPerRun
	}
	if p.MaxPerAuthor == 0 {
		p.MaxPerAuthor = DefaultMaxPerAuthor
	}
	if p.RecencyWindow.Duration == 0 {
		p.RecencyWindow.Duration = DefaultRecencyWindow
	}
	p.MediaOnly = orTrue(p.MediaOnly)
	p.AcceptLinkThumbnail = orTrue(p.AcceptLinkThumbnail)
	p.ExcludeQuotes = orTrue(p.ExcludeQuotes)

	if p.PDS == "" {
		p.PDS = DefaultPDS
	}
	if p.IdentifierEnv == "" {
		p.IdentifierEnv = DefaultIdentifierEnv
	}
	if p.PasswordEnv == "" {
		p.PasswordEnv = DefaultPasswordEnv
	}

	if p.Source == "" {
		p.Source = SourceFeed
	}
	if p.Jetstream.URL == "" {
		p.Jetstream.URL = DefaultJetstreamURL
	}
	if p.Jetstream.Timeout.Duration == 0 {
		p.Jetstream.Timeout.Duration = DefaultJetstreamTimeout
	}

	if p.Store.Type == "" {
		p.Store.Type = StoreFile
	}
	switch p.Store.Type {
	case StoreFile:
		if p.Store.Path == "" {
			p.Store.Path = "reposted_" + p.Name + ".txt"
		}
	case StoreSQLite:
		if p.Store.Path == "" {
			p.Store.Path = DefaultSQLitePath
		}
	case StoreDynamoDB:
		if p.Store.Table == "" {
			p.Store.Table = DefaultDynamoDBTable
		}
	case StoreMongoDB:
		if p.Store.Database == "" {
			p.Store.Database = DefaultMongoDatabase
		}
	}
}

func orTrue(b *bool) *bool {
	if b != nil {
		return b
	}
	t := true
	return &t
}

func resolveEnv(p *Profile) {
	p.Identifier = os.Getenv(p.IdentifierEnv)
	p.Password = os.Getenv(p.PasswordEnv)
}

func validate(p *Profile) error {
	switch p.Source {
	case SourceFeed:
		if !strings.HasPrefix(p.Feed, "at://") {
			return fmt.Errorf("feed: must be an at:// URI, got %q", p.Feed)
		}
	case SourceJetstream:
		if len(p.Jetstream.DIDs) == 0 {
			return errors.New("jetstream.dids: at least one DID is required")
		}
	default:
		return fmt.Errorf("source: unknown source %q (want feed or jetstream)", p.Source)
	}

	if p.FeedLimit < 0 || p.MaxPerRun < 0 || p.MaxPerAuthor < 0 {
		return errors.New("feed_limit, max_per_run and max_per_author must be positive")
	}
	if p.RecencyWindow.Duration < 0 || p.Delay.Duration < 0 {
		return errors.New("recency_window and delay must not be negative")
	}

	switch p.Store.Type {
	case StoreFile, StoreSQLite:
		if p.Store.Path == "" {
			return fmt.Errorf("store.path: required for %s store", p.Store.Type)
		}
	case StorePostgres, StoreMongoDB:
		if p.Store.DSN == "" {
			return fmt.Errorf("store.dsn: required for %s store", p.Store.Type)
		}
	case StoreDynamoDB:
		// table has a default; region may come from the AWS environment
	default:
		return fmt.Errorf("store.type: unknown store %q", p.Store.Type)
	}

	return nil
}

// RequireCredentials reports ErrMissingCredentials, naming the variables to
// set, when either secret is empty.
func (p *Profile) RequireCredentials() error {
	if p.Identifier == "" || p.Password == "" {
		return fmt.Errorf("%w: set %s and %s", ErrMissingCredentials, p.IdentifierEnv, p.PasswordEnv)
	}
	return nil
}
