package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/blackmichael/bluesky-autoposter/internal/bluesky"
	"github.com/blackmichael/bluesky-autoposter/internal/config"
	"github.com/blackmichael/bluesky-autoposter/internal/domain"
	"github.com/blackmichael/bluesky-autoposter/internal/firehose"
	"github.com/blackmichael/bluesky-autoposter/internal/output"
	"github.com/blackmichael/bluesky-autoposter/internal/store"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	runDryRun bool
	runFeed   string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Perform one bounded repost pass",
	Args:  cobra.NoArgs,
	RunE:  runAction,
}

func init() {
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "log what would be reposted without acting or recording anything")
	runCmd.Flags().StringVar(&runFeed, "feed", "", "feed generator AT-URI, overriding the profile")
	rootCmd.AddCommand(runCmd)
}

func runAction(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}
	logger = logger.With("run_id", uuid.NewString())

	if err := runPass(ctx, cmd, logger); err != nil {
		logger.Error("run failed", "error", err)
		return err
	}
	return nil
}

func runPass(ctx context.Context, cmd *cobra.Command, logger *slog.Logger) error {
	var overrides []func(*config.Profile)
	if runFeed != "" {
		overrides = append(overrides, func(p *config.Profile) {
			p.Feed = runFeed
			p.Source = config.SourceFeed
		})
	}

	p, err := config.Load(configPath, profileName, overrides...)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger = logger.With("profile", p.Name)

	client := bluesky.NewClient(p.PDS, logger)
	// A dry run over Jetstream needs no account at all.
	if p.Source == config.SourceFeed || !runDryRun {
		if err := p.RequireCredentials(); err != nil {
			return err
		}
		if err := client.Login(ctx, p.Identifier, p.Password); err != nil {
			return fmt.Errorf("login: %w", err)
		}
		logger.Info("logged in", "handle", client.Handle(), "did", client.DID())
	}

	source, err := newFeedSource(p, client, logger)
	if err != nil {
		return err
	}

	var seen domain.SeenStore
	seen, err = store.Open(ctx, p.Store, p.Name)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer seen.Close()

	var actions domain.ActionClient = client
	if runDryRun {
		seen = store.NewReadOnly(seen)
		actions = bluesky.NewDryRunClient(logger)
	}

	runner := domain.NewRunner(source, seen, domain.NewDispatcher(actions, seen, logger), logger)
	opts := runOptions(p)

	summary, err := runner.Run(ctx, opts)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	logger.Info(fmt.Sprintf("done: %d reposts (%d likes)", summary.Reposted, summary.Liked),
		"max_per_author", opts.Limits.MaxPerAuthor,
		"window", opts.RecencyWindow,
		"max_per_run", opts.Limits.MaxPerRun,
		"repost_failed", summary.RepostFailed,
		"like_failed", summary.LikeFailed,
	)
	if !quiet {
		output.PrintSummary(cmd.OutOrStdout(), p.Name, summary, runDryRun)
	}

	if err != nil {
		return fmt.Errorf("interrupted: %w", err)
	}
	return nil
}

func newFeedSource(p *config.Profile, client *bluesky.Client, logger *slog.Logger) (domain.FeedSource, error) {
	switch p.Source {
	case config.SourceJetstream:
		c, err := firehose.NewCollector(p.Jetstream.URL, p.Jetstream.DIDs, p.RecencyWindow.Duration, p.Jetstream.Timeout.Duration, logger)
		if err != nil {
			return nil, fmt.Errorf("create jetstream collector: %w", err)
		}
		return c, nil
	default:
		return bluesky.NewFeedSource(client, p.Feed), nil
	}
}

func runOptions(p *config.Profile) domain.RunOptions {
	return domain.RunOptions{
		FeedLimit:     p.FeedLimit,
		RecencyWindow: p.RecencyWindow.Duration,
		Policy: domain.SelectionPolicy{
			MediaOnly:           *p.MediaOnly,
			AcceptLinkThumbnail: *p.AcceptLinkThumbnail,
			ExcludeQuotes:       *p.ExcludeQuotes,
		},
		Limits: domain.DispatchLimits{
			MaxPerRun:    p.MaxPerRun,
			MaxPerAuthor: p.MaxPerAuthor,
			Delay:        p.Delay.Duration,
		},
	}
}
