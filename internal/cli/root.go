// Package cli provides the command-line interface for the autoposter.
package cli

import (
	"fmt"
	"log/slog"

	"github.com/blackmichael/bluesky-autoposter/internal/logging"
	"github.com/blackmichael/bluesky-autoposter/internal/output"
	"github.com/spf13/cobra"
)

// Version and Commit are set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
)

var (
	configPath  string
	profileName string
	verbose     bool
	quiet       bool
	noColor     bool
	logFormat   string
)

var rootCmd = &cobra.Command{
	Use:   "autoposter",
	Short: "Repost and like recent media posts from a Bluesky feed",
	Long: "autoposter reads a Bluesky feed generator (or replays Jetstream for a list of accounts), " +
		"picks recent media posts it has not boosted yet and reposts and likes them, " +
		"throttled per author and per run.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor {
			output.NoColor()
		}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "autoposter %s (%s)\n", Version, Commit)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (YAML or TOML; default ./autoposter.yaml if present)")
	rootCmd.PersistentFlags().StringVarP(&profileName, "profile", "p", "", "profile to use (required when the config has several)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "log errors only")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", logging.FormatText, "log format: text or json")

	rootCmd.AddCommand(versionCmd)
}

func newLogger(cmd *cobra.Command) (*slog.Logger, error) {
	return logging.New(cmd.ErrOrStderr(), logging.Options{
		Format:  logFormat,
		Verbose: verbose,
		Quiet:   quiet,
	})
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
