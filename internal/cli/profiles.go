package cli

import (
	"fmt"

	"github.com/blackmichael/bluesky-autoposter/internal/config"
	"github.com/blackmichael/bluesky-autoposter/internal/output"
	"github.com/spf13/cobra"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List the profiles defined in the config file",
	Args:  cobra.NoArgs,
	RunE:  profilesAction,
}

func init() {
	rootCmd.AddCommand(profilesCmd)
}

func profilesAction(cmd *cobra.Command, _ []string) error {
	path := configPath
	if path == "" {
		path = config.DefaultConfigFile
	}

	f, err := config.LoadFile(path)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	for _, name := range f.Names() {
		p := f.Profiles[name]
		target := p.Feed
		if p.Source == config.SourceJetstream {
			target = fmt.Sprintf("jetstream (%d accounts)", len(p.Jetstream.DIDs))
		}
		fmt.Fprintf(w, "%s  %s\n", output.Header.Sprint(name), output.Dim.Sprint(target))
	}
	return nil
}
