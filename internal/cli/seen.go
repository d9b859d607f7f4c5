package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/blackmichael/bluesky-autoposter/internal/config"
	"github.com/blackmichael/bluesky-autoposter/internal/domain"
	"github.com/blackmichael/bluesky-autoposter/internal/output"
	"github.com/blackmichael/bluesky-autoposter/internal/store"
	"github.com/spf13/cobra"
)

var seenOutput string

var seenCmd = &cobra.Command{
	Use:   "seen",
	Short: "Inspect or migrate the set of already boosted posts",
}

var seenExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write every recorded URI, one per line",
	Args:  cobra.NoArgs,
	RunE:  seenExportAction,
}

var seenImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Record URIs from a one-per-line file (use - for stdin)",
	Args:  cobra.ExactArgs(1),
	RunE:  seenImportAction,
}

var seenCountCmd = &cobra.Command{
	Use:   "count",
	Short: "Print the number of recorded URIs",
	Args:  cobra.NoArgs,
	RunE:  seenCountAction,
}

func init() {
	seenExportCmd.Flags().StringVarP(&seenOutput, "output", "o", "", "write to file instead of stdout")
	seenCmd.AddCommand(seenExportCmd, seenImportCmd, seenCountCmd)
	rootCmd.AddCommand(seenCmd)
}

func openSeenStore(cmd *cobra.Command) (*config.Profile, domain.SeenStore, error) {
	p, err := config.Load(configPath, profileName)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	s, err := store.Open(cmd.Context(), p.Store, p.Name)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	return p, s, nil
}

func seenExportAction(cmd *cobra.Command, _ []string) error {
	p, s, err := openSeenStore(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	seen, err := s.Load(cmd.Context())
	if err != nil {
		return fmt.Errorf("load seen posts: %w", err)
	}

	if seenOutput == "" {
		return writeURIs(cmd.OutOrStdout(), seen.Sorted())
	}

	f, err := os.Create(seenOutput)
	if err != nil {
		return fmt.Errorf("create %s: %w", seenOutput, err)
	}
	defer f.Close()

	if err := writeURIs(f, seen.Sorted()); err != nil {
		return fmt.Errorf("write %s: %w", seenOutput, err)
	}
	output.PrintInfo(cmd.OutOrStdout(), "%s: wrote %d URIs to %s", p.Name, len(seen), seenOutput)
	return nil
}

func writeURIs(w io.Writer, uris []string) error {
	bw := bufio.NewWriter(w)
	for _, uri := range uris {
		fmt.Fprintln(bw, uri)
	}
	return bw.Flush()
}

func seenImportAction(cmd *cobra.Command, args []string) error {
	p, s, err := openSeenStore(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	var r io.Reader = cmd.InOrStdin()
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open %s: %w", args[0], err)
		}
		defer f.Close()
		r = f
	}

	seen, err := s.Load(cmd.Context())
	if err != nil {
		return fmt.Errorf("load seen posts: %w", err)
	}

	added, skipped := 0, 0
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		uri := strings.TrimSpace(scanner.Text())
		if uri == "" {
			continue
		}
		if seen.Has(uri) {
			skipped++
			continue
		}
		if err := s.Add(cmd.Context(), uri); err != nil {
			return fmt.Errorf("record %s: %w", uri, err)
		}
		seen.Add(uri)
		added++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}

	output.PrintSuccess(cmd.OutOrStdout(), "%s: imported %d URIs (%d already present)", p.Name, added, skipped)
	return nil
}

func seenCountAction(cmd *cobra.Command, _ []string) error {
	_, s, err := openSeenStore(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	seen, err := s.Load(cmd.Context())
	if err != nil {
		return fmt.Errorf("load seen posts: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), len(seen))
	return nil
}
