package output

import (
	"fmt"
	"io"

	"github.com/blackmichael/bluesky-autoposter/internal/domain"
	"github.com/fatih/color"
)

var (
	Success = color.New(color.FgGreen)
	Error   = color.New(color.FgRed)
	Info    = color.New(color.FgCyan)
	Dim     = color.New(color.Faint)
	Header  = color.New(color.FgWhite, color.Bold)
)

// NoColor disables color output
func NoColor() {
	color.NoColor = true
}

// FormatSummary renders a run summary as a single line. Failure counts are
// red when non-zero.
func FormatSummary(profile string, s domain.RunSummary, dryRun bool) string {
	prefix := Header.Sprint(profile)
	if dryRun {
		prefix += Dim.Sprint(" (dry run)")
	}

	return fmt.Sprintf("%s: fetched %d, candidates %d, reposted %s, liked %s, failed %s, author cap skips %d",
		prefix,
		s.Fetched,
		s.Candidates,
		Success.Sprint(s.Reposted),
		Success.Sprint(s.Liked),
		failures(s.RepostFailed+s.LikeFailed),
		s.SkippedAuthorCap,
	)
}

func failures(n int) string {
	if n == 0 {
		return fmt.Sprint(n)
	}
	return Error.Sprint(n)
}

// PrintSummary writes FormatSummary to w.
func PrintSummary(w io.Writer, profile string, s domain.RunSummary, dryRun bool) {
	fmt.Fprintln(w, FormatSummary(profile, s, dryRun))
}

// PrintSuccess prints a success message
func PrintSuccess(w io.Writer, format string, args ...interface{}) {
	Success.Fprintf(w, "✓ "+format+"\n", args...)
}

// PrintError prints an error message
func PrintError(w io.Writer, format string, args ...interface{}) {
	Error.Fprintf(w, "✗ "+format+"\n", args...)
}

// PrintInfo prints an info message
func PrintInfo(w io.Writer, format string, args ...interface{}) {
	Info.Fprintf(w, "→ "+format+"\n", args...)
}
