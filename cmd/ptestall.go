package cmd

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/vovanmozg/coge/dispatch"
)

// probePrompt is answered by every healthy backend with an ls command.
const probePrompt = "list of files"

var (
	errNothingConfigured = errors.New("no backends configured; set API key environment variables first")

	startsWithLs = regexp.MustCompile(`(?i)^ls\b`)

	passStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
)

var ptestallCmd = &cobra.Command{
	Use:   "ptestall",
	Short: "Send a test prompt to every configured backend",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd.Context(), cmd.Flags().Changed("seed"))
		if err != nil {
			return err
		}
		defer a.Close()

		if len(a.registry.Configured()) == 0 {
			return errNothingConfigured
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Testing all configured backends...\n\n")
		probes := a.dispatcher.ProbeAll(cmd.Context(), a.cfg, SystemPrompt(goos), probePrompt)
		if reportProbes(out, probes) < len(probes) {
			return &exitError{code: 1}
		}
		return nil
	},
}

// reportProbes prints one line per probe plus a summary and returns how many
// passed.
func reportProbes(w io.Writer, probes []dispatch.Probe) int {
	passed := 0
	for _, p := range probes {
		fmt.Fprintln(w, formatProbe(p))
		if p.Err == nil {
			passed++
		}
	}
	fmt.Fprintf(w, "\nResults: %d/%d passed\n", passed, len(probes))
	return passed
}

func formatProbe(p dispatch.Probe) string {
	label := fmt.Sprintf("%-40s", p.String())
	if p.Err != nil {
		return fmt.Sprintf("  %s  %s %s", failStyle.Render("✗"), label, firstLine(p.Err.Error(), 80))
	}
	line := fmt.Sprintf("  %s  %s %dms  %q", passStyle.Render("✓"), label,
		p.Latency.Round(time.Millisecond).Milliseconds(), firstLine(p.Text, 60))
	if !startsWithLs.MatchString(p.Text) {
		line += " " + warnStyle.Render(`(warning: does not start with "ls")`)
	}
	return line
}

// firstLine returns the first line of s, cut to at most n runes.
func firstLine(s string, n int) string {
	s, _, _ = strings.Cut(s, "\n")
	if r := []rune(s); len(r) > n {
		return string(r[:n])
	}
	return s
}
