package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/vovanmozg/coge/race"
	"github.com/vovanmozg/coge/stats"
)

var (
	// CLI flags shared by every subcommand
	nonInteractive bool   // Print the command and exit without prompting
	debug          bool   // Shorthand for --log debug
	logLevel       string // Log verbosity level
	seed           int64  // Seed for backend selection; unset means clock-seeded
	metricsFile    string // Write Prometheus text metrics here after the race settles
	configPath     string // Config file path; empty means the platform default

	// settleMargin is how long past the straggler timeout the CLI waits for
	// learning to be written before it gives up and exits.
	settleMargin = 2 * time.Second

	rootCmd = &cobra.Command{
		Use:   "coge <instruction...>",
		Short: "Turn a plain-language instruction into a shell command",
		Long: "coge sends the instruction to one or more text-generation backends,\n" +
			"shows the first command that comes back and asks what to do with it.",
		Args:              cobra.ArbitraryArgs,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setupLogging,
		RunE:              runGenerate,
	}
)

var errNoPrompt = errors.New("no prompt provided")

// exitError carries a process exit status through cobra without printing.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

func setupLogging(*cobra.Command, []string) error {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", logLevel, err)
	}
	if debug {
		level = logrus.DebugLevel
	}
	logrus.SetOutput(os.Stderr)
	logrus.SetLevel(level)
	return nil
}

func runGenerate(cmd *cobra.Command, args []string) error {
	prompt := strings.TrimSpace(strings.Join(args, " "))
	if prompt == "" {
		return errNoPrompt
	}
	ctx := cmd.Context()

	a, err := newApp(ctx, cmd.Flags().Changed("seed"))
	if err != nil {
		return err
	}
	defer a.Close()

	logrus.WithFields(logrus.Fields{
		"config":   a.cfgFile.Path(),
		"backend":  a.cfg.PreferredBackend(),
		"model":    a.cfg.Model,
		"strategy": a.cfg.SelectionStrategy(),
	}).Debug("configuration loaded")

	res, err := a.dispatcher.Generate(ctx, a.cfg, SystemPrompt(goos), prompt)
	if res != nil && res.Race != nil {
		defer a.settle(res.Race)
	}
	if err != nil {
		var raceErr *race.Error
		if errors.As(err, &raceErr) {
			printFailures(cmd, raceErr)
			return &exitError{code: 1}
		}
		return err
	}

	logrus.WithFields(logrus.Fields{
		"mode":    res.Selection.Mode,
		"arms":    res.Selection.Arms,
		"racing":  res.Selection.Backends,
		"winner":  res.Winner.Backend,
		"latency": res.Winner.Latency.Round(time.Millisecond),
		"race":    res.Race.ID(),
	}).Debug("command generated")

	if nonInteractive || !stdinIsTerminal() {
		fmt.Fprintln(cmd.OutOrStdout(), res.Text)
		a.record(ctx, res.Arm, stats.ActionExecute)
		return nil
	}
	return a.interact(ctx, cmd, res.Arm, res.Text)
}

func printFailures(cmd *cobra.Command, err *race.Error) {
	w := cmd.ErrOrStderr()
	fmt.Fprintln(w, "All backends failed:")
	for _, f := range err.Failures {
		fmt.Fprintf(w, "  - %s: %v\n", f.Backend, f.Err)
	}
}

// Execute runs the root command and exits with a non-zero status on error.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		var exit *exitError
		if errors.As(err, &exit) {
			os.Exit(exit.code)
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	// Output
	rootCmd.PersistentFlags().BoolVar(&nonInteractive, "non-interactive", false, "Print the generated command and exit without prompting")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging (same as --log debug)")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log", "l", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")

	// Selection
	rootCmd.PersistentFlags().Int64Var(&seed, "seed", 0, "Seed for backend selection (default: seeded from the clock)")

	// Files
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config.yaml (default: the per-user config directory)")
	rootCmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "", "Write Prometheus text-format race metrics to this file")

	rootCmd.AddCommand(initCmd, statsCmd, ptestallCmd, modelsCmd, configureCmd)
}
