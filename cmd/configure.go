package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/vovanmozg/coge/backend"
	"github.com/vovanmozg/coge/bandit"
	"github.com/vovanmozg/coge/config"
)

var (
	// configure flags
	setStrategy string // auto | manual
	setBackend  string // Preferred backend
	setModel    string // Default model of the preferred backend
)

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Set the selection strategy, preferred backend and model",
	Long: "With no flags, prints the current settings. --model applies to the\n" +
		"backend given with --backend, or to the preferred backend.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		path, err := resolveConfigPath()
		if err != nil {
			return err
		}
		f := config.NewFile(afero.NewOsFs(), path)
		out := cmd.OutOrStdout()

		flags := cmd.Flags()
		if !flags.Changed("strategy") && !flags.Changed("backend") && !flags.Changed("model") {
			cfg, err := f.Load()
			if err != nil {
				return err
			}
			writeSettings(out, path, cfg)
			return nil
		}

		if !bandit.ValidStrategies[bandit.Strategy(setStrategy)] {
			return fmt.Errorf("unknown strategy %q; valid: auto, manual", setStrategy)
		}
		reg := backend.NewRegistry(nil, nil)
		if setBackend != "" {
			if _, ok := reg.Spec(setBackend); !ok {
				return fmt.Errorf("%w %q", backend.ErrUnknownBackend, setBackend)
			}
		}

		var cfg *config.Config
		if _, err := f.Update(func(c *config.Config) bool {
			applySettings(c, flags.Changed("strategy"), bandit.Strategy(setStrategy), setBackend, setModel)
			cfg = c
			return true
		}); err != nil {
			return err
		}
		writeSettings(out, path, cfg)
		fmt.Fprintln(out, "Config saved.")
		return nil
	},
}

// applySettings writes the configure flags into cfg. Empty values are left
// alone.
func applySettings(cfg *config.Config, strategyChanged bool, strategy bandit.Strategy, backendName, model string) {
	if strategyChanged {
		cfg.Strategy = strategy
	}
	if backendName != "" {
		cfg.Backend = backendName
	}
	if model != "" {
		cfg.SetDefault(cfg.PreferredBackend(), model)
	}
}

func writeSettings(w io.Writer, path string, cfg *config.Config) {
	model := cfg.DefaultModel(cfg.PreferredBackend())
	if model == "" {
		model = "built-in default"
	}
	fmt.Fprintf(w, "Config:   %s\n", path)
	fmt.Fprintf(w, "Strategy: %s\n", cfg.SelectionStrategy())
	fmt.Fprintf(w, "Backend:  %s\n", cfg.PreferredBackend())
	fmt.Fprintf(w, "Model:    %s\n", model)
}

func init() {
	configureCmd.Flags().StringVar(&setStrategy, "strategy", string(bandit.StrategyAuto), "Selection strategy: auto (the bandit races backends) or manual (always the preferred backend)")
	configureCmd.Flags().StringVar(&setBackend, "backend", "", "Preferred backend")
	configureCmd.Flags().StringVar(&setModel, "model", "", "Default model for the preferred backend")
}
