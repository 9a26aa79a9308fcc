package cmd

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/vovanmozg/coge/backend"
	"github.com/vovanmozg/coge/bandit"
	"github.com/vovanmozg/coge/config"
)

var refreshModels bool // Refresh the available list from the backend's service

var blacklistedStyle = lipgloss.NewStyle().Strikethrough(true).Faint(true)

var modelsCmd = &cobra.Command{
	Use:   "models <backend>",
	Short: "List the models offered for a backend, marking blacklisted ones",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		name := args[0]
		if _, ok := a.registry.Spec(name); !ok {
			return fmt.Errorf("%w %q", backend.ErrUnknownBackend, name)
		}

		if refreshModels {
			if err := a.pullModels(cmd, name); err != nil {
				return err
			}
		}
		writeModels(cmd.OutOrStdout(), a.cfg, name, bandit.ModelFor(a.cfg, name, a.registry.DefaultModels()))
		return nil
	},
}

// pullModels fetches the backend's model ids and stores them as its
// available list.
func (a *app) pullModels(cmd *cobra.Command, name string) error {
	fmt.Fprintf(cmd.OutOrStdout(), "Fetching models for %s...\n", name)
	lister, err := a.registry.Lister(cmd.Context(), name)
	if err != nil {
		return err
	}
	ids, err := lister.ListModels(cmd.Context())
	if err != nil {
		return fmt.Errorf("fetching models: %w", err)
	}
	changed, err := a.cfgFile.Update(func(cfg *config.Config) bool {
		return cfg.SetAvailable(name, ids)
	})
	if err != nil {
		return err
	}
	logrus.Debugf("%s: %d models, config changed: %v", name, len(ids), changed)
	a.cfg, err = a.cfgFile.Load()
	return err
}

// writeModels prints the available list of backend, marking the model it
// runs with and striking through blacklisted ids.
func writeModels(w io.Writer, cfg *config.Config, name, current string) {
	var available []string
	if e := cfg.Backends[name]; e != nil {
		available = e.Available
	}
	if len(available) == 0 {
		fmt.Fprintf(w, "No models known for %s (runs %s). Use --pull to fetch them.\n", name, current)
		return
	}
	fmt.Fprintf(w, "Available models for %s (%d):\n", name, len(available))
	for _, id := range available {
		switch {
		case cfg.IsBlacklisted(name, id):
			fmt.Fprintf(w, "  %s [blacklisted]\n", blacklistedStyle.Render(id))
		case id == current:
			fmt.Fprintf(w, "  %s (default)\n", id)
		default:
			fmt.Fprintf(w, "  %s\n", id)
		}
	}
}

func init() {
	modelsCmd.Flags().BoolVar(&refreshModels, "pull", false, "Fetch the model list from the backend's service and save it")
}
