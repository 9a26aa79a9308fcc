package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vovanmozg/coge/stats"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show how often each backend's commands were executed, copied or cancelled",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		s, err := a.usage.Load(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), stats.Format(s))
		return nil
	},
}
