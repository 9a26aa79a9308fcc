package cmd

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/vovanmozg/coge/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default config file if none exists",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		path, err := resolveConfigPath()
		if err != nil {
			return err
		}
		created, err := config.NewFile(afero.NewOsFs(), path).EnsureDefault()
		if err != nil {
			return err
		}
		if created {
			fmt.Fprintf(cmd.OutOrStdout(), "created default config at %s\n", path)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "config already exists at %s\n", path)
		}
		return nil
	},
}
