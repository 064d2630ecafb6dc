package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/trailkeeper/trailkeeper/internal/utils"
)

func newConfigCommand(v *viper.Viper) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the trailkeeper configuration",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Write the effective configuration to config.json and print it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cm, _, err := loadConfig(v)
			if err != nil {
				return err
			}
			if err := cm.WriteConfig(); err != nil {
				return err
			}
			_, err = utils.ReadFile(cm.ConfigPath(), cmd.OutOrStdout())
			return err
		},
	})

	return configCmd
}
