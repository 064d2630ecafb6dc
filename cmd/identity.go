package main

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/trailkeeper/trailkeeper/internal/identity"
	"github.com/trailkeeper/trailkeeper/internal/logger"
	"github.com/trailkeeper/trailkeeper/pkg/config"
)

func newIdentityCommand(v *viper.Viper) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "identity",
		Short: "Resolve and print the device identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, cm, warnings, err := loadConfig(v)
			if err != nil {
				return err
			}
			ctx, log := logger.InitLogger(cmd.Context(), cm.GetLogLevel(), cm.IsJSONLog(), warnings)

			resolver := newResolver(paths.DataDir, cm, log)
			id, err := resolver.Resolve(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return json.NewEncoder(out).Encode(id)
			}
			_, err = fmt.Fprintf(out, "%s\t%s\n", id.ID, id.Source)
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the identity as JSON")
	return cmd
}

func newResolver(filesDir string, cm *config.ConfigManager, log *zerolog.Logger) *identity.Resolver {
	opts := []identity.Option{identity.WithLogger(log)}
	if sentinel := cm.GetSecureIDSentinel(); sentinel != "" {
		opts = append(opts, identity.WithSecureIDSentinel(sentinel))
	}
	return identity.NewResolver(identity.NewPlatform(filesDir), opts...)
}
