package main

import (
	"fmt"

	"github.com/marmos91/dittodav/pkg/config"
	"github.com/spf13/cobra"
)

func newInitCmd() *cobra.Command {
	var (
		force bool
		path  string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a sample configuration file",
		Long: `Write a commented sample configuration file.

Without --config the file goes to $XDG_CONFIG_HOME/dittodav/config.yaml
(or ~/.config/dittodav/config.yaml).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if path == "" {
				written, err := config.InitConfig(force)
				if err != nil {
					return err
				}
				path = written
			} else if err := config.InitConfigToPath(path, force); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing configuration file")
	cmd.Flags().StringVarP(&path, "config", "c", "", "write to this path instead of the default location")
	return cmd
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the configuration",
	}

	var path string
	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Load and validate the configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}

			source := path
			if source == "" {
				source = config.GetDefaultConfigPath()
				if !config.ConfigExists() {
					source = "defaults (no config file found)"
				}
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Configuration is valid: %s\n", source)
			fmt.Fprintf(out, "  store:    %s\n", cfg.Store.Type)
			fmt.Fprintf(out, "  webdav:   port %d, prefixes %v\n", cfg.Adapters.WebDAV.Port, cfg.Adapters.WebDAV.Prefixes)
			if cfg.Server.Metrics.Enabled {
				fmt.Fprintf(out, "  metrics:  port %d\n", cfg.Server.Metrics.Port)
			}
			return nil
		},
	}
	validateCmd.Flags().StringVarP(&path, "config", "c", "", "path to the configuration file")

	cmd.AddCommand(validateCmd)
	return cmd
}
