package main

import (
	"fmt"
	"os"

	"github.com/jamesainslie/revclean/pkg/revclean/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd(a *app) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long: `Manage revclean configuration.

Configuration is loaded from:
  1. $XDG_CONFIG_HOME/revclean/config.yaml (if set)
  2. ~/.config/revclean/config.yaml

Environment variables override file settings using the REVCLEAN_ prefix:
  REVCLEAN_MANIFEST=assets.json
  REVCLEAN_KEEP_SOURCEMAPS=true
  REVCLEAN_DELETE_DRY_RUN=true`,
	}

	configCmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Show the effective configuration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				w := cmd.OutOrStdout()
				if used := a.settings.ConfigFileUsed(); used != "" {
					fmt.Fprintf(w, "# Config file: %s\n", used)
				} else {
					fmt.Fprintln(w, "# Config file: (none found, using defaults)")
				}
				out, err := yaml.Marshal(a.settings.AllSettings())
				if err != nil {
					return fmt.Errorf("failed to render configuration: %w", err)
				}
				_, err = w.Write(out)
				return err
			},
		},
		&cobra.Command{
			Use:   "init",
			Short: "Create a default configuration file",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				path, err := config.ConfigPath()
				if err != nil {
					return err
				}
				if _, err := os.Stat(path); err == nil {
					fmt.Fprintf(cmd.OutOrStdout(), "Config file already exists: %s\n", path)
					return nil
				}
				if _, err := config.WriteDefault(); err != nil {
					return fmt.Errorf("failed to create config file: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created default config file: %s\n", path)
				return nil
			},
		},
		&cobra.Command{
			Use:   "path",
			Short: "Show the configuration file path",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				path, err := config.ConfigPath()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			},
		},
	)
	return configCmd
}
