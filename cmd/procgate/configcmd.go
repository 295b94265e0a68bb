package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/allaspectsdev/procgate/internal/config"
)

func newInitConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init-config",
		Short: "Write the default config to ~/.procgate/procgate.toml",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return config.InitConfig()
		},
	}
}

func newConfigExportCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "config-export [file]",
		Short: "Export the effective config (without the plain-text password) as TOML",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "procgate-export.toml"
			if len(args) > 0 {
				path = args[0]
			}
			if _, err := config.Load(*configPath); err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if err := config.ExportConfig(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Config exported to %s\n", path)
			return nil
		},
	}
}

func newConfigCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config-check <file>",
		Short: "Load and validate a config file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (driver %s, schema revision %d, %d procedure overrides)\n",
				args[0], cfg.Database.Driver, cfg.Database.SchemaRevision, len(cfg.Procedures))
			return nil
		},
	}
}
