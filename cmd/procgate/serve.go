package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/allaspectsdev/procgate/internal/config"
	"github.com/allaspectsdev/procgate/internal/daemon"
)

func newServeCmd(configPath *string) *cobra.Command {
	var foreground bool

	cmd := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"start"},
		Short:   "Start the gateway",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			return daemon.Run(cfg, foreground)
		},
	}
	cmd.Flags().BoolVarP(&foreground, "foreground", "f", false, "also log to stdout")
	return cmd
}

func newStopCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the running gateway",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := config.Load(*configPath); err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if err := daemon.Stop(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "procgate stopped")
			return nil
		},
	}
}

func newStatusCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether the gateway is running and can reach the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := config.Load(*configPath); err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			return daemon.Status()
		},
	}
}

func newServiceCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Manage the procgate user service (launchd or systemd)",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "install",
		Short: "Install and start the user service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			return daemon.InstallService(cfg.Server.DataDir)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "uninstall",
		Short: "Stop and remove the user service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return daemon.UninstallService()
		},
	})
	return cmd
}
