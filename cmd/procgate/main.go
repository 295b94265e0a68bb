package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/allaspectsdev/procgate/internal/version"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "procgate",
		Short:         "HTTP gateway to SQL Server stored procedures",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ~/.procgate/procgate.toml or ./procgate.toml)")

	cmd.AddCommand(newServeCmd(&configPath))
	cmd.AddCommand(newStopCmd(&configPath))
	cmd.AddCommand(newStatusCmd(&configPath))
	cmd.AddCommand(newServiceCmd(&configPath))
	cmd.AddCommand(newInitConfigCmd())
	cmd.AddCommand(newConfigExportCmd(&configPath))
	cmd.AddCommand(newConfigCheckCmd())
	cmd.AddCommand(newDBPasswordCmd())
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	})
	return cmd
}
