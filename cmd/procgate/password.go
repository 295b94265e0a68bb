package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/allaspectsdev/procgate/internal/vault"
)

func newDBPasswordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db-password",
		Short: "Manage the database password in the OS keychain",
		Long: `Stores the database password under the keychain service "procgate".
Reference it from the config with:

  [database]
  password_ref = "keyring://procgate/<account>"`,
	}

	var account string
	cmd.PersistentFlags().StringVar(&account, "account", vault.DefaultAccount, "keychain account name")

	cmd.AddCommand(&cobra.Command{
		Use:   "set",
		Short: "Prompt for the password and store it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "Enter database password for %s: ", account)
			secret, err := term.ReadPassword(int(os.Stdin.Fd()))
			fmt.Fprintln(cmd.OutOrStdout())
			if err != nil {
				return fmt.Errorf("reading password: %w", err)
			}
			if len(secret) == 0 {
				return fmt.Errorf("empty password")
			}
			if err := vault.New().Set(account, string(secret)); err != nil {
				return fmt.Errorf("storing password: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Password stored; set password_ref = %q\n", "keyring://"+vault.ServiceName+"/"+account)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "delete",
		Short: "Remove the stored password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := vault.New().Delete(account); err != nil {
				return fmt.Errorf("deleting password: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Password for %s deleted\n", account)
			return nil
		},
	})
	return cmd
}
