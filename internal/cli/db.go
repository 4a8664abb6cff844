package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lazypower/charmlink/internal/keyring"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the database connection",
}

var dbSetDSNCmd = &cobra.Command{
	Use:   "set-dsn <dsn>",
	Short: "Store the PostgreSQL connection string in the OS keyring",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := keyring.SetDSN(args[0]); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "PostgreSQL DSN saved to keyring.")
		return nil
	},
}

var dbClearDSNCmd = &cobra.Command{
	Use:   "clear-dsn",
	Short: "Remove the PostgreSQL connection string from the OS keyring",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := keyring.DeleteDSN(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "PostgreSQL DSN removed from keyring.")
		return nil
	},
}

var dbStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Open the configured database, apply migrations and print the schema version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		version, err := db.SchemaVersion()
		if err != nil {
			return fmt.Errorf("schema version: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "driver: %s\ndatabase: %s\nschema version: %d\n", db.Driver, db.Path, version)
		return nil
	},
}

func init() {
	dbCmd.AddCommand(dbSetDSNCmd)
	dbCmd.AddCommand(dbClearDSNCmd)
	dbCmd.AddCommand(dbStatusCmd)
}
