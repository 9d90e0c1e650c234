package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"stephly/internal/config"
	"stephly/internal/storage"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var (
		d   storage.Dialect
		dsn string
	)
	switch cfg.DataBackend {
	case config.BackendSQLite:
		d, dsn = storage.SQLite, cfg.SQLiteDBPath
	case config.BackendPostgres:
		d, dsn = storage.Postgres, cfg.DatabaseURL
	default:
		fmt.Fprintf(cmd.OutOrStdout(), "Backend %q has no schema, nothing to migrate\n", cfg.DataBackend)
		return nil
	}

	if err := storage.RunMigrations(d, dsn); err != nil {
		return err
	}
	version, dirty, err := storage.MigrationVersion(d, dsn)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s schema at version %d", d, version)
	if dirty {
		fmt.Fprint(cmd.OutOrStdout(), " (dirty)")
	}
	fmt.Fprintln(cmd.OutOrStdout())
	return nil
}
