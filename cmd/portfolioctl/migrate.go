package main

import (
	"context"
	"database/sql"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bimakw/chain-portfolio/internal/infrastructure/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage cache schema migrations",
	Long:  `Apply, roll back, or show the status of the PostgreSQL cache schema.`,
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDatabase(func(ctx context.Context, db *sql.DB) error {
			if err := database.MigrateUp(ctx, db); err != nil {
				return err
			}
			log.Info("Migrations applied successfully")
			return nil
		})
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the last migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDatabase(func(ctx context.Context, db *sql.DB) error {
			if err := database.MigrateDown(ctx, db); err != nil {
				return err
			}
			log.Info("Migration rolled back successfully")
			return nil
		})
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show migration status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDatabase(database.MigrateStatus)
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
	migrateCmd.AddCommand(migrateStatusCmd)
}

// withDatabase runs fn against the configured PostgreSQL database,
// whatever cache backend is selected
func withDatabase(fn func(ctx context.Context, db *sql.DB) error) error {
	ctx, cancel := signalContext()
	defer cancel()

	db, err := database.NewPostgresDB(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := fn(ctx, db.DB().DB); err != nil {
		log.Error("Database command failed", zap.Error(err))
		return err
	}
	return nil
}
