package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bimakw/chain-portfolio/internal/infrastructure/database"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Maintain the PostgreSQL cache store",
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete expired cache entries",
	Long: `Expired entries are already ignored on read. purge reclaims their
space in the balance, price and metadata tables.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDatabase(func(ctx context.Context, db *sql.DB) error {
			repo := database.NewCacheRepo(sqlx.NewDb(db, "postgres"))

			removed, err := repo.PurgeExpired(ctx)
			if err != nil {
				return err
			}

			log.Info("Purged expired cache entries", zap.Int64("removed", removed))
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "removed %d expired entries\n", removed)
			return err
		})
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cachePurgeCmd)
}
