package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fastygo/leadboard/internal/config"
	pgInfra "github.com/fastygo/leadboard/internal/infrastructure/postgres"
	sqliteInfra "github.com/fastygo/leadboard/internal/infrastructure/sqlite"
)

var migrateDown bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply (or with --down, revert) the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		if cfg.Database.Driver == config.DriverSQLite {
			if migrateDown {
				zapLogger.Warn("sqlite schema has no down migration; nothing to do")
				return nil
			}
			// Open applies the idempotent schema.
			db, err := sqliteInfra.Open(ctx, cfg.Database.SQLitePath, zapLogger)
			if err != nil {
				return err
			}
			sqliteInfra.Close(db, zapLogger)
			return nil
		}

		dir := pgInfra.Up
		if migrateDown {
			dir = pgInfra.Down
		}
		zapLogger.Info("running migrations", zap.Bool("down", migrateDown))
		return pgInfra.Migrate(cfg, dir, zapLogger)
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateDown, "down", false, "Revert every migration")
}
