package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fastygo/leadboard/internal/config"
	"github.com/fastygo/leadboard/internal/infrastructure/monitor"
	pgInfra "github.com/fastygo/leadboard/internal/infrastructure/postgres"
	sqliteInfra "github.com/fastygo/leadboard/internal/infrastructure/sqlite"
	"github.com/fastygo/leadboard/repository"
	"github.com/fastygo/leadboard/repository/postgres"
	"github.com/fastygo/leadboard/repository/sqlite"
)

// stores bundles the repositories of one database driver.
type stores struct {
	leads repository.LeadRepository
	tasks repository.TaskRepository
	users repository.UserRepository
	db    monitor.Pinger
	close func()
}

func openStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*stores, error) {
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		if err := pgInfra.RunMigrations(cfg, logger); err != nil {
			return nil, fmt.Errorf("migrations: %w", err)
		}
		pool, err := pgInfra.NewPool(ctx, cfg.Database, logger)
		if err != nil {
			return nil, err
		}
		return &stores{
			leads: postgres.NewLeadRepository(pool),
			tasks: postgres.NewTaskRepository(pool),
			users: postgres.NewUserRepository(pool),
			db:    pool,
			close: func() { pgInfra.Close(pool, logger) },
		}, nil

	case config.DriverSQLite:
		db, err := sqliteInfra.Open(ctx, cfg.Database.SQLitePath, logger)
		if err != nil {
			return nil, err
		}
		return &stores{
			leads: sqlite.NewLeadRepository(db),
			tasks: sqlite.NewTaskRepository(db),
			users: sqlite.NewUserRepository(db),
			db:    monitor.PingFunc(db.PingContext),
			close: func() { sqliteInfra.Close(db, logger) },
		}, nil

	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
}
