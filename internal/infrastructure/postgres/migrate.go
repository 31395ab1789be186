package postgres

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/fastygo/leadboard/internal/config"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Direction selects which way Migrate moves the schema.
type Direction int

const (
	Up Direction = iota
	Down
)

// RunMigrations applies pending migrations when enabled in configuration.
func RunMigrations(cfg *config.Config, logger *zap.Logger) error {
	if cfg == nil || !cfg.Migrations.Enabled {
		return nil
	}
	return Migrate(cfg, Up, logger)
}

// Migrate moves the schema all the way up or down. Migrations come from
// cfg.Migrations.Path when set, else from the copies embedded in the binary.
func Migrate(cfg *config.Config, dir Direction, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	sqlDB, err := sql.Open("postgres", cfg.Database.PostgresURL())
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	if err := sqlDB.Ping(); err != nil {
		return err
	}

	driver, err := postgres.WithInstance(sqlDB, &postgres.Config{})
	if err != nil {
		return err
	}

	m, err := newMigrator(cfg.Migrations.Path, cfg.Database.Name, driver)
	if err != nil {
		return err
	}
	defer m.Close()

	switch dir {
	case Down:
		err = m.Down()
	default:
		err = m.Up()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	version, dirty, verr := m.Version()
	if verr != nil && !errors.Is(verr, migrate.ErrNilVersion) {
		return verr
	}
	logger.Info("database migrations applied", zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}

func newMigrator(path, dbName string, driver database.Driver) (*migrate.Migrate, error) {
	if path != "" {
		sourceURL := fmt.Sprintf("file://%s", filepath.ToSlash(path))
		return migrate.NewWithDatabaseInstance(sourceURL, dbName, driver)
	}
	src, err := embeddedSource()
	if err != nil {
		return nil, err
	}
	return migrate.NewWithInstance("iofs", src, dbName, driver)
}

func embeddedSource() (source.Driver, error) {
	return iofs.New(migrationsFS, "migrations")
}
