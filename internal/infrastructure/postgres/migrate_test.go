package postgres

import (
	"os"
	"testing"

	"github.com/fastygo/leadboard/internal/config"
)

func TestEmbeddedMigrationsAreReadable(t *testing.T) {
	src, err := embeddedSource()
	if err != nil {
		t.Fatalf("open embedded source: %v", err)
	}
	defer src.Close()

	first, err := src.First()
	if err != nil || first != 1 {
		t.Fatalf("first migration = %d, %v", first, err)
	}
	up, _, err := src.ReadUp(first)
	if err != nil {
		t.Fatalf("read up: %v", err)
	}
	_ = up.Close()
	down, _, err := src.ReadDown(first)
	if err != nil {
		t.Fatalf("read down: %v", err)
	}
	_ = down.Close()
}

func TestMigrateUpIsIdempotent(t *testing.T) {
	url := os.Getenv("LEADBOARD_TEST_POSTGRES_URL")
	if url == "" {
		t.Skip("LEADBOARD_TEST_POSTGRES_URL not set")
	}
	cfg := config.Default()
	cfg.Database.Driver = config.DriverPostgres
	cfg.Database.URL = url

	for _, dir := range []Direction{Up, Up} {
		if err := Migrate(cfg, dir, nil); err != nil {
			t.Fatalf("migrate %d: %v", dir, err)
		}
	}
}
