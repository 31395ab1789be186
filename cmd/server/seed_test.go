package main

import (
	"context"
	"testing"
	"time"

	"github.com/fastygo/leadboard/domain"
	"github.com/fastygo/leadboard/internal/config"
	"github.com/fastygo/leadboard/internal/listing"
	"github.com/fastygo/leadboard/usecase"
	leadUC "github.com/fastygo/leadboard/usecase/lead"
	taskUC "github.com/fastygo/leadboard/usecase/task"
)

func TestSeedDemoRunsOnce(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.Database.SQLitePath = ":memory:"

	st, err := openStores(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("open stores: %v", err)
	}
	t.Cleanup(st.close)

	journal := usecase.NewJournal(nil, nil)
	leads := leadUC.New(st.leads, nil, journal, nil)
	tasks := taskUC.New(st.tasks, st.leads, journal, nil)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	n, err := seedDemo(ctx, st.leads, leads, tasks, now)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if n != len(demoLeads()) {
		t.Fatalf("seeded %d leads, want %d", n, len(demoLeads()))
	}

	pending, err := st.tasks.List(ctx, listing.TaskQuery{Status: ptr(domain.TaskStatusPending)})
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(pending) != 4 {
		t.Fatalf("pending tasks = %d, want 4", len(pending))
	}
	for i, task := range pending {
		if task.Order != i {
			t.Fatalf("task %q has order %d, want %d", task.Title, task.Order, i)
		}
	}

	again, err := seedDemo(ctx, st.leads, leads, tasks, now)
	if err != nil || again != 0 {
		t.Fatalf("second seed = %d, %v; want 0, nil", again, err)
	}
}

func TestOpenStoresRejectsUnknownDriver(t *testing.T) {
	cfg := config.Default()
	cfg.Database.Driver = "mysql"
	if _, err := openStores(context.Background(), cfg, nil); err == nil {
		t.Fatalf("expected unsupported driver error")
	}
}
