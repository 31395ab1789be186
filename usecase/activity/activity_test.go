package activity

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/fastygo/leadboard/domain"
	"github.com/fastygo/leadboard/internal/infrastructure/journal"
	"github.com/fastygo/leadboard/usecase"
)

func TestListThroughJournal(t *testing.T) {
	store, err := journal.Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	defer store.Close()

	ctx := usecase.ContextWithActor(context.Background(), "42")
	j := usecase.NewJournal(store, nil)
	j.Record(ctx, domain.EntityLead, 1, domain.ActionCreated, "Ada Lovelace")
	j.Record(ctx, domain.EntityTask, 3, domain.ActionMoved, "to InProgress")

	uc := New(store, nil)
	page, err := uc.List(context.Background(), ListRequest{Entity: " Task "})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.TotalCount != 1 || page.Items[0].EntityID != 3 || page.Items[0].Actor != "42" {
		t.Fatalf("unexpected page %+v", page)
	}
	if page.PageNumber != 1 || page.PageSize != 1 {
		t.Fatalf("window not clamped: %+v", page)
	}
}

func TestListRejectsUnknownEntity(t *testing.T) {
	uc := New(nil, nil)
	if _, err := uc.List(context.Background(), ListRequest{Entity: "user"}); !domain.IsDomainError(err, domain.ErrCodeInvalid) {
		t.Fatalf("expected invalid, got %v", err)
	}
}

func TestListWithoutJournal(t *testing.T) {
	page, err := New(nil, nil).List(context.Background(), ListRequest{Page: 2, PageSize: 5})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Items == nil || page.TotalCount != 0 || page.PageNumber != 2 {
		t.Fatalf("unexpected page %+v", page)
	}
}

func TestJournalFailureDoesNotPropagate(t *testing.T) {
	store, err := journal.Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	_ = store.Close()

	usecase.NewJournal(store, nil).Record(context.Background(), domain.EntityLead, 1, domain.ActionDeleted, "")

	if _, err := New(store, nil).List(context.Background(), ListRequest{}); err == nil || errors.Is(err, context.Canceled) {
		t.Fatalf("expected storage error from a closed journal, got %v", err)
	}
}
