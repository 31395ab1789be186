package repository

import (
	"context"
	"time"

	"github.com/fastygo/leadboard/domain"
	"github.com/fastygo/leadboard/internal/listing"
)

// ActivityFilter narrows a journal listing. Zero values match everything.
type ActivityFilter struct {
	Entity   string
	EntityID int64
}

// ActivityLog is the append-only change journal. List returns newest first.
type ActivityLog interface {
	Record(ctx context.Context, entry domain.ActivityEntry) error
	List(ctx context.Context, filter ActivityFilter, window listing.Window) (listing.Page[domain.ActivityEntry], error)
	Prune(ctx context.Context, before time.Time) (int, error)
	Size() (int, error)
}
