package repository

import (
	"context"

	"github.com/fastygo/leadboard/domain"
	"github.com/fastygo/leadboard/internal/listing"
)

// LeadRepository persists leads. Find, List, Count and Exists only see active
// rows; FindAny is the explicit bypass used to resolve dangling references.
type LeadRepository interface {
	Find(ctx context.Context, id int64) (*domain.Lead, error)
	FindAny(ctx context.Context, id int64) (*domain.Lead, error)
	List(ctx context.Context, query listing.LeadQuery, window listing.Window) ([]domain.Lead, error)
	Count(ctx context.Context, query listing.LeadQuery) (int, error)
	Insert(ctx context.Context, lead *domain.Lead) error
	// Update overwrites an active lead; one deleted meanwhile is NotFound.
	Update(ctx context.Context, lead *domain.Lead) error
	Exists(ctx context.Context, id int64) (bool, error)
}
