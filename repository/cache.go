package repository

import (
	"context"

	"github.com/fastygo/leadboard/domain"
	"github.com/fastygo/leadboard/internal/listing"
)

// LeadPageCache memoizes lead listing pages. Get reports the generation it
// looked under (a miss is a nil page); Put must be handed that generation so a
// page read before an Invalidate is never stored under the newer one.
type LeadPageCache interface {
	Get(ctx context.Context, key string) (*listing.Page[domain.Lead], int64, error)
	Put(ctx context.Context, key string, generation int64, page listing.Page[domain.Lead]) error
	// Invalidate drops every cached page at once.
	Invalidate(ctx context.Context) error
}
