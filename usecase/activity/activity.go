package activity

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/fastygo/leadboard/domain"
	"github.com/fastygo/leadboard/internal/listing"
	"github.com/fastygo/leadboard/repository"
)

type ListRequest struct {
	Entity   string
	EntityID int64
	Page     int
	PageSize int
}

type UseCase struct {
	log    repository.ActivityLog
	logger *zap.Logger
}

func New(log repository.ActivityLog, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{log: log, logger: logger}
}

// List pages through the journal newest first. Without a journal the page is empty.
func (uc *UseCase) List(ctx context.Context, req ListRequest) (listing.Page[domain.ActivityEntry], error) {
	window := listing.NewWindow(req.Page, req.PageSize)
	entity := strings.ToLower(strings.TrimSpace(req.Entity))
	switch entity {
	case "", domain.EntityLead, domain.EntityTask:
	default:
		return listing.Page[domain.ActivityEntry]{}, domain.Invalidf("unknown entity %q", req.Entity)
	}
	if req.EntityID < 0 {
		return listing.Page[domain.ActivityEntry]{}, domain.Invalidf("entityId must be positive")
	}
	if uc.log == nil {
		return listing.NewPage[domain.ActivityEntry](nil, 0, window), nil
	}

	page, err := uc.log.List(ctx, repository.ActivityFilter{Entity: entity, EntityID: req.EntityID}, window)
	if err != nil {
		return listing.Page[domain.ActivityEntry]{}, domain.Unavailable("list activity", err)
	}
	return page, nil
}
