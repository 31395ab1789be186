package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fastygo/leadboard/domain"
)

// ActivityRecorder abstracts the change journal so use cases stay storage-agnostic.
type ActivityRecorder interface {
	Record(ctx context.Context, entry domain.ActivityEntry) error
}

type actorKey struct{}

// ContextWithActor stores the authenticated user for journal entries.
func ContextWithActor(ctx context.Context, actor string) context.Context {
	if actor == "" {
		return ctx
	}
	return context.WithValue(ctx, actorKey{}, actor)
}

func ActorFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	actor, _ := ctx.Value(actorKey{}).(string)
	return actor
}

// Journal records entries best-effort: a failing journal is logged and never
// fails the write that produced the entry. A nil recorder disables it.
type Journal struct {
	recorder ActivityRecorder
	logger   *zap.Logger
	now      func() time.Time
}

func NewJournal(recorder ActivityRecorder, logger *zap.Logger) *Journal {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Journal{recorder: recorder, logger: logger, now: time.Now}
}

func (j *Journal) Record(ctx context.Context, entity string, id int64, action, details string) {
	if j == nil || j.recorder == nil {
		return
	}
	entry := domain.ActivityEntry{
		ID:        uuid.NewString(),
		Entity:    entity,
		EntityID:  id,
		Action:    action,
		Details:   details,
		Actor:     ActorFromContext(ctx),
		Timestamp: j.now().UTC(),
	}
	if err := j.recorder.Record(ctx, entry); err != nil {
		j.logger.Warn("failed to journal activity",
			zap.String("entity", entity),
			zap.Int64("id", id),
			zap.String("action", action),
			zap.Error(err),
		)
	}
}
