package repository

import (
	"context"
	"time"

	"github.com/fastygo/leadboard/domain"
	"github.com/fastygo/leadboard/internal/listing"
)

// TaskRepository persists tasks. Reads return active tasks with LeadName
// resolved against active leads only.
type TaskRepository interface {
	Find(ctx context.Context, id int64) (*domain.Task, error)
	List(ctx context.Context, query listing.TaskQuery) ([]domain.Task, error)
	// Update writes the non-positional fields of an active task. Status and
	// order only change through Board. A task deleted meanwhile is NotFound.
	Update(ctx context.Context, task *domain.Task) error
	// Board runs fn inside one transaction; every write fn makes commits or
	// rolls back together.
	Board(ctx context.Context, fn func(tx BoardTx) error) error
}

// BoardTx is the transactional view a board change works against.
type BoardTx interface {
	// LockColumns serializes against other writers of the same columns.
	LockColumns(ctx context.Context, statuses ...domain.TaskStatus) error
	Task(ctx context.Context, id int64) (*domain.Task, error)
	// Column returns the active tasks of one status ordered by (order, id).
	Column(ctx context.Context, status domain.TaskStatus) ([]domain.Task, error)
	Insert(ctx context.Context, task *domain.Task) error
	Update(ctx context.Context, task *domain.Task) error
	Apply(ctx context.Context, placements []domain.Placement, at time.Time) error
}
