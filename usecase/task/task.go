package task

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/leadboard/domain"
	"github.com/fastygo/leadboard/internal/board"
	"github.com/fastygo/leadboard/internal/listing"
	"github.com/fastygo/leadboard/repository"
	"github.com/fastygo/leadboard/usecase"
)

// maxBoardAttempts bounds the retries when a concurrent move relocates the
// task between the first read and acquiring its column.
const maxBoardAttempts = 3

var ErrBoardContention = domain.NewError(domain.ErrCodeConflict, "task was moved concurrently, retry the request")

type CreateInput struct {
	Title       string               `json:"title" validate:"required,max=200"`
	Description *string              `json:"description"`
	DueDate     *time.Time           `json:"dueDate"`
	Priority    *domain.TaskPriority `json:"priority"`
	Status      *domain.TaskStatus   `json:"status"`
	LeadID      *int64               `json:"leadId"`
	Order       *int                 `json:"order"`
}

type UpdateInput struct {
	Title       *string              `json:"title" validate:"omitnil,min=1,max=200"`
	Description *string              `json:"description"`
	DueDate     *time.Time           `json:"dueDate"`
	Priority    *domain.TaskPriority `json:"priority"`
	Status      *domain.TaskStatus   `json:"status"`
	LeadID      *int64               `json:"leadId"`
	ClearLead   bool                 `json:"clearLead"`
	Order       *int                 `json:"order"`
}

// MoveInput is the kanban drag-and-drop payload.
type MoveInput struct {
	TaskID    int64             `json:"taskId"`
	NewStatus domain.TaskStatus `json:"newStatus"`
	NewOrder  int               `json:"newOrder"`
}

type UseCase struct {
	tasks   repository.TaskRepository
	leads   repository.LeadRepository
	locker  *board.Locker
	journal *usecase.Journal
	logger  *zap.Logger
	now     func() time.Time
}

func New(tasks repository.TaskRepository, leads repository.LeadRepository, journal *usecase.Journal, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		tasks:   tasks,
		leads:   leads,
		locker:  board.NewLocker(),
		journal: journal,
		logger:  logger,
		now:     time.Now,
	}
}

func (uc *UseCase) ListTasks(ctx context.Context, filter listing.TaskQuery) ([]domain.Task, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, domain.Invalidf("invalid task status %d", int(*filter.Status))
	}
	return uc.tasks.List(ctx, filter)
}

// ListTasksForLead returns the tasks of an active lead.
func (uc *UseCase) ListTasksForLead(ctx context.Context, leadID int64) ([]domain.Task, error) {
	exists, err := uc.leads.Exists(ctx, leadID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, domain.ErrLeadNotFound
	}
	return uc.tasks.List(ctx, listing.TaskQuery{LeadID: &leadID})
}

func (uc *UseCase) GetTask(ctx context.Context, id int64) (*domain.Task, error) {
	return uc.tasks.Find(ctx, id)
}

// CreateTask inserts the task at the requested position of its column, or
// at the end, shifting the cards below it.
func (uc *UseCase) CreateTask(ctx context.Context, in CreateInput) (*domain.Task, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := usecase.Validate(in); err != nil {
		return nil, err
	}

	task := &domain.Task{
		Title:       in.Title,
		Description: in.Description,
		DueDate:     in.DueDate,
		Priority:    domain.TaskPriorityMedium,
		Status:      domain.TaskStatusPending,
		LeadID:      in.LeadID,
	}
	if in.Priority != nil {
		task.Priority = *in.Priority
	}
	if in.Status != nil {
		task.Status = *in.Status
	}
	if err := validateEnums(task.Status, task.Priority); err != nil {
		return nil, err
	}
	if err := uc.ensureLead(ctx, task.LeadID); err != nil {
		return nil, err
	}

	unlock, err := uc.locker.Lock(ctx, task.Status)
	if err != nil {
		return nil, err
	}
	err = uc.tasks.Board(ctx, func(tx repository.BoardTx) error {
		if err := tx.LockColumns(ctx, task.Status); err != nil {
			return err
		}
		column, err := tx.Column(ctx, task.Status)
		if err != nil {
			return err
		}

		task.Order = len(column)
		task.Touch(uc.now())
		if err := tx.Insert(ctx, task); err != nil {
			return err
		}

		target := len(column)
		if in.Order != nil {
			target = *in.Order
		}
		column = append(column, *task)
		return tx.Apply(ctx, board.Plan(*task, column, column, task.Status, target), uc.now())
	})
	unlock()
	if err != nil {
		return nil, err
	}

	uc.journal.Record(ctx, domain.EntityTask, task.ID, domain.ActionCreated, task.Title)
	return uc.tasks.Find(ctx, task.ID)
}

// UpdateTask applies a partial update. A changed status or order is routed
// through the board so both columns stay numbered 0..n-1.
func (uc *UseCase) UpdateTask(ctx context.Context, id int64, in UpdateInput) (*domain.Task, error) {
	in.Title = trimOptional(in.Title)
	if err := usecase.Validate(in); err != nil {
		return nil, err
	}
	if in.Priority != nil && !in.Priority.Valid() {
		return nil, domain.Invalidf("invalid task priority %d", int(*in.Priority))
	}
	if in.Status != nil && !in.Status.Valid() {
		return nil, domain.Invalidf("invalid task status %d", int(*in.Status))
	}
	if !in.ClearLead {
		if err := uc.ensureLead(ctx, in.LeadID); err != nil {
			return nil, err
		}
	}

	patch := domain.TaskPatch{
		Title:       in.Title,
		Description: in.Description,
		DueDate:     in.DueDate,
		Priority:    in.Priority,
		Status:      in.Status,
		LeadID:      in.LeadID,
		ClearLead:   in.ClearLead,
		Order:       in.Order,
	}
	var extra []domain.TaskStatus
	if in.Status != nil {
		extra = append(extra, *in.Status)
	}

	// Field changes and the reposition commit together.
	var title string
	err := uc.onBoard(ctx, id, func(tx repository.BoardTx, task *domain.Task) error {
		repositions := patch.Repositions(task)
		patch.Apply(task)
		task.Touch(uc.now())
		if err := tx.Update(ctx, task); err != nil {
			return err
		}
		title = task.Title
		if !repositions {
			return nil
		}
		status := task.Status
		if in.Status != nil {
			status = *in.Status
		}
		order := math.MaxInt
		if in.Order != nil {
			order = *in.Order
		}
		return uc.place(ctx, tx, task, status, order)
	}, extra...)
	if err != nil {
		return nil, err
	}

	uc.journal.Record(ctx, domain.EntityTask, id, domain.ActionUpdated, title)
	return uc.tasks.Find(ctx, id)
}

// MoveTask runs the drag-and-drop protocol and returns the task's stored state.
func (uc *UseCase) MoveTask(ctx context.Context, in MoveInput) (*domain.Task, error) {
	if !in.NewStatus.Valid() {
		return nil, domain.Invalidf("invalid task status %d", int(in.NewStatus))
	}
	if err := uc.move(ctx, in.TaskID, in.NewStatus, in.NewOrder); err != nil {
		return nil, err
	}

	moved, err := uc.tasks.Find(ctx, in.TaskID)
	if err != nil {
		return nil, err
	}
	uc.journal.Record(ctx, domain.EntityTask, moved.ID, domain.ActionMoved,
		fmt.Sprintf("%s #%d", moved.Status, moved.Order))
	return moved, nil
}

// SoftDeleteTask hides the task and closes the gap in its column.
func (uc *UseCase) SoftDeleteTask(ctx context.Context, id int64) error {
	var title string
	err := uc.onBoard(ctx, id, func(tx repository.BoardTx, task *domain.Task) error {
		column, err := tx.Column(ctx, task.Status)
		if err != nil {
			return err
		}
		now := uc.now()
		task.MarkDeleted(now)
		if err := tx.Update(ctx, task); err != nil {
			return err
		}
		title = task.Title
		return tx.Apply(ctx, board.Remove(*task, column), now)
	})
	if err != nil {
		return err
	}

	uc.journal.Record(ctx, domain.EntityTask, id, domain.ActionDeleted, title)
	return nil
}

// CompactBoard renumbers every column whose orders drifted from 0..n-1 and
// reports how many columns it rewrote.
func (uc *UseCase) CompactBoard(ctx context.Context) (int, error) {
	fixed := 0
	for _, status := range domain.TaskStatuses() {
		unlock, err := uc.locker.Lock(ctx, status)
		if err != nil {
			return fixed, err
		}
		var placements []domain.Placement
		err = uc.tasks.Board(ctx, func(tx repository.BoardTx) error {
			if err := tx.LockColumns(ctx, status); err != nil {
				return err
			}
			column, err := tx.Column(ctx, status)
			if err != nil {
				return err
			}
			placements = board.Compact(column)
			return tx.Apply(ctx, placements, uc.now())
		})
		unlock()
		if err != nil {
			return fixed, err
		}
		if len(placements) > 0 {
			fixed++
			uc.logger.Info("compacted board column", zap.Stringer("status", status), zap.Int("placements", len(placements)))
		}
	}
	return fixed, nil
}

func (uc *UseCase) TaskStatuses() []domain.EnumOption   { return domain.TaskStatusOptions() }
func (uc *UseCase) TaskPriorities() []domain.EnumOption { return domain.TaskPriorityOptions() }

func (uc *UseCase) move(ctx context.Context, id int64, newStatus domain.TaskStatus, newOrder int) error {
	return uc.onBoard(ctx, id, func(tx repository.BoardTx, task *domain.Task) error {
		return uc.place(ctx, tx, task, newStatus, newOrder)
	}, newStatus)
}

// place plans and applies a move inside a transaction that already holds the
// locks of both columns.
func (uc *UseCase) place(ctx context.Context, tx repository.BoardTx, task *domain.Task, newStatus domain.TaskStatus, newOrder int) error {
	source, err := tx.Column(ctx, task.Status)
	if err != nil {
		return err
	}
	destination := source
	if newStatus != task.Status {
		if destination, err = tx.Column(ctx, newStatus); err != nil {
			return err
		}
	}
	return tx.Apply(ctx, board.Plan(*task, source, destination, newStatus, newOrder), uc.now())
}

// onBoard locks the task's column plus extra, re-reads the task inside the
// transaction and starts over when a concurrent move relocated it first.
func (uc *UseCase) onBoard(ctx context.Context, id int64, fn func(tx repository.BoardTx, task *domain.Task) error, extra ...domain.TaskStatus) error {
	for attempt := 1; ; attempt++ {
		current, err := uc.tasks.Find(ctx, id)
		if err != nil {
			return err
		}
		columns := append([]domain.TaskStatus{current.Status}, extra...)

		unlock, err := uc.locker.Lock(ctx, columns...)
		if err != nil {
			return err
		}
		stale := false
		err = uc.tasks.Board(ctx, func(tx repository.BoardTx) error {
			if err := tx.LockColumns(ctx, columns...); err != nil {
				return err
			}
			task, err := tx.Task(ctx, id)
			if err != nil {
				return err
			}
			if task.Status != current.Status {
				stale = true
				return nil
			}
			return fn(tx, task)
		})
		unlock()

		if err != nil || !stale {
			return err
		}
		if attempt >= maxBoardAttempts {
			return ErrBoardContention
		}
		uc.logger.Debug("task moved while waiting for its column, retrying", zap.Int64("id", id), zap.Int("attempt", attempt))
	}
}

func (uc *UseCase) ensureLead(ctx context.Context, leadID *int64) error {
	if leadID == nil {
		return nil
	}
	exists, err := uc.leads.Exists(ctx, *leadID)
	if err != nil {
		return err
	}
	if !exists {
		return domain.Invalidf("lead %d does not exist", *leadID)
	}
	return nil
}

func validateEnums(status domain.TaskStatus, priority domain.TaskPriority) error {
	if !status.Valid() {
		return domain.Invalidf("invalid task status %d", int(status))
	}
	if !priority.Valid() {
		return domain.Invalidf("invalid task priority %d", int(priority))
	}
	return nil
}

func trimOptional(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	return &trimmed
}
