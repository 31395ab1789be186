package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fastygo/leadboard/domain"
	"github.com/fastygo/leadboard/internal/board"
	"github.com/fastygo/leadboard/internal/listing"
	"github.com/fastygo/leadboard/repository"
)

// boardLockSpace is the first key of the two-key advisory lock; the second
// is the column's status ordinal.
const boardLockSpace int32 = 7341

const taskSelect = `
	SELECT t.id, t.title, t.description, t.due_date, t.priority, t.status, t.lead_id,
		t.sort_order, t.created_at, t.last_modified_at, t.is_deleted,
		COALESCE(l.first_name || ' ' || l.last_name, '')
	FROM tasks t
	LEFT JOIN leads l ON l.id = t.lead_id AND l.is_deleted = FALSE`

type taskRepository struct {
	pool *pgxpool.Pool
}

// NewTaskRepository returns a Postgres-backed implementation of TaskRepository.
func NewTaskRepository(pool *pgxpool.Pool) repository.TaskRepository {
	return &taskRepository{pool: pool}
}

func (r *taskRepository) Find(ctx context.Context, id int64) (*domain.Task, error) {
	return findTask(ctx, r.pool, id)
}

func (r *taskRepository) List(ctx context.Context, q listing.TaskQuery) ([]domain.Task, error) {
	where, args := q.Where()
	return queryTasks(ctx, r.pool, taskSelect+` WHERE `+where+` ORDER BY `+q.OrderBy(), args...)
}

func (r *taskRepository) Update(ctx context.Context, task *domain.Task) error {
	return updateTask(ctx, r.pool, task)
}

func (r *taskRepository) Board(ctx context.Context, fn func(tx repository.BoardTx) error) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(&boardTx{tx: tx})
	})
	return domain.Unavailable("board transaction", err)
}

type boardTx struct {
	tx pgx.Tx
}

func (b *boardTx) LockColumns(ctx context.Context, statuses ...domain.TaskStatus) error {
	for _, status := range board.Columns(statuses...) {
		if _, err := b.tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1, $2)`, boardLockSpace, int32(status)); err != nil {
			return domain.Unavailable("lock board column", err)
		}
	}
	return nil
}

func (b *boardTx) Task(ctx context.Context, id int64) (*domain.Task, error) {
	return findTask(ctx, b.tx, id)
}

func (b *boardTx) Column(ctx context.Context, status domain.TaskStatus) ([]domain.Task, error) {
	q := listing.TaskQuery{Status: &status}
	where, args := q.Where()
	return queryTasks(ctx, b.tx, taskSelect+` WHERE `+where+` ORDER BY `+q.OrderBy(), args...)
}

func (b *boardTx) Insert(ctx context.Context, task *domain.Task) error {
	if task == nil {
		return domain.ErrInvalidPayload
	}

	const query = `
	INSERT INTO tasks (title, description, due_date, priority, status, lead_id, sort_order, created_at, is_deleted)
	VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8, NOW()), $9)
	RETURNING id, created_at
	`
	if err := b.tx.QueryRow(ctx, query,
		task.Title,
		task.Description,
		task.DueDate,
		task.Priority,
		task.Status,
		task.LeadID,
		task.Order,
		nullTime(task.CreatedAt),
		task.IsDeleted,
	).Scan(&task.ID, &task.CreatedAt); err != nil {
		if isForeignKeyViolation(err) {
			return domain.Invalidf("lead %d does not exist", derefID(task.LeadID))
		}
		return domain.Unavailable("insert task", err)
	}
	return nil
}

func (b *boardTx) Update(ctx context.Context, task *domain.Task) error {
	return updateTask(ctx, b.tx, task)
}

// Apply writes every placement in one round trip.
func (b *boardTx) Apply(ctx context.Context, placements []domain.Placement, at time.Time) error {
	if len(placements) == 0 {
		return nil
	}

	const query = `UPDATE tasks SET status = $2, sort_order = $3, last_modified_at = $4 WHERE id = $1`
	batch := &pgx.Batch{}
	for _, p := range placements {
		batch.Queue(query, p.TaskID, p.Status, p.Order, at.UTC())
	}

	results := b.tx.SendBatch(ctx, batch)
	defer results.Close()
	for range placements {
		if _, err := results.Exec(); err != nil {
			return domain.Unavailable("apply placements", err)
		}
	}
	return nil
}

func findTask(ctx context.Context, q querier, id int64) (*domain.Task, error) {
	where := listing.And(listing.Predicate{SQL: "t.id = ?", Args: []any{id}}, listing.NotDeleted("t"))
	task, err := scanTask(q.QueryRow(ctx, rebind(taskSelect+` WHERE `+where.SQL), where.Args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, domain.Unavailable("find task", err)
	}
	return task, nil
}

func queryTasks(ctx context.Context, q querier, query string, args ...any) ([]domain.Task, error) {
	rows, err := q.Query(ctx, rebind(query), args...)
	if err != nil {
		return nil, domain.Unavailable("list tasks", err)
	}
	defer rows.Close()

	tasks := []domain.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, domain.Unavailable("scan task", err)
		}
		tasks = append(tasks, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Unavailable("list tasks", err)
	}
	return tasks, nil
}

func updateTask(ctx context.Context, q querier, task *domain.Task) error {
	if task == nil {
		return domain.ErrInvalidPayload
	}

	const query = `
	UPDATE tasks
	SET title = $2,
		description = $3,
		due_date = $4,
		priority = $5,
		lead_id = $6,
		last_modified_at = $7,
		is_deleted = $8
	WHERE id = $1 AND is_deleted = FALSE
	`
	tag, err := q.Exec(ctx, query,
		task.ID,
		task.Title,
		task.Description,
		task.DueDate,
		task.Priority,
		task.LeadID,
		task.LastModifiedAt,
		task.IsDeleted,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.Invalidf("lead %d does not exist", derefID(task.LeadID))
		}
		return domain.Unavailable("update task", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var task domain.Task
	if err := row.Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&task.DueDate,
		&task.Priority,
		&task.Status,
		&task.LeadID,
		&task.Order,
		&task.CreatedAt,
		&task.LastModifiedAt,
		&task.IsDeleted,
		&task.LeadName,
	); err != nil {
		return nil, err
	}
	return &task, nil
}

func derefID(id *int64) int64 {
	if id == nil {
		return 0
	}
	return *id
}
