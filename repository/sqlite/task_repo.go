package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/fastygo/leadboard/domain"
	"github.com/fastygo/leadboard/internal/listing"
	"github.com/fastygo/leadboard/repository"
)

const taskSelect = `
	SELECT t.id, t.title, t.description, t.due_date, t.priority, t.status, t.lead_id,
		t.sort_order, t.created_at, t.last_modified_at, t.is_deleted,
		COALESCE(l.first_name || ' ' || l.last_name, '')
	FROM tasks t
	LEFT JOIN leads l ON l.id = t.lead_id AND l.is_deleted = FALSE`

type taskRepository struct {
	db *sql.DB
}

// NewTaskRepository returns a SQLite-backed implementation of TaskRepository.
func NewTaskRepository(db *sql.DB) repository.TaskRepository {
	return &taskRepository{db: db}
}

func (r *taskRepository) Find(ctx context.Context, id int64) (*domain.Task, error) {
	return findTask(ctx, r.db, id)
}

func (r *taskRepository) List(ctx context.Context, q listing.TaskQuery) ([]domain.Task, error) {
	where, args := q.Where()
	return queryTasks(ctx, r.db, taskSelect+` WHERE `+where+` ORDER BY `+q.OrderBy(), args...)
}

func (r *taskRepository) Update(ctx context.Context, task *domain.Task) error {
	return updateTask(ctx, r.db, task)
}

// Board runs fn in a transaction. The pool holds a single connection, so the
// transaction also excludes every other writer until it ends.
func (r *taskRepository) Board(ctx context.Context, fn func(tx repository.BoardTx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Unavailable("begin board transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(&boardTx{tx: tx}); err != nil {
		return domain.Unavailable("board transaction", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.Unavailable("commit board transaction", err)
	}
	return nil
}

type boardTx struct {
	tx *sql.Tx
}

func (b *boardTx) LockColumns(context.Context, ...domain.TaskStatus) error {
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
	task.CreatedAt = createdAt(task.CreatedAt)

	const query = `
	INSERT INTO tasks (title, description, due_date, priority, status, lead_id, sort_order, created_at, is_deleted)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	res, err := b.tx.ExecContext(ctx, query,
		task.Title,
		task.Description,
		nullableTime(task.DueDate),
		task.Priority,
		task.Status,
		task.LeadID,
		task.Order,
		task.CreatedAt,
		task.IsDeleted,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.Invalidf("lead %d does not exist", derefID(task.LeadID))
		}
		return domain.Unavailable("insert task", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Unavailable("insert task", err)
	}
	task.ID = id
	return nil
}

func (b *boardTx) Update(ctx context.Context, task *domain.Task) error {
	return updateTask(ctx, b.tx, task)
}

func (b *boardTx) Apply(ctx context.Context, placements []domain.Placement, at time.Time) error {
	if len(placements) == 0 {
		return nil
	}
	stmt, err := b.tx.PrepareContext(ctx, `UPDATE tasks SET status = ?, sort_order = ?, last_modified_at = ? WHERE id = ?`)
	if err != nil {
		return domain.Unavailable("prepare placements", err)
	}
	defer stmt.Close()

	for _, p := range placements {
		if _, err := stmt.ExecContext(ctx, p.Status, p.Order, at.UTC(), p.TaskID); err != nil {
			return domain.Unavailable("apply placements", err)
		}
	}
	return nil
}

func findTask(ctx context.Context, q querier, id int64) (*domain.Task, error) {
	where := listing.And(listing.Predicate{SQL: "t.id = ?", Args: []any{id}}, listing.NotDeleted("t"))
	task, err := scanTask(q.QueryRowContext(ctx, taskSelect+` WHERE `+where.SQL, where.Args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, domain.Unavailable("find task", err)
	}
	return task, nil
}

func queryTasks(ctx context.Context, q querier, query string, args ...any) ([]domain.Task, error) {
	rows, err := q.QueryContext(ctx, query, args...)
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
	SET title = ?,
		description = ?,
		due_date = ?,
		priority = ?,
		lead_id = ?,
		last_modified_at = ?,
		is_deleted = ?
	WHERE id = ? AND is_deleted = FALSE
	`
	res, err := q.ExecContext(ctx, query,
		task.Title,
		task.Description,
		nullableTime(task.DueDate),
		task.Priority,
		task.LeadID,
		nullableTime(task.LastModifiedAt),
		task.IsDeleted,
		task.ID,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.Invalidf("lead %d does not exist", derefID(task.LeadID))
		}
		return domain.Unavailable("update task", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var (
		task     domain.Task
		due      sql.NullTime
		modified sql.NullTime
	)
	if err := row.Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&due,
		&task.Priority,
		&task.Status,
		&task.LeadID,
		&task.Order,
		&task.CreatedAt,
		&modified,
		&task.IsDeleted,
		&task.LeadName,
	); err != nil {
		return nil, err
	}
	task.CreatedAt = task.CreatedAt.UTC()
	task.DueDate = timePtr(due)
	task.LastModifiedAt = timePtr(modified)
	return &task, nil
}

func derefID(id *int64) int64 {
	if id == nil {
		return 0
	}
	return *id
}
