package task

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fastygo/leadboard/domain"
	sqliteinfra "github.com/fastygo/leadboard/internal/infrastructure/sqlite"
	"github.com/fastygo/leadboard/internal/listing"
	"github.com/fastygo/leadboard/repository"
	"github.com/fastygo/leadboard/repository/sqlite"
	"github.com/fastygo/leadboard/usecase"
)

type recorderStub struct {
	mu      sync.Mutex
	entries []domain.ActivityEntry
}

func (r *recorderStub) Record(_ context.Context, entry domain.ActivityEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

type testEnv struct {
	uc       *UseCase
	tasks    repository.TaskRepository
	leads    repository.LeadRepository
	recorder *recorderStub
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := sqliteinfra.Open(context.Background(), ":memory:", nil)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	env := &testEnv{
		tasks:    sqlite.NewTaskRepository(db),
		leads:    sqlite.NewLeadRepository(db),
		recorder: &recorderStub{},
	}
	env.uc = New(env.tasks, env.leads, usecase.NewJournal(env.recorder, nil), nil)
	return env
}

func statusPtr(s domain.TaskStatus) *domain.TaskStatus { return &s }
func intPtr(i int) *int                                { return &i }

func (e *testEnv) create(t *testing.T, title string, status domain.TaskStatus) *domain.Task {
	t.Helper()
	task, err := e.uc.CreateTask(context.Background(), CreateInput{Title: title, Status: statusPtr(status)})
	if err != nil {
		t.Fatalf("create %s: %v", title, err)
	}
	return task
}

func (e *testEnv) column(t *testing.T, status domain.TaskStatus) string {
	t.Helper()
	tasks, err := e.uc.ListTasks(context.Background(), listing.TaskQuery{Status: &status})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	parts := make([]string, 0, len(tasks))
	for _, task := range tasks {
		parts = append(parts, fmt.Sprintf("%s(%d)", task.Title, task.Order))
	}
	return strings.Join(parts, ",")
}

func (e *testEnv) assertContiguous(t *testing.T) {
	t.Helper()
	for _, status := range domain.TaskStatuses() {
		tasks, err := e.uc.ListTasks(context.Background(), listing.TaskQuery{Status: &status})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		for i, task := range tasks {
			if task.Order != i {
				t.Fatalf("column %s not contiguous: %s", status, e.column(t, status))
			}
		}
	}
}

func TestMoveTaskAcrossColumns(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.create(t, "A", domain.TaskStatusPending)
	env.create(t, "B", domain.TaskStatusPending)
	c := env.create(t, "C", domain.TaskStatusPending)
	env.create(t, "D", domain.TaskStatusInProgress)

	moved, err := env.uc.MoveTask(ctx, MoveInput{TaskID: c.ID, NewStatus: domain.TaskStatusInProgress, NewOrder: 0})
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if moved.Status != domain.TaskStatusInProgress || moved.Order != 0 {
		t.Fatalf("unexpected moved state %+v", moved)
	}
	if got := env.column(t, domain.TaskStatusPending); got != "A(0),B(1)" {
		t.Fatalf("pending = %s", got)
	}
	if got := env.column(t, domain.TaskStatusInProgress); got != "C(0),D(1)" {
		t.Fatalf("in progress = %s", got)
	}

	last := env.recorder.entries[len(env.recorder.entries)-1]
	if last.Action != domain.ActionMoved || last.EntityID != c.ID {
		t.Fatalf("move not journaled: %+v", last)
	}
}

func TestMoveTaskNoopAndRepeat(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.create(t, "A", domain.TaskStatusPending)
	b := env.create(t, "B", domain.TaskStatusPending)
	env.create(t, "C", domain.TaskStatusPending)

	if _, err := env.uc.MoveTask(ctx, MoveInput{TaskID: b.ID, NewStatus: domain.TaskStatusPending, NewOrder: 1}); err != nil {
		t.Fatalf("noop move: %v", err)
	}
	if got := env.column(t, domain.TaskStatusPending); got != "A(0),B(1),C(2)" {
		t.Fatalf("noop changed column: %s", got)
	}

	for i := 0; i < 2; i++ {
		if _, err := env.uc.MoveTask(ctx, MoveInput{TaskID: b.ID, NewStatus: domain.TaskStatusDeferred, NewOrder: 3}); err != nil {
			t.Fatalf("move %d: %v", i, err)
		}
		if got := env.column(t, domain.TaskStatusPending); got != "A(0),C(1)" {
			t.Fatalf("pending after move %d = %s", i, got)
		}
		if got := env.column(t, domain.TaskStatusDeferred); got != "B(0)" {
			t.Fatalf("deferred after move %d = %s", i, got)
		}
	}
}

func TestMoveTaskErrors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.create(t, "A", domain.TaskStatusPending)

	if _, err := env.uc.MoveTask(ctx, MoveInput{TaskID: a.ID, NewStatus: domain.TaskStatus(9)}); !domain.IsDomainError(err, domain.ErrCodeInvalid) {
		t.Fatalf("expected invalid status error, got %v", err)
	}
	if _, err := env.uc.MoveTask(ctx, MoveInput{TaskID: 999, NewStatus: domain.TaskStatusPending}); err != domain.ErrTaskNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := env.uc.SoftDeleteTask(ctx, a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := env.uc.MoveTask(ctx, MoveInput{TaskID: a.ID, NewStatus: domain.TaskStatusCompleted}); err != domain.ErrTaskNotFound {
		t.Fatalf("expected not found for deleted task, got %v", err)
	}
}

func TestCreateTaskAtPosition(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.create(t, "A", domain.TaskStatusPending)
	env.create(t, "B", domain.TaskStatusPending)

	created, err := env.uc.CreateTask(ctx, CreateInput{Title: "  New  ", Order: intPtr(1)})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Title != "New" || created.Order != 1 || created.Priority != domain.TaskPriorityMedium {
		t.Fatalf("unexpected task %+v", created)
	}
	if got := env.column(t, domain.TaskStatusPending); got != "A(0),New(1),B(2)" {
		t.Fatalf("pending = %s", got)
	}
}

func TestCreateTaskValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	missing := int64(77)
	cases := []CreateInput{
		{Title: "   "},
		{Title: strings.Repeat("x", 201)},
		{Title: "ok", Status: statusPtr(domain.TaskStatus(-1))},
		{Title: "ok", LeadID: &missing},
	}
	for i, in := range cases {
		if _, err := env.uc.CreateTask(ctx, in); !domain.IsDomainError(err, domain.ErrCodeInvalid) {
			t.Fatalf("case %d: expected invalid, got %v", i, err)
		}
	}
	if tasks, _ := env.uc.ListTasks(ctx, listing.TaskQuery{}); len(tasks) != 0 {
		t.Fatalf("invalid input persisted %d tasks", len(tasks))
	}
}

func TestUpdateTaskPartialAndReposition(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.create(t, "A", domain.TaskStatusPending)
	env.create(t, "B", domain.TaskStatusPending)
	env.create(t, "X", domain.TaskStatusCompleted)

	desc := "call back"
	updated, err := env.uc.UpdateTask(ctx, a.ID, UpdateInput{Description: &desc, Status: statusPtr(domain.TaskStatusCompleted)})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != "A" || updated.Description == nil || *updated.Description != desc {
		t.Fatalf("partial update lost fields: %+v", updated)
	}
	if updated.Status != domain.TaskStatusCompleted || updated.Order != 1 || updated.LastModifiedAt == nil {
		t.Fatalf("status change not applied through the board: %+v", updated)
	}
	if got := env.column(t, domain.TaskStatusPending); got != "B(0)" {
		t.Fatalf("pending = %s", got)
	}
	if got := env.column(t, domain.TaskStatusCompleted); got != "X(0),A(1)" {
		t.Fatalf("completed = %s", got)
	}

	if _, err := env.uc.UpdateTask(ctx, a.ID, UpdateInput{Order: intPtr(0)}); err != nil {
		t.Fatalf("reorder: %v", err)
	}
	if got := env.column(t, domain.TaskStatusCompleted); got != "A(0),X(1)" {
		t.Fatalf("completed = %s", got)
	}
}

func TestSoftDeleteTaskClosesGap(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.create(t, "A", domain.TaskStatusPending)
	env.create(t, "B", domain.TaskStatusPending)
	env.create(t, "C", domain.TaskStatusPending)

	if err := env.uc.SoftDeleteTask(ctx, a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got := env.column(t, domain.TaskStatusPending); got != "B(0),C(1)" {
		t.Fatalf("pending = %s", got)
	}
	if _, err := env.uc.GetTask(ctx, a.ID); err != domain.ErrTaskNotFound {
		t.Fatalf("deleted task still visible: %v", err)
	}
	if err := env.uc.SoftDeleteTask(ctx, a.ID); err != domain.ErrTaskNotFound {
		t.Fatalf("second delete: %v", err)
	}
	d := env.create(t, "D", domain.TaskStatusPending)
	if d.ID <= a.ID {
		t.Fatalf("identifier reused: %d", d.ID)
	}
}

func TestTasksForLead(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	lead := &domain.Lead{FirstName: "Kim", LastName: "Lee", Email: "kim@example.com"}
	lead.Touch(time.Now())
	if err := env.leads.Insert(ctx, lead); err != nil {
		t.Fatalf("insert lead: %v", err)
	}
	if _, err := env.uc.CreateTask(ctx, CreateInput{Title: "Call", LeadID: &lead.ID}); err != nil {
		t.Fatalf("create: %v", err)
	}
	env.create(t, "Unrelated", domain.TaskStatusPending)

	tasks, err := env.uc.ListTasksForLead(ctx, lead.ID)
	if err != nil {
		t.Fatalf("list for lead: %v", err)
	}
	if len(tasks) != 1 || tasks[0].LeadName != "Kim Lee" {
		t.Fatalf("unexpected tasks %+v", tasks)
	}

	lead.MarkDeleted(time.Now())
	if err := env.leads.Update(ctx, lead); err != nil {
		t.Fatalf("delete lead: %v", err)
	}
	if _, err := env.uc.ListTasksForLead(ctx, lead.ID); err != domain.ErrLeadNotFound {
		t.Fatalf("expected lead not found, got %v", err)
	}
	all, err := env.uc.ListTasks(ctx, listing.TaskQuery{})
	if err != nil || len(all) != 2 {
		t.Fatalf("tasks of deleted lead must stay listed: %v %d", err, len(all))
	}
}

func TestConcurrentMovesKeepColumnsContiguous(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	var ids []int64
	for i := 0; i < 8; i++ {
		status := domain.TaskStatusPending
		if i%2 == 1 {
			status = domain.TaskStatusInProgress
		}
		ids = append(ids, env.create(t, fmt.Sprintf("T%d", i), status).ID)
	}

	var wg sync.WaitGroup
	for i := 0; i < 24; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			status := domain.TaskStatusPending
			if i%3 == 0 {
				status = domain.TaskStatusInProgress
			}
			_, err := env.uc.MoveTask(ctx, MoveInput{TaskID: ids[i%len(ids)], NewStatus: status, NewOrder: i % 5})
			if err != nil && err != ErrBoardContention {
				t.Errorf("move %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()
	env.assertContiguous(t)
}

func TestCompactBoardRepairsDrift(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.create(t, "A", domain.TaskStatusPending)
	b := env.create(t, "B", domain.TaskStatusPending)

	err := env.tasks.Board(ctx, func(tx repository.BoardTx) error {
		return tx.Apply(ctx, []domain.Placement{
			{TaskID: a.ID, Status: domain.TaskStatusPending, Order: 4},
			{TaskID: b.ID, Status: domain.TaskStatusPending, Order: 4},
		}, time.Now())
	})
	if err != nil {
		t.Fatalf("seed drift: %v", err)
	}

	fixed, err := env.uc.CompactBoard(ctx)
	if err != nil {
		t.Fatalf("compact: %v", err)
	}
	if fixed != 1 {
		t.Fatalf("fixed = %d", fixed)
	}
	if got := env.column(t, domain.TaskStatusPending); got != "A(0),B(1)" {
		t.Fatalf("pending = %s", got)
	}
	if fixed, _ := env.uc.CompactBoard(ctx); fixed != 0 {
		t.Fatalf("second compaction rewrote %d columns", fixed)
	}
}

// hookedTasks runs afterFind once after a successful Find and can make board
// placements fail.
type hookedTasks struct {
	repository.TaskRepository
	afterFind func()
	failApply bool
}

func (h *hookedTasks) Find(ctx context.Context, id int64) (*domain.Task, error) {
	task, err := h.TaskRepository.Find(ctx, id)
	if fn := h.afterFind; fn != nil && err == nil {
		h.afterFind = nil
		fn()
	}
	return task, err
}

func (h *hookedTasks) Board(ctx context.Context, fn func(tx repository.BoardTx) error) error {
	return h.TaskRepository.Board(ctx, func(tx repository.BoardTx) error {
		return fn(&hookedBoardTx{BoardTx: tx, fail: h.failApply})
	})
}

type hookedBoardTx struct {
	repository.BoardTx
	fail bool
}

func (h *hookedBoardTx) Apply(ctx context.Context, placements []domain.Placement, at time.Time) error {
	if h.fail && len(placements) > 0 {
		return domain.Unavailable("apply placements", errors.New("connection reset"))
	}
	return h.BoardTx.Apply(ctx, placements, at)
}

func TestUpdateTaskLosesToConcurrentDelete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.create(t, "A", domain.TaskStatusPending)
	env.create(t, "B", domain.TaskStatusPending)

	deleter := New(env.tasks, env.leads, usecase.NewJournal(nil, nil), nil)
	env.uc.tasks = &hookedTasks{TaskRepository: env.tasks, afterFind: func() {
		if err := deleter.SoftDeleteTask(ctx, a.ID); err != nil {
			t.Errorf("concurrent delete: %v", err)
		}
	}}

	title := "A2"
	if _, err := env.uc.UpdateTask(ctx, a.ID, UpdateInput{Title: &title}); err != domain.ErrTaskNotFound {
		t.Fatalf("update after delete = %v, want not found", err)
	}
	if got := env.column(t, domain.TaskStatusPending); got != "B(0)" {
		t.Fatalf("pending = %s", got)
	}
	env.assertContiguous(t)
}

func TestUpdateTaskRollsBackFieldsWhenMoveFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.create(t, "A", domain.TaskStatusPending)
	env.create(t, "B", domain.TaskStatusPending)

	env.uc.tasks = &hookedTasks{TaskRepository: env.tasks, failApply: true}
	title := "A2"
	_, err := env.uc.UpdateTask(ctx, a.ID, UpdateInput{Title: &title, Status: statusPtr(domain.TaskStatusCompleted)})
	if !domain.IsDomainError(err, domain.ErrCodeUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}

	stored, err := env.tasks.Find(ctx, a.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if stored.Title != "A" || stored.Status != domain.TaskStatusPending {
		t.Fatalf("partial update committed: %+v", stored)
	}
	env.assertContiguous(t)
}
