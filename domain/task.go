package domain

import "time"

// Task is a follow-up work item shown as a card on the kanban board.
type Task struct {
	Audit
	Title       string       `json:"title"`
	Description *string      `json:"description,omitempty"`
	DueDate     *time.Time   `json:"dueDate,omitempty"`
	Priority    TaskPriority `json:"priority"`
	Status      TaskStatus   `json:"status"`
	LeadID      *int64       `json:"leadId,omitempty"`
	Order       int          `json:"order"`

	// LeadName is display-only and left empty when the lead is gone or soft-deleted.
	LeadName string `json:"leadName,omitempty"`
}

// IsCompleted mirrors the boolean the lead detail view renders.
func (t *Task) IsCompleted() bool {
	return t != nil && t.Status == TaskStatusCompleted
}

// Placement is the (status, order) a task must be persisted with after a board change.
type Placement struct {
	TaskID int64
	Status TaskStatus
	Order  int
}

// TaskPatch holds the fields of a partial task update; nil means "keep".
type TaskPatch struct {
	Title       *string
	Description *string
	DueDate     *time.Time
	Priority    *TaskPriority
	Status      *TaskStatus
	LeadID      *int64
	ClearLead   bool
	Order       *int
}

// Apply overwrites the non-positional fields. Status and order are left to the
// board so column numbering stays contiguous.
func (p TaskPatch) Apply(t *Task) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		v := *p.Description
		t.Description = &v
	}
	if p.DueDate != nil {
		v := *p.DueDate
		t.DueDate = &v
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.ClearLead {
		t.LeadID = nil
	} else if p.LeadID != nil {
		v := *p.LeadID
		t.LeadID = &v
	}
}

// Repositions reports whether the patch asks for a board move.
func (p TaskPatch) Repositions(t *Task) bool {
	if p.Status != nil && *p.Status != t.Status {
		return true
	}
	return p.Order != nil && *p.Order != t.Order
}
