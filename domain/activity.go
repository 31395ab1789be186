package domain

import "time"

const (
	EntityLead = "lead"
	EntityTask = "task"

	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
	ActionMoved   = "moved"
)

// ActivityEntry is one line of the append-only change journal.
type ActivityEntry struct {
	ID        string    `json:"id"`
	Entity    string    `json:"entity"`
	EntityID  int64     `json:"entityId"`
	Action    string    `json:"action"`
	Details   string    `json:"details,omitempty"`
	Actor     string    `json:"actor,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
