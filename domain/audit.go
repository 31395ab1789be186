package domain

import "time"

// Audit carries the bookkeeping fields shared by every persisted CRM record.
type Audit struct {
	ID             int64      `json:"id"`
	CreatedAt      time.Time  `json:"createdAt"`
	LastModifiedAt *time.Time `json:"lastModifiedAt,omitempty"`
	IsDeleted      bool       `json:"-"`
}

// Touch stamps the record as modified. A record without a creation time is
// treated as new and only gets CreatedAt.
func (a *Audit) Touch(now time.Time) {
	if a == nil {
		return
	}
	now = now.UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
		return
	}
	a.LastModifiedAt = &now
}

// MarkDeleted flips the soft-delete flag and records the modification time.
func (a *Audit) MarkDeleted(now time.Time) {
	if a == nil {
		return
	}
	a.IsDeleted = true
	a.Touch(now)
}

// Active reports whether the record is visible through the normal query path.
func (a *Audit) Active() bool {
	return a != nil && !a.IsDeleted
}
