package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// LeadSource records how a lead reached the company.
type LeadSource int

const (
	LeadSourceWebsite LeadSource = iota
	LeadSourceReferral
	LeadSourceSocialMedia
	LeadSourceEmail
	LeadSourceOther
)

// LeadStatus is the sales-funnel stage of a lead.
type LeadStatus int

const (
	LeadStatusNew LeadStatus = iota
	LeadStatusContacted
	LeadStatusQualified
	LeadStatusUnqualified
	LeadStatusCustomer
)

// TaskStatus is the kanban column a task belongs to.
type TaskStatus int

const (
	TaskStatusPending TaskStatus = iota
	TaskStatusInProgress
	TaskStatusCompleted
	TaskStatusDeferred
	TaskStatusCancelled
)

// TaskPriority ranks follow-up urgency.
type TaskPriority int

const (
	TaskPriorityLow TaskPriority = iota
	TaskPriorityMedium
	TaskPriorityHigh
	TaskPriorityUrgent
)

var (
	leadSourceNames   = []string{"Website", "Referral", "SocialMedia", "Email", "Other"}
	leadStatusNames   = []string{"New", "Contacted", "Qualified", "Unqualified", "Customer"}
	taskStatusNames   = []string{"Pending", "InProgress", "Completed", "Deferred", "Cancelled"}
	taskPriorityNames = []string{"Low", "Medium", "High", "Urgent"}
)

// EnumOption is the catalogue shape served to clients building select boxes.
type EnumOption struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func (s LeadSource) String() string   { return enumName(leadSourceNames, int(s)) }
func (s LeadStatus) String() string   { return enumName(leadStatusNames, int(s)) }
func (s TaskStatus) String() string   { return enumName(taskStatusNames, int(s)) }
func (p TaskPriority) String() string { return enumName(taskPriorityNames, int(p)) }

func (s LeadSource) Valid() bool   { return validEnum(leadSourceNames, int(s)) }
func (s LeadStatus) Valid() bool   { return validEnum(leadStatusNames, int(s)) }
func (s TaskStatus) Valid() bool   { return validEnum(taskStatusNames, int(s)) }
func (p TaskPriority) Valid() bool { return validEnum(taskPriorityNames, int(p)) }

// ParseLeadSource accepts a name (any case, "_"/"-"/" " ignored) or an ordinal.
func ParseLeadSource(v string) (LeadSource, error) {
	i, err := parseEnum(leadSourceNames, "lead source", v)
	return LeadSource(i), err
}

func ParseLeadStatus(v string) (LeadStatus, error) {
	i, err := parseEnum(leadStatusNames, "lead status", v)
	return LeadStatus(i), err
}

func ParseTaskStatus(v string) (TaskStatus, error) {
	i, err := parseEnum(taskStatusNames, "task status", v)
	return TaskStatus(i), err
}

func ParseTaskPriority(v string) (TaskPriority, error) {
	i, err := parseEnum(taskPriorityNames, "task priority", v)
	return TaskPriority(i), err
}

// TaskStatuses lists every board column in display order.
func TaskStatuses() []TaskStatus {
	return []TaskStatus{
		TaskStatusPending,
		TaskStatusInProgress,
		TaskStatusCompleted,
		TaskStatusDeferred,
		TaskStatusCancelled,
	}
}

func LeadSourceOptions() []EnumOption   { return enumOptions(leadSourceNames) }
func LeadStatusOptions() []EnumOption   { return enumOptions(leadStatusNames) }
func TaskStatusOptions() []EnumOption   { return enumOptions(taskStatusNames) }
func TaskPriorityOptions() []EnumOption { return enumOptions(taskPriorityNames) }

func (s LeadSource) MarshalJSON() ([]byte, error) {
	return marshalEnum(leadSourceNames, "lead source", int(s))
}

func (s *LeadSource) UnmarshalJSON(data []byte) error {
	return unmarshalEnum(data, leadSourceNames, "lead source", func(i int) { *s = LeadSource(i) })
}

func (s LeadStatus) MarshalJSON() ([]byte, error) {
	return marshalEnum(leadStatusNames, "lead status", int(s))
}

func (s *LeadStatus) UnmarshalJSON(data []byte) error {
	return unmarshalEnum(data, leadStatusNames, "lead status", func(i int) { *s = LeadStatus(i) })
}

func (s TaskStatus) MarshalJSON() ([]byte, error) {
	return marshalEnum(taskStatusNames, "task status", int(s))
}

func (s *TaskStatus) UnmarshalJSON(data []byte) error {
	return unmarshalEnum(data, taskStatusNames, "task status", func(i int) { *s = TaskStatus(i) })
}

func (p TaskPriority) MarshalJSON() ([]byte, error) {
	return marshalEnum(taskPriorityNames, "task priority", int(p))
}

func (p *TaskPriority) UnmarshalJSON(data []byte) error {
	return unmarshalEnum(data, taskPriorityNames, "task priority", func(i int) { *p = TaskPriority(i) })
}

// Enums are persisted as their ordinal so ORDER BY follows declaration order.

func (s LeadSource) Value() (driver.Value, error)   { return int64(s), nil }
func (s LeadStatus) Value() (driver.Value, error)   { return int64(s), nil }
func (s TaskStatus) Value() (driver.Value, error)   { return int64(s), nil }
func (p TaskPriority) Value() (driver.Value, error) { return int64(p), nil }

func (s *LeadSource) Scan(src any) error {
	return scanEnum(src, leadSourceNames, "lead source", func(i int) { *s = LeadSource(i) })
}

func (s *LeadStatus) Scan(src any) error {
	return scanEnum(src, leadStatusNames, "lead status", func(i int) { *s = LeadStatus(i) })
}

func (s *TaskStatus) Scan(src any) error {
	return scanEnum(src, taskStatusNames, "task status", func(i int) { *s = TaskStatus(i) })
}

func (p *TaskPriority) Scan(src any) error {
	return scanEnum(src, taskPriorityNames, "task priority", func(i int) { *p = TaskPriority(i) })
}

func enumName(names []string, i int) string {
	if !validEnum(names, i) {
		return fmt.Sprintf("Unknown(%d)", i)
	}
	return names[i]
}

func validEnum(names []string, i int) bool {
	return i >= 0 && i < len(names)
}

func enumOptions(names []string) []EnumOption {
	out := make([]EnumOption, len(names))
	for i, name := range names {
		out[i] = EnumOption{ID: i, Name: name}
	}
	return out
}

func normalizeEnumName(v string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '_', '-', ' ':
			return -1
		}
		return r
	}, strings.ToLower(strings.TrimSpace(v)))
}

func parseEnum(names []string, kind, v string) (int, error) {
	if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
		if validEnum(names, i) {
			return i, nil
		}
		return 0, NewError(ErrCodeInvalid, fmt.Sprintf("invalid %s %q", kind, v))
	}
	wanted := normalizeEnumName(v)
	for i, name := range names {
		if strings.ToLower(name) == wanted {
			return i, nil
		}
	}
	return 0, NewError(ErrCodeInvalid, fmt.Sprintf("invalid %s %q", kind, v))
}

func marshalEnum(names []string, kind string, i int) ([]byte, error) {
	if !validEnum(names, i) {
		return nil, fmt.Errorf("cannot marshal %s %d", kind, i)
	}
	return json.Marshal(names[i])
}

func unmarshalEnum(data []byte, names []string, kind string, set func(int)) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		i, err := parseEnum(names, kind, name)
		if err != nil {
			return err
		}
		set(i)
		return nil
	}
	i, err := strconv.Atoi(raw)
	if err != nil || !validEnum(names, i) {
		return NewError(ErrCodeInvalid, fmt.Sprintf("invalid %s %s", kind, raw))
	}
	set(i)
	return nil
}

func scanEnum(src any, names []string, kind string, set func(int)) error {
	var i int
	switch v := src.(type) {
	case int64:
		i = int(v)
	case int32:
		i = int(v)
	case int16:
		i = int(v)
	case int:
		i = v
	case []byte:
		parsed, err := parseEnum(names, kind, string(v))
		if err != nil {
			return err
		}
		i = parsed
	case string:
		parsed, err := parseEnum(names, kind, v)
		if err != nil {
			return err
		}
		i = parsed
	default:
		return fmt.Errorf("cannot scan %T into %s", src, kind)
	}
	if !validEnum(names, i) {
		return fmt.Errorf("stored %s %d out of range", kind, i)
	}
	set(i)
	return nil
}
