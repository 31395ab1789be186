// Package listing turns list requests into explicit SQL predicates, orderings
// and page windows. Every read path composes NotDeleted on purpose so the
// soft-delete rule is visible at the call site.
package listing

import (
	"strings"

	"github.com/fastygo/leadboard/domain"
)

// SortDirection is the requested ordering direction.
type SortDirection int

const (
	Ascending SortDirection = iota
	Descending
)

// ParseDirection accepts "asc"/"desc" in any case; anything else is ascending.
func ParseDirection(v string) SortDirection {
	if strings.EqualFold(strings.TrimSpace(v), "desc") {
		return Descending
	}
	return Ascending
}

func (d SortDirection) String() string {
	if d == Descending {
		return "desc"
	}
	return "asc"
}

func (d SortDirection) sql() string {
	switch d {
	case Descending:
		return "DESC"
	case Ascending:
		return "ASC"
	}
	return "ASC"
}

// LeadSortColumn is the closed set of lead attributes a listing can sort by.
// Requests never reach SQL as text; they are mapped onto this set first.
type LeadSortColumn int

const (
	// SortDefault orders by last name, then first name.
	SortDefault LeadSortColumn = iota
	SortFirstName
	SortLastName
	SortEmail
	SortCompany
	SortCreatedAt
	SortStatus
	SortSource
)

var leadSortColumns = map[string]LeadSortColumn{
	"firstname": SortFirstName,
	"lastname":  SortLastName,
	"email":     SortEmail,
	"company":   SortCompany,
	"createdat": SortCreatedAt,
	"status":    SortStatus,
	"source":    SortSource,
}

// ParseLeadSortColumn maps "lastName", "LastName", "last_name" and friends to a
// column. Unknown input falls back to SortDefault instead of failing.
func ParseLeadSortColumn(v string) LeadSortColumn {
	key := strings.Map(func(r rune) rune {
		switch r {
		case '_', '-', ' ':
			return -1
		}
		return r
	}, strings.ToLower(strings.TrimSpace(v)))
	if col, ok := leadSortColumns[key]; ok {
		return col
	}
	return SortDefault
}

func (c LeadSortColumn) String() string {
	switch c {
	case SortFirstName:
		return "firstName"
	case SortLastName:
		return "lastName"
	case SortEmail:
		return "email"
	case SortCompany:
		return "company"
	case SortCreatedAt:
		return "createdAt"
	case SortStatus:
		return "status"
	case SortSource:
		return "source"
	case SortDefault:
		return "default"
	}
	return "default"
}

// keys returns the SQL sort expressions for the column, most significant first.
func (c LeadSortColumn) keys() []string {
	switch c {
	case SortFirstName:
		return []string{"LOWER(first_name)"}
	case SortLastName:
		return []string{"LOWER(last_name)"}
	case SortEmail:
		return []string{"LOWER(email)"}
	case SortCompany:
		return []string{"LOWER(COALESCE(company, ''))"}
	case SortCreatedAt:
		return []string{"created_at"}
	case SortStatus:
		return []string{"status"}
	case SortSource:
		return []string{"source"}
	case SortDefault:
		return []string{"LOWER(last_name)", "LOWER(first_name)"}
	}
	return []string{"LOWER(last_name)", "LOWER(first_name)"}
}

// LeadQuery is a normalized lead listing request.
type LeadQuery struct {
	search         string
	column         LeadSortColumn
	direction      SortDirection
	includeDeleted bool
}

// NewLeadQuery normalizes raw request values. It never fails.
func NewLeadQuery(search, sortColumn, sortOrder string) LeadQuery {
	return LeadQuery{
		search:    strings.TrimSpace(search),
		column:    ParseLeadSortColumn(sortColumn),
		direction: ParseDirection(sortOrder),
	}
}

func (q LeadQuery) Search() string           { return q.search }
func (q LeadQuery) Column() LeadSortColumn   { return q.column }
func (q LeadQuery) Direction() SortDirection { return q.direction }
func (q LeadQuery) IncludesDeleted() bool    { return q.includeDeleted }

// IncludingDeleted drops the soft-delete predicate. Internal callers only.
func (q LeadQuery) IncludingDeleted() LeadQuery {
	q.includeDeleted = true
	return q
}

// Predicates lists the filter terms in the order they are rendered.
func (q LeadQuery) Predicates() []Predicate {
	var preds []Predicate
	if !q.includeDeleted {
		preds = append(preds, NotDeleted(""))
	}
	if q.search != "" {
		preds = append(preds, LeadSearch(q.search))
	}
	return preds
}

// Where renders the filter with "?" markers; see Rebind.
func (q LeadQuery) Where() (string, []any) {
	p := And(q.Predicates()...)
	return p.SQL, p.Args
}

// OrderBy renders the ORDER BY list. The id key keeps equal rows deterministic.
func (q LeadQuery) OrderBy() string {
	keys := q.column.keys()
	parts := make([]string, 0, len(keys)+1)
	for _, key := range keys {
		parts = append(parts, key+" "+q.direction.sql())
	}
	parts = append(parts, "id ASC")
	return strings.Join(parts, ", ")
}

// TaskQuery filters the board listing.
type TaskQuery struct {
	Status *domain.TaskStatus
	LeadID *int64
}

// Where renders the task filter against the "t" alias.
func (q TaskQuery) Where() (string, []any) {
	preds := []Predicate{NotDeleted("t")}
	if q.Status != nil {
		preds = append(preds, Predicate{SQL: "t.status = ?", Args: []any{int64(*q.Status)}})
	}
	if q.LeadID != nil {
		preds = append(preds, Predicate{SQL: "t.lead_id = ?", Args: []any{*q.LeadID}})
	}
	p := And(preds...)
	return p.SQL, p.Args
}

// OrderBy renders the board ordering: column, position, id.
func (TaskQuery) OrderBy() string {
	return "t.status ASC, t.sort_order ASC, t.id ASC"
}
