package listing

import (
	"strconv"
	"strings"
)

// Dialect selects the bind placeholder syntax of a SQL backend.
type Dialect int

const (
	Postgres Dialect = iota
	SQLite
)

// Predicate is one boolean SQL term with "?" markers and its arguments.
type Predicate struct {
	SQL  string
	Args []any
}

// NotDeleted excludes soft-deleted rows. table may be empty or an alias.
func NotDeleted(table string) Predicate {
	return Predicate{SQL: qualify(table, "is_deleted") + " = FALSE"}
}

// LeadSearch matches term as a case-insensitive substring of first name, last
// name, email or company. LIKE wildcards in term are matched literally.
func LeadSearch(term string) Predicate {
	pattern := "%" + EscapeLike(strings.ToLower(term)) + "%"
	columns := []string{"first_name", "last_name", "email", "COALESCE(company, '')"}
	parts := make([]string, len(columns))
	args := make([]any, len(columns))
	for i, col := range columns {
		parts[i] = "LOWER(" + col + `) LIKE ? ESCAPE '\'`
		args[i] = pattern
	}
	return Predicate{SQL: "(" + strings.Join(parts, " OR ") + ")", Args: args}
}

// And joins predicates; no predicates renders as an always-true term.
func And(preds ...Predicate) Predicate {
	if len(preds) == 0 {
		return Predicate{SQL: "1 = 1"}
	}
	parts := make([]string, 0, len(preds))
	var args []any
	for _, p := range preds {
		parts = append(parts, p.SQL)
		args = append(args, p.Args...)
	}
	return Predicate{SQL: strings.Join(parts, " AND "), Args: args}
}

// EscapeLike escapes the LIKE metacharacters with a backslash.
func EscapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// Rebind rewrites "?" markers into the dialect's placeholders.
func Rebind(d Dialect, query string) string {
	if d != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func qualify(table, column string) string {
	if table == "" {
		return column
	}
	return table + "." + column
}
