// Package board implements the kanban ordering rules: where a card ends up
// after a drag and which siblings have to shift to keep every column numbered
// 0..n-1.
package board

import (
	"sort"

	"github.com/fastygo/leadboard/domain"
)

// Plan computes the placements produced by moving task to position newOrder
// of column newStatus. source is the task's current column and destination the
// target column; for a reorder inside one column pass the same slice twice.
// Columns may arrive in any order, they are sorted by (order, id) first.
//
// Only placements whose (status, order) actually change are returned, so a
// no-op move yields nothing to write.
func Plan(task domain.Task, source, destination []domain.Task, newStatus domain.TaskStatus, newOrder int) []domain.Placement {
	remaining := without(sorted(source), task.ID)

	target := remaining
	if newStatus != task.Status {
		target = without(sorted(destination), task.ID)
	}

	if newOrder < 0 {
		newOrder = 0
	}
	if newOrder > len(target) {
		newOrder = len(target)
	}

	moved := task
	inserted := make([]domain.Task, 0, len(target)+1)
	inserted = append(inserted, target[:newOrder]...)
	inserted = append(inserted, moved)
	inserted = append(inserted, target[newOrder:]...)

	var placements []domain.Placement
	for i, t := range inserted {
		if t.Status != newStatus || t.Order != i {
			placements = append(placements, domain.Placement{TaskID: t.ID, Status: newStatus, Order: i})
		}
	}
	if newStatus != task.Status {
		placements = append(placements, renumber(remaining)...)
	}
	return placements
}

// Remove closes the gap a task leaves when it drops out of its column.
func Remove(task domain.Task, column []domain.Task) []domain.Placement {
	return renumber(without(sorted(column), task.ID))
}

// Compact renumbers a column that drifted away from 0..n-1.
func Compact(column []domain.Task) []domain.Placement {
	return renumber(sorted(column))
}

// Contiguous reports whether the column's orders are exactly 0..n-1.
func Contiguous(column []domain.Task) bool {
	return len(Compact(column)) == 0
}

// Sort orders a column the way the board renders it.
func Sort(column []domain.Task) {
	sort.SliceStable(column, func(i, j int) bool {
		if column[i].Order != column[j].Order {
			return column[i].Order < column[j].Order
		}
		return column[i].ID < column[j].ID
	})
}

func renumber(column []domain.Task) []domain.Placement {
	var placements []domain.Placement
	for i, t := range column {
		if t.Order != i {
			placements = append(placements, domain.Placement{TaskID: t.ID, Status: t.Status, Order: i})
		}
	}
	return placements
}

func sorted(column []domain.Task) []domain.Task {
	out := make([]domain.Task, len(column))
	copy(out, column)
	Sort(out)
	return out
}

func without(column []domain.Task, id int64) []domain.Task {
	out := column[:0:0]
	for _, t := range column {
		if t.ID != id {
			out = append(out, t)
		}
	}
	return out
}
