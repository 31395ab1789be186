package board

import (
	"context"
	"sort"

	"github.com/fastygo/leadboard/domain"
)

// Locker serializes board writes per column inside one process. A move holds
// its source and destination columns; locks are always taken in status order
// so two moves over the same pair of columns cannot deadlock.
type Locker struct {
	columns map[domain.TaskStatus]chan struct{}
}

func NewLocker() *Locker {
	columns := make(map[domain.TaskStatus]chan struct{})
	for _, status := range domain.TaskStatuses() {
		columns[status] = make(chan struct{}, 1)
	}
	return &Locker{columns: columns}
}

// Lock acquires the given columns and returns the release func. It gives up
// with ctx.Err() if the context ends while waiting; nothing stays held then.
func (l *Locker) Lock(ctx context.Context, statuses ...domain.TaskStatus) (func(), error) {
	ordered := Columns(statuses...)
	held := make([]chan struct{}, 0, len(ordered))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			<-held[i]
		}
	}
	for _, status := range ordered {
		slot, ok := l.columns[status]
		if !ok {
			release()
			return nil, domain.Invalidf("invalid task status %d", int(status))
		}
		select {
		case slot <- struct{}{}:
			held = append(held, slot)
		case <-ctx.Done():
			release()
			return nil, ctx.Err()
		}
	}
	return release, nil
}

// Columns dedupes statuses and returns them in lock order.
func Columns(statuses ...domain.TaskStatus) []domain.TaskStatus {
	seen := make(map[domain.TaskStatus]struct{}, len(statuses))
	out := make([]domain.TaskStatus, 0, len(statuses))
	for _, s := range statuses {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
