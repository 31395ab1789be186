package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestShutdownRunsHooksInReverseOrder(t *testing.T) {
	m := New(time.Second, nil)
	var order []string
	for _, name := range []string{"database", "journal", "http"} {
		name := name
		m.Register(name, func(context.Context) error {
			order = append(order, name)
			return nil
		})
	}
	m.Register("ignored", nil)

	if err := m.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if len(order) != 3 || order[0] != "http" || order[2] != "database" {
		t.Fatalf("unexpected order %v", order)
	}
	if err := m.Shutdown(context.Background()); err != nil || len(order) != 3 {
		t.Fatalf("second shutdown reran hooks: %v %v", order, err)
	}
}

func TestShutdownJoinsErrors(t *testing.T) {
	m := New(time.Second, nil)
	errA, errB := errors.New("a"), errors.New("b")
	ran := false
	m.Register("first", func(context.Context) error { ran = true; return nil })
	m.Register("second", func(context.Context) error { return errA })
	m.Register("third", func(context.Context) error { return errB })

	err := m.Shutdown(context.Background())
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Fatalf("expected joined errors, got %v", err)
	}
	if !ran {
		t.Fatalf("a failing hook stopped the remaining ones")
	}
}

func TestShutdownHonoursTimeout(t *testing.T) {
	m := New(10*time.Millisecond, nil)
	m.Register("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if err := m.Shutdown(context.Background()); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestListenFollowsParent(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	ctx, stop := New(0, nil).Listen(parent)
	defer stop()
	cancel()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatalf("listen context not cancelled with its parent")
	}
}
