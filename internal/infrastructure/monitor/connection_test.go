package monitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redislib "github.com/redis/go-redis/v9"
)

type sizeStub int

func (s sizeStub) Size() (int, error) { return int(s), nil }

func TestRefreshReportsDependencies(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redislib.NewClient(&redislib.Options{Addr: mr.Addr()})
	defer client.Close()

	dbUp := true
	db := PingFunc(func(context.Context) error {
		if dbUp {
			return nil
		}
		return errors.New("connection refused")
	})
	m := New(db, "sqlite", client, sizeStub(3), time.Hour, nil)

	status := m.Refresh()
	if !status.Healthy() || !status.Redis || status.JournalSize != 3 || status.Driver != "sqlite" {
		t.Fatalf("unexpected status %+v", status)
	}

	mr.Close()
	if status := m.Refresh(); status.Healthy() || status.Redis {
		t.Fatalf("redis outage not detected: %+v", status)
	}

	dbUp = false
	if m.Refresh(); m.GetStatus().Database {
		t.Fatalf("database outage not detected")
	}
}

func TestRedisDisabledIsHealthy(t *testing.T) {
	m := New(PingFunc(func(context.Context) error { return nil }), "postgres", nil, nil, 0, nil)
	status := m.Refresh()
	if !status.Healthy() || status.RedisEnabled || status.Journal {
		t.Fatalf("unexpected status %+v", status)
	}
	m.Start()
	m.Stop()
	m.Stop()
}
