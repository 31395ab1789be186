package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redislib "github.com/redis/go-redis/v9"

	"github.com/fastygo/leadboard/domain"
	"github.com/fastygo/leadboard/internal/listing"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redislib.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redislib.NewClient(&redislib.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestSessionRoundTripAndRevoke(t *testing.T) {
	mr, client := newTestClient(t)
	repo := NewSessionRepository(client, time.Hour)
	ctx := context.Background()

	session := &domain.Session{ID: "sid-1", UserID: 7, Username: "admin", Role: "Admin"}
	if err := repo.Save(ctx, session); err != nil {
		t.Fatalf("save: %v", err)
	}
	if ttl := mr.TTL("session:sid-1"); ttl <= 0 || ttl > time.Hour {
		t.Fatalf("unexpected TTL %v", ttl)
	}

	got, err := repo.Get(ctx, "sid-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.UserID != 7 || got.Username != "admin" || got.IsExpired(time.Now()) {
		t.Fatalf("unexpected session %+v", got)
	}

	if err := repo.Delete(ctx, "sid-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.Get(ctx, "sid-1"); err != domain.ErrSessionNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSessionSaveRejectsMissingID(t *testing.T) {
	_, client := newTestClient(t)
	if err := NewSessionRepository(client, 0).Save(context.Background(), &domain.Session{}); err != domain.ErrInvalidPayload {
		t.Fatalf("expected invalid payload, got %v", err)
	}
}

func TestLeadPageCacheMissHitInvalidate(t *testing.T) {
	mr, client := newTestClient(t)
	cache := NewLeadPageCache(client, time.Minute)
	ctx := context.Background()

	page, generation, err := cache.Get(ctx, "p1")
	if err != nil || page != nil || generation != 0 {
		t.Fatalf("expected miss at generation 0, got %v %d %v", page, generation, err)
	}

	lead := domain.Lead{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", Status: domain.LeadStatusQualified}
	lead.ID = 3
	fresh := listing.NewPage([]domain.Lead{lead}, 1, listing.NewWindow(1, 10))
	if err := cache.Put(ctx, "p1", generation, fresh); err != nil {
		t.Fatalf("put: %v", err)
	}
	if ttl := mr.TTL("leads:page:0:p1"); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("unexpected TTL %v", ttl)
	}

	got, _, err := cache.Get(ctx, "p1")
	if err != nil || got == nil {
		t.Fatalf("expected hit, got %v %v", got, err)
	}
	if got.TotalCount != 1 || len(got.Items) != 1 || got.Items[0].ID != 3 || got.Items[0].Status != domain.LeadStatusQualified {
		t.Fatalf("unexpected cached page %+v", got)
	}

	if err := cache.Invalidate(ctx); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	got, generation, err = cache.Get(ctx, "p1")
	if err != nil || got != nil || generation != 1 {
		t.Fatalf("expected miss at generation 1 after invalidate, got %v %d %v", got, generation, err)
	}
}

func TestLeadPageCachePutKeepsReadGeneration(t *testing.T) {
	mr, client := newTestClient(t)
	cache := NewLeadPageCache(client, time.Minute)
	ctx := context.Background()

	_, generation, err := cache.Get(ctx, "p1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	// A write lands while the page is being computed.
	if err := cache.Invalidate(ctx); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	stale := listing.NewPage([]domain.Lead{}, 0, listing.NewWindow(1, 10))
	if err := cache.Put(ctx, "p1", generation, stale); err != nil {
		t.Fatalf("put: %v", err)
	}

	if mr.Exists("leads:page:1:p1") {
		t.Fatalf("stale page stored under the current generation")
	}
	if page, _, err := cache.Get(ctx, "p1"); err != nil || page != nil {
		t.Fatalf("stale page served: %v %v", page, err)
	}
}

func TestLeadPageCacheCorruptEntryIsAMiss(t *testing.T) {
	mr, client := newTestClient(t)
	cache := NewLeadPageCache(client, time.Minute)
	if err := mr.Set("leads:page:0:bad", "{not json"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if page, _, err := cache.Get(context.Background(), "bad"); err != nil || page != nil {
		t.Fatalf("expected miss, got %v %v", page, err)
	}
	if mr.Exists("leads:page:0:bad") {
		t.Fatalf("corrupt entry not evicted")
	}
}

func TestLeadPageCacheUnavailable(t *testing.T) {
	mr, client := newTestClient(t)
	mr.Close()
	_, _, err := NewLeadPageCache(client, time.Minute).Get(context.Background(), "p1")
	if !domain.IsDomainError(err, domain.ErrCodeUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
}
