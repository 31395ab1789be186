package lead

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redislib "github.com/redis/go-redis/v9"

	"github.com/fastygo/leadboard/domain"
	sqliteinfra "github.com/fastygo/leadboard/internal/infrastructure/sqlite"
	"github.com/fastygo/leadboard/internal/listing"
	"github.com/fastygo/leadboard/repository"
	redisrepo "github.com/fastygo/leadboard/repository/redis"
	"github.com/fastygo/leadboard/repository/sqlite"
	"github.com/fastygo/leadboard/usecase"
)

type cacheStub struct {
	pages       map[string]listing.Page[domain.Lead]
	generation  int64
	gets        int
	invalidated int
	failReads   bool
}

func newCacheStub() *cacheStub {
	return &cacheStub{pages: map[string]listing.Page[domain.Lead]{}}
}

func (c *cacheStub) Get(_ context.Context, key string) (*listing.Page[domain.Lead], int64, error) {
	c.gets++
	if c.failReads {
		return nil, 0, domain.Unavailable("read", errors.New("redis down"))
	}
	page, ok := c.pages[key]
	if !ok {
		return nil, c.generation, nil
	}
	return &page, c.generation, nil
}

func (c *cacheStub) Put(_ context.Context, key string, generation int64, page listing.Page[domain.Lead]) error {
	if generation == c.generation {
		c.pages[key] = page
	}
	return nil
}

func (c *cacheStub) Invalidate(context.Context) error {
	c.invalidated++
	c.generation++
	c.pages = map[string]listing.Page[domain.Lead]{}
	return nil
}

// hookedLeads runs a hook once right after Count or Find, standing in for a
// concurrent request that lands between a read and the following write.
type hookedLeads struct {
	repository.LeadRepository
	afterCount func()
	afterFind  func()
}

func (h *hookedLeads) Count(ctx context.Context, q listing.LeadQuery) (int, error) {
	n, err := h.LeadRepository.Count(ctx, q)
	if fn := h.afterCount; fn != nil && err == nil {
		h.afterCount = nil
		fn()
	}
	return n, err
}

func (h *hookedLeads) Find(ctx context.Context, id int64) (*domain.Lead, error) {
	lead, err := h.LeadRepository.Find(ctx, id)
	if fn := h.afterFind; fn != nil && err == nil {
		h.afterFind = nil
		fn()
	}
	return lead, err
}

type failingRecorder struct{ calls int }

func (r *failingRecorder) Record(context.Context, domain.ActivityEntry) error {
	r.calls++
	return errors.New("journal full")
}

func newTestUseCase(t *testing.T, cache *cacheStub) (*UseCase, *failingRecorder) {
	t.Helper()
	db, err := sqliteinfra.Open(context.Background(), ":memory:", nil)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	recorder := &failingRecorder{}
	uc := New(sqlite.NewLeadRepository(db), nil, usecase.NewJournal(recorder, nil), nil)
	if cache != nil {
		uc.cache = cache
	}
	return uc, recorder
}

func strPtr(s string) *string { return &s }

func validInput(i int) CreateInput {
	return CreateInput{
		FirstName: "First",
		LastName:  fmt.Sprintf("Last%02d", i),
		Email:     fmt.Sprintf("lead%d@example.com", i),
	}
}

func TestCreateLeadDefaultsAndNormalization(t *testing.T) {
	uc, recorder := newTestUseCase(t, nil)
	lead, err := uc.CreateLead(context.Background(), CreateInput{
		FirstName: "  Ada ",
		LastName:  "Lovelace",
		Email:     "ada@example.com",
		Company:   strPtr("   "),
		JobTitle:  strPtr(" Countess "),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if lead.ID == 0 || lead.FirstName != "Ada" || lead.CreatedAt.IsZero() {
		t.Fatalf("unexpected lead %+v", lead)
	}
	if lead.Source != domain.LeadSourceOther || lead.Status != domain.LeadStatusNew {
		t.Fatalf("unexpected defaults %s/%s", lead.Source, lead.Status)
	}
	if lead.Company != nil || lead.JobTitle == nil || *lead.JobTitle != "Countess" {
		t.Fatalf("optional fields not normalized: %+v", lead)
	}
	if recorder.calls != 1 {
		t.Fatalf("journal not called")
	}
}

func TestCreateLeadValidation(t *testing.T) {
	uc, _ := newTestUseCase(t, nil)
	ctx := context.Background()
	badSource := domain.LeadSource(12)
	cases := map[string]CreateInput{
		"missing first name": {LastName: "L", Email: "a@b.co"},
		"missing email":      {FirstName: "F", LastName: "L"},
		"malformed email":    {FirstName: "F", LastName: "L", Email: "not-an-email"},
		"long last name":     {FirstName: "F", LastName: strings.Repeat("x", 101), Email: "a@b.co"},
		"long phone":         {FirstName: "F", LastName: "L", Email: "a@b.co", Phone: strPtr(strings.Repeat("1", 51))},
		"bad source":         {FirstName: "F", LastName: "L", Email: "a@b.co", Source: &badSource},
	}
	for name, in := range cases {
		if _, err := uc.CreateLead(ctx, in); !domain.IsDomainError(err, domain.ErrCodeInvalid) {
			t.Fatalf("%s: expected invalid, got %v", name, err)
		}
	}
	page, err := uc.ListLeads(ctx, ListRequest{})
	if err != nil || page.TotalCount != 0 {
		t.Fatalf("invalid input persisted: %v %+v", err, page.Meta())
	}
}

func TestUpdateLeadOnlyTouchesSuppliedFields(t *testing.T) {
	uc, _ := newTestUseCase(t, nil)
	ctx := context.Background()
	in := validInput(1)
	in.Phone = strPtr("555-0100")
	created, err := uc.CreateLead(ctx, in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	status := domain.LeadStatusQualified
	updated, err := uc.UpdateLead(ctx, created.ID, UpdateInput{Status: &status, Notes: strPtr("hot")})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Status != status || updated.Notes == nil || *updated.Notes != "hot" {
		t.Fatalf("patch not applied: %+v", updated)
	}
	if updated.FirstName != "First" || updated.Phone == nil || *updated.Phone != "555-0100" {
		t.Fatalf("untouched fields changed: %+v", updated)
	}
	if updated.LastModifiedAt == nil {
		t.Fatalf("last modified not set")
	}

	stored, err := uc.GetLead(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Status != status || *stored.Phone != "555-0100" {
		t.Fatalf("stored lead differs: %+v", stored)
	}

	if _, err := uc.UpdateLead(ctx, created.ID, UpdateInput{Email: strPtr("broken")}); !domain.IsDomainError(err, domain.ErrCodeInvalid) {
		t.Fatalf("expected invalid email, got %v", err)
	}
	if _, err := uc.UpdateLead(ctx, created.ID, UpdateInput{FirstName: strPtr("  ")}); !domain.IsDomainError(err, domain.ErrCodeInvalid) {
		t.Fatalf("expected blank first name to be rejected, got %v", err)
	}
	if _, err := uc.UpdateLead(ctx, 999, UpdateInput{Notes: strPtr("x")}); err != domain.ErrLeadNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSoftDeleteLeadHidesIt(t *testing.T) {
	uc, _ := newTestUseCase(t, nil)
	ctx := context.Background()
	created, err := uc.CreateLead(ctx, validInput(1))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := uc.SoftDeleteLead(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := uc.GetLead(ctx, created.ID); err != domain.ErrLeadNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := uc.SoftDeleteLead(ctx, created.ID); err != domain.ErrLeadNotFound {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
	page, err := uc.ListLeads(ctx, ListRequest{Search: "First"})
	if err != nil || len(page.Items) != 0 {
		t.Fatalf("deleted lead listed: %v %+v", err, page.Items)
	}
	if _, err := uc.leads.FindAny(ctx, created.ID); err != nil {
		t.Fatalf("deleted lead must stay reachable internally: %v", err)
	}
}

func TestListLeadsSecondPage(t *testing.T) {
	uc, _ := newTestUseCase(t, nil)
	ctx := context.Background()
	for i := 0; i < 15; i++ {
		if _, err := uc.CreateLead(ctx, validInput(i)); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	page, err := uc.ListLeads(ctx, ListRequest{Page: 2, PageSize: 10, SortColumn: "lastName", SortOrder: "asc"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.TotalPages != 2 || page.TotalCount != 15 || len(page.Items) != 5 || !page.HasPreviousPage || page.HasNextPage {
		t.Fatalf("unexpected page %+v", page.Meta())
	}

	clamped, err := uc.ListLeads(ctx, ListRequest{Page: -3, PageSize: 0, SortColumn: "nonsense", SortOrder: "sideways"})
	if err != nil {
		t.Fatalf("list with junk params: %v", err)
	}
	if clamped.PageNumber != 1 || clamped.PageSize != 1 || len(clamped.Items) != 1 || clamped.Items[0].LastName != "Last00" {
		t.Fatalf("unexpected clamped page %+v", clamped)
	}
}

func TestListLeadsUsesCacheAndInvalidatesOnWrite(t *testing.T) {
	cache := newCacheStub()
	uc, _ := newTestUseCase(t, cache)
	ctx := context.Background()
	if _, err := uc.CreateLead(ctx, validInput(1)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if cache.invalidated != 1 {
		t.Fatalf("create must invalidate the cache")
	}

	first, err := uc.ListLeads(ctx, ListRequest{Page: 1, PageSize: 10})
	if err != nil || first.TotalCount != 1 {
		t.Fatalf("list: %v %+v", err, first.Meta())
	}
	if len(cache.pages) != 1 {
		t.Fatalf("page not cached")
	}
	// Same normalized request hits the cache even with different spelling.
	for key, page := range cache.pages {
		page.TotalCount = 42
		cache.pages[key] = page
	}
	second, err := uc.ListLeads(ctx, ListRequest{Page: 0, PageSize: 10, SortOrder: "ASC"})
	if err != nil || second.TotalCount != 42 {
		t.Fatalf("expected cached page, got %v %+v", err, second.Meta())
	}

	if _, err := uc.CreateLead(ctx, validInput(2)); err != nil {
		t.Fatalf("create: %v", err)
	}
	third, err := uc.ListLeads(ctx, ListRequest{Page: 1, PageSize: 10})
	if err != nil || third.TotalCount != 2 {
		t.Fatalf("stale page after write: %v %+v", err, third.Meta())
	}

	cache.failReads = true
	if _, err := uc.ListLeads(ctx, ListRequest{Page: 1, PageSize: 10}); err != nil {
		t.Fatalf("cache failure must fall through to the store: %v", err)
	}
}

func TestListLeadsDoesNotCachePageRacingAWrite(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redislib.NewClient(&redislib.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	uc, _ := newTestUseCase(t, nil)
	uc.cache = redisrepo.NewLeadPageCache(client, time.Minute)
	ctx := context.Background()
	if _, err := uc.CreateLead(ctx, validInput(1)); err != nil {
		t.Fatalf("create: %v", err)
	}

	hooked := &hookedLeads{LeadRepository: uc.leads}
	hooked.afterCount = func() {
		if _, err := uc.CreateLead(ctx, validInput(2)); err != nil {
			t.Errorf("concurrent create: %v", err)
		}
	}
	uc.leads = hooked

	if _, err := uc.ListLeads(ctx, ListRequest{Page: 1, PageSize: 10}); err != nil {
		t.Fatalf("first list: %v", err)
	}
	page, err := uc.ListLeads(ctx, ListRequest{Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("second list: %v", err)
	}
	if page.TotalCount != 2 || len(page.Items) != 2 {
		t.Fatalf("served stale page: totalCount=%d items=%d", page.TotalCount, len(page.Items))
	}
}

func TestUpdateLeadLosesToConcurrentDelete(t *testing.T) {
	uc, _ := newTestUseCase(t, nil)
	ctx := context.Background()
	created, err := uc.CreateLead(ctx, validInput(1))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	base := uc.leads
	other := New(base, nil, usecase.NewJournal(nil, nil), nil)
	uc.leads = &hookedLeads{LeadRepository: base, afterFind: func() {
		if err := other.SoftDeleteLead(ctx, created.ID); err != nil {
			t.Errorf("concurrent delete: %v", err)
		}
	}}

	if _, err := uc.UpdateLead(ctx, created.ID, UpdateInput{Notes: strPtr("late edit")}); err != domain.ErrLeadNotFound {
		t.Fatalf("update after delete = %v, want not found", err)
	}
	if _, err := base.Find(ctx, created.ID); err != domain.ErrLeadNotFound {
		t.Fatalf("deleted lead came back: %v", err)
	}
	page, err := uc.ListLeads(ctx, ListRequest{})
	if err != nil || page.TotalCount != 0 {
		t.Fatalf("deleted lead listed: %v %+v", err, page.Meta())
	}
}

func TestCatalogues(t *testing.T) {
	uc, _ := newTestUseCase(t, nil)
	if got := uc.LeadSources(); len(got) != 5 || got[2].Name != "SocialMedia" {
		t.Fatalf("unexpected sources %+v", got)
	}
	if got := uc.LeadStatuses(); len(got) != 5 || got[4].Name != "Customer" {
		t.Fatalf("unexpected statuses %+v", got)
	}
}
