package lead

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/leadboard/domain"
	"github.com/fastygo/leadboard/internal/listing"
	"github.com/fastygo/leadboard/repository"
	"github.com/fastygo/leadboard/usecase"
)

// CreateInput is the payload of a lead creation.
type CreateInput struct {
	FirstName string             `json:"firstName" validate:"required,max=100"`
	LastName  string             `json:"lastName" validate:"required,max=100"`
	Email     string             `json:"email" validate:"required,email,max=200"`
	Phone     *string            `json:"phone" validate:"omitempty,max=50"`
	Company   *string            `json:"company" validate:"omitempty,max=200"`
	JobTitle  *string            `json:"jobTitle" validate:"omitempty,max=200"`
	Source    *domain.LeadSource `json:"source"`
	Status    *domain.LeadStatus `json:"status"`
	Notes     *string            `json:"notes"`
}

// UpdateInput is a partial update; omitted (null) fields keep their value.
type UpdateInput struct {
	FirstName *string            `json:"firstName" validate:"omitnil,min=1,max=100"`
	LastName  *string            `json:"lastName" validate:"omitnil,min=1,max=100"`
	Email     *string            `json:"email" validate:"omitnil,email,max=200"`
	Phone     *string            `json:"phone" validate:"omitempty,max=50"`
	Company   *string            `json:"company" validate:"omitempty,max=200"`
	JobTitle  *string            `json:"jobTitle" validate:"omitempty,max=200"`
	Source    *domain.LeadSource `json:"source"`
	Status    *domain.LeadStatus `json:"status"`
	Notes     *string            `json:"notes"`
}

// ListRequest carries the raw listing parameters; they are normalized, never rejected.
type ListRequest struct {
	Page       int
	PageSize   int
	Search     string
	SortColumn string
	SortOrder  string
}

type UseCase struct {
	leads   repository.LeadRepository
	cache   repository.LeadPageCache
	journal *usecase.Journal
	logger  *zap.Logger
	now     func() time.Time
}

// New wires the lead facade. cache may be nil.
func New(leads repository.LeadRepository, cache repository.LeadPageCache, journal *usecase.Journal, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		leads:   leads,
		cache:   cache,
		journal: journal,
		logger:  logger,
		now:     time.Now,
	}
}

func (uc *UseCase) ListLeads(ctx context.Context, req ListRequest) (listing.Page[domain.Lead], error) {
	query := listing.NewLeadQuery(req.Search, req.SortColumn, req.SortOrder)
	window := listing.NewWindow(req.Page, req.PageSize)
	key := pageKey(query, window)

	cacheable := false
	var generation int64
	if uc.cache != nil {
		cached, gen, err := uc.cache.Get(ctx, key)
		switch {
		case err != nil:
			uc.logger.Warn("lead page cache read failed", zap.Error(err))
		case cached != nil:
			return *cached, nil
		default:
			cacheable, generation = true, gen
		}
	}

	total, err := uc.leads.Count(ctx, query)
	if err != nil {
		return listing.Page[domain.Lead]{}, err
	}
	items, err := uc.leads.List(ctx, query, window)
	if err != nil {
		return listing.Page[domain.Lead]{}, err
	}
	page := listing.NewPage(items, total, window)

	if cacheable {
		if err := uc.cache.Put(ctx, key, generation, page); err != nil {
			uc.logger.Warn("lead page cache write failed", zap.Error(err))
		}
	}
	return page, nil
}

func (uc *UseCase) GetLead(ctx context.Context, id int64) (*domain.Lead, error) {
	return uc.leads.Find(ctx, id)
}

func (uc *UseCase) CreateLead(ctx context.Context, in CreateInput) (*domain.Lead, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = blankToNil(trimOptional(in.Phone))
	in.Company = blankToNil(trimOptional(in.Company))
	in.JobTitle = blankToNil(trimOptional(in.JobTitle))
	in.Notes = blankToNil(in.Notes)

	if err := usecase.Validate(in); err != nil {
		return nil, err
	}

	lead := &domain.Lead{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
		Phone:     in.Phone,
		Company:   in.Company,
		JobTitle:  in.JobTitle,
		Source:    domain.LeadSourceOther,
		Status:    domain.LeadStatusNew,
		Notes:     in.Notes,
	}
	if in.Source != nil {
		lead.Source = *in.Source
	}
	if in.Status != nil {
		lead.Status = *in.Status
	}
	if err := validateEnums(lead); err != nil {
		return nil, err
	}

	lead.Touch(uc.now())
	if err := uc.leads.Insert(ctx, lead); err != nil {
		return nil, err
	}

	uc.invalidate(ctx)
	uc.journal.Record(ctx, domain.EntityLead, lead.ID, domain.ActionCreated, lead.FullName())
	return lead, nil
}

func (uc *UseCase) UpdateLead(ctx context.Context, id int64, in UpdateInput) (*domain.Lead, error) {
	in.FirstName = trimOptional(in.FirstName)
	in.LastName = trimOptional(in.LastName)
	in.Email = trimOptional(in.Email)
	if err := usecase.Validate(in); err != nil {
		return nil, err
	}

	lead, err := uc.leads.Find(ctx, id)
	if err != nil {
		return nil, err
	}

	patch := domain.LeadPatch{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
		Phone:     in.Phone,
		Company:   in.Company,
		JobTitle:  in.JobTitle,
		Source:    in.Source,
		Status:    in.Status,
		Notes:     in.Notes,
	}
	if !patch.Apply(lead) {
		return lead, nil
	}
	lead.Phone = blankToNil(lead.Phone)
	lead.Company = blankToNil(lead.Company)
	lead.JobTitle = blankToNil(lead.JobTitle)
	lead.Notes = blankToNil(lead.Notes)
	if err := validateEnums(lead); err != nil {
		return nil, err
	}

	lead.Touch(uc.now())
	if err := uc.leads.Update(ctx, lead); err != nil {
		return nil, err
	}

	uc.invalidate(ctx)
	uc.journal.Record(ctx, domain.EntityLead, lead.ID, domain.ActionUpdated, lead.FullName())
	return lead, nil
}

// SoftDeleteLead hides the lead. Its tasks keep their reference.
func (uc *UseCase) SoftDeleteLead(ctx context.Context, id int64) error {
	lead, err := uc.leads.Find(ctx, id)
	if err != nil {
		return err
	}
	lead.MarkDeleted(uc.now())
	if err := uc.leads.Update(ctx, lead); err != nil {
		return err
	}

	uc.invalidate(ctx)
	uc.journal.Record(ctx, domain.EntityLead, lead.ID, domain.ActionDeleted, lead.FullName())
	return nil
}

func (uc *UseCase) LeadSources() []domain.EnumOption  { return domain.LeadSourceOptions() }
func (uc *UseCase) LeadStatuses() []domain.EnumOption { return domain.LeadStatusOptions() }

func (uc *UseCase) invalidate(ctx context.Context) {
	if uc.cache == nil {
		return
	}
	if err := uc.cache.Invalidate(ctx); err != nil {
		uc.logger.Warn("lead page cache invalidation failed", zap.Error(err))
	}
}

func validateEnums(lead *domain.Lead) error {
	if !lead.Source.Valid() {
		return domain.Invalidf("invalid lead source %d", int(lead.Source))
	}
	if !lead.Status.Valid() {
		return domain.Invalidf("invalid lead status %d", int(lead.Status))
	}
	return nil
}

func pageKey(q listing.LeadQuery, w listing.Window) string {
	raw := fmt.Sprintf("%s|%s|%s|%d|%d", strings.ToLower(q.Search()), q.Column(), q.Direction(), w.Page, w.Size)
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:16])
}

func trimOptional(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	return &trimmed
}

func blankToNil(v *string) *string {
	if v == nil || strings.TrimSpace(*v) == "" {
		return nil
	}
	return v
}
