package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fastygo/leadboard/domain"
	"github.com/fastygo/leadboard/internal/listing"
	"github.com/fastygo/leadboard/repository"
)

const leadColumns = `id, first_name, last_name, email, phone, company, job_title,
	source, status, notes, created_at, last_modified_at, is_deleted`

type leadRepository struct {
	pool *pgxpool.Pool
}

// NewLeadRepository returns a Postgres-backed implementation of LeadRepository.
func NewLeadRepository(pool *pgxpool.Pool) repository.LeadRepository {
	return &leadRepository{pool: pool}
}

func (r *leadRepository) Find(ctx context.Context, id int64) (*domain.Lead, error) {
	return r.find(ctx, id, listing.NotDeleted(""))
}

func (r *leadRepository) FindAny(ctx context.Context, id int64) (*domain.Lead, error) {
	return r.find(ctx, id)
}

func (r *leadRepository) find(ctx context.Context, id int64, filters ...listing.Predicate) (*domain.Lead, error) {
	where := listing.And(append([]listing.Predicate{{SQL: "id = ?", Args: []any{id}}}, filters...)...)
	query := rebind(`SELECT ` + leadColumns + ` FROM leads WHERE ` + where.SQL)
	lead, err := scanLead(r.pool.QueryRow(ctx, query, where.Args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrLeadNotFound
		}
		return nil, domain.Unavailable("find lead", err)
	}
	return lead, nil
}

func (r *leadRepository) List(ctx context.Context, q listing.LeadQuery, w listing.Window) ([]domain.Lead, error) {
	where, args := q.Where()
	query := rebind(`SELECT ` + leadColumns + ` FROM leads WHERE ` + where +
		` ORDER BY ` + q.OrderBy() + ` LIMIT ? OFFSET ?`)
	args = append(args, w.Limit(), w.Offset())

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, domain.Unavailable("list leads", err)
	}
	defer rows.Close()

	leads := []domain.Lead{}
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, domain.Unavailable("scan lead", err)
		}
		leads = append(leads, *lead)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Unavailable("list leads", err)
	}
	return leads, nil
}

func (r *leadRepository) Count(ctx context.Context, q listing.LeadQuery) (int, error) {
	where, args := q.Where()
	var total int
	if err := r.pool.QueryRow(ctx, rebind(`SELECT COUNT(*) FROM leads WHERE `+where), args...).Scan(&total); err != nil {
		return 0, domain.Unavailable("count leads", err)
	}
	return total, nil
}

func (r *leadRepository) Insert(ctx context.Context, lead *domain.Lead) error {
	if lead == nil {
		return domain.ErrInvalidPayload
	}

	const query = `
	INSERT INTO leads (first_name, last_name, email, phone, company, job_title, source, status, notes, created_at, is_deleted)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, COALESCE($10, NOW()), $11)
	RETURNING id, created_at
	`
	if err := r.pool.QueryRow(ctx, query,
		lead.FirstName,
		lead.LastName,
		lead.Email,
		lead.Phone,
		lead.Company,
		lead.JobTitle,
		lead.Source,
		lead.Status,
		lead.Notes,
		nullTime(lead.CreatedAt),
		lead.IsDeleted,
	).Scan(&lead.ID, &lead.CreatedAt); err != nil {
		return domain.Unavailable("insert lead", err)
	}
	return nil
}

func (r *leadRepository) Update(ctx context.Context, lead *domain.Lead) error {
	if lead == nil {
		return domain.ErrInvalidPayload
	}

	const query = `
	UPDATE leads
	SET first_name = $2,
		last_name = $3,
		email = $4,
		phone = $5,
		company = $6,
		job_title = $7,
		source = $8,
		status = $9,
		notes = $10,
		last_modified_at = $11,
		is_deleted = $12
	WHERE id = $1 AND is_deleted = FALSE
	`
	tag, err := r.pool.Exec(ctx, query,
		lead.ID,
		lead.FirstName,
		lead.LastName,
		lead.Email,
		lead.Phone,
		lead.Company,
		lead.JobTitle,
		lead.Source,
		lead.Status,
		lead.Notes,
		lead.LastModifiedAt,
		lead.IsDeleted,
	)
	if err != nil {
		return domain.Unavailable("update lead", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrLeadNotFound
	}
	return nil
}

func (r *leadRepository) Exists(ctx context.Context, id int64) (bool, error) {
	where := listing.And(listing.Predicate{SQL: "id = ?", Args: []any{id}}, listing.NotDeleted(""))
	var exists bool
	query := rebind(`SELECT EXISTS (SELECT 1 FROM leads WHERE ` + where.SQL + `)`)
	if err := r.pool.QueryRow(ctx, query, where.Args...).Scan(&exists); err != nil {
		return false, domain.Unavailable("check lead", err)
	}
	return exists, nil
}

func scanLead(row rowScanner) (*domain.Lead, error) {
	var lead domain.Lead
	if err := row.Scan(
		&lead.ID,
		&lead.FirstName,
		&lead.LastName,
		&lead.Email,
		&lead.Phone,
		&lead.Company,
		&lead.JobTitle,
		&lead.Source,
		&lead.Status,
		&lead.Notes,
		&lead.CreatedAt,
		&lead.LastModifiedAt,
		&lead.IsDeleted,
	); err != nil {
		return nil, err
	}
	return &lead, nil
}
