package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/fastygo/leadboard/domain"
	"github.com/fastygo/leadboard/internal/listing"
	"github.com/fastygo/leadboard/repository"
)

const leadColumns = `id, first_name, last_name, email, phone, company, job_title,
	source, status, notes, created_at, last_modified_at, is_deleted`

type leadRepository struct {
	db *sql.DB
}

// NewLeadRepository returns a SQLite-backed implementation of LeadRepository.
func NewLeadRepository(db *sql.DB) repository.LeadRepository {
	return &leadRepository{db: db}
}

func (r *leadRepository) Find(ctx context.Context, id int64) (*domain.Lead, error) {
	return r.find(ctx, id, listing.NotDeleted(""))
}

func (r *leadRepository) FindAny(ctx context.Context, id int64) (*domain.Lead, error) {
	return r.find(ctx, id)
}

func (r *leadRepository) find(ctx context.Context, id int64, filters ...listing.Predicate) (*domain.Lead, error) {
	where := listing.And(append([]listing.Predicate{{SQL: "id = ?", Args: []any{id}}}, filters...)...)
	lead, err := scanLead(r.db.QueryRowContext(ctx, `SELECT `+leadColumns+` FROM leads WHERE `+where.SQL, where.Args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrLeadNotFound
		}
		return nil, domain.Unavailable("find lead", err)
	}
	return lead, nil
}

func (r *leadRepository) List(ctx context.Context, q listing.LeadQuery, w listing.Window) ([]domain.Lead, error) {
	where, args := q.Where()
	query := `SELECT ` + leadColumns + ` FROM leads WHERE ` + where +
		` ORDER BY ` + q.OrderBy() + ` LIMIT ? OFFSET ?`
	args = append(args, w.Limit(), w.Offset())

	rows, err := r.db.QueryContext(ctx, query, args...)
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
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM leads WHERE `+where, args...).Scan(&total); err != nil {
		return 0, domain.Unavailable("count leads", err)
	}
	return total, nil
}

func (r *leadRepository) Insert(ctx context.Context, lead *domain.Lead) error {
	if lead == nil {
		return domain.ErrInvalidPayload
	}
	lead.CreatedAt = createdAt(lead.CreatedAt)

	const query = `
	INSERT INTO leads (first_name, last_name, email, phone, company, job_title, source, status, notes, created_at, is_deleted)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	res, err := r.db.ExecContext(ctx, query,
		lead.FirstName,
		lead.LastName,
		lead.Email,
		lead.Phone,
		lead.Company,
		lead.JobTitle,
		lead.Source,
		lead.Status,
		lead.Notes,
		lead.CreatedAt,
		lead.IsDeleted,
	)
	if err != nil {
		return domain.Unavailable("insert lead", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Unavailable("insert lead", err)
	}
	lead.ID = id
	return nil
}

func (r *leadRepository) Update(ctx context.Context, lead *domain.Lead) error {
	if lead == nil {
		return domain.ErrInvalidPayload
	}

	const query = `
	UPDATE leads
	SET first_name = ?,
		last_name = ?,
		email = ?,
		phone = ?,
		company = ?,
		job_title = ?,
		source = ?,
		status = ?,
		notes = ?,
		last_modified_at = ?,
		is_deleted = ?
	WHERE id = ? AND is_deleted = FALSE
	`
	res, err := r.db.ExecContext(ctx, query,
		lead.FirstName,
		lead.LastName,
		lead.Email,
		lead.Phone,
		lead.Company,
		lead.JobTitle,
		lead.Source,
		lead.Status,
		lead.Notes,
		nullableTime(lead.LastModifiedAt),
		lead.IsDeleted,
		lead.ID,
	)
	if err != nil {
		return domain.Unavailable("update lead", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrLeadNotFound
	}
	return nil
}

func (r *leadRepository) Exists(ctx context.Context, id int64) (bool, error) {
	where := listing.And(listing.Predicate{SQL: "id = ?", Args: []any{id}}, listing.NotDeleted(""))
	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM leads WHERE `+where.SQL+`)`, where.Args...).Scan(&exists); err != nil {
		return false, domain.Unavailable("check lead", err)
	}
	return exists, nil
}

func scanLead(row rowScanner) (*domain.Lead, error) {
	var (
		lead     domain.Lead
		modified sql.NullTime
	)
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
		&modified,
		&lead.IsDeleted,
	); err != nil {
		return nil, err
	}
	lead.CreatedAt = lead.CreatedAt.UTC()
	lead.LastModifiedAt = timePtr(modified)
	return &lead, nil
}
