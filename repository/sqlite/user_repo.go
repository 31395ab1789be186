package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/fastygo/leadboard/domain"
	"github.com/fastygo/leadboard/repository"
)

const userColumns = `id, username, email, password_hash, role, created_at, last_modified_at, is_deleted`

type userRepository struct {
	db *sql.DB
}

// NewUserRepository instantiates a SQLite-backed user repository.
func NewUserRepository(db *sql.DB) repository.UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.get(ctx, `SELECT `+userColumns+` FROM users WHERE id = ? AND is_deleted = FALSE`, id)
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.get(ctx, `SELECT `+userColumns+` FROM users WHERE username = ? AND is_deleted = FALSE`, username)
}

func (r *userRepository) get(ctx context.Context, query string, arg any) (*domain.User, error) {
	var (
		user     domain.User
		modified sql.NullTime
	)
	if err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.CreatedAt,
		&modified,
		&user.IsDeleted,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, domain.Unavailable("get user", err)
	}
	user.LastModifiedAt = timePtr(modified)
	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	if user == nil {
		return domain.ErrInvalidPayload
	}
	if user.Role == "" {
		user.Role = domain.DefaultRole
	}
	user.CreatedAt = createdAt(user.CreatedAt)

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (username, email, password_hash, role, created_at) VALUES (?, ?, ?, ?, ?)`,
		user.Username, user.Email, user.PasswordHash, user.Role, user.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrUserExists
		}
		return domain.Unavailable("create user", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Unavailable("create user", err)
	}
	user.ID = id
	return nil
}
