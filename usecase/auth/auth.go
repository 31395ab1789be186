package auth

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/fastygo/leadboard/domain"
	"github.com/fastygo/leadboard/repository"
	"github.com/fastygo/leadboard/usecase"
)

// Config holds token settings.
type Config struct {
	Secret string
	Issuer string
	TTL    time.Duration
}

// Claims is the payload of an issued access token. The subject is the user id.
type Claims struct {
	jwt.RegisteredClaims
	Username  string `json:"username"`
	Role      string `json:"role"`
	SessionID string `json:"sid,omitempty"`
}

// UserID parses the numeric subject.
func (c *Claims) UserID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.ErrUnauthorized
	}
	return id, nil
}

type LoginInput struct {
	Username string `json:"username" validate:"required,max=100"`
	Password string `json:"password" validate:"required,max=200"`
}

type Token struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type UseCase struct {
	users    repository.UserRepository
	sessions repository.SessionRepository
	cfg      Config
	logger   *zap.Logger
	now      func() time.Time
}

// New builds the auth use case. sessions may be nil, then tokens are valid
// until they expire and logout is a no-op.
func New(users repository.UserRepository, sessions repository.SessionRepository, cfg Config, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = time.Hour
	}
	return &UseCase{
		users:    users,
		sessions: sessions,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// Login checks the credentials and issues a signed token.
func (uc *UseCase) Login(ctx context.Context, input LoginInput) (*Token, error) {
	input.Username = strings.TrimSpace(input.Username)
	if err := usecase.Validate(input); err != nil {
		return nil, err
	}

	user, err := uc.users.GetByUsername(ctx, input.Username)
	if err != nil {
		if domain.IsDomainError(err, domain.ErrCodeNotFound) {
			return nil, domain.ErrBadCredentials
		}
		return nil, err
	}
	if !user.IsActive() {
		return nil, domain.ErrBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, domain.ErrBadCredentials
	}

	now := uc.now().UTC()
	expiresAt := now.Add(uc.cfg.TTL)

	var sessionID string
	if uc.sessions != nil {
		session := &domain.Session{
			ID:        uuid.NewString(),
			UserID:    user.ID,
			Username:  user.Username,
			Role:      user.Role,
			CreatedAt: now,
			ExpiresAt: expiresAt,
		}
		if err := uc.sessions.Save(ctx, session); err != nil {
			return nil, err
		}
		sessionID = session.ID
	}

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			Issuer:    uc.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Username:  user.Username,
		Role:      user.Role,
		SessionID: sessionID,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(uc.cfg.Secret))
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeInternal, "sign token", err)
	}

	uc.logger.Info("user logged in", zap.Int64("user_id", user.ID), zap.String("username", user.Username))
	return &Token{Token: signed, ExpiresAt: expiresAt}, nil
}

// Authenticate validates a bearer token and, when sessions are enabled, that
// its session has not been revoked.
func (uc *UseCase) Authenticate(ctx context.Context, raw string) (*Claims, error) {
	if raw == "" {
		return nil, domain.ErrUnauthorized
	}
	claims := &Claims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	token, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(uc.cfg.Secret), nil
	})
	if err != nil || !token.Valid {
		return nil, domain.WrapError(domain.ErrCodeUnauthorized, "invalid token", err)
	}
	if uc.cfg.Issuer != "" && !claims.VerifyIssuer(uc.cfg.Issuer, true) {
		return nil, domain.ErrUnauthorized
	}
	if _, err := claims.UserID(); err != nil {
		return nil, err
	}

	if uc.sessions != nil && claims.SessionID != "" {
		session, err := uc.sessions.Get(ctx, claims.SessionID)
		if err != nil {
			if domain.IsDomainError(err, domain.ErrCodeNotFound) {
				return nil, domain.ErrUnauthorized
			}
			return nil, err
		}
		if session.IsExpired(uc.now()) {
			_ = uc.sessions.Delete(ctx, session.ID)
			return nil, domain.ErrUnauthorized
		}
	}
	return claims, nil
}

// Logout revokes the session behind the token.
func (uc *UseCase) Logout(ctx context.Context, claims *Claims) error {
	if uc.sessions == nil || claims == nil || claims.SessionID == "" {
		return nil
	}
	return uc.sessions.Delete(ctx, claims.SessionID)
}

// Profile returns the signed-in user.
func (uc *UseCase) Profile(ctx context.Context, userID int64) (*domain.User, error) {
	user, err := uc.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive() {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

// EnsureAdmin creates the account unless the username is already taken.
// It reports whether a user was created.
func (uc *UseCase) EnsureAdmin(ctx context.Context, username, email, password string) (*domain.User, bool, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, false, domain.Invalidf("admin username and password are required")
	}

	existing, err := uc.users.GetByUsername(ctx, username)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) && !domain.IsDomainError(err, domain.ErrCodeNotFound) {
		return nil, false, err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, false, err
	}
	user := &domain.User{
		Username:     username,
		Email:        strings.TrimSpace(email),
		PasswordHash: hash,
		Role:         "Admin",
	}
	user.Touch(uc.now())
	if err := uc.users.Create(ctx, user); err != nil {
		return nil, false, err
	}
	uc.logger.Info("admin user created", zap.String("username", username))
	return user, true, nil
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", domain.WrapError(domain.ErrCodeInvalid, "hash password", err)
	}
	return string(hash), nil
}
