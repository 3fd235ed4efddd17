package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/utafrali/SocialGo/internal/domain"
	"github.com/utafrali/SocialGo/pkg/database"
	apperrors "github.com/utafrali/SocialGo/pkg/errors"
)

const userColumns = `id, full_name, email, username, password_hash, avatar_url, cover_image_url, created_at, updated_at`

// UserRepository implements repository.UserRepository using PostgreSQL.
type UserRepository struct {
	db database.DBTX
}

// NewUserRepository creates a new PostgreSQL-backed user repository.
func NewUserRepository(db database.DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user into the database.
func (r *UserRepository) Create(ctx context.Context, u *domain.User) (err error) {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	ctx, end := database.TraceQuery(ctx, "users.Create", query)
	defer func() { end(err) }()

	_, err = r.db.Exec(ctx, query,
		u.ID,
		u.FullName,
		u.Email,
		u.Username,
		u.PasswordHash,
		u.AvatarURL,
		u.CoverImageURL,
		u.CreatedAt,
		u.UpdatedAt,
	)
	if err != nil {
		if constraint, ok := database.UniqueViolation(err); ok {
			if strings.Contains(constraint, "username") {
				return apperrors.AlreadyExists("user", "username", u.Username)
			}
			return apperrors.AlreadyExists("user", "email", u.Email)
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by their ID.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanUser(ctx, "users.GetByID", id.String(), query, id)
}

// GetByEmail retrieves a user by email address.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.scanUser(ctx, "users.GetByEmail", email, query, email)
}

// GetByUsername retrieves a user by username.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return r.scanUser(ctx, "users.GetByUsername", username, query, username)
}

// FindConflict reports whether email or username is already registered. An
// email conflict is reported ahead of a username conflict.
func (r *UserRepository) FindConflict(ctx context.Context, email, username string) (field string, err error) {
	query := `
		SELECT email, username FROM users
		WHERE email = $1 OR username = $2
		ORDER BY (email = $1) DESC
		LIMIT 1`

	ctx, end := database.TraceQuery(ctx, "users.FindConflict", query)
	defer func() { end(err) }()

	var gotEmail, gotUsername string
	err = r.db.QueryRow(ctx, query, email, username).Scan(&gotEmail, &gotUsername)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("find user conflict: %w", err)
	}

	if gotEmail == email {
		return "email", nil
	}
	return "username", nil
}

// UpdatePasswordHash swaps the password hash if it still equals expected.
func (r *UserRepository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, expected, next string) (ok bool, err error) {
	query := `
		UPDATE users
		SET password_hash = $1, updated_at = $2
		WHERE id = $3 AND password_hash = $4`

	ctx, end := database.TraceQuery(ctx, "users.UpdatePasswordHash", query)
	defer func() { end(err) }()

	ct, err := r.db.Exec(ctx, query, next, time.Now().UTC(), id, expected)
	if err != nil {
		return false, fmt.Errorf("update password hash: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}

// UpdateAvatar sets the avatar URL.
func (r *UserRepository) UpdateAvatar(ctx context.Context, id uuid.UUID, url string) (*domain.User, error) {
	query := `
		UPDATE users SET avatar_url = $1, updated_at = $2
		WHERE id = $3
		RETURNING ` + userColumns
	return r.scanUser(ctx, "users.UpdateAvatar", id.String(), query, url, time.Now().UTC(), id)
}

// UpdateCoverImage sets the cover image URL.
func (r *UserRepository) UpdateCoverImage(ctx context.Context, id uuid.UUID, url string) (*domain.User, error) {
	query := `
		UPDATE users SET cover_image_url = $1, updated_at = $2
		WHERE id = $3
		RETURNING ` + userColumns
	return r.scanUser(ctx, "users.UpdateCoverImage", id.String(), query, url, time.Now().UTC(), id)
}

// scanUser executes a query expected to return a single user row.
func (r *UserRepository) scanUser(ctx context.Context, op, key, query string, args ...any) (_ *domain.User, err error) {
	ctx, end := database.TraceQuery(ctx, op, query)
	defer func() { end(err) }()

	var u domain.User
	err = r.db.QueryRow(ctx, query, args...).Scan(
		&u.ID,
		&u.FullName,
		&u.Email,
		&u.Username,
		&u.PasswordHash,
		&u.AvatarURL,
		&u.CoverImageURL,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("user", key)
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	return &u, nil
}
