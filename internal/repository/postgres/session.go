package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/SocialGo/pkg/database"
	apperrors "github.com/utafrali/SocialGo/pkg/errors"
)

// SessionStore keeps the refresh-token fingerprint in users.refresh_token_hash.
// Expiry is enforced by the token itself, so ttl is ignored.
type SessionStore struct {
	db database.DBTX
}

// NewSessionStore creates a new PostgreSQL-backed session store.
func NewSessionStore(db database.DBTX) *SessionStore {
	return &SessionStore{db: db}
}

// Replace overwrites the stored fingerprint.
func (s *SessionStore) Replace(ctx context.Context, userID uuid.UUID, fingerprint string, _ time.Duration) (err error) {
	query := `UPDATE users SET refresh_token_hash = $1 WHERE id = $2`

	ctx, end := database.TraceQuery(ctx, "sessions.Replace", query)
	defer func() { end(err) }()

	ct, err := s.db.Exec(ctx, query, fingerprint, userID)
	if err != nil {
		return fmt.Errorf("replace refresh token: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("user", userID.String())
	}
	return nil
}

// Rotate swaps expected for next in a single conditional update. Two
// concurrent rotations of the same value cannot both match.
func (s *SessionStore) Rotate(ctx context.Context, userID uuid.UUID, expected, next string, _ time.Duration) (ok bool, err error) {
	query := `
		UPDATE users SET refresh_token_hash = $1
		WHERE id = $2 AND refresh_token_hash = $3`

	ctx, end := database.TraceQuery(ctx, "sessions.Rotate", query)
	defer func() { end(err) }()

	ct, err := s.db.Exec(ctx, query, next, userID, expected)
	if err != nil {
		return false, fmt.Errorf("rotate refresh token: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}

// Clear sets the stored fingerprint to NULL. Clearing an already empty slot
// is not an error.
func (s *SessionStore) Clear(ctx context.Context, userID uuid.UUID) (err error) {
	query := `UPDATE users SET refresh_token_hash = NULL WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "sessions.Clear", query)
	defer func() { end(err) }()

	if _, err = s.db.Exec(ctx, query, userID); err != nil {
		return fmt.Errorf("clear refresh token: %w", err)
	}
	return nil
}
