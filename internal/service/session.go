package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/utafrali/SocialGo/internal/auth"
	"github.com/utafrali/SocialGo/internal/domain"
	"github.com/utafrali/SocialGo/internal/repository"
	apperrors "github.com/utafrali/SocialGo/pkg/errors"
	"github.com/utafrali/SocialGo/pkg/logger"
)

// minPasswordLength is the minimum password length in characters.
const minPasswordLength = 8

// SessionManager issues, verifies, rotates and revokes session tokens and
// changes credentials. Each user has at most one valid refresh token: its
// fingerprint is mirrored in the session store and every issue or renewal
// replaces it.
type SessionManager struct {
	users     repository.UserRepository
	sessions  repository.SessionStore
	tokens    *auth.TokenManager
	passwords auth.PasswordHasher
	logger    *slog.Logger
}

// NewSessionManager creates a new session manager.
func NewSessionManager(
	users repository.UserRepository,
	sessions repository.SessionStore,
	tokens *auth.TokenManager,
	passwords auth.PasswordHasher,
	logger *slog.Logger,
) *SessionManager {
	return &SessionManager{
		users:     users,
		sessions:  sessions,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// AccessTTL is the lifetime of minted access tokens.
func (m *SessionManager) AccessTTL() time.Duration { return m.tokens.AccessTTL() }

// RefreshTTL is the lifetime of minted refresh tokens.
func (m *SessionManager) RefreshTTL() time.Duration { return m.tokens.RefreshTTL() }

// Issue mints a fresh token pair for userID and stores the refresh
// fingerprint, replacing any previous one.
func (m *SessionManager) Issue(ctx context.Context, userID uuid.UUID) (*domain.TokenPair, error) {
	pair, fingerprint, err := m.mint(userID)
	if err != nil {
		return nil, err
	}

	if err := m.sessions.Replace(ctx, userID, fingerprint, m.tokens.RefreshTTL()); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	sessionEvents.WithLabelValues(sessionIssued).Inc()
	return pair, nil
}

// VerifyAccess checks the signature and expiry of an access token and
// returns its subject. The store is not consulted.
func (m *SessionManager) VerifyAccess(ctx context.Context, token string) (uuid.UUID, error) {
	if token == "" {
		return uuid.Nil, apperrors.Unauthenticated("access token is required")
	}

	userID, err := m.tokens.ParseAccess(token)
	if err != nil {
		logger.FromContext(ctx).DebugContext(ctx, "access token rejected", slog.String("reason", err.Error()))
		return uuid.Nil, apperrors.Unauthenticated("invalid or expired access token")
	}
	return userID, nil
}

// Renew exchanges a refresh token for a new pair. The presented token must be
// present, validly signed, unexpired, belong to an existing user and match
// the fingerprint on file. The swap to the new fingerprint is a single
// compare-and-swap, so of two renewals racing on one token only one wins.
func (m *SessionManager) Renew(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	if refreshToken == "" {
		return nil, m.reject(ctx, "refresh token is required", nil)
	}

	userID, err := m.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return nil, m.reject(ctx, "invalid or expired refresh token", err)
	}

	if _, err := m.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, m.reject(ctx, "refresh token subject no longer exists", err)
		}
		return nil, fmt.Errorf("get user for token refresh: %w", err)
	}

	pair, fingerprint, err := m.mint(userID)
	if err != nil {
		return nil, err
	}

	swapped, err := m.sessions.Rotate(ctx, userID, auth.Fingerprint(refreshToken), fingerprint, m.tokens.RefreshTTL())
	if err != nil {
		return nil, fmt.Errorf("rotate refresh token: %w", err)
	}
	if !swapped {
		return nil, m.reject(ctx, "refresh token has been rotated or revoked", nil)
	}

	sessionEvents.WithLabelValues(sessionRenewed).Inc()
	m.logger.InfoContext(ctx, "tokens refreshed", slog.String("user_id", userID.String()))
	return pair, nil
}

// Revoke clears the stored refresh fingerprint so no outstanding refresh
// token can be renewed.
func (m *SessionManager) Revoke(ctx context.Context, userID uuid.UUID) error {
	if err := m.sessions.Clear(ctx, userID); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	sessionEvents.WithLabelValues(sessionRevoked).Inc()
	return nil
}

// ChangeCredential replaces the password of userID after verifying the
// current one. On mismatch nothing is written. Outstanding refresh tokens
// stay valid.
func (m *SessionManager) ChangeCredential(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error {
	if currentPassword == "" {
		return apperrors.InvalidInput("current password is required")
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	if currentPassword == newPassword {
		return apperrors.InvalidInput("new password must be different from current password")
	}

	user, err := m.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user for password change: %w", err)
	}

	ok, err := m.passwords.Compare(user.PasswordHash, currentPassword)
	if err != nil {
		return fmt.Errorf("verify current password: %w", err)
	}
	if !ok {
		return apperrors.InvalidCredential("current password is incorrect")
	}

	hashed, err := m.passwords.Hash(newPassword)
	if err != nil {
		return err
	}

	swapped, err := m.users.UpdatePasswordHash(ctx, userID, user.PasswordHash, hashed)
	if err != nil {
		return fmt.Errorf("update user password: %w", err)
	}
	if !swapped {
		// Another change landed between the compare and the write.
		return apperrors.InvalidCredential("current password is incorrect")
	}

	m.logger.InfoContext(ctx, "password changed", slog.String("user_id", userID.String()))
	return nil
}

// Authenticate checks a password for the user found by email, or by username
// when no email is given, and returns the user. Unknown users and wrong
// passwords are indistinguishable.
func (m *SessionManager) Authenticate(ctx context.Context, email, username, password string) (*domain.User, error) {
	var (
		user *domain.User
		err  error
	)
	if email = domain.NormalizeEmail(email); email != "" {
		user, err = m.users.GetByEmail(ctx, email)
	} else {
		user, err = m.users.GetByUsername(ctx, domain.NormalizeUsername(username))
	}
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.InvalidCredential("invalid username/email or password")
		}
		return nil, fmt.Errorf("get user for login: %w", err)
	}

	ok, err := m.passwords.Compare(user.PasswordHash, password)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, apperrors.InvalidCredential("invalid username/email or password")
	}
	return user, nil
}

func (m *SessionManager) mint(userID uuid.UUID) (*domain.TokenPair, string, error) {
	access, accessExp, err := m.tokens.MintAccess(userID)
	if err != nil {
		return nil, "", fmt.Errorf("mint access token: %w", err)
	}
	refresh, refreshExp, err := m.tokens.MintRefresh(userID)
	if err != nil {
		return nil, "", fmt.Errorf("mint refresh token: %w", err)
	}

	return &domain.TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, auth.Fingerprint(refresh), nil
}

func (m *SessionManager) reject(ctx context.Context, msg string, cause error) error {
	sessionEvents.WithLabelValues(sessionRejected).Inc()
	attrs := []any{slog.String("reason", msg)}
	if cause != nil {
		attrs = append(attrs, slog.String("error", cause.Error()))
	}
	logger.FromContext(ctx).InfoContext(ctx, "refresh rejected", attrs...)
	return apperrors.Unauthenticated(msg)
}

func validatePassword(password string) error {
	if utf8.RuneCountInString(password) < minPasswordLength {
		return apperrors.InvalidInput(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	return nil
}
