package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Issuer is the iss claim of every token this service mints.
const Issuer = "social"

// Token kinds, carried in the typ claim so a refresh token can never pass as
// an access token even if both secrets were configured identically.
const (
	KindAccess  = "access"
	KindRefresh = "refresh"
)

// ErrWrongKind is returned when a token of the other kind is presented.
var ErrWrongKind = errors.New("token kind mismatch")

// Claims are the JWT claims of both token kinds. The subject is the user ID
// and the ID (jti) makes every minted token unique.
type Claims struct {
	Kind string `json:"typ"`
	jwt.RegisteredClaims
}

// TokenConfig configures a TokenManager.
type TokenConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// TokenManager mints and verifies HS256 access and refresh tokens, each
// signed with its own secret.
type TokenManager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// NewTokenManager creates a new token manager.
func NewTokenManager(cfg TokenConfig) *TokenManager {
	return &TokenManager{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		now:           time.Now,
	}
}

// AccessTTL returns the access token lifetime.
func (m *TokenManager) AccessTTL() time.Duration { return m.accessTTL }

// RefreshTTL returns the refresh token lifetime.
func (m *TokenManager) RefreshTTL() time.Duration { return m.refreshTTL }

// MintAccess creates a signed access token for userID.
func (m *TokenManager) MintAccess(userID uuid.UUID) (string, time.Time, error) {
	return m.mint(KindAccess, userID, m.accessSecret, m.accessTTL)
}

// MintRefresh creates a signed refresh token for userID.
func (m *TokenManager) MintRefresh(userID uuid.UUID) (string, time.Time, error) {
	return m.mint(KindRefresh, userID, m.refreshSecret, m.refreshTTL)
}

// ParseAccess verifies signature, expiry and kind of an access token and
// returns its subject.
func (m *TokenManager) ParseAccess(tokenStr string) (uuid.UUID, error) {
	return m.parse(tokenStr, KindAccess, m.accessSecret)
}

// ParseRefresh verifies signature, expiry and kind of a refresh token and
// returns its subject.
func (m *TokenManager) ParseRefresh(tokenStr string) (uuid.UUID, error) {
	return m.parse(tokenStr, KindRefresh, m.refreshSecret)
}

func (m *TokenManager) mint(kind string, userID uuid.UUID, secret []byte, ttl time.Duration) (string, time.Time, error) {
	now := m.now()
	expiresAt := now.Add(ttl)
	claims := Claims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID.String(),
			Issuer:    Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign %s token: %w", kind, err)
	}
	return signed, expiresAt, nil
}

func (m *TokenManager) parse(tokenStr, kind string, secret []byte) (uuid.UUID, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims,
		func(*jwt.Token) (any, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("parse %s token: %w", kind, err)
	}
	if claims.Kind != kind {
		return uuid.Nil, fmt.Errorf("parse %s token: %w", kind, ErrWrongKind)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("parse %s token subject: %w", kind, err)
	}
	return userID, nil
}

// Fingerprint returns the SHA-256 hex digest of a token. Only fingerprints
// are persisted.
func Fingerprint(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}
