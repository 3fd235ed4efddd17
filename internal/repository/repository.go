package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/SocialGo/internal/domain"
)

// UserRepository defines the interface for user persistence operations.
type UserRepository interface {
	// Create inserts a new user. A duplicate email or username yields
	// AlreadyExists naming the conflicting field.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by their unique identifier.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// GetByEmail retrieves a user by normalized email address.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// GetByUsername retrieves a user by normalized username.
	GetByUsername(ctx context.Context, username string) (*domain.User, error)

	// FindConflict reports which of email or username is already taken,
	// returning "email", "username" or "" when both are free.
	FindConflict(ctx context.Context, email, username string) (string, error)

	// UpdatePasswordHash replaces the password hash only if it still equals
	// expected. It reports whether the swap happened.
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, expected, next string) (bool, error)

	// UpdateAvatar sets the avatar URL and returns the updated user.
	UpdateAvatar(ctx context.Context, id uuid.UUID, url string) (*domain.User, error)

	// UpdateCoverImage sets the cover image URL and returns the updated user.
	UpdateCoverImage(ctx context.Context, id uuid.UUID, url string) (*domain.User, error)
}

// SessionStore holds the single refresh-token fingerprint of each user.
// Implementations must make Rotate an atomic compare-and-swap.
type SessionStore interface {
	// Replace stores fingerprint as the user's only valid refresh value.
	Replace(ctx context.Context, userID uuid.UUID, fingerprint string, ttl time.Duration) error

	// Rotate swaps expected for next and reports whether expected was the
	// value on file. A false result means the presented token is stale.
	Rotate(ctx context.Context, userID uuid.UUID, expected, next string, ttl time.Duration) (bool, error)

	// Clear removes the user's refresh value.
	Clear(ctx context.Context, userID uuid.UUID) error
}

// TweetRepository defines the interface for tweet persistence operations.
type TweetRepository interface {
	// Create inserts a new tweet.
	Create(ctx context.Context, tweet *domain.Tweet) error

	// GetByID retrieves a tweet by its identifier.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Tweet, error)

	// ListByOwner returns the owner's tweets, newest first.
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.Tweet, error)

	// UpdateContent changes the content of a tweet owned by ownerID.
	UpdateContent(ctx context.Context, id, ownerID uuid.UUID, content string) (*domain.Tweet, error)

	// Delete removes a tweet owned by ownerID.
	Delete(ctx context.Context, id, ownerID uuid.UUID) error
}
