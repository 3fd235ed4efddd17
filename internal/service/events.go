package service

import (
	"context"
	"io"

	"github.com/google/uuid"

	"github.com/utafrali/SocialGo/internal/domain"
)

// UserEvents publishes user domain events. Failures are logged, never
// returned to the caller.
type UserEvents interface {
	PublishUserRegistered(ctx context.Context, user *domain.User) error
	PublishUserLoggedOut(ctx context.Context, userID uuid.UUID) error
}

// TweetEvents publishes tweet domain events.
type TweetEvents interface {
	PublishTweetCreated(ctx context.Context, tweet *domain.Tweet) error
	PublishTweetUpdated(ctx context.Context, tweet *domain.Tweet) error
	PublishTweetDeleted(ctx context.Context, tweetID, ownerID uuid.UUID) error
}

// MediaUploader stores an uploaded file on the media host and returns its
// public URL.
type MediaUploader interface {
	Upload(ctx context.Context, src io.Reader, filename, folder string) (string, error)
}
