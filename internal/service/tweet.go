package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/SocialGo/internal/domain"
	"github.com/utafrali/SocialGo/internal/repository"
	apperrors "github.com/utafrali/SocialGo/pkg/errors"
)

// TweetService implements tweet creation, reads and owner-scoped mutation.
type TweetService struct {
	tweets repository.TweetRepository
	events TweetEvents
	logger *slog.Logger
}

// NewTweetService creates a new tweet service.
func NewTweetService(tweets repository.TweetRepository, events TweetEvents, logger *slog.Logger) *TweetService {
	return &TweetService{tweets: tweets, events: events, logger: logger}
}

// Create stores a new tweet owned by ownerID.
func (s *TweetService) Create(ctx context.Context, ownerID uuid.UUID, content string) (*domain.Tweet, error) {
	content, err := domain.NormalizeTweetContent(content)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	tweet := &domain.Tweet{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.tweets.Create(ctx, tweet); err != nil {
		return nil, fmt.Errorf("create tweet: %w", err)
	}

	if err := s.events.PublishTweetCreated(ctx, tweet); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish tweet.created event",
			slog.String("tweet_id", tweet.ID.String()),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "tweet created",
		slog.String("tweet_id", tweet.ID.String()),
		slog.String("owner_id", ownerID.String()),
	)
	return tweet, nil
}

// Get retrieves a tweet by ID.
func (s *TweetService) Get(ctx context.Context, id uuid.UUID) (*domain.Tweet, error) {
	tweet, err := s.tweets.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get tweet: %w", err)
	}
	return tweet, nil
}

// ListByOwner returns the owner's tweets, newest first.
func (s *TweetService) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.Tweet, error) {
	tweets, err := s.tweets.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list tweets: %w", err)
	}
	return tweets, nil
}

// Update replaces the content of a tweet owned by actor.
func (s *TweetService) Update(ctx context.Context, actor, id uuid.UUID, content string) (*domain.Tweet, error) {
	content, err := domain.NormalizeTweetContent(content)
	if err != nil {
		return nil, err
	}

	if _, err := s.loadForMutation(ctx, actor, id); err != nil {
		return nil, err
	}

	tweet, err := s.tweets.UpdateContent(ctx, id, actor, content)
	if err != nil {
		return nil, fmt.Errorf("update tweet: %w", err)
	}

	if err := s.events.PublishTweetUpdated(ctx, tweet); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish tweet.updated event",
			slog.String("tweet_id", id.String()),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "tweet updated", slog.String("tweet_id", id.String()))
	return tweet, nil
}

// Delete removes a tweet owned by actor.
func (s *TweetService) Delete(ctx context.Context, actor, id uuid.UUID) error {
	if _, err := s.loadForMutation(ctx, actor, id); err != nil {
		return err
	}

	if err := s.tweets.Delete(ctx, id, actor); err != nil {
		return fmt.Errorf("delete tweet: %w", err)
	}

	if err := s.events.PublishTweetDeleted(ctx, id, actor); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish tweet.deleted event",
			slog.String("tweet_id", id.String()),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "tweet deleted", slog.String("tweet_id", id.String()))
	return nil
}

// loadForMutation loads the tweet and applies the ownership rule.
func (s *TweetService) loadForMutation(ctx context.Context, actor, id uuid.UUID) (*domain.Tweet, error) {
	tweet, err := s.tweets.GetByID(ctx, id)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("get tweet: %w", err)
	}
	if err := domain.AuthorizeMutation("tweet", id.String(), tweet, actor); err != nil {
		return nil, err
	}
	return tweet, nil
}
