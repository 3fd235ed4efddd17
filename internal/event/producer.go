package event

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/SocialGo/internal/domain"
	pkgkafka "github.com/utafrali/SocialGo/pkg/kafka"
	"github.com/utafrali/SocialGo/pkg/logger"
)

// Kafka topic constants for social domain events.
const (
	TopicUserRegistered = "social.user.registered"
	TopicUserLoggedOut  = "social.user.logged_out"
	TopicTweetCreated   = "social.tweet.created"
	TopicTweetUpdated   = "social.tweet.updated"
	TopicTweetDeleted   = "social.tweet.deleted"
)

// Aggregate type constants.
const (
	AggregateTypeUser  = "user"
	AggregateTypeTweet = "tweet"
)

// SourceSocialService identifies events originating from this service.
const SourceSocialService = "social-service"

// UserRegisteredData is the payload for a user.registered event.
type UserRegisteredData struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

// UserLoggedOutData is the payload for a user.logged_out event.
type UserLoggedOutData struct {
	UserID      string    `json:"user_id"`
	LoggedOutAt time.Time `json:"logged_out_at"`
}

// TweetData is the payload for tweet.created and tweet.updated events.
type TweetData struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Content   string    `json:"content"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TweetDeletedData is the payload for a tweet.deleted event.
type TweetDeletedData struct {
	ID      string `json:"id"`
	OwnerID string `json:"owner_id"`
}

// Producer publishes social domain events. A nil publisher turns every
// method into a no-op, which is how KAFKA_ENABLED=false is wired.
type Producer struct {
	kafka  pkgkafka.Publisher
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(kafka pkgkafka.Publisher, logger *slog.Logger) *Producer {
	return &Producer{kafka: kafka, logger: logger}
}

// PublishUserRegistered publishes a user.registered event.
func (p *Producer) PublishUserRegistered(ctx context.Context, user *domain.User) error {
	return p.publish(ctx, TopicUserRegistered, user.ID, AggregateTypeUser, UserRegisteredData{
		ID:       user.ID.String(),
		Username: user.Username,
		Email:    user.Email,
		FullName: user.FullName,
	})
}

// PublishUserLoggedOut publishes a user.logged_out event.
func (p *Producer) PublishUserLoggedOut(ctx context.Context, userID uuid.UUID) error {
	return p.publish(ctx, TopicUserLoggedOut, userID, AggregateTypeUser, UserLoggedOutData{
		UserID:      userID.String(),
		LoggedOutAt: time.Now().UTC(),
	})
}

// PublishTweetCreated publishes a tweet.created event.
func (p *Producer) PublishTweetCreated(ctx context.Context, tweet *domain.Tweet) error {
	return p.publish(ctx, TopicTweetCreated, tweet.ID, AggregateTypeTweet, tweetData(tweet))
}

// PublishTweetUpdated publishes a tweet.updated event.
func (p *Producer) PublishTweetUpdated(ctx context.Context, tweet *domain.Tweet) error {
	return p.publish(ctx, TopicTweetUpdated, tweet.ID, AggregateTypeTweet, tweetData(tweet))
}

// PublishTweetDeleted publishes a tweet.deleted event.
func (p *Producer) PublishTweetDeleted(ctx context.Context, tweetID, ownerID uuid.UUID) error {
	return p.publish(ctx, TopicTweetDeleted, tweetID, AggregateTypeTweet, TweetDeletedData{
		ID:      tweetID.String(),
		OwnerID: ownerID.String(),
	})
}

func tweetData(t *domain.Tweet) TweetData {
	return TweetData{
		ID:        t.ID.String(),
		OwnerID:   t.OwnerID.String(),
		Content:   t.Content,
		UpdatedAt: t.UpdatedAt,
	}
}

func (p *Producer) publish(ctx context.Context, topic string, aggregateID uuid.UUID, aggregateType string, data any) error {
	if p.kafka == nil {
		return nil
	}

	event, err := pkgkafka.NewEvent(topic, aggregateID.String(), aggregateType, SourceSocialService, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	event.WithRequestID(logger.RequestIDFromContext(ctx))

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published event",
		slog.String("topic", topic),
		slog.String("aggregate_id", aggregateID.String()),
	)
	return nil
}
