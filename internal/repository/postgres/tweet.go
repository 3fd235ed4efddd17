package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/utafrali/SocialGo/internal/domain"
	"github.com/utafrali/SocialGo/pkg/database"
	apperrors "github.com/utafrali/SocialGo/pkg/errors"
)

const tweetColumns = `id, owner_id, content, created_at, updated_at`

// TweetRepository implements repository.TweetRepository using PostgreSQL.
type TweetRepository struct {
	db database.DBTX
}

// NewTweetRepository creates a new PostgreSQL-backed tweet repository.
func NewTweetRepository(db database.DBTX) *TweetRepository {
	return &TweetRepository{db: db}
}

// Create inserts a new tweet.
func (r *TweetRepository) Create(ctx context.Context, t *domain.Tweet) (err error) {
	query := `
		INSERT INTO tweets (` + tweetColumns + `)
		VALUES ($1, $2, $3, $4, $5)`

	ctx, end := database.TraceQuery(ctx, "tweets.Create", query)
	defer func() { end(err) }()

	_, err = r.db.Exec(ctx, query, t.ID, t.OwnerID, t.Content, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert tweet: %w", err)
	}
	return nil
}

// GetByID retrieves a tweet by ID.
func (r *TweetRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Tweet, error) {
	query := `SELECT ` + tweetColumns + ` FROM tweets WHERE id = $1`
	return r.scanTweet(ctx, "tweets.GetByID", id, query, id)
}

// ListByOwner returns all tweets of ownerID, newest first.
func (r *TweetRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) (_ []domain.Tweet, err error) {
	query := `
		SELECT ` + tweetColumns + `
		FROM tweets
		WHERE owner_id = $1
		ORDER BY created_at DESC, id DESC`

	ctx, end := database.TraceQuery(ctx, "tweets.ListByOwner", query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list tweets: %w", err)
	}
	defer rows.Close()

	tweets := make([]domain.Tweet, 0)
	for rows.Next() {
		var t domain.Tweet
		if err = rows.Scan(&t.ID, &t.OwnerID, &t.Content, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan tweet: %w", err)
		}
		tweets = append(tweets, t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tweets: %w", err)
	}

	return tweets, nil
}

// UpdateContent changes the content of a tweet. The owner condition keeps a
// tweet deleted or re-owned since it was authorized from being touched.
func (r *TweetRepository) UpdateContent(ctx context.Context, id, ownerID uuid.UUID, content string) (*domain.Tweet, error) {
	query := `
		UPDATE tweets SET content = $1, updated_at = $2
		WHERE id = $3 AND owner_id = $4
		RETURNING ` + tweetColumns
	return r.scanTweet(ctx, "tweets.UpdateContent", id, query, content, time.Now().UTC(), id, ownerID)
}

// Delete removes a tweet owned by ownerID.
func (r *TweetRepository) Delete(ctx context.Context, id, ownerID uuid.UUID) (err error) {
	query := `DELETE FROM tweets WHERE id = $1 AND owner_id = $2`

	ctx, end := database.TraceQuery(ctx, "tweets.Delete", query)
	defer func() { end(err) }()

	ct, err := r.db.Exec(ctx, query, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete tweet: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("tweet", id.String())
	}
	return nil
}

func (r *TweetRepository) scanTweet(ctx context.Context, op string, id uuid.UUID, query string, args ...any) (_ *domain.Tweet, err error) {
	ctx, end := database.TraceQuery(ctx, op, query)
	defer func() { end(err) }()

	var t domain.Tweet
	err = r.db.QueryRow(ctx, query, args...).Scan(&t.ID, &t.OwnerID, &t.Content, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("tweet", id.String())
		}
		return nil, fmt.Errorf("scan tweet: %w", err)
	}
	return &t, nil
}
