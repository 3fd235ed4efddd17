package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	apperrors "github.com/utafrali/SocialGo/pkg/errors"
)

// MaxTweetLength is the maximum number of characters in a tweet.
const MaxTweetLength = 280

// Tweet is a short post. OwnerID is set at creation and never changes.
type Tweet struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   uuid.UUID `json:"owner_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OwnerRef implements Owned.
func (t Tweet) OwnerRef() uuid.UUID { return t.OwnerID }

// NormalizeTweetContent trims surrounding whitespace and checks that the
// result is non-empty and within MaxTweetLength characters.
func NormalizeTweetContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", apperrors.InvalidInput("content is required")
	}
	if n := utf8.RuneCountInString(content); n > MaxTweetLength {
		return "", apperrors.InvalidInput(fmt.Sprintf("content must be at most %d characters, got %d", MaxTweetLength, n))
	}
	return content, nil
}
