package http

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/SocialGo/internal/domain"
	apperrors "github.com/utafrali/SocialGo/pkg/errors"
)

type memStore struct {
	mu       sync.Mutex
	users    map[uuid.UUID]domain.User
	sessions map[uuid.UUID]string
	tweets   map[uuid.UUID]domain.Tweet
}

func newMemStore() *memStore {
	return &memStore{
		users:    make(map[uuid.UUID]domain.User),
		sessions: make(map[uuid.UUID]string),
		tweets:   make(map[uuid.UUID]domain.Tweet),
	}
}

// memUsers, memSessions and memTweets view the same store through the
// three repository contracts.
type (
	memUsers    struct{ *memStore }
	memSessions struct{ *memStore }
	memTweets   struct{ *memStore }
)

func (s memUsers) Create(_ context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return apperrors.AlreadyExists("user", "email", u.Email)
		}
		if existing.Username == u.Username {
			return apperrors.AlreadyExists("user", "username", u.Username)
		}
	}
	s.users[u.ID] = *u
	return nil
}

func (s memUsers) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, apperrors.NotFound("user", id.String())
	}
	return &u, nil
}

func (s memUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, apperrors.NotFound("user", email)
}

func (s memUsers) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, apperrors.NotFound("user", username)
}

func (s memUsers) FindConflict(_ context.Context, email, username string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	field := ""
	for _, u := range s.users {
		if u.Email == email {
			return "email", nil
		}
		if u.Username == username {
			field = "username"
		}
	}
	return field, nil
}

func (s memUsers) UpdatePasswordHash(_ context.Context, id uuid.UUID, expected, next string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok || u.PasswordHash != expected {
		return false, nil
	}
	u.PasswordHash = next
	s.users[id] = u
	return true, nil
}

func (s memUsers) UpdateAvatar(_ context.Context, id uuid.UUID, url string) (*domain.User, error) {
	return s.update(id, func(u *domain.User) { u.AvatarURL = url })
}

func (s memUsers) UpdateCoverImage(_ context.Context, id uuid.UUID, url string) (*domain.User, error) {
	return s.update(id, func(u *domain.User) { u.CoverImageURL = url })
}

func (s memUsers) update(id uuid.UUID, fn func(*domain.User)) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, apperrors.NotFound("user", id.String())
	}
	fn(&u)
	s.users[id] = u
	return &u, nil
}

func (s memSessions) Replace(_ context.Context, userID uuid.UUID, fp string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[userID] = fp
	return nil
}

func (s memSessions) Rotate(_ context.Context, userID uuid.UUID, expected, next string, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.sessions[userID]; !ok || current != expected {
		return false, nil
	}
	s.sessions[userID] = next
	return true, nil
}

func (s memSessions) Clear(_ context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
	return nil
}

func (s memTweets) Create(_ context.Context, t *domain.Tweet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tweets[t.ID] = *t
	return nil
}

func (s memTweets) GetByID(_ context.Context, id uuid.UUID) (*domain.Tweet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tweets[id]
	if !ok {
		return nil, apperrors.NotFound("tweet", id.String())
	}
	return &t, nil
}

func (s memTweets) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]domain.Tweet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Tweet, 0)
	for _, t := range s.tweets {
		if t.OwnerID == ownerID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s memTweets) UpdateContent(_ context.Context, id, ownerID uuid.UUID, content string) (*domain.Tweet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tweets[id]
	if !ok || t.OwnerID != ownerID {
		return nil, apperrors.NotFound("tweet", id.String())
	}
	t.Content = content
	t.UpdatedAt = time.Now().UTC()
	s.tweets[id] = t
	return &t, nil
}

func (s memTweets) Delete(_ context.Context, id, ownerID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tweets[id]
	if !ok || t.OwnerID != ownerID {
		return apperrors.NotFound("tweet", id.String())
	}
	delete(s.tweets, id)
	return nil
}
