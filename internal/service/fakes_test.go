package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/utafrali/SocialGo/internal/auth"
	"github.com/utafrali/SocialGo/internal/domain"
	apperrors "github.com/utafrali/SocialGo/pkg/errors"
)

// --- In-memory user repository ---

type memUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]domain.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[uuid.UUID]domain.User)}
}

func (r *memUserRepo) Create(_ context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return apperrors.AlreadyExists("user", "email", u.Email)
		}
		if existing.Username == u.Username {
			return apperrors.AlreadyExists("user", "username", u.Username)
		}
	}
	r.users[u.ID] = *u
	return nil
}

func (r *memUserRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, apperrors.NotFound("user", id.String())
	}
	return &u, nil
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, apperrors.NotFound("user", email)
}

func (r *memUserRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, apperrors.NotFound("user", username)
}

func (r *memUserRepo) FindConflict(_ context.Context, email, username string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	field := ""
	for _, u := range r.users {
		if u.Email == email {
			return "email", nil
		}
		if u.Username == username {
			field = "username"
		}
	}
	return field, nil
}

func (r *memUserRepo) UpdatePasswordHash(_ context.Context, id uuid.UUID, expected, next string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok || u.PasswordHash != expected {
		return false, nil
	}
	u.PasswordHash = next
	r.users[id] = u
	return true, nil
}

func (r *memUserRepo) UpdateAvatar(_ context.Context, id uuid.UUID, url string) (*domain.User, error) {
	return r.update(id, func(u *domain.User) { u.AvatarURL = url })
}

func (r *memUserRepo) UpdateCoverImage(_ context.Context, id uuid.UUID, url string) (*domain.User, error) {
	return r.update(id, func(u *domain.User) { u.CoverImageURL = url })
}

func (r *memUserRepo) update(id uuid.UUID, fn func(*domain.User)) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, apperrors.NotFound("user", id.String())
	}
	fn(&u)
	r.users[id] = u
	return &u, nil
}

func (r *memUserRepo) passwordHash(id uuid.UUID) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.users[id].PasswordHash
}

// --- In-memory session store with compare-and-swap ---

type memSessionStore struct {
	mu    sync.Mutex
	slots map[uuid.UUID]string
}

func newMemSessionStore() *memSessionStore {
	return &memSessionStore{slots: make(map[uuid.UUID]string)}
}

func (s *memSessionStore) Replace(_ context.Context, userID uuid.UUID, fp string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[userID] = fp
	return nil
}

func (s *memSessionStore) Rotate(_ context.Context, userID uuid.UUID, expected, next string, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.slots[userID]
	if !ok || current != expected {
		return false, nil
	}
	s.slots[userID] = next
	return true, nil
}

func (s *memSessionStore) Clear(_ context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.slots, userID)
	return nil
}

func (s *memSessionStore) get(userID uuid.UUID) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fp, ok := s.slots[userID]
	return fp, ok
}

// --- In-memory tweet repository ---

type memTweetRepo struct {
	mu     sync.Mutex
	tweets map[uuid.UUID]domain.Tweet
	writes int
}

func newMemTweetRepo() *memTweetRepo {
	return &memTweetRepo{tweets: make(map[uuid.UUID]domain.Tweet)}
}

func (r *memTweetRepo) Create(_ context.Context, t *domain.Tweet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tweets[t.ID] = *t
	r.writes++
	return nil
}

func (r *memTweetRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Tweet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tweets[id]
	if !ok {
		return nil, apperrors.NotFound("tweet", id.String())
	}
	return &t, nil
}

func (r *memTweetRepo) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]domain.Tweet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Tweet, 0)
	for _, t := range r.tweets {
		if t.OwnerID == ownerID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memTweetRepo) UpdateContent(_ context.Context, id, ownerID uuid.UUID, content string) (*domain.Tweet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tweets[id]
	if !ok || t.OwnerID != ownerID {
		return nil, apperrors.NotFound("tweet", id.String())
	}
	t.Content = content
	t.UpdatedAt = time.Now().UTC()
	r.tweets[id] = t
	r.writes++
	return &t, nil
}

func (r *memTweetRepo) Delete(_ context.Context, id, ownerID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tweets[id]
	if !ok || t.OwnerID != ownerID {
		return apperrors.NotFound("tweet", id.String())
	}
	delete(r.tweets, id)
	r.writes++
	return nil
}

func (r *memTweetRepo) writeCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writes
}

// --- Events and media ---

type recordedEvents struct {
	mu     sync.Mutex
	topics []string
	err    error
}

func (e *recordedEvents) record(topic string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.topics = append(e.topics, topic)
	return e.err
}

func (e *recordedEvents) PublishUserRegistered(context.Context, *domain.User) error {
	return e.record("user.registered")
}

func (e *recordedEvents) PublishUserLoggedOut(context.Context, uuid.UUID) error {
	return e.record("user.logged_out")
}

func (e *recordedEvents) PublishTweetCreated(context.Context, *domain.Tweet) error {
	return e.record("tweet.created")
}

func (e *recordedEvents) PublishTweetUpdated(context.Context, *domain.Tweet) error {
	return e.record("tweet.updated")
}

func (e *recordedEvents) PublishTweetDeleted(context.Context, uuid.UUID, uuid.UUID) error {
	return e.record("tweet.deleted")
}

type fakeMedia struct {
	mu      sync.Mutex
	uploads []string
	failOn  string
}

func (m *fakeMedia) Upload(_ context.Context, src io.Reader, filename, folder string) (string, error) {
	if _, err := io.Copy(io.Discard, src); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if folder == m.failOn {
		return "", apperrors.Upstream("media upload failed", fmt.Errorf("host down"))
	}
	m.uploads = append(m.uploads, folder+"/"+filename)
	return "https://media.test/" + folder + "/" + filename, nil
}

// --- Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestTokenManager() *auth.TokenManager {
	return auth.NewTokenManager(auth.TokenConfig{
		AccessSecret:  "access-secret-for-tests-0123456789",
		RefreshSecret: "refresh-secret-for-tests-0123456789",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    240 * time.Hour,
	})
}

type testEnv struct {
	users    *memUserRepo
	sessions *memSessionStore
	tweets   *memTweetRepo
	events   *recordedEvents
	media    *fakeMedia
	hasher   *auth.BcryptHasher
	manager  *SessionManager
	userSvc  *UserService
	tweetSvc *TweetService
}

func newTestEnv() *testEnv {
	env := &testEnv{
		users:    newMemUserRepo(),
		sessions: newMemSessionStore(),
		tweets:   newMemTweetRepo(),
		events:   &recordedEvents{},
		media:    &fakeMedia{},
		hasher:   auth.NewBcryptHasher(bcrypt.MinCost),
	}
	logger := newTestLogger()
	env.manager = NewSessionManager(env.users, env.sessions, newTestTokenManager(), env.hasher, logger)
	env.userSvc = NewUserService(env.users, env.manager, env.hasher, env.media, env.events, logger)
	env.tweetSvc = NewTweetService(env.tweets, env.events, logger)
	return env
}

// seedUser stores a user with the given username and password directly.
func (e *testEnv) seedUser(username, password string) *domain.User {
	hash, err := e.hasher.Hash(password)
	if err != nil {
		panic(err)
	}
	now := time.Now().UTC()
	u := &domain.User{
		ID:           uuid.New(),
		FullName:     username,
		Email:        username + "@example.com",
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := e.users.Create(context.Background(), u); err != nil {
		panic(err)
	}
	return u
}
