package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/utafrali/SocialGo/internal/auth"
	apperrors "github.com/utafrali/SocialGo/pkg/errors"
)

func requireUnauthenticated(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrUnauthenticated), "want UNAUTHENTICATED, got %v", err)
}

func TestSessionManager_IssueThenVerifyAccess(t *testing.T) {
	env := newTestEnv()
	u := env.seedUser("alice", "password-1")

	pair, err := env.manager.Issue(context.Background(), u.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.True(t, pair.RefreshExpiresAt.After(pair.AccessExpiresAt))

	got, err := env.manager.VerifyAccess(context.Background(), pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got)

	fp, ok := env.sessions.get(u.ID)
	require.True(t, ok)
	assert.Equal(t, auth.Fingerprint(pair.RefreshToken), fp)
}

func TestSessionManager_VerifyAccess_Rejections(t *testing.T) {
	env := newTestEnv()
	u := env.seedUser("alice", "password-1")
	pair, err := env.manager.Issue(context.Background(), u.ID)
	require.NoError(t, err)

	for name, tok := range map[string]string{
		"missing":       "",
		"malformed":     "garbage",
		"refresh token": pair.RefreshToken,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := env.manager.VerifyAccess(context.Background(), tok)
			requireUnauthenticated(t, err)
		})
	}
}

func TestSessionManager_VerifyAccess_DoesNotConsultStore(t *testing.T) {
	env := newTestEnv()
	u := env.seedUser("alice", "password-1")
	pair, err := env.manager.Issue(context.Background(), u.ID)
	require.NoError(t, err)

	require.NoError(t, env.manager.Revoke(context.Background(), u.ID))

	got, err := env.manager.VerifyAccess(context.Background(), pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got)
}

func TestSessionManager_RenewRotates(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	u := env.seedUser("alice", "password-1")

	first, err := env.manager.Issue(ctx, u.ID)
	require.NoError(t, err)

	second, err := env.manager.Renew(ctx, first.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	got, err := env.manager.VerifyAccess(ctx, second.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got)

	_, err = env.manager.Renew(ctx, first.RefreshToken)
	requireUnauthenticated(t, err)

	// The failed replay does not disturb the current token.
	_, err = env.manager.Renew(ctx, second.RefreshToken)
	require.NoError(t, err)
}

func TestSessionManager_RenewMissingToken(t *testing.T) {
	env := newTestEnv()
	before := testutil.ToFloat64(sessionEvents.WithLabelValues(sessionRejected))

	_, err := env.manager.Renew(context.Background(), "")
	requireUnauthenticated(t, err)

	assert.Equal(t, before+1, testutil.ToFloat64(sessionEvents.WithLabelValues(sessionRejected)))
}

func TestSessionManager_RenewInvalidSignature(t *testing.T) {
	env := newTestEnv()
	u := env.seedUser("alice", "password-1")

	other := auth.NewTokenManager(auth.TokenConfig{
		AccessSecret: "x", RefreshSecret: "some-other-refresh-secret",
		AccessTTL: time.Minute, RefreshTTL: time.Hour,
	})
	forged, _, err := other.MintRefresh(u.ID)
	require.NoError(t, err)

	_, err = env.manager.Renew(context.Background(), forged)
	requireUnauthenticated(t, err)
}

func TestSessionManager_RenewAccessTokenRejected(t *testing.T) {
	env := newTestEnv()
	u := env.seedUser("alice", "password-1")
	pair, err := env.manager.Issue(context.Background(), u.ID)
	require.NoError(t, err)

	_, err = env.manager.Renew(context.Background(), pair.AccessToken)
	requireUnauthenticated(t, err)
}

func TestSessionManager_RenewUnknownUser(t *testing.T) {
	env := newTestEnv()
	tokens := newTestTokenManager()
	orphan, _, err := tokens.MintRefresh(uuid.New())
	require.NoError(t, err)

	_, err = env.manager.Renew(context.Background(), orphan)
	requireUnauthenticated(t, err)
}

func TestSessionManager_RenewAfterRevoke(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	u := env.seedUser("alice", "password-1")

	pair, err := env.manager.Issue(ctx, u.ID)
	require.NoError(t, err)
	require.NoError(t, env.manager.Revoke(ctx, u.ID))

	_, ok := env.sessions.get(u.ID)
	assert.False(t, ok)

	_, err = env.manager.Renew(ctx, pair.RefreshToken)
	requireUnauthenticated(t, err)
}

func TestSessionManager_IssueInvalidatesPreviousRefresh(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	u := env.seedUser("alice", "password-1")

	first, err := env.manager.Issue(ctx, u.ID)
	require.NoError(t, err)
	_, err = env.manager.Issue(ctx, u.ID)
	require.NoError(t, err)

	_, err = env.manager.Renew(ctx, first.RefreshToken)
	requireUnauthenticated(t, err)
}

func TestSessionManager_ConcurrentRenewExactlyOneWins(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	u := env.seedUser("alice", "password-1")

	pair, err := env.manager.Issue(ctx, u.ID)
	require.NoError(t, err)

	const workers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		rejected  int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.manager.Renew(ctx, pair.RefreshToken)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, apperrors.ErrUnauthenticated):
				rejected++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, workers-1, rejected)
}

func TestSessionManager_LoginRenewLogoutScenario(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	u := env.seedUser("alice", "password-1")

	_, p1, err := env.userSvc.Login(ctx, LoginInput{Username: "alice", Password: "password-1"})
	require.NoError(t, err)

	p2, err := env.manager.Renew(ctx, p1.RefreshToken)
	require.NoError(t, err)

	_, err = env.manager.Renew(ctx, p1.RefreshToken)
	requireUnauthenticated(t, err)

	require.NoError(t, env.userSvc.Logout(ctx, u.ID))

	_, err = env.manager.Renew(ctx, p2.RefreshToken)
	requireUnauthenticated(t, err)
}

func TestSessionManager_ChangeCredential(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	u := env.seedUser("alice", "password-1")
	originalHash := env.users.passwordHash(u.ID)

	err := env.manager.ChangeCredential(ctx, u.ID, "wrong-password", "password-2")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidCredential))
	assert.Equal(t, originalHash, env.users.passwordHash(u.ID))

	require.NoError(t, env.manager.ChangeCredential(ctx, u.ID, "password-1", "password-2"))
	assert.NotEqual(t, originalHash, env.users.passwordHash(u.ID))

	_, _, err = env.userSvc.Login(ctx, LoginInput{Username: "alice", Password: "password-2"})
	require.NoError(t, err)

	_, _, err = env.userSvc.Login(ctx, LoginInput{Username: "alice", Password: "password-1"})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidCredential))
}

func TestSessionManager_ChangeCredentialKeepsRefreshToken(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	u := env.seedUser("alice", "password-1")

	pair, err := env.manager.Issue(ctx, u.ID)
	require.NoError(t, err)
	require.NoError(t, env.manager.ChangeCredential(ctx, u.ID, "password-1", "password-2"))

	_, err = env.manager.Renew(ctx, pair.RefreshToken)
	assert.NoError(t, err)
}

func TestSessionManager_ChangeCredentialValidation(t *testing.T) {
	env := newTestEnv()
	u := env.seedUser("alice", "password-1")

	tests := []struct {
		name        string
		current     string
		newPassword string
	}{
		{"missing current", "", "password-2"},
		{"short new", "password-1", "short"},
		{"unchanged", "password-1", "password-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := env.manager.ChangeCredential(context.Background(), u.ID, tt.current, tt.newPassword)
			assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
		})
	}
}

// --- Store failure paths with testify mocks ---

type mockSessionStore struct {
	mock.Mock
}

func (m *mockSessionStore) Replace(ctx context.Context, userID uuid.UUID, fp string, ttl time.Duration) error {
	return m.Called(ctx, userID, fp, ttl).Error(0)
}

func (m *mockSessionStore) Rotate(ctx context.Context, userID uuid.UUID, expected, next string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, userID, expected, next, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *mockSessionStore) Clear(ctx context.Context, userID uuid.UUID) error {
	return m.Called(ctx, userID).Error(0)
}

func TestSessionManager_RenewStoreFailureIsNotUnauthenticated(t *testing.T) {
	env := newTestEnv()
	u := env.seedUser("alice", "password-1")
	store := &mockSessionStore{}
	tokens := newTestTokenManager()
	m := NewSessionManager(env.users, store, tokens, env.hasher, newTestLogger())

	refresh, _, err := tokens.MintRefresh(u.ID)
	require.NoError(t, err)

	store.On("Rotate", mock.Anything, u.ID, auth.Fingerprint(refresh), mock.AnythingOfType("string"), tokens.RefreshTTL()).
		Return(false, errors.New("connection reset"))

	_, err = m.Renew(context.Background(), refresh)
	require.Error(t, err)
	assert.False(t, errors.Is(err, apperrors.ErrUnauthenticated))
	store.AssertExpectations(t)
}

func TestSessionManager_IssueStoreFailure(t *testing.T) {
	store := &mockSessionStore{}
	m := NewSessionManager(newMemUserRepo(), store, newTestTokenManager(), auth.NewBcryptHasher(bcrypt.MinCost), newTestLogger())

	id := uuid.New()
	store.On("Replace", mock.Anything, id, mock.AnythingOfType("string"), mock.Anything).
		Return(errors.New("connection reset"))

	pair, err := m.Issue(context.Background(), id)
	assert.Nil(t, pair)
	assert.ErrorContains(t, err, "store refresh token")
}
