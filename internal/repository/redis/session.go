package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/utafrali/SocialGo/pkg/database"
)

const keyPrefix = "social:session:"

// rotateScript swaps KEYS[1] from ARGV[1] to ARGV[2] only if it still holds
// ARGV[1]. ARGV[3] is the new TTL in milliseconds; zero keeps no expiry.
var rotateScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) ~= ARGV[1] then
	return 0
end
local ttl = tonumber(ARGV[3])
if ttl > 0 then
	redis.call("SET", KEYS[1], ARGV[2], "PX", ttl)
else
	redis.call("SET", KEYS[1], ARGV[2])
end
return 1
`)

// SessionStore implements repository.SessionStore using Redis. Each user has
// one key holding the current refresh-token fingerprint, expiring with it.
type SessionStore struct {
	client *redis.Client
}

// NewSessionStore creates a new Redis-backed session store.
func NewSessionStore(client *redis.Client) *SessionStore {
	return &SessionStore{client: client}
}

func sessionKey(userID uuid.UUID) string {
	return keyPrefix + userID.String()
}

// Replace stores fingerprint with the given TTL.
func (s *SessionStore) Replace(ctx context.Context, userID uuid.UUID, fingerprint string, ttl time.Duration) (err error) {
	ctx, end := database.Trace(ctx, database.SystemRedis, "sessions.Replace", "SET")
	defer func() { end(err) }()

	if err = s.client.Set(ctx, sessionKey(userID), fingerprint, ttl).Err(); err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}
	return nil
}

// Rotate runs the compare-and-set script. Redis executes scripts atomically.
func (s *SessionStore) Rotate(ctx context.Context, userID uuid.UUID, expected, next string, ttl time.Duration) (ok bool, err error) {
	ctx, end := database.Trace(ctx, database.SystemRedis, "sessions.Rotate", "EVALSHA rotate")
	defer func() { end(err) }()

	swapped, err := rotateScript.Run(ctx, s.client, []string{sessionKey(userID)}, expected, next, ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("redis rotate session: %w", err)
	}
	return swapped == 1, nil
}

// Clear deletes the user's session key.
func (s *SessionStore) Clear(ctx context.Context, userID uuid.UUID) (err error) {
	ctx, end := database.Trace(ctx, database.SystemRedis, "sessions.Clear", "DEL")
	defer func() { end(err) }()

	if err = s.client.Del(ctx, sessionKey(userID)).Err(); err != nil {
		return fmt.Errorf("redis del session: %w", err)
	}
	return nil
}
