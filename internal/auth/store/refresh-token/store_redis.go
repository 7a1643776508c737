// Package refreshtoken stores opaque refresh tokens in Redis.
//
// Plaintexts never touch Redis: records are keyed by HMAC-SHA256(pepper,
// plaintext). A per-user set of live hashes backs revoke-all.
package refreshtoken

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sangcheol-games/sangcheol-odyssey-api/internal/auth/models"
	"github.com/sangcheol-games/sangcheol-odyssey-api/internal/platform/metrics"
	platformredis "github.com/sangcheol-games/sangcheol-odyssey-api/internal/platform/redis"
	id "github.com/sangcheol-games/sangcheol-odyssey-api/pkg/domain"
	"github.com/sangcheol-games/sangcheol-odyssey-api/pkg/platform/sentinel"
)

const (
	defaultTokenPrefix = "rt:"
	defaultUserPrefix  = "rtu:"
	// plaintextBytes of entropy per token, before encoding.
	plaintextBytes = 64
	// userSetMargin keeps the per-user set alive past its newest member.
	userSetMargin = 24 * time.Hour
)

// RedisStore implements refresh token issue, rotate and revoke-all.
type RedisStore struct {
	client      redis.UniversalClient
	keys        platformredis.Keyspace
	pepper      []byte
	ttl         time.Duration
	tokenPrefix string
	userPrefix  string
	now         func() time.Time
	metrics     *metrics.Metrics
}

// Option configures a RedisStore.
type Option func(*RedisStore)

// WithKeyPrefixes overrides the token and per-user set key prefixes.
func WithKeyPrefixes(token, user string) Option {
	return func(s *RedisStore) {
		if token != "" {
			s.tokenPrefix = token
		}
		if user != "" {
			s.userPrefix = user
		}
	}
}

// WithKeyspace namespaces keys by environment.
func WithKeyspace(keys platformredis.Keyspace) Option {
	return func(s *RedisStore) { s.keys = keys }
}

// WithClock overrides the time source for iat/exp.
func WithClock(now func() time.Time) Option {
	return func(s *RedisStore) { s.now = now }
}

// WithMetrics records rotation latency on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *RedisStore) { s.metrics = m }
}

// NewRedis builds a store. ttl is the refresh token lifetime.
func NewRedis(client redis.UniversalClient, pepper string, ttl time.Duration, opts ...Option) *RedisStore {
	s := &RedisStore{
		client:      client,
		pepper:      []byte(pepper),
		ttl:         ttl,
		tokenPrefix: defaultTokenPrefix,
		userPrefix:  defaultUserPrefix,
		now:         time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Hash returns the hex HMAC-SHA256 of plaintext under the pepper.
func (s *RedisStore) Hash(plaintext string) string {
	mac := hmac.New(sha256.New, s.pepper)
	mac.Write([]byte(plaintext))
	return hex.EncodeToString(mac.Sum(nil))
}

// TokenKey is the Redis key holding the record for hash.
func (s *RedisStore) TokenKey(hash string) string {
	return s.keys.Key(s.tokenPrefix, hash)
}

// UserKey is the Redis set tracking userID's live hashes.
func (s *RedisStore) UserKey(userID id.UserID) string {
	return s.keys.Key(s.userPrefix, userID.String())
}

// Issue mints a new refresh token for userID and returns its plaintext.
func (s *RedisStore) Issue(ctx context.Context, userID id.UserID) (string, error) {
	raw := make([]byte, plaintextBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	plaintext := base64.RawURLEncoding.EncodeToString(raw)
	hash := s.Hash(plaintext)

	now := s.now()
	record, err := json.Marshal(models.RefreshRecord{
		UserID:    userID.String(),
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(s.ttl).Unix(),
	})
	if err != nil {
		return "", fmt.Errorf("marshal refresh record: %w", err)
	}

	userKey := s.UserKey(userID)
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.TokenKey(hash), record, s.ttl)
	pipe.SAdd(ctx, userKey, hash)
	pipe.Expire(ctx, userKey, s.ttl+userSetMargin)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("store refresh token: %w", err)
	}
	return plaintext, nil
}

// Rotate consumes plaintext and returns its owner. The record is removed with
// GETDEL so two concurrent rotations of one token cannot both succeed.
// Unknown, expired and already-rotated tokens return sentinel.ErrNotFound.
func (s *RedisStore) Rotate(ctx context.Context, plaintext string) (id.UserID, error) {
	start := time.Now()
	defer func() {
		s.metrics.ObserveRefreshRotate(time.Since(start))
	}()

	hash := s.Hash(plaintext)
	raw, err := s.client.GetDel(ctx, s.TokenKey(hash)).Bytes()
	if errors.Is(err, redis.Nil) {
		return id.UserID{}, fmt.Errorf("refresh token: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return id.UserID{}, fmt.Errorf("consume refresh token: %w", err)
	}

	var record models.RefreshRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return id.UserID{}, fmt.Errorf("decode refresh record: %w", sentinel.ErrInvalidState)
	}
	userID, err := id.ParseUserID(record.UserID)
	if err != nil {
		return id.UserID{}, fmt.Errorf("refresh record owner: %w", sentinel.ErrInvalidState)
	}

	if err := s.client.SRem(ctx, s.UserKey(userID), hash).Err(); err != nil {
		return id.UserID{}, fmt.Errorf("untrack refresh token: %w", err)
	}
	return userID, nil
}

// RevokeAll deletes every live refresh token of userID and the tracking set.
func (s *RedisStore) RevokeAll(ctx context.Context, userID id.UserID) error {
	userKey := s.UserKey(userID)
	hashes, err := s.client.SMembers(ctx, userKey).Result()
	if err != nil {
		return fmt.Errorf("list refresh tokens: %w", err)
	}
	if len(hashes) == 0 {
		return nil
	}

	pipe := s.client.Pipeline()
	for _, hash := range hashes {
		pipe.Del(ctx, s.TokenKey(hash))
	}
	pipe.Del(ctx, userKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("revoke refresh tokens: %w", err)
	}
	return nil
}
