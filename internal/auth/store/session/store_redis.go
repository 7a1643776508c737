// Package session persists polling login sessions in Redis.
//
// A session is written once as pending, then overwritten once with a terminal
// state and a short TTL so the client has a bounded window to poll the result.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sangcheol-games/sangcheol-odyssey-api/internal/auth/models"
	platformredis "github.com/sangcheol-games/sangcheol-odyssey-api/internal/platform/redis"
	"github.com/sangcheol-games/sangcheol-odyssey-api/pkg/platform/sentinel"
)

const keyPrefix = "authsess:"

const (
	DefaultTTL      = 600 * time.Second
	DefaultReadyTTL = 30 * time.Second
	DefaultErrorTTL = 120 * time.Second
)

// RedisStore stores AuthSession records as JSON strings with a TTL.
type RedisStore struct {
	client   redis.UniversalClient
	keys     platformredis.Keyspace
	ttl      time.Duration
	readyTTL time.Duration
	errorTTL time.Duration
}

// Option configures a RedisStore.
type Option func(*RedisStore)

// WithKeyspace namespaces keys by environment.
func WithKeyspace(keys platformredis.Keyspace) Option {
	return func(s *RedisStore) { s.keys = keys }
}

// WithTTLs overrides the pending, ready and error lifetimes. Zero keeps the default.
func WithTTLs(pending, ready, failed time.Duration) Option {
	return func(s *RedisStore) {
		if pending > 0 {
			s.ttl = pending
		}
		if ready > 0 {
			s.readyTTL = ready
		}
		if failed > 0 {
			s.errorTTL = failed
		}
	}
}

func NewRedis(client redis.UniversalClient, opts ...Option) *RedisStore {
	s := &RedisStore{
		client:   client,
		ttl:      DefaultTTL,
		readyTTL: DefaultReadyTTL,
		errorTTL: DefaultErrorTTL,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Key is the Redis key of session id.
func (s *RedisStore) Key(sessionID string) string {
	return s.keys.Key(keyPrefix, sessionID)
}

// Create writes a new pending session.
func (s *RedisStore) Create(ctx context.Context, sess *models.AuthSession) error {
	return s.write(ctx, sess, s.ttl)
}

// Find loads a session. Missing or expired sessions return sentinel.ErrNotFound.
func (s *RedisStore) Find(ctx context.Context, sessionID string) (*models.AuthSession, error) {
	raw, err := s.client.Get(ctx, s.Key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("auth session %s: %w", sessionID, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load auth session: %w", err)
	}
	var sess models.AuthSession
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("decode auth session: %w", sentinel.ErrInvalidState)
	}
	sess.ID = sessionID
	return &sess, nil
}

// Complete marks the session ready with result.
func (s *RedisStore) Complete(ctx context.Context, sessionID string, result *models.TokenResponse) error {
	// Read-modify-write without WATCH: only the callback writes terminal state.
	sess, err := s.Find(ctx, sessionID)
	if err != nil {
		return err
	}
	sess.Status = models.SessionStatusReady
	sess.Result = result
	sess.Error = ""
	return s.write(ctx, sess, s.readyTTL)
}

// Fail marks the session errored with message.
func (s *RedisStore) Fail(ctx context.Context, sessionID, message string) error {
	sess, err := s.Find(ctx, sessionID)
	if err != nil {
		return err
	}
	sess.Status = models.SessionStatusError
	sess.Result = nil
	sess.Error = message
	return s.write(ctx, sess, s.errorTTL)
}

func (s *RedisStore) write(ctx context.Context, sess *models.AuthSession, ttl time.Duration) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal auth session: %w", err)
	}
	if err := s.client.Set(ctx, s.Key(sess.ID), raw, ttl).Err(); err != nil {
		return fmt.Errorf("store auth session: %w", err)
	}
	return nil
}
