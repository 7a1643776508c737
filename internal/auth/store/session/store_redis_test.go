package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/sangcheol-games/sangcheol-odyssey-api/internal/auth/models"
	platformredis "github.com/sangcheol-games/sangcheol-odyssey-api/internal/platform/redis"
	"github.com/sangcheol-games/sangcheol-odyssey-api/pkg/platform/sentinel"
)

type SessionStoreSuite struct {
	suite.Suite
	mr    *miniredis.Miniredis
	store *RedisStore
}

func TestSessionStoreSuite(t *testing.T) {
	suite.Run(t, new(SessionStoreSuite))
}

func (s *SessionStoreSuite) SetupTest() {
	s.mr = miniredis.RunT(s.T())
	client := redis.NewClient(&redis.Options{Addr: s.mr.Addr()})
	s.T().Cleanup(func() { _ = client.Close() })
	s.store = NewRedis(client, WithKeyspace(platformredis.NewKeyspace("dev")))
}

func pending(id string) *models.AuthSession {
	return &models.AuthSession{
		ID:           id,
		Status:       models.SessionStatusPending,
		CodeVerifier: "verifier",
		Nonce:        "nonce",
		CreatedAt:    time.Now().Unix(),
	}
}

func (s *SessionStoreSuite) TestCreateAndFind() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, pending("sid-1")))

	s.Equal(DefaultTTL, s.mr.TTL("dev:authsess:sid-1"))

	got, err := s.store.Find(ctx, "sid-1")
	s.Require().NoError(err)
	s.Equal("sid-1", got.ID)
	s.Equal(models.SessionStatusPending, got.Status)
	s.Equal("verifier", got.CodeVerifier)
	s.Equal("nonce", got.Nonce)
	s.Nil(got.Result)
}

func (s *SessionStoreSuite) TestFindUnknown() {
	_, err := s.store.Find(context.Background(), "missing")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *SessionStoreSuite) TestCompleteShortensTTL() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, pending("sid-2")))

	result := &models.TokenResponse{AccessToken: "at", RefreshToken: "rt", TokenType: "bearer", ExpiresIn: 3600, IsNewUser: true}
	s.Require().NoError(s.store.Complete(ctx, "sid-2", result))

	s.Equal(DefaultReadyTTL, s.mr.TTL("dev:authsess:sid-2"))
	got, err := s.store.Find(ctx, "sid-2")
	s.Require().NoError(err)
	s.Equal(models.SessionStatusReady, got.Status)
	s.Equal(result.AccessToken, got.Result.AccessToken)
	s.Equal(result.RefreshToken, got.Result.RefreshToken)
	s.True(got.Result.IsNewUser)
	s.Equal("verifier", got.CodeVerifier)
}

func (s *SessionStoreSuite) TestFail() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, pending("sid-3")))
	s.Require().NoError(s.store.Fail(ctx, "sid-3", "google_error:access_denied"))

	s.Equal(DefaultErrorTTL, s.mr.TTL("dev:authsess:sid-3"))
	got, err := s.store.Find(ctx, "sid-3")
	s.Require().NoError(err)
	s.Equal(models.SessionStatusError, got.Status)
	s.Equal("google_error:access_denied", got.Error)
}

func (s *SessionStoreSuite) TestTerminalWritesRequireSession() {
	ctx := context.Background()
	s.ErrorIs(s.store.Complete(ctx, "gone", &models.TokenResponse{}), sentinel.ErrNotFound)
	s.ErrorIs(s.store.Fail(ctx, "gone", "x"), sentinel.ErrNotFound)
}

func (s *SessionStoreSuite) TestSessionExpires() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, pending("sid-4")))
	s.mr.FastForward(DefaultTTL + time.Second)

	_, err := s.store.Find(ctx, "sid-4")
	s.ErrorIs(err, sentinel.ErrNotFound)
}
