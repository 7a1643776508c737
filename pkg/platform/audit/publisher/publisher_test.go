package publisher

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "github.com/sangcheol-games/sangcheol-odyssey-api/pkg/domain"
	audit "github.com/sangcheol-games/sangcheol-odyssey-api/pkg/platform/audit"
	"github.com/sangcheol-games/sangcheol-odyssey-api/pkg/platform/audit/store/memory"
)

func TestPublisherInline(t *testing.T) {
	ctx := context.Background()

	t.Run("stamps time and category", func(t *testing.T) {
		store := memory.NewInMemoryStore()
		pub := NewPublisher(store)
		userID := id.NewUserID()

		before := time.Now()
		require.NoError(t, pub.Emit(ctx, audit.NewEvent(audit.EventAuthFailed, userID)))

		events, err := pub.List(ctx, userID)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.False(t, events[0].Timestamp.Before(before))
		assert.Equal(t, audit.CategorySecurity, events[0].Category)
	})

	t.Run("keeps caller timestamp", func(t *testing.T) {
		store := memory.NewInMemoryStore()
		pub := NewPublisher(store)
		userID := id.NewUserID()
		at := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

		ev := audit.NewEvent(audit.EventUserCreated, userID)
		ev.Timestamp = at
		require.NoError(t, pub.Emit(ctx, ev))

		events, err := pub.List(ctx, userID)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, at, events[0].Timestamp)
	})

	t.Run("orders events per user", func(t *testing.T) {
		store := memory.NewInMemoryStore()
		pub := NewPublisher(store)
		alice, bob := id.NewUserID(), id.NewUserID()

		for _, action := range []audit.AuditEvent{audit.EventUserCreated, audit.EventNicknameSet, audit.EventTokenIssued} {
			require.NoError(t, pub.Emit(ctx, audit.NewEvent(action, alice)))
		}
		require.NoError(t, pub.Emit(ctx, audit.NewEvent(audit.EventIdentityLinked, bob)))

		assert.Equal(t, []string{"user_created", "nickname_set", "token_issued"}, store.Actions(alice))
		assert.Equal(t, []string{"identity_linked"}, store.Actions(bob))
	})

	t.Run("list needs a readable store", func(t *testing.T) {
		pub := NewPublisher(&blockingStore{release: closedChan()})
		_, err := pub.List(ctx, id.NewUserID())
		assert.ErrorIs(t, err, ErrListUnsupported)
	})
}

func TestPublisherAsync(t *testing.T) {
	ctx := context.Background()

	t.Run("delivers in the background", func(t *testing.T) {
		store := memory.NewInMemoryStore()
		pub := NewPublisher(store, WithAsyncBuffer(10))
		defer pub.Close()
		userID := id.NewUserID()

		require.NoError(t, pub.Emit(ctx, audit.NewEvent(audit.EventIdentityLinked, userID)))

		require.Eventually(t, func() bool {
			return len(store.Actions(userID)) == 1
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("close drains the buffer", func(t *testing.T) {
		store := memory.NewInMemoryStore()
		pub := NewPublisher(store, WithAsyncBuffer(100))
		userID := id.NewUserID()

		for range 10 {
			require.NoError(t, pub.Emit(ctx, audit.NewEvent(audit.EventTokenRefreshed, userID)))
		}
		pub.Close()
		pub.Close()

		assert.Len(t, store.Actions(userID), 10)
	})

	t.Run("full buffer rejects instead of blocking", func(t *testing.T) {
		store := &blockingStore{release: make(chan struct{})}
		pub := NewPublisher(store, WithAsyncBuffer(1))
		ev := audit.NewEvent(audit.EventUserCreated, id.NewUserID())

		// The worker holds the first event; the second fills the buffer.
		require.NoError(t, pub.Emit(ctx, ev))
		require.Eventually(t, store.started.Load, time.Second, 5*time.Millisecond)
		require.NoError(t, pub.Emit(ctx, ev))

		assert.ErrorIs(t, pub.Emit(ctx, ev), ErrBufferFull)

		close(store.release)
		pub.Close()
	})

	t.Run("cancelled context", func(t *testing.T) {
		pub := NewPublisher(memory.NewInMemoryStore(), WithAsyncBuffer(1))
		defer pub.Close()
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		err := pub.Emit(cancelled, audit.NewEvent(audit.EventUserCreated, id.NewUserID()))
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("store failures are logged", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		pub := NewPublisher(failingStore{}, WithAsyncBuffer(1), WithLogger(logger))

		require.NoError(t, pub.Emit(ctx, audit.NewEvent(audit.EventSessionsRevoked, id.NewUserID())))
		pub.Close()

		assert.Contains(t, buf.String(), "failed to deliver audit event")
		assert.Contains(t, buf.String(), "sessions_revoked")
	})
}

type blockingStore struct {
	started atomic.Bool
	release chan struct{}
}

func (s *blockingStore) Append(_ context.Context, _ audit.Event) error {
	s.started.Store(true)
	<-s.release
	return nil
}

type failingStore struct{}

func (failingStore) Append(context.Context, audit.Event) error {
	return errors.New("broker unavailable")
}

func closedChan() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
