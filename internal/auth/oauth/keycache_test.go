package oauth

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sangcheol-games/sangcheol-odyssey-api/internal/auth/oauth/oauthtest"
	"github.com/sangcheol-games/sangcheol-odyssey-api/pkg/platform/sentinel"
)

func TestKeyCacheServesFromCacheWithinTTL(t *testing.T) {
	provider := oauthtest.New(t, "client-1")
	now := time.Now()
	cache := NewKeyCache(provider.Server.URL+"/certs",
		WithKeyCacheTTL(time.Minute),
		WithKeyCacheClock(func() time.Time { return now }),
	)

	keys, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, keys.Len())

	_, err = cache.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, provider.KeyFetches())

	now = now.Add(time.Minute + time.Second)
	_, err = cache.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, provider.KeyFetches(), "expired cache refetches")
}

func TestKeyCacheFetchFailure(t *testing.T) {
	provider := oauthtest.New(t, "client-1")
	provider.FailKeys(true)
	cache := NewKeyCache(provider.Server.URL + "/certs")

	_, err := cache.Get(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel.ErrUnavailable)
}

func TestKeyCacheRejectsEmptySet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"keys":[]}`))
	}))
	t.Cleanup(srv.Close)

	_, err := NewKeyCache(srv.URL).Get(context.Background())
	assert.ErrorIs(t, err, sentinel.ErrUnavailable)
}

func TestKeyCacheConcurrentColdStart(t *testing.T) {
	provider := oauthtest.New(t, "client-1")
	cache := NewKeyCache(provider.Server.URL + "/certs")

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			keys, err := cache.Get(context.Background())
			assert.NoError(t, err)
			assert.NotNil(t, keys)
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, provider.KeyFetches(), 16)
	assert.GreaterOrEqual(t, provider.KeyFetches(), 1)
}

func TestKeyCacheCancelledCallerDoesNotFailSharedFetch(t *testing.T) {
	provider := oauthtest.New(t, "client-1")
	resp, err := http.Get(provider.Server.URL + "/certs")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)

	var hits atomic.Int32
	inFlight := make(chan struct{})
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) == 1 {
			close(inFlight)
		}
		<-release
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	cache := NewKeyCache(srv.URL)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := cache.Get(firstCtx)
		firstErr <- err
	}()
	<-inFlight

	secondErr := make(chan error, 1)
	go func() {
		keys, err := cache.Get(context.Background())
		if err == nil && keys.Len() != 1 {
			err = errors.New("unexpected key count")
		}
		secondErr <- err
	}()

	cancelFirst()
	err = <-firstErr
	assert.ErrorIs(t, err, sentinel.ErrUnavailable)

	close(release)
	require.NoError(t, <-secondErr)
	assert.Equal(t, int32(1), hits.Load())
}

func TestKeySetPublicKey(t *testing.T) {
	provider := oauthtest.New(t, "client-1")
	keys, err := NewKeyCache(provider.Server.URL + "/certs").Get(context.Background())
	require.NoError(t, err)

	pub, err := keys.PublicKey(oauthtest.KeyID)
	require.NoError(t, err)
	assert.Equal(t, provider.Key.PublicKey.N, pub.N)

	_, err = keys.PublicKey("other")
	assert.Error(t, err)

	pub, err = keys.PublicKey("")
	require.NoError(t, err, "single-key sets accept a missing kid")
	assert.Equal(t, provider.Key.PublicKey.E, pub.E)
}

func TestParseKeySetInvalid(t *testing.T) {
	_, err := ParseKeySet([]byte("not json"))
	assert.Error(t, err)
}
