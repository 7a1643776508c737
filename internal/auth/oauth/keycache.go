package oauth

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/go-jose/go-jose/v4"
	"golang.org/x/sync/singleflight"

	"github.com/sangcheol-games/sangcheol-odyssey-api/internal/platform/metrics"
	"github.com/sangcheol-games/sangcheol-odyssey-api/pkg/platform/sentinel"
)

const (
	DefaultKeySetTTL = time.Hour
	maxKeySetBytes   = 1 << 20
	fetchTimeout     = 10 * time.Second
)

// KeySet is a provider's published JSON Web Key Set.
type KeySet struct {
	set jose.JSONWebKeySet
}

// ParseKeySet decodes a JWKS document.
func ParseKeySet(raw []byte) (*KeySet, error) {
	var set jose.JSONWebKeySet
	if err := json.Unmarshal(raw, &set); err != nil {
		return nil, fmt.Errorf("decode key set: %w", err)
	}
	if len(set.Keys) == 0 {
		return nil, fmt.Errorf("key set has no keys")
	}
	return &KeySet{set: set}, nil
}

// Len is the number of keys in the set.
func (ks *KeySet) Len() int { return len(ks.set.Keys) }

// PublicKey returns the RSA verification key for kid. An empty kid is
// accepted only when the set holds exactly one key.
func (ks *KeySet) PublicKey(kid string) (*rsa.PublicKey, error) {
	var candidates []jose.JSONWebKey
	if kid == "" {
		if len(ks.set.Keys) == 1 {
			candidates = ks.set.Keys
		}
	} else {
		candidates = ks.set.Key(kid)
	}
	for _, k := range candidates {
		if k.Use != "" && k.Use != "sig" {
			continue
		}
		if pub, ok := k.Key.(*rsa.PublicKey); ok {
			return pub, nil
		}
	}
	return nil, fmt.Errorf("no RSA signing key for kid %q", kid)
}

// KeyCache caches a provider key set for a fixed TTL after each fetch.
type KeyCache struct {
	url     string
	client  *http.Client
	ttl     time.Duration
	now     func() time.Time
	metrics *metrics.Metrics

	mu        sync.RWMutex
	keys      *KeySet
	expiresAt time.Time
	group     singleflight.Group
}

// KeyCacheOption configures a KeyCache.
type KeyCacheOption func(*KeyCache)

// WithKeyCacheTTL overrides the cache lifetime.
func WithKeyCacheTTL(ttl time.Duration) KeyCacheOption {
	return func(c *KeyCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithKeyCacheHTTPClient overrides the HTTP client used for fetches.
func WithKeyCacheHTTPClient(client *http.Client) KeyCacheOption {
	return func(c *KeyCache) { c.client = client }
}

// WithKeyCacheClock overrides the time source.
func WithKeyCacheClock(now func() time.Time) KeyCacheOption {
	return func(c *KeyCache) { c.now = now }
}

// WithKeyCacheMetrics counts fetches by outcome.
func WithKeyCacheMetrics(m *metrics.Metrics) KeyCacheOption {
	return func(c *KeyCache) { c.metrics = m }
}

func NewKeyCache(url string, opts ...KeyCacheOption) *KeyCache {
	c := &KeyCache{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		ttl:    DefaultKeySetTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached key set, fetching it when absent or expired.
// Concurrent cold-cache callers share one fetch. The shared fetch is detached
// from any single caller's cancellation and bounded by fetchTimeout; a caller
// whose ctx ends stops waiting without aborting it for the others.
func (c *KeyCache) Get(ctx context.Context) (*KeySet, error) {
	c.mu.RLock()
	keys, expiresAt := c.keys, c.expiresAt
	c.mu.RUnlock()
	if keys != nil && c.now().Before(expiresAt) {
		return keys, nil
	}

	ch := c.group.DoChan(c.url, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fetchTimeout)
		defer cancel()
		return c.fetch(fetchCtx)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*KeySet), nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", sentinel.ErrUnavailable, ctx.Err())
	}
}

func (c *KeyCache) fetch(ctx context.Context) (*KeySet, error) {
	keys, err := c.download(ctx)
	if err != nil {
		c.metrics.ObserveKeySetFetch("error")
		return nil, fmt.Errorf("%w: %v", sentinel.ErrUnavailable, err)
	}
	c.metrics.ObserveKeySetFetch("ok")

	c.mu.Lock()
	c.keys = keys
	c.expiresAt = c.now().Add(c.ttl)
	c.mu.Unlock()
	return keys, nil
}

func (c *KeyCache) download(ctx context.Context) (*KeySet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch key set: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch key set: status %d", resp.StatusCode)
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxKeySetBytes))
	if err != nil {
		return nil, fmt.Errorf("read key set: %w", err)
	}
	return ParseKeySet(raw)
}
