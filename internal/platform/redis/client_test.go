package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sangcheol-games/sangcheol-odyssey-api/internal/platform/config"
)

func TestNew(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := New(context.Background(), config.RedisConfig{URL: "redis://" + mr.Addr() + "/0", PoolSize: 2})
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.Health(context.Background()))
}

func TestNewRejectsBadURL(t *testing.T) {
	_, err := New(context.Background(), config.RedisConfig{URL: "not a url"})
	require.Error(t, err)

	_, err = New(context.Background(), config.RedisConfig{})
	require.Error(t, err)
}

func TestKeyspace(t *testing.T) {
	assert.Equal(t, "prod:rt:abc", NewKeyspace("prod").Key("rt:", "abc"))
	assert.Equal(t, "rt:abc", NewKeyspace("").Key("rt:", "abc"))
}
