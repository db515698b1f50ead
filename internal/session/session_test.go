package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/homely-api/internal/redisx"
)

func TestMemoryStore_SelectAndExpire(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.Minute)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	_, ok, err := s.Selected(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Select(ctx, "a", "123 Main St"))
	addr, ok, err := s.Selected(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "123 Main St", addr)

	_, ok, _ = s.Selected(ctx, "b")
	assert.False(t, ok, "sessions are isolated")

	now = now.Add(2 * time.Minute)
	_, ok, _ = s.Selected(ctx, "a")
	assert.False(t, ok)

	require.NoError(t, s.Select(ctx, "b", "42 Elm Ave"))
	assert.NotContains(t, s.m, "a", "expired entries are swept on write")
}

func TestRedisStore_RoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := redisx.New(mr.Addr(), "", 0)
	defer rc.Close()
	s := &RedisStore{Redis: rc, TTL: time.Hour}
	ctx := context.Background()

	_, ok, err := s.Selected(ctx, "sid")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Select(ctx, "sid", "123 Main St"))
	addr, ok, err := s.Selected(ctx, "sid")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "123 Main St", addr)
	assert.Equal(t, time.Hour, mr.TTL("homely:session:sid"))

	mr.FastForward(2 * time.Hour)
	_, ok, err = s.Selected(ctx, "sid")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSequencer_LatestWins(t *testing.T) {
	s := NewSequencer()
	first := s.Begin("sid")
	second := s.Begin("sid")
	other := s.Begin("other")

	assert.False(t, s.Latest("sid", first))
	assert.True(t, s.Latest("sid", second))
	assert.True(t, s.Latest("other", other))

	s.Done("sid", first)
	assert.True(t, s.Latest("sid", second), "finishing a stale token leaves the latest alone")

	s.Done("sid", second)
	assert.False(t, s.Latest("sid", first))
	assert.False(t, s.Latest("sid", second))
}
