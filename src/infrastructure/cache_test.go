package infrastructure

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"video-linker/src/domain"
)

func newTestCache(t *testing.T, cfg CacheConfig) *TranscriptCache {
	t.Helper()
	c := NewTranscriptCache(cfg, nil)
	t.Cleanup(func() { c.Close() })
	return c
}

func sampleTranscript(id string) *domain.VideoTranscript {
	return &domain.VideoTranscript{
		VideoID: id,
		Summary: "summary",
		Source:  domain.SourceYouTube,
		Segments: []domain.Segment{
			{Start: 0, End: 30, Text: "hello", DisplayTime: "00:00:00"},
		},
	}
}

func TestTranscriptCacheGetSet(t *testing.T) {
	c := newTestCache(t, CacheConfig{TTL: time.Minute})
	ctx := context.Background()

	_, ok := c.Get(ctx, "vid:30")
	assert.False(t, ok)

	c.Set(ctx, "vid:30", sampleTranscript("vid"))
	got, ok := c.Get(ctx, "vid:30")
	require.True(t, ok)
	assert.Equal(t, sampleTranscript("vid"), got)

	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}

func TestTranscriptCacheExpiry(t *testing.T) {
	c := newTestCache(t, CacheConfig{TTL: 10 * time.Millisecond})
	ctx := context.Background()

	c.Set(ctx, "vid:30", sampleTranscript("vid"))
	time.Sleep(20 * time.Millisecond)
	_, ok := c.Get(ctx, "vid:30")
	assert.False(t, ok)
}

func TestTranscriptCacheEviction(t *testing.T) {
	c := newTestCache(t, CacheConfig{TTL: time.Minute, MaxEntries: 2})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		c.Set(ctx, fmt.Sprintf("vid%d", i), sampleTranscript(fmt.Sprintf("vid%d", i)))
		time.Sleep(time.Millisecond)
	}

	_, ok := c.Get(ctx, "vid0")
	assert.False(t, ok, "самая старая запись должна быть вытеснена")
	_, ok = c.Get(ctx, "vid2")
	assert.True(t, ok)
}

func TestTranscriptCacheUnreachableRedis(t *testing.T) {
	c := newTestCache(t, CacheConfig{RedisURL: "redis://127.0.0.1:1/0", TTL: time.Minute})
	assert.Nil(t, c.rdb)

	c.Set(context.Background(), "vid:30", sampleTranscript("vid"))
	_, ok := c.Get(context.Background(), "vid:30")
	assert.True(t, ok)
}

func TestTranscriptCacheInvalidRedisURL(t *testing.T) {
	c := newTestCache(t, CacheConfig{RedisURL: "::bad::"})
	assert.Nil(t, c.rdb)
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, CacheKey("a", "b"), CacheKey("a", "b"))
	assert.NotEqual(t, CacheKey("a", "b"), CacheKey("a|b", ""))
	assert.Len(t, CacheKey("x"), len("vl:")+24)
}

func TestTranscriptCacheCloseIdempotent(t *testing.T) {
	c := NewTranscriptCache(CacheConfig{}, nil)
	assert.NoError(t, c.Close())
	assert.NoError(t, c.Close())
}
