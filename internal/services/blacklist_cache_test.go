package services

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketua/marketplace-backend/internal/apperror"
)

func newTestRedisCache(t *testing.T) (*RedisBlacklistCache, *miniredis.Miniredis) {
	t.Helper()

	server := miniredis.RunT(t)
	cache, err := NewRedisBlacklistCache(context.Background(), "redis://"+server.Addr()+"/0")
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })
	return cache, server
}

func TestRedisBlacklistCacheMarksWithTTL(t *testing.T) {
	ctx := context.Background()
	cache, server := newTestRedisCache(t)

	hit, err := cache.IsBlacklisted(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, cache.MarkBlacklisted(ctx, "jti-1", time.Minute))
	assert.True(t, server.Exists(blacklistKeyPrefix+"jti-1"))
	assert.Equal(t, time.Minute, server.TTL(blacklistKeyPrefix+"jti-1"))

	hit, err = cache.IsBlacklisted(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, hit)

	server.FastForward(time.Minute + time.Second)
	hit, err = cache.IsBlacklisted(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestRedisBlacklistCacheSkipsExpiredTokens(t *testing.T) {
	ctx := context.Background()
	cache, server := newTestRedisCache(t)

	require.NoError(t, cache.MarkBlacklisted(ctx, "gone", 0))
	require.NoError(t, cache.MarkBlacklisted(ctx, "gone", -time.Second))
	assert.False(t, server.Exists(blacklistKeyPrefix+"gone"))
}

func TestRedisBlacklistCacheReportsErrors(t *testing.T) {
	ctx := context.Background()

	_, err := NewRedisBlacklistCache(ctx, "not-a-url")
	assert.Error(t, err)

	cache, server := newTestRedisCache(t)
	addr := server.Addr()
	server.Close()
	_, err = cache.IsBlacklisted(ctx, "jti-1")
	assert.Error(t, err)

	_, err = NewRedisBlacklistCache(ctx, "redis://"+addr)
	assert.Error(t, err)
}

func (s *TokenServiceTestSuite) TestRedisCacheFilledOnBlacklist() {
	cache, server := newTestRedisCache(s.T())
	s.tokens.SetCache(cache)
	user := s.createUser("rick@test.com")

	pair, err := s.tokens.Issue(s.ctx, user)
	s.Require().NoError(err)
	claims, err := s.tokens.signer.Parse(pair.Refresh)
	s.Require().NoError(err)

	s.Require().NoError(s.tokens.Blacklist(s.ctx, pair.Refresh))
	s.True(server.Exists(blacklistKeyPrefix + claims.ID))
	s.Positive(server.TTL(blacklistKeyPrefix + claims.ID))

	_, err = s.tokens.Refresh(s.ctx, pair.Refresh)
	s.True(apperror.HasCode(err, apperror.CodeTokenNotValid))
}
