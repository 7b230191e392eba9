package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"research_portal_api/apperr"
	"research_portal_api/authz"
	"research_portal_api/identity"
)

func newCache(t *testing.T, ttl time.Duration) (*TokenCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewTokenCache(rdb, ttl), mr
}

type countingVerifier struct {
	calls int
	v     identity.Verified
	err   error
}

func (c *countingVerifier) Verify(context.Context, string) (identity.Verified, error) {
	c.calls++
	return c.v, c.err
}

func verified(uid string, exp time.Time) identity.Verified {
	return identity.Verified{Principal: authz.Principal{UID: uid, Role: authz.RoleStudent}, ExpiresAt: exp}
}

func TestTokenCache_PutGet(t *testing.T) {
	ctx := context.Background()
	c, mr := newCache(t, 5*time.Minute)

	_, ok, err := c.Get(ctx, "tok")
	require.NoError(t, err)
	assert.False(t, ok)

	v := verified("u1", time.Now().Add(time.Hour))
	require.NoError(t, c.Put(ctx, "tok", v))

	got, ok, err := c.Get(ctx, "tok")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "u1", got.Principal.UID)

	assert.Equal(t, 5*time.Minute, mr.TTL(key(tokenHash("tok"))))
	for _, k := range mr.Keys() {
		assert.NotContains(t, k, "tok:tok")
	}
}

func TestTokenCache_TTLBoundedByExpiry(t *testing.T) {
	ctx := context.Background()
	c, mr := newCache(t, time.Hour)

	require.NoError(t, c.Put(ctx, "tok", verified("u1", time.Now().Add(90*time.Second))))
	ttl := mr.TTL(key(tokenHash("tok")))
	assert.LessOrEqual(t, ttl, 90*time.Second)
	assert.Greater(t, ttl, 80*time.Second)

	require.NoError(t, c.Put(ctx, "old", verified("u1", time.Now().Add(-time.Second))))
	assert.False(t, mr.Exists(key(tokenHash("old"))))
}

func TestTokenCache_RevokeAllForUser(t *testing.T) {
	ctx := context.Background()
	c, _ := newCache(t, time.Hour)
	exp := time.Now().Add(time.Hour)

	require.NoError(t, c.Put(ctx, "a", verified("u1", exp)))
	require.NoError(t, c.Put(ctx, "b", verified("u1", exp)))
	require.NoError(t, c.Put(ctx, "c", verified("u2", exp)))

	require.NoError(t, c.RevokeAllForUser(ctx, "u1"))

	for tok, want := range map[string]bool{"a": false, "b": false, "c": true} {
		_, ok, err := c.Get(ctx, tok)
		require.NoError(t, err)
		assert.Equal(t, want, ok, tok)
	}
}

func TestCachingVerifier(t *testing.T) {
	ctx := context.Background()
	c, _ := newCache(t, time.Hour)
	next := &countingVerifier{v: verified("u1", time.Now().Add(time.Hour))}
	cv := &CachingVerifier{Next: next, Cache: c}

	for i := 0; i < 3; i++ {
		got, err := cv.Verify(ctx, "tok")
		require.NoError(t, err)
		assert.Equal(t, "u1", got.Principal.UID)
	}
	assert.Equal(t, 1, next.calls)
}

func TestCachingVerifier_DoesNotCacheFailures(t *testing.T) {
	ctx := context.Background()
	c, _ := newCache(t, time.Hour)
	next := &countingVerifier{err: apperr.Unauthenticated("invalid token")}
	cv := &CachingVerifier{Next: next, Cache: c}

	_, err := cv.Verify(ctx, "tok")
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
	_, err = cv.Verify(ctx, "tok")
	assert.Error(t, err)
	assert.Equal(t, 2, next.calls)
}

func TestCachingVerifier_RedisDownFallsThrough(t *testing.T) {
	ctx := context.Background()
	c, mr := newCache(t, time.Hour)
	mr.Close()

	var reported []error
	next := &countingVerifier{v: verified("u1", time.Now().Add(time.Hour))}
	cv := &CachingVerifier{Next: next, Cache: c, OnCacheError: func(err error) { reported = append(reported, err) }}

	got, err := cv.Verify(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.Principal.UID)
	assert.NotEmpty(t, reported)
	assert.False(t, errors.Is(reported[0], redis.Nil))
}

func TestCachingVerifier_RevokedUserLockedOut(t *testing.T) {
	ctx := context.Background()
	c, mr := newCache(t, time.Hour)
	next := &countingVerifier{v: verified("u1", time.Now().Add(time.Hour))}
	cv := &CachingVerifier{Next: next, Cache: c}

	_, err := cv.Verify(ctx, "tok")
	require.NoError(t, err)
	require.NoError(t, c.RevokeAllForUser(ctx, "u1"))

	// the upstream token is still valid, the user stays out
	_, err = cv.Verify(ctx, "tok")
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
	assert.False(t, mr.Exists(key(tokenHash("tok"))))
	assert.Equal(t, RevokeWindow, mr.TTL(revokedKey("u1")))

	other := &CachingVerifier{Next: &countingVerifier{v: verified("u2", time.Now().Add(time.Hour))}, Cache: c}
	_, err = other.Verify(ctx, "tok-2")
	assert.NoError(t, err)

	mr.FastForward(RevokeWindow + time.Second)
	_, err = cv.Verify(ctx, "tok")
	assert.NoError(t, err)
}
