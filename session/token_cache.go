package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"research_portal_api/apperr"
	"research_portal_api/authz"
	"research_portal_api/identity"
)

// RevokeWindow is how long a deleted user stays locked out. Firebase ID
// tokens live one hour, so every token issued before the deletion has
// expired by then.
const RevokeWindow = time.Hour

// TokenCache remembers verified bearer tokens so a token is checked against
// the identity provider once per TTL. Keys hold a hash of the token, never
// the token itself.
type TokenCache struct {
	rdb *redis.Client
	ttl time.Duration
	now func() time.Time
}

func NewTokenCache(rdb *redis.Client, ttl time.Duration) *TokenCache {
	return &TokenCache{rdb: rdb, ttl: ttl, now: time.Now}
}

type cachedToken struct {
	Principal authz.Principal `json:"p"`
	ExpiresAt int64           `json:"exp"`
}

func tokenHash(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func key(hash string) string       { return fmt.Sprintf("auth:tok:%s", hash) }
func userSetKey(uid string) string { return fmt.Sprintf("auth:user_tokens:%s", uid) }
func revokedKey(uid string) string { return fmt.Sprintf("auth:revoked:%s", uid) }

// Get returns the cached verification of token. ok is false on a miss.
func (s *TokenCache) Get(ctx context.Context, token string) (identity.Verified, bool, error) {
	b, err := s.rdb.Get(ctx, key(tokenHash(token))).Bytes()
	if errors.Is(err, redis.Nil) {
		return identity.Verified{}, false, nil
	}
	if err != nil {
		return identity.Verified{}, false, err
	}
	var ct cachedToken
	if err := json.Unmarshal(b, &ct); err != nil {
		return identity.Verified{}, false, err
	}
	exp := time.Unix(ct.ExpiresAt, 0)
	if !s.now().Before(exp) {
		return identity.Verified{}, false, nil
	}
	return identity.Verified{Principal: ct.Principal, ExpiresAt: exp}, true, nil
}

// Put caches v until the earlier of the cache TTL and the token's expiry.
func (s *TokenCache) Put(ctx context.Context, token string, v identity.Verified) error {
	ttl := s.ttl
	if left := v.ExpiresAt.Sub(s.now()); left < ttl {
		ttl = left
	}
	if ttl <= 0 {
		return nil
	}
	b, _ := json.Marshal(cachedToken{Principal: v.Principal, ExpiresAt: v.ExpiresAt.Unix()})
	h := tokenHash(token)
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, key(h), b, ttl)
	pipe.SAdd(ctx, userSetKey(v.Principal.UID), h)
	pipe.Expire(ctx, userSetKey(v.Principal.UID), s.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

// RevokeAllForUser drops every cached token of uid and locks the user out
// for RevokeWindow, e.g. after the user is deleted. Otherwise a token that
// is still valid upstream would verify again and re-create the user row.
func (s *TokenCache) RevokeAllForUser(ctx context.Context, uid string) error {
	hashes, err := s.rdb.SMembers(ctx, userSetKey(uid)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	pipe := s.rdb.TxPipeline()
	for _, h := range hashes {
		pipe.Del(ctx, key(h))
	}
	pipe.Del(ctx, userSetKey(uid))
	pipe.Set(ctx, revokedKey(uid), s.now().Unix(), RevokeWindow)
	_, err = pipe.Exec(ctx)
	return err
}

// Revoked reports whether uid is inside its lock-out window.
func (s *TokenCache) Revoked(ctx context.Context, uid string) (bool, error) {
	n, err := s.rdb.Exists(ctx, revokedKey(uid)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// CachingVerifier consults the cache before the wrapped Verifier. Cache
// errors fall through to full verification. A freshly verified token of a
// revoked user is rejected and not cached.
type CachingVerifier struct {
	Next  identity.Verifier
	Cache *TokenCache
	// OnCacheError observes Redis failures; may be nil.
	OnCacheError func(error)
}

func (c *CachingVerifier) Verify(ctx context.Context, token string) (identity.Verified, error) {
	v, ok, err := c.Cache.Get(ctx, token)
	if err != nil {
		c.report(err)
	} else if ok {
		return v, nil
	}
	v, err = c.Next.Verify(ctx, token)
	if err != nil {
		return identity.Verified{}, err
	}
	revoked, err := c.Cache.Revoked(ctx, v.Principal.UID)
	if err != nil {
		c.report(err)
	} else if revoked {
		return identity.Verified{}, apperr.Unauthenticated("session revoked")
	}
	if err := c.Cache.Put(ctx, token, v); err != nil {
		c.report(err)
	}
	return v, nil
}

func (c *CachingVerifier) report(err error) {
	if c.OnCacheError != nil {
		c.OnCacheError(err)
	}
}
