// app/seenmw.go
package app

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"research_portal_api/authz"
)

type SeenRecorder interface {
	TouchUserSeen(ctx context.Context, p authz.Principal) error
}

// TouchLastSeen mirrors the caller into the users table at most once per
// throttle window.
func TouchLastSeen(users SeenRecorder, rdb *redis.Client, throttle time.Duration, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := principal(c)
		if !ok || p.UID == "" {
			c.Next()
			return
		}

		key := "user:lastseen:" + p.UID
		first, err := rdb.SetNX(c.Request.Context(), key, "1", throttle).Result()
		if err != nil {
			log.Warn("last seen throttle", zap.String("uid", p.UID), zap.Error(err))
		}
		if first || err != nil {
			// 忽略错误，不阻塞请求
			if err := users.TouchUserSeen(c.Request.Context(), p); err != nil {
				log.Warn("touch user", zap.String("uid", p.UID), zap.Error(err))
			}
		}
		c.Next()
	}
}
