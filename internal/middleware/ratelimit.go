package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	pkgredis "github.com/mx-space/wsgateway/internal/pkg/redis"
	"github.com/mx-space/wsgateway/internal/pkg/response"
	"go.uber.org/zap"
)

const (
	rateLimitMax    = 10
	rateLimitWindow = time.Minute
)

// RateLimit caps requests per client IP within a fixed window, counted in
// Redis so the cap holds across instances. With rc nil it is a no-op.
func RateLimit(rc *pkgredis.Client, scope string, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rc == nil {
			c.Next()
			return
		}

		ip := c.ClientIP()
		if ip == "" {
			c.Next()
			return
		}

		window := time.Now().Unix() / int64(rateLimitWindow/time.Second)
		key := fmt.Sprintf("wsgateway:rate_limit:%s:%s:%d", scope, ip, window)

		count, err := rc.IncrWindow(c.Request.Context(), key, rateLimitWindow+time.Second)
		if err != nil {
			if log != nil {
				log.Warn("rate limit check failed", zap.String("scope", scope), zap.Error(err))
			}
			c.Next()
			return
		}

		if count > rateLimitMax {
			c.Header("Retry-After", fmt.Sprint(int(rateLimitWindow/time.Second)))
			response.TooManyRequests(c)
			return
		}

		c.Next()
	}
}
