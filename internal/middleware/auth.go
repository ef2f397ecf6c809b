package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mx-space/wsgateway/internal/pkg/response"
)

// AdminAuth guards admin endpoints with a static bearer key. An empty key
// disables the endpoints entirely.
func AdminAuth(adminToken string) gin.HandlerFunc {
	want := []byte(adminToken)
	return func(c *gin.Context) {
		if len(want) == 0 {
			response.NotFound(c)
			return
		}
		got := []byte(extractToken(c))
		if len(got) == 0 || subtle.ConstantTimeCompare(got, want) != 1 {
			response.Unauthorized(c)
			return
		}
		c.Next()
	}
}

func extractToken(c *gin.Context) string {
	return NormalizeToken(c.GetHeader("Authorization"))
}

// NormalizeToken trims spaces and strips optional Bearer prefix.
func NormalizeToken(raw string) string {
	token := strings.TrimSpace(raw)
	if token == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		return strings.TrimSpace(token[7:])
	}
	return token
}
