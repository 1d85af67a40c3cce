package middleware

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
)

// CORSPolicy はクロスオリジンリクエストの許可方針。
type CORSPolicy struct {
	// AllowedOrigins は常に許可するオリジン。
	AllowedOrigins []string
	// Production が false の場合は localhost と 127.0.0.1 を許可する。
	// true の場合は Azure Static Web Apps（*.azurestaticapps.net）を許可する。
	Production bool
}

func (p CORSPolicy) allows(origin string, allowList map[string]struct{}) bool {
	if _, ok := allowList[origin]; ok {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	host := u.Hostname()
	if p.Production {
		return strings.HasSuffix(host, ".azurestaticapps.net")
	}
	return host == "localhost" || host == "127.0.0.1"
}

// CORS はポリシーに従ってクロスオリジンリクエストを許可するGinミドルウェアを返す。
// Originヘッダーのないリクエスト（curlなど）はそのまま通す。
// 許可されないオリジンには403を返す。
func CORS(policy CORSPolicy) gin.HandlerFunc {
	originsSet := make(map[string]struct{}, len(policy.AllowedOrigins))
	for _, o := range policy.AllowedOrigins {
		originsSet[o] = struct{}{}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" {
			c.Next()
			return
		}

		if !policy.allows(origin, originsSet) {
			slog.Warn("CORSで拒否しました", "origin", origin, "production", policy.Production)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"error":   "CORS error: Origin not allowed",
				"origin":  origin,
			})
			return
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Header("Access-Control-Max-Age", "86400")
		c.Header("Vary", "Origin")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
