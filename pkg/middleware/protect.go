package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/shiftkeeper/internal/auth"
	"github.com/nao1215/shiftkeeper/internal/user"
)

// principalKey はGinコンテキスト上で認証済みの利用者を格納するキー。
const principalKey = "user"

// Checker はAuthorizationヘッダーを検査して判定結果を返す。auth.Gate が実装する。
type Checker interface {
	Check(ctx context.Context, authorizationHeader string) auth.Result
}

// Protect は保護されたルートの前段に置くGinミドルウェアを返す。
// 拒否した場合は401と {success:false, error} を返してハンドラーを実行しない。
// 通過した場合は利用者を "user" キーとリクエストコンテキストに格納し、自身は何も書き込まない。
func Protect(gate Checker) gin.HandlerFunc {
	return func(c *gin.Context) {
		res := gate.Check(c.Request.Context(), c.GetHeader("Authorization"))
		if !res.Allowed() {
			AuthRejectionsTotal.WithLabelValues(res.Reject.String()).Inc()
			slog.Warn("認証を拒否しました",
				"path", c.Request.URL.Path,
				"remote_addr", c.ClientIP(),
				"reason", res.Reject.String(),
				"error", res.Err,
			)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   res.Reject.Message(),
			})
			return
		}

		c.Set(principalKey, res.Principal)
		c.Request = c.Request.WithContext(auth.WithPrincipal(c.Request.Context(), res.Principal))
		c.Next()
	}
}

// CurrentUser はGinコンテキストから認証済みの利用者を取得する。
// Protect ミドルウェアが事前に適用されている必要がある。
func CurrentUser(c *gin.Context) *user.User {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil
	}
	u, _ := v.(*user.User)
	return u
}
