package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/shiftkeeper/internal/user"
	"github.com/nao1215/shiftkeeper/pkg/middleware"
)

// loginRequest はログインリクエストのJSON構造。
type loginRequest struct {
	// UserName はログイン名。
	UserName string `json:"userName"`
	// Password は平文のパスワード。
	Password string `json:"password"`
}

// loginResponse はログイン成功時の data。利用者の公開ビューにトークンを加える。
type loginResponse struct {
	*user.User
	// Token はBearerトークン。
	Token string `json:"token"`
}

// handleLogin はログインを処理するハンドラを返す。
// 未登録のユーザー名とパスワード違いは同じ401で応答し、どちらの場合もbcryptの照合を1回行う。
func (s *Server) handleLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		// 不正なJSONは入力欠落として扱う
		_ = c.ShouldBindJSON(&req)
		userName := strings.TrimSpace(req.UserName)
		if userName == "" || req.Password == "" {
			middleware.LoginAttemptsTotal.WithLabelValues("missing_fields").Inc()
			respondError(c, http.StatusBadRequest, "Please provide username and password")
			return
		}

		ctx := c.Request.Context()
		if s.limiter != nil {
			allowed, retryAfter, err := s.limiter.Allowed(ctx, userName)
			if err != nil {
				slog.Warn("ログイン試行回数を確認できません", "error", err)
			}
			if !allowed {
				middleware.LoginAttemptsTotal.WithLabelValues("throttled").Inc()
				c.Header("Retry-After", strconv.Itoa(int(retryAfter.Seconds())+1))
				respondError(c, http.StatusTooManyRequests, "Too many login attempts")
				return
			}
		}

		cred, err := s.users.FindCredentialsByUserName(ctx, userName)
		switch {
		case errors.Is(err, user.ErrNotFound):
			s.hasher.VerifyUnknown(req.Password)
			s.rejectLogin(c, userName)
			return
		case err != nil:
			respondStoreError(c, err)
			return
		}
		if !s.hasher.Verify(req.Password, cred.PasswordHash) {
			s.rejectLogin(c, userName)
			return
		}

		token, err := s.tokens.Issue(cred.ID)
		if err != nil {
			respondStoreError(c, err)
			return
		}
		if s.limiter != nil {
			if err := s.limiter.Reset(ctx, userName); err != nil {
				slog.Warn("ログイン失敗回数の消去に失敗しました", "error", err)
			}
		}

		middleware.LoginAttemptsTotal.WithLabelValues("success").Inc()
		slog.Info("ログインしました", "user_id", cred.ID)
		respond(c, http.StatusOK, loginResponse{User: cred.Public(), Token: token})
	}
}

// rejectLogin はログイン失敗を記録して401を返す。
func (s *Server) rejectLogin(c *gin.Context, userName string) {
	middleware.LoginAttemptsTotal.WithLabelValues("invalid_credentials").Inc()
	if s.limiter != nil {
		if _, err := s.limiter.RecordFailure(c.Request.Context(), userName); err != nil {
			slog.Warn("ログイン失敗回数の記録に失敗しました", "error", err)
		}
	}
	respondError(c, http.StatusUnauthorized, "Invalid credentials")
}

// handleMe は認証済みの利用者自身を返すハンドラを返す。
func (s *Server) handleMe() gin.HandlerFunc {
	return func(c *gin.Context) {
		respond(c, http.StatusOK, middleware.CurrentUser(c))
	}
}
