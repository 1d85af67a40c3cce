package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/shiftkeeper/internal/auth"
	"github.com/nao1215/shiftkeeper/internal/user"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// testSecret はテスト用のJWT署名鍵。
const testSecret = "test_secret_key"

// memoryFinder はIDで利用者を引くテスト用の PrincipalFinder。
type memoryFinder map[string]*user.User

func (m memoryFinder) FindByID(_ context.Context, id string) (*user.User, error) {
	u, ok := m[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	return u, nil
}

// setupProtectedRouter は本物の auth.Gate を使った保護ルートを構築する。
// handlerCalled はハンドラーが実行されたかを記録する。
func setupProtectedRouter(t *testing.T, users memoryFinder, handlerCalled *bool) (*gin.Engine, *auth.TokenService) {
	t.Helper()

	tokens, err := auth.NewTokenService([]byte(testSecret), time.Hour)
	if err != nil {
		t.Fatalf("トークンサービスの生成に失敗: %v", err)
	}

	router := gin.New()
	router.Use(Protect(auth.NewGate(tokens, users)))
	router.GET("/protected", func(c *gin.Context) {
		*handlerCalled = true
		u := CurrentUser(c)
		fromCtx, _ := auth.PrincipalFromContext(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"success": true, "data": u, "sameAsContext": fromCtx == u})
	})
	return router, tokens
}

func doProtectedRequest(router *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func parseBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("レスポンスボディのパースに失敗: %v", err)
	}
	return body
}

// TestProtect は保護ルートのミドルウェアを検証する。
func TestProtect(t *testing.T) {
	t.Parallel()

	existing := &user.User{ID: "u-1", Name: "Test User", UserName: "testuser", Email: "test@example.com"}
	users := memoryFinder{existing.ID: existing}

	t.Run("拒否時は401とメッセージを返しハンドラーを実行しないこと", func(t *testing.T) {
		t.Parallel()

		called := false
		router, tokens := setupProtectedRouter(t, users, &called)
		ghost, err := tokens.Issue("507f1f77bcf86cd799439011")
		if err != nil {
			t.Fatalf("トークンの発行に失敗: %v", err)
		}

		tests := []struct {
			name    string
			header  string
			wantMsg string
		}{
			{name: "ヘッダーなし", header: "", wantMsg: "Not authorized, no token"},
			{name: "スキームなし", header: "InvalidFormat", wantMsg: "Not authorized, token failed"},
			{name: "不明なスキーム", header: "InvalidFormat token", wantMsg: "Not authorized, token failed"},
			{name: "不正なトークン", header: "Bearer invalid_token_here", wantMsg: "Not authorized, token failed"},
			{name: "存在しない利用者", header: "Bearer " + ghost, wantMsg: "Not authorized, user not found"},
		}
		for _, tt := range tests {
			w := doProtectedRequest(router, tt.header)
			if w.Code != http.StatusUnauthorized {
				t.Errorf("%s: ステータスコード = %d, want %d", tt.name, w.Code, http.StatusUnauthorized)
			}
			body := parseBody(t, w)
			if body["success"] != false {
				t.Errorf("%s: success = %v, want false", tt.name, body["success"])
			}
			if body["error"] != tt.wantMsg {
				t.Errorf("%s: error = %q, want %q", tt.name, body["error"], tt.wantMsg)
			}
		}
		if called {
			t.Error("拒否したリクエストでハンドラーが実行された")
		}
	})

	t.Run("有効なトークンなら利用者を設定してハンドラーを実行すること", func(t *testing.T) {
		t.Parallel()

		called := false
		router, tokens := setupProtectedRouter(t, users, &called)
		token, err := tokens.Issue(existing.ID)
		if err != nil {
			t.Fatalf("トークンの発行に失敗: %v", err)
		}

		for _, scheme := range []string{"Bearer", "bearer", "BEARER"} {
			w := doProtectedRequest(router, scheme+" "+token)
			if w.Code != http.StatusOK {
				t.Fatalf("%s: ステータスコード = %d, want %d", scheme, w.Code, http.StatusOK)
			}

			body := parseBody(t, w)
			data, ok := body["data"].(map[string]any)
			if !ok {
				t.Fatalf("%s: data がオブジェクトではない: %v", scheme, body["data"])
			}
			if data["_id"] != existing.ID || data["userName"] != existing.UserName {
				t.Errorf("%s: data = %v", scheme, data)
			}
			if _, exists := data["password"]; exists {
				t.Errorf("%s: password フィールドが含まれている", scheme)
			}
			if body["sameAsContext"] != true {
				t.Errorf("%s: リクエストコンテキストに同じ利用者が格納されていない", scheme)
			}
		}
		if !called {
			t.Error("ハンドラーが実行されていない")
		}
	})
}

// TestCurrentUser はCurrentUserを検証する。
func TestCurrentUser(t *testing.T) {
	t.Parallel()

	t.Run("Protectを通っていない場合はnilを返すこと", func(t *testing.T) {
		t.Parallel()

		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		if got := CurrentUser(c); got != nil {
			t.Errorf("CurrentUser() = %v, want nil", got)
		}
	})

	t.Run("異なる型が格納されている場合はnilを返すこと", func(t *testing.T) {
		t.Parallel()

		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Set(principalKey, "not-a-user")
		if got := CurrentUser(c); got != nil {
			t.Errorf("CurrentUser() = %v, want nil", got)
		}
	})
}
