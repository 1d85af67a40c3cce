package server

import (
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/nao1215/shiftkeeper/internal/ratelimit"
	"github.com/redis/go-redis/v9"
)

// TestHandleLogin はログインを検証する。
func TestHandleLogin(t *testing.T) {
	t.Parallel()

	s := setupTestServer(t)
	created, _ := createTestUser(t, s, "testuser", "password123")

	t.Run("正しい資格情報でトークンと利用者を返すこと", func(t *testing.T) {
		t.Parallel()

		w := doRequest(s, http.MethodPost, "/api/auth/login", "", map[string]string{
			"userName": "testuser",
			"password": "password123",
		})
		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード = %d, want %d (body: %s)", w.Code, http.StatusOK, w.Body.String())
		}

		body := parseJSON(t, w)
		if body["success"] != true {
			t.Errorf("success = %v, want true", body["success"])
		}
		data := dataOf(t, body)
		if data["_id"] != created.ID {
			t.Errorf("_id = %v, want %s", data["_id"], created.ID)
		}
		if data["userName"] != "testuser" {
			t.Errorf("userName = %v, want testuser", data["userName"])
		}
		if _, exists := data["password"]; exists {
			t.Error("password フィールドが含まれている")
		}

		token, ok := data["token"].(string)
		if !ok || token == "" {
			t.Fatalf("token = %v", data["token"])
		}
		claims := jwt.MapClaims{}
		if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
			t.Fatalf("トークンのデコードに失敗: %v", err)
		}
		if claims["id"] != created.ID {
			t.Errorf("id = %v, want %s", claims["id"], created.ID)
		}
		iat, _ := claims["iat"].(float64)
		exp, _ := claims["exp"].(float64)
		if iat == 0 || exp <= iat {
			t.Errorf("iat = %v, exp = %v", iat, exp)
		}
		if ttl := time.Duration(exp-iat) * time.Second; ttl != 30*24*time.Hour {
			t.Errorf("有効期間 = %v, want 30日", ttl)
		}
	})

	t.Run("ユーザー名が違う場合とパスワードが違う場合で同じ応答になること", func(t *testing.T) {
		t.Parallel()

		for _, body := range []map[string]string{
			{"userName": "wronguser", "password": "password123"},
			{"userName": "testuser", "password": "wrongpassword"},
		} {
			w := doRequest(s, http.MethodPost, "/api/auth/login", "", body)
			assertError(t, w, http.StatusUnauthorized, "Invalid credentials")
		}
	})

	t.Run("ユーザー名かパスワードがない場合は400になること", func(t *testing.T) {
		t.Parallel()

		for _, body := range []any{
			map[string]string{"password": "password123"},
			map[string]string{"userName": "testuser"},
			map[string]string{"userName": "   ", "password": "password123"},
			"{not json",
		} {
			w := doRequest(s, http.MethodPost, "/api/auth/login", "", body)
			assertError(t, w, http.StatusBadRequest, "Please provide username and password")
		}
	})
}

// TestHandleLogin_RateLimit はログイン失敗回数の制限を検証する。
func TestHandleLogin_RateLimit(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	s := setupTestServer(t, WithLoginLimiter(ratelimit.NewLoginLimiter(client, 2, time.Minute)))
	createTestUser(t, s, "testuser", "password123")

	login := func(userName, password string) int {
		return doRequest(s, http.MethodPost, "/api/auth/login", "", map[string]string{
			"userName": userName, "password": password,
		}).Code
	}

	t.Run("上限を超えると正しいパスワードでも429になること", func(t *testing.T) {
		for range 2 {
			if code := login("testuser", "wrong"); code != http.StatusUnauthorized {
				t.Fatalf("ステータスコード = %d, want %d", code, http.StatusUnauthorized)
			}
		}
		w := doRequest(s, http.MethodPost, "/api/auth/login", "", map[string]string{
			"userName": "testuser", "password": "password123",
		})
		assertError(t, w, http.StatusTooManyRequests, "Too many login attempts")
		if w.Header().Get("Retry-After") == "" {
			t.Error("Retry-After ヘッダーがない")
		}
	})

	t.Run("存在しないユーザー名も同じように制限されること", func(t *testing.T) {
		for range 2 {
			login("ghost", "wrong")
		}
		if code := login("ghost", "wrong"); code != http.StatusTooManyRequests {
			t.Errorf("ステータスコード = %d, want %d", code, http.StatusTooManyRequests)
		}
	})

	t.Run("期間が過ぎればログインでき成功で回数が消去されること", func(t *testing.T) {
		mr.FastForward(time.Minute + time.Second)

		if code := login("testuser", "wrong"); code != http.StatusUnauthorized {
			t.Fatalf("ステータスコード = %d, want %d", code, http.StatusUnauthorized)
		}
		if code := login("testuser", "password123"); code != http.StatusOK {
			t.Fatalf("ステータスコード = %d, want %d", code, http.StatusOK)
		}
		if mr.Exists("shiftkeeper:login:fail:testuser") {
			t.Error("ログイン成功後も失敗回数が残っている")
		}
	})
}

// TestHandleMe はアクセスゲートを通した利用者の取得を検証する。
func TestHandleMe(t *testing.T) {
	t.Parallel()

	s := setupTestServer(t)
	created, token := createTestUser(t, s, "testuser", "password123")
	ghostToken, err := s.tokens.Issue("507f1f77bcf86cd799439011")
	if err != nil {
		t.Fatalf("トークンの発行に失敗: %v", err)
	}

	tests := []struct {
		name    string
		header  string
		wantMsg string
	}{
		{name: "ヘッダーがない場合", header: "", wantMsg: "Not authorized, no token"},
		{name: "スキームがない場合", header: "InvalidFormat", wantMsg: "Not authorized, token failed"},
		{name: "不正なトークンの場合", header: "Bearer invalid_token_here", wantMsg: "Not authorized, token failed"},
		{name: "利用者が存在しない場合", header: "Bearer " + ghostToken, wantMsg: "Not authorized, user not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name+"は401になること", func(t *testing.T) {
			t.Parallel()

			req := newRequest(http.MethodGet, "/api/auth/me", tt.header)
			w := serve(s, req)
			assertError(t, w, http.StatusUnauthorized, tt.wantMsg)
		})
	}

	t.Run("有効なトークンなら利用者を返しパスワードを含まないこと", func(t *testing.T) {
		t.Parallel()

		w := doRequest(s, http.MethodGet, "/api/auth/me", token, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード = %d, want %d", w.Code, http.StatusOK)
		}
		data := dataOf(t, parseJSON(t, w))
		if data["_id"] != created.ID || data["email"] != "testuser@example.com" {
			t.Errorf("data = %v", data)
		}
		if _, exists := data["password"]; exists {
			t.Error("password フィールドが含まれている")
		}
	})

	t.Run("削除済みの利用者のトークンは拒否されること", func(t *testing.T) {
		t.Parallel()

		deleted, deletedToken := createTestUser(t, s, "leaver", "password123")
		if err := s.users.Delete(t.Context(), deleted.ID); err != nil {
			t.Fatalf("利用者の削除に失敗: %v", err)
		}
		w := doRequest(s, http.MethodGet, "/api/auth/me", deletedToken, nil)
		assertError(t, w, http.StatusUnauthorized, "Not authorized, user not found")
	})
}
