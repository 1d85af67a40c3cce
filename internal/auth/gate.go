package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/nao1215/shiftkeeper/internal/user"
)

// DefaultLookupTimeout は利用者の解決にかける時間の上限。
const DefaultLookupTimeout = 3 * time.Second

// ErrMalformedHeader はAuthorizationヘッダーがBearer形式でない場合のエラー。
var ErrMalformedHeader = errors.New("authorization header is not a bearer credential")

// Reason はゲートがリクエストを拒否した理由。
type Reason int

const (
	// ReasonNone は拒否していないことを表す。
	ReasonNone Reason = iota
	// RejectNoToken は資格情報が提示されていない。
	RejectNoToken
	// RejectTokenFailed はトークンの形式不正・署名不一致・期限切れ。
	RejectTokenFailed
	// RejectUserNotFound はトークンは有効だが利用者が存在しない。
	RejectUserNotFound
)

// Message はクライアントへ返すメッセージを返す。
func (r Reason) Message() string {
	switch r {
	case RejectNoToken:
		return "Not authorized, no token"
	case RejectTokenFailed:
		return "Not authorized, token failed"
	case RejectUserNotFound:
		return "Not authorized, user not found"
	default:
		return ""
	}
}

// String はログ出力用の短い名前を返す。
func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case RejectNoToken:
		return "no_token"
	case RejectTokenFailed:
		return "token_failed"
	case RejectUserNotFound:
		return "user_not_found"
	default:
		return "unknown"
	}
}

// TokenVerifier はトークンを検証してクレームを返す。
type TokenVerifier interface {
	Verify(token string) (*Claims, error)
}

// PrincipalFinder は利用者を公開ビュー（パスワードハッシュなし）で取得する。
// 存在しない場合は user.ErrNotFound を返すこと。
type PrincipalFinder interface {
	FindByID(ctx context.Context, id string) (*user.User, error)
}

// Result はゲートの判定結果。Reject が ReasonNone のときだけ Principal が設定される。
type Result struct {
	Principal *user.User
	Reject    Reason
	// Err は拒否の原因となった内部エラー。ログ用でクライアントには返さない。
	Err error
}

// Allowed はリクエストを通すかを返す。
func (r Result) Allowed() bool {
	return r.Reject == ReasonNone && r.Principal != nil
}

// Gate は保護されたルートの入口で認証済みの利用者を解決する。
type Gate struct {
	tokens        TokenVerifier
	users         PrincipalFinder
	lookupTimeout time.Duration
}

// GateOption は Gate の設定を変更する。
type GateOption func(*Gate)

// WithLookupTimeout は利用者解決のタイムアウトを変更する。
func WithLookupTimeout(d time.Duration) GateOption {
	return func(g *Gate) {
		if d > 0 {
			g.lookupTimeout = d
		}
	}
}

// NewGate は Gate を生成する。
func NewGate(tokens TokenVerifier, users PrincipalFinder, opts ...GateOption) *Gate {
	g := &Gate{
		tokens:        tokens,
		users:         users,
		lookupTimeout: DefaultLookupTimeout,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Check はAuthorizationヘッダーの値を検査する。
// 抽出、形式確認、トークン検証、利用者解決の順に進み、最初の失敗で打ち切る。
// ブロックしうるのは利用者解決の1回だけで、それも lookupTimeout で打ち切られる。
func (g *Gate) Check(ctx context.Context, header string) Result {
	header = strings.TrimSpace(header)
	if header == "" {
		return Result{Reject: RejectNoToken}
	}

	token, err := bearerToken(header)
	if err != nil {
		return Result{Reject: RejectTokenFailed, Err: err}
	}

	claims, err := g.tokens.Verify(token)
	if err != nil {
		return Result{Reject: RejectTokenFailed, Err: err}
	}

	lookupCtx, cancel := context.WithTimeout(ctx, g.lookupTimeout)
	defer cancel()

	principal, err := g.users.FindByID(lookupCtx, claims.UserID)
	switch {
	case errors.Is(err, user.ErrNotFound):
		return Result{Reject: RejectUserNotFound, Err: err}
	case err != nil:
		return Result{Reject: RejectTokenFailed, Err: err}
	case principal == nil:
		return Result{Reject: RejectUserNotFound, Err: user.ErrNotFound}
	}
	return Result{Principal: principal}
}

// bearerToken は "<scheme> <value>" 形式からトークンを取り出す。
// スキームは大文字小文字を区別せず "Bearer" のみを受け付ける。
func bearerToken(header string) (string, error) {
	scheme, value, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", ErrMalformedHeader
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", ErrMalformedHeader
	}
	return value, nil
}
