package auth

import (
	"context"

	"github.com/nao1215/shiftkeeper/internal/user"
)

type principalKey struct{}

// WithPrincipal は認証済みの利用者をコンテキストに格納する。
func WithPrincipal(ctx context.Context, p *user.User) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext はコンテキストから認証済みの利用者を取り出す。
func PrincipalFromContext(ctx context.Context) (*user.User, bool) {
	p, ok := ctx.Value(principalKey{}).(*user.User)
	return p, ok && p != nil
}
