package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL はトークンの既定の有効期間（30日）。
const DefaultTokenTTL = 30 * 24 * time.Hour

var (
	// ErrMissingSecret は署名鍵が設定されていない場合のエラー。起動時の設定エラーとして扱う。
	ErrMissingSecret = errors.New("JWT secret is not configured")
	// ErrMalformedToken はトークンの形式・署名・アルゴリズムが不正な場合のエラー。
	ErrMalformedToken = errors.New("malformed token")
	// ErrExpiredToken は署名は正しいが有効期限を過ぎたトークンのエラー。
	ErrExpiredToken = errors.New("token expired")
)

// Claims はセッショントークンのペイロード。{id, iat, exp} を持つ。
type Claims struct {
	// UserID はトークンが束縛する利用者の識別子。
	UserID string `json:"id"`
	jwt.RegisteredClaims
}

// TokenService はセッショントークンの発行と検証を行う。
// 状態を持たず、失効リストもない。有効期限だけがトークンを無効にする。
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// TokenOption は TokenService の設定を変更する。
type TokenOption func(*TokenService)

// WithClock は現在時刻の取得方法を差し替える。
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) {
		s.now = now
	}
}

// NewTokenService は署名鍵と有効期間を指定して TokenService を生成する。
// ttl が0以下の場合は DefaultTokenTTL を使う。
func NewTokenService(secret []byte, ttl time.Duration, opts ...TokenOption) (*TokenService, error) {
	if len(secret) == 0 {
		return nil, ErrMissingSecret
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	s := &TokenService{
		secret: append([]byte(nil), secret...),
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// TTL はトークンの有効期間を返す。
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Issue は利用者IDに束縛したトークンを既定の有効期間で発行する。
func (s *TokenService) Issue(userID string) (string, error) {
	return s.IssueWithTTL(userID, s.ttl)
}

// IssueWithTTL は有効期間を指定してトークンを発行する。
func (s *TokenService) IssueWithTTL(userID string, ttl time.Duration) (string, error) {
	if s == nil || len(s.secret) == 0 {
		return "", ErrMissingSecret
	}
	if userID == "" {
		return "", errors.New("user id must not be empty")
	}

	now := s.now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("JWTトークンの署名に失敗: %w", err)
	}
	return signed, nil
}

// Verify はトークンの署名と有効期限を検証し、クレームを返す。
// 署名は期限より先に検証されるため、改ざんされた期限切れトークンは ErrMalformedToken になる。
func (s *TokenService) Verify(tokenString string) (*Claims, error) {
	if s == nil || len(s.secret) == 0 {
		return nil, ErrMissingSecret
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(_ *jwt.Token) (any, error) {
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %w", ErrMalformedToken, err)
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: id claim is missing", ErrMalformedToken)
	}
	return claims, nil
}
