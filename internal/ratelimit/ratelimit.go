// Package ratelimit はRedisを使ってログイン失敗回数を制限する。
//
// 失敗はユーザー名ごとに数え、存在しないユーザー名も同じように数える。
// Redisに到達できない場合は制限をかけずに通す。
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "shiftkeeper:login:fail:"

// recordFailure は失敗回数を増やし、初回だけ有効期限を設定する。
var recordFailure = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
if n == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return n
`)

// LoginLimiter はユーザー名ごとのログイン失敗回数を期間内で制限する。
type LoginLimiter struct {
	client      redis.Cmdable
	maxAttempts int
	window      time.Duration
}

// NewLoginLimiter は LoginLimiter を生成する。
func NewLoginLimiter(client redis.Cmdable, maxAttempts int, window time.Duration) *LoginLimiter {
	return &LoginLimiter{
		client:      client,
		maxAttempts: maxAttempts,
		window:      window,
	}
}

// NewClient はURL（例: redis://localhost:6379/0）からRedisクライアントを生成し、疎通を確認する。
func NewClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	if redisURL == "" {
		return nil, errors.New("empty redis url")
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis urlの解析に失敗: %w", err)
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redisへの接続確認に失敗: %w", err)
	}
	return client, nil
}

// Allowed はログインを試行してよいかを返す。拒否する場合は再試行までの時間も返す。
func (l *LoginLimiter) Allowed(ctx context.Context, userName string) (bool, time.Duration, error) {
	key := l.key(userName)
	n, err := l.get(ctx, key)
	if err != nil {
		return true, 0, err
	}
	if n < l.maxAttempts {
		return true, 0, nil
	}

	ttl, err := l.ttl(ctx, key)
	if err != nil {
		return false, l.window, err
	}
	return false, ttl, nil
}

// RecordFailure は失敗を1回記録し、現在の失敗回数を返す。
func (l *LoginLimiter) RecordFailure(ctx context.Context, userName string) (int, error) {
	n, err := recordFailure.Run(ctx, l.client, []string{l.key(userName)}, l.window.Milliseconds()).Int()
	if err != nil {
		return 0, fmt.Errorf("ログイン失敗の記録に失敗: %w", err)
	}
	return n, nil
}

// Reset は失敗回数を消去する。ログイン成功時に呼ぶ。
func (l *LoginLimiter) Reset(ctx context.Context, userName string) error {
	return l.client.Del(ctx, l.key(userName)).Err()
}

func (l *LoginLimiter) get(ctx context.Context, key string) (int, error) {
	n, err := l.client.Get(ctx, key).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

func (l *LoginLimiter) ttl(ctx context.Context, key string) (time.Duration, error) {
	d, err := l.client.PTTL(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return l.window, nil
	}
	return d, nil
}

func (l *LoginLimiter) key(userName string) string {
	return keyPrefix + strings.ToLower(strings.TrimSpace(userName))
}
