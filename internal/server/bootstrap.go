package server

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/shiftkeeper/internal/config"
	"github.com/nao1215/shiftkeeper/internal/user"
)

// generatedPasswordLength は自動生成する初期パスワードの長さ。
const generatedPasswordLength = 24

// BootstrapAdmin は利用者が1人もいない場合に初期管理者を作成する。
// 利用者が既にいれば何もしない。パスワードが未設定なら生成してログに1回だけ出力する。
func BootstrapAdmin(ctx context.Context, users user.Repository, hasher user.PasswordHasher, cfg config.BootstrapConfig, now time.Time) (bool, error) {
	if !cfg.Enabled {
		return false, nil
	}

	n, err := users.Count(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}

	password := cfg.Password
	generated := password == ""
	if generated {
		password, err = generatePassword(generatedPasswordLength)
		if err != nil {
			return false, err
		}
	}

	cred, err := user.New(user.NewParams{
		Name:     cfg.Name,
		UserName: cfg.UserName,
		Email:    cfg.Email,
		Password: password,
	}, hasher, now)
	if err != nil {
		return false, fmt.Errorf("初期管理者の設定が不正: %w", err)
	}
	if err := users.Create(ctx, cred); err != nil {
		return false, fmt.Errorf("初期管理者の作成に失敗: %w", err)
	}

	if generated {
		slog.Warn("初期管理者を作成しました。パスワードを変更してください",
			"userName", cred.UserName, "password", password)
	} else {
		slog.Info("初期管理者を作成しました", "userName", cred.UserName)
	}
	return true, nil
}

func generatePassword(length int) (string, error) {
	raw := make([]byte, length)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("パスワードの生成に失敗: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw)[:length], nil
}
