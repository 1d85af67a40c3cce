package config

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingJWTSecret は署名鍵が設定されていない場合のエラー。起動を中止する。
var ErrMissingJWTSecret = errors.New("auth.jwt_secret (JWT_SECRET) is required")

// Validate は必須項目と値の範囲を検証する。すべての問題をまとめて返す。
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		errs = append(errs, ErrMissingJWTSecret)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Database.URL == "" {
		errs = append(errs, errors.New("database.url is required"))
	}

	durations := []struct {
		name  string
		value string
	}{
		{"auth.jwt_expire", c.Auth.JWTExpire},
		{"auth.lookup_timeout", c.Auth.LookupTimeout},
		{"login.window", c.Login.Window},
		{"server.shutdown_timeout", c.Server.ShutdownTimeout},
	}
	for _, d := range durations {
		v, err := ParseDuration(d.value)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", d.name, err))
			continue
		}
		if v == 0 {
			errs = append(errs, fmt.Errorf("%s must be greater than 0", d.name))
		}
	}

	if c.Login.MaxAttempts <= 0 {
		errs = append(errs, fmt.Errorf("login.max_attempts must be > 0, got %d", c.Login.MaxAttempts))
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level must be one of debug, info, warn, error, got %q", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be \"text\" or \"json\", got %q", c.Log.Format))
	}

	return errors.Join(errs...)
}
