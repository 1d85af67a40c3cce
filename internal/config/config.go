// Package config はshiftkeeperの設定を読み込む。
//
// 読み込み順は 既定値 → YAMLファイル → 環境変数 → ファイル参照の解決 → 検証 で、
// 後の層が前の層を上書きする。
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Config はアプリケーション全体の設定。
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Auth      AuthConfig      `yaml:"auth"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Login     LoginConfig     `yaml:"login"`
	Bootstrap BootstrapConfig `yaml:"bootstrap"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig はHTTPサーバーの設定。
type ServerConfig struct {
	Port int `yaml:"port"`

	// Env は実行環境。"production" のときCORSを本番用ポリシーにする。
	Env             string   `yaml:"env"`
	AllowedOrigins  []string `yaml:"allowed_origins"`
	ShutdownTimeout string   `yaml:"shutdown_timeout"`
}

// AuthConfig は認証の設定。
type AuthConfig struct {
	JWTSecret     string `yaml:"jwt_secret"`
	JWTSecretFile string `yaml:"jwt_secret_file"`

	// JWTExpire はトークンの有効期間。日数指定（30d）や秒数も受け付ける。
	JWTExpire     string `yaml:"jwt_expire"`
	BcryptCost    int    `yaml:"bcrypt_cost"`
	LookupTimeout string `yaml:"lookup_timeout"`
}

// DatabaseConfig はデータベースの設定。
type DatabaseConfig struct {
	// URL は postgres:// で始まればPostgreSQL、それ以外はSQLiteのファイルパスとして扱う。
	URL string `yaml:"url"`
}

// RedisConfig はRedisの設定。URLが空ならログイン試行回数の制限を無効にする。
type RedisConfig struct {
	URL string `yaml:"url"`
}

// LoginConfig はログイン失敗の制限設定。
type LoginConfig struct {
	MaxAttempts int    `yaml:"max_attempts"`
	Window      string `yaml:"window"`
}

// BootstrapConfig は初期管理者の作成設定。
type BootstrapConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Name     string `yaml:"name"`
	UserName string `yaml:"user_name"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

// LogConfig はログ出力の設定。
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultAllowedOrigins はCORSで常に許可するオリジン。
var DefaultAllowedOrigins = []string{
	"https://red-pebble-03589a91e.3.azurestaticapps.net",
	"http://localhost:3000",
	"http://localhost:5173",
	"http://localhost:3001",
}

// Defaults は既定値の設定を返す。
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:            3000,
			Env:             "development",
			AllowedOrigins:  append([]string(nil), DefaultAllowedOrigins...),
			ShutdownTimeout: "10s",
		},
		Auth: AuthConfig{
			JWTExpire:     "30d",
			LookupTimeout: "3s",
		},
		Database: DatabaseConfig{
			URL: "shiftkeeper.db",
		},
		Login: LoginConfig{
			MaxAttempts: 5,
			Window:      "15m",
		},
		Bootstrap: BootstrapConfig{
			Name:     "Administrator",
			UserName: "admin",
			Email:    "admin@shiftkeeper.local",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// IsProduction は本番環境かを返す。
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Env, "production")
}

// Addr はHTTPサーバーの待ち受けアドレスを返す。
func (c *Config) Addr() string {
	return ":" + strconv.Itoa(c.Server.Port)
}

// TokenTTL はトークンの有効期間を返す。
func (c *Config) TokenTTL() time.Duration {
	d, _ := ParseDuration(c.Auth.JWTExpire)
	return d
}

// LookupTimeout は認証時の利用者解決のタイムアウトを返す。
func (c *Config) LookupTimeout() time.Duration {
	d, _ := ParseDuration(c.Auth.LookupTimeout)
	return d
}

// LoginWindow はログイン失敗を数える期間を返す。
func (c *Config) LoginWindow() time.Duration {
	d, _ := ParseDuration(c.Login.Window)
	return d
}

// ShutdownTimeout は終了時に処理中のリクエストを待つ時間を返す。
func (c *Config) ShutdownTimeout() time.Duration {
	d, _ := ParseDuration(c.Server.ShutdownTimeout)
	return d
}

// ParseDuration は期間を解析する。"30d" の日数指定、"3600" の秒数、
// time.ParseDuration が受け付ける表記に対応する。
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	if secs, err := strconv.Atoi(s); err == nil {
		if secs < 0 {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return d, nil
}
