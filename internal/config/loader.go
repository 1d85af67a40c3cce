package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// lookupFunc は環境変数の参照方法。テストでは差し替える。
type lookupFunc func(key string) (string, bool)

// Load は設定を読み込んで検証する。
//
// YAMLファイルは次の順で探す。
//  1. 引数 configPath（--config フラグ）
//  2. 環境変数 SHIFTKEEPER_CONFIG
//  3. カレントディレクトリの config.yaml
//
// 見つからない場合は既定値と環境変数だけで構成する。
func Load(configPath string) (*Config, error) {
	return load(configPath, os.LookupEnv)
}

func load(configPath string, lookup lookupFunc) (*Config, error) {
	cfg := Defaults()

	if path := discoverConfigFile(configPath, lookup); path != "" {
		if err := loadYAMLFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("設定ファイル %s の読み込みに失敗: %w", path, err)
		}
	}

	if err := applyEnvOverrides(&cfg, lookup); err != nil {
		return nil, err
	}

	if err := resolveFileReferences(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func discoverConfigFile(configPath string, lookup lookupFunc) string {
	if configPath != "" {
		return configPath
	}
	if v, ok := lookup("SHIFTKEEPER_CONFIG"); ok && v != "" {
		return v
	}
	if _, err := os.Stat("config.yaml"); err == nil {
		return "config.yaml"
	}
	return ""
}

// loadYAMLFile はYAMLを読み込む。ファイルにないフィールドは現在の値を保つ。
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnvOverrides は環境変数で設定を上書きする。
// 数値として解釈できない値は無視せずエラーにする。
func applyEnvOverrides(cfg *Config, lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("環境変数 %s が数値ではありません: %q", key, v)
		}
		*dst = n
		return nil
	}

	if err := num("PORT", &cfg.Server.Port); err != nil {
		return err
	}
	str("NODE_ENV", &cfg.Server.Env)
	str("APP_ENV", &cfg.Server.Env)
	if v, ok := lookup("ALLOWED_ORIGINS"); ok && v != "" {
		cfg.Server.AllowedOrigins = splitList(v)
	}
	str("SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)

	str("JWT_SECRET", &cfg.Auth.JWTSecret)
	str("JWT_SECRET_FILE", &cfg.Auth.JWTSecretFile)
	str("JWT_EXPIRE", &cfg.Auth.JWTExpire)
	if err := num("BCRYPT_COST", &cfg.Auth.BcryptCost); err != nil {
		return err
	}

	str("DATABASE_URL", &cfg.Database.URL)
	str("REDIS_URL", &cfg.Redis.URL)

	if err := num("LOGIN_MAX_ATTEMPTS", &cfg.Login.MaxAttempts); err != nil {
		return err
	}
	str("LOGIN_WINDOW", &cfg.Login.Window)

	if v, ok := lookup("BOOTSTRAP_ADMIN"); ok && v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("環境変数 BOOTSTRAP_ADMIN が真偽値ではありません: %q", v)
		}
		cfg.Bootstrap.Enabled = enabled
	}
	str("BOOTSTRAP_ADMIN_USERNAME", &cfg.Bootstrap.UserName)
	str("BOOTSTRAP_ADMIN_EMAIL", &cfg.Bootstrap.Email)
	str("BOOTSTRAP_ADMIN_PASSWORD", &cfg.Bootstrap.Password)

	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FORMAT", &cfg.Log.Format)
	return nil
}

// resolveFileReferences は *_file で指定された秘密情報をファイルから読み込む。
// 値が直接指定されている場合はそちらを優先する。
func resolveFileReferences(cfg *Config) error {
	if cfg.Auth.JWTSecretFile != "" && cfg.Auth.JWTSecret == "" {
		data, err := os.ReadFile(cfg.Auth.JWTSecretFile)
		if err != nil {
			return fmt.Errorf("auth.jwt_secret_file の読み込みに失敗: %w", err)
		}
		cfg.Auth.JWTSecret = strings.TrimSpace(string(data))
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
