// shiftkeeper APIサーバーのエントリポイント。
// スタッフのシフトと日々の勤怠を記録するHTTP APIを提供する。
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nao1215/shiftkeeper/internal/auth"
	"github.com/nao1215/shiftkeeper/internal/config"
	"github.com/nao1215/shiftkeeper/internal/database"
	"github.com/nao1215/shiftkeeper/internal/logging"
	"github.com/nao1215/shiftkeeper/internal/ratelimit"
	"github.com/nao1215/shiftkeeper/internal/server"
	"github.com/nao1215/shiftkeeper/internal/user"
	"github.com/spf13/pflag"
)

func main() {
	if err := run(); err != nil {
		slog.Error("shiftkeeperの起動に失敗しました", "error", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := pflag.StringP("config", "c", "", "path to config.yaml")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	logging.Setup(os.Stdout, cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer db.Close()
	slog.Info("データベースに接続しました", "dialect", db.Dialect())

	hasher := auth.NewHasher(cfg.Auth.BcryptCost)
	if _, err := server.BootstrapAdmin(ctx, user.NewStore(db), hasher, cfg.Bootstrap, time.Now()); err != nil {
		return fmt.Errorf("初期管理者の作成に失敗: %w", err)
	}

	opts := []server.Option{server.WithAccessLog(os.Stdout)}
	if cfg.Redis.URL != "" {
		client, err := ratelimit.NewClient(ctx, cfg.Redis.URL)
		if err != nil {
			return err
		}
		defer client.Close()
		opts = append(opts, server.WithLoginLimiter(
			ratelimit.NewLoginLimiter(client, cfg.Login.MaxAttempts, cfg.LoginWindow()),
		))
		slog.Info("ログイン試行回数の制限を有効にしました",
			"max_attempts", cfg.Login.MaxAttempts, "window", cfg.LoginWindow())
	}

	srv, err := server.NewServer(cfg, db, opts...)
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}
