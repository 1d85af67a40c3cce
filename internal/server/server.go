// Package server はshiftkeeperのHTTP APIサーバーを提供する。
//
// 認証（ログイン・トークン検証）、利用者・スタッフ・勤怠のCRUDを /api 配下に公開する。
// /api/auth/login 以外の /api ルートはすべてアクセスゲートで保護する。
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/shiftkeeper/internal/attendance"
	"github.com/nao1215/shiftkeeper/internal/auth"
	"github.com/nao1215/shiftkeeper/internal/config"
	"github.com/nao1215/shiftkeeper/internal/database"
	"github.com/nao1215/shiftkeeper/internal/ratelimit"
	"github.com/nao1215/shiftkeeper/internal/staff"
	"github.com/nao1215/shiftkeeper/internal/user"
	"github.com/nao1215/shiftkeeper/pkg/middleware"
)

// Server はshiftkeeperのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// addr はサーバーの待ち受けアドレス。
	addr string
	// shutdownTimeout は終了時に処理中のリクエストを待つ時間。
	shutdownTimeout time.Duration
	// users は利用者ストア。
	users user.Repository
	// staff はスタッフストア。
	staff staff.Repository
	// attendance は勤怠記録ストア。
	attendance *attendance.Store
	// hasher はパスワードのハッシュ化と照合を行う。
	hasher *auth.Hasher
	// tokens はトークンの発行と検証を行う。
	tokens *auth.TokenService
	// gate は保護されたルートの入口で利用者を解決する。
	gate *auth.Gate
	// limiter はログイン失敗回数の制限。nil なら制限しない。
	limiter *ratelimit.LoginLimiter
	// now は現在時刻を返す。テストで差し替える。
	now func() time.Time
}

// Option は Server の設定を変更する。
type Option func(*Server)

// WithLoginLimiter はログイン失敗回数の制限を有効にする。
func WithLoginLimiter(l *ratelimit.LoginLimiter) Option {
	return func(s *Server) {
		s.limiter = l
	}
}

// WithAccessLog はアクセスログの出力先を指定する。既定では出力しない。
func WithAccessLog(w io.Writer) Option {
	return func(s *Server) {
		s.router.Use(gin.LoggerWithConfig(gin.LoggerConfig{
			Output:    w,
			SkipPaths: []string{"/api/health", "/metrics"},
		}))
	}
}

// NewServer は設定とデータベースから新しいサーバーを生成する。
// 署名鍵がない場合は auth.ErrMissingSecret を返す。
func NewServer(cfg *config.Config, db *database.DB, opts ...Option) (*Server, error) {
	tokens, err := auth.NewTokenService([]byte(cfg.Auth.JWTSecret), cfg.TokenTTL())
	if err != nil {
		return nil, fmt.Errorf("トークンサービスの初期化に失敗: %w", err)
	}

	users := user.NewStore(db)

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.Metrics())

	s := &Server{
		router:          router,
		addr:            cfg.Addr(),
		shutdownTimeout: cfg.ShutdownTimeout(),
		users:           users,
		staff:           staff.NewStore(db),
		attendance:      attendance.NewStore(db),
		hasher:          auth.NewHasher(cfg.Auth.BcryptCost),
		tokens:          tokens,
		gate:            auth.NewGate(tokens, users, auth.WithLookupTimeout(cfg.LookupTimeout())),
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	router.Use(middleware.CORS(middleware.CORSPolicy{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Production:     cfg.IsProduction(),
	}))
	s.setupRoutes()

	return s, nil
}

// Handler はルーティング済みのHTTPハンドラーを返す。
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run はHTTPサーバーを起動し、ctx が終了したら処理中のリクエストを待って停止する。
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTPサーバーを起動します", "addr", s.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("HTTPサーバーを停止します", "timeout", s.shutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTPサーバーの停止に失敗: %w", err)
	}
	return nil
}

// setupRoutes はAPIルーティングを設定する。
func (s *Server) setupRoutes() {
	s.router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message":       "Welcome to the Health Staff Scheduler & Attendance Tracker API",
			"documentation": "/api-docs",
		})
	})
	// ヘルスチェック
	s.router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK", "message": "Server is running"})
	})
	s.router.GET("/metrics", middleware.MetricsHandler())

	api := s.router.Group("/api")
	protect := middleware.Protect(s.gate)

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/login", s.handleLogin())
		authGroup.GET("/me", protect, s.handleMe())
	}

	users := api.Group("/users", protect)
	{
		users.GET("", s.handleListUsers())
		users.POST("", s.handleCreateUser())
		users.GET("/:id", s.handleGetUser())
		users.PUT("/:id", s.handleUpdateUser())
		users.DELETE("/:id", s.handleDeleteUser())
	}

	staffGroup := api.Group("/staff", protect)
	{
		staffGroup.GET("", s.handleListStaff())
		staffGroup.POST("", s.handleCreateStaff())
		staffGroup.GET("/:id", s.handleGetStaff())
		staffGroup.PUT("/:id", s.handleUpdateStaff())
		staffGroup.DELETE("/:id", s.handleDeleteStaff())
	}

	att := api.Group("/attendance", protect)
	{
		att.GET("", s.handleListAttendance())
		att.POST("", s.handleMarkAttendance())
		att.POST("/bulk", s.handleMarkBulkAttendance())
		att.GET("/staff/:staffId", s.handleStaffAttendance())
		att.PUT("/:id", s.handleUpdateAttendance())
		att.DELETE("/:id", s.handleDeleteAttendance())
	}

	s.router.NoRoute(func(c *gin.Context) {
		respondError(c, http.StatusNotFound, "Route not found")
	})
}
