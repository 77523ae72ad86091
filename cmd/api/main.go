package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"

	"github.com/progate-hackathon-strawberry-flavor/blockfall-backend/internal/api"
	"github.com/progate-hackathon-strawberry-flavor/blockfall-backend/internal/api/middleware"
	"github.com/progate-hackathon-strawberry-flavor/blockfall-backend/internal/config"
	"github.com/progate-hackathon-strawberry-flavor/blockfall-backend/internal/database"
	"github.com/progate-hackathon-strawberry-flavor/blockfall-backend/internal/services/tetris"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// .env はフラグ解析前に読み込み、環境変数として各フラグに反映させる
	if os.Getenv("APP_ENV") != "production" {
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			logrus.Warnf("Error loading .env file: %v", err)
		}
	}

	cmd := &cli.Command{
		Name:   "blockfall",
		Usage:  "falling-block puzzle game server",
		Flags:  config.Flags(),
		Action: runServer,
		Commands: []*cli.Command{
			{
				Name:   "migrate",
				Usage:  "check the database connection and create the results table",
				Action: runMigrate,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		logrus.Fatal(err)
	}
}

// loadConfig はフラグから設定を読み込み、検証してからロガーを設定します。
func loadConfig(cmd *cli.Command) (config.Config, error) {
	cfg := config.FromCommand(cmd)
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.ConfigureLogging(logrus.StandardLogger()); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// openResultRepository は設定に応じた結果リポジトリを返します。
// DATABASE_URL があればPostgreSQL、REDIS_URL があればRedis、どちらもなければメモリを使います。
func openResultRepository(ctx context.Context, cfg config.Config) (database.ResultRepository, func(), error) {
	switch {
	case cfg.DatabaseURL != "":
		db, err := database.NewDatabaseService(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := db.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		logrus.Info("結果の保存先: PostgreSQL")
		return database.NewResultRepository(db.DB), func() { db.Close() }, nil

	case cfg.RedisURL != "":
		client, err := database.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		logrus.Info("結果の保存先: Redis")
		return database.NewRedisResultRepository(client, ""), func() { client.Close() }, nil

	default:
		logrus.Infof("結果の保存先: メモリ (上位%d件)", cfg.LeaderboardSize)
		return database.NewMemoryResultRepository(cfg.LeaderboardSize), func() {}, nil
	}
}

func runServer(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	results, closeResults, err := openResultRepository(ctx, cfg)
	if err != nil {
		return fmt.Errorf("結果リポジトリの初期化に失敗しました: %w", err)
	}
	defer closeResults()

	sessions := tetris.NewSessionManager(results, tetris.SessionOptions{
		Rows:           cfg.BoardRows,
		Columns:        cfg.BoardColumns,
		SpawnRowOffset: cfg.SpawnRowOffset,
	})
	defer sessions.Shutdown()

	if cfg.BypassAuth {
		logrus.Warn("BYPASS_AUTH is enabled: access tokens are not verified")
	}

	server := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: api.NewRouter(api.Dependencies{
			Sessions:       sessions,
			Results:        results,
			Auth:           middleware.NewAuthenticator(cfg.JWTSecret, cfg.BypassAuth),
			AllowedOrigins: cfg.AllowedOrigins,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logrus.Infof("Server starting on :%s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	logrus.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func runMigrate(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL が設定されていません")
	}

	db, err := database.NewDatabaseService(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.EnsureSchema(ctx); err != nil {
		return err
	}
	logrus.Info("成功: データベースに接続し、resultsテーブルを確認しました")
	return nil
}
