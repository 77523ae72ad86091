// Package config はサーバーの設定をコマンドラインフラグと環境変数から読み込みます。
package config

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
)

// Config はサーバー全体の設定です。
type Config struct {
	Port     string
	AppEnv   string
	LogLevel string

	DatabaseURL string // 空ならPostgreSQLを使わない
	RedisURL    string // 空ならRedisを使わない

	JWTSecret      string
	BypassAuth     bool
	AllowedOrigins []string

	BoardRows       int
	BoardColumns    int
	SpawnRowOffset  int
	LeaderboardSize int
}

// IsProduction は本番環境かどうかを返します。
func (c Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Flags はConfigの各項目に対応するフラグを返します。全てのフラグは環境変数からも設定できます。
func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "port", Value: "8080", Usage: "HTTP server port", Sources: cli.EnvVars("PORT")},
		&cli.StringFlag{Name: "app-env", Value: "development", Usage: "application environment (production disables .env loading)", Sources: cli.EnvVars("APP_ENV")},
		&cli.StringFlag{Name: "log-level", Value: "info", Usage: "log level (debug, info, warn, error)", Sources: cli.EnvVars("LOG_LEVEL")},
		&cli.StringFlag{Name: "database-url", Usage: "PostgreSQL connection URL", Sources: cli.EnvVars("DATABASE_URL")},
		&cli.StringFlag{Name: "redis-url", Usage: "Redis connection URL", Sources: cli.EnvVars("REDIS_URL")},
		&cli.StringFlag{Name: "jwt-secret", Usage: "HMAC secret used to verify access tokens", Sources: cli.EnvVars("JWT_SECRET", "SUPABASE_JWT_SECRET")},
		&cli.BoolFlag{Name: "bypass-auth", Usage: "skip token verification (testing only)", Sources: cli.EnvVars("BYPASS_AUTH")},
		&cli.StringSliceFlag{Name: "allowed-origins", Value: []string{"http://localhost:3000"}, Usage: "CORS / WebSocket allowed origins", Sources: cli.EnvVars("ALLOWED_ORIGINS")},
		&cli.IntFlag{Name: "rows", Value: 20, Usage: "board rows", Sources: cli.EnvVars("BOARD_ROWS")},
		&cli.IntFlag{Name: "columns", Value: 10, Usage: "board columns", Sources: cli.EnvVars("BOARD_COLUMNS")},
		&cli.IntFlag{Name: "spawn-row-offset", Value: 0, Usage: "rows to lower the spawn position into the field", Sources: cli.EnvVars("SPAWN_ROW_OFFSET")},
		&cli.IntFlag{Name: "leaderboard-size", Value: 10, Usage: "scores kept by the in-memory leaderboard", Sources: cli.EnvVars("LEADERBOARD_SIZE")},
	}
}

// FromCommand はフラグの値からConfigを作成します。
func FromCommand(cmd *cli.Command) Config {
	return Config{
		Port:            cmd.String("port"),
		AppEnv:          cmd.String("app-env"),
		LogLevel:        cmd.String("log-level"),
		DatabaseURL:     cmd.String("database-url"),
		RedisURL:        cmd.String("redis-url"),
		JWTSecret:       cmd.String("jwt-secret"),
		BypassAuth:      cmd.Bool("bypass-auth"),
		AllowedOrigins:  cmd.StringSlice("allowed-origins"),
		BoardRows:       int(cmd.Int("rows")),
		BoardColumns:    int(cmd.Int("columns")),
		SpawnRowOffset:  int(cmd.Int("spawn-row-offset")),
		LeaderboardSize: int(cmd.Int("leaderboard-size")),
	}
}

// Validate は設定値の整合性を検証します。
func (c Config) Validate() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("port must not be empty"))
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log level: %w", err))
	}
	if c.BoardRows < 4 {
		errs = append(errs, fmt.Errorf("rows must be at least 4, got %d", c.BoardRows))
	}
	if c.BoardColumns < 4 {
		errs = append(errs, fmt.Errorf("columns must be at least 4, got %d", c.BoardColumns))
	}
	if c.SpawnRowOffset < 0 || c.SpawnRowOffset >= c.BoardRows {
		errs = append(errs, fmt.Errorf("spawn row offset must be in [0, rows), got %d", c.SpawnRowOffset))
	}
	if c.LeaderboardSize <= 0 {
		errs = append(errs, fmt.Errorf("leaderboard size must be positive, got %d", c.LeaderboardSize))
	}
	if c.JWTSecret == "" && !c.BypassAuth {
		errs = append(errs, errors.New("jwt secret is required unless bypass-auth is enabled"))
	}
	if c.IsProduction() && c.BypassAuth {
		errs = append(errs, errors.New("bypass-auth must not be enabled in production"))
	}
	return errors.Join(errs...)
}

// ConfigureLogging はログレベルとフォーマッタを設定します。本番環境ではJSON形式で出力します。
func (c Config) ConfigureLogging(logger *logrus.Logger) error {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	logger.SetLevel(level)
	if c.IsProduction() {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return nil
}
