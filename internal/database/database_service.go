package database

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq" // PostgreSQLドライバー
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "DatabaseService")

// schema はゲーム結果を保存するテーブル定義です。
const schema = `
CREATE TABLE IF NOT EXISTS results (
	id            BIGSERIAL PRIMARY KEY,
	user_id       TEXT        NOT NULL,
	score         INTEGER     NOT NULL CHECK (score >= 0),
	lines_cleared INTEGER     NOT NULL DEFAULT 0,
	difficulty    TEXT        NOT NULL DEFAULT 'normal',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS results_score_idx ON results (score DESC, created_at ASC);
CREATE INDEX IF NOT EXISTS results_user_idx ON results (user_id);
`

// DatabaseService はPostgreSQLへの接続を保持します。
type DatabaseService struct {
	DB *sql.DB
}

// NewDatabaseService はデータベースに接続し、Pingで疎通を確認したDatabaseServiceを返します。
func NewDatabaseService(ctx context.Context, databaseURL string) (*DatabaseService, error) {
	log.Info("データベース接続を試行中...")
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("データベースへの接続オブジェクト作成に失敗しました: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("データベースのPingに失敗しました。接続情報やネットワークを確認してください: %w", err)
	}

	log.Info("データベースに正常に接続しました。")
	return &DatabaseService{DB: db}, nil
}

// EnsureSchema はresultsテーブルが存在しなければ作成します。
func (s *DatabaseService) EnsureSchema(ctx context.Context) error {
	if _, err := s.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("スキーマの作成に失敗しました: %w", err)
	}
	return nil
}

// Close は接続を閉じます。
func (s *DatabaseService) Close() error {
	return s.DB.Close()
}
