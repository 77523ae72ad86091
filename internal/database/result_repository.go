package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/progate-hackathon-strawberry-flavor/blockfall-backend/internal/models"
)

// ResultRepository はゲーム結果の保存とランキング取得を定義するインターフェースです。
type ResultRepository interface {
	// SaveResult は新しいゲーム結果レコードを作成します
	SaveResult(ctx context.Context, req models.ResultRequest) (*models.Result, error)

	// GetTopResults は上位N件の結果を取得します（ランキング用）
	GetTopResults(ctx context.Context, limit int) ([]models.ResultResponse, error)

	// GetUserBestScore は指定したユーザーの最高スコアを取得します。記録がない場合は nil, nil を返します
	GetUserBestScore(ctx context.Context, userID string) (*models.Result, error)

	// GetUserRanking は指定したユーザーの最高スコアの順位を取得します。記録がない場合は nil, nil を返します
	GetUserRanking(ctx context.Context, userID string) (*models.ResultResponse, error)
}

// postgresResultRepository はPostgreSQLを使ったResultRepositoryの実装です。
type postgresResultRepository struct {
	db *sql.DB
}

// NewResultRepository はPostgreSQL版ResultRepositoryの新しいインスタンスを作成します。
func NewResultRepository(db *sql.DB) ResultRepository {
	return &postgresResultRepository{db: db}
}

func (r *postgresResultRepository) SaveResult(ctx context.Context, req models.ResultRequest) (*models.Result, error) {
	now := time.Now().UTC()
	var id int64

	err := r.db.QueryRowContext(ctx,
		"INSERT INTO results (user_id, score, lines_cleared, difficulty, created_at) VALUES ($1, $2, $3, $4, $5) RETURNING id",
		req.UserID, req.Score, req.LinesCleared, req.Difficulty, now,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("ゲーム結果レコードの作成に失敗しました: %w", err)
	}

	return &models.Result{
		ID:           id,
		UserID:       req.UserID,
		Score:        req.Score,
		LinesCleared: req.LinesCleared,
		Difficulty:   req.Difficulty,
		CreatedAt:    now,
	}, nil
}

func (r *postgresResultRepository) GetTopResults(ctx context.Context, limit int) ([]models.ResultResponse, error) {
	query := `
		SELECT
			id, user_id, score, lines_cleared, difficulty, created_at,
			ROW_NUMBER() OVER (ORDER BY score DESC, created_at ASC) as rank
		FROM results
		ORDER BY score DESC, created_at ASC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("ゲーム結果取得に失敗しました: %w", err)
	}
	defer rows.Close()

	results := make([]models.ResultResponse, 0, limit)
	for rows.Next() {
		var result models.ResultResponse
		err := rows.Scan(&result.ID, &result.UserID, &result.Score, &result.LinesCleared,
			&result.Difficulty, &result.CreatedAt, &result.Rank)
		if err != nil {
			return nil, fmt.Errorf("ゲーム結果データのスキャンに失敗しました: %w", err)
		}
		results = append(results, result)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("ゲーム結果取得中にエラーが発生しました: %w", err)
	}

	return results, nil
}

func (r *postgresResultRepository) GetUserBestScore(ctx context.Context, userID string) (*models.Result, error) {
	query := `
		SELECT id, user_id, score, lines_cleared, difficulty, created_at
		FROM results
		WHERE user_id = $1
		ORDER BY score DESC, created_at ASC
		LIMIT 1
	`

	var result models.Result
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&result.ID, &result.UserID, &result.Score,
		&result.LinesCleared, &result.Difficulty, &result.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // ユーザーのスコアが存在しない場合はnilを返す
	}
	if err != nil {
		return nil, fmt.Errorf("ユーザーの最高スコア取得に失敗しました: %w", err)
	}

	return &result, nil
}

func (r *postgresResultRepository) GetUserRanking(ctx context.Context, userID string) (*models.ResultResponse, error) {
	bestScore, err := r.GetUserBestScore(ctx, userID)
	if err != nil {
		return nil, err
	}
	if bestScore == nil {
		return nil, nil
	}

	// そのスコアより上位の記録数から順位を計算
	query := `
		SELECT COUNT(*) + 1 as rank
		FROM results
		WHERE score > $1 OR (score = $1 AND created_at < $2)
	`

	var rank int
	if err := r.db.QueryRowContext(ctx, query, bestScore.Score, bestScore.CreatedAt).Scan(&rank); err != nil {
		return nil, fmt.Errorf("ユーザーランキング順位の計算に失敗しました: %w", err)
	}

	resp := models.NewResultResponse(*bestScore, rank)
	return &resp, nil
}
