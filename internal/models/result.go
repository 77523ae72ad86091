package models

import (
	"time"
)

// Result はresultsテーブルのレコードに対応する構造体です。
// 1ゲーム終了ごとに1件作成されます。
type Result struct {
	ID           int64     `json:"id"`
	UserID       string    `json:"user_id"`
	Score        int       `json:"score"`
	LinesCleared int       `json:"lines_cleared"`
	Difficulty   string    `json:"difficulty"`
	CreatedAt    time.Time `json:"created_at"`
}

// ResultResponse はAPI レスポンス用の構造体です。
type ResultResponse struct {
	ID           int64     `json:"id"`
	UserID       string    `json:"user_id"`
	Score        int       `json:"score"`
	LinesCleared int       `json:"lines_cleared"`
	Difficulty   string    `json:"difficulty"`
	CreatedAt    time.Time `json:"created_at"`
	Rank         int       `json:"rank"` // ランキング順位
}

// NewResultResponse は順位付きのレスポンスを作成します。
func NewResultResponse(r Result, rank int) ResultResponse {
	return ResultResponse{
		ID:           r.ID,
		UserID:       r.UserID,
		Score:        r.Score,
		LinesCleared: r.LinesCleared,
		Difficulty:   r.Difficulty,
		CreatedAt:    r.CreatedAt,
		Rank:         rank,
	}
}

// ResultRequest はリザルト保存リクエスト用の構造体です。
type ResultRequest struct {
	UserID       string `json:"user_id"`
	Score        int    `json:"score"`
	LinesCleared int    `json:"lines_cleared"`
	Difficulty   string `json:"difficulty"`
}
