package tetris

import (
	"errors"
	"fmt"
)

// ScoreRules はスコア計算の係数です。難易度倍率を掛ける前の基本点を定義します。
type ScoreRules struct {
	// LinePoints[n] は n ライン同時消去の基本点です。表より多い行数は最後の値を使います。
	LinePoints []int `json:"line_points"`
	// HardDropCellPoints はハードドロップで落下した1行あたりの基本点です。
	HardDropCellPoints int `json:"hard_drop_cell_points"`
}

// DefaultScoreRules は一般的なテトリスの配点 (Single 100, Double 300, Triple 500, Tetris 800) を返します。
func DefaultScoreRules() ScoreRules {
	return ScoreRules{
		LinePoints:         []int{0, 100, 300, 500, 800},
		HardDropCellPoints: 2,
	}
}

// Validate はスコアが単調非減少になる配点かどうかを検証します。
func (r ScoreRules) Validate() error {
	if len(r.LinePoints) < 2 {
		return errors.New("line_points には少なくとも0行と1行の配点が必要です")
	}
	if r.LinePoints[0] != 0 {
		return errors.New("0ライン消去の配点は0である必要があります")
	}
	for i := 1; i < len(r.LinePoints); i++ {
		if r.LinePoints[i] < r.LinePoints[i-1] {
			return fmt.Errorf("line_points は非減少である必要があります: index %d (%d < %d)", i, r.LinePoints[i], r.LinePoints[i-1])
		}
	}
	if r.HardDropCellPoints < 0 {
		return errors.New("hard_drop_cell_points は0以上である必要があります")
	}
	return nil
}

// LineClearScore はクリアしたライン数と難易度倍率から加算スコアを計算します。
// ライン数が0の場合は0です。
func (r ScoreRules) LineClearScore(lines int, multiplier float64) int {
	if lines <= 0 || len(r.LinePoints) == 0 {
		return 0
	}
	if lines >= len(r.LinePoints) {
		lines = len(r.LinePoints) - 1
	}
	return scaled(r.LinePoints[lines], multiplier)
}

// HardDropScore はハードドロップで落下した行数に応じたボーナスを計算します。
func (r ScoreRules) HardDropScore(cells int, multiplier float64) int {
	if cells <= 0 {
		return 0
	}
	return scaled(cells*r.HardDropCellPoints, multiplier)
}

func scaled(base int, multiplier float64) int {
	if base <= 0 || multiplier <= 0 {
		return 0
	}
	return int(float64(base) * multiplier)
}
