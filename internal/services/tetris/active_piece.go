package tetris

import (
	"github.com/progate-hackathon-strawberry-flavor/blockfall-backend/internal/models/tetris"
)

// pieceController は操作中のピースを1つだけ保持し、移動・回転・ゴースト計算を行います。
// ボードは PlayerGameState が所有しており、ここでは参照のみ持ちます。
type pieceController struct {
	board       *tetris.Board
	rng         tetris.RandomSource
	spawnOffset int // 既定の生成行 (-N) からのずれ。正の値で下にずれる
	piece       *tetris.Piece
}

// spawn はカタログからランダムに選んだピースをボード中央上部に出現させます。
// 既定では行列全体が表示領域のすぐ上に収まる位置 (row = -N) に置かれ、ゴーストも即座に再計算されます。
//
// Returns:
//   bool: 生成位置に置ける場合はtrue、既存ブロックと衝突する場合はfalse
func (c *pieceController) spawn() bool {
	t, shape := tetris.RandomShape(c.rng)
	n := shape.Size()
	c.piece = &tetris.Piece{
		Type:   t,
		Shape:  shape,
		Row:    -n + c.spawnOffset,
		Column: (c.board.Columns() - n) / 2,
	}
	c.projectGhost()
	return c.board.CanPlace(shape, c.piece.Row, c.piece.Column)
}

// attemptMove は基準点を (dRow, dColumn) だけ動かせるか試し、置ける場合のみ反映します。
func (c *pieceController) attemptMove(dRow, dColumn int) bool {
	p := c.piece
	if p == nil || !c.board.CanPlace(p.Shape, p.Row+dRow, p.Column+dColumn) {
		return false
	}
	p.Row += dRow
	p.Column += dColumn
	c.projectGhost()
	return true
}

// attemptRotate は時計回りに回転した形状を現在の基準点で試します。
// 衝突する場合は壁蹴りをせずに回転を取り消します。
func (c *pieceController) attemptRotate() bool {
	p := c.piece
	if p == nil {
		return false
	}
	rotated := p.Shape.Rotate()
	if !c.board.CanPlace(rotated, p.Row, p.Column) {
		return false
	}
	p.Shape = rotated
	c.projectGhost()
	return true
}

// dropDistance は現在位置からそのまま真下に落とせる行数を返します。
func (c *pieceController) dropDistance() int {
	p := c.piece
	if p == nil {
		return 0
	}
	d := 0
	for c.board.CanPlace(p.Shape, p.Row+d+1, p.Column) {
		d++
	}
	return d
}

// projectGhost はハードドロップした場合の着地位置をゴーストとして記録します。
func (c *pieceController) projectGhost() {
	p := c.piece
	if p == nil {
		return
	}
	p.GhostRow = p.Row + c.dropDistance()
	p.GhostColumn = p.Column
}
