package tetris

const (
	BoardWidth  = 10 // テトリスボードの幅（列数）
	BoardHeight = 20 // テトリスボードの高さ（表示部分の行数）
)

// BlockType はボード上のマスの状態を表します。
// 0 は空のマス、それ以外は固定されたピースの種類 (PieceType + 1) です。
type BlockType int

// BlockEmpty は空のマスです。
const BlockEmpty BlockType = 0

// BlockFor はPieceTypeに対応するBlockTypeを返します。
func BlockFor(t PieceType) BlockType {
	return BlockType(t + 1)
}

// PieceType はこのマスを埋めたピースの種類を返します。空のマスの場合はfalseです。
func (b BlockType) PieceType() (PieceType, bool) {
	if b == BlockEmpty {
		return 0, false
	}
	t := PieceType(b - 1)
	return t, t.Valid()
}

// MarshalText は空マスを ""、それ以外をピース名として書き出します。
func (b BlockType) MarshalText() ([]byte, error) {
	if b == BlockEmpty {
		return []byte{}, nil
	}
	t, _ := b.PieceType()
	return t.MarshalText()
}

// UnmarshalText はMarshalTextの逆変換です。
func (b *BlockType) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*b = BlockEmpty
		return nil
	}
	var t PieceType
	if err := t.UnmarshalText(text); err != nil {
		return err
	}
	*b = BlockFor(t)
	return nil
}

// Board はテトリスのゲームボードです。サイズは生成後に変わりません。
// cells[row][column] でアクセスします。row は上から 0 始まりです。
type Board struct {
	rows    int
	columns int
	cells   [][]BlockType
}

// NewBoard は標準サイズ (20x10) の空のボードを返します。
func NewBoard() *Board {
	return NewBoardSize(BoardHeight, BoardWidth)
}

// NewBoardSize は指定サイズの空のボードを返します。
// サイズの妥当性は呼び出し側 (ゲーム状態の生成時) で検証されます。
func NewBoardSize(rows, columns int) *Board {
	b := &Board{rows: rows, columns: columns}
	b.cells = make([][]BlockType, rows)
	for y := range b.cells {
		b.cells[y] = make([]BlockType, columns)
	}
	return b
}

func (b *Board) Rows() int    { return b.rows }
func (b *Board) Columns() int { return b.columns }

// At は指定マスのBlockTypeを返します。範囲外は BlockEmpty です。
func (b *Board) At(row, column int) BlockType {
	if row < 0 || row >= b.rows || column < 0 || column >= b.columns {
		return BlockEmpty
	}
	return b.cells[row][column]
}

// IsOccupied は衝突判定用にマスが埋まっているかどうかを返します。
// 左右の壁の外と床より下は埋まっているものとして扱います。
// 上端より上（row < 0）は見えない領域で、常に空いています。
func (b *Board) IsOccupied(row, column int) bool {
	if column < 0 || column >= b.columns || row >= b.rows {
		return true
	}
	if row < 0 {
		return false
	}
	return b.cells[row][column] != BlockEmpty
}

// CanPlace は形状を基準点 (row, column) に置けるかどうかを判定します。
// 移動・回転・落下の可否はすべてこの判定だけで決まります。
func (b *Board) CanPlace(shape Shape, row, column int) bool {
	for i, line := range shape {
		for j, filled := range line {
			if filled && b.IsOccupied(row+i, column+j) {
				return false
			}
		}
	}
	return true
}

// Lock は落下したピースをボードに固定し、各マスをピースの種類で埋めます。
// 呼び出し側は CanPlace で衝突がないことを確認済みである必要があります。
//
// Returns:
//   int: 上端より上にはみ出して固定できなかったマスの数
func (b *Board) Lock(t PieceType, shape Shape, row, column int) int {
	hidden := 0
	for i, line := range shape {
		for j, filled := range line {
			if !filled {
				continue
			}
			y, x := row+i, column+j
			if y < 0 {
				hidden++
				continue
			}
			if y < b.rows && x >= 0 && x < b.columns {
				b.cells[y][x] = BlockFor(t)
			}
		}
	}
	return hidden
}

// ClearFullRows は揃ったラインをすべて消去し、上のブロックを落とします。
// 残った行の相対的な順序は保たれ、消えた行数だけ空行が上に追加されます。
//
// Returns:
//   int: クリアされたライン数
func (b *Board) ClearFullRows() int {
	cleared := 0
	next := make([][]BlockType, b.rows)
	destY := b.rows - 1 // 新しいボードにコピーする際の最も下の行

	// ボードの最下部から上に向かって各行をチェック
	for y := b.rows - 1; y >= 0; y-- {
		if b.rowFull(y) {
			cleared++
			continue
		}
		next[destY] = b.cells[y]
		destY--
	}
	for ; destY >= 0; destY-- {
		next[destY] = make([]BlockType, b.columns)
	}
	b.cells = next
	return cleared
}

func (b *Board) rowFull(y int) bool {
	for _, cell := range b.cells[y] {
		if cell == BlockEmpty {
			return false
		}
	}
	return true
}

// Snapshot はボードのディープコピーを返します。描画などの読み取り専用用途向けです。
func (b *Board) Snapshot() [][]BlockType {
	snap := make([][]BlockType, b.rows)
	for y, line := range b.cells {
		snap[y] = append([]BlockType(nil), line...)
	}
	return snap
}
