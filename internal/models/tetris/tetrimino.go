package tetris

import "fmt"

// PieceType はテトリミノの種類を表します。
// 値の並びはカタログの定義順で、RandomShape の抽選インデックスとしても使われます。
type PieceType int

const (
	TypeI     PieceType = iota // 0: I-ミノ
	TypeJ                      // 1: J-ミノ
	TypeL                      // 2: L-ミノ
	TypeO                      // 3: O-ミノ (2x2)
	TypeS                      // 4: S-ミノ
	TypeZ                      // 5: Z-ミノ
	TypeT                      // 6: T-ミノ
	TypeQ                      // 7: Q (階段型)
	TypeXUI                    // 8: XUI (逆T型の長いもの)
	TypeX                      // 9: X (十字)
	TypeR                      // 10: R (角型)
	TypeU                      // 11: U
	TypeN                      // 12: N
	TypePip                    // 13: PIP (1ブロック)
	TypeBlock                  // 14: BLOCK (2ブロック)

	pieceTypeCount // カタログに含まれるピースの総数
)

// PieceCount はカタログに含まれるピースの種類数です。
const PieceCount = int(pieceTypeCount)

var pieceNames = [pieceTypeCount]string{
	"I", "J", "L", "O", "S", "Z", "T", "Q", "XUI", "X", "R", "U", "N", "PIP", "BLOCK",
}

// pieceMatrices は各PieceTypeの初期形状です。1 がブロックのあるマスを表します。
// 行列は必ず正方形 (N×N, N ∈ {2,3,4}) です。
var pieceMatrices = [pieceTypeCount][][]int{
	TypeI: {
		{0, 0, 0, 0},
		{1, 1, 1, 1},
		{0, 0, 0, 0},
		{0, 0, 0, 0},
	},
	TypeJ: {
		{1, 0, 0},
		{1, 1, 1},
		{0, 0, 0},
	},
	TypeL: {
		{0, 0, 1},
		{1, 1, 1},
		{0, 0, 0},
	},
	TypeO: {
		{1, 1},
		{1, 1},
	},
	TypeS: {
		{0, 1, 1},
		{1, 1, 0},
		{0, 0, 0},
	},
	TypeZ: {
		{1, 1, 0},
		{0, 1, 1},
		{0, 0, 0},
	},
	TypeT: {
		{0, 1, 0},
		{1, 1, 1},
		{0, 0, 0},
	},
	TypeQ: {
		{1, 0, 0},
		{1, 1, 0},
		{1, 1, 1},
	},
	TypeXUI: {
		{0, 1, 0},
		{0, 1, 0},
		{1, 1, 1},
	},
	TypeX: {
		{0, 1, 0},
		{1, 1, 1},
		{0, 1, 0},
	},
	TypeR: {
		{1, 1, 1},
		{1, 0, 0},
		{1, 0, 0},
	},
	TypeU: {
		{0, 0, 0},
		{1, 0, 1},
		{1, 1, 1},
	},
	TypeN: {
		{0, 0, 1},
		{1, 1, 1},
		{0, 1, 0},
	},
	TypePip: {
		{0, 0, 0},
		{0, 1, 0},
		{0, 0, 0},
	},
	TypeBlock: {
		{0, 0, 0},
		{0, 1, 1},
		{0, 0, 0},
	},
}

// String はPieceTypeを文字列表現 ("I", "XUI" など) に変換します。
func (t PieceType) String() string {
	if !t.Valid() {
		return "UNKNOWN"
	}
	return pieceNames[t]
}

// Valid はカタログに存在するPieceTypeかどうかを返します。
func (t PieceType) Valid() bool {
	return t >= 0 && t < pieceTypeCount
}

// Shape はこのPieceTypeの初期形状のコピーを返します。
// 呼び出し側が変更してもカタログには影響しません。
func (t PieceType) Shape() Shape {
	if !t.Valid() {
		return nil
	}
	src := pieceMatrices[t]
	shape := make(Shape, len(src))
	for i, row := range src {
		shape[i] = make([]bool, len(row))
		for j, v := range row {
			shape[i][j] = v == 1
		}
	}
	return shape
}

// ParsePieceType は文字列のテトリミノ名をPieceTypeに変換します。
func ParsePieceType(s string) (PieceType, bool) {
	for i, name := range pieceNames {
		if name == s {
			return PieceType(i), true
		}
	}
	return TypeI, false
}

// MarshalText はJSON上でピース名を文字列として送信するために使われます。
func (t PieceType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("不明なピースタイプです: %d", int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText はピース名からPieceTypeを復元します。
func (t *PieceType) UnmarshalText(text []byte) error {
	parsed, ok := ParsePieceType(string(text))
	if !ok {
		return fmt.Errorf("不明なピース名です: %q", string(text))
	}
	*t = parsed
	return nil
}

// AllPieceTypes はカタログ順に全てのPieceTypeを返します。
func AllPieceTypes() []PieceType {
	types := make([]PieceType, 0, pieceTypeCount)
	for t := PieceType(0); t < pieceTypeCount; t++ {
		types = append(types, t)
	}
	return types
}

// RandomSource はピース抽選に使う乱数源です。*rand.Rand はこれを満たします。
type RandomSource interface {
	Intn(n int) int
}

// RandomShape はカタログ全体から一様にピースを1つ選び、その種類と形状を返します。
// 乱数は必ず1回だけ消費されます。
func RandomShape(r RandomSource) (PieceType, Shape) {
	t := PieceType(r.Intn(PieceCount))
	return t, t.Shape()
}

// Shape はピースの N×N 形状行列です。true のマスにブロックがあります。
type Shape [][]bool

// Size は行列の一辺の長さ N を返します。
func (s Shape) Size() int {
	return len(s)
}

// Clone は形状のディープコピーを返します。
func (s Shape) Clone() Shape {
	c := make(Shape, len(s))
	for i := range s {
		c[i] = append([]bool(nil), s[i]...)
	}
	return c
}

// Rotate は時計回りに90度回転した新しい行列を返します。元の行列は変更しません。
// rotated[i][j] = s[N-1-j][i]
func (s Shape) Rotate() Shape {
	n := len(s)
	rotated := make(Shape, n)
	for i := 0; i < n; i++ {
		rotated[i] = make([]bool, n)
		for j := 0; j < n; j++ {
			rotated[i][j] = s[n-1-j][i]
		}
	}
	return rotated
}

// Equal は2つの形状が同じマスを占有しているかどうかを返します。
func (s Shape) Equal(o Shape) bool {
	if len(s) != len(o) {
		return false
	}
	for i := range s {
		if len(s[i]) != len(o[i]) {
			return false
		}
		for j := range s[i] {
			if s[i][j] != o[i][j] {
				return false
			}
		}
	}
	return true
}

// Cell は行列またはボード上の座標です。
type Cell struct {
	Row    int `json:"row"`
	Column int `json:"column"`
}

// Cells は占有マスの行列内相対座標を返します。
func (s Shape) Cells() []Cell {
	var cells []Cell
	for i, row := range s {
		for j, filled := range row {
			if filled {
				cells = append(cells, Cell{Row: i, Column: j})
			}
		}
	}
	return cells
}

// Piece は操作中のテトリミノの状態（種類、形状、ボード上の基準点、ゴースト位置）を表します。
// 基準点 (Row, Column) は形状行列の左上マスのボード座標です。
type Piece struct {
	Type        PieceType `json:"type"`
	Shape       Shape     `json:"shape"`
	Row         int       `json:"row"`
	Column      int       `json:"column"`
	GhostRow    int       `json:"ghost_row"`
	GhostColumn int       `json:"ghost_column"`
}

// Cells は現在の基準点に配置したときのボード上の絶対座標を返します。
func (p *Piece) Cells() []Cell {
	cells := p.Shape.Cells()
	for i := range cells {
		cells[i].Row += p.Row
		cells[i].Column += p.Column
	}
	return cells
}

// Clone は現在のPieceオブジェクトのディープコピーを返します。
func (p *Piece) Clone() *Piece {
	newP := *p
	newP.Shape = p.Shape.Clone()
	return &newP
}
