package tetris

import (
	"encoding/json"
	"testing"
)

// fillRow は指定行を column 以外すべて埋めます（column < 0 なら全列）。
func fillRow(b *Board, row, except int) {
	for x := 0; x < b.Columns(); x++ {
		if x == except {
			continue
		}
		b.Lock(TypePip, Shape{{true}}, row, x)
	}
}

// TestNewBoard はボードのサイズと初期状態を確認します。
func TestNewBoard(t *testing.T) {
	b := NewBoard()
	if b.Rows() != BoardHeight || b.Columns() != BoardWidth {
		t.Fatalf("Expected %dx%d board, got %dx%d", BoardHeight, BoardWidth, b.Rows(), b.Columns())
	}
	for y := 0; y < b.Rows(); y++ {
		for x := 0; x < b.Columns(); x++ {
			if b.At(y, x) != BlockEmpty {
				t.Fatalf("Expected empty cell at (%d,%d)", y, x)
			}
		}
	}
}

// TestBoard_IsOccupied は境界の扱いを確認します。
func TestBoard_IsOccupied(t *testing.T) {
	b := NewBoard()
	cases := []struct {
		name        string
		row, column int
		want        bool
	}{
		{"inside empty", 5, 5, false},
		{"left wall", 5, -1, true},
		{"right wall", 5, BoardWidth, true},
		{"floor", BoardHeight, 0, true},
		{"above top", -3, 4, false},
		{"above top outside columns", -1, -1, true},
	}
	for _, tc := range cases {
		if got := b.IsOccupied(tc.row, tc.column); got != tc.want {
			t.Errorf("%s: IsOccupied(%d,%d) = %v, want %v", tc.name, tc.row, tc.column, got, tc.want)
		}
	}

	b.Lock(TypeT, Shape{{true}}, 10, 3)
	if !b.IsOccupied(10, 3) {
		t.Error("Expected locked cell to be occupied")
	}
}

// TestBoard_CanPlace は壁・床・既存ブロックとの衝突判定を確認します。
func TestBoard_CanPlace(t *testing.T) {
	b := NewBoard()
	o := TypeO.Shape()

	if !b.CanPlace(o, 18, 0) {
		t.Error("O piece should fit in the bottom-left corner")
	}
	if b.CanPlace(o, 19, 0) {
		t.Error("O piece should collide with the floor")
	}
	if b.CanPlace(o, 0, BoardWidth-1) {
		t.Error("O piece should collide with the right wall")
	}
	if !b.CanPlace(o, -2, 4) {
		t.Error("Rows above the top should always be free")
	}

	// I-ミノは行列の1行目が空なので、行列が床からはみ出していても置ける
	i := TypeI.Shape()
	if !b.CanPlace(i, BoardHeight-2, 0) {
		t.Error("Empty matrix rows must not collide")
	}

	b.Lock(TypeZ, Shape{{true}}, 19, 1)
	if b.CanPlace(o, 18, 0) {
		t.Error("O piece should collide with a locked block")
	}
}

// TestBoard_Lock はピース固定時のマスの種類と上端はみ出しの数を確認します。
func TestBoard_Lock(t *testing.T) {
	b := NewBoard()
	hidden := b.Lock(TypeO, TypeO.Shape(), 18, 4)
	if hidden != 0 {
		t.Errorf("Expected no hidden cells, got %d", hidden)
	}
	for _, c := range []Cell{{18, 4}, {18, 5}, {19, 4}, {19, 5}} {
		if b.At(c.Row, c.Column) != BlockFor(TypeO) {
			t.Errorf("Expected O block at %v", c)
		}
	}

	hidden = b.Lock(TypeI, TypeI.Shape().Rotate(), -2, 0)
	if hidden != 2 {
		t.Errorf("Expected 2 hidden cells, got %d", hidden)
	}
}

// TestBoard_ClearFullRows_Single は1行クリアと上の行の落下を確認します。
func TestBoard_ClearFullRows_Single(t *testing.T) {
	b := NewBoard()
	fillRow(b, 19, -1)
	b.Lock(TypeT, Shape{{true}}, 18, 2)

	if n := b.ClearFullRows(); n != 1 {
		t.Fatalf("Expected 1 cleared row, got %d", n)
	}
	if b.At(19, 2) != BlockFor(TypeT) {
		t.Error("Block above the cleared row should shift down by one")
	}
	if b.At(18, 2) != BlockEmpty {
		t.Error("Row 18 should now be empty")
	}
	if b.Rows() != BoardHeight {
		t.Error("Board height changed")
	}
}

// TestBoard_ClearFullRows_Multiple は離れた複数行の同時クリアで残りの行の順序が保たれることを確認します。
func TestBoard_ClearFullRows_Multiple(t *testing.T) {
	b := NewBoard()
	fillRow(b, 19, -1)
	b.Lock(TypeJ, Shape{{true}}, 18, 0) // 残る行 (下)
	fillRow(b, 17, -1)
	b.Lock(TypeL, Shape{{true}}, 16, 9) // 残る行 (上)

	if n := b.ClearFullRows(); n != 2 {
		t.Fatalf("Expected 2 cleared rows, got %d", n)
	}
	if b.At(19, 0) != BlockFor(TypeJ) {
		t.Error("Row 18 should have shifted down by one")
	}
	if b.At(18, 9) != BlockFor(TypeL) {
		t.Error("Row 16 should have shifted down by two")
	}
	for y := 0; y < 18; y++ {
		for x := 0; x < BoardWidth; x++ {
			if b.At(y, x) != BlockEmpty {
				t.Fatalf("Expected empty cell at (%d,%d)", y, x)
			}
		}
	}
}

// TestBoard_ClearFullRows_None は揃っていない行が残ることを確認します。
func TestBoard_ClearFullRows_None(t *testing.T) {
	b := NewBoard()
	fillRow(b, 19, 3)
	if n := b.ClearFullRows(); n != 0 {
		t.Errorf("Expected no cleared rows, got %d", n)
	}
	if b.At(19, 0) == BlockEmpty {
		t.Error("Incomplete row should remain")
	}
}

// TestBoard_Snapshot はスナップショットが独立したコピーであることを確認します。
func TestBoard_Snapshot(t *testing.T) {
	b := NewBoard()
	snap := b.Snapshot()
	snap[0][0] = BlockFor(TypeI)
	if b.At(0, 0) != BlockEmpty {
		t.Error("Modifying the snapshot changed the board")
	}

	data, err := json.Marshal(snap[0][:2])
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(data) != `["I",""]` {
		t.Errorf("Unexpected JSON: %s", data)
	}
}
