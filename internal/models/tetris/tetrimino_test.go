package tetris

import (
	"encoding/json"
	"testing"
)

// sequenceSource は決まった値を順番に返すテスト用の乱数源です。
type sequenceSource struct {
	values []int
	calls  int
}

func (s *sequenceSource) Intn(n int) int {
	v := s.values[s.calls%len(s.values)] % n
	s.calls++
	return v
}

// TestCatalog_Size はカタログが15種類のピースを持つことを確認します。
func TestCatalog_Size(t *testing.T) {
	if PieceCount != 15 {
		t.Fatalf("Expected 15 pieces in catalog, got %d", PieceCount)
	}
	if got := len(AllPieceTypes()); got != PieceCount {
		t.Errorf("AllPieceTypes returned %d types, want %d", got, PieceCount)
	}
}

// TestCatalog_SquareMatrices は全ての形状が N×N (N は 2〜4) であることを確認します。
func TestCatalog_SquareMatrices(t *testing.T) {
	for _, pt := range AllPieceTypes() {
		shape := pt.Shape()
		n := shape.Size()
		if n < 2 || n > 4 {
			t.Errorf("%s: unexpected size %d", pt, n)
		}
		for i, row := range shape {
			if len(row) != n {
				t.Errorf("%s: row %d has %d columns, want %d", pt, i, len(row), n)
			}
		}
		if len(shape.Cells()) == 0 {
			t.Errorf("%s: shape has no blocks", pt)
		}
	}
}

// TestShape_RotateFourTimes は4回回転すると元の形状に戻ることを確認します。
func TestShape_RotateFourTimes(t *testing.T) {
	for _, pt := range AllPieceTypes() {
		original := pt.Shape()
		rotated := original
		for i := 0; i < 4; i++ {
			rotated = rotated.Rotate()
		}
		if !rotated.Equal(original) {
			t.Errorf("%s: four rotations did not restore the original matrix", pt)
		}
	}
}

// TestShape_RotateClockwise は回転が時計回りであることをL-ミノで確認します。
func TestShape_RotateClockwise(t *testing.T) {
	got := TypeL.Shape().Rotate()
	want := Shape{
		{false, true, false},
		{false, true, false},
		{false, true, true},
	}
	if !got.Equal(want) {
		t.Errorf("Unexpected rotation result: %v", got)
	}
}

// TestShape_RotateDoesNotMutate は回転が元の行列を変更しないことを確認します。
func TestShape_RotateDoesNotMutate(t *testing.T) {
	shape := TypeT.Shape()
	before := shape.Clone()
	_ = shape.Rotate()
	if !shape.Equal(before) {
		t.Error("Rotate modified the receiver")
	}
}

// TestPieceType_ShapeIsCopy はカタログの形状がコピーで返されることを確認します。
func TestPieceType_ShapeIsCopy(t *testing.T) {
	shape := TypeO.Shape()
	shape[0][0] = false
	if !TypeO.Shape()[0][0] {
		t.Error("Modifying a returned shape changed the catalog")
	}
}

// TestRandomShape は乱数源のインデックスに対応するピースが選ばれ、乱数が1回だけ消費されることを確認します。
func TestRandomShape(t *testing.T) {
	src := &sequenceSource{values: []int{3, 14}}

	pt, shape := RandomShape(src)
	if pt != TypeO {
		t.Errorf("Expected O piece, got %s", pt)
	}
	if !shape.Equal(TypeO.Shape()) {
		t.Error("Shape does not match catalog entry")
	}
	if src.calls != 1 {
		t.Errorf("Expected exactly one random draw, got %d", src.calls)
	}

	pt, _ = RandomShape(src)
	if pt != TypeBlock {
		t.Errorf("Expected BLOCK piece, got %s", pt)
	}
}

// TestRandomShape_CoversCatalog は全インデックスで全種類のピースが得られることを確認します。
func TestRandomShape_CoversCatalog(t *testing.T) {
	values := make([]int, PieceCount)
	for i := range values {
		values[i] = i
	}
	src := &sequenceSource{values: values}
	seen := make(map[PieceType]bool)
	for i := 0; i < PieceCount; i++ {
		pt, _ := RandomShape(src)
		seen[pt] = true
	}
	if len(seen) != PieceCount {
		t.Errorf("Expected all %d pieces to be drawn, got %d", PieceCount, len(seen))
	}
}

// TestParsePieceType は名前とPieceTypeの相互変換を確認します。
func TestParsePieceType(t *testing.T) {
	for _, pt := range AllPieceTypes() {
		parsed, ok := ParsePieceType(pt.String())
		if !ok || parsed != pt {
			t.Errorf("ParsePieceType(%q) = %v, %v", pt.String(), parsed, ok)
		}
	}
	if _, ok := ParsePieceType("W"); ok {
		t.Error("Expected unknown name to fail")
	}
}

// TestPiece_JSON はピースがJSON上で名前付きの種類として送信されることを確認します。
func TestPiece_JSON(t *testing.T) {
	p := &Piece{Type: TypeXUI, Shape: TypeXUI.Shape(), Row: -3, Column: 3}
	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if decoded["type"] != "XUI" {
		t.Errorf("Expected type XUI, got %v", decoded["type"])
	}
}

// TestPiece_Cells は基準点を加えた絶対座標を確認します。
func TestPiece_Cells(t *testing.T) {
	p := &Piece{Type: TypeO, Shape: TypeO.Shape(), Row: 18, Column: 4}
	want := []Cell{{18, 4}, {18, 5}, {19, 4}, {19, 5}}
	got := p.Cells()
	if len(got) != len(want) {
		t.Fatalf("Expected %d cells, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("cell %d: got %v, want %v", i, got[i], want[i])
		}
	}
}
