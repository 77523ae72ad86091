package tetris

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/progate-hackathon-strawberry-flavor/blockfall-backend/internal/models/tetris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedPieces は指定したピースを順番に返すテスト用の乱数源です。
type fixedPieces struct {
	types []tetris.PieceType
	next  int
}

func (f *fixedPieces) Intn(n int) int {
	t := f.types[f.next%len(f.types)]
	f.next++
	return int(t) % n
}

func newTestState(t *testing.T, opts Options, pieces ...tetris.PieceType) *PlayerGameState {
	t.Helper()
	if len(pieces) > 0 {
		opts.Rand = &fixedPieces{types: pieces}
	}
	state, err := NewPlayerGameState(opts)
	require.NoError(t, err)
	return state
}

// canPlaceOn はスナップショットのボードに対する衝突判定です（ゴースト検証用）。
func canPlaceOn(board [][]tetris.BlockType, shape tetris.Shape, row, column int) bool {
	for i, line := range shape {
		for j, filled := range line {
			if !filled {
				continue
			}
			y, x := row+i, column+j
			if x < 0 || x >= len(board[0]) || y >= len(board) {
				return false
			}
			if y >= 0 && board[y][x] != tetris.BlockEmpty {
				return false
			}
		}
	}
	return true
}

func expectedGhostRow(snap GameSnapshot) int {
	p := snap.CurrentPiece
	row := p.Row
	for canPlaceOn(snap.Board, p.Shape, row+1, p.Column) {
		row++
	}
	return row
}

func TestNewPlayerGameState(t *testing.T) {
	state := newTestState(t, Options{}, tetris.TypeO)
	snap := state.Snapshot()

	assert.Equal(t, 0, snap.Score)
	assert.Equal(t, 0, snap.LinesCleared)
	assert.False(t, snap.IsGameOver)
	assert.Equal(t, PhaseFalling, snap.Phase)
	assert.Equal(t, 1.0, snap.Multiplier)

	// ボードの初期化を確認
	require.Len(t, snap.Board, tetris.BoardHeight)
	assert.Len(t, snap.Board[0], tetris.BoardWidth)

	// ピースは中央上部、行列全体が表示領域の上に生成される
	require.NotNil(t, snap.CurrentPiece)
	assert.Equal(t, tetris.TypeO, snap.CurrentPiece.Type)
	assert.Equal(t, -2, snap.CurrentPiece.Row)
	assert.Equal(t, 4, snap.CurrentPiece.Column)
	assert.Equal(t, 18, snap.CurrentPiece.GhostRow)
	assert.Equal(t, 4, snap.CurrentPiece.GhostColumn)
}

func TestNewPlayerGameState_TallestPieceSpawnsOffScreen(t *testing.T) {
	state := newTestState(t, Options{}, tetris.TypeI)
	p := state.Snapshot().CurrentPiece
	for _, c := range p.Cells() {
		assert.Less(t, c.Row, 0, "cell %v should be above the visible field", c)
	}
	assert.Equal(t, 3, p.Column)
}

func TestNewPlayerGameState_InvalidOptions(t *testing.T) {
	badRules := ScoreRules{LinePoints: []int{0, 300, 100}}
	cases := map[string]Options{
		"too few rows":        {Rows: 3},
		"too few columns":     {Columns: 2},
		"negative multiplier": {Multiplier: -1},
		"decreasing points":   {Rules: &badRules},
		"spawn below board":   {SpawnRowOffset: 20},
	}
	for name, opts := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewPlayerGameState(opts)
			assert.ErrorIs(t, err, ErrInvalidOptions)
		})
	}
}

func TestNewPlayerGameState_CustomSize(t *testing.T) {
	state := newTestState(t, Options{Rows: 12, Columns: 6}, tetris.TypeT)
	snap := state.Snapshot()
	assert.Len(t, snap.Board, 12)
	assert.Len(t, snap.Board[0], 6)
	assert.Equal(t, 1, snap.CurrentPiece.Column)
}

// 空のボードでO-ミノをハードドロップすると、下端が最下段に揃い列は変わらない
func TestHardDrop_SquareLandsOnBottomRow(t *testing.T) {
	state := newTestState(t, Options{}, tetris.TypeO, tetris.TypeT)
	spawnColumn := state.Snapshot().CurrentPiece.Column

	result := state.HardDrop()

	assert.True(t, result.Locked)
	assert.True(t, result.Moved)
	assert.False(t, result.GameOver)
	assert.Equal(t, 0, result.LinesCleared)
	// 20行落下 x 2点
	assert.Equal(t, 40, result.ScoreDelta)

	snap := state.Snapshot()
	for _, c := range []tetris.Cell{{Row: 18, Column: spawnColumn}, {Row: 18, Column: spawnColumn + 1}, {Row: 19, Column: spawnColumn}, {Row: 19, Column: spawnColumn + 1}} {
		assert.Equal(t, tetris.BlockFor(tetris.TypeO), snap.Board[c.Row][c.Column], "cell %v", c)
	}
	assert.Equal(t, 1, snap.PiecesLocked)
	assert.Equal(t, 40, snap.Score)

	// 次のピースが生成されている
	require.NotNil(t, snap.CurrentPiece)
	assert.Equal(t, tetris.TypeT, snap.CurrentPiece.Type)
}

func TestMoveLeftRight_StopsAtWalls(t *testing.T) {
	state := newTestState(t, Options{}, tetris.TypeO)

	for i := 0; i < 4; i++ {
		require.True(t, state.MoveLeft().Moved)
	}
	result := state.MoveLeft()
	assert.False(t, result.Moved)
	assert.False(t, result.Locked)
	assert.Equal(t, 0, state.Snapshot().CurrentPiece.Column)

	for i := 0; i < 8; i++ {
		require.True(t, state.MoveRight().Moved)
	}
	assert.False(t, state.MoveRight().Moved)
	assert.Equal(t, tetris.BoardWidth-2, state.Snapshot().CurrentPiece.Column)
}

func TestMoveLeft_BlockedByStack(t *testing.T) {
	state := newTestState(t, Options{}, tetris.TypeO)
	state.board.Lock(tetris.TypeI, tetris.Shape{{true}}, 19, 3)

	// 最下段まで落とす
	for state.Snapshot().CurrentPiece.Row < 18 {
		require.True(t, state.MoveDown().Moved)
	}
	assert.False(t, state.MoveLeft().Moved)
	assert.True(t, state.MoveRight().Moved)
}

func TestMoveDown_LocksWhenBlocked(t *testing.T) {
	state := newTestState(t, Options{}, tetris.TypeO, tetris.TypeI)

	moves := 0
	var result CommandResult
	for {
		result = state.MoveDown()
		if !result.Moved {
			break
		}
		moves++
	}
	assert.Equal(t, 20, moves)
	assert.True(t, result.Locked)
	// ソフトドロップではスコアは増えない
	assert.Equal(t, 0, result.ScoreDelta)
	assert.Equal(t, tetris.TypeI, state.Snapshot().CurrentPiece.Type)
}

func TestRotate_FourTimesRestoresShape(t *testing.T) {
	state := newTestState(t, Options{}, tetris.TypeT)
	original := state.Snapshot().CurrentPiece.Shape

	for i := 0; i < 4; i++ {
		require.True(t, state.Rotate().Moved)
	}
	assert.True(t, state.Snapshot().CurrentPiece.Shape.Equal(original))
}

// 壁際での回転は壁蹴りせずにそのまま拒否される
func TestRotate_RejectedAtWall(t *testing.T) {
	state := newTestState(t, Options{}, tetris.TypeI)

	// 縦向きにして左の壁に付ける（縦のIは行列の2列目を占有する）
	require.True(t, state.Rotate().Moved)
	for state.MoveLeft().Moved {
	}
	before := state.Snapshot().CurrentPiece
	require.Equal(t, -2, before.Column)

	result := state.Rotate()
	assert.False(t, result.Moved)

	after := state.Snapshot().CurrentPiece
	assert.True(t, after.Shape.Equal(before.Shape))
	assert.Equal(t, before.Column, after.Column)
	assert.Equal(t, before.GhostRow, after.GhostRow)
}

func TestGhost_TracksSuccessfulMoves(t *testing.T) {
	state := newTestState(t, Options{}, tetris.TypeL, tetris.TypeS, tetris.TypeX, tetris.TypeI)
	// 段差を作ってゴーストの位置が列によって変わるようにする
	state.board.Lock(tetris.TypeZ, tetris.Shape{{true}, {true}, {true}}, 17, 2)
	state.board.Lock(tetris.TypeZ, tetris.Shape{{true}}, 19, 7)

	actions := []func() CommandResult{
		state.MoveLeft, state.MoveLeft, state.Rotate, state.MoveDown,
		state.MoveRight, state.MoveRight, state.MoveRight, state.Rotate,
		state.MoveRight, state.MoveDown, state.Rotate, state.MoveLeft,
	}
	for i, act := range actions {
		act()
		snap := state.Snapshot()
		require.NotNil(t, snap.CurrentPiece)
		assert.Equal(t, expectedGhostRow(snap), snap.CurrentPiece.GhostRow, "step %d", i)
		assert.Equal(t, snap.CurrentPiece.Column, snap.CurrentPiece.GhostColumn, "step %d", i)
	}
}

// 最下段を1列だけ残して埋め、最後の列を埋めるピースを固定すると1ラインだけ消える
func TestLineClear_SingleRow(t *testing.T) {
	state := newTestState(t, Options{}, tetris.TypePip, tetris.TypeO)
	// PIPは (3,3) 行列の中央だけを占有するので列4に落ちる
	for x := 0; x < tetris.BoardWidth; x++ {
		if x != 4 {
			state.board.Lock(tetris.TypeI, tetris.Shape{{true}}, 19, x)
		}
	}
	state.board.Lock(tetris.TypeJ, tetris.Shape{{true}}, 18, 0)
	scoreBefore := state.Score()

	result := state.HardDrop()

	assert.True(t, result.Locked)
	assert.Equal(t, 1, result.LinesCleared)
	assert.Greater(t, result.ScoreDelta, 0)
	assert.Greater(t, state.Score(), scoreBefore)

	snap := state.Snapshot()
	assert.Equal(t, 1, snap.LinesCleared)
	// 先頭には空行が挿入される
	for x := 0; x < tetris.BoardWidth; x++ {
		assert.Equal(t, tetris.BlockEmpty, snap.Board[0][x])
	}
	// 18行目のブロックが1行下にずれ、最下段は消えた行ではなくなっている
	assert.Equal(t, tetris.BlockFor(tetris.TypeJ), snap.Board[19][0])
	for x := 1; x < tetris.BoardWidth; x++ {
		assert.Equal(t, tetris.BlockEmpty, snap.Board[19][x])
	}
}

func TestLineClear_ScoreScalesWithMultiplier(t *testing.T) {
	rules := ScoreRules{LinePoints: []int{0, 100}, HardDropCellPoints: 0}
	state := newTestState(t, Options{Multiplier: 0.5, Rules: &rules}, tetris.TypePip)
	for x := 0; x < tetris.BoardWidth; x++ {
		if x != 4 {
			state.board.Lock(tetris.TypeI, tetris.Shape{{true}}, 19, x)
		}
	}

	result := state.HardDrop()
	assert.Equal(t, 1, result.LinesCleared)
	assert.Equal(t, 50, result.ScoreDelta)
}

// 表示領域の上にはみ出したまま着地するとゲームオーバーになる
func TestGameOver_LockOutAboveTop(t *testing.T) {
	state := newTestState(t, Options{}, tetris.TypeO)
	for x := 1; x < tetris.BoardWidth; x++ {
		state.board.Lock(tetris.TypeI, tetris.Shape{{true}}, 0, x)
	}

	result := state.HardDrop()
	assert.True(t, result.GameOver)
	assert.False(t, result.Locked)

	snap := state.Snapshot()
	assert.True(t, snap.IsGameOver)
	assert.Equal(t, PhaseGameOver, snap.Phase)
	// はみ出したピースはボードに固定されない
	assert.Equal(t, 0, snap.PiecesLocked)
	assert.Equal(t, tetris.BlockEmpty, snap.Board[0][0])
}

// 生成位置が既存ブロックと衝突した直後にゲームオーバーになり、以後の操作は無視される
func TestGameOver_SpawnCollision(t *testing.T) {
	// 生成行を2行下げて、O-ミノが0〜1行目に出現するようにする
	state := newTestState(t, Options{SpawnRowOffset: 2}, tetris.TypeO)
	require.Equal(t, 0, state.Snapshot().CurrentPiece.Row)
	for y := 2; y < tetris.BoardHeight; y++ {
		state.board.Lock(tetris.TypeI, tetris.Shape{{true}}, y, 4)
	}

	// 1つ目は表示領域内に固定できる
	first := state.HardDrop()
	assert.True(t, first.Locked)
	// その直後に生成されたピースは置けない
	assert.True(t, first.GameOver)
	require.True(t, state.IsGameOver())

	before := state.Snapshot()
	for _, act := range []func() CommandResult{state.MoveLeft, state.MoveRight, state.MoveDown, state.Rotate, state.HardDrop} {
		r := act()
		assert.Equal(t, CommandResult{GameOver: true}, r)
	}
	after := state.Snapshot()
	assert.Equal(t, before, after)
}

// ランダムな操作列でスコアの単調性とボードの不変条件を確認します。
func TestInvariants_RandomCommandSequence(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	actions := []string{ActionMoveLeft, ActionMoveRight, ActionMoveDown, ActionRotate, ActionHardDrop}

	games := 0
	state := newTestState(t, Options{Rand: rand.New(rand.NewSource(7))})
	lastScore := 0
	for i := 0; i < 3000; i++ {
		if state.IsGameOver() {
			games++
			state = newTestState(t, Options{Rand: rand.New(rand.NewSource(int64(i)))})
			lastScore = 0
		}
		_, err := ApplyPlayerInput(state, actions[rng.Intn(len(actions))])
		require.NoError(t, err)

		snap := state.Snapshot()
		require.GreaterOrEqual(t, snap.Score, lastScore, "score decreased at step %d", i)
		lastScore = snap.Score

		require.Len(t, snap.Board, tetris.BoardHeight)
		for _, row := range snap.Board {
			require.Len(t, row, tetris.BoardWidth)
			for _, cell := range row {
				if cell == tetris.BlockEmpty {
					continue
				}
				_, ok := cell.PieceType()
				require.True(t, ok, "unknown tag %d", cell)
			}
		}
	}
	t.Logf("played %d finished games", games)
}

func TestConcurrentCommands(t *testing.T) {
	state := newTestState(t, Options{Rand: rand.New(rand.NewSource(1))})

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				state.MoveLeft()
				state.Rotate()
				state.MoveRight()
				state.MoveDown()
				_ = state.Snapshot()
			}
		}()
	}
	wg.Wait()
	assert.GreaterOrEqual(t, state.Score(), 0)
}
