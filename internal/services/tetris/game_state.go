package tetris

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/progate-hackathon-strawberry-flavor/blockfall-backend/internal/models/tetris"
)

// ErrInvalidOptions はゲーム状態の生成オプションが不正な場合に返されます。
var ErrInvalidOptions = errors.New("invalid game options")

// Phase はゲーム状態の進行段階です。
// spawning → falling → (locking → resolving → spawning) | game_over と遷移します。
// コマンドの実行後に外部から観測できるのは falling と game_over だけです。
type Phase string

const (
	PhaseSpawning  Phase = "spawning"
	PhaseFalling   Phase = "falling"
	PhaseLocking   Phase = "locking"
	PhaseResolving Phase = "resolving"
	PhaseGameOver  Phase = "game_over"
)

// Options はゲーム状態の生成時設定です。ゼロ値のフィールドは既定値で補われます。
type Options struct {
	Rows           int                 // ボードの行数 (既定 20)
	Columns        int                 // ボードの列数 (既定 10)
	Multiplier     float64             // 難易度によるスコア倍率 (既定 1)
	Rand           tetris.RandomSource // ピース抽選用の乱数源 (既定は現在時刻シードの *rand.Rand)
	Rules          *ScoreRules         // スコア配点 (既定 DefaultScoreRules)
	SpawnRowOffset int                 // 生成行 (-N) からのずれ。正の値で表示領域側に下がる
}

// CommandResult は1回のコマンド実行結果です。
type CommandResult struct {
	Moved        bool `json:"moved"`         // ピースが移動・回転した
	Locked       bool `json:"locked"`        // ピースが固定された
	LinesCleared int  `json:"lines_cleared"` // 固定によって消えたライン数
	ScoreDelta   int  `json:"score_delta"`   // このコマンドで加算されたスコア
	GameOver     bool `json:"game_over"`     // コマンド後にゲームオーバー状態である
}

// GameSnapshot は描画・送信用の読み取り専用のゲーム状態です。
type GameSnapshot struct {
	Board        [][]tetris.BlockType `json:"board"`
	CurrentPiece *tetris.Piece        `json:"current_piece"`
	Score        int                  `json:"score"`
	LinesCleared int                  `json:"lines_cleared"`
	PiecesLocked int                  `json:"pieces_locked"`
	Multiplier   float64              `json:"multiplier"`
	Phase        Phase                `json:"phase"`
	IsGameOver   bool                 `json:"is_game_over"`
}

// PlayerGameState は1プレイヤー・1ゲーム分の状態を排他的に所有します。
// ボード、操作中のピース、スコアはこの構造体の外にコピーを持ちません。
// 全ての公開メソッドはミューテックスで直列化されます。
type PlayerGameState struct {
	mu           sync.Mutex
	board        *tetris.Board
	controller   pieceController
	rules        ScoreRules
	multiplier   float64
	score        int
	linesCleared int
	piecesLocked int
	phase        Phase
}

// NewPlayerGameState は新しいゲーム状態を初期化し、最初のピースを生成して返します。
//
// Parameters:
//   opts : ボードサイズ、難易度倍率、乱数源などの設定
// Returns:
//   *PlayerGameState: 初期化されたゲーム状態のポインタ
//   error: 設定が不正な場合 (ErrInvalidOptions)
func NewPlayerGameState(opts Options) (*PlayerGameState, error) {
	if opts.Rows == 0 {
		opts.Rows = tetris.BoardHeight
	}
	if opts.Columns == 0 {
		opts.Columns = tetris.BoardWidth
	}
	if opts.Multiplier == 0 {
		opts.Multiplier = 1
	}
	rules := DefaultScoreRules()
	if opts.Rules != nil {
		rules = *opts.Rules
	}

	// 最大のピース (4x4) が横に収まらないボードは遊べない
	if opts.Rows < 4 || opts.Columns < 4 {
		return nil, fmt.Errorf("%w: board must be at least 4x4, got %dx%d", ErrInvalidOptions, opts.Rows, opts.Columns)
	}
	if opts.Multiplier < 0 {
		return nil, fmt.Errorf("%w: multiplier must be positive, got %v", ErrInvalidOptions, opts.Multiplier)
	}
	if opts.SpawnRowOffset >= opts.Rows {
		return nil, fmt.Errorf("%w: spawn row offset %d is below the board", ErrInvalidOptions, opts.SpawnRowOffset)
	}
	if err := rules.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}

	rng := opts.Rand
	if rng == nil {
		// 乱数生成器のシードを現在時刻で初期化
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	board := tetris.NewBoardSize(opts.Rows, opts.Columns)
	state := &PlayerGameState{
		board: board,
		controller: pieceController{
			board:       board,
			rng:         rng,
			spawnOffset: opts.SpawnRowOffset,
		},
		rules:      rules,
		multiplier: opts.Multiplier,
	}
	state.spawnNewPiece()
	return state, nil
}

// MoveLeft はピースを左に1マス動かします。動かせない場合は何もしません。
func (s *PlayerGameState) MoveLeft() CommandResult {
	return s.shift(0, -1)
}

// MoveRight はピースを右に1マス動かします。動かせない場合は何もしません。
func (s *PlayerGameState) MoveRight() CommandResult {
	return s.shift(0, 1)
}

// Rotate はピースを時計回りに回転させます。衝突する場合は何もしません。
func (s *PlayerGameState) Rotate() CommandResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseFalling {
		return s.resultLocked(CommandResult{})
	}
	return s.resultLocked(CommandResult{Moved: s.controller.attemptRotate()})
}

// MoveDown はピースを1マス落とします。
// 落とせない場合はその場でピースを固定し、ライン消去と次のピース生成まで行います。
func (s *PlayerGameState) MoveDown() CommandResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseFalling {
		return s.resultLocked(CommandResult{})
	}
	if s.controller.attemptMove(1, 0) {
		return s.resultLocked(CommandResult{Moved: true})
	}
	return s.resultLocked(s.lockPiece())
}

// HardDrop はピースを着地点まで一度に落として固定します。
func (s *PlayerGameState) HardDrop() CommandResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseFalling {
		return s.resultLocked(CommandResult{})
	}

	distance := s.controller.dropDistance()
	s.controller.piece.Row += distance
	bonus := s.rules.HardDropScore(distance, s.multiplier)
	s.score += bonus

	result := s.lockPiece()
	result.Moved = distance > 0
	result.ScoreDelta += bonus
	return s.resultLocked(result)
}

// Snapshot は現在のゲーム状態のコピーを返します。
func (s *PlayerGameState) Snapshot() GameSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := GameSnapshot{
		Board:        s.board.Snapshot(),
		Score:        s.score,
		LinesCleared: s.linesCleared,
		PiecesLocked: s.piecesLocked,
		Multiplier:   s.multiplier,
		Phase:        s.phase,
		IsGameOver:   s.phase == PhaseGameOver,
	}
	if s.controller.piece != nil {
		snap.CurrentPiece = s.controller.piece.Clone()
	}
	return snap
}

// Score は現在のスコアを返します。
func (s *PlayerGameState) Score() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.score
}

// IsGameOver はゲームオーバー状態かどうかを返します。
func (s *PlayerGameState) IsGameOver() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase == PhaseGameOver
}

func (s *PlayerGameState) shift(dRow, dColumn int) CommandResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseFalling {
		return s.resultLocked(CommandResult{})
	}
	return s.resultLocked(CommandResult{Moved: s.controller.attemptMove(dRow, dColumn)})
}

// lockPiece はピースがボードに固定された後の処理をすべて行います。
// ライン消去、スコア加算、次のピース生成、ゲームオーバー判定が含まれます。
// 呼び出し側はミューテックスを保持している必要があります。
func (s *PlayerGameState) lockPiece() CommandResult {
	p := s.controller.piece
	s.phase = PhaseLocking

	// 表示領域の上にはみ出したまま着地した場合は固定せずにゲームオーバー
	for _, cell := range p.Cells() {
		if cell.Row < 0 {
			s.phase = PhaseGameOver
			return CommandResult{}
		}
	}

	s.board.Lock(p.Type, p.Shape, p.Row, p.Column)
	s.controller.piece = nil
	s.piecesLocked++

	s.phase = PhaseResolving
	cleared := s.board.ClearFullRows()
	delta := s.rules.LineClearScore(cleared, s.multiplier)
	s.linesCleared += cleared
	s.score += delta

	s.spawnNewPiece()
	return CommandResult{Locked: true, LinesCleared: cleared, ScoreDelta: delta}
}

// spawnNewPiece は新しいピースを生成し、生成位置で衝突していればゲームオーバーにします。
func (s *PlayerGameState) spawnNewPiece() {
	s.phase = PhaseSpawning
	if !s.controller.spawn() {
		s.phase = PhaseGameOver
		return
	}
	s.phase = PhaseFalling
}

func (s *PlayerGameState) resultLocked(r CommandResult) CommandResult {
	r.GameOver = s.phase == PhaseGameOver
	return r
}
