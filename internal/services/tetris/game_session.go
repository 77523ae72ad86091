package tetris

import (
	"sync"
	"time"
)

// SessionStatus はゲームセッションの状態です。
type SessionStatus string

const (
	StatusPlaying  SessionStatus = "playing"
	StatusFinished SessionStatus = "finished"
)

// GameSession は1人のプレイヤーの1ゲームを表します。
// ゲーム本体は State が所有し、セッションは進行状態と接続中のクライアントを管理します。
type GameSession struct {
	ID         string
	UserID     string
	Difficulty DifficultySettings
	State      *PlayerGameState
	StartedAt  time.Time

	mu      sync.RWMutex
	status  SessionStatus
	endedAt time.Time
	clients map[*Client]struct{}

	fallInterval time.Duration
	resetGravity chan struct{} // 自動落下タイマーのリセット要求
	done         chan struct{} // ゲーム終了時に閉じられる
	finishOnce   sync.Once
}

// SessionInfo はAPIレスポンス・WebSocket送信用のセッション情報です。
type SessionInfo struct {
	RoomID     string        `json:"room_id"`
	UserID     string        `json:"user_id"`
	Difficulty Difficulty    `json:"difficulty"`
	Status     SessionStatus `json:"status"`
	StartedAt  time.Time     `json:"started_at"`
	EndedAt    *time.Time    `json:"ended_at,omitempty"`
	State      GameSnapshot  `json:"state"`
}

func newGameSession(id, userID string, difficulty DifficultySettings, state *PlayerGameState, fallInterval time.Duration) *GameSession {
	return &GameSession{
		ID:           id,
		UserID:       userID,
		Difficulty:   difficulty,
		State:        state,
		StartedAt:    time.Now(),
		status:       StatusPlaying,
		clients:      make(map[*Client]struct{}),
		fallInterval: fallInterval,
		resetGravity: make(chan struct{}, 1),
		done:         make(chan struct{}),
	}
}

// Status は現在のセッション状態を返します。
func (s *GameSession) Status() SessionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Done はゲーム終了時に閉じられるチャネルを返します。
func (s *GameSession) Done() <-chan struct{} {
	return s.done
}

// Info はセッションの現在の情報を返します。
func (s *GameSession) Info() SessionInfo {
	snapshot := s.State.Snapshot()

	s.mu.RLock()
	defer s.mu.RUnlock()
	info := SessionInfo{
		RoomID:     s.ID,
		UserID:     s.UserID,
		Difficulty: s.Difficulty.Name,
		Status:     s.status,
		StartedAt:  s.StartedAt,
		State:      snapshot,
	}
	if !s.endedAt.IsZero() {
		ended := s.endedAt
		info.EndedAt = &ended
	}
	return info
}

// finish はセッションを終了状態にします。最初の呼び出しのときだけ true を返します。
func (s *GameSession) finish() bool {
	finished := false
	s.finishOnce.Do(func() {
		s.mu.Lock()
		s.status = StatusFinished
		s.endedAt = time.Now()
		s.mu.Unlock()
		close(s.done)
		finished = true
	})
	return finished
}

// requestGravityReset は自動落下タイマーのリセットを要求します。要求済みなら何もしません。
func (s *GameSession) requestGravityReset() {
	select {
	case s.resetGravity <- struct{}{}:
	default:
	}
}

func (s *GameSession) addClient(c *Client) {
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
}

// removeClient はクライアントを削除します。登録されていた場合は true を返します。
func (s *GameSession) removeClient(c *Client) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[c]; !ok {
		return false
	}
	delete(s.clients, c)
	return true
}

func (s *GameSession) clientList() []*Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := make([]*Client, 0, len(s.clients))
	for c := range s.clients {
		list = append(list, c)
	}
	return list
}
