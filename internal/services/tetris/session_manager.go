package tetris

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/progate-hackathon-strawberry-flavor/blockfall-backend/internal/database"
	"github.com/progate-hackathon-strawberry-flavor/blockfall-backend/internal/models"
	"github.com/progate-hackathon-strawberry-flavor/blockfall-backend/internal/models/tetris"
)

var (
	log       = logrus.WithField("component", "SessionManager")
	clientLog = logrus.WithField("component", "Client")
)

var (
	// ErrSessionNotFound は指定されたルームが存在しない場合に返されます。
	ErrSessionNotFound = errors.New("session not found")
	// ErrNotSessionOwner はセッションの所有者以外が操作しようとした場合に返されます。
	ErrNotSessionOwner = errors.New("user is not the owner of this session")
	// ErrSessionFinished は終了済みのセッションを操作しようとした場合に返されます。
	ErrSessionFinished = errors.New("session already finished")
)

const (
	defaultFinishedRetention = 10 * time.Minute
	saveResultTimeout        = 5 * time.Second

	clientSendBuffer = 64
	readLimit        = 1024
	pongWait         = 60 * time.Second
	pingPeriod       = (pongWait * 9) / 10
	writeWait        = 10 * time.Second
)

// Client はWebSocket接続を持つ単一のクライアントを表します。
type Client struct {
	UserID string          // このクライアントに紐づくユーザーのID
	RoomID string          // このクライアントが接続しているルームのID
	Conn   *websocket.Conn // クライアントとの実際のWebSocketコネクション
	Send   chan []byte     // クライアントへメッセージを送信するためのバッファ付きチャネル
	closed bool
	mu     sync.Mutex
}

// SafeSend は安全にチャネルにメッセージを送信します（closedチェック付き）
func (c *Client) SafeSend(message []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}

	select {
	case c.Send <- message:
		return true
	default:
		return false // チャネルがフル
	}
}

// SafeClose は安全にチャネルを閉じます
func (c *Client) SafeClose() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		close(c.Send)
		c.closed = true
	}
}

// PlayerInputEvent はWebSocketで受信したプレイヤー操作です。
type PlayerInputEvent struct {
	UserID string `json:"-"`
	RoomID string `json:"-"`
	Action string `json:"action"`
}

// StateMessage はクライアントへ送信するゲーム状態メッセージです。
type StateMessage struct {
	Type string `json:"type"` // 常に "state"
	SessionInfo
}

// ErrorMessage はクライアントへ送信するエラーメッセージです。
type ErrorMessage struct {
	Type  string `json:"type"` // 常に "error"
	Error string `json:"error"`
}

// SessionOptions はSessionManagerが生成するゲームの設定です。ゼロ値は既定値で補われます。
type SessionOptions struct {
	Rows           int
	Columns        int
	SpawnRowOffset int
	Rules          *ScoreRules

	// FallInterval が正の値なら難易度の落下間隔の代わりに使います。
	FallInterval time.Duration
	// FinishedRetention は終了したセッションを保持しておく時間です。
	FinishedRetention time.Duration
	// NewRandomSource はセッションごとのピース抽選用乱数源を返します。nil なら時刻シードを使います。
	NewRandomSource func() tetris.RandomSource
}

// SessionManager はゲームセッションとWebSocketクライアント接続の全体を管理します。
// アプリケーション内でシングルトンとして動作することを想定しています。
type SessionManager struct {
	sessions    map[string]*GameSession // roomID -> GameSession
	mu          sync.RWMutex
	inputEvents chan PlayerInputEvent
	unregister  chan *Client
	quit        chan struct{}
	quitOnce    sync.Once
	results     database.ResultRepository
	opts        SessionOptions
}

// NewSessionManager は新しい SessionManager を作成し、イベントループをバックグラウンドで開始します。
// results が nil の場合、ゲーム結果は保存されません。
func NewSessionManager(results database.ResultRepository, opts SessionOptions) *SessionManager {
	if opts.FinishedRetention <= 0 {
		opts.FinishedRetention = defaultFinishedRetention
	}
	sm := &SessionManager{
		sessions:    make(map[string]*GameSession),
		inputEvents: make(chan PlayerInputEvent, 256),
		unregister:  make(chan *Client),
		quit:        make(chan struct{}),
		results:     results,
		opts:        opts,
	}
	go sm.Run()
	return sm
}

// Run は SessionManager のメインイベントループです。
// WebSocket経由のプレイヤー入力とクライアントの登録解除を処理します。
func (sm *SessionManager) Run() {
	for {
		select {
		case event := <-sm.inputEvents:
			if _, _, err := sm.ApplyInput(event.RoomID, event.UserID, event.Action); err != nil {
				log.WithFields(logrus.Fields{"room": event.RoomID, "user": event.UserID, "action": event.Action}).
					WithError(err).Debug("入力を処理できませんでした")
				sm.sendError(event.RoomID, event.UserID, err)
			}

		case client := <-sm.unregister:
			session, ok := sm.GetGameSession(client.RoomID)
			if ok && session.removeClient(client) {
				client.SafeClose()
				log.Infof("Client unregistered: %s (Room: %s)", client.UserID, client.RoomID)
			}

		case <-sm.quit:
			return
		}
	}
}

// CreateSession は新しい1人用ゲームを開始し、そのセッションを返します。
func (sm *SessionManager) CreateSession(userID, difficulty string) (*GameSession, error) {
	settings, err := ParseDifficulty(difficulty)
	if err != nil {
		return nil, err
	}

	opts := Options{
		Rows:           sm.opts.Rows,
		Columns:        sm.opts.Columns,
		Multiplier:     settings.Multiplier,
		Rules:          sm.opts.Rules,
		SpawnRowOffset: sm.opts.SpawnRowOffset,
	}
	if sm.opts.NewRandomSource != nil {
		opts.Rand = sm.opts.NewRandomSource()
	}
	state, err := NewPlayerGameState(opts)
	if err != nil {
		return nil, fmt.Errorf("ゲーム状態の作成に失敗しました: %w", err)
	}

	fallInterval := settings.FallInterval
	if sm.opts.FallInterval > 0 {
		fallInterval = sm.opts.FallInterval
	}

	session := newGameSession(uuid.NewString(), userID, settings, state, fallInterval)

	sm.mu.Lock()
	sm.sessions[session.ID] = session
	sm.mu.Unlock()

	log.WithFields(logrus.Fields{"room": session.ID, "user": userID, "difficulty": settings.Name}).
		Info("ゲームセッションを作成しました")

	if state.IsGameOver() {
		// 生成直後に置けない設定のまま開始された場合
		sm.finishSession(session)
		return session, nil
	}

	go sm.runGravity(session)
	return session, nil
}

// GetGameSession は指定されたルームIDのゲームセッションを取得します。
func (sm *SessionManager) GetGameSession(roomID string) (*GameSession, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	session, ok := sm.sessions[roomID]
	return session, ok
}

// ApplyInput はセッションの所有者からの操作を適用し、実行結果と適用後の状態を返します。
func (sm *SessionManager) ApplyInput(roomID, userID, action string) (CommandResult, GameSnapshot, error) {
	session, ok := sm.GetGameSession(roomID)
	if !ok {
		return CommandResult{}, GameSnapshot{}, ErrSessionNotFound
	}
	if session.UserID != userID {
		return CommandResult{}, GameSnapshot{}, ErrNotSessionOwner
	}
	if session.Status() == StatusFinished {
		return CommandResult{}, session.State.Snapshot(), ErrSessionFinished
	}

	result, err := ApplyPlayerInput(session.State, action)
	if err != nil {
		return CommandResult{}, GameSnapshot{}, err
	}
	if ResetsGravity(action) {
		session.requestGravityReset()
	}

	sm.afterCommand(session, result)
	return result, session.State.Snapshot(), nil
}

// runGravity はセッションの自動落下を行うゴルーチンです。
// プレイヤーが下移動・ハードドロップした場合は間隔を最初から数え直します。
func (sm *SessionManager) runGravity(session *GameSession) {
	ticker := time.NewTicker(session.fallInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			sm.afterCommand(session, session.State.MoveDown())
		case <-session.resetGravity:
			ticker.Reset(session.fallInterval)
		case <-session.done:
			return
		case <-sm.quit:
			return
		}
	}
}

// afterCommand はコマンド実行後の共通処理です。状態をブロードキャストし、ゲームオーバーならセッションを終了します。
func (sm *SessionManager) afterCommand(session *GameSession, result CommandResult) {
	if result.GameOver {
		sm.finishSession(session)
		return
	}
	if result.Moved || result.Locked {
		sm.BroadcastGameState(session.ID)
	}
}

// finishSession はセッションを終了させ、結果を保存し、最後の状態を通知してクライアントを切断します。
func (sm *SessionManager) finishSession(session *GameSession) {
	if !session.finish() {
		return
	}

	snapshot := session.State.Snapshot()
	log.WithFields(logrus.Fields{"room": session.ID, "user": session.UserID, "score": snapshot.Score}).
		Info("ゲームオーバー: セッションを終了しました")

	sm.saveResult(session, snapshot)

	sm.BroadcastGameState(session.ID)
	for _, client := range session.clientList() {
		session.removeClient(client)
		client.SafeClose()
	}

	time.AfterFunc(sm.opts.FinishedRetention, func() {
		sm.RemoveSession(session.ID)
	})
}

func (sm *SessionManager) saveResult(session *GameSession, snapshot GameSnapshot) {
	if sm.results == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), saveResultTimeout)
	defer cancel()

	_, err := sm.results.SaveResult(ctx, models.ResultRequest{
		UserID:       session.UserID,
		Score:        snapshot.Score,
		LinesCleared: snapshot.LinesCleared,
		Difficulty:   string(session.Difficulty.Name),
	})
	if err != nil {
		log.WithField("room", session.ID).WithError(err).Error("ゲーム結果の保存に失敗しました")
	}
}

// RemoveSession は終了したセッションを管理対象から外します。
func (sm *SessionManager) RemoveSession(roomID string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if session, ok := sm.sessions[roomID]; ok && session.Status() == StatusFinished {
		delete(sm.sessions, roomID)
		log.Debugf("Removed session %s from sessions map", roomID)
	}
}

// RegisterClient はWebSocket接続をセッションに登録し、読み書きのゴルーチンを開始します。
// 所有者以外の接続は観戦用として状態の受信のみ行います。
func (sm *SessionManager) RegisterClient(roomID, userID string, conn *websocket.Conn) error {
	session, ok := sm.GetGameSession(roomID)
	if !ok {
		return ErrSessionNotFound
	}

	client := &Client{
		UserID: userID,
		RoomID: roomID,
		Conn:   conn,
		Send:   make(chan []byte, clientSendBuffer),
	}

	conn.SetReadLimit(readLimit)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go client.writePump()

	// 接続直後に現在の状態を送る
	if msg, err := json.Marshal(StateMessage{Type: "state", SessionInfo: session.Info()}); err == nil {
		client.SafeSend(msg)
	}

	if session.Status() == StatusFinished {
		client.SafeClose()
		return nil
	}

	session.addClient(client)
	go sm.readPump(client)

	log.Infof("Client %s registered for room %s", userID, roomID)
	return nil
}

// readPump はクライアントからのWebSocketメッセージを読み込み、 inputEvents チャネルに送信します。
func (sm *SessionManager) readPump(client *Client) {
	defer func() {
		select {
		case sm.unregister <- client:
		case <-sm.quit:
		}
		client.Conn.Close()
	}()

	for {
		_, message, err := client.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				clientLog.Warnf("WebSocket unexpected close error for user %s: %v", client.UserID, err)
			}
			return
		}
		if len(message) == 0 {
			continue
		}

		var event PlayerInputEvent
		if err := json.Unmarshal(message, &event); err != nil {
			clientLog.Warnf("Failed to unmarshal input message from %s: %v", client.UserID, err)
			continue
		}
		// 送信者は接続から決まる
		event.UserID = client.UserID
		event.RoomID = client.RoomID

		select {
		case sm.inputEvents <- event:
		default:
			clientLog.Warnf("Input events channel is full, dropping message from user %s", client.UserID)
		}
	}
}

// writePump は Client の Send チャネルからのメッセージをWebSocketコネクションに書き込みます。
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// マネージャーがチャネルを閉じた場合
				c.Conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"))
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				clientLog.Warnf("Error writing message for user %s: %v", c.UserID, err)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// BroadcastGameState はルームに接続中の全クライアントに現在の状態を送信します。
func (sm *SessionManager) BroadcastGameState(roomID string) {
	session, ok := sm.GetGameSession(roomID)
	if !ok {
		return
	}
	clients := session.clientList()
	if len(clients) == 0 {
		return
	}

	msg, err := json.Marshal(StateMessage{Type: "state", SessionInfo: session.Info()})
	if err != nil {
		log.WithError(err).Error("ゲーム状態のシリアライズに失敗しました")
		return
	}
	for _, client := range clients {
		if !client.SafeSend(msg) {
			clientLog.Debugf("Dropped state update for user %s", client.UserID)
		}
	}
}

// sendError は操作したユーザーのクライアントにエラーを通知します。
func (sm *SessionManager) sendError(roomID, userID string, cause error) {
	session, ok := sm.GetGameSession(roomID)
	if !ok {
		return
	}
	msg, err := json.Marshal(ErrorMessage{Type: "error", Error: cause.Error()})
	if err != nil {
		return
	}
	for _, client := range session.clientList() {
		if client.UserID == userID {
			client.SafeSend(msg)
		}
	}
}

// Shutdown はSessionManagerを安全にシャットダウンします。
// 全ての自動落下を止め、全クライアントを切断します。
func (sm *SessionManager) Shutdown() {
	sm.quitOnce.Do(func() {
		log.Info("シャットダウン開始...")
		close(sm.quit)

		sm.mu.Lock()
		sessions := sm.sessions
		sm.sessions = make(map[string]*GameSession)
		sm.mu.Unlock()

		for _, session := range sessions {
			for _, client := range session.clientList() {
				session.removeClient(client)
				client.SafeClose()
			}
		}
		log.Info("シャットダウン完了")
	})
}
