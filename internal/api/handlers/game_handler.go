package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/progate-hackathon-strawberry-flavor/blockfall-backend/internal/api/middleware"
	"github.com/progate-hackathon-strawberry-flavor/blockfall-backend/internal/services/tetris"
)

var gameLog = logrus.WithField("component", "GameHandler")

// GameHandler はゲーム関連のHTTPリクエスト（ゲーム作成、操作、WebSocket接続）を処理します。
type GameHandler struct {
	sessionManager *tetris.SessionManager
	auth           *middleware.Authenticator
	upgrader       websocket.Upgrader
}

// NewGameHandler は新しい GameHandler インスタンスを作成します。
// allowedOrigins はWebSocket接続を許可するオリジンです。空または "*" を含む場合は全て許可します。
func NewGameHandler(sm *tetris.SessionManager, auth *middleware.Authenticator, allowedOrigins []string) *GameHandler {
	return &GameHandler{
		sessionManager: sm,
		auth:           auth,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		if origin == "*" {
			return func(*http.Request) bool { return true }
		}
		set[origin] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(set) == 0 {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// WriteErrorResponse はエラーレスポンスをJSON形式で書き込みます。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	WriteJSONResponse(w, statusCode, map[string]string{"error": message})
}

// WriteJSONResponse はJSONレスポンスを書き込みます。
func WriteJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		gameLog.WithError(err).Error("JSONエンコードエラー")
	}
}

// sessionErrorStatus はセッション操作のエラーをHTTPステータスに変換します。
func sessionErrorStatus(err error) int {
	switch {
	case errors.Is(err, tetris.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, tetris.ErrNotSessionOwner):
		return http.StatusForbidden
	case errors.Is(err, tetris.ErrSessionFinished):
		return http.StatusConflict
	case errors.Is(err, tetris.ErrUnknownAction), errors.Is(err, tetris.ErrInvalidDifficulty):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

type createGameRequest struct {
	Difficulty string `json:"difficulty"`
}

type commandRequest struct {
	Action string `json:"action"`
}

type commandResponse struct {
	Result tetris.CommandResult `json:"result"`
	State  tetris.GameSnapshot  `json:"state"`
}

// CreateGame は新しいゲームセッションを作成するHTTPハンドラーです。
// POST /api/games  {"difficulty": "normal"}
func (h *GameHandler) CreateGame(w http.ResponseWriter, r *http.Request) {
	userID, err := ExtractUserIDFromContext(r)
	if err != nil {
		WriteErrorResponse(w, http.StatusUnauthorized, err.Error())
		return
	}

	var req createGameRequest
	// ボディは省略可能（難易度 normal）
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		WriteErrorResponse(w, http.StatusBadRequest, "無効なリクエストボディです")
		return
	}

	session, err := h.sessionManager.CreateSession(userID, req.Difficulty)
	if err != nil {
		gameLog.WithError(err).WithField("user", userID).Warn("ゲームの作成に失敗しました")
		WriteErrorResponse(w, sessionErrorStatus(err), err.Error())
		return
	}

	WriteJSONResponse(w, http.StatusCreated, session.Info())
}

// GetGame はゲームセッションの現在の状態を返します。
// GET /api/games/{roomID}
func (h *GameHandler) GetGame(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["roomID"]
	session, ok := h.sessionManager.GetGameSession(roomID)
	if !ok {
		WriteErrorResponse(w, http.StatusNotFound, tetris.ErrSessionNotFound.Error())
		return
	}
	WriteJSONResponse(w, http.StatusOK, session.Info())
}

// PostCommand はプレイヤー操作を1つ適用し、実行結果と適用後の状態を返します。
// POST /api/games/{roomID}/commands  {"action": "move_left"}
func (h *GameHandler) PostCommand(w http.ResponseWriter, r *http.Request) {
	userID, err := ExtractUserIDFromContext(r)
	if err != nil {
		WriteErrorResponse(w, http.StatusUnauthorized, err.Error())
		return
	}

	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Action == "" {
		WriteErrorResponse(w, http.StatusBadRequest, "actionは必須です")
		return
	}

	roomID := mux.Vars(r)["roomID"]
	result, snapshot, err := h.sessionManager.ApplyInput(roomID, userID, req.Action)
	if err != nil {
		WriteErrorResponse(w, sessionErrorStatus(err), err.Error())
		return
	}

	WriteJSONResponse(w, http.StatusOK, commandResponse{Result: result, State: snapshot})
}

// ConnectWebSocket はWebSocket接続を確立し、セッションにクライアントとして登録します。
// GET /api/games/{roomID}/ws?token=<JWT>
//
// 認証はHTTPヘッダーを送れないブラウザのために token クエリパラメータでも受け付けます。
func (h *GameHandler) ConnectWebSocket(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["roomID"]
	if _, ok := h.sessionManager.GetGameSession(roomID); !ok {
		WriteErrorResponse(w, http.StatusNotFound, tetris.ErrSessionNotFound.Error())
		return
	}

	userID, err := h.auth.UserIDFromRequest(r)
	if err != nil {
		WriteErrorResponse(w, http.StatusUnauthorized, err.Error())
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade がエラーレスポンスを書き込み済み
		gameLog.WithError(err).Warn("WebSocketへのアップグレードに失敗しました")
		return
	}

	if err := h.sessionManager.RegisterClient(roomID, userID, conn); err != nil {
		gameLog.WithError(err).WithField("room", roomID).Warn("クライアント登録に失敗しました")
		conn.WriteJSON(tetris.ErrorMessage{Type: "error", Error: err.Error()})
		conn.Close()
	}
}
