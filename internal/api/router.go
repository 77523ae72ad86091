package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/progate-hackathon-strawberry-flavor/blockfall-backend/internal/api/handlers"
	"github.com/progate-hackathon-strawberry-flavor/blockfall-backend/internal/api/middleware"
	"github.com/progate-hackathon-strawberry-flavor/blockfall-backend/internal/database"
	"github.com/progate-hackathon-strawberry-flavor/blockfall-backend/internal/services/tetris"
)

// Dependencies はルーターが使うサービスをまとめたものです。
type Dependencies struct {
	Sessions       *tetris.SessionManager
	Results        database.ResultRepository
	Auth           *middleware.Authenticator
	AllowedOrigins []string
}

// NewRouter は全てのAPIルートを登録し、CORSを適用したハンドラーを返します。
func NewRouter(deps Dependencies) http.Handler {
	publicHandler := handlers.NewPublicHandler()
	gameHandler := handlers.NewGameHandler(deps.Sessions, deps.Auth, deps.AllowedOrigins)
	resultHandler := handlers.NewResultHandler(deps.Results)

	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()

	// 認証不要な公開エンドポイント
	api.HandleFunc("/health", publicHandler.Health).Methods(http.MethodGet)
	api.HandleFunc("/difficulties", publicHandler.Difficulties).Methods(http.MethodGet)
	api.HandleFunc("/games/{roomID}", gameHandler.GetGame).Methods(http.MethodGet)
	api.HandleFunc("/results", resultHandler.GetTopResults).Methods(http.MethodGet)
	api.HandleFunc("/results/user/{userID}", resultHandler.GetUserResult).Methods(http.MethodGet)

	// WebSocketはハンドラー内でクエリパラメータのトークンも含めて認証する
	api.HandleFunc("/games/{roomID}/ws", gameHandler.ConnectWebSocket).Methods(http.MethodGet)

	// 認証が必要なエンドポイント
	protected := api.NewRoute().Subrouter()
	protected.Use(deps.Auth.Middleware)
	protected.HandleFunc("/games", gameHandler.CreateGame).Methods(http.MethodPost)
	protected.HandleFunc("/games/{roomID}/commands", gameHandler.PostCommand).Methods(http.MethodPost)
	protected.HandleFunc("/results", resultHandler.PostScore).Methods(http.MethodPost)

	return middleware.CORSHandler(deps.AllowedOrigins)(r)
}
