package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// DefaultAllowedOrigins は開発環境のフロントエンドのオリジンです。
var DefaultAllowedOrigins = []string{"http://localhost:3000"}

// CORSHandler はCORS設定を適用するミドルウェアを返します。
// allowedOrigins が空の場合は DefaultAllowedOrigins を使います。
func CORSHandler(allowedOrigins []string) func(http.Handler) http.Handler {
	if len(allowedOrigins) == 0 {
		allowedOrigins = DefaultAllowedOrigins
	}
	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", BypassUserHeader},
		AllowCredentials: true,
	})
	return c.Handler
}
