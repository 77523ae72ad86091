package handlers

import (
	"fmt"
	"net/http"

	"github.com/progate-hackathon-strawberry-flavor/blockfall-backend/internal/api/middleware"
)

// ExtractUserIDFromContext はリクエストのコンテキストからユーザーIDを抽出します。
// 認証ミドルウェアを通過したリクエストでのみ成功します。
func ExtractUserIDFromContext(r *http.Request) (string, error) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok || userID == "" {
		return "", fmt.Errorf("ユーザーIDがコンテキストに見つかりません")
	}
	return userID, nil
}
