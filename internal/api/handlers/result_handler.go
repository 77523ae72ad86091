package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/progate-hackathon-strawberry-flavor/blockfall-backend/internal/database"
	"github.com/progate-hackathon-strawberry-flavor/blockfall-backend/internal/models"
	"github.com/progate-hackathon-strawberry-flavor/blockfall-backend/internal/services/tetris"
)

var resultLog = logrus.WithField("component", "ResultHandler")

const (
	defaultResultLimit = 50
	maxResultLimit     = 100
)

// ResultHandler はゲーム結果関連のハンドラーを管理する構造体です。
type ResultHandler struct {
	resultRepo database.ResultRepository
}

// NewResultHandler は新しいResultHandlerインスタンスを作成します。
func NewResultHandler(resultRepo database.ResultRepository) *ResultHandler {
	return &ResultHandler{
		resultRepo: resultRepo,
	}
}

// GetTopResults は上位ランキングを取得するハンドラーです。
// GET /api/results?limit=50
func (h *ResultHandler) GetTopResults(w http.ResponseWriter, r *http.Request) {
	// limitパラメータを取得（デフォルト50、最大100）
	limit := defaultResultLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 && parsedLimit <= maxResultLimit {
			limit = parsedLimit
		}
	}

	results, err := h.resultRepo.GetTopResults(r.Context(), limit)
	if err != nil {
		resultLog.WithError(err).Error("ゲーム結果取得エラー")
		WriteErrorResponse(w, http.StatusInternalServerError, "ゲーム結果取得に失敗しました")
		return
	}
	if results == nil {
		results = []models.ResultResponse{}
	}

	WriteJSONResponse(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"results": results,
	})
}

// PostScore はスコアを保存するハンドラーです。
// POST /api/results
//
// user_id は認証済みのユーザーで上書きされます。
func (h *ResultHandler) PostScore(w http.ResponseWriter, r *http.Request) {
	userID, err := ExtractUserIDFromContext(r)
	if err != nil {
		WriteErrorResponse(w, http.StatusUnauthorized, err.Error())
		return
	}

	var req models.ResultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "無効なリクエストボディです")
		return
	}
	req.UserID = userID

	// バリデーション
	if req.Score < 0 {
		WriteErrorResponse(w, http.StatusBadRequest, "スコアは0以上である必要があります")
		return
	}
	if req.LinesCleared < 0 {
		WriteErrorResponse(w, http.StatusBadRequest, "消去ライン数は0以上である必要があります")
		return
	}
	difficulty, err := tetris.ParseDifficulty(req.Difficulty)
	if err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Difficulty = string(difficulty.Name)

	result, err := h.resultRepo.SaveResult(r.Context(), req)
	if err != nil {
		resultLog.WithError(err).Error("スコア保存エラー")
		WriteErrorResponse(w, http.StatusInternalServerError, "スコア保存に失敗しました")
		return
	}

	WriteJSONResponse(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"result":  result,
	})
}

// GetUserResult は指定したユーザーの最高スコアとランキングを取得するハンドラーです。
// GET /api/results/user/{userID}
func (h *ResultHandler) GetUserResult(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userID"]
	if userID == "" {
		WriteErrorResponse(w, http.StatusBadRequest, "user_idが指定されていません")
		return
	}

	userResult, err := h.resultRepo.GetUserRanking(r.Context(), userID)
	if err != nil {
		resultLog.WithError(err).Error("ユーザー結果取得エラー")
		WriteErrorResponse(w, http.StatusInternalServerError, "ユーザー結果取得に失敗しました")
		return
	}

	if userResult == nil {
		WriteJSONResponse(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"result":  nil,
			"message": "ユーザーのスコアが見つかりません",
		})
		return
	}

	WriteJSONResponse(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"result":  userResult,
	})
}
