package handlers

import (
	"net/http"

	"github.com/progate-hackathon-strawberry-flavor/blockfall-backend/internal/services/tetris"
)

// PublicHandler handles public API endpoints
type PublicHandler struct{}

// NewPublicHandler creates a new instance of PublicHandler
func NewPublicHandler() *PublicHandler {
	return &PublicHandler{}
}

// Health reports that the server is up.
// GET /api/health
func (h *PublicHandler) Health(w http.ResponseWriter, r *http.Request) {
	WriteJSONResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

type difficultyResponse struct {
	Name           tetris.Difficulty `json:"name"`
	Multiplier     float64           `json:"multiplier"`
	FallIntervalMs int64             `json:"fall_interval_ms"`
}

// Difficulties lists the selectable difficulties.
// GET /api/difficulties
func (h *PublicHandler) Difficulties(w http.ResponseWriter, r *http.Request) {
	presets := tetris.Difficulties()
	resp := make([]difficultyResponse, 0, len(presets))
	for _, d := range presets {
		resp = append(resp, difficultyResponse{
			Name:           d.Name,
			Multiplier:     d.Multiplier,
			FallIntervalMs: d.FallInterval.Milliseconds(),
		})
	}
	WriteJSONResponse(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"difficulties": resp,
	})
}
