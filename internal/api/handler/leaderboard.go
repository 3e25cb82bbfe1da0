package handler

import (
	"net/http"
	"strconv"

	"github.com/mcoot/wordbattles/internal/api/response"
	"github.com/mcoot/wordbattles/internal/model"
	"github.com/mcoot/wordbattles/internal/storage"
)

const maxLimit = 100

// LeaderboardHandler serves the cumulative leaderboard
type LeaderboardHandler struct {
	storage storage.Storage
}

// NewLeaderboardHandler creates a new leaderboard handler
func NewLeaderboardHandler(store storage.Storage) *LeaderboardHandler {
	return &LeaderboardHandler{storage: store}
}

// Get handles GET /api/v1/leaderboard
func (h *LeaderboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	limit, err := limitParam(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	entries, err := h.storage.GetLeaderboard(r.Context(), limit)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.LeaderboardFromModel(entries))
}

// limitParam reads ?limit=n, defaulting when absent and capping at maxLimit
func limitParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return model.DefaultLeaderboardLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, NewInvalidRequestError("limit must be a positive integer")
	}
	return min(limit, maxLimit), nil
}
