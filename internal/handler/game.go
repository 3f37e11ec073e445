package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/idle-clicker/internal/apperror"
	"github.com/sakif/idle-clicker/internal/auth"
	"github.com/sakif/idle-clicker/internal/service"
)

// GameHandler drives the progression ledger. The acting player is always
// the verified identity from the token, never a body or path field.
type GameHandler struct {
	progression *service.ProgressionService
	logger      *slog.Logger
}

func NewGameHandler(progression *service.ProgressionService, logger *slog.Logger) *GameHandler {
	return &GameHandler{progression: progression, logger: logger}
}

type resetCostResponse struct {
	ResetCost int64 `json:"resetCost"`
}

// HTTP: POST /api/game/initialize
func (h *GameHandler) HandleInitialize(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}

	p, err := h.progression.Initialize(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// HandleProgression returns the caller's progression, or another player's
// when the route carries {userId}.
//
// HTTP: GET /api/game/progression, GET /api/game/progression/{userId}
func (h *GameHandler) HandleProgression(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	if userID == "" {
		var ok bool
		if userID, ok = requireUser(w, r, h.logger); !ok {
			return
		}
	}

	p, err := h.progression.Get(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HTTP: POST /api/game/click
func (h *GameHandler) HandleClick(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}

	res, err := h.progression.Click(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HTTP: GET /api/game/reset-cost
func (h *GameHandler) HandleResetCost(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}

	cost, err := h.progression.ResetCost(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resetCostResponse{ResetCost: cost})
}

// HTTP: POST /api/game/reset
func (h *GameHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}

	p, err := h.progression.Reset(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HTTP: GET /api/game/best-score
func (h *GameHandler) HandleBestScore(w http.ResponseWriter, r *http.Request) {
	rec, err := h.progression.BestScore(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// HTTP: GET /api/game/leaderboard?limit=10
func (h *GameHandler) HandleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, h.logger, apperror.ValidationFailed("limit", "limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	entries, err := h.progression.Leaderboard(r.Context(), limit)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// requireUser pulls the verified user id; RequireAuth guarantees it on
// protected routes, so a miss is answered as 401 rather than a panic.
func requireUser(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (string, bool) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, logger, apperror.Unauthorized(apperror.CodeInvalidToken, "valid authentication required"))
		return "", false
	}
	return userID, true
}
