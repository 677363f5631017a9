package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"character-quiz-service/internal/app"
	"character-quiz-service/internal/domain"
)

// APIHandler serves the progress, stats and leaderboard endpoints.
type APIHandler struct {
	progress    *app.ProgressService
	leaderboard *app.LeaderboardService
	questions   app.QuestionRepository
	auth        *Authenticator
}

func NewAPIHandler(progress *app.ProgressService, leaderboard *app.LeaderboardService, questions app.QuestionRepository, auth *Authenticator) *APIHandler {
	return &APIHandler{
		progress:    progress,
		leaderboard: leaderboard,
		questions:   questions,
		auth:        auth,
	}
}

// Register mounts the API routes on mux.
func (h *APIHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/progress", h.withUser(h.getProgress))
	mux.HandleFunc("POST /api/characters/{id}/select", h.withUser(h.selectCharacter))
	mux.HandleFunc("GET /api/characters/{id}/levels", h.withUser(h.getLevels))
	mux.HandleFunc("POST /api/characters/{id}/levels/{level}", h.withUser(h.completeLevel))
	mux.HandleFunc("GET /api/stats", h.withUser(h.getStats))
	mux.HandleFunc("GET /api/leaderboard", h.getLeaderboard)
}

type userHandler func(w http.ResponseWriter, r *http.Request, userID string)

func (h *APIHandler) withUser(next userHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := h.auth.UserID(r)
		if err != nil {
			writeError(w, err)
			return
		}
		next(w, r, userID)
	}
}

func (h *APIHandler) getProgress(w http.ResponseWriter, r *http.Request, userID string) {
	progress, err := h.progress.GetOrCreate(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

func (h *APIHandler) selectCharacter(w http.ResponseWriter, r *http.Request, userID string) {
	bank, err := h.questions.GetQuestionBank(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	progress, err := h.progress.SelectCharacter(r.Context(), userID, bank.Character.ID, bank.Character.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

func (h *APIHandler) getLevels(w http.ResponseWriter, r *http.Request, userID string) {
	levels, err := h.progress.AvailableLevels(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, levels)
}

type completeLevelRequest struct {
	Score     int  `json:"score"`
	Completed bool `json:"completed"`
}

func (h *APIHandler) completeLevel(w http.ResponseWriter, r *http.Request, userID string) {
	level, err := strconv.Atoi(r.PathValue("level"))
	if err != nil {
		writeError(w, fmt.Errorf("%w: %q", domain.ErrInvalidLevel, r.PathValue("level")))
		return
	}
	var req completeLevelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: invalid body", domain.ErrValidation))
		return
	}
	bank, err := h.questions.GetQuestionBank(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	progress, err := h.progress.CompleteLevel(r.Context(), userID, bank.Character.ID, level, req.Score, req.Completed)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

func (h *APIHandler) getStats(w http.ResponseWriter, r *http.Request, userID string) {
	stats, err := h.progress.Stats(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *APIHandler) getLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, fmt.Errorf("%w: limit must be a number", domain.ErrValidation))
			return
		}
		limit = n
	}
	entries, err := h.leaderboard.Top(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
