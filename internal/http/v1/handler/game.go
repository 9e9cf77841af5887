package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"tag-server/internal/apperrors"
	"tag-server/internal/domain/models"
	"tag-server/internal/http/v1/middleware"
	"tag-server/internal/lib/logger/sl"
	"tag-server/internal/service"
)

type (
	CompleteRequest struct {
		Winnable int `json:"winnable"`
	}

	DrawResponse struct {
		Challenge *models.Challenge `json:"challenge"`
	}

	CompleteResponse struct {
		Coins float64 `json:"coins"`
	}

	VetoResponse struct {
		VetoUntil time.Time `json:"veto_until"`
	}

	TransitStopResponse struct {
		Coins float64 `json:"coins"`
	}

	ErrorResponse struct {
		Error   string `json:"error"`
		Code    string `json:"code,omitempty"`
		Details string `json:"details,omitempty"`
	}
)

type GameHandler struct {
	gameService *service.GameService
	log         *slog.Logger
}

func NewGameHandler(gameService *service.GameService, log *slog.Logger) *GameHandler {
	return &GameHandler{
		gameService: gameService,
		log:         log,
	}
}

func (h *GameHandler) Draw(w http.ResponseWriter, r *http.Request) {
	const op = "handler.game.Draw"

	log := h.log.With(slog.String("op", op))

	teamID, ok := h.callerTeam(w, r)
	if !ok {
		return
	}

	challenge, err := h.gameService.Draw(r.Context(), teamID)
	if err != nil {
		log.Error("failed to draw challenge", sl.Err(err))
		h.writeGameError(w, err, "failed to draw challenge")
		return
	}

	h.writeJSON(w, http.StatusOK, DrawResponse{Challenge: challenge})
	log.Info("challenge drawn", slog.Int64("challenge_id", challenge.ID))
}

func (h *GameHandler) Complete(w http.ResponseWriter, r *http.Request) {
	const op = "handler.game.Complete"

	log := h.log.With(slog.String("op", op))

	teamID, ok := h.callerTeam(w, r)
	if !ok {
		return
	}

	var req CompleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("invalid request body", sl.Err(err))
		h.writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	coins, err := h.gameService.Complete(r.Context(), teamID, req.Winnable)
	if err != nil {
		log.Error("failed to complete challenge", sl.Err(err))
		h.writeGameError(w, err, "failed to complete challenge")
		return
	}

	h.writeJSON(w, http.StatusOK, CompleteResponse{Coins: coins})
	log.Info("challenge completed", slog.Int("winnable", req.Winnable))
}

func (h *GameHandler) Pass(w http.ResponseWriter, r *http.Request) {
	const op = "handler.game.Pass"

	log := h.log.With(slog.String("op", op))

	teamID, ok := h.callerTeam(w, r)
	if !ok {
		return
	}

	if err := h.gameService.Pass(r.Context(), teamID); err != nil {
		log.Error("failed to pass challenge", sl.Err(err))
		h.writeGameError(w, err, "failed to pass challenge")
		return
	}

	w.WriteHeader(http.StatusNoContent)
	log.Info("challenge passed")
}

func (h *GameHandler) Veto(w http.ResponseWriter, r *http.Request) {
	const op = "handler.game.Veto"

	log := h.log.With(slog.String("op", op))

	teamID, ok := h.callerTeam(w, r)
	if !ok {
		return
	}

	until, err := h.gameService.Veto(r.Context(), teamID)
	if err != nil {
		log.Error("failed to veto challenge", sl.Err(err))
		h.writeGameError(w, err, "failed to veto challenge")
		return
	}

	h.writeJSON(w, http.StatusOK, VetoResponse{VetoUntil: until})
	log.Info("challenge vetoed")
}

func (h *GameHandler) TransitStart(w http.ResponseWriter, r *http.Request) {
	const op = "handler.game.TransitStart"

	log := h.log.With(slog.String("op", op))

	teamID, ok := h.callerTeam(w, r)
	if !ok {
		return
	}

	if err := h.gameService.StartTransit(r.Context(), teamID); err != nil {
		log.Error("failed to start transit", sl.Err(err))
		h.writeGameError(w, err, "failed to start transit")
		return
	}

	w.WriteHeader(http.StatusNoContent)
	log.Info("transit started")
}

func (h *GameHandler) TransitStop(w http.ResponseWriter, r *http.Request) {
	const op = "handler.game.TransitStop"

	log := h.log.With(slog.String("op", op))

	teamID, ok := h.callerTeam(w, r)
	if !ok {
		return
	}

	coins, err := h.gameService.StopTransit(r.Context(), teamID)
	if err != nil {
		log.Error("failed to stop transit", sl.Err(err))
		h.writeGameError(w, err, "failed to stop transit")
		return
	}

	h.writeJSON(w, http.StatusOK, TransitStopResponse{Coins: coins})
	log.Info("transit stopped", slog.Float64("coins", coins))
}

func (h *GameHandler) State(w http.ResponseWriter, r *http.Request) {
	const op = "handler.game.State"

	log := h.log.With(slog.String("op", op))

	teamID, ok := h.callerTeam(w, r)
	if !ok {
		return
	}

	snap, err := h.gameService.Snapshot(r.Context(), teamID)
	if err != nil {
		log.Error("failed to get game state", sl.Err(err))
		h.writeError(w, http.StatusInternalServerError, "failed to get game state", err)
		return
	}

	h.writeJSON(w, http.StatusOK, snap)
}

// callerTeam resolves the authenticated user's team or writes the error
// response itself.
func (h *GameHandler) callerTeam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "authentication required", nil)
		return 0, false
	}
	if user.Team == nil {
		h.writeError(w, http.StatusConflict, "no team assigned", apperrors.ErrNoTeamAssigned)
		return 0, false
	}
	return *user.Team, true
}

// writeGameError maps the gameplay error taxonomy onto HTTP statuses. The
// exhausted-challenges condition gets its own code so the client can show
// the terminal "all done" screen instead of a generic failure.
func (h *GameHandler) writeGameError(w http.ResponseWriter, err error, message string) {
	switch {
	case errors.Is(err, apperrors.ErrChallengesExhausted):
		h.writeCodedError(w, http.StatusConflict, "CHALLENGES_EXHAUSTED", "all challenges exhausted", err)
	case errors.Is(err, apperrors.ErrWinnableOutOfRange):
		h.writeError(w, http.StatusBadRequest, "winnable outside challenge range", err)
	case errors.Is(err, apperrors.ErrVetoActive),
		errors.Is(err, apperrors.ErrTransitActive),
		errors.Is(err, apperrors.ErrNoActiveChallenge),
		errors.Is(err, apperrors.ErrNotInTransit),
		errors.Is(err, apperrors.ErrNoCoins):
		h.writeError(w, http.StatusConflict, message, err)
	case errors.Is(err, apperrors.ErrTeamNotFound):
		h.writeError(w, http.StatusNotFound, "team not found", err)
	default:
		h.writeError(w, http.StatusInternalServerError, message, err)
	}
}

func (h *GameHandler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		fmt.Printf("Error encoding JSON response: %v\n", err)
	}
}

func (h *GameHandler) writeError(w http.ResponseWriter, status int, message string, err error) {
	h.writeCodedError(w, status, "", message, err)
}

func (h *GameHandler) writeCodedError(w http.ResponseWriter, status int, code, message string, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	errorResp := ErrorResponse{
		Error: message,
		Code:  code,
	}
	if err != nil {
		errorResp.Details = err.Error()
	}

	if err := json.NewEncoder(w).Encode(errorResp); err != nil {
		fmt.Printf("Error encoding error response: %v\n", err)
	}
}
