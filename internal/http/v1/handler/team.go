package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"tag-server/internal/apperrors"
	"tag-server/internal/domain/models"
	"tag-server/internal/lib/logger/sl"
	"tag-server/internal/service"
)

type (
	GetTeamResponse struct {
		Team models.Team `json:"team"`
	}
)

type TeamHandler struct {
	teamService *service.TeamService
	log         *slog.Logger
}

func NewTeamHandler(teamService *service.TeamService, log *slog.Logger) *TeamHandler {
	return &TeamHandler{
		teamService: teamService,
		log:         log,
	}
}

func (h *TeamHandler) GetTeam(w http.ResponseWriter, r *http.Request) {
	const op = "handler.team.GetTeam"

	log := h.log.With(slog.String("op", op))

	rawID := r.URL.Query().Get("team_id")
	if rawID == "" {
		log.Error("team_id is required")
		h.writeError(w, http.StatusBadRequest, "team_id query parameter is required", nil)
		return
	}

	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		log.Error("invalid team_id", sl.Err(err))
		h.writeError(w, http.StatusBadRequest, "team_id must be an integer", err)
		return
	}

	team, err := h.teamService.GetTeam(r.Context(), id)
	if err != nil {
		log.Error("failed to get team", sl.Err(err))

		if errors.Is(err, apperrors.ErrTeamNotFound) {
			h.writeError(w, http.StatusNotFound, "team not found", err)
		} else {
			h.writeError(w, http.StatusInternalServerError, "failed to get team", err)
		}
		return
	}

	h.writeJSON(w, http.StatusOK, GetTeamResponse{Team: *team})
	log.Info("team retrieved successfully")
}

func (h *TeamHandler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		fmt.Printf("Error encoding JSON response: %v\n", err)
	}
}

func (h *TeamHandler) writeError(w http.ResponseWriter, status int, message string, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	errorResp := ErrorResponse{
		Error: message,
	}
	if err != nil {
		errorResp.Details = err.Error()
	}

	if err := json.NewEncoder(w).Encode(errorResp); err != nil {
		fmt.Printf("Error encoding error response: %v\n", err)
	}
}
