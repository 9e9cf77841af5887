package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"tag-server/internal/apperrors"
	"tag-server/internal/domain/models"
	"tag-server/internal/http/v1/middleware"
	"tag-server/internal/lib/logger/sl"
	"tag-server/internal/service"
)

const defaultRedirect = "/dashboard"

// AdminHandler serves the form-submission admin endpoints. Failures of
// any kind (missing fields, missing admin flag, write errors) redirect
// back to the referring page without a distinguishable error surface, the
// same silent fail-closed behavior the admin screens expect.
type AdminHandler struct {
	teamService     *service.TeamService
	userService     *service.UserService
	overviewService *service.OverviewService
	gameService     *service.GameService
	log             *slog.Logger
}

func NewAdminHandler(
	teamService *service.TeamService,
	userService *service.UserService,
	overviewService *service.OverviewService,
	gameService *service.GameService,
	log *slog.Logger,
) *AdminHandler {
	return &AdminHandler{
		teamService:     teamService,
		userService:     userService,
		overviewService: overviewService,
		gameService:     gameService,
		log:             log,
	}
}

func (h *AdminHandler) CreateTeam(w http.ResponseWriter, r *http.Request) {
	const op = "handler.admin.CreateTeam"

	log := h.log.With(slog.String("op", op))

	if err := r.ParseForm(); err != nil {
		log.Error("failed to parse form", sl.Err(err))
		h.redirectBack(w, r)
		return
	}

	name := r.PostForm.Get("name")
	rawCoins := r.PostForm.Get("coins")
	members := r.PostForm["members"]

	if name == "" || rawCoins == "" || len(members) == 0 {
		log.Warn("missing required fields")
		h.redirectBack(w, r)
		return
	}

	if !h.isAdmin(r) {
		log.Warn("admin gate rejected caller", sl.Err(apperrors.ErrNotAdmin))
		h.redirectBack(w, r)
		return
	}

	coins, err := strconv.ParseFloat(rawCoins, 64)
	if err != nil {
		coins = 0 // CreateTeamWithMembers falls back to the default
	}

	team, err := h.teamService.CreateTeamWithMembers(r.Context(), name, coins, members)
	if err != nil {
		log.Error("failed to create team", sl.Err(err))
		h.redirectBack(w, r)
		return
	}

	log.Info("team created", slog.Int64("team_id", team.ID))
	h.redirectBack(w, r)
}

func (h *AdminHandler) UpdateTeam(w http.ResponseWriter, r *http.Request) {
	const op = "handler.admin.UpdateTeam"

	log := h.log.With(slog.String("op", op))

	if err := r.ParseForm(); err != nil {
		log.Error("failed to parse form", sl.Err(err))
		h.redirectBack(w, r)
		return
	}

	rawID := r.PostForm.Get("id")
	name := r.PostForm.Get("name")
	rawCoins := r.PostForm.Get("coins")
	role := r.PostForm.Get("role")

	if rawID == "" || (name == "" && rawCoins == "" && role == "") {
		log.Warn("missing required fields")
		h.redirectBack(w, r)
		return
	}

	if !h.isAdmin(r) {
		log.Warn("admin gate rejected caller", sl.Err(apperrors.ErrNotAdmin))
		h.redirectBack(w, r)
		return
	}

	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		log.Warn("invalid team id", sl.Err(err))
		h.redirectBack(w, r)
		return
	}

	// empty fields mean "no change"; unparsable coins are skipped too
	var upd models.TeamUpdate
	if name != "" {
		upd.Name = &name
	}
	if rawCoins != "" {
		if coins, err := strconv.ParseFloat(rawCoins, 64); err == nil {
			upd.Coins = &coins
		}
	}
	switch role {
	case "":
	case "none":
		upd.ClearRole = true
	default:
		teamRole := models.TeamRole(role)
		upd.Role = &teamRole
	}

	if err := h.teamService.AdminUpdateTeam(r.Context(), id, upd); err != nil {
		log.Error("failed to update team", sl.Err(err))
		h.redirectBack(w, r)
		return
	}

	// drop any live session so gameplay sees the edit
	h.gameService.Invalidate(id)

	log.Info("team updated", slog.Int64("team_id", id))
	h.redirectBack(w, r)
}

func (h *AdminHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	const op = "handler.admin.UpdateUser"

	log := h.log.With(slog.String("op", op))

	if err := r.ParseForm(); err != nil {
		log.Error("failed to parse form", sl.Err(err))
		h.redirectBack(w, r)
		return
	}

	id := r.PostForm.Get("id")
	name := r.PostForm.Get("name")
	team := r.PostForm.Get("team")

	if id == "" || name == "" || team == "" {
		log.Warn("missing required fields")
		h.redirectBack(w, r)
		return
	}

	if !h.isAdmin(r) {
		log.Warn("admin gate rejected caller", sl.Err(apperrors.ErrNotAdmin))
		h.redirectBack(w, r)
		return
	}

	upd := models.UserUpdate{Name: &name}
	if team == "0" {
		upd.ClearTeam = true
	} else {
		teamID, err := strconv.ParseInt(team, 10, 64)
		if err != nil {
			log.Warn("invalid team id", sl.Err(err))
			h.redirectBack(w, r)
			return
		}
		upd.Team = &teamID
	}

	if err := h.userService.AdminUpdateUser(r.Context(), id, upd); err != nil {
		log.Error("failed to update user", sl.Err(err))
		h.redirectBack(w, r)
		return
	}

	log.Info("user updated", slog.String("user_id", id))
	h.redirectBack(w, r)
}

// Overview is the JSON read behind the admin screen. Unlike the form
// endpoints it reports authorization failures, since it is not a form
// post.
func (h *AdminHandler) Overview(w http.ResponseWriter, r *http.Request) {
	const op = "handler.admin.Overview"

	log := h.log.With(slog.String("op", op))

	if !h.isAdmin(r) {
		h.writeError(w, http.StatusForbidden, "admin access required", apperrors.ErrNotAdmin)
		return
	}

	overview, err := h.overviewService.GetOverview(r.Context())
	if err != nil {
		log.Error("failed to get overview", sl.Err(err))
		h.writeError(w, http.StatusInternalServerError, "failed to get overview", err)
		return
	}

	h.writeJSON(w, http.StatusOK, overview)
}

func (h *AdminHandler) isAdmin(r *http.Request) bool {
	user, ok := middleware.UserFromContext(r.Context())
	return ok && user.Admin
}

// redirectBack sends the caller to the referring page's path, or the
// dashboard when there is none.
func (h *AdminHandler) redirectBack(w http.ResponseWriter, r *http.Request) {
	target := defaultRedirect
	if referer := r.Header.Get("Referer"); referer != "" {
		if u, err := url.Parse(referer); err == nil && u.Path != "" {
			target = u.Path
		}
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (h *AdminHandler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		fmt.Printf("Error encoding JSON response: %v\n", err)
	}
}

func (h *AdminHandler) writeError(w http.ResponseWriter, status int, message string, err error) {
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
