package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"tag-server/internal/domain/models"
	"tag-server/internal/http/v1/middleware"
	"tag-server/internal/lib/logger/sl"
	"tag-server/internal/service"
)

type (
	RegisterRequest struct {
		Name *string `json:"name"`
	}

	RegisterResponse struct {
		User models.User `json:"user"`
	}

	MeResponse struct {
		User models.User `json:"user"`
	}
)

type UserHandler struct {
	userService *service.UserService
	log         *slog.Logger
}

func NewUserHandler(userService *service.UserService, log *slog.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		log:         log,
	}
}

// Register upserts the user row for the authenticated subject. The
// subject comes from the auth header, not the body, so a session always
// maps to its own row.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	const op = "handler.user.Register"

	log := h.log.With(slog.String("op", op))

	subject := r.Header.Get(middleware.SubjectHeader)
	if subject == "" {
		log.Error("auth subject is required")
		h.writeError(w, http.StatusUnauthorized, "authentication required", nil)
		return
	}

	var req RegisterRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			log.Error("invalid request body", sl.Err(err))
			h.writeError(w, http.StatusBadRequest, "invalid request body", err)
			return
		}
	}

	user, err := h.userService.Register(r.Context(), subject, req.Name)
	if err != nil {
		log.Error("failed to register user", sl.Err(err))
		h.writeError(w, http.StatusInternalServerError, "failed to register user", err)
		return
	}

	h.writeJSON(w, http.StatusCreated, RegisterResponse{User: *user})
	log.Info("user registered successfully")
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "authentication required", nil)
		return
	}

	h.writeJSON(w, http.StatusOK, MeResponse{User: *user})
}

func (h *UserHandler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		fmt.Printf("Error encoding JSON response: %v\n", err)
	}
}

func (h *UserHandler) writeError(w http.ResponseWriter, status int, message string, err error) {
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
