package handler

import (
	"net/http"

	"github.com/capitalize-ai/realtime-chat/internal/model"
	"github.com/capitalize-ai/realtime-chat/internal/service"
	"github.com/capitalize-ai/realtime-chat/pkg/logger"
)

// UserHandler handles user endpoints.
type UserHandler struct {
	service *service.UserService
	logger  *logger.Logger
}

// NewUserHandler creates a new user handler.
func NewUserHandler(svc *service.UserService, log *logger.Logger) *UserHandler {
	return &UserHandler{service: svc, logger: log}
}

// Create handles POST /api/users
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateUserRequest
	if err := decode(r, &req); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	user, err := h.service.GetOrCreate(r.Context(), &req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, model.UserResponse{User: user})
}

// Consent handles PUT /api/users/consent
func (h *UserHandler) Consent(w http.ResponseWriter, r *http.Request) {
	var req model.ConsentRequest
	if err := decode(r, &req); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	user, err := h.service.SetConsent(r.Context(), &req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, model.UserResponse{User: user})
}
