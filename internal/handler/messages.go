package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/capitalize-ai/realtime-chat/internal/middleware"
	"github.com/capitalize-ai/realtime-chat/internal/model"
	"github.com/capitalize-ai/realtime-chat/internal/service"
	"github.com/capitalize-ai/realtime-chat/pkg/logger"
)

// MessageHandler handles the assistant conversation endpoints.
type MessageHandler struct {
	service *service.DirectService
	logger  *logger.Logger
}

// NewMessageHandler creates a new message handler.
func NewMessageHandler(svc *service.DirectService, log *logger.Logger) *MessageHandler {
	return &MessageHandler{service: svc, logger: log}
}

// List handles GET /api/messages/{userId}/assistant
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.service.List(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	if msgs == nil {
		msgs = []model.DirectMessage{}
	}

	writeJSON(w, http.StatusOK, model.ListDirectMessagesResponse{Messages: msgs})
}

// Send handles POST /api/messages
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req model.SendDirectMessageRequest
	if err := decode(r, &req); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	if err := middleware.ValidateMessageContent(req.Content); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	resp, err := h.service.Send(r.Context(), &req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

// GenerateResponse handles POST /api/generate-response
func (h *MessageHandler) GenerateResponse(w http.ResponseWriter, r *http.Request) {
	var req model.GenerateResponseRequest
	if err := decode(r, &req); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	if err := middleware.ValidateMessageContent(req.Message); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	resp, err := h.service.GenerateResponse(r.Context(), &req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
