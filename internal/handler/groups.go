package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/capitalize-ai/realtime-chat/internal/middleware"
	"github.com/capitalize-ai/realtime-chat/internal/model"
	"github.com/capitalize-ai/realtime-chat/internal/service"
	"github.com/capitalize-ai/realtime-chat/pkg/logger"
)

// GroupHandler handles group and group message endpoints.
type GroupHandler struct {
	service *service.GroupService
	logger  *logger.Logger
}

// NewGroupHandler creates a new group handler.
func NewGroupHandler(svc *service.GroupService, log *logger.Logger) *GroupHandler {
	return &GroupHandler{service: svc, logger: log}
}

// Create handles POST /api/groups
func (h *GroupHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateGroupRequest
	if err := decode(r, &req); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	group, err := h.service.Create(r.Context(), &req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, model.GroupResponse{Group: group})
}

// ListForUser handles GET /api/groups/user/{userId}
func (h *GroupHandler) ListForUser(w http.ResponseWriter, r *http.Request) {
	groups, err := h.service.ListForUser(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	if groups == nil {
		groups = []model.Group{}
	}

	writeJSON(w, http.StatusOK, model.ListGroupsResponse{Groups: groups})
}

// Get handles GET /api/groups/{groupId}
func (h *GroupHandler) Get(w http.ResponseWriter, r *http.Request) {
	group, err := h.service.GetGroup(r.Context(), chi.URLParam(r, "groupId"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, model.GroupResponse{Group: group})
}

// Update handles PUT /api/groups/{groupId}
func (h *GroupHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateGroupRequest
	if err := decode(r, &req); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	group, err := h.service.Update(r.Context(), chi.URLParam(r, "groupId"), &req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, model.GroupResponse{Group: group})
}

// Delete handles DELETE /api/groups/{groupId}
func (h *GroupHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	if err := h.service.Delete(r.Context(), chi.URLParam(r, "groupId"), actor); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Group deleted successfully"})
}

// AddMember handles POST /api/groups/{groupId}/members
func (h *GroupHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	var req model.AddMemberRequest
	if err := decode(r, &req); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	group, err := h.service.AddMember(r.Context(), chi.URLParam(r, "groupId"), req.UserID, req.NewMemberID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, model.GroupResponse{Group: group})
}

// RemoveMember handles DELETE /api/groups/{groupId}/members/{memberId}
func (h *GroupHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	group, err := h.service.RemoveMember(r.Context(), chi.URLParam(r, "groupId"), actor, chi.URLParam(r, "memberId"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, model.GroupResponse{Group: group})
}

// SendMessage handles POST /api/groups/{groupId}/messages
func (h *GroupHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req model.SendGroupMessageRequest
	req.GroupID = chi.URLParam(r, "groupId")
	if err := decode(r, &req); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	req.GroupID = chi.URLParam(r, "groupId")
	if err := middleware.ValidateMessageContent(req.Content); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	msg, err := h.service.SendMessage(r.Context(), &req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, model.GroupMessageResponse{Message: msg})
}

// ListMessages handles GET /api/groups/{groupId}/messages?userId=
func (h *GroupHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.service.ListMessages(r.Context(), chi.URLParam(r, "groupId"), r.URL.Query().Get("userId"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	if msgs == nil {
		msgs = []model.GroupMessage{}
	}

	writeJSON(w, http.StatusOK, model.ListGroupMessagesResponse{Messages: msgs})
}

// actorFrom reads the acting user from the userId query parameter, falling
// back to a JSON body.
func actorFrom(r *http.Request) (string, error) {
	if userID := r.URL.Query().Get("userId"); userID != "" {
		return userID, nil
	}
	var req model.ActorRequest
	if err := decode(r, &req); err != nil {
		return "", err
	}
	return req.UserID, nil
}
