package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/capitalize-ai/realtime-chat/internal/assistant"
	"github.com/capitalize-ai/realtime-chat/internal/model"
	"github.com/capitalize-ai/realtime-chat/internal/store"
	"github.com/capitalize-ai/realtime-chat/pkg/logger"
	"github.com/capitalize-ai/realtime-chat/pkg/metrics"
)

// Conversations runs one assistant turn.
type Conversations interface {
	Converse(ctx context.Context, userID, content string) (*assistant.Turn, error)
}

// DirectService handles conversations between a user and the assistant.
type DirectService struct {
	users         store.UserStore
	messages      store.DirectMessageStore
	conversations Conversations
	broadcaster   Broadcaster
	journal       Journal
	assistantID   string
	logger        *logger.Logger
}

// DirectServiceDeps are the collaborators of a DirectService. Journal is optional.
type DirectServiceDeps struct {
	Users         store.UserStore
	Messages      store.DirectMessageStore
	Conversations Conversations
	Broadcaster   Broadcaster
	Journal       Journal
	AssistantID   string
	Logger        *logger.Logger
}

// NewDirectService creates a new direct message service.
func NewDirectService(deps DirectServiceDeps) *DirectService {
	return &DirectService{
		users:         deps.Users,
		messages:      deps.Messages,
		conversations: deps.Conversations,
		broadcaster:   deps.Broadcaster,
		journal:       deps.Journal,
		assistantID:   deps.AssistantID,
		logger:        deps.Logger,
	}
}

// Send runs an assistant turn for a consenting user and pushes the reply to
// the user's live connection when there is one.
func (s *DirectService) Send(ctx context.Context, req *model.SendDirectMessageRequest) (*model.SendDirectMessageResponse, error) {
	user, err := s.users.GetUser(ctx, req.SenderID)
	if err != nil {
		return nil, err
	}
	if !user.HasConsented {
		return nil, fmt.Errorf("%w: user has not consented to AI chat", model.ErrForbidden)
	}

	turn, err := s.conversations.Converse(ctx, req.SenderID, req.Content)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, req.SenderID, turn.UserMessage)
	s.publish(ctx, req.SenderID, turn.AIMessage)

	s.broadcaster.SendToUser(req.SenderID, model.Event{
		Name: model.EventAssistantMessage,
		Data: model.AssistantMessagePayload{Message: turn.AIMessage},
	})

	s.logger.Debug("assistant replied",
		zap.String("user_id", req.SenderID),
		zap.String("tier", string(turn.Reply.Tier)),
	)

	return &model.SendDirectMessageResponse{
		UserMessage: turn.UserMessage,
		AIMessage:   turn.AIMessage,
		Tier:        string(turn.Reply.Tier),
	}, nil
}

// GenerateResponse is Send with the legacy request and response shapes.
func (s *DirectService) GenerateResponse(ctx context.Context, req *model.GenerateResponseRequest) (*model.GenerateResponseResponse, error) {
	resp, err := s.Send(ctx, &model.SendDirectMessageRequest{SenderID: req.UserID, Content: req.Message})
	if err != nil {
		return nil, err
	}
	return &model.GenerateResponseResponse{Reply: resp.AIMessage.Content, UserID: req.UserID}, nil
}

// List returns the user's conversation with the assistant, oldest first.
func (s *DirectService) List(ctx context.Context, userID string) ([]model.DirectMessage, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user ID is required", model.ErrValidation)
	}
	return s.messages.ListConversation(ctx, userID, s.assistantID)
}

func (s *DirectService) publish(ctx context.Context, userID string, msg *model.DirectMessage) {
	if s.journal == nil {
		return
	}
	if _, err := s.journal.PublishDirectMessage(ctx, userID, msg); err != nil {
		metrics.JournalPublishFailures.WithLabelValues("direct_message").Inc()
		s.logger.Warn("failed to journal assistant message", zap.String("message_id", msg.ID), zap.Error(err))
	}
}
