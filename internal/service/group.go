package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/capitalize-ai/realtime-chat/internal/codec"
	"github.com/capitalize-ai/realtime-chat/internal/model"
	natsclient "github.com/capitalize-ai/realtime-chat/internal/nats"
	"github.com/capitalize-ai/realtime-chat/internal/store"
	"github.com/capitalize-ai/realtime-chat/pkg/logger"
	"github.com/capitalize-ai/realtime-chat/pkg/metrics"
)

// TypingClearer clears a sender's typing state once the message is sent.
type TypingClearer interface {
	Clear(ctx context.Context, groupID, userID, userName string)
}

// GroupService enforces membership rules for group operations and runs the
// group message pipeline.
type GroupService struct {
	groups      store.GroupStore
	messages    store.GroupMessageStore
	codec       *codec.MessageCodec
	typing      TypingClearer
	broadcaster Broadcaster
	journal     Journal
	logger      *logger.Logger
}

// GroupServiceDeps are the collaborators of a GroupService. Journal is optional.
type GroupServiceDeps struct {
	Groups      store.GroupStore
	Messages    store.GroupMessageStore
	Codec       *codec.MessageCodec
	Typing      TypingClearer
	Broadcaster Broadcaster
	Journal     Journal
	Logger      *logger.Logger
}

// NewGroupService creates a new group service.
func NewGroupService(deps GroupServiceDeps) *GroupService {
	return &GroupService{
		groups:      deps.Groups,
		messages:    deps.Messages,
		codec:       deps.Codec,
		typing:      deps.Typing,
		broadcaster: deps.Broadcaster,
		journal:     deps.Journal,
		logger:      deps.Logger,
	}
}

// Create creates a group hosted by req.HostID.
func (s *GroupService) Create(ctx context.Context, req *model.CreateGroupRequest) (*model.Group, error) {
	group, err := model.NewGroup(newID(), req, now())
	if err != nil {
		return nil, err
	}
	if err := s.groups.CreateGroup(ctx, group); err != nil {
		return nil, err
	}

	metrics.GroupsTotal.Inc()
	s.record(ctx, group.ID, natsclient.GroupCreated, group.HostID, "")
	s.logger.Info("group created", zap.String("group_id", group.ID), zap.String("host_id", group.HostID))
	return group, nil
}

// GetGroup returns a group.
func (s *GroupService) GetGroup(ctx context.Context, groupID string) (*model.Group, error) {
	return s.groups.GetGroup(ctx, groupID)
}

// ListForUser returns the groups userID belongs to.
func (s *GroupService) ListForUser(ctx context.Context, userID string) ([]model.Group, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user ID is required", model.ErrValidation)
	}
	return s.groups.ListGroupsForUser(ctx, userID)
}

// Update applies req to the group on behalf of req.UserID.
func (s *GroupService) Update(ctx context.Context, groupID string, req *model.UpdateGroupRequest) (*model.Group, error) {
	group, err := s.groups.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if err := group.Apply(req.UserID, req, now()); err != nil {
		return nil, err
	}
	if err := s.groups.UpdateGroup(ctx, group); err != nil {
		return nil, err
	}

	s.record(ctx, groupID, natsclient.GroupUpdated, req.UserID, "")
	return group, nil
}

// Delete removes the group's messages and then the group. Only the host may
// delete. A failure leaves the group in place so the call can be retried.
func (s *GroupService) Delete(ctx context.Context, groupID, actorID string) error {
	group, err := s.groups.GetGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if err := group.CanDelete(actorID); err != nil {
		return err
	}
	log := s.logger.WithGroup(groupID)
	if err := s.messages.DeleteGroupMessages(ctx, groupID); err != nil {
		log.Error("failed to delete group messages", zap.Error(err))
		return fmt.Errorf("failed to delete group messages: %w", err)
	}
	if err := s.groups.DeleteGroup(ctx, groupID); err != nil {
		return err
	}

	s.record(ctx, groupID, natsclient.GroupDeleted, actorID, "")
	log.Info("group deleted")
	return nil
}

// AddMember adds memberID on behalf of actorID.
func (s *GroupService) AddMember(ctx context.Context, groupID, actorID, memberID string) (*model.Group, error) {
	group, err := s.groups.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if err := group.AddMember(actorID, memberID, now()); err != nil {
		return nil, err
	}
	if err := s.groups.UpdateGroup(ctx, group); err != nil {
		return nil, err
	}

	s.record(ctx, groupID, natsclient.GroupMemberAdded, actorID, memberID)
	return group, nil
}

// RemoveMember removes memberID on behalf of actorID. Removing a user who is
// not a member succeeds without a write.
func (s *GroupService) RemoveMember(ctx context.Context, groupID, actorID, memberID string) (*model.Group, error) {
	group, err := s.groups.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	wasMember := group.IsMember(memberID)
	if err := group.RemoveMember(actorID, memberID, now()); err != nil {
		return nil, err
	}
	if !wasMember {
		return group, nil
	}
	if err := s.groups.UpdateGroup(ctx, group); err != nil {
		return nil, err
	}

	s.record(ctx, groupID, natsclient.GroupMemberRemoved, actorID, memberID)
	return group, nil
}

// Join authorizes userID to enter the group's live room.
func (s *GroupService) Join(ctx context.Context, groupID, userID string) error {
	group, err := s.groups.GetGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if !group.IsMember(userID) {
		return fmt.Errorf("%w: not a member of this group", model.ErrForbidden)
	}
	return nil
}

// SendMessage encrypts and stores a group message, clears the sender's
// typing state and delivers the plaintext to every online member, sender
// included. The returned copy carries plaintext.
func (s *GroupService) SendMessage(ctx context.Context, req *model.SendGroupMessageRequest) (*model.GroupMessage, error) {
	if strings.TrimSpace(req.Content) == "" && req.ImageURL == "" {
		return nil, fmt.Errorf("%w: message must have content or an image", model.ErrValidation)
	}

	group, err := s.groups.GetGroup(ctx, req.GroupID)
	if err != nil {
		return nil, err
	}
	if !group.IsMember(req.SenderID) {
		return nil, fmt.Errorf("%w: not a member of this group", model.ErrForbidden)
	}

	record, err := s.codec.Seal(ctx, req.SenderID, req.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt message: %w", err)
	}

	stored := &model.GroupMessage{
		ID:         newID(),
		GroupID:    req.GroupID,
		SenderID:   req.SenderID,
		SenderName: req.SenderName,
		Content:    record,
		ImageURL:   req.ImageURL,
		Timestamp:  now(),
	}
	if err := s.messages.InsertGroupMessage(ctx, stored); err != nil {
		return nil, err
	}
	metrics.MessagesTotal.WithLabelValues("group").Inc()

	if s.journal != nil {
		if _, err := s.journal.PublishGroupMessage(ctx, stored); err != nil {
			metrics.JournalPublishFailures.WithLabelValues("group_message").Inc()
			s.logger.Warn("failed to journal group message", zap.String("message_id", stored.ID), zap.Error(err))
		}
	}

	if s.typing != nil {
		s.typing.Clear(ctx, req.GroupID, req.SenderID, req.SenderName)
	}

	delivered := *stored
	delivered.Content = req.Content
	s.broadcaster.BroadcastToMembers(group.Members, model.Event{
		Name: model.EventGroupMessage,
		Data: model.GroupMessagePayload{GroupID: req.GroupID, Message: &delivered},
	}, "")

	return &delivered, nil
}

// ListMessages returns the group's history decrypted for requesterID. Content
// that cannot be decrypted is withheld and flagged as redacted.
func (s *GroupService) ListMessages(ctx context.Context, groupID, requesterID string) ([]model.GroupMessage, error) {
	if requesterID == "" {
		return nil, fmt.Errorf("%w: user ID is required", model.ErrValidation)
	}
	group, err := s.groups.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !group.IsMember(requesterID) {
		return nil, fmt.Errorf("%w: not a member of this group", model.ErrForbidden)
	}

	msgs, err := s.messages.ListGroupMessages(ctx, groupID)
	if err != nil {
		return nil, err
	}

	for i := range msgs {
		plain, err := s.codec.Open(ctx, msgs[i].SenderID, msgs[i].Content)
		if err != nil {
			if !errors.Is(err, model.ErrKeyUnavailable) {
				return nil, err
			}
			s.logger.Debug("withholding undecryptable message", zap.String("message_id", msgs[i].ID))
			msgs[i].Content = ""
			msgs[i].Redacted = true
			continue
		}
		msgs[i].Content = plain
	}
	return msgs, nil
}

func (s *GroupService) record(ctx context.Context, groupID string, eventType natsclient.GroupEventType, actorID, targetID string) {
	if s.journal == nil {
		return
	}
	_, err := s.journal.PublishGroupEvent(ctx, &natsclient.GroupEvent{
		GroupID:   groupID,
		Type:      eventType,
		ActorID:   actorID,
		TargetID:  targetID,
		Timestamp: now(),
	})
	if err != nil {
		metrics.JournalPublishFailures.WithLabelValues("group_event").Inc()
		s.logger.Warn("failed to journal group event", zap.String("group_id", groupID), zap.Error(err))
	}
}
