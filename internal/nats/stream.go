package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/capitalize-ai/realtime-chat/internal/model"
)

const (
	// StreamName is the name of the chat journal stream.
	StreamName = "CHAT"

	// SubjectPrefix is the prefix for all chat subjects.
	SubjectPrefix = "chat"
)

// GroupEventType names a membership change recorded in the journal.
type GroupEventType string

const (
	GroupCreated       GroupEventType = "created"
	GroupUpdated       GroupEventType = "updated"
	GroupDeleted       GroupEventType = "deleted"
	GroupMemberAdded   GroupEventType = "member_added"
	GroupMemberRemoved GroupEventType = "member_removed"
)

// GroupEvent is a membership change record.
type GroupEvent struct {
	GroupID   string         `json:"groupId"`
	Type      GroupEventType `json:"type"`
	ActorID   string         `json:"actorId"`
	TargetID  string         `json:"targetId,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// StreamManager appends persisted chat records to JetStream.
type StreamManager struct {
	client *Client
}

// NewStreamManager creates a new stream manager.
func NewStreamManager(client *Client) *StreamManager {
	return &StreamManager{client: client}
}

// EnsureStream ensures the chat stream exists with proper configuration.
func (m *StreamManager) EnsureStream(ctx context.Context) error {
	js := m.client.JetStream()

	if _, err := js.Stream(ctx, StreamName); err == nil {
		return nil
	}

	_, err := js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{fmt.Sprintf("%s.>", SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      365 * 24 * time.Hour,
		MaxBytes:    10 * 1024 * 1024 * 1024,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		DenyDelete:  true,
		DenyPurge:   true,
		Description: "Persisted group messages, assistant turns and membership changes",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	return nil
}

// GroupMessageSubject returns the subject for a group message.
func GroupMessageSubject(groupID string) string {
	return fmt.Sprintf("%s.group.%s.msg", SubjectPrefix, groupID)
}

// GroupEventSubject returns the subject for a membership change.
func GroupEventSubject(groupID string, eventType GroupEventType) string {
	return fmt.Sprintf("%s.group.%s.event.%s", SubjectPrefix, groupID, eventType)
}

// DirectMessageSubject returns the subject for an assistant conversation
// turn, keyed by the human participant.
func DirectMessageSubject(userID string) string {
	return fmt.Sprintf("%s.direct.%s.msg", SubjectPrefix, userID)
}

// PublishGroupMessage appends a group message as stored, content encrypted.
func (m *StreamManager) PublishGroupMessage(ctx context.Context, msg *model.GroupMessage) (uint64, error) {
	return m.publish(ctx, GroupMessageSubject(msg.GroupID), msg)
}

// PublishDirectMessage appends an assistant conversation turn. userID is the
// human side of the conversation.
func (m *StreamManager) PublishDirectMessage(ctx context.Context, userID string, msg *model.DirectMessage) (uint64, error) {
	return m.publish(ctx, DirectMessageSubject(userID), msg)
}

// PublishGroupEvent appends a membership change.
func (m *StreamManager) PublishGroupEvent(ctx context.Context, event *GroupEvent) (uint64, error) {
	return m.publish(ctx, GroupEventSubject(event.GroupID, event.Type), event)
}

func (m *StreamManager) publish(ctx context.Context, subject string, v any) (uint64, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal record: %w", err)
	}

	ack, err := m.client.JetStream().Publish(ctx, subject, data)
	if err != nil {
		return 0, fmt.Errorf("failed to publish record: %w", err)
	}

	return ack.Sequence, nil
}
