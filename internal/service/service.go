// Package service provides business logic for the chat platform.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/capitalize-ai/realtime-chat/internal/model"
	natsclient "github.com/capitalize-ai/realtime-chat/internal/nats"
)

// Broadcaster pushes events to live connections.
type Broadcaster interface {
	SendToUser(userID string, evt model.Event) bool
	BroadcastToMembers(members []string, evt model.Event, excludeUserID string) int
}

// Journal appends persisted records to the event stream. Publishing is best
// effort and never fails a request.
type Journal interface {
	PublishGroupMessage(ctx context.Context, msg *model.GroupMessage) (uint64, error)
	PublishDirectMessage(ctx context.Context, userID string, msg *model.DirectMessage) (uint64, error)
	PublishGroupEvent(ctx context.Context, event *natsclient.GroupEvent) (uint64, error)
}

func newID() string {
	return uuid.Must(uuid.NewV7()).String()
}

func now() time.Time {
	return time.Now().UTC()
}
