// Package typing tracks which users are composing a message in each group.
package typing

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/capitalize-ai/realtime-chat/internal/model"
	"github.com/capitalize-ai/realtime-chat/pkg/logger"
)

// Broadcaster delivers a typing notice to a group's live members.
type Broadcaster interface {
	BroadcastToGroup(ctx context.Context, groupID string, evt model.Event, excludeUserID string) error
}

// Tracker holds groupID -> (userID -> display name).
type Tracker struct {
	mu     sync.Mutex
	groups map[string]map[string]string

	broadcaster Broadcaster
	log         *logger.Logger
}

// NewTracker creates a Tracker that announces changes through b.
func NewTracker(b Broadcaster, log *logger.Logger) *Tracker {
	if log == nil {
		log = logger.Global()
	}
	return &Tracker{
		groups:      make(map[string]map[string]string),
		broadcaster: b,
		log:         log,
	}
}

// SetTyping records or clears userID's typing state in groupID and always
// notifies the other members.
func (t *Tracker) SetTyping(ctx context.Context, groupID, userID, userName string, isTyping bool) {
	t.mu.Lock()
	if isTyping {
		users, ok := t.groups[groupID]
		if !ok {
			users = make(map[string]string)
			t.groups[groupID] = users
		}
		users[userID] = userName
	} else {
		t.remove(groupID, userID)
	}
	t.mu.Unlock()

	t.announce(ctx, groupID, userID, userName, isTyping)
}

// Clear removes userID's entry in groupID after a send. Members are told the
// user stopped typing only if an entry existed.
func (t *Tracker) Clear(ctx context.Context, groupID, userID, userName string) {
	t.mu.Lock()
	name, existed := t.remove(groupID, userID)
	t.mu.Unlock()

	if !existed {
		return
	}
	if userName == "" {
		userName = name
	}
	t.announce(ctx, groupID, userID, userName, false)
}

// ClearUser removes userID from every group, typically on disconnect.
func (t *Tracker) ClearUser(ctx context.Context, userID string) {
	cleared := make(map[string]string)

	t.mu.Lock()
	for groupID := range t.groups {
		if name, ok := t.remove(groupID, userID); ok {
			cleared[groupID] = name
		}
	}
	t.mu.Unlock()

	for groupID, name := range cleared {
		t.announce(ctx, groupID, userID, name, false)
	}
}

// Typing returns a snapshot of the users typing in groupID.
func (t *Tracker) Typing(groupID string) map[string]string {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[string]string, len(t.groups[groupID]))
	for id, name := range t.groups[groupID] {
		out[id] = name
	}
	return out
}

// remove must be called with t.mu held.
func (t *Tracker) remove(groupID, userID string) (string, bool) {
	users, ok := t.groups[groupID]
	if !ok {
		return "", false
	}
	name, ok := users[userID]
	if !ok {
		return "", false
	}
	delete(users, userID)
	if len(users) == 0 {
		delete(t.groups, groupID)
	}
	return name, true
}

func (t *Tracker) announce(ctx context.Context, groupID, userID, userName string, isTyping bool) {
	if t.broadcaster == nil {
		return
	}
	evt := model.NewTypingEvent(groupID, userID, userName, isTyping)
	if err := t.broadcaster.BroadcastToGroup(ctx, groupID, evt, userID); err != nil {
		t.log.Warn("failed to broadcast typing notice",
			zap.String("group_id", groupID),
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}
}
