// Package realtime carries events between live WebSocket connections and
// the chat services.
package realtime

import (
	"context"
	"fmt"

	"github.com/capitalize-ai/realtime-chat/internal/model"
	"github.com/capitalize-ai/realtime-chat/pkg/metrics"
)

// Connections delivers an event to one live connection.
type Connections interface {
	Send(connectionID string, evt model.Event) bool
}

// Presence resolves users to live connections.
type Presence interface {
	Lookup(userID string) (string, bool)
	Online(userIDs []string) map[string]string
}

// GroupLoader loads a group for broadcast.
type GroupLoader interface {
	GetGroup(ctx context.Context, groupID string) (*model.Group, error)
}

// Dispatcher routes outbound events to users that are online. Offline
// recipients are skipped without error.
type Dispatcher struct {
	presence Presence
	conns    Connections
	groups   GroupLoader
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(presence Presence, conns Connections, groups GroupLoader) *Dispatcher {
	return &Dispatcher{presence: presence, conns: conns, groups: groups}
}

// SendToUser delivers evt to userID's connection and reports whether it was
// queued.
func (d *Dispatcher) SendToUser(userID string, evt model.Event) bool {
	connID, ok := d.presence.Lookup(userID)
	if !ok {
		metrics.RecordDispatch(string(evt.Name), false)
		return false
	}
	delivered := d.conns.Send(connID, evt)
	metrics.RecordDispatch(string(evt.Name), delivered)
	return delivered
}

// BroadcastToMembers delivers evt to every online member except
// excludeUserID and returns how many connections it reached.
func (d *Dispatcher) BroadcastToMembers(members []string, evt model.Event, excludeUserID string) int {
	reached := 0
	for userID, connID := range d.presence.Online(members) {
		if userID == excludeUserID {
			continue
		}
		delivered := d.conns.Send(connID, evt)
		metrics.RecordDispatch(string(evt.Name), delivered)
		if delivered {
			reached++
		}
	}
	return reached
}

// BroadcastToGroup loads groupID and broadcasts evt to its online members.
func (d *Dispatcher) BroadcastToGroup(ctx context.Context, groupID string, evt model.Event, excludeUserID string) error {
	group, err := d.groups.GetGroup(ctx, groupID)
	if err != nil {
		return fmt.Errorf("failed to load group for broadcast: %w", err)
	}
	d.BroadcastToMembers(group.Members, evt, excludeUserID)
	return nil
}
