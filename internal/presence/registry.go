// Package presence tracks which user is bound to which live connection.
package presence

import (
	"sync"

	"github.com/capitalize-ai/realtime-chat/pkg/metrics"
)

// Registry maps users to their current connection and back. A user has at
// most one connection; registering again replaces the previous binding.
type Registry struct {
	mu     sync.RWMutex
	byUser map[string]string // user -> connection
	byConn map[string]string // connection -> user
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		byUser: make(map[string]string),
		byConn: make(map[string]string),
	}
}

// Register binds userID to connectionID. Any earlier connection of the user
// and any earlier user of the connection are unbound.
func (r *Registry) Register(userID, connectionID string) {
	if userID == "" || connectionID == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.byUser[userID]; ok {
		delete(r.byConn, prev)
	}
	if prevUser, ok := r.byConn[connectionID]; ok && prevUser != userID {
		delete(r.byUser, prevUser)
	}

	r.byUser[userID] = connectionID
	r.byConn[connectionID] = userID
	metrics.PresenceUsers.Set(float64(len(r.byUser)))
}

// Lookup returns the connection currently bound to userID.
func (r *Registry) Lookup(userID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.byUser[userID]
	return conn, ok
}

// UserFor returns the user bound to connectionID.
func (r *Registry) UserFor(connectionID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byConn[connectionID]
	return user, ok
}

// RemoveByConnection unbinds connectionID and reports the user it belonged
// to. A connection that was already replaced by a newer one for the same user
// leaves the newer binding untouched.
func (r *Registry) RemoveByConnection(connectionID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok := r.byConn[connectionID]
	if !ok {
		return "", false
	}
	delete(r.byConn, connectionID)
	if r.byUser[userID] == connectionID {
		delete(r.byUser, userID)
	}
	metrics.PresenceUsers.Set(float64(len(r.byUser)))
	return userID, true
}

// Online filters userIDs down to those with a live connection, returning the
// connection for each.
func (r *Registry) Online(userIDs []string) map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]string, len(userIDs))
	for _, id := range userIDs {
		if conn, ok := r.byUser[id]; ok {
			out[id] = conn
		}
	}
	return out
}

// Count returns the number of users with a live connection.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}
