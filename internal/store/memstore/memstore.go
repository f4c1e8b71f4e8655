// Package memstore is an in-memory store.Store used for development and tests.
package memstore

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/capitalize-ai/realtime-chat/internal/model"
	"github.com/capitalize-ai/realtime-chat/internal/store"
)

var _ store.Store = (*Store)(nil)

// Store keeps every collection in maps guarded by one mutex. Values are
// copied on the way in and out so callers never share backing arrays.
type Store struct {
	mu            sync.RWMutex
	users         map[string]model.User
	groups        map[string]model.Group
	groupMessages map[string][]model.GroupMessage
	direct        []model.DirectMessage
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		users:         make(map[string]model.User),
		groups:        make(map[string]model.Group),
		groupMessages: make(map[string][]model.GroupMessage),
	}
}

func (s *Store) Ping(context.Context) error  { return nil }
func (s *Store) Close(context.Context) error { return nil }

func (s *Store) GetUser(_ context.Context, userID string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[userID]
	if !ok {
		return nil, fmt.Errorf("%w: user %s", model.ErrNotFound, userID)
	}
	return &u, nil
}

func (s *Store) CreateUser(_ context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; ok {
		return fmt.Errorf("%w: user %s already exists", model.ErrConflict, user.ID)
	}
	s.users[user.ID] = *user
	return nil
}

func (s *Store) SetConsent(_ context.Context, userID string, hasConsented bool) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return nil, fmt.Errorf("%w: user %s", model.ErrNotFound, userID)
	}
	u.HasConsented = hasConsented
	s.users[userID] = u
	return &u, nil
}

func (s *Store) CreateGroup(_ context.Context, group *model.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.groups[group.ID]; ok {
		return fmt.Errorf("%w: group %s already exists", model.ErrConflict, group.ID)
	}
	s.groups[group.ID] = copyGroup(*group)
	return nil
}

func (s *Store) GetGroup(_ context.Context, groupID string) (*model.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.groups[groupID]
	if !ok {
		return nil, fmt.Errorf("%w: group not found", model.ErrNotFound)
	}
	g = copyGroup(g)
	return &g, nil
}

func (s *Store) UpdateGroup(_ context.Context, group *model.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.groups[group.ID]
	if !ok {
		return fmt.Errorf("%w: group not found", model.ErrNotFound)
	}
	if current.Version != group.Version {
		return fmt.Errorf("%w: group %s was modified concurrently", model.ErrConflict, group.ID)
	}
	group.Version++
	s.groups[group.ID] = copyGroup(*group)
	return nil
}

func (s *Store) DeleteGroup(_ context.Context, groupID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.groups[groupID]; !ok {
		return fmt.Errorf("%w: group not found", model.ErrNotFound)
	}
	delete(s.groups, groupID)
	return nil
}

func (s *Store) ListGroupsForUser(_ context.Context, userID string) ([]model.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []model.Group{}
	for _, g := range s.groups {
		if g.IsMember(userID) {
			out = append(out, copyGroup(g))
		}
	}
	slices.SortFunc(out, func(a, b model.Group) int {
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})
	return out, nil
}

func (s *Store) InsertGroupMessage(_ context.Context, msg *model.GroupMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.groupMessages[msg.GroupID] = append(s.groupMessages[msg.GroupID], *msg)
	return nil
}

func (s *Store) ListGroupMessages(_ context.Context, groupID string) ([]model.GroupMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := slices.Clone(s.groupMessages[groupID])
	if out == nil {
		out = []model.GroupMessage{}
	}
	slices.SortStableFunc(out, func(a, b model.GroupMessage) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	return out, nil
}

func (s *Store) DeleteGroupMessages(_ context.Context, groupID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.groupMessages, groupID)
	return nil
}

func (s *Store) InsertDirectMessage(_ context.Context, msg *model.DirectMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.direct = append(s.direct, *msg)
	return nil
}

func (s *Store) RecentDirectMessages(ctx context.Context, userID, peerID string, limit int) ([]model.DirectMessage, error) {
	all, err := s.ListConversation(ctx, userID, peerID)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}

func (s *Store) ListConversation(_ context.Context, userID, peerID string) ([]model.DirectMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []model.DirectMessage{}
	for _, m := range s.direct {
		if (m.SenderID == userID && m.ReceiverID == peerID) || (m.SenderID == peerID && m.ReceiverID == userID) {
			out = append(out, m)
		}
	}
	slices.SortStableFunc(out, func(a, b model.DirectMessage) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	return out, nil
}

func copyGroup(g model.Group) model.Group {
	g.Members = slices.Clone(g.Members)
	return g
}
