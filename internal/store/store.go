// Package store defines persistence contracts for the chat platform.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/capitalize-ai/realtime-chat/internal/model"
)

// UserStore persists users.
type UserStore interface {
	// GetUser returns model.ErrNotFound when the user does not exist.
	GetUser(ctx context.Context, userID string) (*model.User, error)
	// CreateUser returns model.ErrConflict when the id is taken.
	CreateUser(ctx context.Context, user *model.User) error
	SetConsent(ctx context.Context, userID string, hasConsented bool) (*model.User, error)
}

// GroupStore persists groups.
type GroupStore interface {
	CreateGroup(ctx context.Context, group *model.Group) error
	GetGroup(ctx context.Context, groupID string) (*model.Group, error)
	// UpdateGroup writes group only if the stored version equals
	// group.Version, then increments group.Version. A lost race returns
	// model.ErrConflict.
	UpdateGroup(ctx context.Context, group *model.Group) error
	DeleteGroup(ctx context.Context, groupID string) error
	// ListGroupsForUser returns the groups userID belongs to, most recently
	// updated first.
	ListGroupsForUser(ctx context.Context, userID string) ([]model.Group, error)
}

// GroupMessageStore persists group messages. Content is stored as written.
type GroupMessageStore interface {
	InsertGroupMessage(ctx context.Context, msg *model.GroupMessage) error
	// ListGroupMessages returns a group's messages oldest first.
	ListGroupMessages(ctx context.Context, groupID string) ([]model.GroupMessage, error)
	DeleteGroupMessages(ctx context.Context, groupID string) error
}

// DirectMessageStore persists assistant conversation turns.
type DirectMessageStore interface {
	InsertDirectMessage(ctx context.Context, msg *model.DirectMessage) error
	// RecentDirectMessages returns at most limit messages exchanged between
	// userID and peerID in either direction, oldest first.
	RecentDirectMessages(ctx context.Context, userID, peerID string, limit int) ([]model.DirectMessage, error)
	// ListConversation returns every message between userID and peerID, oldest first.
	ListConversation(ctx context.Context, userID, peerID string) ([]model.DirectMessage, error)
}

// Store aggregates every collection the service needs.
type Store interface {
	UserStore
	GroupStore
	GroupMessageStore
	DirectMessageStore

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// KeyProvider resolves encryption keys from a UserStore.
type KeyProvider struct {
	Users UserStore
}

// Key returns the hex key of userID, or an error wrapping
// model.ErrKeyUnavailable when the user or key is missing.
func (k KeyProvider) Key(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("%w: empty user id", model.ErrKeyUnavailable)
	}
	user, err := k.Users.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return "", fmt.Errorf("%w: user %s", model.ErrKeyUnavailable, userID)
		}
		return "", err
	}
	if user.EncryptionKey == "" {
		return "", fmt.Errorf("%w: user %s has no key", model.ErrKeyUnavailable, userID)
	}
	return user.EncryptionKey, nil
}
