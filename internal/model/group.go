package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
)

// Group is the group aggregate. All membership changes go through its methods
// so that HostID is a member at every observable instant.
type Group struct {
	ID          string    `json:"id" bson:"_id"`
	Name        string    `json:"name" bson:"name"`
	HostID      string    `json:"hostId" bson:"hostId"`
	Members     []string  `json:"members" bson:"members"`
	Avatar      string    `json:"avatar,omitempty" bson:"avatar,omitempty"`
	Description string    `json:"description" bson:"description"`
	IsPrivate   bool      `json:"isPrivate" bson:"isPrivate"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updatedAt"`
	Version     int64     `json:"version" bson:"version"`
}

// NewGroup builds a group with the host appended to members exactly once.
func NewGroup(id string, req *CreateGroupRequest, now time.Time) (*Group, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" || req.HostID == "" {
		return nil, fmt.Errorf("%w: invalid group data", ErrValidation)
	}

	isPrivate := true
	if req.IsPrivate != nil {
		isPrivate = *req.IsPrivate
	}

	return &Group{
		ID:          id,
		Name:        name,
		HostID:      req.HostID,
		Members:     normalizeMembers(req.Members, req.HostID),
		Avatar:      req.Avatar,
		Description: req.Description,
		IsPrivate:   isPrivate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// IsMember reports whether userID belongs to the group.
func (g *Group) IsMember(userID string) bool {
	return lo.Contains(g.Members, userID)
}

// IsHost reports whether userID hosts the group.
func (g *Group) IsHost(userID string) bool {
	return g.HostID == userID
}

// AddMember adds memberID on behalf of actorID. Only the host may add.
func (g *Group) AddMember(actorID, memberID string, now time.Time) error {
	if !g.IsHost(actorID) {
		return fmt.Errorf("%w: only the host can add members", ErrForbidden)
	}
	if memberID == "" {
		return fmt.Errorf("%w: new member ID is required", ErrValidation)
	}
	if g.IsMember(memberID) {
		return fmt.Errorf("%w: user is already a member of this group", ErrValidation)
	}

	g.Members = append(g.Members, memberID)
	g.UpdatedAt = now
	return nil
}

// RemoveMember removes memberID on behalf of actorID. The host may remove
// anyone but themselves; any member may remove themselves.
func (g *Group) RemoveMember(actorID, memberID string, now time.Time) error {
	if !g.IsHost(actorID) && actorID != memberID {
		return fmt.Errorf("%w: not authorized to remove this member", ErrForbidden)
	}
	if g.IsHost(memberID) {
		return fmt.Errorf("%w: cannot remove the host from the group", ErrValidation)
	}

	g.Members = lo.Without(g.Members, memberID)
	g.UpdatedAt = now
	return nil
}

// Apply updates mutable fields on behalf of actorID. Replacing the member
// list is host-only and the host is re-added if the new list omits it.
func (g *Group) Apply(actorID string, req *UpdateGroupRequest, now time.Time) error {
	if !g.IsMember(actorID) {
		return fmt.Errorf("%w: not a member of this group", ErrForbidden)
	}
	if req.Members != nil {
		if !g.IsHost(actorID) {
			return fmt.Errorf("%w: only the host can replace members", ErrForbidden)
		}
		g.Members = normalizeMembers(req.Members, g.HostID)
	}

	if name := strings.TrimSpace(req.Name); name != "" {
		g.Name = name
	}
	if req.Avatar != "" {
		g.Avatar = req.Avatar
	}
	if req.Description != nil {
		g.Description = *req.Description
	}

	g.UpdatedAt = now
	return nil
}

// CanDelete checks that actorID may delete the group.
func (g *Group) CanDelete(actorID string) error {
	if !g.IsHost(actorID) {
		return fmt.Errorf("%w: only the host can delete the group", ErrForbidden)
	}
	return nil
}

func normalizeMembers(members []string, hostID string) []string {
	out := lo.Uniq(lo.Compact(members))
	if !lo.Contains(out, hostID) {
		out = append(out, hostID)
	}
	return out
}

// CreateGroupRequest is the request to create a group.
type CreateGroupRequest struct {
	Name        string   `json:"name" validate:"required,max=256"`
	HostID      string   `json:"hostId" validate:"required"`
	Members     []string `json:"members" validate:"required"`
	Avatar      string   `json:"avatar,omitempty"`
	Description string   `json:"description,omitempty"`
	IsPrivate   *bool    `json:"isPrivate,omitempty"`
}

// UpdateGroupRequest is the request to update a group. Empty fields are left
// unchanged; a nil Members keeps the current list.
type UpdateGroupRequest struct {
	UserID      string   `json:"userId" validate:"required"`
	Name        string   `json:"name,omitempty" validate:"max=256"`
	Members     []string `json:"members,omitempty"`
	Avatar      string   `json:"avatar,omitempty"`
	Description *string  `json:"description,omitempty"`
}

// ActorRequest carries the acting user for delete and member removal.
type ActorRequest struct {
	UserID string `json:"userId" validate:"required"`
}

// AddMemberRequest is the request to add a member.
type AddMemberRequest struct {
	UserID      string `json:"userId" validate:"required"`
	NewMemberID string `json:"newMemberId" validate:"required"`
}

// GroupResponse wraps a group for the HTTP surface.
type GroupResponse struct {
	Group *Group `json:"group"`
}

// ListGroupsResponse is the response for listing a user's groups.
type ListGroupsResponse struct {
	Groups []Group `json:"groups"`
}
