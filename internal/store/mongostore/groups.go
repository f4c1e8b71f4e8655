package mongostore

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/capitalize-ai/realtime-chat/internal/model"
)

func (s *Store) CreateGroup(ctx context.Context, group *model.Group) error {
	if _, err := s.groups().InsertOne(ctx, group); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: group %s already exists", model.ErrConflict, group.ID)
		}
		return fmt.Errorf("failed to create group: %w", err)
	}
	return nil
}

func (s *Store) GetGroup(ctx context.Context, groupID string) (*model.Group, error) {
	var g model.Group
	err := s.groups().FindOne(ctx, bson.M{"_id": groupID}).Decode(&g)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: group not found", model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	return &g, nil
}

// UpdateGroup replaces the mutable fields when the stored version still
// matches group.Version.
func (s *Store) UpdateGroup(ctx context.Context, group *model.Group) error {
	result, err := s.groups().UpdateOne(ctx,
		bson.M{"_id": group.ID, "version": group.Version},
		bson.M{
			"$set": bson.M{
				"name":        group.Name,
				"members":     group.Members,
				"avatar":      group.Avatar,
				"description": group.Description,
				"isPrivate":   group.IsPrivate,
				"updatedAt":   group.UpdatedAt,
			},
			"$inc": bson.M{"version": 1},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to update group: %w", err)
	}
	if result.MatchedCount == 0 {
		if _, err := s.GetGroup(ctx, group.ID); err != nil {
			return err
		}
		return fmt.Errorf("%w: group %s was modified concurrently", model.ErrConflict, group.ID)
	}
	group.Version++
	return nil
}

func (s *Store) DeleteGroup(ctx context.Context, groupID string) error {
	result, err := s.groups().DeleteOne(ctx, bson.M{"_id": groupID})
	if err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("%w: group not found", model.ErrNotFound)
	}
	return nil
}

func (s *Store) ListGroupsForUser(ctx context.Context, userID string) ([]model.Group, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}})
	cur, err := s.groups().Find(ctx, bson.M{"members": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	groups := []model.Group{}
	if err := cur.All(ctx, &groups); err != nil {
		return nil, fmt.Errorf("failed to decode groups: %w", err)
	}
	return groups, nil
}
