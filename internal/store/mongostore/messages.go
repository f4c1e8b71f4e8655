package mongostore

import (
	"context"
	"fmt"
	"slices"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/capitalize-ai/realtime-chat/internal/model"
)

func (s *Store) InsertGroupMessage(ctx context.Context, msg *model.GroupMessage) error {
	if _, err := s.groupMessages().InsertOne(ctx, msg); err != nil {
		return fmt.Errorf("failed to insert group message: %w", err)
	}
	return nil
}

func (s *Store) ListGroupMessages(ctx context.Context, groupID string) ([]model.GroupMessage, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}})
	cur, err := s.groupMessages().Find(ctx, bson.M{"groupId": groupID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list group messages: %w", err)
	}
	msgs := []model.GroupMessage{}
	if err := cur.All(ctx, &msgs); err != nil {
		return nil, fmt.Errorf("failed to decode group messages: %w", err)
	}
	return msgs, nil
}

func (s *Store) DeleteGroupMessages(ctx context.Context, groupID string) error {
	if _, err := s.groupMessages().DeleteMany(ctx, bson.M{"groupId": groupID}); err != nil {
		return fmt.Errorf("failed to delete group messages: %w", err)
	}
	return nil
}

func (s *Store) InsertDirectMessage(ctx context.Context, msg *model.DirectMessage) error {
	if _, err := s.messages().InsertOne(ctx, msg); err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

// RecentDirectMessages reads newest first with a limit, then reverses.
func (s *Store) RecentDirectMessages(ctx context.Context, userID, peerID string, limit int) ([]model.DirectMessage, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	msgs, err := s.findConversation(ctx, userID, peerID, opts)
	if err != nil {
		return nil, err
	}
	slices.Reverse(msgs)
	return msgs, nil
}

func (s *Store) ListConversation(ctx context.Context, userID, peerID string) ([]model.DirectMessage, error) {
	return s.findConversation(ctx, userID, peerID, options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}}))
}

func (s *Store) findConversation(ctx context.Context, userID, peerID string, opts *options.FindOptionsBuilder) ([]model.DirectMessage, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"senderId": userID, "receiverId": peerID},
		bson.M{"senderId": peerID, "receiverId": userID},
	}}
	cur, err := s.messages().Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	msgs := []model.DirectMessage{}
	if err := cur.All(ctx, &msgs); err != nil {
		return nil, fmt.Errorf("failed to decode messages: %w", err)
	}
	return msgs, nil
}
