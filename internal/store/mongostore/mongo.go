// Package mongostore implements store.Store on MongoDB.
package mongostore

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"

	"github.com/capitalize-ai/realtime-chat/internal/store"
	"github.com/capitalize-ai/realtime-chat/pkg/logger"
)

const (
	usersCollection         = "users"
	groupsCollection        = "groups"
	groupMessagesCollection = "group_messages"
	messagesCollection      = "messages"
)

var _ store.Store = (*Store)(nil)

// Store is a MongoDB-backed store.Store.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	log    *logger.Logger
}

// Connect dials uri, verifies the connection and ensures indexes exist.
func Connect(ctx context.Context, uri, database string, log *logger.Logger) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	s := &Store{client: client, db: client.Database(database), log: log}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	log.Info("Connected to MongoDB", zap.String("database", database))
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		groupsCollection: {
			{Keys: bson.D{{Key: "members", Value: 1}, {Key: "updatedAt", Value: -1}}},
		},
		groupMessagesCollection: {
			{Keys: bson.D{{Key: "groupId", Value: 1}, {Key: "timestamp", Value: 1}}},
		},
		messagesCollection: {
			{Keys: bson.D{{Key: "senderId", Value: 1}, {Key: "receiverId", Value: 1}, {Key: "timestamp", Value: -1}}},
		},
	}

	for name, models := range indexes {
		if _, err := s.db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create indexes for %s: %w", name, err)
		}
	}
	return nil
}

// Ping checks the primary is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) users() *mongo.Collection         { return s.db.Collection(usersCollection) }
func (s *Store) groups() *mongo.Collection        { return s.db.Collection(groupsCollection) }
func (s *Store) groupMessages() *mongo.Collection { return s.db.Collection(groupMessagesCollection) }
func (s *Store) messages() *mongo.Collection      { return s.db.Collection(messagesCollection) }
