package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/capitalize-ai/realtime-chat/internal/codec"
	"github.com/capitalize-ai/realtime-chat/internal/model"
	"github.com/capitalize-ai/realtime-chat/internal/store"
	"github.com/capitalize-ai/realtime-chat/pkg/logger"
)

// UserService handles user accounts and assistant consent.
type UserService struct {
	users  store.UserStore
	logger *logger.Logger
}

// NewUserService creates a new user service.
func NewUserService(users store.UserStore, log *logger.Logger) *UserService {
	return &UserService{users: users, logger: log}
}

// GetOrCreate returns the user, creating it with a fresh encryption key when
// it does not exist yet.
func (s *UserService) GetOrCreate(ctx context.Context, req *model.CreateUserRequest) (*model.User, error) {
	user, err := s.users.GetUser(ctx, req.UserID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return nil, err
	}

	key, err := codec.GenerateKey()
	if err != nil {
		return nil, err
	}
	user = &model.User{
		ID:            req.UserID,
		Email:         req.Email,
		EncryptionKey: key,
		CreatedAt:     now(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, model.ErrConflict) {
			return s.users.GetUser(ctx, req.UserID)
		}
		return nil, err
	}

	s.logger.Info("user created", zap.String("user_id", user.ID))
	return user, nil
}

// SetConsent records whether the user agreed to talk to the assistant. An
// unknown user is created first.
func (s *UserService) SetConsent(ctx context.Context, req *model.ConsentRequest) (*model.User, error) {
	user, err := s.users.SetConsent(ctx, req.UserID, req.HasConsented)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return nil, fmt.Errorf("failed to update consent: %w", err)
	}

	if _, err := s.GetOrCreate(ctx, &model.CreateUserRequest{UserID: req.UserID}); err != nil {
		return nil, err
	}
	return s.users.SetConsent(ctx, req.UserID, req.HasConsented)
}
