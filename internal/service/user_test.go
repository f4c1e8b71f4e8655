package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/realtime-chat/internal/codec"
	"github.com/capitalize-ai/realtime-chat/internal/model"
)

func TestUserService_GetOrCreate(t *testing.T) {
	req := require.New(t)
	e := newEnv(t, codec.FailClosed)
	ctx := context.Background()

	u, err := e.users.GetOrCreate(ctx, &model.CreateUserRequest{UserID: "u1", Email: "a@b.c"})
	req.NoError(err)
	req.Len(u.EncryptionKey, 64)
	req.False(u.HasConsented)

	again, err := e.users.GetOrCreate(ctx, &model.CreateUserRequest{UserID: "u1"})
	req.NoError(err)
	req.Equal(u.EncryptionKey, again.EncryptionKey)
	req.Equal("a@b.c", again.Email)
}

func TestUserService_SetConsentCreatesUnknownUser(t *testing.T) {
	req := require.New(t)
	e := newEnv(t, codec.FailClosed)
	ctx := context.Background()

	u, err := e.users.SetConsent(ctx, &model.ConsentRequest{UserID: "u7", HasConsented: true})
	req.NoError(err)
	req.True(u.HasConsented)
	req.NotEmpty(u.EncryptionKey)

	u, err = e.users.SetConsent(ctx, &model.ConsentRequest{UserID: "u7", HasConsented: false})
	req.NoError(err)
	req.False(u.HasConsented)
}
