package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/realtime-chat/internal/codec"
	"github.com/capitalize-ai/realtime-chat/internal/model"
	natsclient "github.com/capitalize-ai/realtime-chat/internal/nats"
	"github.com/capitalize-ai/realtime-chat/internal/store/memstore"
)

func TestGroupService_CreateAppendsHost(t *testing.T) {
	req := require.New(t)
	e := newEnv(t, codec.FailClosed)

	g := e.trip(t)
	req.Equal([]string{"u2", "u1"}, g.Members)
	req.Equal("u1", g.HostID)

	groups, err := e.groups.ListForUser(context.Background(), "u2")
	req.NoError(err)
	req.Len(groups, 1)

	req.Equal(natsclient.GroupCreated, e.journal.changes[0].Type)
}

func TestGroupService_SendMessage(t *testing.T) {
	req := require.New(t)
	e := newEnv(t, codec.FailClosed)
	ctx := context.Background()

	e.user(t, "u1")
	e.user(t, "u2")
	g := e.trip(t)

	e.presence.Register("u1", "c1")
	e.presence.Register("u3", "c3")

	msg, err := e.groups.SendMessage(ctx, &model.SendGroupMessageRequest{GroupID: g.ID, SenderID: "u1", SenderName: "Ann", Content: "hi"})
	req.NoError(err)
	req.Equal("hi", msg.Content)

	stored, err := e.store.ListGroupMessages(ctx, g.ID)
	req.NoError(err)
	req.Len(stored, 1)
	req.NotEqual("hi", stored[0].Content)
	req.Contains(stored[0].Content, ":")

	keys, _ := e.store.GetUser(ctx, "u1")
	plain, err := codec.Decrypt(stored[0].Content, keys.EncryptionKey)
	req.NoError(err)
	req.Equal("hi", plain)

	delivered := e.conns.events("c1", model.EventGroupMessage)
	req.Len(delivered, 1)
	payload := delivered[0].Data.(model.GroupMessagePayload)
	req.Equal("hi", payload.Message.Content)
	req.Empty(e.conns.events("c3", model.EventGroupMessage))

	req.Len(e.journal.groups, 1)
	req.Equal(stored[0].Content, e.journal.groups[0].Content)
}

func TestGroupService_SendMessageRejections(t *testing.T) {
	ctx := context.Background()

	t.Run("non member", func(t *testing.T) {
		e := newEnv(t, codec.FailClosed)
		e.user(t, "u9")
		g := e.trip(t)
		_, err := e.groups.SendMessage(ctx, &model.SendGroupMessageRequest{GroupID: g.ID, SenderID: "u9", SenderName: "X", Content: "hi"})
		require.ErrorIs(t, err, model.ErrForbidden)
	})

	t.Run("missing key", func(t *testing.T) {
		e := newEnv(t, codec.FailClosed)
		g := e.trip(t)
		_, err := e.groups.SendMessage(ctx, &model.SendGroupMessageRequest{GroupID: g.ID, SenderID: "u1", SenderName: "Ann", Content: "hi"})
		require.ErrorIs(t, err, model.ErrKeyUnavailable)

		stored, err := e.store.ListGroupMessages(ctx, g.ID)
		require.NoError(t, err)
		require.Empty(t, stored)
	})

	t.Run("empty body", func(t *testing.T) {
		e := newEnv(t, codec.FailClosed)
		g := e.trip(t)
		_, err := e.groups.SendMessage(ctx, &model.SendGroupMessageRequest{GroupID: g.ID, SenderID: "u1", SenderName: "Ann"})
		require.ErrorIs(t, err, model.ErrValidation)
	})

	t.Run("unknown group", func(t *testing.T) {
		e := newEnv(t, codec.FailClosed)
		_, err := e.groups.SendMessage(ctx, &model.SendGroupMessageRequest{GroupID: "nope", SenderID: "u1", SenderName: "Ann", Content: "hi"})
		require.ErrorIs(t, err, model.ErrNotFound)
	})
}

func TestGroupService_ImageOnlyMessage(t *testing.T) {
	req := require.New(t)
	e := newEnv(t, codec.FailClosed)
	ctx := context.Background()
	e.user(t, "u1")
	g := e.trip(t)

	msg, err := e.groups.SendMessage(ctx, &model.SendGroupMessageRequest{GroupID: g.ID, SenderID: "u1", SenderName: "Ann", ImageURL: "https://img.example/a.png"})
	req.NoError(err)
	req.Empty(msg.Content)

	msgs, err := e.groups.ListMessages(ctx, g.ID, "u2")
	req.NoError(err)
	req.Len(msgs, 1)
	req.Empty(msgs[0].Content)
	req.False(msgs[0].Redacted)
	req.Equal("https://img.example/a.png", msgs[0].ImageURL)
}

func TestGroupService_SendClearsTyping(t *testing.T) {
	req := require.New(t)
	e := newEnv(t, codec.FailClosed)
	ctx := context.Background()
	e.user(t, "u1")
	g := e.trip(t)

	e.presence.Register("u2", "c2")
	e.typing.SetTyping(ctx, g.ID, "u1", "Ann", true)

	_, err := e.groups.SendMessage(ctx, &model.SendGroupMessageRequest{GroupID: g.ID, SenderID: "u1", SenderName: "Ann", Content: "hi"})
	req.NoError(err)

	req.Empty(e.typing.Typing(g.ID))
	notices := e.conns.events("c2", model.EventGroupTyping)
	req.Len(notices, 2)
	req.False(notices[1].Data.(model.TypingPayload).IsTyping)
}

func TestGroupService_ListMessagesDecryptPolicy(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T, policy codec.DecryptPolicy) (*env, string) {
		e := newEnv(t, policy)
		e.user(t, "u1")
		g := e.trip(t)
		_, err := e.groups.SendMessage(ctx, &model.SendGroupMessageRequest{GroupID: g.ID, SenderID: "u1", SenderName: "Ann", Content: "secret"})
		require.NoError(t, err)
		return e, g.ID
	}

	t.Run("member reads plaintext", func(t *testing.T) {
		e, groupID := setup(t, codec.FailClosed)
		msgs, err := e.groups.ListMessages(ctx, groupID, "u2")
		require.NoError(t, err)
		require.Equal(t, "secret", msgs[0].Content)
	})

	t.Run("outsider rejected", func(t *testing.T) {
		e, groupID := setup(t, codec.FailClosed)
		_, err := e.groups.ListMessages(ctx, groupID, "u9")
		require.ErrorIs(t, err, model.ErrForbidden)
	})

	t.Run("closed policy redacts when key is gone", func(t *testing.T) {
		e, groupID := setup(t, codec.FailClosed)
		e.groups.codec = codec.New(staticKeys{}, codec.FailClosed)

		msgs, err := e.groups.ListMessages(ctx, groupID, "u2")
		require.NoError(t, err)
		require.Empty(t, msgs[0].Content)
		require.True(t, msgs[0].Redacted)
	})

	t.Run("open policy returns stored record", func(t *testing.T) {
		e, groupID := setup(t, codec.FailOpen)
		e.groups.codec = codec.New(staticKeys{}, codec.FailOpen)

		msgs, err := e.groups.ListMessages(ctx, groupID, "u2")
		require.NoError(t, err)
		require.Contains(t, msgs[0].Content, ":")
		require.False(t, msgs[0].Redacted)
	})
}

func TestGroupService_Membership(t *testing.T) {
	req := require.New(t)
	e := newEnv(t, codec.FailClosed)
	ctx := context.Background()
	g := e.trip(t)

	_, err := e.groups.AddMember(ctx, g.ID, "u2", "u3")
	req.ErrorIs(err, model.ErrForbidden)

	updated, err := e.groups.AddMember(ctx, g.ID, "u1", "u3")
	req.NoError(err)
	req.Contains(updated.Members, "u3")

	_, err = e.groups.AddMember(ctx, g.ID, "u1", "u3")
	req.ErrorIs(err, model.ErrValidation)

	_, err = e.groups.RemoveMember(ctx, g.ID, "u2", "u1")
	req.ErrorIs(err, model.ErrForbidden)
	_, err = e.groups.RemoveMember(ctx, g.ID, "u1", "u1")
	req.ErrorIs(err, model.ErrValidation)

	updated, err = e.groups.RemoveMember(ctx, g.ID, "u3", "u3")
	req.NoError(err)
	req.NotContains(updated.Members, "u3")

	_, err = e.groups.RemoveMember(ctx, g.ID, "u1", "ghost")
	req.NoError(err)

	req.NoError(e.groups.Join(ctx, g.ID, "u2"))
	req.ErrorIs(e.groups.Join(ctx, g.ID, "u3"), model.ErrForbidden)

	current, err := e.groups.GetGroup(ctx, g.ID)
	req.NoError(err)
	req.Contains(current.Members, current.HostID)
}

func TestGroupService_UpdateAndDelete(t *testing.T) {
	req := require.New(t)
	e := newEnv(t, codec.FailClosed)
	ctx := context.Background()
	e.user(t, "u1")
	g := e.trip(t)

	updated, err := e.groups.Update(ctx, g.ID, &model.UpdateGroupRequest{UserID: "u1", Members: []string{"u5"}})
	req.NoError(err)
	req.Equal([]string{"u5", "u1"}, updated.Members)

	_, err = e.groups.Update(ctx, g.ID, &model.UpdateGroupRequest{UserID: "u2", Name: "x"})
	req.ErrorIs(err, model.ErrForbidden)

	_, err = e.groups.SendMessage(ctx, &model.SendGroupMessageRequest{GroupID: g.ID, SenderID: "u1", SenderName: "Ann", Content: "bye"})
	req.NoError(err)

	req.ErrorIs(e.groups.Delete(ctx, g.ID, "u5"), model.ErrForbidden)
	req.NoError(e.groups.Delete(ctx, g.ID, "u1"))

	_, err = e.groups.GetGroup(ctx, g.ID)
	req.ErrorIs(err, model.ErrNotFound)
	msgs, err := e.store.ListGroupMessages(ctx, g.ID)
	req.NoError(err)
	req.Empty(msgs)
}

type staticKeys map[string]string

func (k staticKeys) Key(_ context.Context, userID string) (string, error) {
	if key, ok := k[userID]; ok {
		return key, nil
	}
	return "", model.ErrKeyUnavailable
}

type failingMessageStore struct {
	*memstore.Store
}

func (failingMessageStore) DeleteGroupMessages(context.Context, string) error {
	return errors.New("disk full")
}

func TestGroupService_DeleteKeepsGroupWhenMessagesRemain(t *testing.T) {
	req := require.New(t)
	e := newEnv(t, codec.FailClosed)
	ctx := context.Background()
	e.user(t, "u1")
	g := e.trip(t)

	_, err := e.groups.SendMessage(ctx, &model.SendGroupMessageRequest{GroupID: g.ID, SenderID: "u1", SenderName: "Ann", Content: "keep"})
	req.NoError(err)

	e.groups.messages = failingMessageStore{Store: e.store}
	req.Error(e.groups.Delete(ctx, g.ID, "u1"))

	_, err = e.groups.GetGroup(ctx, g.ID)
	req.NoError(err)
	msgs, err := e.store.ListGroupMessages(ctx, g.ID)
	req.NoError(err)
	req.Len(msgs, 1)

	e.groups.messages = e.store
	req.NoError(e.groups.Delete(ctx, g.ID, "u1"))
	_, err = e.groups.GetGroup(ctx, g.ID)
	req.ErrorIs(err, model.ErrNotFound)
}
