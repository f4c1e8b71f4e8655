package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/realtime-chat/internal/codec"
	"github.com/capitalize-ai/realtime-chat/internal/model"
	natsclient "github.com/capitalize-ai/realtime-chat/internal/nats"
	"github.com/capitalize-ai/realtime-chat/internal/presence"
	"github.com/capitalize-ai/realtime-chat/internal/realtime"
	"github.com/capitalize-ai/realtime-chat/internal/store"
	"github.com/capitalize-ai/realtime-chat/internal/store/memstore"
	"github.com/capitalize-ai/realtime-chat/internal/typing"
	"github.com/capitalize-ai/realtime-chat/pkg/logger"
)

// connections records events per connection id.
type connections struct {
	mu   sync.Mutex
	sent map[string][]model.Event
}

func (c *connections) Send(connID string, evt model.Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent[connID] = append(c.sent[connID], evt)
	return true
}

func (c *connections) events(connID string, name model.EventName) []model.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []model.Event
	for _, e := range c.sent[connID] {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

type journal struct {
	mu      sync.Mutex
	groups  []model.GroupMessage
	direct  []model.DirectMessage
	changes []natsclient.GroupEvent
}

func (j *journal) PublishGroupMessage(_ context.Context, msg *model.GroupMessage) (uint64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.groups = append(j.groups, *msg)
	return uint64(len(j.groups)), nil
}

func (j *journal) PublishDirectMessage(_ context.Context, _ string, msg *model.DirectMessage) (uint64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.direct = append(j.direct, *msg)
	return uint64(len(j.direct)), nil
}

func (j *journal) PublishGroupEvent(_ context.Context, event *natsclient.GroupEvent) (uint64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.changes = append(j.changes, *event)
	return uint64(len(j.changes)), nil
}

type env struct {
	store    *memstore.Store
	presence *presence.Registry
	conns    *connections
	typing   *typing.Tracker
	journal  *journal
	users    *UserService
	groups   *GroupService
}

func newEnv(t *testing.T, policy codec.DecryptPolicy) *env {
	t.Helper()

	log := logger.NewNop()
	st := memstore.New()
	reg := presence.NewRegistry()
	conns := &connections{sent: make(map[string][]model.Event)}
	dispatcher := realtime.NewDispatcher(reg, conns, st)
	tracker := typing.NewTracker(dispatcher, log)
	j := &journal{}

	return &env{
		store:    st,
		presence: reg,
		conns:    conns,
		typing:   tracker,
		journal:  j,
		users:    NewUserService(st, log),
		groups: NewGroupService(GroupServiceDeps{
			Groups:      st,
			Messages:    st,
			Codec:       codec.New(store.KeyProvider{Users: st}, policy),
			Typing:      tracker,
			Broadcaster: dispatcher,
			Journal:     j,
			Logger:      log,
		}),
	}
}

func (e *env) user(t *testing.T, id string) *model.User {
	t.Helper()
	u, err := e.users.GetOrCreate(context.Background(), &model.CreateUserRequest{UserID: id})
	require.NoError(t, err)
	return u
}

func (e *env) trip(t *testing.T) *model.Group {
	t.Helper()
	g, err := e.groups.Create(context.Background(), &model.CreateGroupRequest{Name: "Trip", HostID: "u1", Members: []string{"u2"}})
	require.NoError(t, err)
	return g
}
