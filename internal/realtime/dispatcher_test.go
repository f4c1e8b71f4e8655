package realtime

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/realtime-chat/internal/model"
	"github.com/capitalize-ai/realtime-chat/internal/presence"
	"github.com/capitalize-ai/realtime-chat/internal/store/memstore"
)

type recordingConns struct {
	mu   sync.Mutex
	sent map[string][]model.Event
	full map[string]bool
}

func newRecordingConns() *recordingConns {
	return &recordingConns{sent: make(map[string][]model.Event), full: make(map[string]bool)}
}

func (r *recordingConns) Send(connID string, evt model.Event) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.full[connID] {
		return false
	}
	r.sent[connID] = append(r.sent[connID], evt)
	return true
}

func TestDispatcher_SendToUser(t *testing.T) {
	req := require.New(t)
	reg := presence.NewRegistry()
	conns := newRecordingConns()
	d := NewDispatcher(reg, conns, memstore.New())

	evt := model.NewErrorEvent("x")
	req.False(d.SendToUser("u1", evt))

	reg.Register("u1", "c1")
	req.True(d.SendToUser("u1", evt))
	req.Len(conns.sent["c1"], 1)

	reg.Register("u1", "c2")
	req.True(d.SendToUser("u1", evt))
	req.Len(conns.sent["c1"], 1)
	req.Len(conns.sent["c2"], 1)
}

func TestDispatcher_BroadcastReachesOnlineMembersOnly(t *testing.T) {
	req := require.New(t)
	reg := presence.NewRegistry()
	conns := newRecordingConns()
	groups := memstore.New()
	d := NewDispatcher(reg, conns, groups)
	ctx := context.Background()

	g, err := model.NewGroup("g1", &model.CreateGroupRequest{Name: "Trip", HostID: "u1", Members: []string{"u2", "u3"}}, time.Now())
	req.NoError(err)
	req.NoError(groups.CreateGroup(ctx, g))

	reg.Register("u1", "c1")
	reg.Register("u2", "c2")
	reg.Register("outsider", "c9")

	evt := model.NewTypingEvent("g1", "u1", "Ann", true)
	req.NoError(d.BroadcastToGroup(ctx, "g1", evt, "u1"))

	req.Empty(conns.sent["c1"])
	req.Len(conns.sent["c2"], 1)
	req.Empty(conns.sent["c9"])

	req.Equal(2, d.BroadcastToMembers(g.Members, evt, ""))

	conns.full["c2"] = true
	req.Equal(1, d.BroadcastToMembers(g.Members, evt, ""))

	req.ErrorIs(d.BroadcastToGroup(ctx, "missing", evt, ""), model.ErrNotFound)
}
