package nats

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSubjects(t *testing.T) {
	req := require.New(t)

	req.Equal("chat.group.g1.msg", GroupMessageSubject("g1"))
	req.Equal("chat.group.g1.event.member_added", GroupEventSubject("g1", GroupMemberAdded))
	req.Equal("chat.direct.u1.msg", DirectMessageSubject("u1"))
}

func TestClient_IsConnectedOnNil(t *testing.T) {
	var c *Client
	require.False(t, c.IsConnected())
}
