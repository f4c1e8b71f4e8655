package assistant

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/realtime-chat/internal/llm"
)

type fakeClient struct {
	last *llm.CompletionRequest
	err  error
}

func (c *fakeClient) Complete(_ context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	c.last = req
	if c.err != nil {
		return nil, c.err
	}
	return &llm.CompletionResponse{Content: "ok"}, nil
}

func (c *fakeClient) Name() string { return "fake" }

func TestLLMGenerator_BuildsAlternatingTurns(t *testing.T) {
	req := require.New(t)
	client := &fakeClient{}
	g := NewLLMGenerator(client, "model-x", Persona("Dyna"))

	out, err := g.Generate(context.Background(), "now", []Exchange{{Input: "q1", Output: "a1"}})
	req.NoError(err)
	req.Equal("ok", out)

	req.Equal("model-x", client.last.Model)
	req.Contains(client.last.System, "You are Dyna")
	req.Equal([]llm.ChatMessage{
		{Role: llm.RoleUser, Content: "q1"},
		{Role: llm.RoleAssistant, Content: "a1"},
		{Role: llm.RoleUser, Content: "now"},
	}, client.last.Messages)
}

func TestLLMGenerator_Errors(t *testing.T) {
	g := NewLLMGenerator(&fakeClient{err: errors.New("rate limited")}, "", "")
	_, err := g.Generate(context.Background(), "hi", nil)
	require.Error(t, err)

	_, err = NewLLMGenerator(nil, "", "").Generate(context.Background(), "hi", nil)
	require.Error(t, err)
}
