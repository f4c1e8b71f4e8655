package assistant

import (
	"context"
	"errors"

	"github.com/capitalize-ai/realtime-chat/internal/llm"
)

// Generator produces a reply to prompt given prior exchanges.
type Generator interface {
	Generate(ctx context.Context, prompt string, history []Exchange) (string, error)
}

// Embedder turns text into a vector for retrieval.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// LLMGenerator adapts an llm.Client to Generator.
type LLMGenerator struct {
	client    llm.Client
	model     string
	system    string
	maxTokens int
}

// NewLLMGenerator creates a generator that sends system as the system prompt.
// An empty system sends none.
func NewLLMGenerator(client llm.Client, model, system string) *LLMGenerator {
	return &LLMGenerator{client: client, model: model, system: system, maxTokens: 1024}
}

// Generate sends history as alternating user/assistant turns followed by prompt.
func (g *LLMGenerator) Generate(ctx context.Context, prompt string, history []Exchange) (string, error) {
	if g == nil || g.client == nil {
		return "", errors.New("no LLM client configured")
	}

	messages := make([]llm.ChatMessage, 0, len(history)*2+1)
	for _, e := range history {
		messages = append(messages,
			llm.ChatMessage{Role: llm.RoleUser, Content: e.Input},
			llm.ChatMessage{Role: llm.RoleAssistant, Content: e.Output},
		)
	}
	messages = append(messages, llm.ChatMessage{Role: llm.RoleUser, Content: prompt})

	resp, err := g.client.Complete(ctx, &llm.CompletionRequest{
		Model:       g.model,
		System:      g.system,
		Messages:    messages,
		MaxTokens:   g.maxTokens,
		Temperature: 0.7,
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}
