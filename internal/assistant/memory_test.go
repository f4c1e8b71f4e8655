package assistant

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemory_Bounded(t *testing.T) {
	req := require.New(t)
	m := NewMemory(2)

	m.Append(Exchange{Input: "1", Output: "a"})
	m.Append(Exchange{Input: "2", Output: "b"})
	m.Append(Exchange{Input: "3", Output: "c"})

	req.Equal([]Exchange{{Input: "2", Output: "b"}, {Input: "3", Output: "c"}}, m.History())
}

func TestPairTurns(t *testing.T) {
	req := require.New(t)

	req.Empty(PairTurns(nil))
	req.Empty(PairTurns([]string{"only"}))
	req.Equal([]Exchange{{Input: "q", Output: "a"}}, PairTurns([]string{"q", "a", "tail"}))
}

func TestComposePrompt(t *testing.T) {
	req := require.New(t)

	req.Equal("hi", ComposePrompt("hi", nil))
	req.Equal(
		"Context from past conversations:\none\n\ntwo\n\nBased on this context and our conversation history, please respond to: hi",
		ComposePrompt("hi", []string{"one", "two"}),
	)
	req.Equal("user-u1", Namespace("u1"))
}
