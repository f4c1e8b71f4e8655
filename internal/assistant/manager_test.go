package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/realtime-chat/internal/model"
	"github.com/capitalize-ai/realtime-chat/internal/store/memstore"
	"github.com/capitalize-ai/realtime-chat/internal/vectorindex"
	"github.com/capitalize-ai/realtime-chat/pkg/logger"
)

type call struct {
	prompt  string
	history []Exchange
}

type fakeGenerator struct {
	mu    sync.Mutex
	reply string
	err   error
	calls []call
}

func (g *fakeGenerator) Generate(_ context.Context, prompt string, history []Exchange) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, call{prompt: prompt, history: history})
	return g.reply, g.err
}

func (g *fakeGenerator) count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

type failingEmbedder struct{}

func (failingEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, errors.New("embedding provider down")
}

// keywordEmbedder puts weight on a slot per known keyword so related texts
// score high under cosine similarity.
type keywordEmbedder struct{}

func (keywordEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	words := []string{"beach", "mountain", "budget"}
	vec := make([]float32, len(words)+1)
	vec[len(words)] = 0.01
	for i, w := range words {
		if strings.Contains(strings.ToLower(text), w) {
			vec[i] = 1
		}
	}
	return vec, nil
}

// messageStore wraps memstore to observe writes and inject failures.
type messageStore struct {
	*memstore.Store
	failInsert bool
	inserted   []model.DirectMessage
}

func (s *messageStore) InsertDirectMessage(ctx context.Context, msg *model.DirectMessage) error {
	if s.failInsert {
		return errors.New("disk full")
	}
	s.inserted = append(s.inserted, *msg)
	return s.Store.InsertDirectMessage(ctx, msg)
}

type harness struct {
	manager  *Manager
	store    *messageStore
	dialogue *fakeGenerator
	direct   *fakeGenerator
}

func newHarness(t *testing.T, mutate func(*Deps)) *harness {
	t.Helper()

	h := &harness{
		store:    &messageStore{Store: memstore.New()},
		dialogue: &fakeGenerator{reply: "dialogue reply"},
		direct:   &fakeGenerator{reply: "direct reply"},
	}
	deps := Deps{
		Messages: h.store,
		Dialogue: h.dialogue,
		Direct:   h.direct,
		Logger:   logger.NewNop(),
	}
	if mutate != nil {
		mutate(&deps)
	}

	m, err := NewManager(Config{
		AssistantID:  "dnya",
		HistoryLimit: 20,
		MemoryTurns:  50,
		TopK:         3,
		CacheSize:    100,
	}, deps)
	require.NoError(t, err)
	t.Cleanup(m.Close)

	h.manager = m
	return h
}

func TestConverse_TierLadder(t *testing.T) {
	ctx := context.Background()

	t.Run("dialogue success skips fallbacks", func(t *testing.T) {
		req := require.New(t)
		h := newHarness(t, nil)

		turn, err := h.manager.Converse(ctx, "u1", "hello")
		req.NoError(err)
		req.Equal(Reply{Text: "dialogue reply", Tier: TierAugmented}, turn.Reply)
		req.Zero(h.direct.count())
	})

	t.Run("dialogue failure falls back to direct", func(t *testing.T) {
		req := require.New(t)
		h := newHarness(t, nil)
		h.dialogue.err = errors.New("quota exceeded")

		turn, err := h.manager.Converse(ctx, "u1", "hello")
		req.NoError(err)
		req.Equal(TierDirect, turn.Reply.Tier)
		req.Equal("direct reply", turn.Reply.Text)
		req.Equal("hello", h.direct.calls[0].prompt)
		req.Empty(h.direct.calls[0].history)
	})

	t.Run("both failing yields apology", func(t *testing.T) {
		req := require.New(t)
		h := newHarness(t, nil)
		h.dialogue.err = errors.New("quota exceeded")
		h.direct.err = errors.New("quota exceeded")

		turn, err := h.manager.Converse(ctx, "u1", "hello")
		req.NoError(err)
		req.Equal(Reply{Text: ApologyText, Tier: TierApology}, turn.Reply)
		req.Equal(ApologyText, turn.AIMessage.Content)
	})

	t.Run("missing generators yield apology", func(t *testing.T) {
		h := newHarness(t, func(d *Deps) { d.Dialogue, d.Direct = nil, nil })

		turn, err := h.manager.Converse(ctx, "u1", "hello")
		require.NoError(t, err)
		require.Equal(t, TierApology, turn.Reply.Tier)
	})

	t.Run("empty reply is replaced", func(t *testing.T) {
		h := newHarness(t, nil)
		h.dialogue.reply = ""

		turn, err := h.manager.Converse(ctx, "u1", "hello")
		require.NoError(t, err)
		require.Equal(t, EmptyReplyText, turn.Reply.Text)
	})
}

func TestConverse_PersistsBothTurns(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, nil)
	ctx := context.Background()

	turn, err := h.manager.Converse(ctx, "u1", "hello")
	req.NoError(err)

	req.Len(h.store.inserted, 2)
	req.Equal(turn.UserMessage.ID, h.store.inserted[0].ID)
	req.Equal("u1", h.store.inserted[0].SenderID)
	req.Equal("dnya", h.store.inserted[0].ReceiverID)
	req.Equal("dnya", h.store.inserted[1].SenderID)
	req.True(turn.AIMessage.Timestamp.After(turn.UserMessage.Timestamp))

	all, err := h.store.ListConversation(ctx, "u1", "dnya")
	req.NoError(err)
	req.Equal([]string{"hello", "dialogue reply"}, []string{all[0].Content, all[1].Content})
}

func TestConverse_PersistenceFailure(t *testing.T) {
	h := newHarness(t, nil)
	h.store.failInsert = true

	_, err := h.manager.Converse(context.Background(), "u1", "hello")
	require.Error(t, err)
	require.Zero(t, h.dialogue.count())
}

func TestConverse_HydratesFromStoredTurns(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, nil)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	stored := []struct{ from, to, text string }{
		{"u1", "dnya", "q1"}, {"dnya", "u1", "a1"},
		{"u1", "dnya", "q2"}, {"dnya", "u1", "a2"},
		{"u1", "dnya", "dangling"},
	}
	for i, s := range stored {
		req.NoError(h.store.Store.InsertDirectMessage(ctx, &model.DirectMessage{
			ID: fmt.Sprintf("m%d", i), SenderID: s.from, ReceiverID: s.to, Content: s.text,
			Timestamp: base.Add(time.Duration(i) * time.Second),
		}))
	}

	_, err := h.manager.Converse(ctx, "u1", "q3")
	req.NoError(err)
	req.Equal([]Exchange{{Input: "q1", Output: "a1"}, {Input: "q2", Output: "a2"}}, h.dialogue.calls[0].history)

	_, err = h.manager.Converse(ctx, "u1", "q4")
	req.NoError(err)
	history := h.dialogue.calls[1].history
	req.Len(history, 3)
	req.Equal(Exchange{Input: "q3", Output: "dialogue reply"}, history[2])
}

func TestConverse_DirectTierDoesNotGrowMemory(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, nil)
	ctx := context.Background()

	h.dialogue.err = errors.New("down")
	_, err := h.manager.Converse(ctx, "u1", "first")
	req.NoError(err)

	h.dialogue.err = nil
	_, err = h.manager.Converse(ctx, "u1", "second")
	req.NoError(err)

	req.Empty(h.dialogue.calls[1].history)
}

func TestConverse_RetrievalAugmentsPrompt(t *testing.T) {
	req := require.New(t)
	idx, err := vectorindex.Open("")
	req.NoError(err)
	t.Cleanup(func() { _ = idx.Close() })

	h := newHarness(t, func(d *Deps) {
		d.Embedder = keywordEmbedder{}
		d.Index = idx
	})
	ctx := context.Background()

	_, err = h.manager.Converse(ctx, "u1", "planning a beach weekend")
	req.NoError(err)
	req.Equal("planning a beach weekend", h.dialogue.calls[0].prompt)

	_, err = h.manager.Converse(ctx, "u1", "what about the beach food?")
	req.NoError(err)

	prompt := h.dialogue.calls[1].prompt
	req.True(strings.HasPrefix(prompt, "Context from past conversations:\n"))
	req.Contains(prompt, "planning a beach weekend")
	req.True(strings.HasSuffix(prompt, "please respond to: what about the beach food?"))
	req.Equal("planning a beach weekend", h.dialogue.calls[1].history[0].Input)

	other, err := idx.Query(ctx, Namespace("u2"), []float32{1, 0, 0, 0.01}, 3)
	req.NoError(err)
	req.Empty(other)
}

func TestConverse_RetrievalFailureIsAbsorbed(t *testing.T) {
	req := require.New(t)
	idx, err := vectorindex.Open("")
	req.NoError(err)
	t.Cleanup(func() { _ = idx.Close() })

	h := newHarness(t, func(d *Deps) {
		d.Embedder = failingEmbedder{}
		d.Index = idx
	})

	turn, err := h.manager.Converse(context.Background(), "u1", "hello")
	req.NoError(err)
	req.Equal(TierAugmented, turn.Reply.Tier)
	req.Equal("hello", h.dialogue.calls[0].prompt)
}

func TestConverse_ConcurrentColdStartSharesContext(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := h.manager.Converse(ctx, "u1", fmt.Sprintf("msg %d", i))
			require.NoError(t, err)
		}(i)
	}
	wg.Wait()

	conv, err := h.manager.conversation(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, 8, conv.memory.Len())
}

func TestConversation_SurvivesCacheRejection(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, nil)
	ctx := context.Background()

	// An entry costlier than the whole cache is never admitted.
	h.manager.entryCost = 1 << 20

	first, err := h.manager.conversation(ctx, "u1")
	req.NoError(err)
	second, err := h.manager.conversation(ctx, "u1")
	req.NoError(err)
	req.Same(first, second)
	req.Len(h.manager.overflow, 1)

	_, err = h.manager.Converse(ctx, "u1", "hello")
	req.NoError(err)
	_, err = h.manager.Converse(ctx, "u1", "again")
	req.NoError(err)
	req.Equal([]Exchange{{Input: "hello", Output: "dialogue reply"}}, h.dialogue.calls[1].history)
}

func TestConversation_CachedContextIsReused(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, nil)
	ctx := context.Background()

	first, err := h.manager.conversation(ctx, "u1")
	req.NoError(err)
	second, err := h.manager.conversation(ctx, "u1")
	req.NoError(err)
	req.Same(first, second)
	req.Empty(h.manager.overflow)
}
