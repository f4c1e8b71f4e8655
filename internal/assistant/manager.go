// Package assistant runs the per-user conversational pipeline: context
// hydration, retrieval, prompt composition and a three-tier generation
// fallback.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/capitalize-ai/realtime-chat/internal/model"
	"github.com/capitalize-ai/realtime-chat/internal/store"
	"github.com/capitalize-ai/realtime-chat/internal/vectorindex"
	"github.com/capitalize-ai/realtime-chat/pkg/logger"
	"github.com/capitalize-ai/realtime-chat/pkg/metrics"
	"github.com/capitalize-ai/realtime-chat/pkg/tracing"
)

var errNoGenerator = errors.New("generator not configured")

// Config tunes the Manager.
type Config struct {
	AssistantID       string
	HistoryLimit      int
	MemoryTurns       int
	TopK              int
	CacheSize         int
	ContextTTL        time.Duration
	GenerationTimeout time.Duration
	RetrievalTimeout  time.Duration
}

// Deps are the collaborators of a Manager. Embedder and Index are optional;
// without them retrieval and indexing are skipped.
type Deps struct {
	Messages store.DirectMessageStore
	Dialogue Generator
	Direct   Generator
	Embedder Embedder
	Index    vectorindex.Index
	Logger   *logger.Logger
}

type conversation struct {
	mu        sync.Mutex
	memory    *Memory
	namespace string
}

// Manager owns the conversation contexts of all users.
type Manager struct {
	cfg      Config
	messages store.DirectMessageStore
	dialogue Generator
	direct   Generator
	embedder Embedder
	index    vectorindex.Index
	log      *logger.Logger
	tracer   trace.Tracer

	contexts  *ristretto.Cache[string, *conversation]
	entryCost int64
	loads     singleflight.Group

	// overflow holds contexts the cache refused so that a user keeps a single
	// context and lock while the cache is saturated. Bounded by CacheSize.
	overflowMu sync.Mutex
	overflow   map[string]*conversation

	now   func() time.Time
	newID func() string
}

// NewManager creates a Manager.
func NewManager(cfg Config, deps Deps) (*Manager, error) {
	if deps.Messages == nil {
		return nil, errors.New("assistant: message store is required")
	}
	if cfg.AssistantID == "" {
		return nil, errors.New("assistant: assistant id is required")
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 10000
	}
	log := deps.Logger
	if log == nil {
		log = logger.Global()
	}

	contexts, err := ristretto.NewCache(&ristretto.Config[string, *conversation]{
		NumCounters: int64(cfg.CacheSize) * 10,
		MaxCost:     int64(cfg.CacheSize),
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create context cache: %w", err)
	}

	return &Manager{
		cfg:      cfg,
		messages: deps.Messages,
		dialogue: deps.Dialogue,
		direct:   deps.Direct,
		embedder: deps.Embedder,
		index:    deps.Index,
		log:      log,
		tracer:   tracing.Tracer("assistant"),
		contexts:  contexts,
		entryCost: 1,
		overflow:  make(map[string]*conversation),
		now:      time.Now,
		newID:    func() string { return uuid.Must(uuid.NewV7()).String() },
	}, nil
}

// Close releases the context cache.
func (m *Manager) Close() {
	m.contexts.Close()
}

// Converse answers content from userID. The user's message is persisted
// before generation and the reply after it. Generation and retrieval
// failures never surface as errors; only persistence does.
func (m *Manager) Converse(ctx context.Context, userID, content string) (*Turn, error) {
	start := time.Now()
	ctx, span := m.tracer.Start(ctx, "assistant.Converse",
		trace.WithAttributes(attribute.String("user.id", userID)))
	defer span.End()

	conv, err := m.conversation(ctx, userID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	conv.mu.Lock()
	defer conv.mu.Unlock()

	userMsg := &model.DirectMessage{
		ID:         m.newID(),
		SenderID:   userID,
		ReceiverID: m.cfg.AssistantID,
		Content:    content,
		Timestamp:  m.now(),
	}
	if err := m.messages.InsertDirectMessage(ctx, userMsg); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to save message: %w", err)
	}

	hits := m.retrieve(ctx, conv.namespace, content)
	m.remember(ctx, conv.namespace, userMsg)

	reply := m.generate(ctx, conv, content, ComposePrompt(content, hits))

	aiMsg := &model.DirectMessage{
		ID:         m.newID(),
		SenderID:   m.cfg.AssistantID,
		ReceiverID: userID,
		Content:    reply.Text,
		Timestamp:  m.now(),
	}
	if !aiMsg.Timestamp.After(userMsg.Timestamp) {
		aiMsg.Timestamp = userMsg.Timestamp.Add(time.Millisecond)
	}
	if err := m.messages.InsertDirectMessage(ctx, aiMsg); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to save reply: %w", err)
	}
	m.remember(ctx, conv.namespace, aiMsg)

	metrics.RecordReply(string(reply.Tier), time.Since(start).Seconds())
	metrics.MessagesTotal.WithLabelValues("direct").Add(2)
	span.SetAttributes(
		attribute.String("assistant.tier", string(reply.Tier)),
		attribute.Int("assistant.hits", len(hits)),
	)

	return &Turn{UserMessage: userMsg, AIMessage: aiMsg, Reply: reply}, nil
}

// conversation returns the cached context of userID, hydrating it from the
// store on a cold start. Concurrent cold starts share one load.
func (m *Manager) conversation(ctx context.Context, userID string) (*conversation, error) {
	if conv, ok := m.cached(userID); ok {
		return conv, nil
	}

	v, err, _ := m.loads.Do(userID, func() (any, error) {
		if conv, ok := m.cached(userID); ok {
			return conv, nil
		}

		recent, err := m.messages.RecentDirectMessages(ctx, userID, m.cfg.AssistantID, m.cfg.HistoryLimit)
		if err != nil {
			return nil, fmt.Errorf("failed to load conversation history: %w", err)
		}

		conv := &conversation{
			memory:    NewMemory(m.cfg.MemoryTurns),
			namespace: Namespace(userID),
		}
		contents := lo.Map(recent, func(msg model.DirectMessage, _ int) string { return msg.Content })
		for _, e := range PairTurns(contents) {
			conv.memory.Append(e)
		}

		m.keep(userID, conv)
		return conv, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*conversation), nil
}

func (m *Manager) cached(userID string) (*conversation, bool) {
	if conv, ok := m.contexts.Get(userID); ok {
		return conv, true
	}
	m.overflowMu.Lock()
	defer m.overflowMu.Unlock()
	conv, ok := m.overflow[userID]
	return conv, ok
}

// keep stores conv in the cache, or in overflow when the cache's admission
// policy drops it.
func (m *Manager) keep(userID string, conv *conversation) {
	m.contexts.SetWithTTL(userID, conv, m.entryCost, m.cfg.ContextTTL)
	m.contexts.Wait()
	if _, ok := m.contexts.Get(userID); ok {
		return
	}

	metrics.ContextCacheRejections.Inc()
	m.log.Warn("context cache rejected conversation, keeping it in overflow", zap.String("user_id", userID))

	m.overflowMu.Lock()
	defer m.overflowMu.Unlock()
	if len(m.overflow) >= m.cfg.CacheSize {
		for k := range m.overflow {
			delete(m.overflow, k)
			break
		}
	}
	m.overflow[userID] = conv
}

func (m *Manager) generate(ctx context.Context, conv *conversation, raw, prompt string) Reply {
	text, err := m.call(ctx, m.dialogue, prompt, conv.memory.History())
	if err == nil {
		text = nonEmpty(text)
		conv.memory.Append(Exchange{Input: raw, Output: text})
		return Reply{Text: text, Tier: TierAugmented}
	}
	m.log.Warn("dialogue generation failed, falling back to direct", zap.Error(err))

	text, err = m.call(ctx, m.direct, raw, nil)
	if err == nil {
		return Reply{Text: nonEmpty(text), Tier: TierDirect}
	}
	m.log.Error("direct generation failed", zap.Error(err))

	return Reply{Text: ApologyText, Tier: TierApology}
}

func (m *Manager) call(ctx context.Context, g Generator, prompt string, history []Exchange) (string, error) {
	if g == nil {
		return "", errNoGenerator
	}
	if m.cfg.GenerationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.cfg.GenerationTimeout)
		defer cancel()
	}
	return g.Generate(ctx, prompt, history)
}

// retrieve returns up to TopK texts related to text. Failures yield none.
func (m *Manager) retrieve(ctx context.Context, namespace, text string) []string {
	if m.embedder == nil || m.index == nil || m.cfg.TopK <= 0 {
		return nil
	}
	ctx, cancel := m.retrievalContext(ctx)
	defer cancel()

	vec, err := m.embedder.Embed(ctx, text)
	if err != nil {
		metrics.RetrievalFailuresTotal.WithLabelValues("embed").Inc()
		m.log.Warn("failed to embed message for retrieval", zap.Error(err))
		return nil
	}

	matches, err := m.index.Query(ctx, namespace, vec, m.cfg.TopK)
	if err != nil {
		metrics.RetrievalFailuresTotal.WithLabelValues("query").Inc()
		m.log.Warn("failed to query vector index", zap.Error(err))
		return nil
	}

	return lo.FilterMap(matches, func(match vectorindex.Match, _ int) (string, bool) {
		return match.Text, match.Text != ""
	})
}

// remember indexes a message for later retrieval, best effort.
func (m *Manager) remember(ctx context.Context, namespace string, msg *model.DirectMessage) {
	if m.embedder == nil || m.index == nil || msg.Content == "" {
		return
	}
	ctx, cancel := m.retrievalContext(ctx)
	defer cancel()

	vec, err := m.embedder.Embed(ctx, msg.Content)
	if err != nil {
		metrics.RetrievalFailuresTotal.WithLabelValues("embed").Inc()
		m.log.Warn("failed to embed message for indexing", zap.String("message_id", msg.ID), zap.Error(err))
		return
	}

	entry := vectorindex.Entry{ID: msg.ID, Text: msg.Content, Vector: vec}
	if err := m.index.Upsert(ctx, namespace, []vectorindex.Entry{entry}); err != nil {
		metrics.RetrievalFailuresTotal.WithLabelValues("index").Inc()
		m.log.Warn("failed to index message", zap.String("message_id", msg.ID), zap.Error(err))
	}
}

func (m *Manager) retrievalContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.cfg.RetrievalTimeout > 0 {
		return context.WithTimeout(ctx, m.cfg.RetrievalTimeout)
	}
	return context.WithCancel(ctx)
}

func nonEmpty(text string) string {
	if text == "" {
		return EmptyReplyText
	}
	return text
}
