// Package main is the entry point for the API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/capitalize-ai/realtime-chat/internal/assistant"
	"github.com/capitalize-ai/realtime-chat/internal/codec"
	"github.com/capitalize-ai/realtime-chat/internal/config"
	"github.com/capitalize-ai/realtime-chat/internal/handler"
	"github.com/capitalize-ai/realtime-chat/internal/llm"
	natsclient "github.com/capitalize-ai/realtime-chat/internal/nats"
	"github.com/capitalize-ai/realtime-chat/internal/presence"
	"github.com/capitalize-ai/realtime-chat/internal/realtime"
	"github.com/capitalize-ai/realtime-chat/internal/service"
	"github.com/capitalize-ai/realtime-chat/internal/store"
	"github.com/capitalize-ai/realtime-chat/internal/store/memstore"
	"github.com/capitalize-ai/realtime-chat/internal/store/mongostore"
	"github.com/capitalize-ai/realtime-chat/internal/typing"
	"github.com/capitalize-ai/realtime-chat/internal/vectorindex"
	"github.com/capitalize-ai/realtime-chat/pkg/logger"
	"github.com/capitalize-ai/realtime-chat/pkg/tracing"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	var log *logger.Logger
	var err error
	if cfg.Environment == "development" {
		log, err = logger.NewDevelopment()
	} else {
		log, err = logger.New(cfg.LogLevel)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting API server")

	// Initialize tracing if enabled
	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "realtime-chat", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	policy, err := codec.ParsePolicy(cfg.CodecDecryptPolicy)
	if err != nil {
		log.Fatal("invalid codec policy", zap.Error(err))
	}

	// Open the store
	st, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to open store", zap.Error(err))
	}
	defer st.Close(context.Background())

	// Connect to NATS; the journal is optional
	var (
		natsClient *natsclient.Client
		journal    service.Journal
	)
	if cfg.NATSURL != "" {
		natsClient, err = natsclient.Connect(natsclient.Config{
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
		}, log)
		if err != nil {
			log.Fatal("failed to connect to NATS", zap.Error(err))
		}
		defer natsClient.Close()

		streamManager := natsclient.NewStreamManager(natsClient)
		if err := streamManager.EnsureStream(ctx); err != nil {
			log.Fatal("failed to ensure stream", zap.Error(err))
		}
		journal = streamManager
	} else {
		log.Info("NATS_URL not set, message journal disabled")
	}

	// Initialize LLM clients
	dialogue, direct := newGenerators(cfg, log)
	embedder := newEmbedder(cfg, log)

	index, err := vectorindex.Open(cfg.VectorIndexPath)
	if err != nil {
		log.Fatal("failed to open vector index", zap.Error(err))
	}
	defer index.Close()

	// Real-time channel
	registry := presence.NewRegistry()
	hub := realtime.NewHub(realtime.HubConfig{
		SendBuffer:     cfg.WSSendBuffer,
		MaxMessageSize: cfg.WSMaxMessageSize,
	}, log)
	dispatcher := realtime.NewDispatcher(registry, hub, st)
	tracker := typing.NewTracker(dispatcher, log)

	// Initialize services
	manager, err := assistant.NewManager(assistant.Config{
		AssistantID:       cfg.AssistantID,
		HistoryLimit:      cfg.HistoryLimit,
		MemoryTurns:       cfg.MemoryTurns,
		TopK:              cfg.RetrievalTopK,
		CacheSize:         cfg.ContextCacheSize,
		ContextTTL:        cfg.ContextTTL,
		GenerationTimeout: cfg.GenerationTimeout,
		RetrievalTimeout:  cfg.RetrievalTimeout,
	}, assistant.Deps{
		Messages: st,
		Dialogue: dialogue,
		Direct:   direct,
		Embedder: embedder,
		Index:    index,
		Logger:   log,
	})
	if err != nil {
		log.Fatal("failed to create assistant", zap.Error(err))
	}
	defer manager.Close()

	userSvc := service.NewUserService(st, log)
	groupSvc := service.NewGroupService(service.GroupServiceDeps{
		Groups:      st,
		Messages:    st,
		Codec:       codec.New(store.KeyProvider{Users: st}, policy),
		Typing:      tracker,
		Broadcaster: dispatcher,
		Journal:     journal,
		Logger:      log,
	})
	directSvc := service.NewDirectService(service.DirectServiceDeps{
		Users:         st,
		Messages:      st,
		Conversations: manager,
		Broadcaster:   dispatcher,
		Journal:       journal,
		AssistantID:   cfg.AssistantID,
		Logger:        log,
	})
	realtime.NewRouter(hub, registry, tracker, groupSvc, log)

	// Create router
	r := handler.NewRouter(handler.Handlers{
		Health:   handler.NewHealthHandler(st, natsClient),
		Users:    handler.NewUserHandler(userSvc, log),
		Messages: handler.NewMessageHandler(directSvc, log),
		Groups:   handler.NewGroupHandler(groupSvc, log),
		Realtime: hub,
	}, handler.RouterOptions{
		AllowedOrigins:    cfg.AllowedOrigins,
		RateLimitRequests: cfg.RateLimitRequests,
		RateLimitWindow:   cfg.RateLimitWindow,
	}, log)

	// Create HTTP server. WriteTimeout is left to the handlers because
	// WebSocket connections outlive any fixed deadline.
	server := &http.Server{
		Addr:        ":" + cfg.ServerPort,
		Handler:     r,
		ReadTimeout: cfg.ServerReadTimeout,
		IdleTimeout: 120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	hub.Shutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}

func openStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (store.Store, error) {
	switch cfg.StoreDriver {
	case "memory":
		log.Warn("using in-memory store, data will not survive a restart")
		return memstore.New(), nil
	case "mongo":
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		return mongostore.Connect(connectCtx, cfg.MongoURI, cfg.MongoDatabase, log)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

// newGenerators builds the dialogue and direct generators on the configured
// provider. Missing credentials leave them nil, which the assistant answers
// with its apology reply.
func newGenerators(cfg *config.Config, log *logger.Logger) (assistant.Generator, assistant.Generator) {
	provider := llm.Provider(cfg.DefaultLLM)
	apiKey := cfg.AnthropicAPIKey
	if provider == llm.ProviderOpenAI {
		apiKey = cfg.OpenAIAPIKey
	}
	if apiKey == "" {
		log.Warn("no API key for LLM provider, assistant replies disabled", zap.String("provider", cfg.DefaultLLM))
		return nil, nil
	}

	client, err := llm.NewClient(provider, apiKey)
	if err != nil {
		log.Warn("failed to create LLM client, assistant replies disabled", zap.Error(err))
		return nil, nil
	}

	dialogue := assistant.NewLLMGenerator(client, cfg.ChatModel, assistant.Persona(cfg.AssistantName))
	direct := assistant.NewLLMGenerator(client, cfg.ChatModel, "")
	return dialogue, direct
}

func newEmbedder(cfg *config.Config, log *logger.Logger) assistant.Embedder {
	if cfg.OpenAIAPIKey != "" {
		client, err := llm.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.EmbeddingModel)
		if err == nil {
			return client
		}
		log.Warn("failed to create OpenAI embedder, using hashing embedder", zap.Error(err))
	}
	return llm.NewHashingEmbedder(256)
}
