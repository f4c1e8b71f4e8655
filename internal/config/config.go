// Package config provides environment configuration for the API server.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	AllowedOrigins     []string

	// Store settings
	StoreDriver   string
	MongoURI      string
	MongoDatabase string

	// NATS settings; an empty URL disables the journal
	NATSURL      string
	NATSCAFile   string
	NATSCertFile string
	NATSKeyFile  string
	NATSToken    string

	// LLM settings
	AnthropicAPIKey string
	OpenAIAPIKey    string
	DefaultLLM      string
	ChatModel       string
	EmbeddingModel  string

	// Assistant settings
	AssistantID        string
	AssistantName      string
	HistoryLimit       int
	MemoryTurns        int
	RetrievalTopK      int
	ContextCacheSize   int
	ContextTTL         time.Duration
	GenerationTimeout  time.Duration
	RetrievalTimeout   time.Duration
	VectorIndexPath    string
	CodecDecryptPolicy string

	// Real-time channel
	WSSendBuffer     int
	WSMaxMessageSize int64

	// Rate limiting
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Logging
	Environment string
	LogLevel    string

	// Tracing
	TracingEndpoint string
	TracingEnabled  bool
}

// Load reads configuration from environment variables. A .env file in the
// working directory is loaded first when present; real env vars win.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		// Server
		ServerPort:         getEnv("PORT", "6000"),
		ServerReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
		ServerWriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 120*time.Second),
		AllowedOrigins:     getListEnv("ALLOWED_ORIGINS", []string{"https://*", "http://*"}),

		// Store
		StoreDriver:   getEnv("STORE_DRIVER", "mongo"),
		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGO_DATABASE", "chat"),

		// NATS
		NATSURL:      getEnv("NATS_URL", ""),
		NATSCAFile:   getEnv("NATS_CA_FILE", ""),
		NATSCertFile: getEnv("NATS_CERT_FILE", ""),
		NATSKeyFile:  getEnv("NATS_KEY_FILE", ""),
		NATSToken:    getEnv("NATS_TOKEN", ""),

		// LLM
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		DefaultLLM:      getEnv("DEFAULT_LLM", "anthropic"),
		ChatModel:       getEnv("CHAT_MODEL", ""),
		EmbeddingModel:  getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),

		// Assistant
		AssistantID:        getEnv("ASSISTANT_ID", "dnya"),
		AssistantName:      getEnv("ASSISTANT_NAME", "Dyna"),
		HistoryLimit:       getIntEnv("ASSISTANT_HISTORY_LIMIT", 20),
		MemoryTurns:        getIntEnv("ASSISTANT_MEMORY_TURNS", 50),
		RetrievalTopK:      getIntEnv("ASSISTANT_RETRIEVAL_TOP_K", 3),
		ContextCacheSize:   getIntEnv("ASSISTANT_CONTEXT_CACHE_SIZE", 10000),
		ContextTTL:         getDurationEnv("ASSISTANT_CONTEXT_TTL", 2*time.Hour),
		GenerationTimeout:  getDurationEnv("GENERATION_TIMEOUT", 60*time.Second),
		RetrievalTimeout:   getDurationEnv("RETRIEVAL_TIMEOUT", 10*time.Second),
		VectorIndexPath:    getEnv("VECTOR_INDEX_PATH", ""),
		CodecDecryptPolicy: getEnv("CODEC_DECRYPT_POLICY", "closed"),

		// Real-time channel
		WSSendBuffer:     getIntEnv("WS_SEND_BUFFER", 256),
		WSMaxMessageSize: int64(getIntEnv("WS_MAX_MESSAGE_SIZE", 64*1024)),

		// Rate limiting
		RateLimitRequests: getIntEnv("RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow:   getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),

		// Logging
		Environment: getEnv("ENV", "production"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		// Tracing
		TracingEndpoint: getEnv("TRACING_ENDPOINT", "localhost:4318"),
		TracingEnabled:  getBoolEnv("TRACING_ENABLED", false),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
