// Package config provides configuration loading for trulybot.
//
// Configuration is loaded from an optional YAML file and overridden by
// environment variables. All settings have working defaults so a bare
// binary starts against local services.
package config

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig indicates a configuration value that fails validation.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds the complete trulybot configuration.
type Config struct {
	Server        ServerConfig        `koanf:"server"`
	Database      DatabaseConfig      `koanf:"database"`
	VectorStore   VectorStoreConfig   `koanf:"vectorstore"`
	Qdrant        QdrantConfig        `koanf:"qdrant"`
	Embeddings    EmbeddingsConfig    `koanf:"embeddings"`
	Completion    CompletionConfig    `koanf:"completion"`
	Retrieval     RetrievalConfig     `koanf:"retrieval"`
	RateLimit     RateLimitConfig     `koanf:"ratelimit"`
	Leads         LeadsConfig         `koanf:"leads"`
	Widget        WidgetConfig        `koanf:"widget"`
	Observability ObservabilityConfig `koanf:"observability"`
	Logging       LoggingConfig       `koanf:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"http_port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// DatabaseConfig holds the Postgres connection settings.
type DatabaseConfig struct {
	DSN Secret `koanf:"dsn"`
}

// VectorStoreConfig selects and configures the similarity-search backend.
type VectorStoreConfig struct {
	// Provider is "chromem" (embedded, default) or "qdrant" (external).
	Provider string        `koanf:"provider"`
	Chromem  ChromemConfig `koanf:"chromem"`
}

// ChromemConfig configures the embedded chromem-go store.
type ChromemConfig struct {
	Path              string `koanf:"path"`
	Compress          bool   `koanf:"compress"`
	DefaultCollection string `koanf:"default_collection"`
	VectorSize        int    `koanf:"vector_size"`
}

// QdrantConfig configures the external Qdrant store.
type QdrantConfig struct {
	Host           string `koanf:"host"`
	Port           int    `koanf:"port"`
	CollectionName string `koanf:"collection_name"`
	VectorSize     int    `koanf:"vector_size"`
	UseTLS         bool   `koanf:"use_tls"`
}

// EmbeddingsConfig configures the embedding provider.
type EmbeddingsConfig struct {
	BaseURL string        `koanf:"base_url"`
	Model   string        `koanf:"model"`
	APIKey  Secret        `koanf:"api_key"`
	Timeout time.Duration `koanf:"timeout"`
}

// CompletionConfig configures the chat-completion provider.
type CompletionConfig struct {
	BaseURL     string        `koanf:"base_url"`
	Model       string        `koanf:"model"`
	APIKey      Secret        `koanf:"api_key"`
	Timeout     time.Duration `koanf:"timeout"`
	MaxTokens   int           `koanf:"max_tokens"`
	Temperature float64       `koanf:"temperature"`
}

// RetrievalConfig tunes the retrieval orchestrator.
type RetrievalConfig struct {
	// MatchThreshold is the minimum similarity score for a chunk to count
	// as relevant. Below it, the request falls back to the fact sheet.
	MatchThreshold float32 `koanf:"match_threshold"`

	// TopK is the number of chunks requested from the similarity search.
	TopK int `koanf:"top_k"`
}

// RateLimitConfig holds the layered chat rate limits.
type RateLimitConfig struct {
	UserWindow    time.Duration `koanf:"user_window"`
	UserMax       int           `koanf:"user_max"`
	UserBotWindow time.Duration `koanf:"user_bot_window"`
	UserBotMax    int           `koanf:"user_bot_max"`
	IPWindow      time.Duration `koanf:"ip_window"`
	IPMax         int           `koanf:"ip_max"`
	BurstWindow   time.Duration `koanf:"burst_window"`
	BurstMax      int           `koanf:"burst_max"`
	SweepInterval time.Duration `koanf:"sweep_interval"`
}

// LeadsConfig tunes lead capture.
type LeadsConfig struct {
	// QueueSize bounds the background persistence queue.
	QueueSize int `koanf:"queue_size"`

	// TranscriptMaxChars bounds the stored conversation transcript.
	TranscriptMaxChars int `koanf:"transcript_max_chars"`

	// TranscriptMaxTurns bounds the number of retained turns.
	TranscriptMaxTurns int `koanf:"transcript_max_turns"`
}

// WidgetConfig configures the embedded widget surface.
type WidgetConfig struct {
	// SigningKey signs widget origin tokens.
	SigningKey Secret `koanf:"signing_key"`

	// CacheSize bounds the in-process widget-config LRU.
	CacheSize int `koanf:"cache_size"`

	// CacheTTL bounds how long a cached widget config can lag a tier
	// or styling change.
	CacheTTL time.Duration `koanf:"cache_ttl"`
}

// ObservabilityConfig holds OpenTelemetry configuration.
type ObservabilityConfig struct {
	EnableTelemetry bool   `koanf:"enable_telemetry"`
	ServiceName     string `koanf:"service_name"`
	Endpoint        string `koanf:"endpoint"`
	Insecure        bool   `koanf:"insecure"`
}

// LoggingConfig holds logger configuration.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server port %d out of range", ErrInvalidConfig, c.Server.Port)
	}
	switch c.VectorStore.Provider {
	case "chromem", "qdrant":
	default:
		return fmt.Errorf("%w: unsupported vectorstore provider %q", ErrInvalidConfig, c.VectorStore.Provider)
	}
	if c.Retrieval.MatchThreshold < 0 || c.Retrieval.MatchThreshold > 1 {
		return fmt.Errorf("%w: match threshold %.2f out of [0,1]", ErrInvalidConfig, c.Retrieval.MatchThreshold)
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("%w: top_k must be positive", ErrInvalidConfig)
	}
	if c.RateLimit.UserMax <= 0 || c.RateLimit.IPMax <= 0 || c.RateLimit.BurstMax <= 0 || c.RateLimit.UserBotMax <= 0 {
		return fmt.Errorf("%w: rate limit maxima must be positive", ErrInvalidConfig)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("%w: log format %q (want json or console)", ErrInvalidConfig, c.Logging.Format)
	}
	return nil
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8090
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}

	if cfg.VectorStore.Provider == "" {
		cfg.VectorStore.Provider = "chromem"
	}
	if cfg.VectorStore.Chromem.Path == "" {
		cfg.VectorStore.Chromem.Path = "~/.config/trulybot/vectorstore"
	}
	if cfg.VectorStore.Chromem.DefaultCollection == "" {
		cfg.VectorStore.Chromem.DefaultCollection = "workspace_chunks"
	}
	if cfg.VectorStore.Chromem.VectorSize == 0 {
		cfg.VectorStore.Chromem.VectorSize = 1536
	}

	if cfg.Qdrant.Host == "" {
		cfg.Qdrant.Host = "localhost"
	}
	if cfg.Qdrant.Port == 0 {
		cfg.Qdrant.Port = 6334
	}
	if cfg.Qdrant.CollectionName == "" {
		cfg.Qdrant.CollectionName = "workspace_chunks"
	}
	if cfg.Qdrant.VectorSize == 0 {
		cfg.Qdrant.VectorSize = 1536
	}

	if cfg.Embeddings.BaseURL == "" {
		cfg.Embeddings.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Embeddings.Model == "" {
		cfg.Embeddings.Model = "text-embedding-3-small"
	}
	if cfg.Embeddings.Timeout == 0 {
		cfg.Embeddings.Timeout = 5 * time.Second
	}

	if cfg.Completion.BaseURL == "" {
		cfg.Completion.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Completion.Model == "" {
		cfg.Completion.Model = "gpt-4o-mini"
	}
	if cfg.Completion.Timeout == 0 {
		cfg.Completion.Timeout = 10 * time.Second
	}
	if cfg.Completion.MaxTokens == 0 {
		cfg.Completion.MaxTokens = 512
	}
	if cfg.Completion.Temperature == 0 {
		cfg.Completion.Temperature = 0.2
	}

	if cfg.Retrieval.MatchThreshold == 0 {
		cfg.Retrieval.MatchThreshold = 0.7
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 3
	}

	if cfg.RateLimit.UserWindow == 0 {
		cfg.RateLimit.UserWindow = time.Minute
	}
	if cfg.RateLimit.UserMax == 0 {
		cfg.RateLimit.UserMax = 30
	}
	if cfg.RateLimit.UserBotWindow == 0 {
		cfg.RateLimit.UserBotWindow = time.Minute
	}
	if cfg.RateLimit.UserBotMax == 0 {
		cfg.RateLimit.UserBotMax = 20
	}
	if cfg.RateLimit.IPWindow == 0 {
		cfg.RateLimit.IPWindow = time.Minute
	}
	if cfg.RateLimit.IPMax == 0 {
		cfg.RateLimit.IPMax = 10
	}
	if cfg.RateLimit.BurstWindow == 0 {
		cfg.RateLimit.BurstWindow = 10 * time.Second
	}
	if cfg.RateLimit.BurstMax == 0 {
		cfg.RateLimit.BurstMax = 5
	}
	if cfg.RateLimit.SweepInterval == 0 {
		cfg.RateLimit.SweepInterval = time.Minute
	}

	if cfg.Leads.QueueSize == 0 {
		cfg.Leads.QueueSize = 256
	}
	if cfg.Leads.TranscriptMaxChars == 0 {
		cfg.Leads.TranscriptMaxChars = 4000
	}
	if cfg.Leads.TranscriptMaxTurns == 0 {
		cfg.Leads.TranscriptMaxTurns = 12
	}

	if cfg.Widget.CacheSize == 0 {
		cfg.Widget.CacheSize = 512
	}
	if cfg.Widget.CacheTTL == 0 {
		cfg.Widget.CacheTTL = time.Minute
	}

	if cfg.Observability.ServiceName == "" {
		cfg.Observability.ServiceName = "trulybot"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}
