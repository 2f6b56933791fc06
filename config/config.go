// Package config loads advisor settings from defaults, an optional YAML file
// and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var (
	// ErrMissingLLMKey is returned by Validate when no LLM API key is configured.
	ErrMissingLLMKey = errors.New("llm api key is not set")
	// ErrInvalidConfig wraps every other validation failure.
	ErrInvalidConfig = errors.New("invalid config")
)

// EnvPrefix prefixes every environment override, e.g. MARKETADVISOR_LLM_MODEL.
const EnvPrefix = "MARKETADVISOR"

type LLMConfig struct {
	Provider          string        `mapstructure:"provider"`
	Model             string        `mapstructure:"model"`
	BaseURL           string        `mapstructure:"base_url"`
	APIKey            string        `mapstructure:"api_key"`
	Temperature       float64       `mapstructure:"temperature"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	Burst             int           `mapstructure:"burst"`
	MaxRetries        int           `mapstructure:"max_retries"`
	BackoffBase       time.Duration `mapstructure:"backoff_base"`
	BackoffMax        time.Duration `mapstructure:"backoff_max"`
}

type EmbeddingConfig struct {
	// Model selects a remote embedding model. Empty uses the local hashing embedder.
	Model     string `mapstructure:"model"`
	APIKey    string `mapstructure:"api_key"`
	BaseURL   string `mapstructure:"base_url"`
	Dimension int    `mapstructure:"dimension"`
}

type SearchConfig struct {
	Provider     string `mapstructure:"provider"`
	TavilyAPIKey string `mapstructure:"tavily_api_key"`
	BraveAPIKey  string `mapstructure:"brave_api_key"`
	MonthlyLimit int    `mapstructure:"monthly_limit"`
	MaxResults   int    `mapstructure:"max_results"`
	SearchDepth  string `mapstructure:"search_depth"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type MemoryConfig struct {
	Backend      string        `mapstructure:"backend"`
	DSN          string        `mapstructure:"dsn"`
	HistoryLimit int           `mapstructure:"history_limit"`
	TTL          time.Duration `mapstructure:"ttl"`
}

type GraphConfig struct {
	URL string `mapstructure:"url"`
}

type WorkflowConfig struct {
	ChunkSize   int           `mapstructure:"chunk_size"`
	ChunkDelay  time.Duration `mapstructure:"chunk_delay"`
	ToolTimeout time.Duration `mapstructure:"tool_timeout"`
	TopK        int           `mapstructure:"top_k"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
	Addr      string `mapstructure:"addr"`
}

// Config is the complete advisor configuration.
type Config struct {
	LLM       LLMConfig       `mapstructure:"llm"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Search    SearchConfig    `mapstructure:"search"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Memory    MemoryConfig    `mapstructure:"memory"`
	Graph     GraphConfig     `mapstructure:"graph"`
	Workflow  WorkflowConfig  `mapstructure:"workflow"`
	Log       LogConfig       `mapstructure:"log"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("llm.provider", "groq")
	v.SetDefault("llm.model", "llama-3.1-8b-instant")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.temperature", 0.3)
	v.SetDefault("llm.requests_per_minute", 5000)
	v.SetDefault("llm.burst", 10)
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("llm.backoff_base", time.Second)
	v.SetDefault("llm.backoff_max", 60*time.Second)

	v.SetDefault("embedding.model", "")
	v.SetDefault("embedding.api_key", "")
	v.SetDefault("embedding.base_url", "")
	v.SetDefault("embedding.dimension", 256)

	v.SetDefault("search.provider", "tavily")
	v.SetDefault("search.tavily_api_key", "")
	v.SetDefault("search.brave_api_key", "")
	v.SetDefault("search.monthly_limit", 1000)
	v.SetDefault("search.max_results", 5)
	v.SetDefault("search.search_depth", "basic")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "marketadvisor:")

	v.SetDefault("memory.backend", "memory")
	v.SetDefault("memory.dsn", "")
	v.SetDefault("memory.history_limit", 20)
	v.SetDefault("memory.ttl", 0)

	v.SetDefault("graph.url", "memory://")

	v.SetDefault("workflow.chunk_size", 10)
	v.SetDefault("workflow.chunk_delay", 10*time.Millisecond)
	v.SetDefault("workflow.tool_timeout", 30*time.Second)
	v.SetDefault("workflow.top_k", 5)

	v.SetDefault("log.level", "info")

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.namespace", "marketadvisor")
	v.SetDefault("metrics.addr", ":9090")
}

// Load reads the configuration. path names an optional YAML file; when empty,
// MARKETADVISOR_CONFIG is consulted. Environment variables override the file.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Conventional unprefixed keys, checked after the prefixed form.
	_ = v.BindEnv("llm.api_key", EnvPrefix+"_LLM_API_KEY", "GROQ_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("embedding.api_key", EnvPrefix+"_EMBEDDING_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("search.tavily_api_key", EnvPrefix+"_SEARCH_TAVILY_API_KEY", "TAVILY_API_KEY")
	_ = v.BindEnv("search.brave_api_key", EnvPrefix+"_SEARCH_BRAVE_API_KEY", "BRAVE_API_KEY")

	if path == "" {
		path = os.Getenv(EnvPrefix + "_CONFIG")
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}

// Validate checks provider names, keys and ranges.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "groq", "openai":
	default:
		return fmt.Errorf("%w: unknown llm provider %q", ErrInvalidConfig, c.LLM.Provider)
	}
	if c.LLM.APIKey == "" {
		return ErrMissingLLMKey
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("%w: llm.temperature %.2f out of range [0, 2]", ErrInvalidConfig, c.LLM.Temperature)
	}
	if c.LLM.MaxRetries < 0 {
		return fmt.Errorf("%w: llm.max_retries must not be negative", ErrInvalidConfig)
	}

	switch c.Search.Provider {
	case "tavily", "brave", "none":
	default:
		return fmt.Errorf("%w: unknown search provider %q", ErrInvalidConfig, c.Search.Provider)
	}
	if c.Search.MaxResults < 1 || c.Search.MaxResults > 20 {
		return fmt.Errorf("%w: search.max_results must be in [1, 20]", ErrInvalidConfig)
	}

	switch c.Memory.Backend {
	case "memory":
	case "redis":
		if c.Redis.Addr == "" {
			return fmt.Errorf("%w: memory.backend redis requires redis.addr", ErrInvalidConfig)
		}
	case "postgres", "sqlite":
		if c.Memory.DSN == "" {
			return fmt.Errorf("%w: memory.backend %s requires memory.dsn", ErrInvalidConfig, c.Memory.Backend)
		}
	default:
		return fmt.Errorf("%w: unknown memory backend %q", ErrInvalidConfig, c.Memory.Backend)
	}

	if !strings.HasPrefix(c.Graph.URL, "memory://") && !strings.HasPrefix(c.Graph.URL, "falkordb://") {
		return fmt.Errorf("%w: graph.url must start with memory:// or falkordb://", ErrInvalidConfig)
	}
	if c.Workflow.ChunkSize < 1 {
		return fmt.Errorf("%w: workflow.chunk_size must be positive", ErrInvalidConfig)
	}
	if c.Workflow.TopK < 1 {
		return fmt.Errorf("%w: workflow.top_k must be positive", ErrInvalidConfig)
	}
	return nil
}
