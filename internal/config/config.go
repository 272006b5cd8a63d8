package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	EmbeddingBackendHashing = "hashing"
	EmbeddingBackendOllama  = "ollama"

	GenerationBackendOllama  = "ollama"
	GenerationBackendOpenAI  = "openai"
	GenerationBackendGateway = "gateway"
)

type Config struct {
	APIPort         string        `yaml:"api_port"`
	LogLevel        string        `yaml:"log_level"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
	TopK         int `yaml:"top_k"`

	EmbeddingBackend    string        `yaml:"embedding_backend"`
	EmbeddingDimensions int           `yaml:"embedding_dimensions"`
	EmbeddingBatchSize  int           `yaml:"embedding_batch_size"`
	EmbeddingBatchPause time.Duration `yaml:"embedding_batch_pause"`

	GenerationBackend string        `yaml:"generation_backend"`
	GenerateURL       string        `yaml:"generate_url"`
	GenerateTimeout   time.Duration `yaml:"generate_timeout"`

	OllamaURL        string `yaml:"ollama_url"`
	OllamaGenModel   string `yaml:"ollama_gen_model"`
	OllamaEmbedModel string `yaml:"ollama_embed_model"`

	OpenAIAPIKey  string `yaml:"openai_api_key"`
	OpenAIBaseURL string `yaml:"openai_base_url"`
	OpenAIModel   string `yaml:"openai_model"`

	LibraryPath string `yaml:"library_path"`

	UpstreamMaxAttempts int           `yaml:"upstream_max_attempts"`
	BreakerOpenTimeout  time.Duration `yaml:"breaker_open_timeout"`

	RateLimitRPS   float64 `yaml:"rate_limit_rps"`
	RateLimitBurst int     `yaml:"rate_limit_burst"`
	MaxInFlight    int     `yaml:"max_in_flight"`
	MaxConnections int     `yaml:"max_connections"`
}

func defaults() Config {
	return Config{
		APIPort:         "8080",
		LogLevel:        "info",
		ShutdownTimeout: 10 * time.Second,

		ChunkSize:    1000,
		ChunkOverlap: 200,
		TopK:         3,

		EmbeddingBackend:    EmbeddingBackendHashing,
		EmbeddingDimensions: 384,
		EmbeddingBatchSize:  5,
		EmbeddingBatchPause: 10 * time.Millisecond,

		GenerationBackend: GenerationBackendOllama,
		GenerateURL:       "http://localhost:5000",
		GenerateTimeout:   60 * time.Second,

		OllamaURL:        "http://localhost:11434",
		OllamaGenModel:   "llama3.1:8b",
		OllamaEmbedModel: "all-minilm",

		OpenAIBaseURL: "https://api.openai.com/v1",
		OpenAIModel:   "gpt-4o-mini",

		LibraryPath: "./data/library",

		UpstreamMaxAttempts: 3,
		BreakerOpenTimeout:  30 * time.Second,

		RateLimitRPS:   20,
		RateLimitBurst: 40,
		MaxInFlight:    32,
		MaxConnections: 256,
	}
}

// Load builds the configuration from defaults, the optional YAML file named
// by CONFIG_FILE and finally environment variables, which win.
func Load() (Config, error) {
	cfg := defaults()
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := cfg.overlayFile(path); err != nil {
			return Config{}, err
		}
	}
	cfg.overlayEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) overlayFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) overlayEnv() {
	c.APIPort = mustEnv("API_PORT", c.APIPort)
	c.LogLevel = mustEnv("LOG_LEVEL", c.LogLevel)
	c.ShutdownTimeout = mustEnvDuration("SHUTDOWN_TIMEOUT", c.ShutdownTimeout)

	c.ChunkSize = mustEnvInt("CHUNK_SIZE", c.ChunkSize)
	c.ChunkOverlap = mustEnvInt("CHUNK_OVERLAP", c.ChunkOverlap)
	c.TopK = mustEnvInt("TOP_K", c.TopK)

	c.EmbeddingBackend = strings.ToLower(mustEnv("EMBEDDING_BACKEND", c.EmbeddingBackend))
	c.EmbeddingDimensions = mustEnvInt("EMBEDDING_DIMENSIONS", c.EmbeddingDimensions)
	c.EmbeddingBatchSize = mustEnvInt("EMBEDDING_BATCH_SIZE", c.EmbeddingBatchSize)
	c.EmbeddingBatchPause = mustEnvDuration("EMBEDDING_BATCH_PAUSE", c.EmbeddingBatchPause)

	c.GenerationBackend = strings.ToLower(mustEnv("GENERATION_BACKEND", c.GenerationBackend))
	c.GenerateURL = mustEnv("GENERATE_URL", c.GenerateURL)
	c.GenerateTimeout = mustEnvDuration("GENERATE_TIMEOUT", c.GenerateTimeout)

	c.OllamaURL = mustEnv("OLLAMA_URL", c.OllamaURL)
	c.OllamaGenModel = mustEnv("OLLAMA_GEN_MODEL", c.OllamaGenModel)
	c.OllamaEmbedModel = mustEnv("OLLAMA_EMBED_MODEL", c.OllamaEmbedModel)

	c.OpenAIAPIKey = mustEnv("OPENAI_API_KEY", c.OpenAIAPIKey)
	c.OpenAIBaseURL = mustEnv("OPENAI_BASE_URL", c.OpenAIBaseURL)
	c.OpenAIModel = mustEnv("OPENAI_MODEL", c.OpenAIModel)

	c.LibraryPath = mustEnv("LIBRARY_PATH", c.LibraryPath)

	c.UpstreamMaxAttempts = mustEnvInt("UPSTREAM_MAX_ATTEMPTS", c.UpstreamMaxAttempts)
	c.BreakerOpenTimeout = mustEnvDuration("BREAKER_OPEN_TIMEOUT", c.BreakerOpenTimeout)

	c.RateLimitRPS = mustEnvFloat("RATE_LIMIT_RPS", c.RateLimitRPS)
	c.RateLimitBurst = mustEnvInt("RATE_LIMIT_BURST", c.RateLimitBurst)
	c.MaxInFlight = mustEnvInt("MAX_IN_FLIGHT", c.MaxInFlight)
	c.MaxConnections = mustEnvInt("MAX_CONNECTIONS", c.MaxConnections)
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs []error
	if c.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("chunk_size must be positive, got %d", c.ChunkSize))
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		errs = append(errs, fmt.Errorf("chunk_overlap must be in [0, chunk_size), got %d", c.ChunkOverlap))
	}
	if c.TopK <= 0 {
		errs = append(errs, fmt.Errorf("top_k must be positive, got %d", c.TopK))
	}

	switch c.EmbeddingBackend {
	case EmbeddingBackendHashing:
		if c.EmbeddingDimensions <= 0 {
			errs = append(errs, fmt.Errorf("embedding_dimensions must be positive, got %d", c.EmbeddingDimensions))
		}
	case EmbeddingBackendOllama:
		if c.OllamaEmbedModel == "" {
			errs = append(errs, errors.New("ollama_embed_model is required for the ollama embedding backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("embedding_backend must be hashing or ollama, got %q", c.EmbeddingBackend))
	}
	if c.EmbeddingBatchSize <= 0 {
		errs = append(errs, fmt.Errorf("embedding_batch_size must be positive, got %d", c.EmbeddingBatchSize))
	}

	switch c.GenerationBackend {
	case GenerationBackendOllama:
		if c.OllamaURL == "" || c.OllamaGenModel == "" {
			errs = append(errs, errors.New("ollama_url and ollama_gen_model are required for the ollama generation backend"))
		}
	case GenerationBackendOpenAI:
		if c.OpenAIAPIKey == "" {
			errs = append(errs, errors.New("openai_api_key is required for the openai generation backend"))
		}
	case GenerationBackendGateway:
		if c.GenerateURL == "" {
			errs = append(errs, errors.New("generate_url is required for the gateway generation backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("generation_backend must be ollama, openai or gateway, got %q", c.GenerationBackend))
	}

	if c.RateLimitRPS < 0 || c.MaxInFlight < 0 || c.MaxConnections < 0 {
		errs = append(errs, errors.New("traffic limits must not be negative"))
	}
	return errors.Join(errs...)
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func mustEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
