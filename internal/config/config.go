package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Chat       ChatConfig       `yaml:"chat"`
	Completion CompletionConfig `yaml:"completion"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	RAG        RAGConfig        `yaml:"rag"`
	Session    SessionConfig    `yaml:"session"`
	Log        LogConfig        `yaml:"log"`
}

type ServerConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`
}

type ChatConfig struct {
	Host       string        `yaml:"host"`
	Port       int           `yaml:"port"`
	BackendURL string        `yaml:"backend_url"`
	Timeout    time.Duration `yaml:"timeout"`
}

type CompletionConfig struct {
	Provider     string        `yaml:"provider"`
	BaseURL      string        `yaml:"base_url"`
	Key          string        `yaml:"key"`
	Model        string        `yaml:"model"`
	MaxNewTokens int           `yaml:"max_new_tokens"`
	Temperature  float64       `yaml:"temperature"`
	Timeout      time.Duration `yaml:"timeout"`
}

type EmbeddingConfig struct {
	Provider  string        `yaml:"provider"`
	BaseURL   string        `yaml:"base_url"`
	Key       string        `yaml:"key"`
	Model     string        `yaml:"model"`
	BatchSize int           `yaml:"batch_size"`
	Timeout   time.Duration `yaml:"timeout"`
}

type RAGConfig struct {
	ChunkSize         int           `yaml:"chunk_size"`
	ChunkOverlap      int           `yaml:"chunk_overlap"`
	Strategy          string        `yaml:"strategy"`
	TopK              int           `yaml:"top_k"`
	ExtractionTimeout time.Duration `yaml:"extraction_timeout"`
}

type SessionConfig struct {
	TTL         time.Duration `yaml:"ttl"`
	MaxSessions int           `yaml:"max_sessions"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

const (
	ProviderHuggingFace = "huggingface"
	ProviderOpenAI      = "openai"
	ProviderOllama      = "ollama"

	StrategyWindow    = "window"
	StrategyRecursive = "recursive"

	defaultHFBaseURL      = "https://api-inference.huggingface.co"
	defaultInferenceModel = "meta-llama/Meta-Llama-3-8B-Instruct"
	defaultEmbeddingModel = "sentence-transformers/all-MiniLM-L6-v2"
	defaultBackendURL     = "http://backend:8000"
	defaultTemperature    = 0.7
	defaultChunkOverlap   = 100
)

// Default returns a Config populated with the built-in defaults.
func Default() *Config {
	cfg := newConfig()
	ApplyDefaults(cfg)
	return cfg
}

// newConfig presets the fields for which zero is a valid setting, so a file
// that sets them to zero is not overridden.
func newConfig() *Config {
	return &Config{
		Completion: CompletionConfig{Temperature: defaultTemperature},
		RAG:        RAGConfig{ChunkOverlap: defaultChunkOverlap},
	}
}

// ApplyDefaults fills zero-valued fields that have no meaningful zero.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Server.MaxUploadBytes == 0 {
		cfg.Server.MaxUploadBytes = 10 << 20
	}

	if cfg.Chat.Host == "" {
		cfg.Chat.Host = "0.0.0.0"
	}
	if cfg.Chat.Port == 0 {
		cfg.Chat.Port = 8501
	}
	if cfg.Chat.BackendURL == "" {
		cfg.Chat.BackendURL = defaultBackendURL
	}
	if cfg.Chat.Timeout == 0 {
		cfg.Chat.Timeout = 3 * time.Minute
	}

	if cfg.Completion.Provider == "" {
		cfg.Completion.Provider = ProviderHuggingFace
	}
	if cfg.Completion.BaseURL == "" && cfg.Completion.Provider == ProviderHuggingFace {
		cfg.Completion.BaseURL = defaultHFBaseURL
	}
	if cfg.Completion.Model == "" {
		cfg.Completion.Model = defaultInferenceModel
	}
	if cfg.Completion.MaxNewTokens == 0 {
		cfg.Completion.MaxNewTokens = 500
	}
	if cfg.Completion.Timeout == 0 {
		cfg.Completion.Timeout = 60 * time.Second
	}

	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = ProviderHuggingFace
	}
	if cfg.Embedding.BaseURL == "" && cfg.Embedding.Provider == ProviderHuggingFace {
		cfg.Embedding.BaseURL = defaultHFBaseURL
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = defaultEmbeddingModel
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = 32
	}
	if cfg.Embedding.Timeout == 0 {
		cfg.Embedding.Timeout = 30 * time.Second
	}

	if cfg.RAG.ChunkSize == 0 {
		cfg.RAG.ChunkSize = 1000
	}
	if cfg.RAG.Strategy == "" {
		cfg.RAG.Strategy = StrategyWindow
	}
	if cfg.RAG.TopK == 0 {
		cfg.RAG.TopK = 5
	}
	if cfg.RAG.ExtractionTimeout == 0 {
		cfg.RAG.ExtractionTimeout = 30 * time.Second
	}

	if cfg.Session.TTL == 0 {
		cfg.Session.TTL = 30 * time.Minute
	}
	if cfg.Session.MaxSessions == 0 {
		cfg.Session.MaxSessions = 256
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

// LoadConfig reads a YAML file and applies defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := newConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %v", path, err)
	}
	ApplyDefaults(cfg)
	return cfg, nil
}

// Load builds the runtime configuration: defaults, then the YAML file named
// by CONFIG_PATH, then .env, then the process environment.
func Load() (*Config, error) {
	// a missing .env is fine; real environment variables take precedence
	_ = godotenv.Load()

	cfg := newConfig()
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		loaded, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("HF_API_KEY"); v != "" {
		cfg.Completion.Key = v
	}
	if v := os.Getenv("EMBEDDING_API_KEY"); v != "" {
		cfg.Embedding.Key = v
	}
	if v := os.Getenv("BACKEND_URL"); v != "" {
		cfg.Chat.BackendURL = v
	}
	if v := os.Getenv("HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if err := envInt("PORT", &cfg.Server.Port); err != nil {
		return err
	}
	if err := envInt("CHAT_PORT", &cfg.Chat.Port); err != nil {
		return err
	}
	if cfg.Embedding.Key == "" {
		cfg.Embedding.Key = cfg.Completion.Key
	}
	return nil
}

func envInt(name string, dst *int) error {
	v := os.Getenv(name)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %v", name, v, err)
	}
	*dst = n
	return nil
}

// ValidateBackend checks everything the backend needs before it starts serving.
func (c *Config) ValidateBackend() error {
	var errs []error
	if c.Completion.Key == "" && c.Completion.Provider != ProviderOllama {
		errs = append(errs, errors.New("HF_API_KEY is not set"))
	}
	switch c.Completion.Provider {
	case ProviderHuggingFace, ProviderOpenAI:
	default:
		errs = append(errs, fmt.Errorf("unknown completion provider %q", c.Completion.Provider))
	}
	switch c.Embedding.Provider {
	case ProviderHuggingFace, ProviderOpenAI, ProviderOllama:
	default:
		errs = append(errs, fmt.Errorf("unknown embedding provider %q", c.Embedding.Provider))
	}
	switch c.RAG.Strategy {
	case StrategyWindow, StrategyRecursive:
	default:
		errs = append(errs, fmt.Errorf("unknown chunking strategy %q", c.RAG.Strategy))
	}
	if c.RAG.ChunkSize <= 0 {
		errs = append(errs, errors.New("chunk_size must be positive"))
	}
	if c.RAG.ChunkOverlap < 0 || c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		errs = append(errs, errors.New("chunk_overlap must be in [0, chunk_size)"))
	}
	if c.Completion.Temperature < 0 {
		errs = append(errs, errors.New("temperature must not be negative"))
	}
	if c.RAG.TopK <= 0 {
		errs = append(errs, errors.New("top_k must be positive"))
	}
	return errors.Join(errs...)
}

// ValidateChat checks the chat client settings.
func (c *Config) ValidateChat() error {
	if c.Chat.BackendURL == "" {
		return errors.New("BACKEND_URL is not set")
	}
	return nil
}

func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

func (c ChatConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
