// Package config loads and validates Wayfarer configuration.
//
// Configuration is applied in order of increasing precedence:
//  1. Hardcoded defaults
//  2. YAML config file (wayfarer.yaml in the working directory, or the
//     path given explicitly)
//  3. Environment variables (WAYFARER_*)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	wferrors "github.com/Aman-CERP/wayfarer/internal/errors"
)

// Config represents the complete Wayfarer configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Logging    LoggingConfig    `yaml:"logging"`
	Corpus     CorpusConfig     `yaml:"corpus"`
	Search     SearchConfig     `yaml:"search"`
	Embeddings EmbeddingsConfig `yaml:"embeddings"`
	LLM        LLMConfig        `yaml:"llm"`
	Answer     AnswerConfig     `yaml:"answer"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	// Addr is the listen address (default: ":8080").
	Addr string `yaml:"addr"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	// FilePath is the log file path. Empty means stderr only.
	FilePath string `yaml:"file_path"`
}

// CorpusConfig configures the knowledge base.
type CorpusConfig struct {
	// Path is the YAML corpus file loaded at seed time.
	Path string `yaml:"path"`
	// DataDir holds the SQLite metadata store and the seed lock file.
	DataDir string `yaml:"data_dir"`
	// Watch enables automatic re-seeding when the corpus file changes.
	Watch bool `yaml:"watch"`
	// WatchDebounce coalesces rapid file events (default: "500ms").
	WatchDebounce string `yaml:"watch_debounce"`
}

// SearchConfig configures hybrid retrieval.
type SearchConfig struct {
	// FusionAlpha is the semantic branch weight in rank fusion (0.0-1.0).
	// The lexical branch receives 1-alpha.
	FusionAlpha float64 `yaml:"fusion_alpha"`

	// RRFConstant is the rank fusion damping parameter (k).
	// Default: 60. Higher values reduce the impact of rank differences.
	RRFConstant int `yaml:"rrf_constant"`

	// DefaultTopK is the result count when the caller does not specify one.
	DefaultTopK int `yaml:"default_top_k"`

	// OversampleFactor multiplies top_k for each branch before fusion.
	OversampleFactor int `yaml:"oversample_factor"`

	// RetrievalTimeoutMS bounds each retrieval branch in milliseconds.
	RetrievalTimeoutMS int `yaml:"retrieval_timeout_ms"`
}

// EmbeddingsConfig configures the embedding provider.
type EmbeddingsConfig struct {
	// Provider selects the embedder: "ollama", "openai", "static",
	// or empty for auto-detection (ollama with static fallback).
	Provider   string `yaml:"provider"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	BatchSize  int    `yaml:"batch_size"`
	CacheSize  int    `yaml:"cache_size"`

	// OllamaHost is the Ollama API endpoint (default: http://localhost:11434).
	OllamaHost string `yaml:"ollama_host"`

	// BaseURL and APIKey configure the openai-compatible provider.
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
}

// LLMConfig configures the answer generation model.
type LLMConfig struct {
	// Provider selects the chat model backend: "ollama" or "openai".
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`

	OllamaHost string `yaml:"ollama_host"`
	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key"`
}

// AnswerConfig configures answer assembly.
type AnswerConfig struct {
	// ContextBudgetChars caps the grounding context passed to the model.
	ContextBudgetChars int `yaml:"context_budget_chars"`
}

// NewConfig creates a Config with defaults.
func NewConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: ":8080",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Corpus: CorpusConfig{
			Path:          "data/corpus.yaml",
			DataDir:       defaultDataDir(),
			Watch:         false,
			WatchDebounce: "500ms",
		},
		Search: SearchConfig{
			FusionAlpha:        0.7,
			RRFConstant:        60,
			DefaultTopK:        5,
			OversampleFactor:   3,
			RetrievalTimeoutMS: 300,
		},
		Embeddings: EmbeddingsConfig{
			Provider:   "", // Empty triggers auto-detection: Ollama, then static
			Model:      "nomic-embed-text",
			Dimensions: 0, // Auto-detect from embedder
			BatchSize:  32,
			CacheSize:  1000,
			OllamaHost: "",
		},
		LLM: LLMConfig{
			Provider:    "ollama",
			Model:       "llama3.1:8b",
			Temperature: 0.2,
		},
		Answer: AnswerConfig{
			ContextBudgetChars: 6000,
		},
	}
}

// defaultDataDir returns the default data directory.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".wayfarer")
	}
	return filepath.Join(home, ".wayfarer")
}

// Load loads configuration from the given file path. An empty path tries
// wayfarer.yaml and wayfarer.yml in the working directory; neither
// existing is fine and yields defaults. Environment variables apply last.
func Load(path string) (*Config, error) {
	cfg := NewConfig()

	if path != "" {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	} else {
		for _, candidate := range []string{"wayfarer.yaml", "wayfarer.yml"} {
			if fileExists(candidate) {
				if err := cfg.loadYAML(candidate); err != nil {
					return nil, err
				}
				break
			}
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadYAML loads and merges configuration from a YAML file.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return wferrors.ConfigError(fmt.Sprintf("failed to read config file %s", path), err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return wferrors.ConfigError(fmt.Sprintf("failed to parse config file %s", path), err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Server.Addr != "" {
		c.Server.Addr = other.Server.Addr
	}

	if other.Logging.Level != "" {
		c.Logging.Level = other.Logging.Level
	}
	if other.Logging.FilePath != "" {
		c.Logging.FilePath = other.Logging.FilePath
	}

	if other.Corpus.Path != "" {
		c.Corpus.Path = other.Corpus.Path
	}
	if other.Corpus.DataDir != "" {
		c.Corpus.DataDir = other.Corpus.DataDir
	}
	if other.Corpus.Watch {
		c.Corpus.Watch = true
	}
	if other.Corpus.WatchDebounce != "" {
		c.Corpus.WatchDebounce = other.Corpus.WatchDebounce
	}

	// Zero is not a practical value for fusion weights, so only merge
	// non-zero values; explicit zero goes through env overrides.
	if other.Search.FusionAlpha != 0 {
		c.Search.FusionAlpha = other.Search.FusionAlpha
	}
	if other.Search.RRFConstant != 0 {
		c.Search.RRFConstant = other.Search.RRFConstant
	}
	if other.Search.DefaultTopK != 0 {
		c.Search.DefaultTopK = other.Search.DefaultTopK
	}
	if other.Search.OversampleFactor != 0 {
		c.Search.OversampleFactor = other.Search.OversampleFactor
	}
	if other.Search.RetrievalTimeoutMS != 0 {
		c.Search.RetrievalTimeoutMS = other.Search.RetrievalTimeoutMS
	}

	if other.Embeddings.Provider != "" {
		c.Embeddings.Provider = other.Embeddings.Provider
	}
	if other.Embeddings.Model != "" {
		c.Embeddings.Model = other.Embeddings.Model
	}
	if other.Embeddings.Dimensions != 0 {
		c.Embeddings.Dimensions = other.Embeddings.Dimensions
	}
	if other.Embeddings.BatchSize != 0 {
		c.Embeddings.BatchSize = other.Embeddings.BatchSize
	}
	if other.Embeddings.CacheSize != 0 {
		c.Embeddings.CacheSize = other.Embeddings.CacheSize
	}
	if other.Embeddings.OllamaHost != "" {
		c.Embeddings.OllamaHost = other.Embeddings.OllamaHost
	}
	if other.Embeddings.BaseURL != "" {
		c.Embeddings.BaseURL = other.Embeddings.BaseURL
	}
	if other.Embeddings.APIKey != "" {
		c.Embeddings.APIKey = other.Embeddings.APIKey
	}

	if other.LLM.Provider != "" {
		c.LLM.Provider = other.LLM.Provider
	}
	if other.LLM.Model != "" {
		c.LLM.Model = other.LLM.Model
	}
	if other.LLM.Temperature != 0 {
		c.LLM.Temperature = other.LLM.Temperature
	}
	if other.LLM.OllamaHost != "" {
		c.LLM.OllamaHost = other.LLM.OllamaHost
	}
	if other.LLM.BaseURL != "" {
		c.LLM.BaseURL = other.LLM.BaseURL
	}
	if other.LLM.APIKey != "" {
		c.LLM.APIKey = other.LLM.APIKey
	}

	if other.Answer.ContextBudgetChars != 0 {
		c.Answer.ContextBudgetChars = other.Answer.ContextBudgetChars
	}
}

// applyEnvOverrides applies WAYFARER_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("WAYFARER_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("WAYFARER_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("WAYFARER_LOG_FILE"); v != "" {
		c.Logging.FilePath = v
	}
	if v := os.Getenv("WAYFARER_CORPUS_PATH"); v != "" {
		c.Corpus.Path = v
	}
	if v := os.Getenv("WAYFARER_DATA_DIR"); v != "" {
		c.Corpus.DataDir = v
	}

	// Explicit zero is allowed via env vars, unlike file merging.
	if v := os.Getenv("WAYFARER_FUSION_ALPHA"); v != "" {
		if a, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && a >= 0 && a <= 1 {
			c.Search.FusionAlpha = a
		}
	}
	if v := os.Getenv("WAYFARER_RRF_CONSTANT"); v != "" {
		if k, err := strconv.Atoi(v); err == nil && k > 0 {
			c.Search.RRFConstant = k
		}
	}
	if v := os.Getenv("WAYFARER_TOP_K"); v != "" {
		if k, err := strconv.Atoi(v); err == nil && k > 0 {
			c.Search.DefaultTopK = k
		}
	}

	if v := os.Getenv("WAYFARER_EMBEDDINGS_PROVIDER"); v != "" {
		c.Embeddings.Provider = v
	}
	if v := os.Getenv("WAYFARER_EMBEDDINGS_MODEL"); v != "" {
		c.Embeddings.Model = v
	}
	if v := os.Getenv("WAYFARER_OLLAMA_HOST"); v != "" {
		c.Embeddings.OllamaHost = v
		c.LLM.OllamaHost = v
	}
	if v := os.Getenv("WAYFARER_API_KEY"); v != "" {
		c.Embeddings.APIKey = v
		c.LLM.APIKey = v
	}

	if v := os.Getenv("WAYFARER_LLM_PROVIDER"); v != "" {
		c.LLM.Provider = v
	}
	if v := os.Getenv("WAYFARER_LLM_MODEL"); v != "" {
		c.LLM.Model = v
	}
}

// Validate validates the configuration. Validation failures are fatal:
// the process should refuse to start rather than run misconfigured.
func (c *Config) Validate() error {
	if c.Search.FusionAlpha < 0 || c.Search.FusionAlpha > 1 {
		return wferrors.ConfigError(
			fmt.Sprintf("search.fusion_alpha must be between 0 and 1, got %g", c.Search.FusionAlpha), nil)
	}
	if c.Search.RRFConstant <= 0 {
		return wferrors.ConfigError(
			fmt.Sprintf("search.rrf_constant must be positive, got %d", c.Search.RRFConstant), nil)
	}
	if c.Search.DefaultTopK <= 0 {
		return wferrors.ConfigError(
			fmt.Sprintf("search.default_top_k must be positive, got %d", c.Search.DefaultTopK), nil)
	}
	if c.Search.OversampleFactor < 1 {
		return wferrors.ConfigError(
			fmt.Sprintf("search.oversample_factor must be at least 1, got %d", c.Search.OversampleFactor), nil)
	}
	if c.Search.RetrievalTimeoutMS <= 0 {
		return wferrors.ConfigError(
			fmt.Sprintf("search.retrieval_timeout_ms must be positive, got %d", c.Search.RetrievalTimeoutMS), nil)
	}

	if c.Embeddings.Provider != "" {
		validProviders := map[string]bool{"ollama": true, "openai": true, "static": true}
		if !validProviders[strings.ToLower(c.Embeddings.Provider)] {
			return wferrors.ConfigError(
				fmt.Sprintf("embeddings.provider must be 'ollama', 'openai', 'static', or empty (auto-detect), got %s",
					c.Embeddings.Provider), nil)
		}
	}

	validLLM := map[string]bool{"ollama": true, "openai": true}
	if !validLLM[strings.ToLower(c.LLM.Provider)] {
		return wferrors.ConfigError(
			fmt.Sprintf("llm.provider must be 'ollama' or 'openai', got %s", c.LLM.Provider), nil)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return wferrors.ConfigError(
			fmt.Sprintf("llm.temperature must be between 0 and 2, got %g", c.LLM.Temperature), nil)
	}

	if c.Answer.ContextBudgetChars <= 0 {
		return wferrors.ConfigError(
			fmt.Sprintf("answer.context_budget_chars must be positive, got %d", c.Answer.ContextBudgetChars), nil)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return wferrors.ConfigError(
			fmt.Sprintf("logging.level must be 'debug', 'info', 'warn', or 'error', got %s", c.Logging.Level), nil)
	}

	return nil
}

// RetrievalTimeout returns the per-branch retrieval timeout as a Duration.
func (c *Config) RetrievalTimeout() time.Duration {
	return time.Duration(c.Search.RetrievalTimeoutMS) * time.Millisecond
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
