package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the contextforge API configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Rewrite   RewriteConfig   `yaml:"rewrite"`
	Segmenter SegmenterConfig `yaml:"segmenter"`
	Chunker   ChunkerConfig   `yaml:"chunker"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Index     IndexConfig     `yaml:"index"`
	Storage   StorageConfig   `yaml:"storage"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	APIKey              string `yaml:"api_key"`
	BaseURL             string `yaml:"base_url"`
	Model               string `yaml:"model"`
	Dimensions          int    `yaml:"dimensions"`
	DocumentInstruction string `yaml:"document_instruction"`
	QueryInstruction    string `yaml:"query_instruction"`
}

// RewriteConfig holds rewrite LLM settings.
type RewriteConfig struct {
	APIKey    string `yaml:"api_key"`
	BaseURL   string `yaml:"base_url"`
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"max_tokens"`
}

// SegmenterConfig bounds the structural scan and the fallback strategies.
// The structural page cap and the paragraph/window sizes are dataset-tuned;
// changing them changes which fallback strategy fires for a given document.
type SegmenterConfig struct {
	MaxStructuralPages int `yaml:"max_structural_pages"`
	MinParagraphChars  int `yaml:"min_paragraph_chars"`
	WindowWords        int `yaml:"window_words"`
	WindowOverlap      int `yaml:"window_overlap"`
}

// ChunkerConfig holds semantic chunking settings.
type ChunkerConfig struct {
	MinTokens    int     `yaml:"min_tokens"`
	MaxTokens    int     `yaml:"max_tokens"`
	SimThreshold float64 `yaml:"sim_threshold"`
	BatchSize    int     `yaml:"batch_size"`
}

// RetrievalConfig holds hybrid search and context assembly settings.
type RetrievalConfig struct {
	TopK          int     `yaml:"top_k"`
	RerankK       int     `yaml:"rerank_k"`
	FinalK        int     `yaml:"final_k"`
	MaxChunks     int     `yaml:"max_chunks"`
	MinScoreRatio float64 `yaml:"min_score_ratio"`
}

// IndexConfig holds HNSW index settings.
type IndexConfig struct {
	HNSWM           int `yaml:"hnsw_m"`
	HNSWEFConstruct int `yaml:"hnsw_ef_construction"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 30
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		// Ingestion embeds every chunk before responding.
		c.HTTP.WriteTimeoutSec = 120
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Rewrite.MaxTokens <= 0 {
		c.Rewrite.MaxTokens = 350
	}
	if c.Segmenter.MaxStructuralPages <= 0 {
		c.Segmenter.MaxStructuralPages = 6
	}
	if c.Segmenter.MinParagraphChars <= 0 {
		c.Segmenter.MinParagraphChars = 40
	}
	if c.Segmenter.WindowWords <= 0 {
		c.Segmenter.WindowWords = 180
	}
	if c.Segmenter.WindowOverlap <= 0 {
		c.Segmenter.WindowOverlap = 30
	}
	if c.Chunker.MinTokens <= 0 {
		c.Chunker.MinTokens = 200
	}
	if c.Chunker.MaxTokens <= 0 {
		c.Chunker.MaxTokens = 800
	}
	if c.Chunker.SimThreshold <= 0 {
		c.Chunker.SimThreshold = 0.78
	}
	if c.Chunker.BatchSize <= 0 {
		c.Chunker.BatchSize = 16
	}
	if c.Retrieval.TopK <= 0 {
		c.Retrieval.TopK = 50
	}
	if c.Retrieval.RerankK <= 0 {
		c.Retrieval.RerankK = 50
	}
	if c.Retrieval.FinalK <= 0 {
		c.Retrieval.FinalK = 5
	}
	if c.Retrieval.MaxChunks <= 0 {
		c.Retrieval.MaxChunks = 4
	}
	if c.Retrieval.MinScoreRatio <= 0 {
		c.Retrieval.MinScoreRatio = 0.6
	}
	if c.Index.HNSWM <= 0 {
		c.Index.HNSWM = 32
	}
	if c.Index.HNSWEFConstruct <= 0 {
		c.Index.HNSWEFConstruct = 400
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "contextforge:"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	if c.Embedding.Model == "" {
		return fmt.Errorf("embedding.model is required")
	}
	if c.Rewrite.Model == "" {
		return fmt.Errorf("rewrite.model is required")
	}
	if c.Chunker.MinTokens >= c.Chunker.MaxTokens {
		return fmt.Errorf("chunker.min_tokens (%d) must be below chunker.max_tokens (%d)",
			c.Chunker.MinTokens, c.Chunker.MaxTokens)
	}
	if c.Chunker.SimThreshold > 1 {
		return fmt.Errorf("chunker.sim_threshold must be at most 1, got %g", c.Chunker.SimThreshold)
	}
	if c.Segmenter.WindowOverlap >= c.Segmenter.WindowWords {
		return fmt.Errorf("segmenter.window_overlap (%d) must be below segmenter.window_words (%d)",
			c.Segmenter.WindowOverlap, c.Segmenter.WindowWords)
	}
	if c.Retrieval.MinScoreRatio > 1 {
		return fmt.Errorf("retrieval.min_score_ratio must be at most 1, got %g", c.Retrieval.MinScoreRatio)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
