// Package config provides configuration loading and structs for the iftaa server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hyperjump/iftaa/internal/ranking"
	"github.com/hyperjump/iftaa/internal/resilience"
)

// Config holds all configuration for the application.
type Config struct {
	Debug       bool              `yaml:"debug"`
	Server      ServerConfig      `yaml:"server"`
	Storage     StorageConfig     `yaml:"storage"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	Vector      VectorConfig      `yaml:"vector"`
	Search      SearchConfig      `yaml:"search"`
	Ranking     ranking.Weights   `yaml:"ranking"`
	Vocabulary  VocabularyConfig  `yaml:"vocabulary"`
	Translation TranslationConfig `yaml:"translation"`
	Indexer     IndexerConfig     `yaml:"indexer"`
	Import      ImportConfig      `yaml:"import"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// StorageConfig holds paths for the database and indices.
type StorageConfig struct {
	DatabasePath    string `yaml:"database_path"`
	BleveIndexPath  string `yaml:"bleve_index_path"`
	VectorIndexPath string `yaml:"vector_index_path"` // directory holding ar.idx and en.idx
}

// EmbeddingConfig holds embedder settings.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"` // "mock" or "onnx"
	ModelPath  string `yaml:"model_path"`
	Dimensions int    `yaml:"dimensions"`
	MaxTokens  int    `yaml:"max_tokens"`
	CacheSize  int    `yaml:"cache_size"`
}

// VectorConfig holds vector index settings.
type VectorConfig struct {
	IndexType string `yaml:"index_type"` // "memory" or "hnsw"
	M         int    `yaml:"m"`
	EfSearch  int    `yaml:"ef_search"`
}

// SearchConfig holds retrieval pipeline settings.
type SearchConfig struct {
	DefaultPageSize int `yaml:"default_page_size"`
	MaxPageSize     int `yaml:"max_page_size"`
	// CandidateLimit caps each document-store strategy; raised to 2*page*pageSize for deep pages.
	CandidateLimit       int           `yaml:"candidate_limit"`
	SemanticTopK         int           `yaml:"semantic_top_k"`
	SemanticExpandedTopK int           `yaml:"semantic_expanded_top_k"`
	FastPathThreshold    int           `yaml:"fast_path_threshold"`
	FallbackFloorFactor  int           `yaml:"fallback_floor_factor"`
	StrategyTimeout      time.Duration `yaml:"strategy_timeout"`
	CountTimeout         time.Duration `yaml:"count_timeout"`
	MaxExpansionTerms    int           `yaml:"max_expansion_terms"`
	KeywordTitleBoost    float64       `yaml:"keyword_title_boost"`
}

// VocabularyConfig points at an external vocabulary file; empty uses the built-in one.
type VocabularyConfig struct {
	Path  string `yaml:"path"`
	Watch bool   `yaml:"watch"`
}

// TranslationConfig holds the index-time translator settings.
type TranslationConfig struct {
	Provider   string            `yaml:"provider"` // "none" or "http"
	Endpoint   string            `yaml:"endpoint"`
	APIKey     string            `yaml:"api_key"`
	Timeout    time.Duration     `yaml:"timeout"`
	Resilience resilience.Config `yaml:"resilience"`
}

// IndexerConfig holds ingestion settings.
type IndexerConfig struct {
	Workers int `yaml:"workers"`
	// Translate fills empty English fields of Arabic fatwas through the translator.
	Translate bool `yaml:"translate"`
}

// ImportConfig holds import inbox settings.
type ImportConfig struct {
	Directories []string `yaml:"directories"`
	Extensions  []string `yaml:"extensions"`
}

// MetricsConfig holds Prometheus exposition settings.
type MetricsConfig struct {
	Enabled *bool  `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// EnabledOrDefault returns whether metrics are exposed; defaults to true when unset.
func (m *MetricsConfig) EnabledOrDefault() bool {
	if m.Enabled != nil {
		return *m.Enabled
	}
	return true
}

// Load reads and parses the config file at path, applies defaults, and expands paths.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.BleveIndexPath = expandPath(cfg.Storage.BleveIndexPath, configDir)
	cfg.Storage.VectorIndexPath = expandPath(cfg.Storage.VectorIndexPath, configDir)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	if cfg.Vocabulary.Path != "" {
		cfg.Vocabulary.Path = expandPath(cfg.Vocabulary.Path, configDir)
	}
	for i := range cfg.Import.Directories {
		cfg.Import.Directories[i] = expandPath(cfg.Import.Directories[i], configDir)
	}

	return &cfg, nil
}

// Validate rejects settings the components cannot run with.
func (c *Config) Validate() error {
	switch c.Embedding.Provider {
	case "mock", "onnx":
	default:
		return fmt.Errorf("invalid embedding.provider %q (supported: mock, onnx)", c.Embedding.Provider)
	}
	switch c.Vector.IndexType {
	case "memory", "hnsw":
	default:
		return fmt.Errorf("invalid vector.index_type %q (supported: memory, hnsw)", c.Vector.IndexType)
	}
	switch c.Translation.Provider {
	case "none":
	case "http":
		if c.Translation.Endpoint == "" {
			return fmt.Errorf("translation.endpoint is required for provider http")
		}
	default:
		return fmt.Errorf("invalid translation.provider %q (supported: none, http)", c.Translation.Provider)
	}
	if c.Search.MaxPageSize > 100 {
		return fmt.Errorf("search.max_page_size must be <= 100, got %d", c.Search.MaxPageSize)
	}
	if c.Search.DefaultPageSize > c.Search.MaxPageSize {
		return fmt.Errorf("search.default_page_size %d exceeds max_page_size %d", c.Search.DefaultPageSize, c.Search.MaxPageSize)
	}
	return nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
