package config

import (
	"time"

	"github.com/hyperjump/iftaa/internal/resilience"
)

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 60 * time.Second
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/iftaa/data/db/fatwas.db"
	}
	if cfg.Storage.BleveIndexPath == "" {
		cfg.Storage.BleveIndexPath = "/usr/local/var/iftaa/data/indices/bleve"
	}
	if cfg.Storage.VectorIndexPath == "" {
		cfg.Storage.VectorIndexPath = "/usr/local/var/iftaa/data/indices/vectors"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "mock"
	}
	if cfg.Embedding.ModelPath == "" {
		cfg.Embedding.ModelPath = "/usr/local/var/iftaa/data/models/paraphrase-multilingual-MiniLM-L12-v2.onnx"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Vector.IndexType == "" {
		cfg.Vector.IndexType = "memory"
	}
	if cfg.Search.DefaultPageSize == 0 {
		cfg.Search.DefaultPageSize = 10
	}
	if cfg.Search.MaxPageSize == 0 {
		cfg.Search.MaxPageSize = 100
	}
	if cfg.Search.CandidateLimit == 0 {
		cfg.Search.CandidateLimit = 300
	}
	if cfg.Search.SemanticTopK == 0 {
		cfg.Search.SemanticTopK = 20
	}
	if cfg.Search.SemanticExpandedTopK == 0 {
		cfg.Search.SemanticExpandedTopK = 30
	}
	if cfg.Search.FastPathThreshold == 0 {
		cfg.Search.FastPathThreshold = 5
	}
	if cfg.Search.FallbackFloorFactor == 0 {
		cfg.Search.FallbackFloorFactor = 2
	}
	if cfg.Search.StrategyTimeout == 0 {
		cfg.Search.StrategyTimeout = 2 * time.Second
	}
	if cfg.Search.CountTimeout == 0 {
		cfg.Search.CountTimeout = time.Second
	}
	if cfg.Search.MaxExpansionTerms == 0 {
		cfg.Search.MaxExpansionTerms = 5
	}
	if cfg.Search.KeywordTitleBoost == 0 {
		cfg.Search.KeywordTitleBoost = 2.0
	}
	cfg.Ranking.ApplyDefaults()
	if cfg.Translation.Provider == "" {
		cfg.Translation.Provider = "none"
	}
	if cfg.Translation.Timeout == 0 {
		cfg.Translation.Timeout = 10 * time.Second
	}
	if cfg.Translation.Resilience == (resilience.Config{}) {
		cfg.Translation.Resilience = resilience.DefaultConfig()
	}
	if cfg.Indexer.Workers == 0 {
		cfg.Indexer.Workers = 4
	}
	if cfg.Import.Extensions == nil {
		cfg.Import.Extensions = []string{".json", ".jsonl", ".csv", ".xlsx"}
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}
