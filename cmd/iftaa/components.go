package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/hyperjump/iftaa/internal/config"
	"github.com/hyperjump/iftaa/internal/embedding"
	"github.com/hyperjump/iftaa/internal/indexer"
	"github.com/hyperjump/iftaa/internal/keyword"
	"github.com/hyperjump/iftaa/internal/metrics"
	"github.com/hyperjump/iftaa/internal/optimizer"
	"github.com/hyperjump/iftaa/internal/ranking"
	"github.com/hyperjump/iftaa/internal/resilience"
	"github.com/hyperjump/iftaa/internal/search"
	"github.com/hyperjump/iftaa/internal/storage"
	"github.com/hyperjump/iftaa/internal/translate"
	"github.com/hyperjump/iftaa/internal/vector"
	"github.com/hyperjump/iftaa/internal/vocab"
	"github.com/hyperjump/iftaa/internal/watcher"
)

// Components holds initialized services.
type Components struct {
	Config       *config.Config
	Logger       *zap.Logger
	Storage      storage.Storage
	Embedder     embedding.Embedder
	Vectors      *vector.Set
	KeywordIndex keyword.KeywordIndex
	Vocabulary   *vocab.Store
	Translator   translate.Translator
	Metrics      *metrics.Metrics
	Engine       *search.Engine
	Indexer      *indexer.Indexer

	vocabWatcher *watcher.FileWatcher
}

// Close persists the vector indexes and releases every component.
func (c *Components) Close() {
	if c.vocabWatcher != nil {
		c.vocabWatcher.Stop()
	}
	if c.Vectors != nil {
		// Only a fully initialized set is persisted.
		if dir := c.Config.Storage.VectorIndexPath; dir != "" && c.Indexer != nil {
			if err := os.MkdirAll(dir, 0755); err != nil {
				c.Logger.Warn("vector index dir create failed", zap.String("path", dir), zap.Error(err))
			} else if err := c.Vectors.Save(dir); err != nil {
				c.Logger.Warn("vector index save failed", zap.String("path", dir), zap.Error(err))
			}
		}
		_ = c.Vectors.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.KeywordIndex != nil {
		_ = c.KeywordIndex.Close()
	}
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	c := &Components{Config: cfg, Logger: logger}
	ok := false
	defer func() {
		if !ok {
			c.Close()
		}
	}()

	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	c.Storage = store

	c.Embedder = newEmbedder(cfg.Embedding, logger)

	vectors, err := vector.NewSet(vector.Options{
		Type:       cfg.Vector.IndexType,
		Dimensions: cfg.Embedding.Dimensions,
		M:          cfg.Vector.M,
		EfSearch:   cfg.Vector.EfSearch,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vector index: %w", err)
	}
	c.Vectors = vectors
	if loadErr := vectors.Load(cfg.Storage.VectorIndexPath); loadErr != nil {
		logger.Warn("vector index load skipped (run reindex)",
			zap.String("path", cfg.Storage.VectorIndexPath), zap.Error(loadErr))
	}
	logger.Info("vector index initialized",
		zap.String("type", cfg.Vector.IndexType),
		zap.Int("arabic", vectors.Arabic.Size()),
		zap.Int("english", vectors.English.Size()),
	)

	keywordIndex, err := keyword.NewBleveIndex(cfg.Storage.BleveIndexPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize keyword index: %w", err)
	}
	c.KeywordIndex = keywordIndex

	vocabStore, err := vocab.NewStore(cfg.Vocabulary.Path, vocab.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to load vocabulary: %w", err)
	}
	c.Vocabulary = vocabStore

	c.Translator = newTranslator(cfg.Translation, logger)
	c.Metrics = metrics.New()

	opt := optimizer.New(vocabStore,
		optimizer.WithLogger(logger),
		optimizer.WithMaxExpansionTerms(cfg.Search.MaxExpansionTerms),
	)
	c.Engine = search.NewEngine(store, keywordIndex, c.Embedder, vectors, opt,
		ranking.NewScorer(cfg.Ranking), &cfg.Search,
		search.WithLogger(logger),
		search.WithObserver(c.Metrics),
	)
	c.Indexer = indexer.NewIndexer(store, c.Embedder, vectors, keywordIndex, cfg.Indexer,
		indexer.WithLogger(logger),
		indexer.WithTranslator(c.Translator),
	)
	ok = true
	return c, nil
}

// newEmbedder returns the configured embedder behind an LRU cache. An onnx
// model that fails to load falls back to the mock embedder.
func newEmbedder(cfg config.EmbeddingConfig, logger *zap.Logger) embedding.Embedder {
	var inner embedding.Embedder
	if cfg.Provider == "onnx" {
		e, err := embedding.NewONNXEmbedder(cfg.ModelPath, cfg.Dimensions, cfg.MaxTokens)
		if err != nil {
			logger.Warn("onnx embedder unavailable, using mock", zap.String("model", cfg.ModelPath), zap.Error(err))
		} else {
			inner = e
		}
	}
	if inner == nil {
		inner = embedding.NewMockEmbedder(cfg.Dimensions)
	}
	return embedding.NewCachedEmbedder(inner, cfg.CacheSize)
}

func newTranslator(cfg config.TranslationConfig, logger *zap.Logger) translate.Translator {
	if cfg.Provider != "http" {
		return translate.Nop{}
	}
	executor := resilience.NewExecutor(cfg.Resilience, resilience.WithLogger(logger))
	opts := []translate.Option{translate.WithLogger(logger)}
	if cfg.APIKey != "" {
		opts = append(opts, translate.WithAPIKey(cfg.APIKey))
	}
	return translate.NewHTTPTranslator(cfg.Endpoint, cfg.Timeout, executor, opts...)
}

// watchVocabulary reloads the vocabulary whenever its file changes.
func (c *Components) watchVocabulary(ctx context.Context) error {
	if !c.Config.Vocabulary.Watch || c.Vocabulary.Path() == "" {
		return nil
	}
	c.vocabWatcher = watcher.NewFileWatcher(c.Vocabulary.Path(), func() {
		_ = c.Vocabulary.Reload()
	}, watcher.WithLogger(c.Logger))
	return c.vocabWatcher.Start(ctx)
}

// diagnosticOptimizer builds only the query optimizer, without opening storage.
func diagnosticOptimizer(cfg *config.Config, logger *zap.Logger) (*optimizer.Optimizer, error) {
	vocabStore, err := vocab.NewStore(cfg.Vocabulary.Path, vocab.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to load vocabulary: %w", err)
	}
	return optimizer.New(vocabStore, optimizer.WithMaxExpansionTerms(cfg.Search.MaxExpansionTerms)), nil
}
