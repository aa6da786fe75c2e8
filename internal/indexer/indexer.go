// Package indexer ingests fatwas into the document store, the full-text
// index and the per-language vector indexes.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/hyperjump/iftaa/internal/config"
	"github.com/hyperjump/iftaa/internal/embedding"
	"github.com/hyperjump/iftaa/internal/extract"
	"github.com/hyperjump/iftaa/internal/keyword"
	"github.com/hyperjump/iftaa/internal/models"
	"github.com/hyperjump/iftaa/internal/storage"
	"github.com/hyperjump/iftaa/internal/translate"
	"github.com/hyperjump/iftaa/internal/vector"
)

// Indexer indexes fatwas into storage, keyword index, and vector indexes.
type Indexer struct {
	storage      storage.Storage
	embedder     embedding.Embedder
	vectors      *vector.Set
	keywordIndex keyword.KeywordIndex
	translator   translate.Translator
	extractor    *extract.Extractor
	config       config.IndexerConfig
	logger       *zap.Logger
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for debug output (fatwa indexed, fatwa deleted, etc.).
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// WithTranslator sets the translator used to fill missing English fields.
func WithTranslator(tr translate.Translator) IndexerOption {
	return func(idx *Indexer) { idx.translator = tr }
}

// WithExtractor sets the import file parser used by IndexFile.
func WithExtractor(e *extract.Extractor) IndexerOption {
	return func(idx *Indexer) { idx.extractor = e }
}

// NewIndexer creates an indexer with the given dependencies.
// keywordIndex, embedder and vectors may be nil; those indexes are then not maintained.
func NewIndexer(
	storage storage.Storage,
	embedder embedding.Embedder,
	vectors *vector.Set,
	keywordIndex keyword.KeywordIndex,
	cfg config.IndexerConfig,
	opts ...IndexerOption,
) *Indexer {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	idx := &Indexer{
		storage:      storage,
		embedder:     embedder,
		vectors:      vectors,
		keywordIndex: keywordIndex,
		translator:   translate.Nop{},
		extractor:    extract.NewExtractor(),
		config:       cfg,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// IndexFatwa stores the fatwa and refreshes every index for it.
// An inactive fatwa is stored but removed from the search indexes.
func (idx *Indexer) IndexFatwa(ctx context.Context, input *models.FatwaInput) (*models.Fatwa, error) {
	if input == nil || input.FatwaID <= 0 {
		return nil, fmt.Errorf("%w: fatwa_id must be positive", models.ErrInvalidInput)
	}
	if strings.TrimSpace(input.Title) == "" && strings.TrimSpace(input.Question) == "" {
		return nil, fmt.Errorf("%w: fatwa %d has neither title nor question", models.ErrInvalidInput, input.FatwaID)
	}
	f := input.ToFatwa()
	if idx.config.Translate && f.TitleAr != "" && !f.HasEnglish() {
		idx.enrichEnglish(ctx, f)
	}
	if err := idx.storage.UpsertFatwa(ctx, f); err != nil {
		return nil, fmt.Errorf("failed to store fatwa: %w", err)
	}

	if !f.IsActive {
		if err := idx.removeFromIndexes(ctx, f.FatwaID); err != nil {
			return nil, err
		}
		idx.logger.Debug("inactive fatwa stored", zap.Int64("fatwa_id", f.FatwaID))
		return f, nil
	}

	if idx.keywordIndex != nil {
		if err := idx.keywordIndex.Index(ctx, f); err != nil {
			return nil, fmt.Errorf("failed to index keywords: %w", err)
		}
	}
	embedded, err := idx.embed(ctx, f)
	if err != nil {
		return nil, err
	}
	if embedded {
		if err := idx.storage.SetEmbedded(ctx, f.FatwaID, true); err != nil {
			return nil, fmt.Errorf("failed to mark fatwa embedded: %w", err)
		}
		f.IsEmbedded = true
	}
	idx.logger.Debug("fatwa indexed", zap.Int64("fatwa_id", f.FatwaID), zap.Bool("embedded", embedded))
	return f, nil
}

// enrichEnglish fills the empty English fields from the Arabic ones. Failures
// leave the fatwa Arabic-only.
func (idx *Indexer) enrichEnglish(ctx context.Context, f *models.Fatwa) {
	src := []string{f.TitleAr, f.QuestionAr, f.AnswerAr}
	out, err := translate.Fields(ctx, idx.translator, src, "ar", "en")
	if err != nil {
		idx.logger.Warn("translation failed, keeping arabic only",
			zap.Int64("fatwa_id", f.FatwaID), zap.Error(err))
		return
	}
	if f.TitleEn == "" {
		f.TitleEn = out[0]
	}
	if f.QuestionEn == "" {
		f.QuestionEn = out[1]
	}
	if f.AnswerEn == "" {
		f.AnswerEn = out[2]
	}
}

// EmbeddingText composes the text embedded for one language of a fatwa:
// category, title, question, answer and tags.
func EmbeddingText(f *models.Fatwa, english bool) string {
	title, question, answer := f.TitleAr, f.QuestionAr, f.AnswerAr
	if english {
		title, question, answer = f.TitleEn, f.QuestionEn, f.AnswerEn
	}
	parts := []string{f.Category, title, question, answer, strings.Join(f.Tags, " ")}
	nonEmpty := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, " ")
}

// embed replaces the fatwa's vectors in the Arabic and, when it has an
// English title, the English index. It reports whether any vector was written.
func (idx *Indexer) embed(ctx context.Context, f *models.Fatwa) (bool, error) {
	if idx.embedder == nil || idx.vectors == nil {
		return false, nil
	}
	type target struct {
		index vector.VectorIndex
		text  string
	}
	var targets []target
	if f.TitleAr != "" || f.QuestionAr != "" {
		targets = append(targets, target{idx.vectors.Arabic, EmbeddingText(f, false)})
	} else if err := idx.vectors.Arabic.Remove(ctx, []int64{f.FatwaID}); err != nil {
		return false, fmt.Errorf("failed to delete from vector index: %w", err)
	}
	if f.HasEnglish() {
		targets = append(targets, target{idx.vectors.English, EmbeddingText(f, true)})
	} else if err := idx.vectors.English.Remove(ctx, []int64{f.FatwaID}); err != nil {
		return false, fmt.Errorf("failed to delete from vector index: %w", err)
	}
	if len(targets) == 0 {
		return false, nil
	}
	texts := make([]string, len(targets))
	for i, t := range targets {
		texts[i] = t.text
	}
	embeddings, err := idx.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return false, fmt.Errorf("failed to generate embeddings: %w", err)
	}
	for i, t := range targets {
		if err := t.index.Add(ctx, []int64{f.FatwaID}, embeddings[i:i+1]); err != nil {
			return false, fmt.Errorf("failed to index vectors: %w", err)
		}
	}
	return true, nil
}

// BatchResult summarizes an IndexBatch run.
type BatchResult struct {
	BatchID string           `json:"batch_id"`
	Indexed int              `json:"indexed"`
	Failed  map[int64]string `json:"failed,omitempty"`
}

// IndexBatch indexes inputs on a bounded worker pool. Per-fatwa failures are
// collected in the result; the returned error is only for pool failures or cancellation.
func (idx *Indexer) IndexBatch(ctx context.Context, inputs []*models.FatwaInput) (*BatchResult, error) {
	res := &BatchResult{BatchID: uuid.New().String(), Failed: map[int64]string{}}
	if len(inputs) == 0 {
		return res, nil
	}
	pool, err := ants.NewPool(idx.config.Workers)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	record := func(id int64, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			res.Failed[id] = err.Error()
			return
		}
		res.Indexed++
	}
	for _, in := range inputs {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			_, err := idx.IndexFatwa(ctx, in)
			var id int64
			if in != nil {
				id = in.FatwaID
			}
			record(id, err)
		}); err != nil {
			wg.Done()
			wg.Wait()
			return nil, fmt.Errorf("submit to worker pool: %w", err)
		}
	}
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return res, err
	}
	idx.logger.Info("batch indexed",
		zap.String("batch_id", res.BatchID),
		zap.Int("indexed", res.Indexed),
		zap.Int("failed", len(res.Failed)),
	)
	return res, nil
}

// IndexFile parses an import file and indexes its fatwas. If allowedExts is
// non-empty the file's extension must be in the list (case-insensitive).
func (idx *Indexer) IndexFile(ctx context.Context, path string, allowedExts []string) (*BatchResult, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(absPath))
	if len(allowedExts) > 0 && !extensionAllowed(ext, allowedExts) {
		return nil, fmt.Errorf("%w: extension %q not in allowed list", models.ErrInvalidInput, ext)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("not a regular file: %s", absPath)
	}
	idx.logger.Debug("indexer importing file", zap.String("path", absPath))
	inputs, err := idx.extractor.Extract(absPath)
	if err != nil {
		return nil, fmt.Errorf("extract fatwas: %w", err)
	}
	return idx.IndexBatch(ctx, inputs)
}

// IndexDirectory walks dir recursively and imports each regular file whose
// extension is in allowedExts (all supported formats when empty). Returns the
// number of fatwas indexed and the first error encountered, if any.
func (idx *Indexer) IndexDirectory(ctx context.Context, dir string, allowedExts []string) (int, error) {
	if len(allowedExts) == 0 {
		allowedExts = extract.SupportedExtensions
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return 0, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return 0, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("not a directory: %s", absDir)
	}
	n := 0
	err = filepath.WalkDir(absDir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !extensionAllowed(filepath.Ext(path), allowedExts) {
			return nil
		}
		res, err := idx.IndexFile(ctx, path, allowedExts)
		if err != nil {
			return err
		}
		n += res.Indexed
		return nil
	})
	return n, err
}

func extensionAllowed(ext string, allowed []string) bool {
	extNorm := strings.ToLower(strings.TrimPrefix(ext, "."))
	if extNorm == "" {
		return false
	}
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == extNorm {
			return true
		}
	}
	return false
}

// DeleteFatwa removes a fatwa from all indexes and storage.
func (idx *Indexer) DeleteFatwa(ctx context.Context, id int64) error {
	idx.logger.Debug("indexer deleting fatwa", zap.Int64("fatwa_id", id))
	if err := idx.removeFromIndexes(ctx, id); err != nil {
		return err
	}
	if err := idx.storage.DeleteFatwa(ctx, id); err != nil {
		return fmt.Errorf("failed to delete fatwa: %w", err)
	}
	idx.logger.Debug("indexer fatwa deleted", zap.Int64("fatwa_id", id))
	return nil
}

func (idx *Indexer) removeFromIndexes(ctx context.Context, id int64) error {
	if idx.keywordIndex != nil {
		if err := idx.keywordIndex.Delete(ctx, id); err != nil {
			return fmt.Errorf("failed to delete from keyword index: %w", err)
		}
	}
	if idx.vectors != nil {
		errA := idx.vectors.Arabic.Remove(ctx, []int64{id})
		errE := idx.vectors.English.Remove(ctx, []int64{id})
		if err := errors.Join(errA, errE); err != nil {
			return fmt.Errorf("failed to delete from vector index: %w", err)
		}
	}
	return nil
}

// Reindex rebuilds the keyword and vector indexes from every stored fatwa.
// It is used when an index is opened empty over an existing database.
func (idx *Indexer) Reindex(ctx context.Context) (int, error) {
	const pageSize = 500
	n := 0
	for offset := 0; ; offset += pageSize {
		fatwas, err := idx.storage.ListFatwas(ctx, offset, pageSize)
		if err != nil {
			return n, fmt.Errorf("list fatwas: %w", err)
		}
		for _, f := range fatwas {
			if err := ctx.Err(); err != nil {
				return n, err
			}
			if !f.IsActive {
				continue
			}
			if idx.keywordIndex != nil {
				if err := idx.keywordIndex.Index(ctx, f); err != nil {
					return n, fmt.Errorf("failed to index keywords: %w", err)
				}
			}
			embedded, err := idx.embed(ctx, f)
			if err != nil {
				return n, err
			}
			if embedded && !f.IsEmbedded {
				if err := idx.storage.SetEmbedded(ctx, f.FatwaID, true); err != nil {
					return n, err
				}
			}
			n++
		}
		if len(fatwas) < pageSize {
			break
		}
	}
	idx.logger.Info("reindex complete", zap.Int("fatwas", n))
	return n, nil
}
