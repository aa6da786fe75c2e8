// Package search runs the fatwa retrieval pipeline: query optimization,
// parallel retrieval strategies, priority merge, relevance scoring and paging.
package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/iftaa/internal/config"
	"github.com/hyperjump/iftaa/internal/embedding"
	"github.com/hyperjump/iftaa/internal/keyword"
	"github.com/hyperjump/iftaa/internal/language"
	"github.com/hyperjump/iftaa/internal/models"
	"github.com/hyperjump/iftaa/internal/optimizer"
	"github.com/hyperjump/iftaa/internal/ranking"
	"github.com/hyperjump/iftaa/internal/storage"
	"github.com/hyperjump/iftaa/internal/textnorm"
	"github.com/hyperjump/iftaa/internal/vector"
)

// Search outcomes reported to an Observer.
const (
	OutcomeOK       = "ok"
	OutcomeDegraded = "degraded"
	OutcomeInvalid  = "invalid"
	OutcomeError    = "error"
	OutcomeCanceled = "canceled"
)

// Observer receives per-search measurements.
type Observer interface {
	SearchCompleted(outcome string, fastPath bool, candidates int, elapsed time.Duration)
	StrategyFailed(strategy string)
}

type nopObserver struct{}

func (nopObserver) SearchCompleted(string, bool, int, time.Duration) {}
func (nopObserver) StrategyFailed(string)                            {}

// Engine runs bilingual fatwa search.
type Engine struct {
	store     storage.Storage
	keyword   keyword.KeywordIndex
	embedder  embedding.Embedder
	vectors   *vector.Set
	optimizer *optimizer.Optimizer
	scorer    *ranking.Scorer
	config    *config.SearchConfig
	logger    *zap.Logger
	observer  Observer
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithObserver sets the receiver of search measurements.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		if o != nil {
			e.observer = o
		}
	}
}

// NewEngine creates a search engine. keywordIndex, embedder and vectors may be
// nil; the strategies that need them are then skipped.
func NewEngine(
	store storage.Storage,
	keywordIndex keyword.KeywordIndex,
	embedder embedding.Embedder,
	vectors *vector.Set,
	opt *optimizer.Optimizer,
	scorer *ranking.Scorer,
	cfg *config.SearchConfig,
	opts ...Option,
) *Engine {
	c := *cfg
	applySearchDefaults(&c)
	e := &Engine{
		store:     store,
		keyword:   keywordIndex,
		embedder:  embedder,
		vectors:   vectors,
		optimizer: opt,
		scorer:    scorer,
		config:    &c,
		logger:    zap.NewNop(),
		observer:  nopObserver{},
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

func applySearchDefaults(c *config.SearchConfig) {
	full := config.Config{Search: *c}
	config.ApplyDefaults(&full)
	*c = full.Search
}

// SearchQuery fills default paging and runs Search.
func (e *Engine) SearchQuery(ctx context.Context, q *models.SearchQuery) (*models.SearchResponse, error) {
	if q.Page == 0 {
		q.Page = 1
	}
	if q.PageSize == 0 {
		q.PageSize = e.config.DefaultPageSize
	}
	return e.Search(ctx, q.Query, q.Language, q.Page, q.PageSize)
}

// Search runs the retrieval pipeline for query. languageHint is "", "auto",
// "ar" or "en"; an explicit hint skips detection.
func (e *Engine) Search(ctx context.Context, query, languageHint string, page, pageSize int) (*models.SearchResponse, error) {
	start := time.Now()
	resp, candidates, err := e.search(ctx, query, languageHint, page, pageSize)
	elapsed := time.Since(start)

	outcome := OutcomeOK
	switch {
	case err != nil && models.IsKind(err, models.ErrInvalidInput):
		outcome = OutcomeInvalid
	case err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)):
		outcome = OutcomeCanceled
	case err != nil:
		outcome = OutcomeError
	case resp.Degraded:
		outcome = OutcomeDegraded
	}
	fastPath := resp != nil && resp.FastPath
	e.observer.SearchCompleted(outcome, fastPath, candidates, elapsed)
	if err != nil {
		return nil, err
	}
	resp.QueryTime = elapsed.Milliseconds()
	return resp, nil
}

func (e *Engine) search(ctx context.Context, query, languageHint string, page, pageSize int) (*models.SearchResponse, int, error) {
	q := models.SearchQuery{Query: query, Language: languageHint, Page: page, PageSize: pageSize}
	if err := q.Validate(); err != nil {
		return nil, 0, err
	}
	if pageSize > e.config.MaxPageSize {
		return nil, 0, fmt.Errorf("%w: page_size must be <= %d, got %d", models.ErrInvalidInput, e.config.MaxPageSize, pageSize)
	}
	lang, detect, ok := language.ParseHint(languageHint)
	if !ok {
		return nil, 0, fmt.Errorf("%w: unsupported language %q", models.ErrInvalidInput, languageHint)
	}

	var plan optimizer.Plan
	if detect {
		plan = e.optimizer.Optimize(query)
	} else {
		plan = e.optimizer.OptimizeAs(query, lang, 1.0)
	}
	e.logger.Debug("query planned",
		zap.String("language", plan.Language.String()),
		zap.Float64("confidence", plan.Confidence),
		zap.String("normalized", plan.Normalized),
		zap.String("expanded", plan.Expanded),
	)

	limit := candidateLimit(e.config.CandidateLimit, page, pageSize)
	resp := &models.SearchResponse{
		Results:    []*models.SearchResult{},
		Page:       page,
		PageSize:   pageSize,
		Query:      query,
		Language:   plan.Language.String(),
		Confidence: plan.Confidence,
	}

	exact := e.runExact(ctx, plan, limit)
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	e.report(exact)

	var merged []int64
	if exact.Err == nil && len(exact.IDs) >= e.config.FastPathThreshold {
		e.logger.Debug("fast path", zap.Int("exact", len(exact.IDs)))
		resp.FastPath = true
		merged = Merge(exact)
		resp.TotalCount, resp.CountApproximate = e.countTotal(ctx, exactFilter(plan), plan.Normalized, len(merged))
	} else {
		results := e.runParallel(ctx, plan, limit)
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		results = append(results, exact)
		merged = Merge(results...)

		if len(merged) < e.config.FallbackFloorFactor*pageSize {
			fb := e.runFallback(ctx, plan, limit)
			if err := ctx.Err(); err != nil {
				return nil, 0, err
			}
			e.report(fb)
			results = append(results, fb)
			merged = Merge(results...)
		}

		resp.FailedStrategies = failedStrategies(results)
		if allFailed(results) {
			e.logger.Warn("all strategies failed", zap.Strings("strategies", resp.FailedStrategies))
			resp.Degraded = true
			return resp, 0, nil
		}

		countFilter := storage.Or(exactFilter(plan), anyTermFilter(plan.Terms))
		if f, ok := allTermsFilter(plan.Terms); ok {
			countFilter = storage.Or(exactFilter(plan), f, anyTermFilter(plan.Terms))
		}
		resp.TotalCount, _ = e.countTotal(ctx, countFilter, plan.Normalized, len(merged))
		resp.CountApproximate = true
	}
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	results, err := e.page(ctx, merged, plan, page, pageSize)
	if err != nil {
		return nil, 0, err
	}
	resp.Results = results
	return resp, len(merged), nil
}

// runParallel runs the all-terms and both semantic strategies concurrently.
// A failing strategy never cancels its siblings.
func (e *Engine) runParallel(ctx context.Context, plan optimizer.Plan, limit int) []StrategyResult {
	results := make([]StrategyResult, 3)
	var g errgroup.Group
	g.Go(func() error {
		results[0] = e.runAllTerms(ctx, plan, limit)
		return nil
	})
	g.Go(func() error {
		results[1] = e.runSemantic(ctx, StrategySemanticOriginal, plan.Normalized, plan.Language, e.config.SemanticTopK)
		return nil
	})
	g.Go(func() error {
		results[2] = e.runSemantic(ctx, StrategySemanticExpanded, plan.Expanded, plan.Language, e.config.SemanticExpandedTopK)
		return nil
	})
	_ = g.Wait()
	for _, r := range results {
		e.report(r)
	}
	return results
}

func (e *Engine) report(r StrategyResult) {
	if r.Err == nil {
		return
	}
	e.logger.Warn("strategy failed", zap.String("strategy", r.Strategy.String()), zap.Error(r.Err))
	e.observer.StrategyFailed(r.Strategy.String())
}

func failedStrategies(results []StrategyResult) []string {
	var names []string
	for _, r := range results {
		if r.Err != nil {
			names = append(names, r.Strategy.String())
		}
	}
	return names
}

// allFailed reports whether every strategy that ran failed.
func allFailed(results []StrategyResult) bool {
	ran := 0
	for _, r := range results {
		if r.Skipped {
			continue
		}
		ran++
		if r.Err == nil {
			return false
		}
	}
	return ran > 0
}

// page resolves one page of merged ids, scores it against the original query
// and orders it by score; equal scores keep merge order.
func (e *Engine) page(ctx context.Context, merged []int64, plan optimizer.Plan, page, pageSize int) ([]*models.SearchResult, error) {
	ids := Paginate(merged, page, pageSize)
	if len(ids) == 0 {
		return []*models.SearchResult{}, nil
	}
	fatwas, err := e.store.FetchByIDs(ctx, ids)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, models.WrapError(models.ErrUpstreamUnavailable, "search.fetch", err)
	}
	byID := make(map[int64]*models.Fatwa, len(fatwas))
	for _, f := range fatwas {
		byID[f.FatwaID] = f
	}

	q := ranking.PrepareQuery(plan.Original)
	english := plan.Language == language.Other
	results := make([]*models.SearchResult, 0, len(ids))
	for _, id := range ids {
		f, ok := byID[id]
		if !ok {
			continue
		}
		r := models.NewSearchResult(f, english)
		r.RelevanceScore = e.scorer.ScorePrepared(q, f)
		results = append(results, r)
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].RelevanceScore > results[j].RelevanceScore
	})
	offset := (page - 1) * pageSize
	for i, r := range results {
		r.Rank = offset + i + 1
	}
	return results, nil
}

// Optimize returns the query plan Search would use for text.
func (e *Engine) Optimize(text string) optimizer.Plan {
	return e.optimizer.Optimize(text)
}

// DetectLanguage classifies text as Arabic, Other or Unknown with a confidence.
func (e *Engine) DetectLanguage(text string) (language.Language, float64) {
	return language.Detect(text)
}

// Normalize applies the text normalizer.
func (e *Engine) Normalize(text string) string {
	return textnorm.Normalize(text)
}

// Expand normalizes text and appends vocabulary expansions for its detected language.
func (e *Engine) Expand(text string) string {
	return e.optimizer.Expand(text)
}
