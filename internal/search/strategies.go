package search

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/iftaa/internal/keyword"
	"github.com/hyperjump/iftaa/internal/language"
	"github.com/hyperjump/iftaa/internal/models"
	"github.com/hyperjump/iftaa/internal/optimizer"
	"github.com/hyperjump/iftaa/internal/storage"
	"github.com/hyperjump/iftaa/internal/vector"
)

// Strategy identifies a retrieval strategy. The numeric order is the merge priority.
type Strategy int

const (
	StrategyExact Strategy = iota
	StrategyAllTerms
	StrategySemanticOriginal
	StrategySemanticExpanded
	StrategyFallback
)

func (s Strategy) String() string {
	switch s {
	case StrategyExact:
		return "exact"
	case StrategyAllTerms:
		return "all_terms"
	case StrategySemanticOriginal:
		return "semantic_original"
	case StrategySemanticExpanded:
		return "semantic_expanded"
	case StrategyFallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// StrategyResult is the ordered candidate list of one strategy.
// A failed strategy carries Err and no ids; a skipped one never ran.
type StrategyResult struct {
	Strategy Strategy
	IDs      []int64
	Err      error
	Skipped  bool
}

// searchFields are the fields term-level strategies look in.
var searchFields = append(append([]storage.Field{}, storage.AllTextFields...), storage.FieldCategory)

// exactFields returns the text fields the exact-phrase strategy searches for lang.
func exactFields(lang language.Language) []storage.Field {
	switch lang {
	case language.Arabic:
		return storage.ArabicTextFields
	case language.Other:
		return storage.EnglishTextFields
	default:
		return storage.AllTextFields
	}
}

func exactFilter(plan optimizer.Plan) storage.Filter {
	return storage.AnyField(exactFields(plan.Language), plan.Normalized)
}

// allTermsFilter requires every term somewhere in searchFields. ok is false without terms.
func allTermsFilter(terms []string) (f storage.Filter, ok bool) {
	if len(terms) == 0 {
		return storage.Filter{}, false
	}
	children := make([]storage.Filter, len(terms))
	for i, t := range terms {
		children[i] = storage.AnyField(searchFields, t)
	}
	return storage.And(children...), true
}

// anyTermFilter matches any term in searchFields; it matches nothing without terms.
func anyTermFilter(terms []string) storage.Filter {
	children := make([]storage.Filter, 0, len(terms)*len(searchFields))
	for _, t := range terms {
		children = append(children, storage.AnyField(searchFields, t).Children...)
	}
	return storage.Or(children...)
}

func (e *Engine) failed(s Strategy, err error) StrategyResult {
	return StrategyResult{
		Strategy: s,
		Err:      models.WrapError(models.ErrUpstreamUnavailable, "search."+s.String(), err),
	}
}

func (e *Engine) runExact(ctx context.Context, plan optimizer.Plan, limit int) StrategyResult {
	ctx, cancel := context.WithTimeout(ctx, e.config.StrategyTimeout)
	defer cancel()
	ids, err := e.store.QueryIDs(ctx, exactFilter(plan), limit)
	if err != nil {
		return e.failed(StrategyExact, err)
	}
	return StrategyResult{Strategy: StrategyExact, IDs: ids}
}

func (e *Engine) runAllTerms(ctx context.Context, plan optimizer.Plan, limit int) StrategyResult {
	filter, ok := allTermsFilter(plan.Terms)
	if !ok {
		return StrategyResult{Strategy: StrategyAllTerms, Skipped: true}
	}
	ctx, cancel := context.WithTimeout(ctx, e.config.StrategyTimeout)
	defer cancel()
	ids, err := e.store.QueryIDs(ctx, filter, limit)
	if err != nil {
		return e.failed(StrategyAllTerms, err)
	}
	return StrategyResult{Strategy: StrategyAllTerms, IDs: ids}
}

// vectorIndexFor picks the Arabic index for Arabic and undetermined queries.
func (e *Engine) vectorIndexFor(lang language.Language) vector.VectorIndex {
	if e.vectors == nil {
		return nil
	}
	if lang == language.Other {
		return e.vectors.English
	}
	return e.vectors.Arabic
}

func (e *Engine) runSemantic(ctx context.Context, s Strategy, text string, lang language.Language, k int) StrategyResult {
	idx := e.vectorIndexFor(lang)
	if e.embedder == nil || idx == nil || strings.TrimSpace(text) == "" || k <= 0 {
		return StrategyResult{Strategy: s, Skipped: true}
	}
	ctx, cancel := context.WithTimeout(ctx, e.config.StrategyTimeout)
	defer cancel()
	vec, err := e.embedder.Embed(ctx, text)
	if err != nil {
		return e.failed(s, err)
	}
	hits, err := idx.Search(ctx, vec, k)
	if err != nil {
		return e.failed(s, err)
	}
	ids := make([]int64, len(hits))
	for i, h := range hits {
		ids[i] = h.FatwaID
	}
	return StrategyResult{Strategy: s, IDs: ids}
}

// runFallback tries the full-text index first and falls back to a substring
// scan for any term when it errors or finds nothing.
func (e *Engine) runFallback(ctx context.Context, plan optimizer.Plan, limit int) StrategyResult {
	var kwErr error
	if e.keyword != nil && plan.Normalized != "" {
		kctx, cancel := context.WithTimeout(ctx, e.config.StrategyTimeout)
		hits, err := e.keyword.Search(kctx, plan.Normalized, limit, &keyword.SearchOptions{TitleBoost: e.config.KeywordTitleBoost})
		cancel()
		if err == nil && len(hits) > 0 {
			ids := make([]int64, len(hits))
			for i, h := range hits {
				ids[i] = h.FatwaID
			}
			return StrategyResult{Strategy: StrategyFallback, IDs: ids}
		}
		if err != nil {
			kwErr = err
			e.logger.Warn("keyword fallback failed, scanning store", zap.Error(err))
		}
	}
	if len(plan.Terms) == 0 {
		if kwErr != nil {
			return e.failed(StrategyFallback, kwErr)
		}
		return StrategyResult{Strategy: StrategyFallback}
	}
	sctx, cancel := context.WithTimeout(ctx, e.config.StrategyTimeout)
	defer cancel()
	ids, err := e.store.QueryIDs(sctx, anyTermFilter(plan.Terms), limit)
	if err != nil {
		return e.failed(StrategyFallback, err)
	}
	return StrategyResult{Strategy: StrategyFallback, IDs: ids}
}
