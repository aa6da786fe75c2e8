package search

import (
	"context"

	"go.uber.org/zap"

	"github.com/hyperjump/iftaa/internal/models"
	"github.com/hyperjump/iftaa/internal/storage"
)

// countTotal counts matches of filter in the store, falling back to the
// keyword index total and then to merged. The result is never below merged.
func (e *Engine) countTotal(ctx context.Context, filter storage.Filter, keywordQuery string, merged int) (total int, approximate bool) {
	cctx, cancel := context.WithTimeout(ctx, e.config.CountTimeout)
	n, err := e.store.Count(cctx, filter)
	cancel()
	if err == nil {
		return max(n, merged), false
	}
	e.logger.Warn("count query failed", zap.Error(models.WrapError(models.ErrDegradedCount, "search.count", err)))

	if e.keyword != nil && keywordQuery != "" {
		kctx, cancel := context.WithTimeout(ctx, e.config.CountTimeout)
		n, kerr := e.keyword.Count(kctx, keywordQuery)
		cancel()
		if kerr == nil {
			return max(n, merged), true
		}
		e.logger.Warn("keyword count failed", zap.Error(models.WrapError(models.ErrDegradedCount, "search.count", kerr)))
	}
	return merged, true
}
