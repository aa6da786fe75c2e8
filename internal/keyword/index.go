// Package keyword provides full-text (BM25) indexing of fatwas, used as the
// fallback retrieval strategy and as a secondary count source.
package keyword

import (
	"context"

	"github.com/hyperjump/iftaa/internal/models"
)

// SearchOptions optional parameters for keyword search. Nil means use defaults.
type SearchOptions struct {
	// TitleBoost multiplies the score contribution from title matches.
	// Use 1.0 for no boost.
	TitleBoost float64
	// Fields restricts the search to the given index fields. Empty means all text fields.
	Fields []string
}

// KeywordIndex defines keyword search operations over fatwas.
type KeywordIndex interface {
	Index(ctx context.Context, f *models.Fatwa) error
	Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*KeywordResult, error)
	// Count returns the number of indexed fatwas matching query.
	Count(ctx context.Context, query string) (int, error)
	Delete(ctx context.Context, id int64) error
	Close() error
	// DocCount returns the total number of documents in the index.
	DocCount() (uint64, error)
}

// KeywordResult is a single keyword search hit.
type KeywordResult struct {
	FatwaID int64
	Score   float64
}
