// Package storage defines the fatwa document store: records, categories,
// and substring filter queries over their text fields.
package storage

import (
	"context"

	"github.com/hyperjump/iftaa/internal/models"
)

// Storage defines fatwa persistence and lookup operations.
// Query, QueryIDs, Count and FetchByIDs only see active fatwas.
type Storage interface {
	// Fatwa operations
	UpsertFatwa(ctx context.Context, f *models.Fatwa) error
	GetFatwa(ctx context.Context, id int64) (*models.Fatwa, error)
	DeleteFatwa(ctx context.Context, id int64) error
	ListFatwas(ctx context.Context, offset, limit int) ([]*models.Fatwa, error)
	SetEmbedded(ctx context.Context, id int64, embedded bool) error

	// Retrieval
	Query(ctx context.Context, filter Filter, limit int) ([]*models.Fatwa, error)
	QueryIDs(ctx context.Context, filter Filter, limit int) ([]int64, error)
	Count(ctx context.Context, filter Filter) (int, error)
	// FetchByIDs returns the active fatwas among ids in no particular order.
	FetchByIDs(ctx context.Context, ids []int64) ([]*models.Fatwa, error)

	// Categories
	UpsertCategory(ctx context.Context, c *models.Category) error
	GetCategory(ctx context.Context, id int64) (*models.Category, error)
	ListCategories(ctx context.Context) ([]*models.Category, error)

	// Stats
	CountFatwas(ctx context.Context) (total int64, embedded int64, err error)

	Close() error
}
