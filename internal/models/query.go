package models

import (
	"fmt"
	"strings"
)

const (
	// DefaultPageSize is used when a request leaves page_size unset.
	DefaultPageSize = 10
	// MaxPageSize is the largest page a caller may request.
	MaxPageSize = 100
)

// SearchQuery represents a search request.
type SearchQuery struct {
	Query    string `json:"query"`
	Language string `json:"language,omitempty"` // "", "auto", "ar" or "en"
	Page     int    `json:"page,omitempty"`
	PageSize int    `json:"page_size,omitempty"`
}

// Validate rejects empty queries and out-of-range paging.
func (q *SearchQuery) Validate() error {
	if strings.TrimSpace(q.Query) == "" {
		return fmt.Errorf("%w: query cannot be empty", ErrInvalidInput)
	}
	if q.Page < 1 {
		return fmt.Errorf("%w: page must be >= 1, got %d", ErrInvalidInput, q.Page)
	}
	if q.PageSize < 1 || q.PageSize > MaxPageSize {
		return fmt.Errorf("%w: page_size must be in [1,%d], got %d", ErrInvalidInput, MaxPageSize, q.PageSize)
	}
	return nil
}

// ApplyDefaults fills a zero page and page size. Explicit invalid values are left for Validate.
func (q *SearchQuery) ApplyDefaults() {
	if q.Page == 0 {
		q.Page = 1
	}
	if q.PageSize == 0 {
		q.PageSize = DefaultPageSize
	}
}
