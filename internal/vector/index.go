// Package vector provides per-language vector indexes over fatwa embeddings.
package vector

import (
	"context"
	"fmt"
)

// VectorIndex defines vector storage and similarity search.
// Adding an id that is already present replaces its vector.
type VectorIndex interface {
	Add(ctx context.Context, ids []int64, vectors [][]float32) error
	Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error)
	Remove(ctx context.Context, ids []int64) error
	Save(path string) error
	Load(path string) error
	Size() int
	Close() error
}

// VectorResult is a single vector search hit.
type VectorResult struct {
	FatwaID int64
	Score   float64 // cosine similarity for normalized vectors
}

// ErrDimensionMismatch reports a vector whose length differs from the index dimensions.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("vector dimension mismatch: got %d, expected %d", e.Got, e.Expected)
}
