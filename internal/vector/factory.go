package vector

import (
	"fmt"
	"path/filepath"
)

// IndexType represents the type of vector index to use.
type IndexType string

const (
	// IndexTypeMemory uses in-memory brute-force search. Good for small datasets (<10k vectors).
	IndexTypeMemory IndexType = "memory"
	// IndexTypeHNSW uses an approximate HNSW graph. Good for large datasets.
	IndexTypeHNSW IndexType = "hnsw"
)

// Options configures NewVectorIndex.
type Options struct {
	Type       string
	Dimensions int
	M          int // HNSW only
	EfSearch   int // HNSW only
}

// NewVectorIndex creates a vector index of the specified type.
// Supported types: "memory" (default), "hnsw".
func NewVectorIndex(opts Options) (VectorIndex, error) {
	switch IndexType(opts.Type) {
	case IndexTypeMemory, "":
		return NewMemoryIndex(opts.Dimensions)
	case IndexTypeHNSW:
		return NewHNSWIndex(opts.Dimensions, opts.M, opts.EfSearch)
	default:
		return nil, fmt.Errorf("unknown index type: %s (supported: memory, hnsw)", opts.Type)
	}
}

// Set holds one vector index per language collection.
type Set struct {
	Arabic  VectorIndex
	English VectorIndex
}

// NewSet creates the Arabic and English indexes with the same options.
func NewSet(opts Options) (*Set, error) {
	arIdx, err := NewVectorIndex(opts)
	if err != nil {
		return nil, err
	}
	enIdx, err := NewVectorIndex(opts)
	if err != nil {
		_ = arIdx.Close()
		return nil, err
	}
	return &Set{Arabic: arIdx, English: enIdx}, nil
}

// Files under a vector directory.
const (
	ArabicFile  = "ar.idx"
	EnglishFile = "en.idx"
)

// Save persists both indexes under dir.
func (s *Set) Save(dir string) error {
	if dir == "" {
		return nil
	}
	if err := s.Arabic.Save(filepath.Join(dir, ArabicFile)); err != nil {
		return fmt.Errorf("save arabic index: %w", err)
	}
	if err := s.English.Save(filepath.Join(dir, EnglishFile)); err != nil {
		return fmt.Errorf("save english index: %w", err)
	}
	return nil
}

// Load restores both indexes from dir. Missing files leave the indexes empty.
func (s *Set) Load(dir string) error {
	if dir == "" {
		return nil
	}
	if err := s.Arabic.Load(filepath.Join(dir, ArabicFile)); err != nil {
		return fmt.Errorf("load arabic index: %w", err)
	}
	if err := s.English.Load(filepath.Join(dir, EnglishFile)); err != nil {
		return fmt.Errorf("load english index: %w", err)
	}
	return nil
}

// Close closes both indexes.
func (s *Set) Close() error {
	errA := s.Arabic.Close()
	errE := s.English.Close()
	if errA != nil {
		return errA
	}
	return errE
}
