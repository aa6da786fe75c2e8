package vector

import (
	"bufio"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/coder/hnsw"
)

// HNSW defaults used when the config leaves them unset.
const (
	DefaultHNSWM        = 16
	DefaultHNSWEfSearch = 64
)

// HNSWIndex is an approximate nearest-neighbour index backed by coder/hnsw.
// Replaced or removed vectors are orphaned in the graph rather than deleted;
// they are skipped at search time and dropped on the next Load.
type HNSWIndex struct {
	mu         sync.RWMutex
	dimensions int
	graph      *hnsw.Graph[uint64]

	keys    map[int64]uint64 // fatwa id -> graph key
	ids     map[uint64]int64 // graph key -> fatwa id
	nextKey uint64
	closed  bool
}

type hnswMeta struct {
	Dimensions int
	Keys       map[int64]uint64
	NextKey    uint64
}

// NewHNSWIndex creates an empty HNSW index. Non-positive m or efSearch use defaults.
func NewHNSWIndex(dimensions, m, efSearch int) (*HNSWIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	if m <= 0 {
		m = DefaultHNSWM
	}
	if efSearch <= 0 {
		efSearch = DefaultHNSWEfSearch
	}
	g := hnsw.NewGraph[uint64]()
	g.Distance = hnsw.CosineDistance
	g.M = m
	g.EfSearch = efSearch
	g.Ml = 0.25
	return &HNSWIndex{
		dimensions: dimensions,
		graph:      g,
		keys:       make(map[int64]uint64),
		ids:        make(map[uint64]int64),
	}, nil
}

// Type returns the index type identifier.
func (h *HNSWIndex) Type() string {
	return string(IndexTypeHNSW)
}

// Add inserts or replaces vectors with the given IDs.
func (h *HNSWIndex) Add(ctx context.Context, ids []int64, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids and vectors length mismatch")
	}
	for _, v := range vectors {
		if len(v) != h.dimensions {
			return ErrDimensionMismatch{Expected: h.dimensions, Got: len(v)}
		}
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return errors.New("index is closed")
	}
	for i, id := range ids {
		if old, ok := h.keys[id]; ok {
			delete(h.ids, old)
		}
		key := h.nextKey
		h.nextKey++
		h.graph.Add(hnsw.MakeNode(key, normalized(vectors[i])))
		h.keys[id] = key
		h.ids[key] = id
	}
	return nil
}

// Search returns up to k nearest vectors by cosine similarity.
func (h *HNSWIndex) Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error) {
	if len(query) != h.dimensions {
		return nil, ErrDimensionMismatch{Expected: h.dimensions, Got: len(query)}
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return nil, errors.New("index is closed")
	}
	if k <= 0 || len(h.keys) == 0 {
		return nil, nil
	}
	q := normalized(query)
	// widen the search by the orphan count so live hits are not crowded out
	orphans := h.graph.Len() - len(h.keys)
	nodes := h.graph.Search(q, k+orphans)

	out := make([]*VectorResult, 0, k)
	for _, node := range nodes {
		id, ok := h.ids[node.Key]
		if !ok {
			continue
		}
		dist := h.graph.Distance(q, node.Value)
		out = append(out, &VectorResult{FatwaID: id, Score: float64(1 - dist)})
		if len(out) == k {
			break
		}
	}
	return out, nil
}

// Remove orphans the vectors for ids.
func (h *HNSWIndex) Remove(ctx context.Context, ids []int64) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, id := range ids {
		if key, ok := h.keys[id]; ok {
			delete(h.ids, key)
			delete(h.keys, id)
		}
	}
	return nil
}

// Save writes the graph to path and the id mapping to path+".meta".
func (h *HNSWIndex) Save(path string) error {
	if path == "" {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return errors.New("index is closed")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	if err := writeAtomic(path, func(f *os.File) error { return h.graph.Export(f) }); err != nil {
		return fmt.Errorf("export graph: %w", err)
	}
	meta := hnswMeta{Dimensions: h.dimensions, Keys: h.keys, NextKey: h.nextKey}
	if err := writeAtomic(path+".meta", func(f *os.File) error { return gob.NewEncoder(f).Encode(meta) }); err != nil {
		return fmt.Errorf("save metadata: %w", err)
	}
	return nil
}

func writeAtomic(path string, write func(*os.File) error) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// Load replaces the index contents from path. A missing file leaves the index unchanged.
func (h *HNSWIndex) Load(path string) error {
	if path == "" {
		return nil
	}
	mf, err := os.Open(path + ".meta")
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open metadata: %w", err)
	}
	var meta hnswMeta
	err = gob.NewDecoder(mf).Decode(&meta)
	mf.Close()
	if err != nil {
		return fmt.Errorf("decode metadata: %w", err)
	}
	if meta.Dimensions != h.dimensions {
		return ErrDimensionMismatch{Expected: h.dimensions, Got: meta.Dimensions}
	}

	gf, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open index file: %w", err)
	}
	defer gf.Close()
	g := hnsw.NewGraph[uint64]()
	if err := g.Import(bufio.NewReader(gf)); err != nil {
		return fmt.Errorf("import graph: %w", err)
	}

	ids := make(map[uint64]int64, len(meta.Keys))
	for id, key := range meta.Keys {
		ids[key] = id
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.graph = g
	h.keys = meta.Keys
	h.ids = ids
	h.nextKey = meta.NextKey
	return nil
}

// Size returns the number of live vectors.
func (h *HNSWIndex) Size() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.keys)
}

// Close releases the graph.
func (h *HNSWIndex) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	h.graph = nil
	return nil
}
