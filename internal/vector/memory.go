package vector

import (
	"bufio"
	"container/heap"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// memoryMagic prefixes every file written by MemoryIndex.Save.
var memoryMagic = [4]byte{'I', 'F', 'V', '1'}

// MemoryIndex is an exact brute-force index. Vectors are unit-normalized on
// insert and stored back to back in one slab, so a score is the cosine
// similarity.
type MemoryIndex struct {
	mu   sync.RWMutex
	dims int
	ids  []int64
	slab []float32 // len(ids) * dims
	slot map[int64]int
}

// NewMemoryIndex creates an empty index for vectors of the given size.
func NewMemoryIndex(dimensions int) (*MemoryIndex, error) {
	if dimensions <= 0 {
		return nil, errors.New("dimensions must be positive")
	}
	return &MemoryIndex{dims: dimensions, slot: make(map[int64]int)}, nil
}

// Type returns the index type identifier.
func (m *MemoryIndex) Type() string { return string(IndexTypeMemory) }

func (m *MemoryIndex) row(i int) []float32 { return m.slab[i*m.dims : (i+1)*m.dims] }

// Add inserts vectors; an id already present has its vector replaced.
func (m *MemoryIndex) Add(_ context.Context, ids []int64, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("got %d ids for %d vectors", len(ids), len(vectors))
	}
	for _, v := range vectors {
		if len(v) != m.dims {
			return ErrDimensionMismatch{Expected: m.dims, Got: len(v)}
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, id := range ids {
		vec := normalized(vectors[i])
		if s, ok := m.slot[id]; ok {
			copy(m.row(s), vec)
			continue
		}
		m.slot[id] = len(m.ids)
		m.ids = append(m.ids, id)
		m.slab = append(m.slab, vec...)
	}
	return nil
}

// hitHeap is a min-heap of the current top-k; the root is the weakest hit.
type hitHeap []VectorResult

func (h hitHeap) Len() int           { return len(h) }
func (h hitHeap) Less(i, j int) bool { return lessHit(h[i], h[j]) }
func (h hitHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *hitHeap) Push(x any)        { *h = append(*h, x.(VectorResult)) }
func (h *hitHeap) Pop() any {
	old := *h
	x := old[len(old)-1]
	*h = old[:len(old)-1]
	return x
}

// Search returns the k best vectors by cosine similarity, best first. Equal
// scores are ordered by ascending id.
func (m *MemoryIndex) Search(_ context.Context, query []float32, k int) ([]*VectorResult, error) {
	if len(query) != m.dims {
		return nil, ErrDimensionMismatch{Expected: m.dims, Got: len(query)}
	}
	q := normalized(query)
	m.mu.RLock()
	defer m.mu.RUnlock()
	if k <= 0 || len(m.ids) == 0 {
		return nil, nil
	}

	top := make(hitHeap, 0, k+1)
	for i, id := range m.ids {
		hit := VectorResult{FatwaID: id, Score: InnerProduct(q, m.row(i))}
		if len(top) < k {
			heap.Push(&top, hit)
			continue
		}
		if lessHit(top[0], hit) {
			top[0] = hit
			heap.Fix(&top, 0)
		}
	}

	out := make([]*VectorResult, len(top))
	for i := len(top) - 1; i >= 0; i-- {
		hit := heap.Pop(&top).(VectorResult)
		out[i] = &hit
	}
	return out, nil
}

// lessHit reports whether a ranks below b.
func lessHit(a, b VectorResult) bool {
	if a.Score != b.Score {
		return a.Score < b.Score
	}
	return a.FatwaID > b.FatwaID
}

// Remove drops vectors by id. Unknown ids are ignored.
func (m *MemoryIndex) Remove(_ context.Context, ids []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		s, ok := m.slot[id]
		if !ok {
			continue
		}
		last := len(m.ids) - 1
		if s != last {
			moved := m.ids[last]
			m.ids[s] = moved
			copy(m.row(s), m.row(last))
			m.slot[moved] = s
		}
		m.ids = m.ids[:last]
		m.slab = m.slab[:last*m.dims]
		delete(m.slot, id)
	}
	return nil
}

// Save writes the index to path atomically. Layout, little endian:
// magic, dims uint32, count uint32, ids [count]int64, vectors [count*dims]float32.
func (m *MemoryIndex) Save(path string) error {
	if path == "" {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	return writeAtomic(path, func(f *os.File) error {
		w := bufio.NewWriter(f)
		for _, part := range []any{memoryMagic, uint32(m.dims), uint32(len(m.ids)), m.ids, m.slab} {
			if err := binary.Write(w, binary.LittleEndian, part); err != nil {
				return fmt.Errorf("write index: %w", err)
			}
		}
		return w.Flush()
	})
}

// Load replaces the index contents from path. A missing file leaves the index
// unchanged; a file of another dimension is an error.
func (m *MemoryIndex) Load(path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open index file: %w", err)
	}
	defer f.Close()
	ids, slab, err := m.decode(bufio.NewReader(f))
	if err != nil {
		return err
	}
	slot := make(map[int64]int, len(ids))
	for i, id := range ids {
		slot[id] = i
	}
	m.mu.Lock()
	m.ids, m.slab, m.slot = ids, slab, slot
	m.mu.Unlock()
	return nil
}

func (m *MemoryIndex) decode(r io.Reader) ([]int64, []float32, error) {
	var header struct {
		Magic [4]byte
		Dims  uint32
		Count uint32
	}
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	if header.Magic != memoryMagic {
		return nil, nil, fmt.Errorf("not a vector index file (magic %q)", header.Magic[:])
	}
	if int(header.Dims) != m.dims {
		return nil, nil, ErrDimensionMismatch{Expected: m.dims, Got: int(header.Dims)}
	}
	ids := make([]int64, header.Count)
	slab := make([]float32, int(header.Count)*m.dims)
	if err := binary.Read(r, binary.LittleEndian, ids); err != nil {
		return nil, nil, fmt.Errorf("read ids: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, slab); err != nil {
		return nil, nil, fmt.Errorf("read vectors: %w", err)
	}
	return ids, slab, nil
}

// Size returns the number of vectors held.
func (m *MemoryIndex) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.ids)
}

// Close is a no-op.
func (m *MemoryIndex) Close() error { return nil }
