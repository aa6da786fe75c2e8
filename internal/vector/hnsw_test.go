package vector

import (
	"context"
	"path/filepath"
	"testing"
)

func TestHNSWIndex_AddSearchRemove(t *testing.T) {
	idx, err := NewHNSWIndex(3, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	ctx := context.Background()

	err = idx.Add(ctx, []int64{1, 2, 3}, [][]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}})
	if err != nil {
		t.Fatal(err)
	}
	results, err := idx.Search(ctx, []float32{0, 1, 0.1}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].FatwaID != 2 {
		t.Fatalf("expected id 2, got %+v", results)
	}

	_ = idx.Remove(ctx, []int64{2})
	if idx.Size() != 2 {
		t.Errorf("Size=%d, want 2", idx.Size())
	}
	results, _ = idx.Search(ctx, []float32{0, 1, 0.1}, 3)
	for _, r := range results {
		if r.FatwaID == 2 {
			t.Error("removed id returned")
		}
	}
	if len(results) != 2 {
		t.Errorf("expected both live vectors, got %d", len(results))
	}
}

func TestHNSWIndex_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "en.idx")
	idx, _ := NewHNSWIndex(2, 8, 32)
	ctx := context.Background()
	_ = idx.Add(ctx, []int64{5, 6}, [][]float32{{1, 0}, {0, 1}})
	if err := idx.Save(path); err != nil {
		t.Fatal(err)
	}

	loaded, _ := NewHNSWIndex(2, 8, 32)
	if err := loaded.Load(path); err != nil {
		t.Fatal(err)
	}
	if loaded.Size() != 2 {
		t.Fatalf("Size=%d, want 2", loaded.Size())
	}
	results, _ := loaded.Search(ctx, []float32{1, 0}, 1)
	if len(results) != 1 || results[0].FatwaID != 5 {
		t.Errorf("expected id 5, got %+v", results)
	}
}
