package vector

import (
	"context"
	"testing"
)

func TestNewVectorIndex_Types(t *testing.T) {
	for _, typ := range []string{"", "memory", "hnsw"} {
		t.Run("type="+typ, func(t *testing.T) {
			idx, err := NewVectorIndex(Options{Type: typ, Dimensions: 3})
			if err != nil {
				t.Fatalf("NewVectorIndex(%q): %v", typ, err)
			}
			defer idx.Close()
			if err := idx.Add(context.Background(), []int64{1}, [][]float32{{1, 0, 0}}); err != nil {
				t.Fatalf("Add: %v", err)
			}
			if idx.Size() != 1 {
				t.Errorf("Size=%d, want 1", idx.Size())
			}
		})
	}
}

func TestNewVectorIndex_Unknown(t *testing.T) {
	if _, err := NewVectorIndex(Options{Type: "faiss", Dimensions: 3}); err == nil {
		t.Error("expected error for unknown type")
	}
}

func TestSet_SaveLoad(t *testing.T) {
	dir := t.TempDir()
	set, err := NewSet(Options{Dimensions: 2})
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	_ = set.Arabic.Add(ctx, []int64{1}, [][]float32{{1, 0}})
	_ = set.English.Add(ctx, []int64{1, 2}, [][]float32{{1, 0}, {0, 1}})
	if err := set.Save(dir); err != nil {
		t.Fatal(err)
	}

	loaded, _ := NewSet(Options{Dimensions: 2})
	defer loaded.Close()
	if err := loaded.Load(dir); err != nil {
		t.Fatal(err)
	}
	if loaded.Arabic.Size() != 1 || loaded.English.Size() != 2 {
		t.Errorf("sizes = %d/%d, want 1/2", loaded.Arabic.Size(), loaded.English.Size())
	}
}
