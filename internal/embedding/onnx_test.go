//go:build cgo
// +build cgo

package embedding

import "testing"

func TestMeanPool(t *testing.T) {
	hidden := []float32{
		1, 2,
		3, 4,
		100, 100, // padding
	}
	got := meanPool(hidden, []int64{1, 1, 0}, 2)
	if got[0] != 2 || got[1] != 3 {
		t.Errorf("meanPool = %v, want [2 3]", got)
	}

	empty := meanPool(hidden, []int64{0, 0, 0}, 2)
	if empty[0] != 0 || empty[1] != 0 {
		t.Errorf("all-masked pool = %v, want zeros", empty)
	}
}

func TestNewONNXEmbedder_RejectsBadShape(t *testing.T) {
	if _, err := NewONNXEmbedder("model.onnx", 0, 128); err == nil {
		t.Error("expected error for zero dimensions")
	}
}
