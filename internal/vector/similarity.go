package vector

import "github.com/hyperjump/iftaa/pkg/utils"

// InnerProduct returns the inner product of two vectors (for normalized vectors equals cosine similarity).
func InnerProduct(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i] * b[i])
	}
	return dot
}

// normalized returns a unit-length copy of v so callers' slices stay untouched.
func normalized(v []float32) []float32 {
	return utils.Normalized(v)
}
