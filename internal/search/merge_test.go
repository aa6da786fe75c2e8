package search

import (
	"errors"
	"reflect"
	"testing"
)

func TestMerge(t *testing.T) {
	tests := []struct {
		name    string
		results []StrategyResult
		want    []int64
	}{
		{"empty", nil, []int64{}},
		{
			"dedup keeps first occurrence",
			[]StrategyResult{
				{Strategy: StrategyExact, IDs: []int64{3, 1}},
				{Strategy: StrategyAllTerms, IDs: []int64{1, 2}},
				{Strategy: StrategySemanticOriginal, IDs: []int64{4, 3}},
			},
			[]int64{3, 1, 2, 4},
		},
		{
			"priority independent of argument order",
			[]StrategyResult{
				{Strategy: StrategyFallback, IDs: []int64{9, 1}},
				{Strategy: StrategySemanticExpanded, IDs: []int64{7}},
				{Strategy: StrategyExact, IDs: []int64{1}},
			},
			[]int64{1, 7, 9},
		},
		{
			"failed strategies contribute nothing",
			[]StrategyResult{
				{Strategy: StrategyExact, IDs: []int64{5}},
				{Strategy: StrategyAllTerms, Err: errTest},
			},
			[]int64{5},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Merge(tt.results...); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Merge() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPaginate(t *testing.T) {
	ids := []int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
	tests := []struct {
		page, size int
		want       []int64
	}{
		{1, 5, []int64{1, 2, 3, 4, 5}},
		{3, 5, []int64{11, 12}},
		{2, 10, []int64{11, 12}},
		{5, 10, []int64{}},
		{0, 10, []int64{}},
	}
	for _, tt := range tests {
		if got := Paginate(ids, tt.page, tt.size); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Paginate(page=%d, size=%d) = %v, want %v", tt.page, tt.size, got, tt.want)
		}
	}
}

func TestCandidateLimit(t *testing.T) {
	if got := candidateLimit(300, 1, 10); got != 300 {
		t.Errorf("got %d, want base 300", got)
	}
	if got := candidateLimit(300, 40, 10); got != 800 {
		t.Errorf("got %d, want 800 for deep page", got)
	}
	if got := candidateLimit(300, 1000, 100); got != maxCandidateLimit {
		t.Errorf("got %d, want cap %d", got, maxCandidateLimit)
	}
}

func TestStrategy_String(t *testing.T) {
	names := []string{"exact", "all_terms", "semantic_original", "semantic_expanded", "fallback"}
	for i, want := range names {
		if got := Strategy(i).String(); got != want {
			t.Errorf("Strategy(%d) = %q, want %q", i, got, want)
		}
	}
}

var errTest = errors.New("test failure")
