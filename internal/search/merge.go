package search

import "sort"

// Merge concatenates strategy results in priority order, keeping the first
// occurrence of each fatwa id. Order within a strategy is preserved.
func Merge(results ...StrategyResult) []int64 {
	ordered := make([]StrategyResult, len(results))
	copy(ordered, results)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Strategy < ordered[j].Strategy })

	seen := make(map[int64]struct{})
	merged := make([]int64, 0)
	for _, r := range ordered {
		for _, id := range r.IDs {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			merged = append(merged, id)
		}
	}
	return merged
}
