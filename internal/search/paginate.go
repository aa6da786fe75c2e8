package search

// Paginate returns the ids of the 1-based page. A page past the end is empty.
func Paginate(ids []int64, page, pageSize int) []int64 {
	if page < 1 || pageSize < 1 {
		return []int64{}
	}
	start := (page - 1) * pageSize
	if start >= len(ids) {
		return []int64{}
	}
	end := start + pageSize
	if end > len(ids) {
		end = len(ids)
	}
	return ids[start:end]
}

// candidateLimit is the per-strategy cap; it always covers the requested page twice over.
func candidateLimit(base, page, pageSize int) int {
	limit := 2 * page * pageSize
	if base > limit {
		limit = base
	}
	if limit > maxCandidateLimit {
		limit = maxCandidateLimit
	}
	return limit
}

const maxCandidateLimit = 5000
