package models

import "time"

// SearchResult is a single scored fatwa in the response language.
type SearchResult struct {
	FatwaID        int64     `json:"fatwa_id"`
	Title          string    `json:"title"`
	Question       string    `json:"question"`
	Answer         string    `json:"answer"`
	Category       string    `json:"category"`
	Tags           []string  `json:"tags"`
	Language       string    `json:"language"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	RelevanceScore float64   `json:"relevance_score"`
	Rank           int       `json:"rank"`
}

// SearchResponse is the response for a search request.
// TotalCount is an advisory estimate when CountApproximate is set; the
// Results slice is always consistent with Page and PageSize.
type SearchResponse struct {
	Results    []*SearchResult `json:"results"`
	TotalCount int             `json:"total_count"`
	Page       int             `json:"page"`
	PageSize   int             `json:"page_size"`
	Query      string          `json:"query"`
	Language   string          `json:"language"`
	Confidence float64         `json:"confidence"`
	QueryTime  int64           `json:"query_time_ms"`

	FastPath         bool     `json:"fast_path,omitempty"`
	CountApproximate bool     `json:"count_approximate,omitempty"`
	Degraded         bool     `json:"degraded,omitempty"`
	FailedStrategies []string `json:"failed_strategies,omitempty"`
}

// NewSearchResult projects f into the requested response language.
// English is used only when requested and the record has an English title;
// individual empty English fields fall back to Arabic.
func NewSearchResult(f *Fatwa, english bool) *SearchResult {
	r := &SearchResult{
		FatwaID:   f.FatwaID,
		Category:  f.Category,
		Tags:      f.Tags,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
	if r.Tags == nil {
		r.Tags = []string{}
	}
	if english && f.HasEnglish() {
		r.Language = "en"
		r.Title = f.TitleEn
		r.Question = firstNonEmpty(f.QuestionEn, f.QuestionAr)
		r.Answer = firstNonEmpty(f.AnswerEn, f.AnswerAr)
		return r
	}
	r.Language = "ar"
	r.Title = f.TitleAr
	r.Question = f.QuestionAr
	r.Answer = f.AnswerAr
	return r
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
