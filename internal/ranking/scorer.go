package ranking

import (
	"strings"

	"github.com/hyperjump/iftaa/internal/models"
	"github.com/hyperjump/iftaa/internal/textnorm"
)

// Scorer computes a bounded relevance score from substring matches of the
// query and its terms in a fatwa's fields. Arabic and English fields of the
// same kind are checked together; a match in either counts once.
type Scorer struct {
	weights Weights
}

// NewScorer returns a scorer; zero weights take defaults.
func NewScorer(w Weights) *Scorer {
	w.ApplyDefaults()
	return &Scorer{weights: w}
}

// Weights returns the effective weights.
func (s *Scorer) Weights() Weights {
	return s.weights
}

// Query is a query folded once for scoring many fatwas.
type Query struct {
	Full  string
	Terms []string
}

// PrepareQuery folds text and extracts its scoring terms.
func PrepareQuery(text string) Query {
	full := textnorm.Fold(text)
	return Query{Full: full, Terms: textnorm.Terms(full)}
}

// Score returns the relevance of f to query, in [MinScore, MaxScore].
func (s *Scorer) Score(query string, f *models.Fatwa) float64 {
	return s.ScorePrepared(PrepareQuery(query), f)
}

// ScorePrepared is Score for an already prepared query.
func (s *Scorer) ScorePrepared(q Query, f *models.Fatwa) float64 {
	w := s.weights
	titles := folded(f.TitleAr, f.TitleEn)
	questions := folded(f.QuestionAr, f.QuestionEn)
	answers := folded(f.AnswerAr, f.AnswerEn)
	category := textnorm.Fold(f.Category)

	var raw float64
	if q.Full != "" {
		if anyContains(titles, q.Full) {
			raw += w.TitleQuery
		}
		if anyContains(questions, q.Full) {
			raw += w.QuestionQuery
		}
		if anyContains(answers, q.Full) {
			raw += w.AnswerQuery
		}
		if strings.Contains(category, q.Full) {
			raw += w.CategoryQuery
		}
	}
	for _, term := range q.Terms {
		if anyContains(titles, term) {
			raw += w.TitleTerm
		}
		if anyContains(questions, term) {
			raw += w.QuestionTerm
		}
	}

	return min(max(raw/w.Normalizer, w.MinScore), w.MaxScore)
}

func folded(fields ...string) []string {
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f != "" {
			out = append(out, textnorm.Fold(f))
		}
	}
	return out
}

func anyContains(haystacks []string, needle string) bool {
	for _, h := range haystacks {
		if strings.Contains(h, needle) {
			return true
		}
	}
	return false
}
