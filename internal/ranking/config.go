// Package ranking scores fatwas against the user's original query.
package ranking

// Weights holds the points awarded per match kind and the normalizer.
type Weights struct {
	TitleQuery    float64 `yaml:"title_query"`    // default: 10
	TitleTerm     float64 `yaml:"title_term"`     // default: 5
	QuestionQuery float64 `yaml:"question_query"` // default: 7
	QuestionTerm  float64 `yaml:"question_term"`  // default: 3
	AnswerQuery   float64 `yaml:"answer_query"`   // default: 5
	CategoryQuery float64 `yaml:"category_query"` // default: 3

	Normalizer float64 `yaml:"normalizer"` // default: 25
	MinScore   float64 `yaml:"min_score"`  // default: 0.1
	MaxScore   float64 `yaml:"max_score"`  // default: 1.0
}

// DefaultWeights returns the default scoring weights.
func DefaultWeights() Weights {
	return Weights{
		TitleQuery:    10,
		TitleTerm:     5,
		QuestionQuery: 7,
		QuestionTerm:  3,
		AnswerQuery:   5,
		CategoryQuery: 3,

		Normalizer: 25,
		MinScore:   0.1,
		MaxScore:   1.0,
	}
}

// ApplyDefaults fills in zero values with defaults.
func (w *Weights) ApplyDefaults() {
	d := DefaultWeights()

	if w.TitleQuery == 0 {
		w.TitleQuery = d.TitleQuery
	}
	if w.TitleTerm == 0 {
		w.TitleTerm = d.TitleTerm
	}
	if w.QuestionQuery == 0 {
		w.QuestionQuery = d.QuestionQuery
	}
	if w.QuestionTerm == 0 {
		w.QuestionTerm = d.QuestionTerm
	}
	if w.AnswerQuery == 0 {
		w.AnswerQuery = d.AnswerQuery
	}
	if w.CategoryQuery == 0 {
		w.CategoryQuery = d.CategoryQuery
	}
	if w.Normalizer <= 0 {
		w.Normalizer = d.Normalizer
	}
	if w.MinScore == 0 {
		w.MinScore = d.MinScore
	}
	if w.MaxScore == 0 {
		w.MaxScore = d.MaxScore
	}
	if w.MaxScore < w.MinScore {
		w.MaxScore = w.MinScore
	}
}
