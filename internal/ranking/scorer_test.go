package ranking

import (
	"math"
	"testing"

	"github.com/hyperjump/iftaa/internal/models"
)

func TestScorer_Score(t *testing.T) {
	s := NewScorer(Weights{})
	tests := []struct {
		name  string
		query string
		f     *models.Fatwa
		want  float64
	}{
		{
			name:  "full query and terms in title",
			query: "صلاة الجماعة",
			f:     &models.Fatwa{TitleAr: "حكم صلاة الجماعة"},
			// 10 (query in title) + 5 + 5 (two terms in title)
			want: 20.0 / 25,
		},
		{
			name:  "everything matches clamps to 1",
			query: "صلاة الجماعة",
			f: &models.Fatwa{
				TitleAr:    "صلاة الجماعة",
				QuestionAr: "ما حكم صلاة الجماعة",
				AnswerAr:   "صلاة الجماعة واجبة",
				Category:   "صلاة الجماعة",
			},
			want: 1.0,
		},
		{
			name:  "no match floors at 0.1",
			query: "زكاة",
			f:     &models.Fatwa{TitleAr: "الصيام"},
			want:  0.1,
		},
		{
			name:  "english title counts once with arabic",
			query: "prayer",
			f:     &models.Fatwa{TitleAr: "صلاة", TitleEn: "Prayer times", QuestionEn: "When is prayer?"},
			// 10 + 5 (title) + 7 + 3 (question)
			want: 25.0 / 25,
		},
		{
			name:  "folded matching ignores diacritics",
			query: "الصلاة",
			f:     &models.Fatwa{AnswerAr: "الصَّلاةُ"},
			// 5 (query in answer), term in answer scores nothing
			want: 5.0 / 25,
		},
		{
			name:  "short tokens are not terms",
			query: "في",
			f:     &models.Fatwa{QuestionAr: "الصلاة في السفر"},
			want:  7.0 / 25,
		},
		{
			name:  "empty query",
			query: "   ",
			f:     &models.Fatwa{TitleAr: "أي شيء"},
			want:  0.1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Score(tt.query, tt.f)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Score() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScorer_Bounds(t *testing.T) {
	s := NewScorer(DefaultWeights())
	queries := []string{"", "a", "صلاة", "prayer ruling friday", "حكم صلاة الجماعة في المسجد"}
	f := &models.Fatwa{TitleAr: "حكم صلاة الجماعة", TitleEn: "Friday prayer ruling", QuestionAr: "صلاة", Category: "صلاة"}
	for _, q := range queries {
		got := s.Score(q, f)
		if got < 0.1 || got > 1.0 {
			t.Errorf("Score(%q) = %v out of [0.1, 1]", q, got)
		}
	}
}

func TestWeights_ApplyDefaults(t *testing.T) {
	w := Weights{TitleQuery: 20}
	w.ApplyDefaults()
	if w.TitleQuery != 20 {
		t.Errorf("explicit weight overwritten: %v", w.TitleQuery)
	}
	if w.Normalizer != 25 || w.MinScore != 0.1 || w.MaxScore != 1.0 {
		t.Errorf("defaults not applied: %+v", w)
	}
}
