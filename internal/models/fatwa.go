// Package models defines core data structures for fatwas, queries, and search results.
package models

import "time"

// Fatwa is the canonical ruling record held by the document store.
type Fatwa struct {
	FatwaID    int64     `json:"fatwa_id"`
	TitleAr    string    `json:"title_ar"`
	TitleEn    string    `json:"title_en,omitempty"`
	QuestionAr string    `json:"question_ar"`
	QuestionEn string    `json:"question_en,omitempty"`
	AnswerAr   string    `json:"answer_ar"`
	AnswerEn   string    `json:"answer_en,omitempty"`
	Category   string    `json:"category,omitempty"`
	Tags       []string  `json:"tags,omitempty"`
	IsActive   bool      `json:"is_active"`
	IsEmbedded bool      `json:"is_embedded"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// HasEnglish reports whether the record carries an English title.
func (f *Fatwa) HasEnglish() bool {
	return f.TitleEn != ""
}

// FatwaInput is the ingestion shape for a single fatwa.
// Title, Question and Answer are in Language; the *En fields are optional
// English companions for Arabic sources.
type FatwaInput struct {
	FatwaID    int64    `json:"fatwa_id"`
	Title      string   `json:"title"`
	Question   string   `json:"question"`
	Answer     string   `json:"answer"`
	TitleEn    string   `json:"title_en,omitempty"`
	QuestionEn string   `json:"question_en,omitempty"`
	AnswerEn   string   `json:"answer_en,omitempty"`
	Category   string   `json:"category,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	Language   string   `json:"language,omitempty"` // "ar" (default) or "en"
	Inactive   bool     `json:"inactive,omitempty"`
}

// ToFatwa maps the input onto the stored record layout.
func (in *FatwaInput) ToFatwa() *Fatwa {
	f := &Fatwa{
		FatwaID:  in.FatwaID,
		Category: in.Category,
		Tags:     append([]string(nil), in.Tags...),
		IsActive: !in.Inactive,
	}
	if in.Language == "en" {
		f.TitleEn, f.QuestionEn, f.AnswerEn = in.Title, in.Question, in.Answer
		return f
	}
	f.TitleAr, f.QuestionAr, f.AnswerAr = in.Title, in.Question, in.Answer
	f.TitleEn, f.QuestionEn, f.AnswerEn = in.TitleEn, in.QuestionEn, in.AnswerEn
	return f
}

// Category groups fatwas under an optional parent.
type Category struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	ParentID    *int64  `json:"parent_id,omitempty"`
	Description string  `json:"description,omitempty"`
	FatwaIDs    []int64 `json:"fatwa_ids,omitempty"`
}
