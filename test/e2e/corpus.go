// Package e2e provides end-to-end tests with a generated fatwa corpus and multiple queries.
package e2e

import (
	"fmt"

	"github.com/hyperjump/iftaa/internal/models"
)

// QueryTestCase defines a query and the fatwa id that must appear on the first page.
type QueryTestCase struct {
	Query       string
	Language    string // expected detected language
	ExpectedID  int64
	Description string
}

// Corpus holds fatwas and query test cases for E2E tests.
type Corpus struct {
	Fatwas    []*models.FatwaInput
	TestCases []QueryTestCase
}

type topic struct {
	ar, en, category string
}

var topics = []topic{
	{"الصلاة", "prayer", "العبادات"},
	{"الصيام", "fasting", "العبادات"},
	{"الزكاة", "zakat", "الزكاة"},
	{"الحج", "pilgrimage", "الحج"},
	{"النكاح", "marriage", "الأسرة"},
	{"الطلاق", "divorce", "الأسرة"},
	{"البيع", "trade", "المعاملات"},
	{"الميراث", "inheritance", "المواريث"},
	{"الطهارة", "purification", "العبادات"},
	{"الأضحية", "sacrifice", "العبادات"},
}

type qualifier struct {
	ar, en string
}

var qualifiers = []qualifier{
	{"في السفر البعيد", "during long journeys"},
	{"للمريض العاجز", "for the disabled patient"},
	{"في البلاد الباردة", "in cold countries"},
	{"عند الضرورة القصوى", "under extreme necessity"},
	{"للمرأة الحامل", "for the pregnant woman"},
	{"في المعاملات البنكية", "in banking dealings"},
	{"على الطالب المغترب", "for the student abroad"},
	{"مع الجهل بالحكم", "when unaware of the ruling"},
	{"بعد خروج الوقت", "after the time has passed"},
	{"في الطائرة المسافرة", "aboard an aircraft"},
}

// BuildCorpus returns one fatwa per topic and qualifier pair. Every fifth
// fatwa carries an English translation. Each title is a unique phrase so
// queries can assert the right fatwa is returned.
func BuildCorpus() *Corpus {
	c := &Corpus{}
	id := int64(0)
	for _, t := range topics {
		for qi, q := range qualifiers {
			id++
			title := fmt.Sprintf("حكم %s %s", t.ar, q.ar)
			in := &models.FatwaInput{
				FatwaID:  id,
				Title:    title,
				Question: fmt.Sprintf("ما حكم %s %s وما الدليل عليه", t.ar, q.ar),
				Answer:   fmt.Sprintf("الجواب في مسألة %s %s أن الأمر فيه تفصيل عند أهل العلم", t.ar, q.ar),
				Category: t.category,
				Tags:     []string{t.ar},
			}
			if qi%5 == 0 {
				in.TitleEn = fmt.Sprintf("Ruling on %s %s", t.en, q.en)
				in.QuestionEn = fmt.Sprintf("What is the ruling on %s %s", t.en, q.en)
				in.AnswerEn = fmt.Sprintf("Scholars detail the ruling on %s %s", t.en, q.en)
			}
			c.Fatwas = append(c.Fatwas, in)

			c.TestCases = append(c.TestCases, QueryTestCase{
				Query:       fmt.Sprintf("%s %s", t.ar, q.ar),
				Language:    "ar",
				ExpectedID:  id,
				Description: "arabic title phrase",
			})
			if in.TitleEn != "" {
				c.TestCases = append(c.TestCases, QueryTestCase{
					Query:       fmt.Sprintf("%s %s", t.en, q.en),
					Language:    "en",
					ExpectedID:  id,
					Description: "english title phrase",
				})
			}
		}
	}
	return c
}

// ByCategory returns the fatwas of corpus grouped by category.
func (c *Corpus) ByCategory() map[string][]*models.FatwaInput {
	out := make(map[string][]*models.FatwaInput)
	for _, f := range c.Fatwas {
		out[f.Category] = append(out[f.Category], f)
	}
	return out
}
