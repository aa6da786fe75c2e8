package extract

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/hyperjump/iftaa/internal/models"
)

// Column names accepted in CSV and spreadsheet header rows (case-insensitive).
const (
	colFatwaID    = "fatwa_id"
	colTitle      = "title"
	colQuestion   = "question"
	colAnswer     = "answer"
	colTitleEn    = "title_en"
	colQuestionEn = "question_en"
	colAnswerEn   = "answer_en"
	colCategory   = "category"
	colTags       = "tags"
	colLanguage   = "language"
	colInactive   = "inactive"
)

// header maps a column name to its index.
type header map[string]int

func parseHeader(row []string) (header, error) {
	h := make(header, len(row))
	for i, name := range row {
		h[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}
	if _, ok := h[colFatwaID]; !ok {
		return nil, fmt.Errorf("%w: header row has no %s column", models.ErrInvalidInput, colFatwaID)
	}
	return h, nil
}

func (h header) get(row []string, col string) string {
	i, ok := h[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// splitTags accepts ";", "|" or "," separated tags.
func splitTags(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ';' || r == '|' || r == ',' || r == '،' })
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}

// recordsFromRows maps a header row plus data rows onto fatwa inputs.
// Blank rows are skipped; line numbers in errors are 1-based including the header.
func recordsFromRows(rows [][]string) ([]*models.FatwaInput, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	h, err := parseHeader(rows[0])
	if err != nil {
		return nil, err
	}
	records := make([]*models.FatwaInput, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		id, err := strconv.ParseInt(h.get(row, colFatwaID), 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("%w: row %d: invalid fatwa_id %q", models.ErrInvalidInput, i+2, h.get(row, colFatwaID))
		}
		inactive, _ := strconv.ParseBool(h.get(row, colInactive))
		records = append(records, &models.FatwaInput{
			FatwaID:    id,
			Title:      h.get(row, colTitle),
			Question:   h.get(row, colQuestion),
			Answer:     h.get(row, colAnswer),
			TitleEn:    h.get(row, colTitleEn),
			QuestionEn: h.get(row, colQuestionEn),
			AnswerEn:   h.get(row, colAnswerEn),
			Category:   h.get(row, colCategory),
			Tags:       splitTags(h.get(row, colTags)),
			Language:   strings.ToLower(h.get(row, colLanguage)),
			Inactive:   inactive,
		})
	}
	return records, nil
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func extractCSV(content []byte) ([]*models.FatwaInput, error) {
	r := csv.NewReader(bytes.NewReader(content))
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse CSV: %w", err)
	}
	return recordsFromRows(rows)
}
