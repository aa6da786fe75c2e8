package e2e

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/iftaa/internal/models"
)

// SupportedFileExtensions are the import formats exercised by the file-based tests.
var SupportedFileExtensions = []string{".json", ".jsonl", ".csv", ".xlsx"}

var tableHeader = []string{
	"fatwa_id", "title", "question", "answer",
	"title_en", "question_en", "answer_en",
	"category", "tags", "language", "inactive",
}

// EncodeFatwas renders fatwas in the import format for ext.
func EncodeFatwas(ext string, fatwas []*models.FatwaInput) ([]byte, error) {
	switch ext {
	case ".json":
		return json.Marshal(map[string]interface{}{"fatwas": fatwas})
	case ".jsonl":
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		for _, f := range fatwas {
			if err := enc.Encode(f); err != nil {
				return nil, err
			}
		}
		return buf.Bytes(), nil
	case ".csv":
		var buf bytes.Buffer
		w := csv.NewWriter(&buf)
		if err := w.Write(tableHeader); err != nil {
			return nil, err
		}
		for _, f := range fatwas {
			if err := w.Write(tableRow(f)); err != nil {
				return nil, err
			}
		}
		w.Flush()
		return buf.Bytes(), w.Error()
	case ".xlsx":
		return encodeXlsx(fatwas)
	default:
		return nil, fmt.Errorf("unsupported fixture extension %q", ext)
	}
}

func tableRow(f *models.FatwaInput) []string {
	return []string{
		strconv.FormatInt(f.FatwaID, 10), f.Title, f.Question, f.Answer,
		f.TitleEn, f.QuestionEn, f.AnswerEn,
		f.Category, strings.Join(f.Tags, ";"), f.Language, strconv.FormatBool(f.Inactive),
	}
}

func encodeXlsx(fatwas []*models.FatwaInput) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	const sheet = "Sheet1"
	if err := f.SetSheetRow(sheet, "A1", &tableHeader); err != nil {
		return nil, err
	}
	for i, fatwa := range fatwas {
		row := tableRow(fatwa)
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, err
		}
	}
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SplitByExtension deals fatwas round-robin across the supported formats.
func SplitByExtension(fatwas []*models.FatwaInput) map[string][]*models.FatwaInput {
	out := make(map[string][]*models.FatwaInput, len(SupportedFileExtensions))
	for i, f := range fatwas {
		ext := SupportedFileExtensions[i%len(SupportedFileExtensions)]
		out[ext] = append(out[ext], f)
	}
	return out
}
