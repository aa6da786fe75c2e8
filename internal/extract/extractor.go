// Package extract reads fatwa import files (JSON, JSONL, CSV, XLSX) into ingestion records.
package extract

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/iftaa/internal/models"
)

// SupportedExtensions lists the file extensions Extract understands.
var SupportedExtensions = []string{".json", ".jsonl", ".csv", ".xlsx"}

// Extractor parses fatwa records from import files.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract reads the file at path and returns its fatwa records.
// Returns an error if the file cannot be read or the format is unsupported.
func (e *Extractor) Extract(path string) ([]*models.FatwaInput, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(path))
	records, err := e.ExtractBytes(content, ext)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return records, nil
}

// ExtractBytes parses content based on the given extension.
// ext should include the leading dot (e.g. ".csv").
func (e *Extractor) ExtractBytes(content []byte, ext string) ([]*models.FatwaInput, error) {
	content = validUTF8(content)
	switch ext {
	case ".json":
		return extractJSON(content)
	case ".jsonl":
		return extractJSONL(content)
	case ".csv":
		return extractCSV(content)
	case ".xlsx":
		return extractExcel(content)
	default:
		return nil, fmt.Errorf("%w: unsupported import format %q", models.ErrInvalidInput, ext)
	}
}

// extractJSON accepts a bare array or an object with a "fatwas" array.
func extractJSON(content []byte) ([]*models.FatwaInput, error) {
	trimmed := bytes.TrimSpace(content)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var wrapped struct {
			Fatwas []*models.FatwaInput `json:"fatwas"`
		}
		if err := json.Unmarshal(trimmed, &wrapped); err != nil {
			return nil, fmt.Errorf("parse JSON: %w", err)
		}
		return checkRecords(wrapped.Fatwas)
	}
	var records []*models.FatwaInput
	if err := json.Unmarshal(trimmed, &records); err != nil {
		return nil, fmt.Errorf("parse JSON: %w", err)
	}
	return checkRecords(records)
}

func extractJSONL(content []byte) ([]*models.FatwaInput, error) {
	var records []*models.FatwaInput
	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}
		var in models.FatwaInput
		if err := json.Unmarshal(text, &in); err != nil {
			return nil, fmt.Errorf("parse JSONL line %d: %w", line, err)
		}
		records = append(records, &in)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read JSONL: %w", err)
	}
	return checkRecords(records)
}

// checkRecords rejects records without a positive fatwa id.
func checkRecords(records []*models.FatwaInput) ([]*models.FatwaInput, error) {
	for i, r := range records {
		if r == nil || r.FatwaID <= 0 {
			return nil, fmt.Errorf("%w: record %d has no positive fatwa_id", models.ErrInvalidInput, i+1)
		}
	}
	return records, nil
}
