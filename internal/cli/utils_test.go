package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/hyperjump/iftaa/internal/models"
)

func sampleResponse() *models.SearchResponse {
	return &models.SearchResponse{
		Query:      "صلاة المسافر",
		Language:   "ar",
		Confidence: 1,
		QueryTime:  42,
		TotalCount: 2,
		Page:       1,
		PageSize:   10,
		Results: []*models.SearchResult{
			{
				FatwaID:        101,
				Title:          "حكم قصر الصلاة للمسافر",
				Question:       "ما حكم قصر الصلاة في السفر؟",
				Answer:         "القصر سنة مؤكدة للمسافر.",
				Category:       "الصلاة",
				Tags:           []string{"سفر"},
				Language:       "ar",
				RelevanceScore: 0.91,
				Rank:           1,
			},
			{
				FatwaID:        102,
				Title:          "الجمع بين الصلاتين",
				Language:       "ar",
				RelevanceScore: 0.52,
				Rank:           2,
				Tags:           []string{},
			},
		},
	}
}

func TestWriteSearchResults_JSON(t *testing.T) {
	response := sampleResponse()
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, response, OutputJSON); err != nil {
		t.Fatalf("WriteSearchResults(json): %v", err)
	}
	var decoded models.SearchResponse
	if err := json.NewDecoder(&buf).Decode(&decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Query != response.Query || decoded.TotalCount != 2 {
		t.Errorf("decoded query=%q total=%d", decoded.Query, decoded.TotalCount)
	}
	if len(decoded.Results) != 2 || decoded.Results[0].FatwaID != 101 {
		t.Errorf("decoded results: %+v", decoded.Results)
	}
}

func TestWriteSearchResults_text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, sampleResponse(), OutputText); err != nil {
		t.Fatalf("WriteSearchResults(text): %v", err)
	}
	out := buf.String()
	for _, sub := range []string{"Found 2 fatwas", "42ms", "language: ar", "Rank: 1", "Fatwa: 101", "حكم قصر الصلاة للمسافر", "Category: الصلاة", "القصر سنة مؤكدة"} {
		if !strings.Contains(out, sub) {
			t.Errorf("text output missing %q:\n%s", sub, out)
		}
	}
}

func TestWriteSearchResults_textFlags(t *testing.T) {
	response := sampleResponse()
	response.CountApproximate = true
	response.FailedStrategies = []string{"semantic_original"}
	var buf bytes.Buffer
	_ = WriteSearchResults(&buf, response, OutputText)
	out := buf.String()
	if !strings.Contains(out, "about 2") {
		t.Errorf("approximate count not marked:\n%s", out)
	}
	if !strings.Contains(out, "semantic_original") {
		t.Errorf("failed strategies not listed:\n%s", out)
	}

	buf.Reset()
	_ = WriteSearchResults(&buf, &models.SearchResponse{Degraded: true, Results: []*models.SearchResult{}}, OutputText)
	if !strings.Contains(buf.String(), "degraded") {
		t.Errorf("degraded response not reported:\n%s", buf.String())
	}
}

func TestWriteSearchResults_compact(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, sampleResponse(), OutputCompact); err != nil {
		t.Fatalf("WriteSearchResults(compact): %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("want 2 lines, got %d:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "1\t101\t0.9100\t") {
		t.Errorf("line 0 = %q", lines[0])
	}
}

func TestWriteSearchResults_unknownFormatTreatedAsText(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, &models.SearchResponse{}, OutputFormat("unknown")); err != nil {
		t.Fatalf("WriteSearchResults(unknown): %v", err)
	}
	if !strings.Contains(buf.String(), "Found") {
		t.Errorf("unknown format should fall back to text; got %q", buf.String())
	}
}

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", OutputText, false},
		{"text", OutputText, false},
		{"JSON", OutputJSON, false},
		{" compact ", OutputCompact, false},
		{"yaml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseOutputFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseOutputFormat(%q) err = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseOutputFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTruncateWords(t *testing.T) {
	tests := []struct {
		name     string
		s        string
		maxWords int
		want     string
	}{
		{"empty", "", 3, ""},
		{"few words", "one two", 3, "one two"},
		{"exact", "one two three", 3, "one two three"},
		{"more", "one two three four", 3, "one two three..."},
		{"arabic", "حكم صلاة المسافر في الطائرة", 3, "حكم صلاة المسافر..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TruncateWords(tt.s, tt.maxWords)
			if got != tt.want {
				t.Errorf("TruncateWords(%q, %d) = %q, want %q", tt.s, tt.maxWords, got, tt.want)
			}
		})
	}
}
