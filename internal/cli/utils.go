// Package cli formats search and status output for the iftaa command.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/iftaa/internal/models"
	"github.com/hyperjump/iftaa/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputCompact prints one result per line.
	OutputCompact OutputFormat = "compact"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

const (
	answerPreviewRunes = 200
	compactTitleWords  = 12
)

// ParseOutputFormat maps a flag value to an OutputFormat.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case OutputText, OutputCompact, OutputJSON:
		return f, nil
	case "":
		return OutputText, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text, compact, or json", s)
	}
}

// WriteSearchResults writes a search response to w in the given format.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format OutputFormat) error {
	switch format {
	case OutputJSON:
		return WriteJSON(w, response)
	case OutputCompact:
		for _, r := range response.Results {
			fmt.Fprintf(w, "%d\t%d\t%.4f\t%s\n", r.Rank, r.FatwaID, r.RelevanceScore, TruncateWords(oneLine(r.Title), compactTitleWords))
		}
		return nil
	default:
		writeSearchResultsText(w, response)
		return nil
	}
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeSearchResultsText(w io.Writer, response *models.SearchResponse) {
	about := ""
	if response.CountApproximate {
		about = "about "
	}
	fmt.Fprintf(w, "\nFound %s%d fatwas in %dms (language: %s, page %d, %d per page)\n",
		about, response.TotalCount, response.QueryTime, response.Language, response.Page, response.PageSize)
	if response.FastPath {
		fmt.Fprintln(w, "exact matches only")
	}
	if response.Degraded {
		fmt.Fprintln(w, "search degraded: every retrieval strategy failed")
	} else if len(response.FailedStrategies) > 0 {
		fmt.Fprintf(w, "partial results, failed strategies: %s\n", strings.Join(response.FailedStrategies, ", "))
	}
	fmt.Fprintln(w)
	for _, result := range response.Results {
		writeOneResult(w, result)
	}
}

func writeOneResult(w io.Writer, result *models.SearchResult) {
	fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
	fmt.Fprintf(w, "Rank: %d | Score: %.4f | Fatwa: %d\n", result.Rank, result.RelevanceScore, result.FatwaID)
	if result.Title != "" {
		fmt.Fprintf(w, "Title: %s\n", result.Title)
	}
	if result.Category != "" {
		fmt.Fprintf(w, "Category: %s\n", result.Category)
	}
	if result.Question != "" {
		fmt.Fprintf(w, "\n%s\n", utils.Truncate(result.Question, answerPreviewRunes))
	}
	if result.Answer != "" {
		fmt.Fprintf(w, "\n%s\n", utils.Truncate(result.Answer, answerPreviewRunes))
	}
	fmt.Fprintln(w)
}

// TruncateWords returns up to maxWords from the space-separated string.
func TruncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return s
	}
	return strings.Join(words[:maxWords], " ") + "..."
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
