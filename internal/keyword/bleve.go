package keyword

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/analysis/lang/ar"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/hyperjump/iftaa/internal/models"
)

// Index field names.
const (
	FieldTitleAr    = "title_ar"
	FieldQuestionAr = "question_ar"
	FieldAnswerAr   = "answer_ar"
	FieldTitleEn    = "title_en"
	FieldQuestionEn = "question_en"
	FieldAnswerEn   = "answer_en"
	FieldCategory   = "category"
	FieldTags       = "tags"
)

var (
	arabicFields  = []string{FieldTitleAr, FieldQuestionAr, FieldAnswerAr}
	englishFields = []string{FieldTitleEn, FieldQuestionEn, FieldAnswerEn, FieldCategory, FieldTags}
	allFields     = append(append([]string{}, arabicFields...), englishFields...)
	titleFields   = map[string]bool{FieldTitleAr: true, FieldTitleEn: true}
)

// fatwaDoc is the indexed shape of a fatwa. Inactive fatwas are not indexed.
type fatwaDoc struct {
	TitleAr    string `json:"title_ar"`
	QuestionAr string `json:"question_ar"`
	AnswerAr   string `json:"answer_ar"`
	TitleEn    string `json:"title_en"`
	QuestionEn string `json:"question_en"`
	AnswerEn   string `json:"answer_en"`
	Category   string `json:"category"`
	Tags       string `json:"tags"`
}

// BleveIndex implements KeywordIndex using Bleve.
// Arabic fields use the Arabic analyzer (normalization + light stemming);
// English fields, category and tags use the standard analyzer.
type BleveIndex struct {
	index bleve.Index
}

// NewBleveIndex creates or opens a Bleve index at path.
// If you change the index mapping in code, remove the index directory to force a full re-index.
func NewBleveIndex(path string) (*BleveIndex, error) {
	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &BleveIndex{index: index}, nil
	}

	index, err := bleve.New(path, buildMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// NewMemoryBleveIndex creates an in-memory index, used when no index path is configured.
func NewMemoryBleveIndex() (*BleveIndex, error) {
	index, err := bleve.NewMemOnly(buildMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

func buildMapping() *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()

	arabic := bleve.NewTextFieldMapping()
	arabic.Analyzer = ar.AnalyzerName
	for _, f := range arabicFields {
		docMapping.AddFieldMappingsAt(f, arabic)
	}
	// standard analyzer: lowercase + tokenize, no stemming
	english := bleve.NewTextFieldMapping()
	english.Analyzer = standard.Name
	for _, f := range englishFields {
		docMapping.AddFieldMappingsAt(f, english)
	}

	im.AddDocumentMapping("fatwa", docMapping)
	im.DefaultType = "fatwa"
	im.DefaultMapping = docMapping
	return im
}

// Index adds or replaces a fatwa. Inactive fatwas are removed instead.
func (b *BleveIndex) Index(ctx context.Context, f *models.Fatwa) error {
	id := strconv.FormatInt(f.FatwaID, 10)
	if !f.IsActive {
		return b.index.Delete(id)
	}
	return b.index.Index(id, fatwaDoc{
		TitleAr:    f.TitleAr,
		QuestionAr: f.QuestionAr,
		AnswerAr:   f.AnswerAr,
		TitleEn:    f.TitleEn,
		QuestionEn: f.QuestionEn,
		AnswerEn:   f.AnswerEn,
		Category:   f.Category,
		Tags:       strings.Join(f.Tags, " "),
	})
}

// buildQuery ORs a match query per field so each field is analyzed with its own analyzer.
func buildQuery(query string, fields []string, titleBoost float64) blevequery.Query {
	if len(fields) == 0 {
		fields = allFields
	}
	queries := make([]blevequery.Query, 0, len(fields))
	for _, field := range fields {
		mq := bleve.NewMatchQuery(query)
		mq.SetField(field)
		if titleBoost > 1 && titleFields[field] {
			mq.SetBoost(titleBoost)
		}
		queries = append(queries, mq)
	}
	return bleve.NewDisjunctionQuery(queries...)
}

// Search runs a match query across the text fields and returns up to limit
// results ordered by score.
func (b *BleveIndex) Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*KeywordResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	titleBoost := 1.0
	var fields []string
	if opts != nil {
		if opts.TitleBoost > 0 {
			titleBoost = opts.TitleBoost
		}
		fields = opts.Fields
	}

	req := bleve.NewSearchRequest(buildQuery(query, fields, titleBoost))
	req.Size = limit
	results, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	out := make([]*KeywordResult, 0, len(results.Hits))
	for _, hit := range results.Hits {
		id, err := strconv.ParseInt(hit.ID, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, &KeywordResult{FatwaID: id, Score: hit.Score})
	}
	return out, nil
}

// Count returns the total number of fatwas matching query in any text field.
func (b *BleveIndex) Count(ctx context.Context, query string) (int, error) {
	if strings.TrimSpace(query) == "" {
		return 0, nil
	}
	req := bleve.NewSearchRequest(buildQuery(query, nil, 1))
	req.Size = 0
	results, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return 0, fmt.Errorf("Bleve count failed: %w", err)
	}
	return int(results.Total), nil
}

// Delete removes a fatwa from the index.
func (b *BleveIndex) Delete(ctx context.Context, id int64) error {
	return b.index.Delete(strconv.FormatInt(id, 10))
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}

// DocCount returns the total number of documents in the index.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}
