package storage

import (
	"fmt"
	"strings"

	"github.com/hyperjump/iftaa/internal/models"
	"github.com/hyperjump/iftaa/internal/textnorm"
)

// Field names a searchable fatwa text field.
type Field string

const (
	FieldTitleAr    Field = "title_ar"
	FieldTitleEn    Field = "title_en"
	FieldQuestionAr Field = "question_ar"
	FieldQuestionEn Field = "question_en"
	FieldAnswerAr   Field = "answer_ar"
	FieldAnswerEn   Field = "answer_en"
	FieldCategory   Field = "category"
	FieldTags       Field = "tags"
)

var (
	// ArabicTextFields are the Arabic title, question and answer.
	ArabicTextFields = []Field{FieldTitleAr, FieldQuestionAr, FieldAnswerAr}
	// EnglishTextFields are the English title, question and answer.
	EnglishTextFields = []Field{FieldTitleEn, FieldQuestionEn, FieldAnswerEn}
	// AllTextFields are every title, question and answer field.
	AllTextFields = []Field{FieldTitleAr, FieldTitleEn, FieldQuestionAr, FieldQuestionEn, FieldAnswerAr, FieldAnswerEn}
)

// foldedColumns maps a field to its folded shadow column.
var foldedColumns = map[Field]string{
	FieldTitleAr:    "title_ar_f",
	FieldTitleEn:    "title_en_f",
	FieldQuestionAr: "question_ar_f",
	FieldQuestionEn: "question_en_f",
	FieldAnswerAr:   "answer_ar_f",
	FieldAnswerEn:   "answer_en_f",
	FieldCategory:   "category_f",
	FieldTags:       "tags_f",
}

// Op is a filter node kind.
type Op int

const (
	OpContains Op = iota
	OpAnd
	OpOr
)

// Filter is a conjunction/disjunction tree of field substring predicates.
// Substrings are compared on folded text (normalized, lower-cased).
type Filter struct {
	Op       Op
	Field    Field
	Value    string
	Children []Filter
}

// Contains matches records whose field contains value.
func Contains(field Field, value string) Filter {
	return Filter{Op: OpContains, Field: field, Value: value}
}

// And matches records matching every child. An empty And matches everything.
func And(children ...Filter) Filter {
	return Filter{Op: OpAnd, Children: children}
}

// Or matches records matching any child. An empty Or matches nothing.
func Or(children ...Filter) Filter {
	return Filter{Op: OpOr, Children: children}
}

// AnyField matches records where any of fields contains value.
func AnyField(fields []Field, value string) Filter {
	children := make([]Filter, len(fields))
	for i, f := range fields {
		children[i] = Contains(f, value)
	}
	return Or(children...)
}

// Matches evaluates the filter against a record in memory.
func (f Filter) Matches(rec *models.Fatwa) bool {
	switch f.Op {
	case OpContains:
		return textnorm.ContainsFolded(fieldValue(rec, f.Field), f.Value)
	case OpAnd:
		for _, c := range f.Children {
			if !c.Matches(rec) {
				return false
			}
		}
		return true
	case OpOr:
		for _, c := range f.Children {
			if c.Matches(rec) {
				return true
			}
		}
		return false
	}
	return false
}

func fieldValue(rec *models.Fatwa, field Field) string {
	switch field {
	case FieldTitleAr:
		return rec.TitleAr
	case FieldTitleEn:
		return rec.TitleEn
	case FieldQuestionAr:
		return rec.QuestionAr
	case FieldQuestionEn:
		return rec.QuestionEn
	case FieldAnswerAr:
		return rec.AnswerAr
	case FieldAnswerEn:
		return rec.AnswerEn
	case FieldCategory:
		return rec.Category
	case FieldTags:
		return strings.Join(rec.Tags, " ")
	}
	return ""
}

// toSQL compiles the filter into a WHERE fragment over folded columns.
func (f Filter) toSQL() (string, []any, error) {
	switch f.Op {
	case OpContains:
		col, ok := foldedColumns[f.Field]
		if !ok {
			return "", nil, fmt.Errorf("unknown filter field: %q", f.Field)
		}
		needle := textnorm.Fold(f.Value)
		if needle == "" {
			return "0", nil, nil
		}
		return "instr(" + col + ", ?) > 0", []any{needle}, nil
	case OpAnd, OpOr:
		if len(f.Children) == 0 {
			if f.Op == OpAnd {
				return "1", nil, nil
			}
			return "0", nil, nil
		}
		joiner := " AND "
		if f.Op == OpOr {
			joiner = " OR "
		}
		parts := make([]string, 0, len(f.Children))
		var args []any
		for _, c := range f.Children {
			sql, a, err := c.toSQL()
			if err != nil {
				return "", nil, err
			}
			parts = append(parts, "("+sql+")")
			args = append(args, a...)
		}
		return strings.Join(parts, joiner), args, nil
	}
	return "", nil, fmt.Errorf("unknown filter op: %d", f.Op)
}
