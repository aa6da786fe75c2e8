package optimizer

import (
	"strings"

	"github.com/hyperjump/iftaa/internal/language"
	"github.com/hyperjump/iftaa/internal/textnorm"
)

// DefaultMaxExpansionTerms caps the related terms appended for one match.
const DefaultMaxExpansionTerms = 5

// Expander appends related vocabulary terms to a query.
type Expander struct {
	c        *compiler
	maxTerms int
}

// Expansion describes what Expand did.
type Expansion struct {
	Text     string
	Matched  string   // vocabulary key that matched, if any
	Appended []string // related and context terms added
}

// Expand returns text with the related terms of the first matching
// vocabulary key appended. Scanning stops at the first match. A context
// term is appended when the result mentions a ruling marker.
func (e *Expander) Expand(text string, lang language.Language) string {
	return e.ExpandDetail(text, lang).Text
}

// ExpandDetail is Expand with the matched key and appended terms reported.
func (e *Expander) ExpandDetail(text string, lang language.Language) Expansion {
	t := e.c.get()
	folded := textnorm.Fold(text)

	var (
		entry *expansionEntry
		ctx   *langTables
	)
	switch lang {
	case language.Arabic:
		entry, ctx = t.arabic.match(folded), &t.arabic
	case language.Other:
		entry, ctx = t.english.match(folded), &t.english
	case language.Unknown:
		if entry = t.arabic.match(folded); entry == nil {
			entry = t.english.match(folded)
		}
	}

	out := Expansion{Text: text}
	present := make(map[string]bool)
	for _, tok := range strings.Fields(folded) {
		present[tok] = true
	}
	if entry != nil {
		out.Matched = entry.term
		for _, rel := range entry.related {
			if len(out.Appended) >= e.maxTerms {
				break
			}
			f := textnorm.Fold(rel)
			if f == "" || present[f] {
				continue
			}
			present[f] = true
			out.Appended = append(out.Appended, rel)
		}
	}

	if ctx != nil && ctx.contextTerm != "" {
		expandedFolded := textnorm.Fold(strings.Join(append([]string{text}, out.Appended...), " "))
		if !present[textnorm.Fold(ctx.contextTerm)] && hasMarker(expandedFolded, t.arabic.markers, t.english.markers) {
			out.Appended = append(out.Appended, ctx.contextTerm)
		}
	}

	if len(out.Appended) > 0 {
		out.Text = text + " " + strings.Join(out.Appended, " ")
	}
	return out
}

func hasMarker(folded string, markerSets ...[]string) bool {
	for _, set := range markerSets {
		for _, m := range set {
			if strings.Contains(folded, m) {
				return true
			}
		}
	}
	return false
}
