package optimizer

import (
	"strings"

	"github.com/hyperjump/iftaa/internal/language"
)

// Corrector rewrites known misspellings token by token.
type Corrector struct {
	c *compiler
}

// Correct replaces every token found in the language's correction table by
// its canonical form. Arabic tokens are looked up normalized, others
// lower-cased; Unknown tries Arabic first. When no token changes the input
// is returned as is.
func (c *Corrector) Correct(text string, lang language.Language) string {
	t := c.c.get()
	tokens := strings.Fields(text)
	changed := false
	for i, tok := range tokens {
		var (
			fixed string
			ok    bool
		)
		switch lang {
		case language.Arabic:
			fixed, ok = t.arabic.correct(tok)
		case language.Other:
			fixed, ok = t.english.correct(tok)
		case language.Unknown:
			if fixed, ok = t.arabic.correct(tok); !ok {
				fixed, ok = t.english.correct(tok)
			}
		}
		if ok && fixed != tok {
			tokens[i] = fixed
			changed = true
		}
	}
	if !changed {
		return text
	}
	return strings.Join(tokens, " ")
}
