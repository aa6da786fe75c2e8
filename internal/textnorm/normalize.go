// Package textnorm canonicalizes Arabic orthography and tokenizes query text.
package textnorm

import (
	"strings"
	"unicode/utf8"
)

// MinTermLength is the rune length a token must exceed to take part in
// term-level matching and scoring.
const MinTermLength = 2

var letterForms = strings.NewReplacer(
	"أ", "ا",
	"إ", "ا",
	"آ", "ا",
	"ة", "ه",
	"ى", "ي",
	"ؤ", "و",
	"ئ", "ي",
)

func isDiacritic(r rune) bool {
	return (r >= 0x064B && r <= 0x065F) || r == 0x0670 || (r >= 0x06D6 && r <= 0x06ED)
}

// Normalize strips Arabic diacritics, collapses variant letterforms, and
// collapses whitespace. Non-Arabic text only has its whitespace collapsed.
// Normalize(Normalize(s)) == Normalize(s).
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	stripped := strings.Map(func(r rune) rune {
		if isDiacritic(r) {
			return -1
		}
		return r
	}, text)
	return strings.Join(strings.Fields(letterForms.Replace(stripped)), " ")
}

// Fold is Normalize followed by lower-casing. All substring comparisons
// between queries and stored fields are done on folded text.
func Fold(text string) string {
	return strings.ToLower(Normalize(text))
}

// Terms returns the whitespace-delimited tokens of text longer than MinTermLength runes.
func Terms(text string) []string {
	fields := strings.Fields(text)
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		if utf8.RuneCountInString(f) > MinTermLength {
			terms = append(terms, f)
		}
	}
	return terms
}

// ContainsFolded reports whether needle occurs in haystack after folding both.
// An empty needle never matches.
func ContainsFolded(haystack, needle string) bool {
	n := Fold(needle)
	if n == "" {
		return false
	}
	return strings.Contains(Fold(haystack), n)
}
