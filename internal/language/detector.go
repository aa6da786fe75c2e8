// Package language classifies query text as Arabic, another (Latin-script) language, or unknown.
package language

import (
	"fmt"
	"math"
	"strings"
	"unicode"
)

// Language is the closed set of query languages the pipeline branches on.
type Language int

const (
	Unknown Language = iota
	Arabic
	Other
)

// String returns the wire code: "ar", "en" or "unknown".
func (l Language) String() string {
	switch l {
	case Arabic:
		return "ar"
	case Other:
		return "en"
	case Unknown:
		return "unknown"
	}
	return fmt.Sprintf("Language(%d)", int(l))
}

const (
	arabicThreshold  = 0.3
	otherThreshold   = 0.5
	arabicBoost      = 1.2
	otherBoost       = 1.1
	unknownConfident = 0.3
)

// ParseHint maps a caller-supplied language hint to a Language.
// "" and "auto" mean "detect"; ok is false for unsupported codes.
func ParseHint(hint string) (lang Language, detect bool, ok bool) {
	switch strings.ToLower(strings.TrimSpace(hint)) {
	case "", "auto":
		return Unknown, true, true
	case "ar", "arabic":
		return Arabic, false, true
	case "en", "english", "other":
		return Other, false, true
	case "unknown":
		return Unknown, false, true
	}
	return Unknown, false, false
}

func isArabicRune(r rune) bool {
	return r >= 0x0600 && r <= 0x06FF
}

func isASCIILetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

// Detect counts Arabic-block runes and ASCII letters against all non-space
// runes left after punctuation is stripped. It is pure and deterministic.
func Detect(text string) (Language, float64) {
	if strings.TrimSpace(text) == "" {
		return Unknown, 0
	}
	var arabic, ascii, total int
	for _, r := range text {
		if unicode.IsSpace(r) {
			continue
		}
		if !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '_' {
			continue
		}
		total++
		switch {
		case isArabicRune(r):
			arabic++
		case isASCIILetter(r):
			ascii++
		}
	}
	if total == 0 {
		return Unknown, 0
	}
	arabicFrac := float64(arabic) / float64(total)
	asciiFrac := float64(ascii) / float64(total)
	switch {
	case arabicFrac > arabicThreshold:
		return Arabic, math.Min(arabicFrac*arabicBoost, 1)
	case asciiFrac > otherThreshold:
		return Other, math.Min(asciiFrac*otherBoost, 1)
	}
	return Unknown, unknownConfident
}
