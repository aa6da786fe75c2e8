// Package vocab loads and validates the query vocabulary: per-language
// spelling corrections, ordered expansion entries, and ruling context terms.
package vocab

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hyperjump/iftaa/internal/textnorm"
)

//go:embed default.yaml
var defaultVocabulary []byte

// ErrInvalidVocabulary is returned when a vocabulary file fails validation.
var ErrInvalidVocabulary = errors.New("invalid vocabulary")

// Vocabulary holds the correction and expansion tables for both languages.
type Vocabulary struct {
	Arabic  Table `yaml:"arabic"`
	English Table `yaml:"english"`
}

// Table is the vocabulary of one language.
type Table struct {
	Corrections   map[string]string `yaml:"corrections"`
	Expansions    []Expansion       `yaml:"expansions"`
	ContextTerm   string            `yaml:"context_term"`
	RulingMarkers []string          `yaml:"ruling_markers"`
}

// Expansion maps a key term to its related terms.
type Expansion struct {
	Term    string   `yaml:"term"`
	Related []string `yaml:"related"`
}

// Default returns the vocabulary compiled into the binary.
func Default() (*Vocabulary, error) {
	return Parse(defaultVocabulary)
}

// Load reads, parses and validates the vocabulary file at path.
func Load(path string) (*Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read vocabulary: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML vocabulary data and validates it.
func Parse(data []byte) (*Vocabulary, error) {
	var v Vocabulary
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("failed to parse vocabulary: %w", err)
	}
	if err := v.Validate(); err != nil {
		return nil, err
	}
	return &v, nil
}

// Validate checks both tables. Correction keys must be single tokens and
// unique after folding; a canonical form whose folded spelling is itself a
// key must map to itself, so applying corrections twice changes nothing.
func (v *Vocabulary) Validate() error {
	if err := v.Arabic.validate("arabic"); err != nil {
		return err
	}
	return v.English.validate("english")
}

func (t *Table) validate(name string) error {
	folded := make(map[string]string, len(t.Corrections))
	for wrong, right := range t.Corrections {
		key := textnorm.Fold(wrong)
		if key == "" || strings.TrimSpace(right) == "" {
			return fmt.Errorf("%w: %s correction %q -> %q has an empty side", ErrInvalidVocabulary, name, wrong, right)
		}
		if strings.ContainsAny(key, " \t") || strings.ContainsAny(strings.TrimSpace(right), " \t") {
			return fmt.Errorf("%w: %s correction %q -> %q must be single tokens", ErrInvalidVocabulary, name, wrong, right)
		}
		if prev, ok := folded[key]; ok && prev != right {
			return fmt.Errorf("%w: %s correction %q conflicts with another spelling (%q vs %q)", ErrInvalidVocabulary, name, wrong, prev, right)
		}
		folded[key] = right
	}
	for key, right := range folded {
		if next, ok := folded[textnorm.Fold(right)]; ok && next != right {
			return fmt.Errorf("%w: %s correction %q -> %q is not stable (%q is corrected to %q)", ErrInvalidVocabulary, name, key, right, right, next)
		}
	}

	seen := make(map[string]bool, len(t.Expansions))
	for i, e := range t.Expansions {
		key := textnorm.Fold(e.Term)
		if key == "" {
			return fmt.Errorf("%w: %s expansion #%d has no term", ErrInvalidVocabulary, name, i)
		}
		if seen[key] {
			return fmt.Errorf("%w: %s expansion term %q is duplicated", ErrInvalidVocabulary, name, e.Term)
		}
		seen[key] = true
		if len(e.Related) == 0 {
			return fmt.Errorf("%w: %s expansion %q has no related terms", ErrInvalidVocabulary, name, e.Term)
		}
	}
	if len(t.RulingMarkers) > 0 && strings.TrimSpace(t.ContextTerm) == "" {
		return fmt.Errorf("%w: %s ruling markers require a context_term", ErrInvalidVocabulary, name)
	}
	return nil
}
