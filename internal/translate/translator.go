// Package translate fills missing English fatwa fields from their Arabic
// source through a machine-translation service.
package translate

import (
	"context"
	"strings"
)

// Translator translates text between ISO 639-1 language codes.
type Translator interface {
	Translate(ctx context.Context, text, source, target string) (string, error)
}

// Nop returns its input unchanged.
type Nop struct{}

// Translate returns text.
func (Nop) Translate(_ context.Context, text, _, _ string) (string, error) {
	return text, nil
}

// Fields translates each non-blank entry of texts, preserving blanks.
func Fields(ctx context.Context, tr Translator, texts []string, source, target string) ([]string, error) {
	out := make([]string, len(texts))
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			continue
		}
		translated, err := tr.Translate(ctx, t, source, target)
		if err != nil {
			return nil, err
		}
		out[i] = translated
	}
	return out, nil
}
