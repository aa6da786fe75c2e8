// Package optimizer turns a raw query into a retrieval plan: language,
// normalized and corrected text, terms, and the vocabulary-expanded form.
package optimizer

import (
	"github.com/hyperjump/iftaa/internal/language"
	"github.com/hyperjump/iftaa/internal/textnorm"
	"github.com/hyperjump/iftaa/internal/vocab"
	"go.uber.org/zap"
)

// Plan is the immutable output of query optimization.
type Plan struct {
	Original   string
	Language   language.Language
	Confidence float64
	// Corrected is the normalized query after spelling correction.
	Corrected string
	// Normalized is Corrected normalized again; retrieval runs on it.
	Normalized string
	Terms      []string
	// Expanded is Corrected with vocabulary terms appended.
	Expanded      string
	ExpandedTerms []string
	Expansion     Expansion
}

// Optimizer runs detection, correction and expansion in order.
type Optimizer struct {
	corrector *Corrector
	expander  *Expander
	logger    *zap.Logger
}

// Option configures an Optimizer.
type Option func(*Optimizer)

// WithLogger sets a logger for correction and expansion decisions.
func WithLogger(l *zap.Logger) Option {
	return func(o *Optimizer) { o.logger = l }
}

// WithMaxExpansionTerms overrides DefaultMaxExpansionTerms.
func WithMaxExpansionTerms(n int) Option {
	return func(o *Optimizer) {
		if n > 0 {
			o.expander.maxTerms = n
		}
	}
}

// New returns an optimizer reading its tables from store.
func New(store *vocab.Store, opts ...Option) *Optimizer {
	c := &compiler{store: store}
	o := &Optimizer{
		corrector: &Corrector{c: c},
		expander:  &Expander{c: c, maxTerms: DefaultMaxExpansionTerms},
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Corrector exposes the spelling corrector.
func (o *Optimizer) Corrector() *Corrector { return o.corrector }

// Expander exposes the query expander.
func (o *Optimizer) Expander() *Expander { return o.expander }

// Expand normalizes text and appends vocabulary expansions for its detected
// language, without spelling correction.
func (o *Optimizer) Expand(text string) string {
	lang, _ := language.Detect(text)
	return textnorm.Normalize(o.expander.Expand(textnorm.Normalize(text), lang))
}

// Optimize detects the language of query and builds its plan.
func (o *Optimizer) Optimize(query string) Plan {
	lang, conf := language.Detect(query)
	return o.OptimizeAs(query, lang, conf)
}

// OptimizeAs builds the plan for a caller-chosen language.
func (o *Optimizer) OptimizeAs(query string, lang language.Language, confidence float64) Plan {
	normalized := textnorm.Normalize(query)
	corrected := o.corrector.Correct(normalized, lang)
	if corrected != normalized {
		o.logger.Debug("spelling corrected", zap.String("from", normalized), zap.String("to", corrected))
	}
	exp := o.expander.ExpandDetail(corrected, lang)
	if exp.Matched != "" || len(exp.Appended) > 0 {
		o.logger.Debug("query expanded",
			zap.String("language", lang.String()),
			zap.String("matched", exp.Matched),
			zap.Strings("appended", exp.Appended),
		)
	}
	final := textnorm.Normalize(corrected)
	expanded := textnorm.Normalize(exp.Text)
	return Plan{
		Original:      query,
		Language:      lang,
		Confidence:    confidence,
		Corrected:     corrected,
		Normalized:    final,
		Terms:         textnorm.Terms(final),
		Expanded:      expanded,
		ExpandedTerms: textnorm.Terms(expanded),
		Expansion:     exp,
	}
}
