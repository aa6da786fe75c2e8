package e2e

import (
	"strings"
	"testing"

	"github.com/hyperjump/iftaa/internal/textnorm"
)

func TestBuildCorpus_Returns100Fatwas(t *testing.T) {
	c := BuildCorpus()
	if len(c.Fatwas) != 100 {
		t.Fatalf("expected 100 fatwas, got %d", len(c.Fatwas))
	}
	seen := map[int64]bool{}
	for _, f := range c.Fatwas {
		if f.FatwaID <= 0 || seen[f.FatwaID] {
			t.Errorf("bad or duplicate id %d", f.FatwaID)
		}
		seen[f.FatwaID] = true
	}
}

func TestBuildCorpus_englishShare(t *testing.T) {
	c := BuildCorpus()
	english := 0
	for _, f := range c.Fatwas {
		if f.TitleEn != "" {
			english++
		}
	}
	if english != 20 {
		t.Errorf("expected 20 fatwas with English, got %d", english)
	}
	if len(c.TestCases) != 120 {
		t.Errorf("expected 120 test cases, got %d", len(c.TestCases))
	}
}

func TestBuildCorpus_queryPhraseIsUniqueToExpectedTitle(t *testing.T) {
	c := BuildCorpus()
	for _, tc := range c.TestCases {
		var hits []int64
		for _, f := range c.Fatwas {
			title := f.Title
			if tc.Language == "en" {
				title = f.TitleEn
			}
			if strings.Contains(textnorm.Fold(title), textnorm.Fold(tc.Query)) {
				hits = append(hits, f.FatwaID)
			}
		}
		if len(hits) != 1 || hits[0] != tc.ExpectedID {
			t.Errorf("query %q matches titles %v, want only %d", tc.Query, hits, tc.ExpectedID)
		}
	}
}

func TestCorpus_ByCategory(t *testing.T) {
	groups := BuildCorpus().ByCategory()
	if len(groups["العبادات"]) != 40 {
		t.Errorf("worship fatwas = %d, want 40", len(groups["العبادات"]))
	}
	total := 0
	for _, g := range groups {
		total += len(g)
	}
	if total != 100 {
		t.Errorf("grouped total = %d", total)
	}
}
