package optimizer

import (
	"strings"
	"sync"

	"github.com/hyperjump/iftaa/internal/textnorm"
	"github.com/hyperjump/iftaa/internal/vocab"
)

type expansionEntry struct {
	key     string // folded
	term    string
	related []string
}

// langTables is one language's vocabulary with lookup keys folded once.
type langTables struct {
	corrections map[string]string
	expansions  []expansionEntry
	contextTerm string
	markers     []string
}

type tables struct {
	version uint64
	arabic  langTables
	english langTables
}

func compileTable(t vocab.Table) langTables {
	lt := langTables{
		corrections: make(map[string]string, len(t.Corrections)),
		expansions:  make([]expansionEntry, 0, len(t.Expansions)),
		contextTerm: strings.TrimSpace(t.ContextTerm),
	}
	for wrong, right := range t.Corrections {
		lt.corrections[textnorm.Fold(wrong)] = strings.TrimSpace(right)
	}
	for _, e := range t.Expansions {
		lt.expansions = append(lt.expansions, expansionEntry{
			key:     textnorm.Fold(e.Term),
			term:    e.Term,
			related: e.Related,
		})
	}
	for _, m := range t.RulingMarkers {
		if f := textnorm.Fold(m); f != "" {
			lt.markers = append(lt.markers, f)
		}
	}
	return lt
}

func (lt *langTables) correct(token string) (string, bool) {
	c, ok := lt.corrections[textnorm.Fold(token)]
	return c, ok
}

func (lt *langTables) match(folded string) *expansionEntry {
	for i := range lt.expansions {
		if strings.Contains(folded, lt.expansions[i].key) {
			return &lt.expansions[i]
		}
	}
	return nil
}

// compiler caches the folded tables for the store's current version.
type compiler struct {
	store *vocab.Store
	mu    sync.Mutex
	cache *tables
}

func (c *compiler) get() *tables {
	v := c.store.Version()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cache != nil && c.cache.version == v {
		return c.cache
	}
	voc := c.store.Get()
	c.cache = &tables{
		version: v,
		arabic:  compileTable(voc.Arabic),
		english: compileTable(voc.English),
	}
	return c.cache
}
