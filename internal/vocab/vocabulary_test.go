package vocab

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	v, err := Default()
	require.NoError(t, err)
	assert.Equal(t, "صلاة", v.Arabic.Corrections["صلوة"])
	assert.Equal(t, "muslim", v.English.Corrections["moslem"])
	assert.NotEmpty(t, v.Arabic.Expansions)
	assert.NotEmpty(t, v.English.Expansions)
	assert.Equal(t, "فقه", v.Arabic.ContextTerm)
	assert.Equal(t, "jurisprudence", v.English.ContextTerm)
}

func TestParse_rejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"multi token key", "arabic:\n  corrections:\n    \"a b\": c\n"},
		{"empty canonical", "english:\n  corrections:\n    colour: \"\"\n"},
		{"unstable chain", "english:\n  corrections:\n    a1: b1\n    b1: c1\n"},
		{"conflicting folded keys", "arabic:\n  corrections:\n    أذان: x\n    اذان: y\n"},
		{"duplicate expansion", "english:\n  expansions:\n    - term: Prayer\n      related: [salah]\n    - term: prayer\n      related: [salat]\n"},
		{"expansion without related", "english:\n  expansions:\n    - term: prayer\n"},
		{"markers without context", "english:\n  ruling_markers: [ruling]\n"},
		{"malformed yaml", "english: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestParse_allowsFixpointCorrection(t *testing.T) {
	// صورة folds to صوره, which is itself a key mapping back to صورة.
	v, err := Parse([]byte("arabic:\n  corrections:\n    صوره: صورة\n"))
	require.NoError(t, err)
	assert.Equal(t, "صورة", v.Arabic.Corrections["صوره"])
}

func TestStore_Reload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vocabulary.yaml")
	require.NoError(t, os.WriteFile(path, []byte("english:\n  corrections:\n    namaz: prayer\n"), 0600))

	s, err := NewStore(path)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), s.Version())
	assert.Equal(t, "prayer", s.Get().English.Corrections["namaz"])

	require.NoError(t, os.WriteFile(path, []byte("english:\n  corrections:\n    namaz: salah\n"), 0600))
	require.NoError(t, s.Reload())
	assert.Equal(t, uint64(2), s.Version())
	assert.Equal(t, "salah", s.Get().English.Corrections["namaz"])

	require.NoError(t, os.WriteFile(path, []byte("english: [\n"), 0600))
	assert.Error(t, s.Reload())
	assert.Equal(t, "salah", s.Get().English.Corrections["namaz"], "failed reload keeps previous vocabulary")
}

func TestNewStore_builtin(t *testing.T) {
	s, err := NewStore("")
	require.NoError(t, err)
	assert.Empty(t, s.Path())
	assert.NotNil(t, s.Get())
}
