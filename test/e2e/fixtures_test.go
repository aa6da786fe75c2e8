package e2e

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/iftaa/internal/extract"
)

func TestEncodeFatwas_AllExtensionsExtractable(t *testing.T) {
	e := extract.NewExtractor()
	sample := BuildCorpus().Fatwas[:6]
	for _, ext := range SupportedFileExtensions {
		t.Run(ext, func(t *testing.T) {
			content, err := EncodeFatwas(ext, sample)
			require.NoError(t, err)
			require.NotEmpty(t, content)

			got, err := e.ExtractBytes(content, ext)
			require.NoError(t, err)
			require.Len(t, got, len(sample))
			for i := range sample {
				assert.Equal(t, sample[i].FatwaID, got[i].FatwaID)
				assert.Equal(t, sample[i].Title, got[i].Title)
				assert.Equal(t, sample[i].TitleEn, got[i].TitleEn)
				assert.Equal(t, sample[i].Tags, got[i].Tags)
			}
		})
	}
}

func TestEncodeFatwas_unknownExtension(t *testing.T) {
	_, err := EncodeFatwas(".pdf", nil)
	assert.Error(t, err)
}

func TestSplitByExtension(t *testing.T) {
	parts := SplitByExtension(BuildCorpus().Fatwas)
	require.Len(t, parts, len(SupportedFileExtensions))
	for _, ext := range SupportedFileExtensions {
		assert.Len(t, parts[ext], 25, ext)
	}
}
