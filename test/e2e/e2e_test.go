package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/iftaa/internal/config"
	"github.com/hyperjump/iftaa/internal/embedding"
	"github.com/hyperjump/iftaa/internal/indexer"
	"github.com/hyperjump/iftaa/internal/keyword"
	"github.com/hyperjump/iftaa/internal/models"
	"github.com/hyperjump/iftaa/internal/optimizer"
	"github.com/hyperjump/iftaa/internal/ranking"
	"github.com/hyperjump/iftaa/internal/search"
	"github.com/hyperjump/iftaa/internal/server"
	"github.com/hyperjump/iftaa/internal/storage"
	"github.com/hyperjump/iftaa/internal/vector"
	"github.com/hyperjump/iftaa/internal/vocab"
)

const e2eDimensions = 32

type env struct {
	cfg     *config.Config
	handler http.Handler
	vectors *vector.Set
}

// newEnv writes the corpus as import files of every supported format,
// imports the directory and serves the API over the resulting indexes.
func newEnv(t *testing.T) *env {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Storage.DatabasePath = filepath.Join(dir, "db.sqlite")
	cfg.Storage.BleveIndexPath = filepath.Join(dir, "bleve")
	cfg.Storage.VectorIndexPath = filepath.Join(dir, "vectors")
	cfg.Embedding.Dimensions = e2eDimensions

	importDir := filepath.Join(dir, "inbox")
	require.NoError(t, os.MkdirAll(importDir, 0755))
	for ext, fatwas := range SplitByExtension(BuildCorpus().Fatwas) {
		content, err := EncodeFatwas(ext, fatwas)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(importDir, "fatwas"+ext), content, 0600))
	}

	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	kw, err := keyword.NewBleveIndex(cfg.Storage.BleveIndexPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = kw.Close() })
	vectors, err := vector.NewSet(vector.Options{Type: cfg.Vector.IndexType, Dimensions: e2eDimensions})
	require.NoError(t, err)
	t.Cleanup(func() { _ = vectors.Close() })
	emb := embedding.NewCachedEmbedder(embedding.NewMockEmbedder(e2eDimensions), 0)

	vocabStore, err := vocab.NewStore("")
	require.NoError(t, err)
	engine := search.NewEngine(store, kw, emb, vectors, optimizer.New(vocabStore),
		ranking.NewScorer(cfg.Ranking), &cfg.Search)
	idx := indexer.NewIndexer(store, emb, vectors, kw, cfg.Indexer)

	n, err := idx.IndexDirectory(context.Background(), importDir, nil)
	require.NoError(t, err)
	require.Equal(t, 100, n)

	srv := server.NewServer(server.Deps{
		Engine:     engine,
		Indexer:    idx,
		Storage:    store,
		Keyword:    kw,
		Vectors:    vectors,
		Vocabulary: vocabStore,
	}, cfg, nil)
	return &env{cfg: cfg, handler: srv.Router(), vectors: vectors}
}

func (e *env) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *env) search(t *testing.T, q models.SearchQuery) *models.SearchResponse {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/v1/search", q)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp models.SearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return &resp
}

func ids(resp *models.SearchResponse) []int64 {
	out := make([]int64, len(resp.Results))
	for i, r := range resp.Results {
		out[i] = r.FatwaID
	}
	return out
}

func TestE2E_SearchReturnsExpectedFatwa(t *testing.T) {
	e := newEnv(t)
	for _, tc := range BuildCorpus().TestCases {
		t.Run(fmt.Sprintf("%d_%s", tc.ExpectedID, tc.Language), func(t *testing.T) {
			resp := e.search(t, models.SearchQuery{Query: tc.Query})
			assert.Equal(t, tc.Language, resp.Language)
			assert.Contains(t, ids(resp), tc.ExpectedID, "%s: %q", tc.Description, tc.Query)
			assert.False(t, resp.Degraded)
			assert.GreaterOrEqual(t, resp.TotalCount, len(resp.Results))
			for i, r := range resp.Results {
				assert.Equal(t, i+1, r.Rank)
				if r.FatwaID == tc.ExpectedID {
					assert.Equal(t, tc.Language, r.Language, "bilingual fatwas follow the query language")
				}
			}
		})
	}
}

func TestE2E_PagesAreLossless(t *testing.T) {
	e := newEnv(t)
	seen := map[int64]bool{}
	total := -1
	for page := 1; ; page++ {
		resp := e.search(t, models.SearchQuery{Query: "حكم", Page: page, PageSize: 10})
		if total < 0 {
			total = resp.TotalCount
			assert.True(t, resp.FastPath, "a term in every title takes the fast path")
		}
		if len(resp.Results) == 0 {
			break
		}
		for _, id := range ids(resp) {
			assert.False(t, seen[id], "fatwa %d repeated on page %d", id, page)
			seen[id] = true
		}
		require.Less(t, page, 20, "paging did not terminate")
	}
	assert.Len(t, seen, 100)
	assert.Equal(t, 100, total)
}

func TestE2E_DeleteRemovesFromResults(t *testing.T) {
	e := newEnv(t)
	tc := BuildCorpus().TestCases[0]
	require.Contains(t, ids(e.search(t, models.SearchQuery{Query: tc.Query})), tc.ExpectedID)

	rec := e.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/fatwas/%d", tc.ExpectedID), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.NotContains(t, ids(e.search(t, models.SearchQuery{Query: tc.Query})), tc.ExpectedID)
	rec = e.do(t, http.MethodGet, fmt.Sprintf("/api/v1/fatwas/%d", tc.ExpectedID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestE2E_GetFatwaKeepsImportedFields(t *testing.T) {
	e := newEnv(t)
	want := BuildCorpus().Fatwas[5]
	rec := e.do(t, http.MethodGet, fmt.Sprintf("/api/v1/fatwas/%d", want.FatwaID), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got models.Fatwa
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, want.Title, got.TitleAr)
	assert.Equal(t, want.TitleEn, got.TitleEn)
	assert.Equal(t, want.Category, got.Category)
	assert.Equal(t, want.Tags, got.Tags)
	assert.True(t, got.IsActive)
}

func TestE2E_VectorIndexesSurviveRestart(t *testing.T) {
	e := newEnv(t)
	require.Equal(t, 100, e.vectors.Arabic.Size())
	require.Equal(t, 20, e.vectors.English.Size())
	dir := e.cfg.Storage.VectorIndexPath
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, e.vectors.Save(dir))

	reopened, err := vector.NewSet(vector.Options{Type: e.cfg.Vector.IndexType, Dimensions: e2eDimensions})
	require.NoError(t, err)
	defer reopened.Close()
	require.NoError(t, reopened.Load(dir))
	assert.Equal(t, 100, reopened.Arabic.Size())
	assert.Equal(t, 20, reopened.English.Size())
}
