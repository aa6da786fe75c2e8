package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/iftaa/internal/models"
	"github.com/hyperjump/iftaa/internal/storage"
)

const maxBodyBytes = 32 << 20

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var query models.SearchQuery
	if !s.decode(w, r, &query) {
		return
	}
	s.search(w, r, &query)
}

func (s *Server) handleSearchGet(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := models.SearchQuery{Query: q.Get("q"), Language: q.Get("lang")}
	var err error
	if query.Page, err = intParam(q.Get("page")); err != nil {
		s.respondError(w, http.StatusBadRequest, "page must be an integer")
		return
	}
	if query.PageSize, err = intParam(q.Get("page_size")); err != nil {
		s.respondError(w, http.StatusBadRequest, "page_size must be an integer")
		return
	}
	s.search(w, r, &query)
}

func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}

func (s *Server) search(w http.ResponseWriter, r *http.Request, query *models.SearchQuery) {
	s.logger.Debug("search request",
		zap.String("request_id", requestIDFrom(r.Context())),
		zap.String("query", query.Query),
		zap.Int("page", query.Page),
		zap.Int("page_size", query.PageSize),
	)
	response, err := s.deps.Engine.SearchQuery(r.Context(), query)
	if err != nil {
		s.respondErr(w, "search failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

type optimizeRequest struct {
	Query string `json:"query"`
}

type optimizeResponse struct {
	Original      string   `json:"original"`
	Language      string   `json:"language"`
	Confidence    float64  `json:"confidence"`
	Corrected     string   `json:"corrected"`
	Normalized    string   `json:"normalized"`
	Terms         []string `json:"terms"`
	Expanded      string   `json:"expanded"`
	ExpandedTerms []string `json:"expanded_terms"`
	Appended      []string `json:"appended,omitempty"`
}

func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	var req optimizeRequest
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		s.respondError(w, http.StatusBadRequest, "query cannot be empty")
		return
	}
	p := s.deps.Engine.Optimize(req.Query)
	s.respondJSON(w, http.StatusOK, optimizeResponse{
		Original:      p.Original,
		Language:      p.Language.String(),
		Confidence:    p.Confidence,
		Corrected:     p.Corrected,
		Normalized:    p.Normalized,
		Terms:         p.Terms,
		Expanded:      p.Expanded,
		ExpandedTerms: p.ExpandedTerms,
		Appended:      p.Expansion.Appended,
	})
}

func (s *Server) handleLanguage(w http.ResponseWriter, r *http.Request) {
	text := r.URL.Query().Get("text")
	lang, conf := s.deps.Engine.DetectLanguage(text)
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"language": lang.String(), "confidence": conf})
}

func (s *Server) handleNormalize(w http.ResponseWriter, r *http.Request) {
	text := r.URL.Query().Get("text")
	s.respondJSON(w, http.StatusOK, map[string]string{"original": text, "normalized": s.deps.Engine.Normalize(text)})
}

func (s *Server) handleExpand(w http.ResponseWriter, r *http.Request) {
	text := r.URL.Query().Get("text")
	s.respondJSON(w, http.StatusOK, map[string]string{"original": text, "expanded": s.deps.Engine.Expand(text)})
}

func (s *Server) handleIndexFatwa(w http.ResponseWriter, r *http.Request) {
	var input models.FatwaInput
	if !s.decode(w, r, &input) {
		return
	}
	s.logger.Debug("index fatwa request", zap.Int64("fatwa_id", input.FatwaID))
	f, err := s.deps.Indexer.IndexFatwa(r.Context(), &input)
	if err != nil {
		s.recordIndexed(0, 1)
		s.respondErr(w, "indexing failed", err)
		return
	}
	s.recordIndexed(1, 0)
	s.respondJSON(w, http.StatusCreated, f)
}

// handleIndexBatch accepts a JSON array or {"fatwas": [...]}.
func (s *Server) handleIndexBatch(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if !s.decode(w, r, &raw) {
		return
	}
	var inputs []*models.FatwaInput
	if err := json.Unmarshal(raw, &inputs); err != nil {
		var wrapped struct {
			Fatwas []*models.FatwaInput `json:"fatwas"`
		}
		if err := json.Unmarshal(raw, &wrapped); err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		inputs = wrapped.Fatwas
	}
	res, err := s.deps.Indexer.IndexBatch(r.Context(), inputs)
	if err != nil {
		s.respondErr(w, "batch indexing failed", err)
		return
	}
	s.recordIndexed(res.Indexed, len(res.Failed))
	s.respondJSON(w, http.StatusOK, res)
}

func (s *Server) recordIndexed(ok, failed int) {
	if s.deps.Metrics != nil {
		s.deps.Metrics.FatwasIndexed(ok, failed)
	}
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

func (s *Server) handleGetFatwa(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.respondError(w, http.StatusBadRequest, "invalid fatwa id")
		return
	}
	f, err := s.deps.Storage.GetFatwa(r.Context(), id)
	if err != nil {
		s.respondErr(w, "get fatwa failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, f)
}

func (s *Server) handleDeleteFatwa(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.respondError(w, http.StatusBadRequest, "invalid fatwa id")
		return
	}
	s.logger.Debug("delete fatwa request", zap.Int64("fatwa_id", id))
	if err := s.deps.Indexer.DeleteFatwa(r.Context(), id); err != nil {
		s.respondErr(w, "deletion failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.deps.Storage.ListCategories(r.Context())
	if err != nil {
		s.respondErr(w, "list categories failed", err)
		return
	}
	if cats == nil {
		cats = []*models.Category{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"categories": cats})
}

func (s *Server) handleUpsertCategory(w http.ResponseWriter, r *http.Request) {
	var c models.Category
	if !s.decode(w, r, &c) {
		return
	}
	if err := s.deps.Storage.UpsertCategory(r.Context(), &c); err != nil {
		s.respondErr(w, "upsert category failed", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, c)
}

func (s *Server) handleCategoryFatwas(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.respondError(w, http.StatusBadRequest, "invalid category id")
		return
	}
	c, err := s.deps.Storage.GetCategory(r.Context(), id)
	if err != nil {
		s.respondErr(w, "get category failed", err)
		return
	}
	fatwas, err := s.deps.Storage.FetchByIDs(r.Context(), c.FatwaIDs)
	if err != nil {
		s.respondErr(w, "fetch category fatwas failed", err)
		return
	}
	if fatwas == nil {
		fatwas = []*models.Fatwa{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"category": c, "fatwas": fatwas})
}

type translateRequest struct {
	Text   string `json:"text"`
	Source string `json:"source"`
	Target string `json:"target"`
}

func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	var req translateRequest
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		s.respondError(w, http.StatusBadRequest, "text cannot be empty")
		return
	}
	if req.Source == "" {
		req.Source = "ar"
	}
	if req.Target == "" {
		req.Target = "en"
	}
	out, err := s.deps.Translator.Translate(r.Context(), req.Text, req.Source, req.Target)
	if err != nil {
		s.respondErr(w, "translation failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"translated_text": out, "source": req.Source, "target": req.Target})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	total, embedded, err := s.deps.Storage.CountFatwas(r.Context())
	if err != nil {
		s.respondErr(w, "status: count fatwas failed", err)
		return
	}
	resp := map[string]interface{}{
		"fatwas":          total,
		"embedded_fatwas": embedded,
	}
	if s.deps.Keyword != nil {
		if n, err := s.deps.Keyword.DocCount(); err == nil {
			resp["keyword_documents"] = n
		}
	}
	if s.deps.Vectors != nil {
		resp["vector_index_size"] = map[string]int{
			"ar": s.deps.Vectors.Arabic.Size(),
			"en": s.deps.Vectors.English.Size(),
		}
	}
	if s.deps.Vocabulary != nil {
		resp["vocabulary_version"] = s.deps.Vocabulary.Version()
	}
	cfg := s.config
	resp["config"] = map[string]interface{}{
		"embedding_provider":   cfg.Embedding.Provider,
		"embedding_dimensions": cfg.Embedding.Dimensions,
		"vector_index_type":    cfg.Vector.IndexType,
		"translation_provider": cfg.Translation.Provider,
		"database_path":        cfg.Storage.DatabasePath,
		"bleve_index_path":     cfg.Storage.BleveIndexPath,
		"vector_index_path":    cfg.Storage.VectorIndexPath,
	}
	if usage, err := storage.MeasureDiskUsage(
		cfg.Storage.DatabasePath,
		cfg.Storage.BleveIndexPath,
		cfg.Storage.VectorIndexPath,
	); err == nil {
		resp["disk_usage"] = usage
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// statusFor maps error kinds to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondErr(w http.ResponseWriter, msg string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(msg, zap.Error(err))
	} else {
		s.logger.Debug(msg, zap.Error(err))
	}
	s.respondError(w, status, err.Error())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
