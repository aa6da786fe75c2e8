// Package server provides the HTTP API for iftaa.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/iftaa/internal/config"
	"github.com/hyperjump/iftaa/internal/indexer"
	"github.com/hyperjump/iftaa/internal/keyword"
	"github.com/hyperjump/iftaa/internal/metrics"
	"github.com/hyperjump/iftaa/internal/search"
	"github.com/hyperjump/iftaa/internal/storage"
	"github.com/hyperjump/iftaa/internal/translate"
	"github.com/hyperjump/iftaa/internal/vector"
	"github.com/hyperjump/iftaa/internal/vocab"
)

// Deps are the components the API serves. Keyword, Vectors, Vocabulary,
// Translator and Metrics are optional.
type Deps struct {
	Engine     *search.Engine
	Indexer    *indexer.Indexer
	Storage    storage.Storage
	Keyword    keyword.KeywordIndex
	Vectors    *vector.Set
	Vocabulary *vocab.Store
	Translator translate.Translator
	Metrics    *metrics.Metrics
}

// Server is the HTTP server for the iftaa API.
type Server struct {
	deps   Deps
	config *config.Config
	logger *zap.Logger
	server *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(deps Deps, cfg *config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Translator == nil {
		deps.Translator = translate.Nop{}
	}
	return &Server{deps: deps, config: cfg, logger: logger}
}

// Router builds the chi router with middleware and every route.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	if s.deps.Metrics != nil {
		r.Use(s.deps.Metrics.Middleware)
	}
	r.Use(middleware.Timeout(s.config.Server.RequestTimeout))
	r.Use(middleware.Compress(5))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/search", s.handleSearch)
		r.Get("/search", s.handleSearchGet)
		r.Post("/query/optimize", s.handleOptimize)
		r.Get("/language", s.handleLanguage)
		r.Get("/normalize", s.handleNormalize)
		r.Get("/expand", s.handleExpand)

		r.Post("/fatwas", s.handleIndexFatwa)
		r.Post("/fatwas/batch", s.handleIndexBatch)
		r.Get("/fatwas/{id}", s.handleGetFatwa)
		r.Delete("/fatwas/{id}", s.handleDeleteFatwa)

		r.Get("/categories", s.handleListCategories)
		r.Post("/categories", s.handleUpsertCategory)
		r.Get("/categories/{id}/fatwas", s.handleCategoryFatwas)

		r.Post("/translate", s.handleTranslate)
		r.Get("/status", s.handleStatus)
	})
	r.Get("/health", s.handleHealth)
	if s.deps.Metrics != nil && s.config.Metrics.EnabledOrDefault() {
		r.Handle(s.config.Metrics.Path, s.deps.Metrics.Handler())
	}
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

const requestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// requestID propagates or assigns a request id.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			zap.String("request_id", requestIDFrom(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}
