package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/iftaa/internal/cli"
	"github.com/hyperjump/iftaa/internal/config"
	"github.com/hyperjump/iftaa/internal/language"
	"github.com/hyperjump/iftaa/internal/models"
	"github.com/hyperjump/iftaa/internal/server"
	"github.com/hyperjump/iftaa/internal/storage"
	"github.com/hyperjump/iftaa/internal/textnorm"
	"github.com/hyperjump/iftaa/internal/watcher"
)

const shutdownTimeout = 10 * time.Second

func newServerCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServer(cmd.Context(), g)
		},
	}
}

func runServer(ctx context.Context, g *globalOptions) error {
	cfg, resolved, logger, err := g.setup()
	if err != nil {
		return err
	}
	defer logger.Sync()
	logger.Info("config loaded", zap.String("config_path", resolved), zap.Bool("debug", cfg.Debug))

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		return err
	}
	defer components.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := components.watchVocabulary(ctx); err != nil {
		logger.Warn("vocabulary watch disabled", zap.Error(err))
	}

	if len(cfg.Import.Directories) > 0 {
		inbox := newImportInbox(ctx, components)
		if err := inbox.Start(ctx); err != nil {
			return fmt.Errorf("start import inbox: %w", err)
		}
		defer inbox.Stop()
		inbox.Sync()
	}

	srv := server.NewServer(server.Deps{
		Engine:     components.Engine,
		Indexer:    components.Indexer,
		Storage:    components.Storage,
		Keyword:    components.KeywordIndex,
		Vectors:    components.Vectors,
		Vocabulary: components.Vocabulary,
		Translator: components.Translator,
		Metrics:    components.Metrics,
	}, cfg, logger)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Stop(shutdownCtx)
}

// newImportInbox indexes files dropped into the configured import directories.
func newImportInbox(ctx context.Context, c *Components) *watcher.Inbox {
	exts := c.Config.Import.Extensions
	return watcher.NewInbox(c.Config.Import.Directories, exts, func(path string) {
		res, err := c.Indexer.IndexFile(ctx, path, exts)
		if err != nil {
			c.Logger.Warn("inbox import failed", zap.String("path", path), zap.Error(err))
			return
		}
		c.Metrics.FatwasIndexed(res.Indexed, len(res.Failed))
	}, watcher.WithLogger(c.Logger))
}

// searchOptions holds CLI flags for search.
type searchOptions struct {
	serverURL string
	page      int
	pageSize  int
	language  string
	output    string
}

func newSearchCmd(g *globalOptions) *cobra.Command {
	var opts searchOptions
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search fatwas",
		Long: `Search fatwas in Arabic or English.

The query is all remaining arguments joined by spaces. By default the
running server is queried; pass --server "" to open the indexes directly.

Examples:
  iftaa search صلاة المسافر
  iftaa search --language en "travel prayer"
  iftaa search --page 2 --page-size 20 الزكاة
  iftaa search --output json زكاة الفطر`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), cmd.OutOrStdout(), g, buildSearchQuery(args), opts)
		},
	}
	cmd.Flags().StringVar(&opts.serverURL, "server", defaultServerURL, "server URL (empty = open the indexes directly)")
	cmd.Flags().IntVar(&opts.page, "page", 1, "page number, starting at 1")
	cmd.Flags().IntVar(&opts.pageSize, "page-size", models.DefaultPageSize, "results per page")
	cmd.Flags().StringVarP(&opts.language, "language", "l", "auto", "query language: auto, ar or en")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "text", "output format: text, compact or json")
	return cmd
}

// buildSearchQuery joins all positional args with spaces so multi-word
// queries work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func runSearch(ctx context.Context, w io.Writer, g *globalOptions, queryStr string, opts searchOptions) error {
	format, err := cli.ParseOutputFormat(opts.output)
	if err != nil {
		return err
	}
	query := &models.SearchQuery{
		Query:    queryStr,
		Language: opts.language,
		Page:     opts.page,
		PageSize: opts.pageSize,
	}
	if err := query.Validate(); err != nil {
		return err
	}

	var response *models.SearchResponse
	if opts.serverURL != "" {
		response, err = newAPIClient(opts.serverURL).search(ctx, query)
	} else {
		response, err = searchLocal(ctx, g, query)
	}
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	return cli.WriteSearchResults(w, response, format)
}

func searchLocal(ctx context.Context, g *globalOptions, query *models.SearchQuery) (*models.SearchResponse, error) {
	cfg, _, logger, err := g.setup()
	if err != nil {
		return nil, err
	}
	defer logger.Sync()
	components, err := initializeComponents(cfg, logger)
	if err != nil {
		return nil, err
	}
	defer components.Close()
	return components.Engine.SearchQuery(ctx, query)
}

func newImportCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file-or-directory>...",
		Short: "Import fatwas from JSON, JSONL, CSV or XLSX files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withComponents(g, func(c *Components) error {
				return runImport(cmd.Context(), cmd.OutOrStdout(), c, args)
			})
		},
	}
}

func runImport(ctx context.Context, w io.Writer, c *Components, paths []string) error {
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("stat %s: %w", path, err)
		}
		if info.IsDir() {
			n, err := c.Indexer.IndexDirectory(ctx, path, c.Config.Import.Extensions)
			if err != nil {
				return fmt.Errorf("import directory %s: %w", path, err)
			}
			fmt.Fprintf(w, "Indexed %d fatwa(s) from %s\n", n, path)
			continue
		}
		// A single named file skips the extension filter.
		res, err := c.Indexer.IndexFile(ctx, path, nil)
		if err != nil {
			return fmt.Errorf("import %s: %w", path, err)
		}
		fmt.Fprintf(w, "Indexed %d fatwa(s) from %s (batch %s)\n", res.Indexed, path, res.BatchID)
		for id, msg := range res.Failed {
			fmt.Fprintf(w, "  fatwa %d failed: %s\n", id, msg)
		}
	}
	return nil
}

func newDeleteCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <fatwa-id>",
		Short: "Delete a fatwa and its index entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseFatwaID(args[0])
			if err != nil {
				return err
			}
			return withComponents(g, func(c *Components) error {
				if err := c.Indexer.DeleteFatwa(cmd.Context(), id); err != nil {
					return fmt.Errorf("deletion failed: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Fatwa deleted: %d\n", id)
				return nil
			})
		},
	}
}

func parseFatwaID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: fatwa id must be a positive integer, got %q", models.ErrInvalidInput, s)
	}
	return id, nil
}

func newReindexCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the keyword and vector indexes from stored fatwas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withComponents(g, func(c *Components) error {
				n, err := c.Indexer.Reindex(cmd.Context())
				if err != nil {
					return fmt.Errorf("reindex failed: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reindexed %d fatwa(s)\n", n)
				return nil
			})
		},
	}
}

// withComponents opens every component for a one-shot command.
func withComponents(g *globalOptions, fn func(*Components) error) error {
	cfg, _, logger, err := g.setup()
	if err != nil {
		return err
	}
	defer logger.Sync()
	components, err := initializeComponents(cfg, logger)
	if err != nil {
		return err
	}
	defer components.Close()
	return fn(components)
}

// statusResponse is the shape of the GET /api/v1/status response.
type statusResponse struct {
	Fatwas            int64              `json:"fatwas"`
	EmbeddedFatwas    int64              `json:"embedded_fatwas"`
	KeywordDocuments  uint64             `json:"keyword_documents,omitempty"`
	VectorIndexSize   map[string]int     `json:"vector_index_size,omitempty"`
	VocabularyVersion uint64             `json:"vocabulary_version,omitempty"`
	DiskUsage         *storage.DiskUsage `json:"disk_usage,omitempty"`
	Config            *statusConfig      `json:"config,omitempty"`
}

type statusConfig struct {
	EmbeddingProvider   string `json:"embedding_provider"`
	EmbeddingDimensions int    `json:"embedding_dimensions"`
	VectorIndexType     string `json:"vector_index_type"`
	TranslationProvider string `json:"translation_provider"`
	DatabasePath        string `json:"database_path,omitempty"`
	BleveIndexPath      string `json:"bleve_index_path,omitempty"`
	VectorIndexPath     string `json:"vector_index_path,omitempty"`
}

func newStatusCmd(g *globalOptions) *cobra.Command {
	var serverURL, output string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show storage and index status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if output != "text" && output != "json" {
				return fmt.Errorf("unknown output format %q; use text or json", output)
			}
			var (
				status *statusResponse
				err    error
			)
			if serverURL != "" {
				status, err = newAPIClient(serverURL).status(cmd.Context())
			} else {
				err = withComponents(g, func(c *Components) error {
					status, err = localStatus(cmd.Context(), c)
					return err
				})
			}
			if err != nil {
				return fmt.Errorf("status failed: %w", err)
			}
			if output == "json" {
				return cli.WriteJSON(cmd.OutOrStdout(), status)
			}
			writeStatusText(cmd.OutOrStdout(), status)
			return nil
		},
	}
	cmd.Flags().StringVar(&serverURL, "server", defaultServerURL, "server URL (empty = open the indexes directly)")
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format: text or json")
	return cmd
}

func localStatus(ctx context.Context, c *Components) (*statusResponse, error) {
	total, embedded, err := c.Storage.CountFatwas(ctx)
	if err != nil {
		return nil, err
	}
	cfg := c.Config
	status := &statusResponse{
		Fatwas:            total,
		EmbeddedFatwas:    embedded,
		VectorIndexSize:   map[string]int{"ar": c.Vectors.Arabic.Size(), "en": c.Vectors.English.Size()},
		VocabularyVersion: c.Vocabulary.Version(),
		Config:            statusConfigFrom(cfg),
	}
	if n, err := c.KeywordIndex.DocCount(); err == nil {
		status.KeywordDocuments = n
	}
	if usage, err := storage.MeasureDiskUsage(cfg.Storage.DatabasePath, cfg.Storage.BleveIndexPath, cfg.Storage.VectorIndexPath); err == nil {
		status.DiskUsage = &usage
	}
	return status, nil
}

func statusConfigFrom(cfg *config.Config) *statusConfig {
	return &statusConfig{
		EmbeddingProvider:   cfg.Embedding.Provider,
		EmbeddingDimensions: cfg.Embedding.Dimensions,
		VectorIndexType:     cfg.Vector.IndexType,
		TranslationProvider: cfg.Translation.Provider,
		DatabasePath:        cfg.Storage.DatabasePath,
		BleveIndexPath:      cfg.Storage.BleveIndexPath,
		VectorIndexPath:     cfg.Storage.VectorIndexPath,
	}
}

func writeStatusText(w io.Writer, s *statusResponse) {
	fmt.Fprintf(w, "fatwas:             %d   # stored fatwas\n", s.Fatwas)
	fmt.Fprintf(w, "embedded_fatwas:    %d   # fatwas with vectors\n", s.EmbeddedFatwas)
	fmt.Fprintf(w, "keyword_documents:  %d\n", s.KeywordDocuments)
	fmt.Fprintf(w, "vectors_ar:         %d\n", s.VectorIndexSize["ar"])
	fmt.Fprintf(w, "vectors_en:         %d\n", s.VectorIndexSize["en"])
	fmt.Fprintf(w, "vocabulary_version: %d\n", s.VocabularyVersion)
	if u := s.DiskUsage; u != nil {
		fmt.Fprintf(w, "disk_usage_bytes:   %d   # database %d, keyword %d, vectors %d\n", u.Total, u.Database, u.Keyword, u.Vectors)
	}
	if c := s.Config; c != nil {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "# configuration")
		fmt.Fprintf(w, "embedding:          %s (%d dims)\n", c.EmbeddingProvider, c.EmbeddingDimensions)
		fmt.Fprintf(w, "vector_index_type:  %s\n", c.VectorIndexType)
		fmt.Fprintf(w, "translation:        %s\n", c.TranslationProvider)
		if c.DatabasePath != "" {
			fmt.Fprintf(w, "database_path:      %s\n", c.DatabasePath)
		}
		if c.BleveIndexPath != "" {
			fmt.Fprintf(w, "bleve_index_path:   %s\n", c.BleveIndexPath)
		}
		if c.VectorIndexPath != "" {
			fmt.Fprintf(w, "vector_index_path:  %s\n", c.VectorIndexPath)
		}
	}
}

func newDetectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "detect <text>",
		Short: "Detect the language of text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lang, conf := language.Detect(buildSearchQuery(args))
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%.2f\n", lang, conf)
			return nil
		},
	}
}

func newNormalizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "normalize <text>",
		Short: "Show the normalized form of text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), textnorm.Normalize(buildSearchQuery(args)))
			return nil
		},
	}
}

func newExpandCmd(g *globalOptions) *cobra.Command {
	var plan bool
	cmd := &cobra.Command{
		Use:   "expand <text>",
		Short: "Show the vocabulary expansion of text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, logger, err := g.setup()
			if err != nil {
				return err
			}
			defer logger.Sync()
			opt, err := diagnosticOptimizer(cfg, logger)
			if err != nil {
				return err
			}
			text := buildSearchQuery(args)
			if !plan {
				fmt.Fprintln(cmd.OutOrStdout(), opt.Expand(text))
				return nil
			}
			p := opt.Optimize(text)
			return cli.WriteJSON(cmd.OutOrStdout(), map[string]interface{}{
				"original":       p.Original,
				"language":       p.Language.String(),
				"confidence":     p.Confidence,
				"corrected":      p.Corrected,
				"normalized":     p.Normalized,
				"terms":          p.Terms,
				"expanded":       p.Expanded,
				"expanded_terms": p.ExpandedTerms,
			})
		},
	}
	cmd.Flags().BoolVar(&plan, "plan", false, "print the full query plan as JSON")
	return cmd
}
