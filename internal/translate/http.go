package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/iftaa/internal/models"
	"github.com/hyperjump/iftaa/internal/resilience"
)

const operation = "translate"

// HTTPStatusError is a non-2xx response from the translation service.
type HTTPStatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("translate status: %s", e.Status)
	}
	return fmt.Sprintf("translate status: %s: %s", e.Status, strings.TrimSpace(e.Body))
}

// HTTPTranslator talks to a LibreTranslate-compatible endpoint:
// POST {q, source, target, format, api_key} -> {translatedText}.
type HTTPTranslator struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	executor   *resilience.Executor
	logger     *zap.Logger
}

// Option configures an HTTPTranslator.
type Option func(*HTTPTranslator)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(t *HTTPTranslator) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithAPIKey sets the api_key request field.
func WithAPIKey(key string) Option {
	return func(t *HTTPTranslator) { t.apiKey = key }
}

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) Option {
	return func(t *HTTPTranslator) {
		if c != nil {
			t.httpClient = c
		}
	}
}

// NewHTTPTranslator creates a translator posting to endpoint with the given per-request timeout.
func NewHTTPTranslator(endpoint string, timeout time.Duration, executor *resilience.Executor, opts ...Option) *HTTPTranslator {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	t := &HTTPTranslator{
		endpoint:   strings.TrimRight(endpoint, "/"),
		httpClient: &http.Client{Timeout: timeout},
		executor:   executor,
		logger:     zap.NewNop(),
	}
	if t.executor == nil {
		t.executor = resilience.NewExecutor(resilience.DefaultConfig())
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

type translateRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
	APIKey string `json:"api_key,omitempty"`
}

type translateResponse struct {
	TranslatedText string `json:"translatedText"`
}

// Translate returns text translated from source to target. Blank text and
// source == target return text unchanged without a request.
func (t *HTTPTranslator) Translate(ctx context.Context, text, source, target string) (string, error) {
	if strings.TrimSpace(text) == "" || source == target {
		return text, nil
	}
	body, err := json.Marshal(translateRequest{Q: text, Source: source, Target: target, Format: "text", APIKey: t.apiKey})
	if err != nil {
		return "", fmt.Errorf("marshal translate request: %w", err)
	}

	var out string
	err = t.executor.Execute(ctx, operation, func(ctx context.Context) error {
		translated, err := t.post(ctx, body)
		if err != nil {
			return err
		}
		out = translated
		return nil
	}, classify)
	if err != nil {
		t.logger.Warn("translation failed", zap.String("source", source), zap.String("target", target), zap.Error(err))
		return "", models.WrapError(models.ErrUpstreamUnavailable, operation, err)
	}
	return out, nil
}

func (t *HTTPTranslator) post(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", &HTTPStatusError{StatusCode: resp.StatusCode, Status: resp.Status, Body: string(msg)}
	}
	var decoded translateResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode translate response: %w", err)
	}
	return decoded.TranslatedText, nil
}

func classify(err error) resilience.ErrorClassification {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		retry := isRetryableHTTPStatus(statusErr.StatusCode)
		return resilience.ErrorClassification{Retryable: retry, RecordFailure: retry}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
}

func isRetryableHTTPStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout, http.StatusTooManyRequests, http.StatusInternalServerError,
		http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
