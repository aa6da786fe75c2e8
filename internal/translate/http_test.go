package translate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/iftaa/internal/models"
	"github.com/hyperjump/iftaa/internal/resilience"
)

func fastExecutor() *resilience.Executor {
	return resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     2 * time.Millisecond,
	})
}

func TestHTTPTranslator_Translate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req translateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "ar", req.Source)
		assert.Equal(t, "en", req.Target)
		assert.Equal(t, "secret", req.APIKey)
		_ = json.NewEncoder(w).Encode(translateResponse{TranslatedText: "prayer"})
	}))
	defer srv.Close()

	tr := NewHTTPTranslator(srv.URL, time.Second, fastExecutor(), WithAPIKey("secret"))
	got, err := tr.Translate(context.Background(), "صلاة", "ar", "en")
	require.NoError(t, err)
	assert.Equal(t, "prayer", got)
}

func TestHTTPTranslator_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(translateResponse{TranslatedText: "ok"})
	}))
	defer srv.Close()

	got, err := NewHTTPTranslator(srv.URL, time.Second, fastExecutor()).Translate(context.Background(), "x", "ar", "en")
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, int32(3), calls.Load())
}

func TestHTTPTranslator_PermanentError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad language", http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := NewHTTPTranslator(srv.URL, time.Second, fastExecutor()).Translate(context.Background(), "x", "ar", "xx")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrUpstreamUnavailable)
	assert.Equal(t, int32(1), calls.Load())
}

func TestHTTPTranslator_ShortCircuits(t *testing.T) {
	tr := NewHTTPTranslator("http://127.0.0.1:1", time.Second, fastExecutor())
	got, err := tr.Translate(context.Background(), "  ", "ar", "en")
	require.NoError(t, err)
	assert.Equal(t, "  ", got)

	got, err = tr.Translate(context.Background(), "hello", "en", "en")
	require.NoError(t, err)
	assert.Equal(t, "hello", got)
}

func TestFields(t *testing.T) {
	got, err := Fields(context.Background(), Nop{}, []string{"a", "", "c"}, "ar", "en")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "", "c"}, got)
}
