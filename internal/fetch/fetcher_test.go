package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/groundcheck/internal/model"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Timeout = 5 * time.Second
	cfg.UserAgent = "test-agent"
	cfg.RespectRobots = false
	cfg.RequestsPerSecond = 0
	return cfg
}

func noSleep(t *testing.T) {
	orig := fetchSleepFunc
	fetchSleepFunc = func(time.Duration) {}
	t.Cleanup(func() { fetchSleepFunc = orig })
}

func TestFetchWithRetry_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-agent", r.UserAgent())
		w.Header().Set("Content-Type", "text/html")
		_, _ = fmt.Fprint(w, "<html><body>OK</body></html>")
	}))
	defer server.Close()

	result, err := NewFetcher(testConfig()).FetchWithRetry(context.Background(), server.URL+"/wiki/Eiffel_Tower")
	require.NoError(t, err)
	assert.Equal(t, "<html><body>OK</body></html>", string(result.Body))
	assert.Equal(t, "text/html", result.ContentType)
	assert.Equal(t, "Eiffel Tower", result.Subject)
	assert.False(t, result.Truncated)
}

func TestFetchWithRetry_TransientThenSuccess(t *testing.T) {
	noSleep(t)
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = fmt.Fprint(w, "OK")
	}))
	defer server.Close()

	result, err := NewFetcher(testConfig()).FetchWithRetry(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "OK", string(result.Body))
	assert.Equal(t, int32(3), attempts.Load())
}

func TestFetchWithRetry_PermanentFailure(t *testing.T) {
	noSleep(t)
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := NewFetcher(testConfig()).FetchWithRetry(context.Background(), server.URL)
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.KindInput))
	assert.Contains(t, err.Error(), "unexpected status: 404")
	assert.Equal(t, int32(1), attempts.Load(), "404 is not retried")
}

func TestFetchWithRetry_AllRetriesExhausted(t *testing.T) {
	noSleep(t)
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := NewFetcher(testConfig()).FetchWithRetry(context.Background(), server.URL)
	require.Error(t, err)
	assert.True(t, model.IsTemporary(err))
	assert.Equal(t, int32(maxAttempts), attempts.Load())
}

func TestFetchWithRetry_429Retried(t *testing.T) {
	noSleep(t)
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = fmt.Fprint(w, "OK")
	}))
	defer server.Close()

	_, err := NewFetcher(testConfig()).FetchWithRetry(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, int32(2), attempts.Load())
}

func TestFetch_TruncatesAtMaxBytes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, strings.Repeat("a", 100))
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.MaxBytes = 10
	result, err := NewFetcher(cfg).Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Len(t, result.Body, 10)
	assert.True(t, result.Truncated)

	cfg.MaxBytes = 100
	result, err = NewFetcher(cfg).Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.False(t, result.Truncated)
}

func TestFetch_RobotsDisallowed(t *testing.T) {
	var pageHits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			_, _ = fmt.Fprint(w, "User-agent: *\nDisallow: /private/\n")
			return
		}
		pageHits.Add(1)
		_, _ = fmt.Fprint(w, "OK")
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.RespectRobots = true
	f := NewFetcher(cfg)

	_, err := f.FetchWithRetry(context.Background(), server.URL+"/private/doc.html")
	assert.True(t, model.IsKind(err, model.KindInput))
	assert.Contains(t, err.Error(), "robots.txt")

	_, err = f.FetchWithRetry(context.Background(), server.URL+"/public/doc.html")
	require.NoError(t, err)
	assert.Equal(t, int32(1), pageHits.Load())
}

func TestFetchWithRetry_Cancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, "OK")
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewFetcher(testConfig()).FetchWithRetry(ctx, server.URL)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsRetryableFetchError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"503", &statusError{code: 503, status: "503 Service Unavailable"}, true},
		{"500", &statusError{code: 500, status: "500 Internal Server Error"}, true},
		{"429", &statusError{code: 429, status: "429 Too Many Requests"}, true},
		{"404", &statusError{code: 404, status: "404 Not Found"}, false},
		{"403", &statusError{code: 403, status: "403 Forbidden"}, false},
		{"plain", fmt.Errorf("read body: unexpected EOF"), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.retryable, isRetryableFetchError(tt.err))
		})
	}
}

func TestExtractSubject(t *testing.T) {
	tests := map[string]string{
		"https://en.wikipedia.org/wiki/Marie_Curie": "Marie Curie",
		"https://example.com/":                      "example.com",
		"https://example.com/docs/annual-report.pdf": "annual report",
		"https://example.com/a/Caf%C3%A9_de_Flore":  "Café de Flore",
	}
	for in, want := range tests {
		assert.Equal(t, want, extractSubject(in), in)
	}
}
