// Package fetch downloads remote document sources politely: robots.txt is
// honoured, requests are rate limited per host and transient failures retried.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ppiankov/groundcheck/internal/model"
	"github.com/ppiankov/groundcheck/internal/util"
)

// Config controls HTTP fetching of document sources
type Config struct {
	Timeout           time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
	UserAgent         string        `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
	MaxBytes          int64         `json:"max_bytes" yaml:"max_bytes" mapstructure:"max_bytes"`
	RequestsPerSecond float64       `json:"requests_per_second" yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int           `json:"burst" yaml:"burst" mapstructure:"burst"`
	RespectRobots     bool          `json:"respect_robots" yaml:"respect_robots" mapstructure:"respect_robots"`
	HTTPProxy         string        `json:"http_proxy,omitempty" yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy        string        `json:"https_proxy,omitempty" yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy           string        `json:"no_proxy,omitempty" yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// DefaultConfig returns the fetch defaults
func DefaultConfig() Config {
	return Config{
		Timeout:           30 * time.Second,
		UserAgent:         "groundcheck/1.0 (+https://github.com/ppiankov/groundcheck)",
		MaxBytes:          5 << 20,
		RequestsPerSecond: 2,
		Burst:             4,
		RespectRobots:     true,
	}
}

const maxAttempts = 3

// fetchSleepFunc is swapped out by tests
var fetchSleepFunc = time.Sleep

// Fetcher retrieves document sources over HTTP
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	robots     *util.RobotsChecker
	limiter    *Limiter
}

// NewFetcher creates a new Fetcher with the given configuration
func NewFetcher(cfg Config) *Fetcher {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultConfig().MaxBytes
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultConfig().UserAgent
	}
	proxy := util.NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy)

	f := &Fetcher{
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: &http.Transport{Proxy: proxy},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		userAgent: cfg.UserAgent,
		maxBytes:  cfg.MaxBytes,
	}
	if cfg.RespectRobots {
		f.robots = util.NewRobotsChecker(cfg.UserAgent, cfg.Timeout, proxy)
	}
	if cfg.RequestsPerSecond > 0 {
		f.limiter = NewLimiter(cfg.RequestsPerSecond, cfg.Burst)
	}
	return f
}

// Result contains a fetched body and its metadata
type Result struct {
	Body        []byte
	ContentType string
	StatusCode  int
	FinalURL    string
	Subject     string
	Truncated   bool
}

// statusError is a non-2xx response
type statusError struct {
	code   int
	status string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status: %d %s", e.code, e.status)
}

// Fetch retrieves the URL once
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Result, error) {
	if f.robots != nil {
		allowed, delay, err := f.robots.CanFetch(ctx, rawURL)
		if err != nil {
			return nil, model.Inputf("fetch", "%s: %v", rawURL, err)
		}
		if !allowed {
			return nil, model.Inputf("fetch", "%s: disallowed by robots.txt", rawURL)
		}
		if f.limiter != nil && delay > 0 {
			f.limiter.SetCrawlDelay(rawURL, delay)
		}
	}
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx, rawURL); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "create request")
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/json,text/plain;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "fetch")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &statusError{code: resp.StatusCode, status: resp.Status}
	}

	// One byte past the limit tells truncation apart from an exact fit
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, eris.Wrap(err, "read body")
	}
	truncated := int64(len(body)) > f.maxBytes
	if truncated {
		body = body[:f.maxBytes]
		zap.L().Warn("fetch: body truncated", zap.String("url", rawURL), zap.Int64("max_bytes", f.maxBytes))
	}

	finalURL := resp.Request.URL.String()
	return &Result{
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		StatusCode:  resp.StatusCode,
		FinalURL:    finalURL,
		Subject:     extractSubject(finalURL),
		Truncated:   truncated,
	}, nil
}

// FetchWithRetry retries transient failures with exponential backoff.
// Failures that remain are typed: transient ones as unavailable, the rest as input errors.
func (f *Fetcher) FetchWithRetry(ctx context.Context, rawURL string) (*Result, error) {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<(attempt-1)) * time.Second
			zap.L().Debug("fetch: retrying", zap.String("url", rawURL), zap.Int("attempt", attempt+1), zap.Duration("backoff", backoff), zap.Error(lastErr))
			fetchSleepFunc(backoff)
		}
		result, err := f.Fetch(ctx, rawURL)
		if err == nil {
			return result, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
		if !isRetryableFetchError(err) {
			break
		}
	}

	var typed *model.Error
	switch {
	case errors.As(lastErr, &typed):
		return nil, lastErr
	case isRetryableFetchError(lastErr):
		return nil, model.Unavailable("fetch "+rawURL, lastErr)
	default:
		return nil, model.E(model.KindInput, "fetch "+rawURL, lastErr)
	}
}

// isRetryableFetchError reports server errors, throttling and network failures
func isRetryableFetchError(err error) bool {
	if err == nil {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.code == http.StatusTooManyRequests || se.code >= 500
	}
	var ue *url.Error
	if errors.As(err, &ue) {
		return ue.Op != "parse" && !strings.Contains(ue.Err.Error(), "redirects")
	}
	var ne net.Error
	return errors.As(err, &ne)
}

// extractSubject derives a human-readable name from the URL
func extractSubject(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	path := strings.Trim(parsed.Path, "/")
	if path == "" {
		return parsed.Host
	}

	segments := strings.Split(path, "/")
	last := segments[len(segments)-1]
	if unescaped, err := url.PathUnescape(last); err == nil {
		last = unescaped
	}

	if idx := strings.LastIndex(last, "."); idx > 0 {
		last = last[:idx]
	}
	last = strings.NewReplacer("_", " ", "-", " ").Replace(last)

	return last
}
