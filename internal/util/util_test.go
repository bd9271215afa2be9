package util

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRobotsChecker(t *testing.T) {
	var robotsHits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		robotsHits.Add(1)
		_, _ = fmt.Fprint(w, "User-agent: groundcheck\nDisallow: /drafts/\nCrawl-delay: 2\n\nUser-agent: *\nDisallow: /\n")
	}))
	defer server.Close()

	r := NewRobotsChecker("groundcheck/1.0 (+https://example.com)", 5*time.Second, nil)
	ctx := context.Background()

	allowed, delay, err := r.CanFetch(ctx, server.URL+"/docs/a.html")
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, 2*time.Second, delay)

	allowed, _, err = r.CanFetch(ctx, server.URL+"/drafts/b.html")
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, int32(1), robotsHits.Load(), "rules are cached per host")

	other := NewRobotsChecker("otherbot", 5*time.Second, nil)
	allowed, _, err = other.CanFetch(ctx, server.URL+"/docs/a.html")
	require.NoError(t, err)
	assert.False(t, allowed)

	_, _, err = r.CanFetch(ctx, "ftp://example.com/file")
	assert.Error(t, err)
}

func TestRobotsChecker_MissingRobotsAllows(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	allowed, _, err := NewRobotsChecker("groundcheck", time.Second, nil).CanFetch(context.Background(), server.URL+"/x")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestNormalizeUserAgent(t *testing.T) {
	assert.Equal(t, "groundcheck", NormalizeUserAgent("groundcheck/1.0 (+https://example.com)"))
	assert.Equal(t, "bot", NormalizeUserAgent("bot"))
	assert.Equal(t, "", NormalizeUserAgent(""))
}

func TestNewProxyFunc(t *testing.T) {
	proxy := NewProxyFunc("http://proxy.local:3128", "", "internal.local")

	req, _ := http.NewRequest(http.MethodGet, "https://example.com/", nil)
	u, err := proxy(req)
	require.NoError(t, err)
	assert.Equal(t, &url.URL{Scheme: "http", Host: "proxy.local:3128"}, u)

	req, _ = http.NewRequest(http.MethodGet, "https://internal.local/", nil)
	u, err = proxy(req)
	require.NoError(t, err)
	assert.Nil(t, u)
}
