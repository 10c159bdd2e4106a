package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/creativeprojects/feedme/lib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFetcher(t *testing.T, config FetcherConfig) *Fetcher {
	return NewFetcher(config, lib.NewTestLogger(t, "fetch"))
}

func TestFetchContent(t *testing.T) {
	var userAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent = r.UserAgent()
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, sampleRSS)
	}))
	defer server.Close()

	data, err := newTestFetcher(t, FetcherConfig{UserAgent: "feedme/test"}).Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, sampleRSS, string(data))
	assert.Equal(t, "feedme/test", userAgent)
}

func TestFetchFollowsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/older", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/older", func(w http.ResponseWriter, r *http.Request) {
		// relative location
		w.Header().Set("Location", "new")
		w.WriteHeader(http.StatusFound)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, sampleAtom)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	data, err := newTestFetcher(t, FetcherConfig{}).Fetch(context.Background(), server.URL+"/old")
	require.NoError(t, err)
	assert.Equal(t, sampleAtom, string(data))
}

func TestFetchRedirectsDefault(t *testing.T) {
	fetcher := NewFetcher(FetcherConfig{}, nil)
	assert.Equal(t, DefaultMaxRedirects, fetcher.config.MaxRedirects)

	fetcher = NewFetcher(FetcherConfig{MaxRedirects: 5, NoRedirects: true}, nil)
	assert.Equal(t, 0, fetcher.config.MaxRedirects)
}

func TestFetchNoRedirects(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		http.Redirect(w, r, "/new", http.StatusMovedPermanently)
	}))
	defer server.Close()

	data, err := newTestFetcher(t, FetcherConfig{NoRedirects: true}).Fetch(context.Background(), server.URL+"/old")
	assert.Empty(t, data)
	assert.ErrorIs(t, err, ErrTooManyRedirects)
	assert.Equal(t, int32(1), atomic.LoadInt32(&requests))
}

func TestFetchRedirectLoopIsBounded(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		http.Redirect(w, r, r.URL.Path, http.StatusFound)
	}))
	defer server.Close()

	var transportErr *lib.TransportError
	data, err := newTestFetcher(t, FetcherConfig{MaxRedirects: 3}).Fetch(context.Background(), server.URL+"/loop")
	assert.Empty(t, data)
	require.ErrorAs(t, err, &transportErr)
	assert.ErrorIs(t, err, ErrTooManyRedirects)
	// the first request and 3 redirects
	assert.Equal(t, int32(4), atomic.LoadInt32(&requests))
}

func TestFetchHTTPError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	var transportErr *lib.TransportError
	data, err := newTestFetcher(t, FetcherConfig{}).Fetch(context.Background(), server.URL)
	assert.Empty(t, data)
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, http.StatusNotFound, transportErr.StatusCode)
}

func TestFetchRedirectWithoutLocation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusFound)
	}))
	defer server.Close()

	data, err := newTestFetcher(t, FetcherConfig{}).Fetch(context.Background(), server.URL)
	assert.Empty(t, data)
	assert.ErrorIs(t, err, ErrMissingLocation)
}

func TestFetchNetworkError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	var transportErr *lib.TransportError
	data, err := newTestFetcher(t, FetcherConfig{ConnectTimeout: time.Second}).Fetch(context.Background(), url)
	assert.Empty(t, data)
	require.ErrorAs(t, err, &transportErr)
	assert.Zero(t, transportErr.StatusCode)
}

func TestFetchBodyTooLarge(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, strings.Repeat("x", 2048))
	}))
	defer server.Close()

	data, err := newTestFetcher(t, FetcherConfig{MaxBodySize: 1024}).Fetch(context.Background(), server.URL)
	assert.Empty(t, data)
	assert.ErrorIs(t, err, ErrBodyTooLarge)
}

func TestFetchCancelled(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()
	start := time.Now()
	data, err := newTestFetcher(t, FetcherConfig{}).Fetch(ctx, server.URL)
	assert.Empty(t, data)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestFetchInvalidURL(t *testing.T) {
	var transportErr *lib.TransportError
	_, err := newTestFetcher(t, FetcherConfig{}).Fetch(context.Background(), "http://[::1")
	assert.ErrorAs(t, err, &transportErr)
}
