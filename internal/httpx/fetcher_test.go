package httpx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"careersync/internal/config"
)

func newTestFetcher(t *testing.T) *CollyFetcher {
	t.Helper()

	cfg, err := config.LoadConfig("")
	require.NoError(t, err)
	cfg.Fetcher.RequestDelay = 5 * time.Millisecond
	cfg.Fetcher.RequestTimeout = 5 * time.Second
	cfg.Fetcher.MaxRetries = 3
	return NewCollyFetcher(cfg)
}

func TestFetchPageSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("<html><body><div class=\"job-listing\">Engineer</div></body></html>"))
	}))
	defer server.Close()

	f := newTestFetcher(t)
	page, err := f.FetchPage(context.Background(), server.URL+"/careers")

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, page.StatusCode)
	assert.Contains(t, page.Body, "job-listing")
	assert.Contains(t, page.URL, "/careers")
}

func TestFetchPageNotFoundFailsFast(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		atomic.AddInt32(&hits, 1)
		http.NotFound(w, r)
	}))
	defer server.Close()

	f := newTestFetcher(t)
	_, err := f.FetchPage(context.Background(), server.URL+"/careers")

	require.Error(t, err)
	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, http.StatusNotFound, fetchErr.Status)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits), "client errors are not retried")
}

func TestFetchPageRetriesServerErrors(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		if atomic.AddInt32(&hits, 1) == 1 {
			http.Error(w, "flaky", http.StatusInternalServerError)
			return
		}
		w.Write([]byte("<html><body>ok</body></html>"))
	}))
	defer server.Close()

	f := newTestFetcher(t)
	page, err := f.FetchPage(context.Background(), server.URL+"/careers")

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, page.StatusCode)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&hits), int32(2))
}

func TestFetchPageEmptyURL(t *testing.T) {
	f := newTestFetcher(t)

	_, err := f.FetchPage(context.Background(), "")
	require.Error(t, err)
	var fetchErr *FetchError
	assert.True(t, errors.As(err, &fetchErr))
}

func TestFetchPageHonorsContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte("slow"))
	}))
	defer server.Close()

	f := newTestFetcher(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.FetchPage(ctx, server.URL)
	require.Error(t, err)
}
