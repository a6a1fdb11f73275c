package bots

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetcher_Download(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/clip.mp3" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("audio"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	f := NewFetcher(1, 5*time.Second, nil)

	dst := filepath.Join(dir, "clip.mp3")
	require.NoError(t, f.Download(context.Background(), srv.URL+"/clip.mp3", dst))
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "audio", string(data))

	missing := filepath.Join(dir, "missing.png")
	err = f.Download(context.Background(), srv.URL+"/missing.png", missing)
	assert.ErrorContains(t, err, "status 404")
	assert.NoFileExists(t, missing)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestFetcher_RetriesServerErrors(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := NewFetcher(2, 5*time.Second, nil)
	f.client.RetryWaitMin = time.Millisecond
	f.client.RetryWaitMax = 5 * time.Millisecond

	require.NoError(t, f.Download(context.Background(), srv.URL, filepath.Join(t.TempDir(), "x")))
	assert.Equal(t, 2, calls)
}
