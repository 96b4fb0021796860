package calibration

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetcher_DownloadsWhenAbsent(t *testing.T) {
	content := "chunk one\nchunk two\n"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(content))
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "calibration_data.txt")
	cached, err := NewFetcher(server.URL, false).Ensure(context.Background(), path)

	require.NoError(t, err)
	assert.False(t, cached)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, content, string(data))
	_, err = os.Stat(path + ".part")
	assert.True(t, os.IsNotExist(err), "temp file must not remain")
}

func TestFetcher_ReusesExistingFile(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "calibration_data.txt")
	require.NoError(t, os.WriteFile(path, []byte("already here"), 0o644))

	cached, err := NewFetcher(server.URL, false).Ensure(context.Background(), path)

	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, int32(0), hits.Load(), "cached file must skip the network")
	data, _ := os.ReadFile(path)
	assert.Equal(t, "already here", string(data))
}

func TestFetcher_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "calibration_data.txt")
	_, err := NewFetcher(server.URL, false).Ensure(context.Background(), path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestFetcher_TruncatedDownloadLeavesNoFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "4096")
		_, _ = w.Write([]byte("short"))
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "calibration_data.txt")
	_, err := NewFetcher(server.URL, false).Ensure(context.Background(), path)

	require.Error(t, err)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "truncated download must not become a cached dataset")
	_, statErr = os.Stat(path + ".part")
	assert.True(t, os.IsNotExist(statErr), "partial temp file must be cleaned up")
}

func TestFetcher_CancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("data"))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	path := filepath.Join(t.TempDir(), "calibration_data.txt")
	_, err := NewFetcher(server.URL, false).Ensure(ctx, path)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
