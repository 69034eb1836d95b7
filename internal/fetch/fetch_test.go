package fetch

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gojek/heimdall/v7/httpclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDownloader(url string) *Downloader {
	return &Downloader{
		client: httpclient.NewClient(httpclient.WithHTTPTimeout(5 * time.Second)),
		url:    url,
	}
}

func TestDownload(t *testing.T) {
	const body = "Country,Year,Scenario\nAT,2025,WEM\n"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	defer srv.Close()

	dir := t.TempDir()
	path, err := testDownloader(srv.URL).Download(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, DatasetFileName), path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, body, string(content))
}

func TestDownload_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := testDownloader(srv.URL).Download(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}
