// Package fetch downloads the greenhouse-gas emissions dataset from the EEA
// datashare endpoint.
package fetch

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gojek/heimdall/v7/httpclient"
)

// DatasetURL is the EEA endpoint serving the projections CSV.
const DatasetURL = "https://sdi.eea.europa.eu/datashare/s/GYJfBm2fMr5P6Be/download?path=&files=GHG_projections_2022_EEA_csv.csv"

// DatasetFileName is the local name the download is saved under.
const DatasetFileName = "eu_ghg_projections.csv"

// Downloader retrieves the dataset with a retrying HTTP client.
type Downloader struct {
	client *httpclient.Client
	url    string
}

// NewDownloader returns a downloader for the EEA dataset.
func NewDownloader() *Downloader {
	return &Downloader{
		client: httpclient.NewClient(
			httpclient.WithHTTPTimeout(2*time.Minute),
			httpclient.WithRetryCount(3),
		),
		url: DatasetURL,
	}
}

// Download fetches the dataset into destDir and returns the local path.
func (d *Downloader) Download(destDir string) (string, error) {
	resp, err := d.client.Get(d.url, http.Header{})
	if err != nil {
		return "", fmt.Errorf("failed to download dataset: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("dataset request failed with status %d", resp.StatusCode)
	}

	path := filepath.Join(destDir, DatasetFileName)
	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return "", fmt.Errorf("failed to save dataset: %w", err)
	}
	return path, nil
}
