package packaging

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildFunctionArchive(t *testing.T) {
	dir := t.TempDir()
	binaryPath := filepath.Join(dir, "handler")
	require.NoError(t, os.WriteFile(binaryPath, []byte("#!ELF fake binary"), 0755))
	zipPath := filepath.Join(dir, "handler.zip")

	require.NoError(t, BuildFunctionArchive(binaryPath, zipPath))

	r, err := zip.OpenReader(zipPath)
	require.NoError(t, err)
	defer r.Close()

	require.Len(t, r.File, 1)
	entry := r.File[0]
	assert.Equal(t, "bootstrap", entry.Name)
	assert.Equal(t, os.FileMode(0755), entry.Mode().Perm())

	rc, err := entry.Open()
	require.NoError(t, err)
	defer rc.Close()
	content, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "#!ELF fake binary", string(content))
}

func TestBuildFunctionArchive_MissingBinary(t *testing.T) {
	dir := t.TempDir()
	err := BuildFunctionArchive(filepath.Join(dir, "missing"), filepath.Join(dir, "out.zip"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open handler binary")
}
