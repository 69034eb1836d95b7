// Package packaging builds Lambda deployment archives. The zip produced for
// the provided.al2023 runtime must contain a single executable named
// bootstrap at the archive root.
package packaging

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
)

// BuildFunctionArchive zips the built handler binary at binaryPath into
// zipPath as bootstrap, with the executable bit set.
func BuildFunctionArchive(binaryPath, zipPath string) error {
	binary, err := os.Open(binaryPath)
	if err != nil {
		return fmt.Errorf("failed to open handler binary %s: %w", binaryPath, err)
	}
	defer binary.Close()

	info, err := binary.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat handler binary: %w", err)
	}

	out, err := os.Create(zipPath)
	if err != nil {
		return fmt.Errorf("failed to create archive %s: %w", zipPath, err)
	}
	defer out.Close()

	w := zip.NewWriter(out)

	header := &zip.FileHeader{
		Name:   "bootstrap",
		Method: zip.Deflate,
	}
	header.SetMode(0755)
	header.Modified = info.ModTime()

	entry, err := w.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("failed to create archive entry: %w", err)
	}
	if _, err := io.Copy(entry, binary); err != nil {
		return fmt.Errorf("failed to write archive entry: %w", err)
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize archive %s: %w", zipPath, err)
	}
	return nil
}
