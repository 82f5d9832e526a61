// Package archive packages a finished session directory into a single
// zip file and, optionally, pushes it to S3.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Package walks sessionDir and writes a zip archive to outPath, with
// entry names relative to sessionDir so the archive re-expands to the
// same six-file layout.
func Package(sessionDir, outPath string) error {
	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)

	walkErr := filepath.Walk(sessionDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(sessionDir, path)
		if err != nil {
			return err
		}

		writer, err := zw.Create(filepath.ToSlash(rel))
		if err != nil {
			return fmt.Errorf("add %s to archive: %w", rel, err)
		}

		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open %s: %w", path, err)
		}
		defer f.Close()

		if _, err := io.Copy(writer, f); err != nil {
			return fmt.Errorf("write %s into archive: %w", rel, err)
		}
		return nil
	})
	if walkErr != nil {
		zw.Close()
		return walkErr
	}

	return zw.Close()
}
