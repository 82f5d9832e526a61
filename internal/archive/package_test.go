package archive

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"
)

func TestPackageZipsSessionDirectoryRelativeToRoot(t *testing.T) {
	sessionDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(sessionDir, "options.json"), []byte("{}"), 0644); err != nil {
		t.Fatalf("write options.json: %v", err)
	}
	if err := os.WriteFile(filepath.Join(sessionDir, "actions.jsonl"), []byte("{}\n"), 0644); err != nil {
		t.Fatalf("write actions.jsonl: %v", err)
	}

	outPath := filepath.Join(t.TempDir(), "session.zip")
	if err := Package(sessionDir, outPath); err != nil {
		t.Fatalf("Package: %v", err)
	}

	r, err := zip.OpenReader(outPath)
	if err != nil {
		t.Fatalf("open produced zip: %v", err)
	}
	defer r.Close()

	names := map[string]bool{}
	for _, f := range r.File {
		names[f.Name] = true
	}
	if !names["options.json"] || !names["actions.jsonl"] {
		t.Fatalf("expected both session files in archive, got %v", names)
	}
}
