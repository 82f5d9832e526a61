package session

import (
	"fmt"
	"os"
	"path/filepath"
)

// SessionLayout names the six files a finished session directory contains.
type SessionLayout struct {
	Dir          string
	OptionsPath  string
	MetaPath     string
	ActionsPath  string
	CompiledPath string
	ThoughtsPath string
	VideoPath    string
}

func newSessionLayout(dir string) SessionLayout {
	return SessionLayout{
		Dir:          dir,
		OptionsPath:  filepath.Join(dir, "options.json"),
		MetaPath:     filepath.Join(dir, "meta.json"),
		ActionsPath:  filepath.Join(dir, "actions.jsonl"),
		CompiledPath: filepath.Join(dir, "compiled.jsonl"),
		ThoughtsPath: filepath.Join(dir, "thoughts.txt"),
		VideoPath:    filepath.Join(dir, "video.mp4"),
	}
}

// tmpSuffix names the in-progress directory; renamed to the bare session
// name only once every sink has been finalized successfully.
const tmpSuffix = ".tmp"

// sessionDirs resolves the tmp working directory and the final directory
// name for a session, and fails ConfigInvalid-style if the final name
// already exists under datasetRoot/sessions.
func sessionDirs(datasetRoot, sessionName string) (tmpDir, finalDir string, err error) {
	sessionsRoot := filepath.Join(datasetRoot, "sessions")
	finalDir = filepath.Join(sessionsRoot, sessionName)
	tmpDir = finalDir + tmpSuffix

	if _, statErr := os.Stat(finalDir); statErr == nil {
		return "", "", fmt.Errorf("session directory %q already exists", finalDir)
	}
	if err := os.MkdirAll(sessionsRoot, 0755); err != nil {
		return "", "", fmt.Errorf("create sessions root: %w", err)
	}
	return tmpDir, finalDir, nil
}
