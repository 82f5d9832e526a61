package session

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestBoundedLatencyWriterFlushesOnLineCount(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.jsonl")

	w, err := newBoundedLatencyWriter(path, 2, time.Hour)
	if err != nil {
		t.Fatalf("newBoundedLatencyWriter: %v", err)
	}

	if err := w.writeLine("one"); err != nil {
		t.Fatalf("writeLine: %v", err)
	}
	if countLines(t, path) != 0 {
		t.Fatalf("expected no flush yet after 1 of 2 lines")
	}

	if err := w.writeLine("two"); err != nil {
		t.Fatalf("writeLine: %v", err)
	}
	if countLines(t, path) != 2 {
		t.Fatalf("expected flush after reaching flushEveryLines, got %d lines", countLines(t, path))
	}

	if err := w.close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestBoundedLatencyWriterFlushesOnElapsedTime(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.jsonl")

	w, err := newBoundedLatencyWriter(path, 1000, time.Millisecond)
	if err != nil {
		t.Fatalf("newBoundedLatencyWriter: %v", err)
	}
	time.Sleep(2 * time.Millisecond)

	if err := w.writeLine("late"); err != nil {
		t.Fatalf("writeLine: %v", err)
	}
	if countLines(t, path) != 1 {
		t.Fatalf("expected elapsed-time flush, got %d lines", countLines(t, path))
	}
	w.close()
}

func countLines(t *testing.T, path string) int {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0
		}
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()

	n := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if scanner.Text() != "" {
			n++
		}
	}
	return n
}

// Mirrors the teacher's sink-composition style: exercise WriteStep against
// a writer whose encoder is swapped for a tiny `cat`-like stand-in so the
// test never depends on ffmpeg being installed.
func TestSessionWriterWritesActionAndCompiledLines(t *testing.T) {
	datasetRoot := t.TempDir()

	w, err := NewSessionWriter(WriterConfig{
		DatasetRoot:     datasetRoot,
		SessionName:     "sess_test",
		FFmpegPath:      fakeFFmpegPath(t),
		Width:           2,
		Height:          2,
		FPS:             30,
		FlushEveryLines: 1,
		FlushEvery:      time.Hour,
	})
	if err != nil {
		t.Fatalf("NewSessionWriter: %v", err)
	}

	window := AggregatedWindow{
		Snapshot: ActionSnapshot{
			StepIndex:   0,
			HeldKeys:    []string{},
			KeyPresses:  []KeyPress{{Key: "A", DownTs: 1, UpTs: 2}},
			MouseClicks: map[string]int{},
		},
		CompiledAction: "<|action_start|>presses:A@1-2<|action_end|>",
	}
	frame := make([]byte, 2*2*4)

	if err := w.WriteStep(window, frame, "<|thought_start|><|thought_end|>"); err != nil {
		t.Fatalf("WriteStep: %v", err)
	}

	layout, err := w.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	actions, err := os.ReadFile(layout.ActionsPath)
	if err != nil {
		t.Fatalf("read actions.jsonl: %v", err)
	}
	if !strings.Contains(string(actions), `"key":"A"`) {
		t.Fatalf("expected serialized key press in actions.jsonl, got %s", actions)
	}

	compiled, err := os.ReadFile(layout.CompiledPath)
	if err != nil {
		t.Fatalf("read compiled.jsonl: %v", err)
	}
	if strings.TrimRight(string(compiled), "\n") != window.CompiledAction {
		t.Fatalf("unexpected compiled.jsonl content: %q", compiled)
	}

	if _, err := os.Stat(layout.Dir); err != nil {
		t.Fatalf("expected finalized session directory to exist: %v", err)
	}
	if _, err := os.Stat(layout.Dir + tmpSuffix); !os.IsNotExist(err) {
		t.Fatalf("expected .tmp directory to be gone after finalize")
	}
}

// fakeFFmpegPath returns a path to a tiny shell script that reads stdin to
// EOF and exits 0, standing in for ffmpeg in tests that never touch the
// real encoder's output.
func fakeFFmpegPath(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "fake-ffmpeg.sh")
	script := "#!/bin/sh\ncat > /dev/null\nexit 0\n"
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatalf("write fake ffmpeg: %v", err)
	}
	return path
}
