package session

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// boundedLatencyWriter is an append-only line writer that flushes to the OS
// whenever the line counter crosses a multiple of flushEveryLines, or
// whenever flushEvery has elapsed since the last flush — whichever comes
// first. On abnormal termination, at most flushEveryLines-1 lines may be
// lost; finalize() always flushes explicitly before close.
type boundedLatencyWriter struct {
	file            *os.File
	buf             *bufio.Writer
	lineCount       uint64
	lastFlush       time.Time
	flushEveryLines uint64
	flushEvery      time.Duration
}

func newBoundedLatencyWriter(path string, flushEveryLines int, flushEvery time.Duration) (*boundedLatencyWriter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if flushEveryLines < 1 {
		flushEveryLines = 1
	}
	return &boundedLatencyWriter{
		file:            f,
		buf:             bufio.NewWriter(f),
		lastFlush:       time.Now(),
		flushEveryLines: uint64(flushEveryLines),
		flushEvery:      flushEvery,
	}, nil
}

func (w *boundedLatencyWriter) writeLine(line string) error {
	if _, err := w.buf.WriteString(line); err != nil {
		return err
	}
	if err := w.buf.WriteByte('\n'); err != nil {
		return err
	}
	return w.afterWrite()
}

func (w *boundedLatencyWriter) writeJSON(value any) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return w.writeLine(string(encoded))
}

func (w *boundedLatencyWriter) afterWrite() error {
	w.lineCount++
	if w.lineCount%w.flushEveryLines == 0 || time.Since(w.lastFlush) >= w.flushEvery {
		return w.flush()
	}
	return nil
}

func (w *boundedLatencyWriter) flush() error {
	w.lastFlush = time.Now()
	if err := w.buf.Flush(); err != nil {
		return err
	}
	return w.file.Sync()
}

func (w *boundedLatencyWriter) close() error {
	if err := w.flush(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}

// WriterConfig bundles the knobs a SessionWriter needs: where the session
// lives, the encoder it drives, and the flush cadence for the two JSONL
// sinks and the thought text sink.
type WriterConfig struct {
	DatasetRoot     string
	SessionName     string
	FFmpegPath      string
	Width, Height   int
	FPS             int
	FlushEveryLines int
	FlushEvery      time.Duration
}

// SessionWriter owns the five output sinks and the .tmp-directory lifecycle
// described in the session layout: options.json/meta.json written once,
// actions.jsonl/compiled.jsonl/thoughts.txt appended one line per step, and
// the encoder subprocess fed one raw BGRA frame per step.
type SessionWriter struct {
	layout   SessionLayout
	finalDir string

	actions  *boundedLatencyWriter
	compiled *boundedLatencyWriter
	thoughts *boundedLatencyWriter
	encoder  *videoEncoder
}

// NewSessionWriter creates the .tmp working directory, opens the three
// per-step text sinks and starts the encoder; options.json and meta.json
// are written later by WriteOptions/WriteMeta. Fails ConfigInvalid-style if
// the final session directory already exists.
func NewSessionWriter(cfg WriterConfig) (*SessionWriter, error) {
	tmpDir, finalDir, err := sessionDirs(cfg.DatasetRoot, cfg.SessionName)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(tmpDir, 0755); err != nil {
		return nil, fmt.Errorf("create session tmp dir: %w", err)
	}

	layout := newSessionLayout(tmpDir)

	actions, err := newBoundedLatencyWriter(layout.ActionsPath, cfg.FlushEveryLines, cfg.FlushEvery)
	if err != nil {
		return nil, err
	}
	compiled, err := newBoundedLatencyWriter(layout.CompiledPath, cfg.FlushEveryLines, cfg.FlushEvery)
	if err != nil {
		actions.close()
		return nil, err
	}
	thoughts, err := newBoundedLatencyWriter(layout.ThoughtsPath, cfg.FlushEveryLines, cfg.FlushEvery)
	if err != nil {
		actions.close()
		compiled.close()
		return nil, err
	}

	encoder, err := newVideoEncoder(EncoderConfig{
		FFmpegPath: cfg.FFmpegPath,
		OutputPath: layout.VideoPath,
		Width:      cfg.Width,
		Height:     cfg.Height,
		FPS:        cfg.FPS,
	})
	if err != nil {
		actions.close()
		compiled.close()
		thoughts.close()
		return nil, err
	}

	return &SessionWriter{
		layout:   layout,
		finalDir: finalDir,
		actions:  actions,
		compiled: compiled,
		thoughts: thoughts,
		encoder:  encoder,
	}, nil
}

// WriteOptions persists options.json once, before any window is written.
func (w *SessionWriter) WriteOptions(options any) error {
	return writeJSONFile(w.layout.OptionsPath, options)
}

// WriteMeta persists meta.json once, before any window is written.
func (w *SessionWriter) WriteMeta(meta any) error {
	return writeJSONFile(w.layout.MetaPath, meta)
}

func writeJSONFile(path string, value any) error {
	encoded, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, encoded, 0644)
}

// WriteStep atomically (from the caller's point of view) appends one
// step's worth of output across all four per-step sinks: the snapshot, the
// compiled line, the frame, and the thought line. A failure partway through
// aborts the step; the caller must treat any error here as fatal to the
// pipeline.
func (w *SessionWriter) WriteStep(window AggregatedWindow, frame []byte, thoughtLine string) error {
	if err := w.actions.writeJSON(window.Snapshot); err != nil {
		return fmt.Errorf("write actions.jsonl: %w", err)
	}
	if err := w.compiled.writeLine(window.CompiledAction); err != nil {
		return fmt.Errorf("write compiled.jsonl: %w", err)
	}
	if err := w.thoughts.writeLine(thoughtLine); err != nil {
		return fmt.Errorf("write thoughts.txt: %w", err)
	}
	if err := w.encoder.writeFrame(frame); err != nil {
		return fmt.Errorf("write video frame: %w", err)
	}
	return nil
}

// Finalize flushes all text sinks, closes the encoder's stdin, waits for it
// to exit successfully, and atomically renames the .tmp directory to its
// final name. A non-zero encoder exit is fatal and the .tmp directory is
// preserved for post-mortem.
func (w *SessionWriter) Finalize() (SessionLayout, error) {
	if err := w.actions.close(); err != nil {
		return SessionLayout{}, fmt.Errorf("finalize actions.jsonl: %w", err)
	}
	if err := w.compiled.close(); err != nil {
		return SessionLayout{}, fmt.Errorf("finalize compiled.jsonl: %w", err)
	}
	if err := w.thoughts.close(); err != nil {
		return SessionLayout{}, fmt.Errorf("finalize thoughts.txt: %w", err)
	}
	if err := w.encoder.finish(); err != nil {
		return SessionLayout{}, err
	}

	if err := os.Rename(w.layout.Dir, w.finalDir); err != nil {
		return SessionLayout{}, fmt.Errorf("rename session directory: %w", err)
	}

	return newSessionLayout(w.finalDir), nil
}

// Abort releases all resources without renaming the .tmp directory,
// leaving it in place for inspection.
func (w *SessionWriter) Abort() {
	w.actions.close()
	w.compiled.close()
	w.thoughts.close()
	if w.encoder != nil && w.encoder.stdin != nil {
		w.encoder.stdin.Close()
	}
}
