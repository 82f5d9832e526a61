package session

import (
	"os"
	"strings"
	"testing"
	"time"
)

func TestSessionPipelineRunsOneStepAndFinalizes(t *testing.T) {
	datasetRoot := t.TempDir()
	clock := NewClock()

	collector := NewMockInputCollector([]InputEvent{
		{QpcTs: 0, Kind: KindKeyDown, Key: "A"},
	})
	frames := NewMockFrameSource(2, 2, 0x10, nil)
	cursor := NewMockCursorProbe([]CursorSample{{Visible: true, XNorm: 0.5, YNorm: 0.5}})
	sessionCtx := NewSessionContext()
	sessionCtx.SetThought("exploring")
	sessionCtx.RequestStop() // stop is observed only after the first step writes

	writer, err := NewSessionWriter(WriterConfig{
		DatasetRoot:     datasetRoot,
		SessionName:     "sess_pipeline_test",
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

	status := NewStatusChannel()

	pipeline, err := NewSessionPipeline(PipelineConfig{
		Clock:     clock,
		Collector: collector,
		Frames:    frames,
		Cursor:    cursor,
		Writer:    writer,
		Context:   sessionCtx,
		StepMs:    5,
		Status:    status,
	})
	if err != nil {
		t.Fatalf("NewSessionPipeline: %v", err)
	}

	startTs, err := clock.Now()
	if err != nil {
		t.Fatalf("clock.Now: %v", err)
	}

	layout, err := pipeline.Run(startTs)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	select {
	case <-pipeline.Done():
	default:
		t.Fatalf("expected Done() to be closed after Run returns")
	}

	actions, err := os.ReadFile(layout.ActionsPath)
	if err != nil {
		t.Fatalf("read actions.jsonl: %v", err)
	}
	if !strings.Contains(string(actions), `"step_index":0`) {
		t.Fatalf("expected step_index 0 in actions.jsonl, got %s", actions)
	}

	thoughts, err := os.ReadFile(layout.ThoughtsPath)
	if err != nil {
		t.Fatalf("read thoughts.txt: %v", err)
	}
	if !strings.Contains(string(thoughts), "exploring") {
		t.Fatalf("expected thought text in thoughts.txt, got %s", thoughts)
	}

	var sawFrame, sawFinished bool
	draining := true
	for draining {
		select {
		case ev := <-status:
			if ev.Kind == StatusFrame {
				sawFrame = true
			}
			if ev.Kind == StatusFinished {
				sawFinished = true
			}
		default:
			draining = false
		}
	}
	if !sawFrame || !sawFinished {
		t.Fatalf("expected both StatusFrame and StatusFinished events, got frame=%v finished=%v", sawFrame, sawFinished)
	}
}

func TestNewSessionPipelineRejectsZeroStepMs(t *testing.T) {
	_, err := NewSessionPipeline(PipelineConfig{
		Clock:     NewClock(),
		Collector: NewMockInputCollector(nil),
		Frames:    NewMockFrameSource(1, 1, 0, nil),
		Writer:    &SessionWriter{},
		Context:   NewSessionContext(),
		StepMs:    0,
	})
	if err == nil {
		t.Fatalf("expected error for StepMs=0")
	}
}
