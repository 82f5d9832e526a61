package session

import (
	"fmt"
	"sync"
	"time"
)

// PipelineConfig bundles everything a single recording session needs to
// run: the shared clock, the three sampling sources, the writer, the
// fixed step duration, and the channels the host UI observes and drives.
type PipelineConfig struct {
	Clock     Clock
	Collector InputCollector
	Frames    FrameSource
	Cursor    CursorProbe
	Writer    *SessionWriter
	Context   *SessionContext
	StepMs    int
	Status    chan StatusEvent
}

// SessionPipeline runs the cooperative, single-threaded step loop: wait
// for the current window to close, drain input, sample the frame and
// cursor, read the live thought, aggregate, write, repeat. It never spawns
// its own goroutines other than the one the caller uses to call Run.
type SessionPipeline struct {
	cfg       PipelineConfig
	stepTicks uint64
	state     *AggregatorState
	stopOnce  sync.Once
	stopped   chan struct{}
}

// NewSessionPipeline validates the configuration and derives the tick
// width of one step from the clock's frequency.
func NewSessionPipeline(cfg PipelineConfig) (*SessionPipeline, error) {
	if cfg.Clock == nil || cfg.Collector == nil || cfg.Frames == nil || cfg.Writer == nil || cfg.Context == nil {
		return nil, fmt.Errorf("pipeline config: all of Clock, Collector, Frames, Writer, Context are required")
	}
	if cfg.StepMs <= 0 {
		return nil, fmt.Errorf("pipeline config: StepMs must be positive, got %d", cfg.StepMs)
	}
	if cfg.Cursor == nil {
		cfg.Cursor = NewMockCursorProbe(nil)
	}

	ticks := StepTicks(cfg.Clock.Frequency(), cfg.StepMs)
	if ticks == 0 {
		return nil, fmt.Errorf("pipeline config: StepMs=%d resolves to zero ticks at frequency %d", cfg.StepMs, cfg.Clock.Frequency())
	}

	return &SessionPipeline{
		cfg:       cfg,
		stepTicks: ticks,
		state:     NewAggregatorState(),
		stopped:   make(chan struct{}),
	}, nil
}

// Run executes the step loop until the session's stop flag is set, then
// finalizes the writer and returns the finished session's layout. Run must
// be called exactly once; nothing guards against a second or concurrent
// call, which would reuse an already-finalized writer.
func (p *SessionPipeline) Run(startTs QpcTimestamp) (SessionLayout, error) {
	windowStart := startTs
	var step StepIndex

	for {
		windowEnd := windowStart + QpcTimestamp(p.stepTicks)

		if err := p.waitUntil(windowEnd); err != nil {
			p.cfg.Writer.Abort()
			return SessionLayout{}, err
		}

		events, err := p.cfg.Collector.DrainEvents(windowStart, windowEnd)
		if err != nil {
			p.cfg.Writer.Abort()
			return SessionLayout{}, fmt.Errorf("drain input events: %w", err)
		}

		frame, isForeground, err := p.cfg.Frames.NextFrame()
		if err != nil {
			p.cfg.Writer.Abort()
			return SessionLayout{}, fmt.Errorf("capture frame: %w", err)
		}

		cursor := p.cfg.Cursor.Sample()
		thought := p.cfg.Context.Thought()

		window := AggregateWindow(events, windowStart, windowEnd, step, isForeground, cursor, p.state)
		thoughtLine := FormatThoughtLine(thought)

		if err := p.cfg.Writer.WriteStep(window, frame, thoughtLine); err != nil {
			p.cfg.Writer.Abort()
			return SessionLayout{}, fmt.Errorf("write step %d: %w", step, err)
		}

		SendStatus(p.cfg.Status, StatusEvent{
			Kind:         StatusFrame,
			StepIndex:    step,
			QpcTs:        windowStart,
			IsForeground: isForeground,
		})

		if p.cfg.Context.StopRequested() {
			break
		}

		windowStart = windowEnd
		step++
	}

	layout, err := p.cfg.Writer.Finalize()
	if err != nil {
		return SessionLayout{}, err
	}
	SendStatus(p.cfg.Status, StatusEvent{Kind: StatusFinished, OutputDir: layout.Dir})
	p.markStopped()
	return layout, nil
}

// waitUntil busy-waits, yielding between polls, until the clock reaches
// target or the session's stop flag is observed early. Step boundaries
// must line up with real elapsed time regardless of how long the previous
// step's work took, so this never sleeps for a fixed duration computed
// ahead of time.
func (p *SessionPipeline) waitUntil(target QpcTimestamp) error {
	for {
		now, err := p.cfg.Clock.Now()
		if err != nil {
			return fmt.Errorf("read clock: %w", err)
		}
		if now >= target {
			return nil
		}
		if p.cfg.Context.StopRequested() {
			return nil
		}
		time.Sleep(time.Millisecond)
	}
}

// Stop requests a graceful stop; the loop finishes its in-flight step and
// finalizes normally. Safe to call multiple times and from any goroutine.
func (p *SessionPipeline) Stop() {
	p.cfg.Context.RequestStop()
}

func (p *SessionPipeline) markStopped() {
	p.stopOnce.Do(func() { close(p.stopped) })
}

// Done returns a channel closed once Run has finalized and returned.
func (p *SessionPipeline) Done() <-chan struct{} {
	return p.stopped
}
