// Package session implements the recording pipeline: a raw-input collector,
// a frame source, a cursor probe, a step aggregator and a multi-stream
// writer, coordinated by a single cooperative step loop.
package session

import "sort"

// QpcTimestamp is one tick of the shared monotonic clock. Strictly
// non-decreasing within a process; every event in the system carries
// exactly one.
type QpcTimestamp uint64

// StepIndex is the 0-based, monotonically increasing index the pipeline
// assigns to each fixed-duration window.
type StepIndex uint64

// MouseButton identifies one of the five tracked mouse buttons.
type MouseButton int

const (
	MouseLeft MouseButton = iota
	MouseRight
	MouseMiddle
	MouseX1
	MouseX2
)

// mouseButtonOrder is the fixed ordering used everywhere a deterministic
// button order is required: the compiled-action grammar and mouse_clicks
// serialization.
var mouseButtonOrder = []MouseButton{MouseLeft, MouseRight, MouseMiddle, MouseX1, MouseX2}

func (b MouseButton) name() string {
	switch b {
	case MouseLeft:
		return "MouseLeft"
	case MouseRight:
		return "MouseRight"
	case MouseMiddle:
		return "MouseMiddle"
	case MouseX1:
		return "MouseX1"
	case MouseX2:
		return "MouseX2"
	default:
		return "MouseUnknown"
	}
}

// InputEventKind tags the variant carried by an InputEvent. Exactly one of
// the typed fields is meaningful for a given Kind.
type InputEventKind int

const (
	KindKeyDown InputEventKind = iota
	KindKeyUp
	KindMouseButton
	KindMouseMove
	KindMouseWheel
)

// InputEvent is one decoded, timestamped raw-input message.
type InputEvent struct {
	QpcTs QpcTimestamp
	Kind  InputEventKind

	// KindKeyDown / KindKeyUp
	Key string

	// KindMouseButton
	Button MouseButton
	IsDown bool

	// KindMouseMove
	DX, DY int32

	// KindMouseWheel
	WheelDelta int32
}

// FrameRecord is one captured screen frame plus the step it was sampled
// for. Pixels is always exactly Width*Height*4 bytes of BGRA.
type FrameRecord struct {
	StepIndex    StepIndex
	QpcTs        QpcTimestamp
	IsForeground bool
	Pixels       []byte
}

// CursorSample is a per-step snapshot of cursor visibility and position,
// normalized to the target window's client rect and clamped to [0,1].
type CursorSample struct {
	Visible bool    `json:"visible"`
	XNorm   float64 `json:"x_norm"`
	YNorm   float64 `json:"y_norm"`
}

// KeyPress is one completed down->up pair observed inside a single window.
type KeyPress struct {
	Key    string       `json:"key"`
	DownTs QpcTimestamp `json:"down_ts"`
	UpTs   QpcTimestamp `json:"up_ts"`
}

// ActionSnapshot is the per-step aggregation result, serialized verbatim
// into actions.jsonl.
type ActionSnapshot struct {
	StepIndex    StepIndex    `json:"step_index"`
	QpcTs        QpcTimestamp `json:"qpc_ts"`
	IsForeground bool         `json:"is_foreground"`

	HeldKeys  []string   `json:"held_keys"`
	KeyPresses []KeyPress `json:"key_presses"`

	MouseDxTotal    int32          `json:"mouse_dx_total"`
	MouseDyTotal    int32          `json:"mouse_dy_total"`
	MouseWheelTotal int32          `json:"mouse_wheel_total"`
	MouseClicks     map[string]int `json:"mouse_clicks"`

	Cursor CursorSample `json:"cursor"`
}

// AggregatedWindow bundles a step's structured snapshot with its canonical
// compiled-action text line.
type AggregatedWindow struct {
	Snapshot       ActionSnapshot
	CompiledAction string
}

// AggregatorState persists across steps: the set of currently-held symbolic
// keys (keyboard keys and synthetic mouse-button keys share one namespace,
// since a MouseButton transition is processed exactly like a keyboard
// transition) together with each one's pending down timestamp.
type AggregatorState struct {
	held map[string]QpcTimestamp
}

// NewAggregatorState returns a zeroed state, equivalent to the start of a
// session.
func NewAggregatorState() *AggregatorState {
	return &AggregatorState{
		held: make(map[string]QpcTimestamp),
	}
}

func (s *AggregatorState) sortedHeldKeys() []string {
	keys := make([]string, 0, len(s.held))
	for k := range s.held {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
