package session

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// AggregateWindow folds a time-ordered, already-windowed slice of events
// (and the persistent cross-step state) into a per-step ActionSnapshot plus
// its canonical compiled_action line. It is pure given its inputs plus the
// explicit state: identical arguments and an identically-seeded state
// always produce a byte-identical result and post-state.
//
// MouseButton events are processed exactly like keyboard transitions
// against a synthetic per-button key name (MouseLeft, MouseRight, ...),
// feeding the same held/key_presses tracking as real keys. mouse_clicks is
// a separate counter incremented the instant a button-down is observed in
// this window — the writer streams one step at a time and can never patch
// an already-flushed line, so a down's click cannot wait on a later
// window's matching up to confirm it.
func AggregateWindow(
	events []InputEvent,
	windowStart, windowEnd QpcTimestamp,
	stepIndex StepIndex,
	isForeground bool,
	cursor CursorSample,
	state *AggregatorState,
) AggregatedWindow {
	var keyPresses []KeyPress
	var mouseDx, mouseDy, mouseWheel int32
	mouseClicks := make(map[MouseButton]int)

	applyTransition := func(key string, down bool, ts QpcTimestamp) {
		if down {
			if _, held := state.held[key]; !held {
				state.held[key] = ts
			}
			// repeat: already held, collapsed into the existing press-start
			return
		}
		if downTs, held := state.held[key]; held {
			keyPresses = append(keyPresses, KeyPress{Key: key, DownTs: downTs, UpTs: ts})
			delete(state.held, key)
		}
		// unmatched up: discarded, does not modify held
	}

	for _, ev := range events {
		switch ev.Kind {
		case KindKeyDown:
			applyTransition(ev.Key, true, ev.QpcTs)
		case KindKeyUp:
			applyTransition(ev.Key, false, ev.QpcTs)
		case KindMouseButton:
			applyTransition(ev.Button.name(), ev.IsDown, ev.QpcTs)
			if ev.IsDown {
				mouseClicks[ev.Button]++
			}
		case KindMouseMove:
			mouseDx += ev.DX
			mouseDy += ev.DY
		case KindMouseWheel:
			mouseWheel += ev.WheelDelta
		}
	}

	heldKeys := state.sortedHeldKeys()

	clicks := make(map[string]int, len(mouseClicks))
	for button, count := range mouseClicks {
		clicks[button.name()] = count
	}

	snapshot := ActionSnapshot{
		StepIndex:       stepIndex,
		QpcTs:           windowStart,
		IsForeground:    isForeground,
		HeldKeys:        heldKeys,
		KeyPresses:      keyPresses,
		MouseDxTotal:    mouseDx,
		MouseDyTotal:    mouseDy,
		MouseWheelTotal: mouseWheel,
		MouseClicks:     clicks,
		Cursor:          cursor,
	}

	compiled := compileAction(heldKeys, keyPresses, mouseClicks, mouseDx, mouseDy, mouseWheel, cursor)

	return AggregatedWindow{Snapshot: snapshot, CompiledAction: compiled}
}

const (
	actionStart  = "<|action_start|>"
	actionEnd    = "<|action_end|>"
	thoughtStart = "<|thought_start|>"
	thoughtEnd   = "<|thought_end|>"
)

// compileAction renders the canonical, stable-ordering text body: held keys
// (sorted), completed key-press pairs (down_ts order), mouse-button clicks
// (fixed Left/Right/Middle/X1/X2 order), aggregated move if either axis is
// non-zero, wheel if non-zero, then cursor state if the cursor is visible
// (an invisible cursor adds no part). Each present part is
// separated from its neighbors by a single space; an all-empty snapshot
// still emits the bare delimiters.
func compileAction(
	heldKeys []string,
	keyPresses []KeyPress,
	mouseClicks map[MouseButton]int,
	mouseDx, mouseDy, mouseWheel int32,
	cursor CursorSample,
) string {
	var parts []string

	if len(heldKeys) > 0 {
		parts = append(parts, "held:"+strings.Join(heldKeys, ","))
	}

	if len(keyPresses) > 0 {
		segs := make([]string, len(keyPresses))
		for i, kp := range keyPresses {
			segs[i] = fmt.Sprintf("%s@%d-%d", kp.Key, kp.DownTs, kp.UpTs)
		}
		parts = append(parts, "presses:"+strings.Join(segs, ","))
	}

	if len(mouseClicks) > 0 {
		var segs []string
		for _, button := range mouseButtonOrder {
			if count, ok := mouseClicks[button]; ok && count > 0 {
				segs = append(segs, fmt.Sprintf("%s:%d", button.name(), count))
			}
		}
		if len(segs) > 0 {
			parts = append(parts, "clicks:"+strings.Join(segs, ","))
		}
	}

	if mouseDx != 0 || mouseDy != 0 {
		parts = append(parts, fmt.Sprintf("move:%d,%d", mouseDx, mouseDy))
	}

	if mouseWheel != 0 {
		parts = append(parts, fmt.Sprintf("wheel:%d", mouseWheel))
	}

	if cursor.Visible {
		parts = append(parts, fmt.Sprintf("cursor:(%t,%s,%s)",
			cursor.Visible, formatCursorCoord(cursor.XNorm), formatCursorCoord(cursor.YNorm)))
	}

	body := strings.Join(parts, " ")
	return actionStart + body + actionEnd
}

func formatCursorCoord(v float64) string {
	rounded := math.Round(v*1000) / 1000
	return strconv.FormatFloat(rounded, 'f', 3, 64)
}

// FormatThoughtLine applies the thought-line wrapping grammar: empty input
// yields the bare delimiter pair; input already containing both delimiters
// passes through verbatim; otherwise the text is wrapped with a trailing
// space before the closing delimiter.
func FormatThoughtLine(content string) string {
	if content == "" {
		return thoughtStart + thoughtEnd
	}
	if strings.Contains(content, thoughtStart) && strings.Contains(content, thoughtEnd) {
		return content
	}
	return thoughtStart + content + " " + thoughtEnd
}
