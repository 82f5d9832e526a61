package session

import (
	"strings"
	"testing"
)

func keyDown(ts QpcTimestamp, key string) InputEvent {
	return InputEvent{QpcTs: ts, Kind: KindKeyDown, Key: key}
}

func keyUp(ts QpcTimestamp, key string) InputEvent {
	return InputEvent{QpcTs: ts, Kind: KindKeyUp, Key: key}
}

// Scenario 1: single keypress.
func TestAggregateWindow_SingleKeypress(t *testing.T) {
	events := []InputEvent{keyDown(10, "W"), keyUp(20, "W")}
	state := NewAggregatorState()

	got := AggregateWindow(events, 0, 200, 0, true, CursorSample{}, state)

	if len(got.Snapshot.HeldKeys) != 0 {
		t.Fatalf("expected no held keys, got %v", got.Snapshot.HeldKeys)
	}
	if len(got.Snapshot.KeyPresses) != 1 || got.Snapshot.KeyPresses[0] != (KeyPress{Key: "W", DownTs: 10, UpTs: 20}) {
		t.Fatalf("unexpected key presses: %+v", got.Snapshot.KeyPresses)
	}
	if got.Snapshot.MouseDxTotal != 0 || got.Snapshot.MouseDyTotal != 0 || got.Snapshot.MouseWheelTotal != 0 {
		t.Fatalf("expected zero mouse totals, got %+v", got.Snapshot)
	}
	if !strings.HasPrefix(got.CompiledAction, actionStart) || !strings.Contains(got.CompiledAction, "W") {
		t.Fatalf("unexpected compiled action: %q", got.CompiledAction)
	}
}

// Scenario 2: a held key crossing a window boundary.
func TestAggregateWindow_CrossWindowHold(t *testing.T) {
	state := NewAggregatorState()

	window0 := AggregateWindow([]InputEvent{keyDown(50, "Shift")}, 0, 200, 0, true, CursorSample{}, state)
	if len(window0.Snapshot.HeldKeys) != 1 || window0.Snapshot.HeldKeys[0] != "Shift" {
		t.Fatalf("window0: expected Shift held, got %v", window0.Snapshot.HeldKeys)
	}
	if len(window0.Snapshot.KeyPresses) != 0 {
		t.Fatalf("window0: expected no completed presses, got %+v", window0.Snapshot.KeyPresses)
	}

	window1 := AggregateWindow([]InputEvent{keyUp(250, "Shift")}, 200, 400, 1, true, CursorSample{}, state)
	if len(window1.Snapshot.HeldKeys) != 0 {
		t.Fatalf("window1: expected no held keys, got %v", window1.Snapshot.HeldKeys)
	}
	want := KeyPress{Key: "Shift", DownTs: 50, UpTs: 250}
	if len(window1.Snapshot.KeyPresses) != 1 || window1.Snapshot.KeyPresses[0] != want {
		t.Fatalf("window1: expected %+v, got %+v", want, window1.Snapshot.KeyPresses)
	}
}

// Scenario 3: mouse-move accumulation.
func TestAggregateWindow_MouseAccumulation(t *testing.T) {
	events := []InputEvent{
		{QpcTs: 10, Kind: KindMouseMove, DX: 3, DY: -1},
		{QpcTs: 20, Kind: KindMouseMove, DX: 2, DY: 0},
		{QpcTs: 30, Kind: KindMouseMove, DX: 0, DY: 5},
	}
	state := NewAggregatorState()

	got := AggregateWindow(events, 0, 200, 0, true, CursorSample{}, state)

	if got.Snapshot.MouseDxTotal != 5 || got.Snapshot.MouseDyTotal != 4 {
		t.Fatalf("expected dx=5 dy=4, got dx=%d dy=%d", got.Snapshot.MouseDxTotal, got.Snapshot.MouseDyTotal)
	}
}

// Scenario 6 / property: thought pass-through and wrapping grammar.
func TestFormatThoughtLine(t *testing.T) {
	if got := FormatThoughtLine(""); got != "<|thought_start|><|thought_end|>" {
		t.Fatalf("empty thought: got %q", got)
	}
	passthrough := "<|thought_start|>plan <|thought_end|>"
	if got := FormatThoughtLine(passthrough); got != passthrough {
		t.Fatalf("passthrough thought: got %q, want %q", got, passthrough)
	}
	if got := FormatThoughtLine("go left"); got != "<|thought_start|>go left <|thought_end|>" {
		t.Fatalf("wrapped thought: got %q", got)
	}
}

// Property: empty snapshot compiles to the bare delimiter pair.
func TestAggregateWindow_EmptySnapshotCompilesToBareDelimiters(t *testing.T) {
	state := NewAggregatorState()
	got := AggregateWindow(nil, 0, 200, 0, true, CursorSample{Visible: false}, state)
	if got.CompiledAction != "<|action_start|><|action_end|>" {
		t.Fatalf("expected bare delimiters, got %q", got.CompiledAction)
	}
}

// Property: unmatched KeyUp is discarded and never mutates held state.
func TestAggregateWindow_UnmatchedUpDiscarded(t *testing.T) {
	state := NewAggregatorState()
	got := AggregateWindow([]InputEvent{keyUp(10, "Q")}, 0, 200, 0, true, CursorSample{}, state)
	if len(got.Snapshot.KeyPresses) != 0 {
		t.Fatalf("expected no key presses from unmatched up, got %+v", got.Snapshot.KeyPresses)
	}
	if len(state.held) != 0 {
		t.Fatalf("expected held state untouched, got %+v", state.held)
	}
}

// Property: idempotence given identical inputs and seeded state.
func TestAggregateWindow_Idempotent(t *testing.T) {
	events := []InputEvent{keyDown(10, "A"), keyUp(20, "A"), {QpcTs: 15, Kind: KindMouseWheel, WheelDelta: 3}}
	cursor := CursorSample{Visible: true, XNorm: 0.5001, YNorm: 0.25004}

	state1 := NewAggregatorState()
	got1 := AggregateWindow(events, 0, 200, 0, true, cursor, state1)

	state2 := NewAggregatorState()
	got2 := AggregateWindow(events, 0, 200, 0, true, cursor, state2)

	if got1.CompiledAction != got2.CompiledAction {
		t.Fatalf("compiled actions diverged: %q vs %q", got1.CompiledAction, got2.CompiledAction)
	}
	if len(state1.held) != len(state2.held) {
		t.Fatalf("post-states diverged")
	}
}

// Property: mouse clicks counted in fixed button order and at down-time.
func TestAggregateWindow_MouseClicksFixedOrder(t *testing.T) {
	events := []InputEvent{
		{QpcTs: 10, Kind: KindMouseButton, Button: MouseRight, IsDown: true},
		{QpcTs: 11, Kind: KindMouseButton, Button: MouseRight, IsDown: false},
		{QpcTs: 12, Kind: KindMouseButton, Button: MouseLeft, IsDown: true},
		{QpcTs: 13, Kind: KindMouseButton, Button: MouseLeft, IsDown: false},
	}
	state := NewAggregatorState()
	got := AggregateWindow(events, 0, 200, 0, true, CursorSample{}, state)

	// presses precede clicks and follow down_ts order, so only the clicks
	// part shows the fixed button order.
	clicksAt := strings.Index(got.CompiledAction, "clicks:")
	if clicksAt == -1 {
		t.Fatalf("expected a clicks part in %q", got.CompiledAction)
	}
	clicksPart := got.CompiledAction[clicksAt:]
	idxLeft := strings.Index(clicksPart, "MouseLeft")
	idxRight := strings.Index(clicksPart, "MouseRight")
	if idxLeft == -1 || idxRight == -1 || idxLeft > idxRight {
		t.Fatalf("expected MouseLeft before MouseRight in %q", got.CompiledAction)
	}
	if got.Snapshot.MouseClicks["MouseLeft"] != 1 || got.Snapshot.MouseClicks["MouseRight"] != 1 {
		t.Fatalf("unexpected click counts: %+v", got.Snapshot.MouseClicks)
	}
}

// Property: held-key continuity across several windows.
func TestAggregateWindow_HeldKeyContinuityAcrossMultipleWindows(t *testing.T) {
	state := NewAggregatorState()

	w0 := AggregateWindow([]InputEvent{keyDown(5, "Ctrl")}, 0, 100, 0, true, CursorSample{}, state)
	w1 := AggregateWindow(nil, 100, 200, 1, true, CursorSample{}, state)
	w2 := AggregateWindow([]InputEvent{keyUp(250, "Ctrl")}, 200, 300, 2, true, CursorSample{}, state)

	for i, w := range []AggregatedWindow{w0, w1} {
		if len(w.Snapshot.HeldKeys) != 1 || w.Snapshot.HeldKeys[0] != "Ctrl" {
			t.Fatalf("window %d: expected Ctrl held, got %v", i, w.Snapshot.HeldKeys)
		}
	}
	if len(w2.Snapshot.HeldKeys) != 0 {
		t.Fatalf("window 2: expected no held keys after release, got %v", w2.Snapshot.HeldKeys)
	}
}
