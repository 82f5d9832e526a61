package session

import "testing"

func TestNeutralCursorSampleIsInvisibleAndCentered(t *testing.T) {
	got := neutralCursorSample()
	want := CursorSample{Visible: false, XNorm: 0.5, YNorm: 0.5}
	if got != want {
		t.Fatalf("neutralCursorSample() = %+v, want %+v", got, want)
	}
}

func TestMockCursorProbeDegradesToNeutralWhenEmpty(t *testing.T) {
	probe := NewMockCursorProbe(nil)
	got := probe.Sample()
	want := CursorSample{Visible: false, XNorm: 0.5, YNorm: 0.5}
	if got != want {
		t.Fatalf("empty MockCursorProbe.Sample() = %+v, want %+v", got, want)
	}
}

func TestMockCursorProbeReplaysSuppliedSamples(t *testing.T) {
	samples := []CursorSample{
		{Visible: true, XNorm: 0.1, YNorm: 0.2},
		{Visible: true, XNorm: 0.3, YNorm: 0.4},
	}
	probe := NewMockCursorProbe(samples)

	if got := probe.Sample(); got != samples[0] {
		t.Fatalf("first Sample() = %+v, want %+v", got, samples[0])
	}
	if got := probe.Sample(); got != samples[1] {
		t.Fatalf("second Sample() = %+v, want %+v", got, samples[1])
	}
	// exhausted: repeats the last sample rather than degrading to neutral
	if got := probe.Sample(); got != samples[1] {
		t.Fatalf("exhausted Sample() = %+v, want repeat of %+v", got, samples[1])
	}
}
