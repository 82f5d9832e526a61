package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestPreInitLoggerUsesConfiguredHandler(t *testing.T) {
	logger := L("pipeline")

	var buf bytes.Buffer
	Init("text", "info", &buf)

	logger.Info("step committed", "stepIndex", 12)

	out := buf.String()
	if strings.Contains(out, `msg="INFO step committed`) {
		t.Fatalf("unexpected nested severity prefix in message: %s", out)
	}
	if !strings.Contains(out, "msg=\"step committed\"") {
		t.Fatalf("expected plain message, got: %s", out)
	}
	if !strings.Contains(out, "component=pipeline") {
		t.Fatalf("expected component field, got: %s", out)
	}
	if !strings.Contains(out, "stepIndex=12") {
		t.Fatalf("expected stepIndex field, got: %s", out)
	}
}

func TestPreInitLoggerRespectsConfiguredLevel(t *testing.T) {
	logger := L("collector")

	var buf bytes.Buffer
	Init("text", "warn", &buf)

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info log should be filtered at warn level: %s", out)
	}
	if !strings.Contains(out, "shown") {
		t.Fatalf("warn log should be emitted: %s", out)
	}
}

func TestWithStepAttachesCorrelationFields(t *testing.T) {
	var buf bytes.Buffer
	Init("text", "info", &buf)

	logger := WithStep(L("writer"), "session-1", 7)
	logger.Info("wrote step")

	out := buf.String()
	if !strings.Contains(out, `sessionName=session-1`) {
		t.Fatalf("expected sessionName field, got: %s", out)
	}
	if !strings.Contains(out, "stepIndex=7") {
		t.Fatalf("expected stepIndex field, got: %s", out)
	}
}
