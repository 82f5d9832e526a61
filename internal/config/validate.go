package config

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"warning": true,
	"error": true,
}

// ValidationResult splits config problems into fatals (block startup) and
// warnings (logged, auto-corrected, startup continues).
type ValidationResult struct {
	Fatals   []error
	Warnings []error
}

func (r ValidationResult) HasFatals() bool { return len(r.Fatals) > 0 }

// AllErrors returns fatals followed by warnings, for callers that just want
// to print everything.
func (r ValidationResult) AllErrors() []error {
	all := make([]error, 0, len(r.Fatals)+len(r.Warnings))
	all = append(all, r.Fatals...)
	all = append(all, r.Warnings...)
	return all
}

// ValidateTiered checks the config for invalid values, clamping anything
// that's merely implausible and failing fatally only on values that would
// make recording impossible: a missing dataset root, a colliding session
// name, or a capture geometry that can never match the output buffer.
func (c *Config) ValidateTiered() ValidationResult {
	var result ValidationResult

	if c.DatasetRoot == "" {
		result.Fatals = append(result.Fatals, fmt.Errorf("dataset_root is required"))
	} else if info, err := os.Stat(c.DatasetRoot); err != nil || !info.IsDir() {
		result.Fatals = append(result.Fatals, fmt.Errorf("dataset_root %q does not exist", c.DatasetRoot))
	}

	if c.SessionName != "" && c.DatasetRoot != "" {
		if err := ValidateSessionName(c.DatasetRoot, c.SessionName); err != nil {
			result.Fatals = append(result.Fatals, err)
		}
	}

	if c.Capture.RecordWidth <= 0 || c.Capture.RecordHeight <= 0 {
		result.Fatals = append(result.Fatals, fmt.Errorf("capture.record_width/record_height must be positive, got %dx%d", c.Capture.RecordWidth, c.Capture.RecordHeight))
	}

	if c.Capture.FPS < 1 {
		result.Warnings = append(result.Warnings, fmt.Errorf("capture.fps %d is below minimum 1, clamping", c.Capture.FPS))
		c.Capture.FPS = 1
	} else if c.Capture.FPS > 120 {
		result.Warnings = append(result.Warnings, fmt.Errorf("capture.fps %d exceeds maximum 120, clamping", c.Capture.FPS))
		c.Capture.FPS = 120
	}

	if c.Timing.StepMs < 10 {
		result.Warnings = append(result.Warnings, fmt.Errorf("timing.step_ms %d is below minimum 10, clamping", c.Timing.StepMs))
		c.Timing.StepMs = 10
	} else if c.Timing.StepMs > 60000 {
		result.Warnings = append(result.Warnings, fmt.Errorf("timing.step_ms %d exceeds maximum 60000, clamping", c.Timing.StepMs))
		c.Timing.StepMs = 60000
	}

	if c.LogLevel != "" && !validLogLevels[strings.ToLower(c.LogLevel)] {
		result.Warnings = append(result.Warnings, fmt.Errorf("log_level %q is not valid (use debug, info, warn, error)", c.LogLevel))
	}

	if c.LogFormat != "" && c.LogFormat != "text" && c.LogFormat != "json" {
		result.Warnings = append(result.Warnings, fmt.Errorf("log_format %q is not valid (use text or json)", c.LogFormat))
	}

	if c.FlushEveryLines < 1 {
		result.Warnings = append(result.Warnings, fmt.Errorf("flush_every_lines %d is below minimum 1, clamping", c.FlushEveryLines))
		c.FlushEveryLines = 1
	}

	if c.FlushEveryMs < 1 {
		result.Warnings = append(result.Warnings, fmt.Errorf("flush_every_ms %d is below minimum 1, clamping", c.FlushEveryMs))
		c.FlushEveryMs = 1
	}

	return result
}

// ValidateSessionName fails if <datasetRoot>/sessions/<name> already exists,
// mirroring the host UI's pre-flight collision check.
func ValidateSessionName(datasetRoot, sessionName string) error {
	root := strings.TrimSpace(datasetRoot)
	if root == "" {
		return fmt.Errorf("dataset root does not exist")
	}
	if _, err := os.Stat(root); err != nil {
		return fmt.Errorf("dataset root does not exist")
	}
	candidate := filepath.Join(root, "sessions", strings.TrimSpace(sessionName))
	if _, err := os.Stat(candidate); err == nil {
		return fmt.Errorf("session directory %q already exists", candidate)
	}
	return nil
}

// ValidateFFmpeg fails unless path is either an existing file or an
// executable resolvable on PATH that responds to -version.
func ValidateFFmpeg(path string) error {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return fmt.Errorf("ffmpeg path is empty")
	}
	if info, err := os.Stat(trimmed); err == nil && !info.IsDir() {
		return nil
	}
	cmd := exec.Command(trimmed, "-version")
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to run ffmpeg: %w", err)
	}
	return nil
}
