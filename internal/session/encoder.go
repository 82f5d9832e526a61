package session

import (
	"errors"
	"fmt"
	"io"
	"os/exec"
)

// Sentinel errors mirroring the error-kind taxonomy: a bad config is
// ConfigInvalid, a non-zero exit at finalize is EncoderExit.
var (
	ErrEncoderFrameSize = errors.New("frame buffer size does not match expected BGRA size")
	ErrEncoderExit      = errors.New("encoder exited with non-zero status")
)

// EncoderConfig describes the ffmpeg invocation: raw BGRA on stdin at a
// fixed resolution/frame-rate, H.264/yuv420p out.
type EncoderConfig struct {
	FFmpegPath string
	OutputPath string
	Width      int
	Height     int
	FPS        int
	CRF        int
	GOP        int
}

func DefaultEncoderConfig() EncoderConfig {
	return EncoderConfig{
		Width:  1280,
		Height: 720,
		FPS:    30,
		CRF:    20,
		GOP:    10,
	}
}

func applyEncoderDefaults(cfg EncoderConfig) EncoderConfig {
	if cfg.FPS <= 0 {
		cfg.FPS = 30
	}
	if cfg.CRF <= 0 {
		cfg.CRF = 20
	}
	if cfg.GOP <= 0 {
		cfg.GOP = 10
	}
	return cfg
}

func validateEncoderConfig(cfg EncoderConfig) error {
	if cfg.FFmpegPath == "" {
		return fmt.Errorf("encoder config: ffmpeg_path is empty")
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return fmt.Errorf("encoder config: width/height must be positive, got %dx%d", cfg.Width, cfg.Height)
	}
	return nil
}

// videoEncoder spawns ffmpeg as a subprocess and exclusively owns its
// stdin; closing it signals EOF to the encoder. Stdout/stderr are drained
// to /dev/null equivalent — the writer never reads them.
type videoEncoder struct {
	cmd        *exec.Cmd
	stdin      io.WriteCloser
	frameBytes int
}

func newVideoEncoder(cfg EncoderConfig) (*videoEncoder, error) {
	cfg = applyEncoderDefaults(cfg)
	if err := validateEncoderConfig(cfg); err != nil {
		return nil, err
	}

	cmd := exec.Command(cfg.FFmpegPath,
		"-y",
		"-f", "rawvideo",
		"-pix_fmt", "bgra",
		"-s", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
		"-r", fmt.Sprintf("%d", cfg.FPS),
		"-i", "-",
		"-c:v", "libx264",
		"-crf", fmt.Sprintf("%d", cfg.CRF),
		"-g", fmt.Sprintf("%d", cfg.GOP),
		"-pix_fmt", "yuv420p",
		cfg.OutputPath,
	)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stdin: %w", err)
	}
	cmd.Stdout = nil
	cmd.Stderr = nil

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("spawn ffmpeg: %w", err)
	}

	return &videoEncoder{
		cmd:        cmd,
		stdin:      stdin,
		frameBytes: cfg.Width * cfg.Height * 4,
	}, nil
}

// writeFrame forwards exactly one BGRA frame to ffmpeg's stdin. A size
// mismatch is a hard, non-retryable ConfigInvalid-class error.
func (e *videoEncoder) writeFrame(frame []byte) error {
	if len(frame) != e.frameBytes {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrEncoderFrameSize, len(frame), e.frameBytes)
	}
	_, err := e.stdin.Write(frame)
	return err
}

// finish closes stdin and waits for ffmpeg to exit. A non-zero exit is
// fatal; the caller is responsible for leaving the .tmp directory intact
// when this returns an error.
func (e *videoEncoder) finish() error {
	if err := e.stdin.Close(); err != nil {
		return fmt.Errorf("close ffmpeg stdin: %w", err)
	}
	if err := e.cmd.Wait(); err != nil {
		return fmt.Errorf("%w: %v", ErrEncoderExit, err)
	}
	return nil
}
