package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/viper"

	"github.com/stepforge/collector/internal/logging"
)

var log = logging.L("config")

// CaptureConfig controls frame capture and encoding.
type CaptureConfig struct {
	RecordWidth  int `mapstructure:"record_width"`
	RecordHeight int `mapstructure:"record_height"`
	FPS          int `mapstructure:"fps"`
}

// TimingConfig controls step aggregation.
type TimingConfig struct {
	StepMs int `mapstructure:"step_ms"`
}

// ArchiveConfig controls optional post-session packaging and upload.
type ArchiveConfig struct {
	S3Bucket string `mapstructure:"s3_bucket"`
	S3Region string `mapstructure:"s3_region"`
	DeleteOnUpload bool `mapstructure:"delete_on_upload"`
}

type Config struct {
	Capture CaptureConfig `mapstructure:"capture"`
	Timing  TimingConfig  `mapstructure:"timing"`
	Archive ArchiveConfig `mapstructure:"archive"`

	FFmpegPath  string `mapstructure:"ffmpeg_path"`
	DatasetRoot string `mapstructure:"dataset_root"`
	SessionName string `mapstructure:"session_name"`
	TargetHWND  int64  `mapstructure:"target_hwnd"`
	CursorDebug bool   `mapstructure:"cursor_debug"`

	// Logging configuration
	LogLevel      string `mapstructure:"log_level"`
	LogFormat     string `mapstructure:"log_format"`
	LogFile       string `mapstructure:"log_file"`
	LogMaxSizeMB  int    `mapstructure:"log_max_size_mb"`
	LogMaxBackups int    `mapstructure:"log_max_backups"`

	// Host UI control bridge
	ControlAddr string `mapstructure:"control_addr"`

	// Bounded-latency writer tuning
	FlushEveryLines int `mapstructure:"flush_every_lines"`
	FlushEveryMs    int `mapstructure:"flush_every_ms"`
}

func Default() *Config {
	return &Config{
		Capture: CaptureConfig{
			RecordWidth:  1280,
			RecordHeight: 720,
			FPS:          30,
		},
		Timing: TimingConfig{
			StepMs: 200,
		},
		LogLevel:        "info",
		LogFormat:       "text",
		LogMaxSizeMB:    50,
		LogMaxBackups:   3,
		ControlAddr:     "127.0.0.1:8077",
		FlushEveryLines: 10,
		FlushEveryMs:    1000,
	}
}

func Load(cfgFile string) (*Config, error) {
	cfg := Default()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("collector")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(configDir())
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("COLLECTOR")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, err
	}

	// Validate config: fatals block startup, warnings are logged and continue.
	result := cfg.ValidateTiered()
	for _, err := range result.Warnings {
		log.Warn("config validation", "error", err)
	}
	if result.HasFatals() {
		for _, err := range result.Fatals {
			log.Error("config validation fatal", "error", err)
		}
		return nil, fmt.Errorf("config has fatal validation errors: %v", result.Fatals[0])
	}

	return cfg, nil
}

func Save(cfg *Config) error {
	return SaveTo(cfg, "")
}

func SaveTo(cfg *Config, cfgFile string) error {
	viper.Set("capture.record_width", cfg.Capture.RecordWidth)
	viper.Set("capture.record_height", cfg.Capture.RecordHeight)
	viper.Set("capture.fps", cfg.Capture.FPS)
	viper.Set("timing.step_ms", cfg.Timing.StepMs)
	viper.Set("ffmpeg_path", cfg.FFmpegPath)
	viper.Set("dataset_root", cfg.DatasetRoot)
	viper.Set("session_name", cfg.SessionName)
	viper.Set("target_hwnd", cfg.TargetHWND)
	viper.Set("cursor_debug", cfg.CursorDebug)

	var cfgPath string
	if cfgFile != "" {
		cfgPath = cfgFile
		dir := filepath.Dir(cfgPath)
		if dir != "." {
			if err := os.MkdirAll(dir, 0700); err != nil {
				return err
			}
		}
	} else {
		cfgPath = filepath.Join(configDir(), "collector.yaml")
		if err := os.MkdirAll(configDir(), 0700); err != nil {
			return err
		}
	}

	if err := viper.WriteConfigAs(cfgPath); err != nil {
		return err
	}

	return os.Chmod(cfgPath, 0600)
}

// GetDataDir returns the platform-specific default dataset root.
func GetDataDir() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "Collector", "sessions")
	case "darwin":
		return filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "Collector", "sessions")
	default:
		return filepath.Join(os.Getenv("HOME"), ".local", "share", "collector", "sessions")
	}
}

func configDir() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "Collector")
	case "darwin":
		return filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "Collector")
	default:
		return filepath.Join(os.Getenv("HOME"), ".config", "collector")
	}
}
