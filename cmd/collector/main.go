package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/stepforge/collector/internal/archive"
	"github.com/stepforge/collector/internal/config"
	"github.com/stepforge/collector/internal/logging"
	"github.com/stepforge/collector/internal/session"
	"github.com/stepforge/collector/internal/session/control"
	"github.com/stepforge/collector/internal/sysinfo"
)

var (
	version = "0.1.0"
	cfgFile string

	s3Bucket string
	s3Region string
)

var log = logging.L("main")

var rootCmd = &cobra.Command{
	Use:   "collector",
	Short: "Desktop activity-session recorder",
	Long:  "Records synchronized input, screen, and annotation data into step-sliced session datasets.",
}

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record a session until interrupted or stopped over the control bridge",
	Run: func(cmd *cobra.Command, args []string) {
		runRecord()
	},
}

var packageCmd = &cobra.Command{
	Use:   "package [session-dir] [out.zip]",
	Short: "Archive a finished session directory, optionally uploading it to S3",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		runPackage(args[0], args[1])
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("collector v%s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is the platform collector config dir)")
	packageCmd.Flags().StringVar(&s3Bucket, "s3-bucket", "", "optional S3 bucket to upload the archive to")
	packageCmd.Flags().StringVar(&s3Region, "s3-region", "", "S3 region (required with --s3-bucket)")

	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(packageCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initLogging(cfg *config.Config) {
	var output io.Writer = os.Stdout
	if cfg.LogFile != "" {
		rw, err := logging.NewRotatingWriter(cfg.LogFile, cfg.LogMaxSizeMB, cfg.LogMaxBackups)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open log file %s: %v (logging to stdout)\n", cfg.LogFile, err)
		} else {
			output = logging.TeeWriter(os.Stdout, rw)
		}
	}
	logging.Init(cfg.LogFormat, cfg.LogLevel, output)
	log = logging.L("main")
}

func runRecord() {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	initLogging(cfg)

	if err := config.ValidateFFmpeg(cfg.FFmpegPath); err != nil {
		log.Error("ffmpeg validation failed", "error", err)
		os.Exit(1)
	}

	sessionName := cfg.SessionName
	if sessionName == "" {
		sessionName = session.DefaultName(time.Now(), 0)
	}
	if err := config.ValidateSessionName(cfg.DatasetRoot, sessionName); err != nil {
		log.Error("session name validation failed", "error", err)
		os.Exit(1)
	}

	clock := session.NewClock()

	collector, err := session.NewPlatformInputCollector(clock, uintptr(cfg.TargetHWND))
	if err != nil {
		log.Warn("platform input collector unavailable, recording with no input source", "error", err)
		collector = session.NewMockInputCollector(nil)
	}
	defer collector.Close()

	frames, err := session.NewPlatformFrameSource(0, cfg.Capture.RecordWidth, cfg.Capture.RecordHeight, uintptr(cfg.TargetHWND))
	if err != nil {
		log.Warn("platform frame source unavailable, recording blank frames", "error", err)
		frames = session.NewMockFrameSource(cfg.Capture.RecordWidth, cfg.Capture.RecordHeight, 0, nil)
	}
	defer frames.Close()

	cursor := session.NewPlatformCursorProbe(uintptr(cfg.TargetHWND), cfg.Capture.RecordWidth, cfg.Capture.RecordHeight)

	writer, err := session.NewSessionWriter(session.WriterConfig{
		DatasetRoot:     cfg.DatasetRoot,
		SessionName:     sessionName,
		FFmpegPath:      cfg.FFmpegPath,
		Width:           cfg.Capture.RecordWidth,
		Height:          cfg.Capture.RecordHeight,
		FPS:             cfg.Capture.FPS,
		FlushEveryLines: cfg.FlushEveryLines,
		FlushEvery:      time.Duration(cfg.FlushEveryMs) * time.Millisecond,
	})
	if err != nil {
		log.Error("failed to create session writer", "error", err)
		os.Exit(1)
	}

	if err := writer.WriteOptions(cfg); err != nil {
		log.Error("failed to write options.json", "error", err)
		os.Exit(1)
	}
	meta := sysinfo.Meta{SessionName: sessionName, StartedAt: time.Now(), Host: sysinfo.Collect()}
	if err := writer.WriteMeta(meta); err != nil {
		log.Error("failed to write meta.json", "error", err)
		os.Exit(1)
	}

	sessionCtx := session.NewSessionContext()
	status := session.NewStatusChannel()
	SendStatusStarted(status, sessionName)

	controlSrv := control.NewServer(cfg.ControlAddr, sessionCtx, status)
	go func() {
		if err := controlSrv.ListenAndServe(); err != nil {
			log.Warn("control server stopped", "error", err)
		}
	}()
	defer controlSrv.Close()

	pipeline, err := session.NewSessionPipeline(session.PipelineConfig{
		Clock:     clock,
		Collector: collector,
		Frames:    frames,
		Cursor:    cursor,
		Writer:    writer,
		Context:   sessionCtx,
		StepMs:    cfg.Timing.StepMs,
		Status:    status,
	})
	if err != nil {
		log.Error("failed to build pipeline", "error", err)
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("shutdown signal received, stopping session")
		pipeline.Stop()
	}()

	startTs, err := clock.Now()
	if err != nil {
		log.Error("failed to read clock", "error", err)
		os.Exit(1)
	}

	log.Info("recording started", "session", sessionName, "dataset_root", cfg.DatasetRoot)
	layout, err := pipeline.Run(startTs)
	if err != nil {
		log.Error("recording failed", "error", err)
		os.Exit(1)
	}
	log.Info("recording finished", "session_dir", layout.Dir)
}

func runPackage(sessionDir, outPath string) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		cfg = config.Default()
	}
	initLogging(cfg)

	if err := archive.Package(sessionDir, outPath); err != nil {
		log.Error("failed to package session", "error", err)
		os.Exit(1)
	}
	log.Info("session packaged", "archive", outPath)

	bucket := s3Bucket
	region := s3Region
	if bucket == "" {
		bucket = cfg.Archive.S3Bucket
		region = cfg.Archive.S3Region
	}
	if bucket == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	key := filepath.Base(outPath)
	if err := archive.UploadS3(ctx, outPath, archive.S3Target{Bucket: bucket, Region: region, Key: key}); err != nil {
		log.Error("failed to upload session archive", "error", err)
		os.Exit(1)
	}
	log.Info("session archive uploaded", "bucket", bucket, "key", key)
}

// SendStatusStarted emits the one StatusStarted event a session produces,
// before the step loop's first StatusFrame.
func SendStatusStarted(status chan session.StatusEvent, sessionName string) {
	session.SendStatus(status, session.StatusEvent{Kind: session.StatusStarted, SessionName: sessionName})
}
