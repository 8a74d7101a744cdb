package media

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"wildcam/internal/config"
	"wildcam/internal/logging"
	"wildcam/internal/services"
)

// Service records video and extracts still frames for a capture run.
type Service interface {
	CaptureVideo(ctx context.Context, runID string, durationMS int) (string, error)
	ExtractStillFrame(ctx context.Context, runID, videoPath string) (string, error)
}

// CommandRunner executes an external tool and returns its combined output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	return cmd.CombinedOutput()
}

// CLI implements Service by shelling out to rpicam-vid and ffmpeg.
type CLI struct {
	captureDir     string
	recorderBinary string
	ffmpegBinary   string
	width          int
	height         int
	captureGrace   time.Duration
	ffmpegTimeout  time.Duration
	logger         *slog.Logger
	run            CommandRunner
}

// Option customizes a CLI.
type Option func(*CLI)

// WithCommandRunner replaces process execution, mainly for tests.
func WithCommandRunner(runner CommandRunner) Option {
	return func(c *CLI) {
		if runner != nil {
			c.run = runner
		}
	}
}

// NewCLI builds the capture service from configuration.
func NewCLI(cfg *config.Config, logger *slog.Logger, opts ...Option) *CLI {
	c := &CLI{
		captureDir:     cfg.Paths.CaptureDir,
		recorderBinary: cfg.Capture.RecorderBinary,
		ffmpegBinary:   cfg.Capture.FFmpegBinary,
		width:          cfg.Capture.Width,
		height:         cfg.Capture.Height,
		captureGrace:   time.Duration(cfg.Capture.GraceSeconds) * time.Second,
		ffmpegTimeout:  cfg.FFmpegTimeout(),
		logger:         logging.NewComponentLogger(logger, "media"),
		run:            runCommand,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RawVideoPath is where the recorder writes the raw H.264 stream for runID.
func (c *CLI) RawVideoPath(runID string) string {
	return filepath.Join(c.captureDir, "vid_"+runID+".h264")
}

// VideoPath is the remuxed MP4 for runID.
func (c *CLI) VideoPath(runID string) string {
	return filepath.Join(c.captureDir, "vid_"+runID+".mp4")
}

// FramePath is the extracted still for runID.
func (c *CLI) FramePath(runID string) string {
	return filepath.Join(c.captureDir, "frame_"+runID+".jpg")
}

// CaptureVideo records durationMS of video, remuxes it into an MP4 container
// and removes the raw stream. Any failure carries services.ErrCaptureFailed.
func (c *CLI) CaptureVideo(ctx context.Context, runID string, durationMS int) (string, error) {
	if durationMS <= 0 {
		return "", services.Wrap(services.ErrCaptureFailed, "capture", "record video",
			fmt.Sprintf("invalid duration %dms", durationMS), nil)
	}
	if err := os.MkdirAll(c.captureDir, 0o755); err != nil {
		return "", services.Wrap(services.ErrCaptureFailed, "capture", "ensure capture dir", c.captureDir, err)
	}

	logger := logging.WithContext(ctx, c.logger)
	raw := c.RawVideoPath(runID)
	video := c.VideoPath(runID)

	recordArgs := []string{
		"-t", strconv.Itoa(durationMS),
		"--width", strconv.Itoa(c.width),
		"--height", strconv.Itoa(c.height),
		"-o", raw,
	}
	timeout := time.Duration(durationMS)*time.Millisecond + c.captureGrace
	logger.Info("recording video",
		logging.Int("duration_ms", durationMS),
		logging.String("raw_path", raw),
	)
	if err := c.exec(ctx, timeout, "record video", c.recorderBinary, recordArgs...); err != nil {
		return "", services.Wrap(services.ErrCaptureFailed, "capture", "record video", c.recorderBinary+" failed", err)
	}

	remuxArgs := []string{"-i", raw, "-c:v", "copy", "-y", video}
	if err := c.exec(ctx, c.ffmpegTimeout, "remux video", c.ffmpegBinary, remuxArgs...); err != nil {
		return "", services.Wrap(services.ErrCaptureFailed, "capture", "remux video", c.ffmpegBinary+" failed", err)
	}
	if err := requireFile(video); err != nil {
		return "", services.Wrap(services.ErrCaptureFailed, "capture", "remux video", "no output produced", err)
	}

	if err := os.Remove(raw); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.WarnWithContext(logger, "raw video cleanup failed", "raw_cleanup_failed",
			logging.Error(err),
			logging.String("raw_path", raw),
			logging.String(logging.FieldErrorHint, "remove the .h264 file manually"),
			logging.String(logging.FieldImpact, "raw stream stays in the capture directory"),
		)
	}

	logger.Info("video captured", logging.String("video_path", video))
	return video, nil
}

// ExtractStillFrame writes the first frame of videoPath as a JPEG. Failure
// carries services.ErrExtractFailed and leaves the video in place.
func (c *CLI) ExtractStillFrame(ctx context.Context, runID, videoPath string) (string, error) {
	if strings.TrimSpace(videoPath) == "" {
		return "", services.Wrap(services.ErrExtractFailed, "extract", "extract frame", "video path is empty", nil)
	}
	if err := os.MkdirAll(c.captureDir, 0o755); err != nil {
		return "", services.Wrap(services.ErrExtractFailed, "extract", "ensure capture dir", c.captureDir, err)
	}
	frame := c.FramePath(runID)
	args := []string{"-i", videoPath, "-vframes", "1", "-q:v", "2", "-y", frame}
	if err := c.exec(ctx, c.ffmpegTimeout, "extract frame", c.ffmpegBinary, args...); err != nil {
		return "", services.Wrap(services.ErrExtractFailed, "extract", "extract frame", c.ffmpegBinary+" failed", err)
	}
	if err := requireFile(frame); err != nil {
		return "", services.Wrap(services.ErrExtractFailed, "extract", "extract frame", "no output produced", err)
	}
	logging.WithContext(ctx, c.logger).Debug("still frame extracted", logging.String("frame_path", frame))
	return frame, nil
}

func (c *CLI) exec(ctx context.Context, timeout time.Duration, op, name string, args ...string) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	output, err := c.run(ctx, name, args...)
	if err == nil {
		return nil
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return services.Wrap(services.ErrTimeout, "", op, fmt.Sprintf("%s exceeded %s", name, timeout), err)
	}
	detail := strings.TrimSpace(string(output))
	if len(detail) > 512 {
		detail = detail[len(detail)-512:]
	}
	return services.Wrap(services.ErrExternalTool, "", op, detail, err)
}

func requireFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	return nil
}
