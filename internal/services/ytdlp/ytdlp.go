package ytdlp

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"autodub/internal/config"
	"autodub/internal/logging"
	"autodub/internal/services"
)

type commandRunner func(ctx context.Context, name string, args ...string) error

// Downloader fetches the source video and a separate audio track for
// transcription using yt-dlp.
type Downloader struct {
	cfg    *config.Config
	logger *slog.Logger
	run    commandRunner
	policy services.RetryPolicy
}

// Result holds the paths produced by a successful download.
type Result struct {
	VideoPath string
	AudioPath string
}

func New(cfg *config.Config, logger *slog.Logger) *Downloader {
	d := &Downloader{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "ytdlp"),
		policy: services.DefaultRetryPolicy(),
	}
	if cfg.Download.Retries > 0 {
		d.policy.Attempts = cfg.Download.Retries
	}
	d.run = d.defaultCommandRunner
	return d
}

// Download fetches the source video (mp4) and a mono 16 kHz wav of its audio
// into workDir. Each fetch is retried per the download config before the
// whole operation fails.
func (d *Downloader) Download(ctx context.Context, rawURL, workDir string) (Result, error) {
	rawURL = strings.TrimSpace(rawURL)
	if err := ValidateURL(rawURL); err != nil {
		return Result{}, err
	}
	if strings.TrimSpace(workDir) == "" {
		return Result{}, services.Wrap(services.ErrValidation, "download", "prepare", "Work directory not set", nil)
	}

	videoPath := filepath.Join(workDir, "source.mp4")
	audioPath := filepath.Join(workDir, "audio.wav")

	start := time.Now()
	err := services.Retry(ctx, d.policy, func() error {
		return d.fetchVideo(ctx, rawURL, videoPath)
	})
	if err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, "download", "fetch video", "Video download failed", err)
	}

	err = services.Retry(ctx, d.policy, func() error {
		return d.fetchAudio(ctx, rawURL, audioPath)
	})
	if err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, "download", "fetch audio", "Audio download failed", err)
	}

	logging.WithContext(ctx, d.logger).Info("download complete",
		logging.String("video", videoPath),
		logging.String("audio", audioPath),
		logging.Duration("elapsed", time.Since(start)),
	)
	return Result{VideoPath: videoPath, AudioPath: audioPath}, nil
}

// ValidateURL accepts absolute http(s) URLs only.
func ValidateURL(rawURL string) error {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return services.Wrap(services.ErrValidation, "download", "validate url", "Missing video URL", nil)
	}
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return services.Wrap(services.ErrValidation, "download", "validate url", fmt.Sprintf("Invalid video URL %q", rawURL), err)
	}
	return nil
}

func (d *Downloader) fetchVideo(ctx context.Context, rawURL, videoPath string) error {
	args := []string{
		"--no-playlist",
		"--quiet",
		"--no-warnings",
		"-f", "best[ext=mp4]/best",
		"-o", videoPath,
		rawURL,
	}
	if err := d.runWithTimeout(ctx, args...); err != nil {
		return err
	}
	return requireNonEmpty(videoPath, "downloaded video")
}

func (d *Downloader) fetchAudio(ctx context.Context, rawURL, audioPath string) error {
	// WhisperX wants mono 16 kHz pcm; extracting with yt-dlp's ffmpeg
	// postprocessor keeps this a single invocation.
	args := []string{
		"--no-playlist",
		"--quiet",
		"--no-warnings",
		"-f", "bestaudio/best",
		"-x",
		"--audio-format", "wav",
		"--postprocessor-args", "ffmpeg:-ac 1 -ar 16000",
		"-o", strings.TrimSuffix(audioPath, ".wav") + ".%(ext)s",
		rawURL,
	}
	if err := d.runWithTimeout(ctx, args...); err != nil {
		return err
	}
	return requireNonEmpty(audioPath, "extracted audio")
}

// runWithTimeout bounds a single yt-dlp invocation; retries layer on top.
func (d *Downloader) runWithTimeout(ctx context.Context, args ...string) error {
	if d.cfg.Download.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(d.cfg.Download.TimeoutSeconds)*time.Second)
		defer cancel()
	}
	return d.run(ctx, d.cfg.Download.Binary, args...)
}

func (d *Downloader) defaultCommandRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	var stderr strings.Builder
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

func requireNonEmpty(path, label string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%s missing at %s: %w", label, path, err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("%s at %s is empty", label, path)
	}
	return nil
}
