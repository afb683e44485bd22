package render

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"autodub/internal/config"
	"autodub/internal/logging"
	"autodub/internal/media/ffprobe"
	"autodub/internal/services"
)

const silenceBaseName = "silence_base.wav"

type commandRunner func(ctx context.Context, name string, args ...string) error

// Renderer wraps the ffmpeg invocations of the tts and render stages.
type Renderer struct {
	cfg    *config.Config
	logger *slog.Logger
	run    commandRunner
	probe  func(ctx context.Context, path string) (float64, error)
}

func New(cfg *config.Config, logger *slog.Logger) *Renderer {
	r := &Renderer{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "render"),
	}
	r.run = r.defaultCommandRunner
	r.probe = r.probeDuration
	return r
}

// EnsureSilenceBase generates the shared silence source all gap entries are
// sliced from. Idempotent per work dir.
func (r *Renderer) EnsureSilenceBase(ctx context.Context, workDir string) (string, error) {
	path := filepath.Join(workDir, silenceBaseName)
	if info, err := os.Stat(path); err == nil && info.Size() > 0 {
		return path, nil
	}

	args := []string{
		"-y", "-v", "error",
		"-f", "lavfi",
		"-i", fmt.Sprintf("anullsrc=r=%d:cl=mono", r.cfg.Timeline.SampleRate),
		"-t", formatSeconds(r.cfg.Timeline.SilenceSeconds),
		"-c:a", "pcm_s16le",
		path,
	}
	if err := r.run(ctx, r.cfg.FFmpegBinary(), args...); err != nil {
		return "", services.Wrap(services.ErrExternalTool, "render", "silence base", "Failed to generate silence base", err)
	}
	return path, nil
}

// ProbeDuration returns the media duration in seconds.
func (r *Renderer) ProbeDuration(ctx context.Context, path string) (float64, error) {
	return r.probe(ctx, path)
}

// Render muxes the concat audio under the original video stream. The video
// stream is copied unmodified; an optional subtitle track is muxed when
// subtitlePath is non-empty. Success requires a non-empty output file.
func (r *Renderer) Render(ctx context.Context, videoPath, concatPath, subtitlePath, outPath string) error {
	args := []string{
		"-y", "-v", "error",
		"-i", videoPath,
		"-f", "concat", "-safe", "0", "-i", concatPath,
	}
	if subtitlePath != "" {
		args = append(args, "-i", subtitlePath)
	}
	args = append(args,
		"-map", "0:v:0",
		"-map", "1:a:0",
	)
	if subtitlePath != "" {
		args = append(args, "-map", "2:0", "-c:s", "mov_text")
	}
	args = append(args,
		"-c:v", "copy",
		"-c:a", "aac",
		"-b:a", "192k",
		"-shortest",
		outPath,
	)
	if err := r.run(ctx, r.cfg.FFmpegBinary(), args...); err != nil {
		return services.Wrap(services.ErrExternalTool, "render", "mux", "Final render failed", err)
	}

	info, err := os.Stat(outPath)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "render", "verify output", "Output file was not created", err)
	}
	if info.Size() == 0 {
		return services.Wrap(services.ErrExternalTool, "render", "verify output", "Output file is empty", nil)
	}
	r.logger.Info("render complete",
		logging.String("output", outPath),
		logging.Float64("size_mb", float64(info.Size())/1_048_576),
	)
	return nil
}

func (r *Renderer) probeDuration(ctx context.Context, path string) (float64, error) {
	result, err := ffprobe.Inspect(ctx, r.cfg.FFprobeBinary(), path)
	if err != nil {
		return 0, err
	}
	duration := result.DurationSeconds()
	if duration <= 0 {
		return 0, fmt.Errorf("no duration reported for %s", path)
	}
	return duration, nil
}

func (r *Renderer) defaultCommandRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	var stderr strings.Builder
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

func formatSeconds(value float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.6f", value), "0"), ".")
}
