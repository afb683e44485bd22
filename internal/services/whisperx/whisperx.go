package whisperx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"autodub/internal/chunking"
	"autodub/internal/config"
	"autodub/internal/logging"
	"autodub/internal/services"
)

const uvxCommand = "uvx"

type commandRunner func(ctx context.Context, name string, args ...string) error

// Transcriber runs WhisperX through uvx and parses its JSON output into
// transcript segments.
type Transcriber struct {
	cfg    *config.Config
	logger *slog.Logger
	run    commandRunner
}

func New(cfg *config.Config, logger *slog.Logger) *Transcriber {
	t := &Transcriber{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "whisperx"),
	}
	t.run = t.defaultCommandRunner
	return t
}

// Transcribe runs WhisperX against audioPath, writing intermediates into
// workDir, and returns the ordered transcript segments. GPU selects the CUDA
// device when the config allows it; otherwise transcription runs on CPU.
func (t *Transcriber) Transcribe(ctx context.Context, audioPath, workDir string, gpu bool) ([]chunking.Segment, error) {
	if strings.TrimSpace(audioPath) == "" {
		return nil, services.Wrap(services.ErrValidation, "transcribe", "prepare", "Missing audio path", nil)
	}
	if strings.TrimSpace(workDir) == "" {
		return nil, services.Wrap(services.ErrValidation, "transcribe", "prepare", "Work directory not set", nil)
	}

	start := time.Now()
	args := t.buildArgs(audioPath, workDir, gpu)
	if err := t.run(ctx, uvxCommand, args...); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "transcribe", "whisperx", "WhisperX transcription failed", err)
	}

	jsonPath := outputJSONPath(audioPath, workDir)
	segments, err := loadSegments(jsonPath)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "transcribe", "parse output", "Failed to read WhisperX output", err)
	}
	if len(segments) == 0 {
		return nil, services.Wrap(services.ErrValidation, "transcribe", "parse output", "Transcript is empty", nil)
	}

	logging.WithContext(ctx, t.logger).Info("transcription complete",
		logging.Int("segments", len(segments)),
		logging.Duration("elapsed", time.Since(start)),
	)
	return segments, nil
}

func (t *Transcriber) buildArgs(audioPath, workDir string, gpu bool) []string {
	args := []string{
		"whisperx",
		audioPath,
		"--model", t.cfg.Transcribe.Model,
		"--output_dir", workDir,
		"--output_format", "json",
	}
	if gpu && t.cfg.Transcribe.CUDAEnabled {
		args = append(args, "--device", "cuda")
	} else {
		args = append(args, "--device", "cpu", "--compute_type", "int8")
	}
	return args
}

// outputJSONPath mirrors WhisperX's naming: the audio basename with a .json
// extension inside the output dir.
func outputJSONPath(audioPath, workDir string) string {
	base := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	return filepath.Join(workDir, base+".json")
}

type whisperXSegment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

type whisperXPayload struct {
	Segments []whisperXSegment `json:"segments"`
}

func loadSegments(path string) ([]chunking.Segment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var payload whisperXPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("parse whisperx json: %w", err)
	}

	segments := make([]chunking.Segment, 0, len(payload.Segments))
	for _, seg := range payload.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" || seg.End <= seg.Start {
			continue
		}
		segments = append(segments, chunking.Segment{Start: seg.Start, End: seg.End, Text: text})
	}
	return segments, nil
}

func (t *Transcriber) defaultCommandRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	var stderr strings.Builder
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return nil
}
