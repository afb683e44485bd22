package render

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"autodub/internal/logging"
	"autodub/internal/services"
	"autodub/internal/testsupport"
)

func newTestRenderer(t *testing.T) *Renderer {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	return New(cfg, logging.NewNop())
}

func TestEnsureSilenceBaseGeneratesOnce(t *testing.T) {
	r := newTestRenderer(t)
	workDir := t.TempDir()

	calls := 0
	r.run = func(ctx context.Context, name string, args ...string) error {
		calls++
		testsupport.WriteFile(t, args[len(args)-1], 64)
		return nil
	}

	first, err := r.EnsureSilenceBase(context.Background(), workDir)
	if err != nil {
		t.Fatalf("EnsureSilenceBase failed: %v", err)
	}
	second, err := r.EnsureSilenceBase(context.Background(), workDir)
	if err != nil {
		t.Fatalf("second EnsureSilenceBase failed: %v", err)
	}
	if first != second {
		t.Fatalf("paths differ: %s vs %s", first, second)
	}
	if calls != 1 {
		t.Fatalf("expected a single ffmpeg call, got %d", calls)
	}
	if filepath.Base(first) != "silence_base.wav" {
		t.Fatalf("unexpected base name: %s", first)
	}
}

func TestEnsureSilenceBaseUsesConfiguredParams(t *testing.T) {
	r := newTestRenderer(t)
	r.cfg.Timeline.SampleRate = 24000
	r.cfg.Timeline.SilenceSeconds = 300

	var gotArgs []string
	r.run = func(ctx context.Context, name string, args ...string) error {
		gotArgs = args
		testsupport.WriteFile(t, args[len(args)-1], 64)
		return nil
	}

	if _, err := r.EnsureSilenceBase(context.Background(), t.TempDir()); err != nil {
		t.Fatalf("EnsureSilenceBase failed: %v", err)
	}
	joined := strings.Join(gotArgs, " ")
	if !strings.Contains(joined, "anullsrc=r=24000:cl=mono") {
		t.Fatalf("missing anullsrc source in %q", joined)
	}
	if !strings.Contains(joined, "-t 300") {
		t.Fatalf("missing duration in %q", joined)
	}
}

func TestRenderVerifiesOutput(t *testing.T) {
	r := newTestRenderer(t)
	outPath := filepath.Join(t.TempDir(), "dubbed.mp4")

	r.run = func(ctx context.Context, name string, args ...string) error {
		testsupport.WriteFile(t, outPath, 128)
		return nil
	}
	if err := r.Render(context.Background(), "video.mp4", "concat.txt", "", outPath); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	// Tool "succeeds" but produces nothing.
	missing := filepath.Join(t.TempDir(), "missing.mp4")
	r.run = func(ctx context.Context, name string, args ...string) error { return nil }
	err := r.Render(context.Background(), "video.mp4", "concat.txt", "", missing)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error for missing output, got %v", err)
	}
}

func TestRenderCopiesVideoStream(t *testing.T) {
	r := newTestRenderer(t)
	outPath := filepath.Join(t.TempDir(), "dubbed.mp4")

	var gotArgs []string
	r.run = func(ctx context.Context, name string, args ...string) error {
		gotArgs = args
		testsupport.WriteFile(t, outPath, 128)
		return nil
	}
	if err := r.Render(context.Background(), "video.mp4", "concat.txt", "", outPath); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	joined := strings.Join(gotArgs, " ")
	if !strings.Contains(joined, "-c:v copy") {
		t.Fatalf("video stream not copied: %q", joined)
	}
	if strings.Contains(joined, "mov_text") {
		t.Fatalf("subtitle codec set without subtitle input: %q", joined)
	}
}

func TestRenderMuxesSubtitles(t *testing.T) {
	r := newTestRenderer(t)
	outPath := filepath.Join(t.TempDir(), "dubbed.mp4")

	var gotArgs []string
	r.run = func(ctx context.Context, name string, args ...string) error {
		gotArgs = args
		testsupport.WriteFile(t, outPath, 128)
		return nil
	}
	if err := r.Render(context.Background(), "video.mp4", "concat.txt", "subs.srt", outPath); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	joined := strings.Join(gotArgs, " ")
	if !strings.Contains(joined, "-i subs.srt") || !strings.Contains(joined, "-c:s mov_text") {
		t.Fatalf("subtitles not muxed: %q", joined)
	}
}

func TestFormatSeconds(t *testing.T) {
	cases := map[float64]string{
		300:      "300",
		4:        "4",
		1.5:      "1.5",
		0.333333: "0.333333",
	}
	for in, want := range cases {
		if got := formatSeconds(in); got != want {
			t.Errorf("formatSeconds(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestProbeDurationFailsWithoutDuration(t *testing.T) {
	r := newTestRenderer(t)
	r.probe = func(ctx context.Context, path string) (float64, error) {
		return 0, os.ErrNotExist
	}
	if _, err := r.ProbeDuration(context.Background(), "x"); err == nil {
		t.Fatal("expected probe error")
	}
}
