package render

import (
	"context"
	"strings"
	"testing"

	"autodub/internal/testsupport"
	"autodub/internal/timeline"
)

func TestFitClipCompressesLongClip(t *testing.T) {
	r := newTestRenderer(t)
	r.probe = func(ctx context.Context, path string) (float64, error) { return 6.0, nil }

	var gotArgs []string
	r.run = func(ctx context.Context, name string, args ...string) error {
		gotArgs = args
		testsupport.WriteFile(t, args[len(args)-1], 64)
		return nil
	}

	outPath, imperfect, err := r.FitClip(context.Background(), "/work/chunk_0000.mp3", 4.0)
	if err != nil {
		t.Fatalf("FitClip failed: %v", err)
	}
	if imperfect {
		t.Fatal("tempo 1.5 fits inside the cap, should not be imperfect")
	}
	if outPath != "/work/chunk_0000_fit.wav" {
		t.Fatalf("unexpected output path: %s", outPath)
	}
	joined := strings.Join(gotArgs, " ")
	if !strings.Contains(joined, "atempo=1.5") {
		t.Fatalf("missing tempo filter: %q", joined)
	}
	if !strings.Contains(joined, "-t 4") {
		t.Fatalf("missing slot bound: %q", joined)
	}
}

func TestFitClipPadsShortClip(t *testing.T) {
	r := newTestRenderer(t)
	r.probe = func(ctx context.Context, path string) (float64, error) { return 2.0, nil }

	var gotArgs []string
	r.run = func(ctx context.Context, name string, args ...string) error {
		gotArgs = args
		testsupport.WriteFile(t, args[len(args)-1], 64)
		return nil
	}

	if _, _, err := r.FitClip(context.Background(), "/work/c.mp3", 5.0); err != nil {
		t.Fatalf("FitClip failed: %v", err)
	}
	joined := strings.Join(gotArgs, " ")
	if !strings.Contains(joined, "apad") {
		t.Fatalf("missing pad filter: %q", joined)
	}
	if strings.Contains(joined, "atempo") {
		t.Fatalf("short clip must not change tempo: %q", joined)
	}
}

func TestFitClipFlagsTruncation(t *testing.T) {
	r := newTestRenderer(t)
	r.probe = func(ctx context.Context, path string) (float64, error) { return 9.0, nil }
	r.run = func(ctx context.Context, name string, args ...string) error {
		testsupport.WriteFile(t, args[len(args)-1], 64)
		return nil
	}

	_, imperfect, err := r.FitClip(context.Background(), "/work/c.mp3", 4.0)
	if err != nil {
		t.Fatalf("FitClip failed: %v", err)
	}
	if !imperfect {
		t.Fatal("expected imperfect fit for clip beyond the compression cap")
	}
}

func TestBuildFitFilterChainsLargeTempo(t *testing.T) {
	filter := buildFitFilter(timeline.FitPlan{Tempo: 3})
	if filter != "atempo=2,atempo=1.5" {
		t.Fatalf("unexpected chained filter: %q", filter)
	}
	if got := buildFitFilter(timeline.FitPlan{Tempo: 1}); got != "" {
		t.Fatalf("expected empty filter for passthrough, got %q", got)
	}
}
