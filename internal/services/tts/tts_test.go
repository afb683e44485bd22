package tts

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"autodub/internal/logging"
	"autodub/internal/services"
	"autodub/internal/testsupport"
)

func TestSynthesizeWritesClip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	s := New(cfg, logging.NewNop())

	outPath := filepath.Join(t.TempDir(), "chunk_0000.mp3")
	var gotArgs []string
	s.run = func(ctx context.Context, name string, args ...string) error {
		gotArgs = append([]string{name}, args...)
		testsupport.WriteFile(t, outPath, 32)
		return nil
	}

	if err := s.Synthesize(context.Background(), "hola mundo", "es", "female", outPath); err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if gotArgs[0] != cfg.TTS.Binary {
		t.Fatalf("unexpected binary: %s", gotArgs[0])
	}
	assertContains(t, gotArgs, "--voice", "es-ES-ElviraNeural")
	assertContains(t, gotArgs, "--write-media", outPath)
}

func TestSynthesizeSelectsMaleVoice(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	s := New(cfg, logging.NewNop())

	outPath := filepath.Join(t.TempDir(), "clip.mp3")
	var gotArgs []string
	s.run = func(ctx context.Context, name string, args ...string) error {
		gotArgs = args
		testsupport.WriteFile(t, outPath, 32)
		return nil
	}

	if err := s.Synthesize(context.Background(), "hallo", "de", "male", outPath); err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	assertContains(t, gotArgs, "--voice", "de-DE-ConradNeural")
}

func TestSynthesizeValidation(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	s := New(cfg, logging.NewNop())

	if err := s.Synthesize(context.Background(), "  ", "es", "female", "out.mp3"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for empty text, got %v", err)
	}
	if err := s.Synthesize(context.Background(), "text", "xx", "female", "out.mp3"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for unknown language, got %v", err)
	}
}

func TestSynthesizeRetriesThenFails(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.TTS.Retries = 2
	s := New(cfg, logging.NewNop())
	s.policy.Delay = time.Millisecond

	attempts := 0
	s.run = func(ctx context.Context, name string, args ...string) error {
		attempts++
		return errors.New("rate limited")
	}

	err := s.Synthesize(context.Background(), "text", "es", "female", filepath.Join(t.TempDir(), "x.mp3"))
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	if attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts)
	}
}

func TestSynthesizeFailsOnEmptyClip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.TTS.Retries = 1
	s := New(cfg, logging.NewNop())
	s.run = func(ctx context.Context, name string, args ...string) error {
		return nil
	}

	err := s.Synthesize(context.Background(), "text", "es", "female", filepath.Join(t.TempDir(), "x.mp3"))
	if err == nil {
		t.Fatal("expected failure when tool writes nothing")
	}
}

func TestPaceRespectsContext(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.TTS.PauseMinMillis = 10_000
	cfg.TTS.PauseMaxMillis = 10_000
	s := New(cfg, logging.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	s.Pace(ctx)
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("Pace ignored canceled context, slept %v", elapsed)
	}
}

func TestPaceZeroConfigReturnsImmediately(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.TTS.PauseMinMillis = 0
	cfg.TTS.PauseMaxMillis = 0
	s := New(cfg, logging.NewNop())

	start := time.Now()
	s.Pace(context.Background())
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Fatalf("expected immediate return, slept %v", elapsed)
	}
}

func assertContains(t *testing.T, args []string, flag, value string) {
	t.Helper()
	for i, arg := range args {
		if arg == flag && i+1 < len(args) && args[i+1] == value {
			return
		}
	}
	t.Fatalf("args %v missing %s %s", args, flag, value)
}
