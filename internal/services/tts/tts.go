package tts

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"os/exec"
	"strings"
	"time"

	"autodub/internal/config"
	"autodub/internal/language"
	"autodub/internal/logging"
	"autodub/internal/services"
)

type commandRunner func(ctx context.Context, name string, args ...string) error

// Synthesizer produces speech clips with the configured TTS binary.
type Synthesizer struct {
	cfg    *config.Config
	logger *slog.Logger
	run    commandRunner
	policy services.RetryPolicy
}

func New(cfg *config.Config, logger *slog.Logger) *Synthesizer {
	s := &Synthesizer{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "tts"),
		policy: services.DefaultRetryPolicy(),
	}
	if cfg.TTS.Retries > 0 {
		s.policy.Attempts = cfg.TTS.Retries
	}
	s.run = s.defaultCommandRunner
	return s
}

// Synthesize renders text as speech into outPath using the voice registered
// for lang and gender. Transient tool failures are retried.
func (s *Synthesizer) Synthesize(ctx context.Context, text, lang, gender, outPath string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return services.Wrap(services.ErrValidation, "tts", "prepare", "Nothing to synthesize", nil)
	}
	voice, ok := language.Voice(lang, gender)
	if !ok {
		return services.Wrap(services.ErrValidation, "tts", "prepare", fmt.Sprintf("No voice for language %q", lang), nil)
	}

	args := []string{
		"--voice", voice,
		"--text", text,
		"--write-media", outPath,
	}
	err := services.Retry(ctx, s.policy, func() error {
		if err := s.run(ctx, s.cfg.TTS.Binary, args...); err != nil {
			return err
		}
		return requireNonEmpty(outPath)
	})
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "tts", "synthesize", "Speech synthesis failed", err)
	}
	return nil
}

// Pace sleeps a random interval between synthesis calls so hosted voices
// are not rate limited. Returns early when the context is done.
func (s *Synthesizer) Pace(ctx context.Context) {
	minMillis := s.cfg.TTS.PauseMinMillis
	maxMillis := s.cfg.TTS.PauseMaxMillis
	if minMillis < 0 {
		minMillis = 0
	}
	if maxMillis < minMillis {
		maxMillis = minMillis
	}
	pause := time.Duration(minMillis) * time.Millisecond
	if spread := maxMillis - minMillis; spread > 0 {
		pause += time.Duration(rand.Intn(spread+1)) * time.Millisecond
	}
	if pause <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(pause):
	}
}

func (s *Synthesizer) defaultCommandRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	var stderr strings.Builder
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

func requireNonEmpty(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("synthesized clip missing at %s: %w", path, err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("synthesized clip at %s is empty", path)
	}
	return nil
}
