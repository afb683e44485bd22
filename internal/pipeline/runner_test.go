package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"autodub/internal/chunking"
	"autodub/internal/jobs"
	"autodub/internal/logging"
	"autodub/internal/services/translate"
	"autodub/internal/services/ytdlp"
	"autodub/internal/testsupport"
)

type fakeDownloader struct {
	err error
}

func (f *fakeDownloader) Download(ctx context.Context, url, workDir string) (ytdlp.Result, error) {
	if f.err != nil {
		return ytdlp.Result{}, f.err
	}
	return ytdlp.Result{
		VideoPath: workDir + "/source.mp4",
		AudioPath: workDir + "/audio.wav",
	}, nil
}

type fakeTranscriber struct {
	segments []chunking.Segment
	err      error
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audioPath, workDir string, gpu bool) ([]chunking.Segment, error) {
	return f.segments, f.err
}

type fakeTranslator struct {
	fallbacks int
	err       error
}

func (f *fakeTranslator) TranslateBatch(ctx context.Context, texts []string, targetLang string) (translate.Result, error) {
	if f.err != nil {
		return translate.Result{}, f.err
	}
	out := make([]string, len(texts))
	for i, text := range texts {
		out[i] = "[" + targetLang + "] " + text
	}
	return translate.Result{Texts: out, Fallbacks: f.fallbacks}, nil
}

type fakeSynthesizer struct {
	mu       sync.Mutex
	failFor  map[int]bool // chunk index -> fail
	synthErr error
	calls    int
	block    chan struct{} // when set, Synthesize waits here
}

func (f *fakeSynthesizer) Synthesize(ctx context.Context, text, lang, gender, outPath string) error {
	f.mu.Lock()
	f.calls++
	calls := f.calls
	f.mu.Unlock()
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if f.synthErr != nil {
		return f.synthErr
	}
	if f.failFor[calls-1] {
		return errors.New("voice service unavailable")
	}
	return nil
}

func (f *fakeSynthesizer) Pace(ctx context.Context) {}

type fakeRenderer struct {
	renderErr error
	fitErr    error
	rendered  []string
	mu        sync.Mutex
}

func (f *fakeRenderer) EnsureSilenceBase(ctx context.Context, workDir string) (string, error) {
	return workDir + "/silence_base.wav", nil
}

func (f *fakeRenderer) FitClip(ctx context.Context, clipPath string, slotDuration float64) (string, bool, error) {
	if f.fitErr != nil {
		return "", false, f.fitErr
	}
	return strings.TrimSuffix(clipPath, ".mp3") + "_fit.wav", false, nil
}

func (f *fakeRenderer) ProbeDuration(ctx context.Context, path string) (float64, error) {
	return 60, nil
}

func (f *fakeRenderer) Render(ctx context.Context, videoPath, concatPath, subtitlePath, outPath string) error {
	if f.renderErr != nil {
		return f.renderErr
	}
	f.mu.Lock()
	f.rendered = append(f.rendered, outPath)
	f.mu.Unlock()
	return nil
}

type fakeHistory struct {
	mu       sync.Mutex
	recorded []jobs.Job
}

func (f *fakeHistory) Record(ctx context.Context, job jobs.Job) error {
	f.mu.Lock()
	f.recorded = append(f.recorded, job)
	f.mu.Unlock()
	return nil
}

func defaultSegments() []chunking.Segment {
	return []chunking.Segment{
		{Start: 0, End: 4, Text: "hello there"},
		{Start: 4, End: 7, Text: "how are you"},
		{Start: 30, End: 34, Text: "goodbye now"},
	}
}

type runnerFixture struct {
	runner      *Runner
	store       *jobs.Store
	downloader  *fakeDownloader
	transcriber *fakeTranscriber
	translator  *fakeTranslator
	synth       *fakeSynthesizer
	renderer    *fakeRenderer
	history     *fakeHistory
}

func newFixture(t *testing.T) *runnerFixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := jobs.NewStore()
	f := &runnerFixture{
		store:       store,
		downloader:  &fakeDownloader{},
		transcriber: &fakeTranscriber{segments: defaultSegments()},
		translator:  &fakeTranslator{},
		synth:       &fakeSynthesizer{},
		renderer:    &fakeRenderer{},
		history:     &fakeHistory{},
	}
	f.runner = NewRunner(cfg, store, logging.NewNop(), Deps{
		Downloader:  f.downloader,
		Transcriber: f.transcriber,
		Translator:  f.translator,
		Synthesizer: f.synth,
		Renderer:    f.renderer,
		History:     f.history,
	})
	f.runner.preflight = func() []string { return nil }
	return f
}

func (f *runnerFixture) runToTerminal(t *testing.T, params jobs.Params) jobs.Job {
	t.Helper()
	job, err := f.runner.Start(params)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	f.runner.Wait()
	final, ok := f.store.Get(job.ID)
	if !ok {
		t.Fatalf("job %s vanished", job.ID)
	}
	if !final.Status.IsTerminal() {
		t.Fatalf("job did not reach terminal state: %#v", final)
	}
	return final
}

func validParams() jobs.Params {
	return jobs.Params{URL: "https://example.com/watch?v=1", Lang: "es", Gender: "female"}
}

func TestRunnerHappyPath(t *testing.T) {
	f := newFixture(t)
	final := f.runToTerminal(t, validParams())

	if final.Status != jobs.StatusComplete {
		t.Fatalf("expected complete, got %s (%s)", final.Status, final.Error)
	}
	if final.Progress != 100 || final.Stage != jobs.StageDone {
		t.Fatalf("unexpected terminal snapshot: %#v", final)
	}
	if final.OutputFile == "" || !strings.Contains(final.OutputFile, "dubbed_es_female_") {
		t.Fatalf("unexpected output file: %q", final.OutputFile)
	}
	if final.Error != "" {
		t.Fatalf("complete job must not carry an error: %q", final.Error)
	}
	if len(f.history.recorded) != 1 || f.history.recorded[0].ID != final.ID {
		t.Fatalf("terminal snapshot not archived: %#v", f.history.recorded)
	}
}

func TestRunnerSubtitleOutputName(t *testing.T) {
	f := newFixture(t)
	params := validParams()
	params.Subtitle = true
	final := f.runToTerminal(t, params)

	if final.Status != jobs.StatusComplete {
		t.Fatalf("expected complete, got %s (%s)", final.Status, final.Error)
	}
	if !strings.Contains(final.OutputFile, "_sub_") {
		t.Fatalf("subtitle job should carry _sub suffix: %q", final.OutputFile)
	}
}

func TestRunnerValidatesRequest(t *testing.T) {
	f := newFixture(t)

	if _, err := f.runner.Start(jobs.Params{URL: "", Lang: "es"}); err == nil {
		t.Fatal("expected error for missing URL")
	}
	if _, err := f.runner.Start(jobs.Params{URL: "https://x.com/v", Lang: "xx"}); err == nil {
		t.Fatal("expected error for unsupported language")
	}
	if _, err := f.runner.Start(jobs.Params{URL: "https://x.com/v", Lang: "es", Gender: "robot"}); err == nil {
		t.Fatal("expected error for unsupported gender")
	}
}

func TestRunnerDefaultsLangAndGender(t *testing.T) {
	f := newFixture(t)
	final := f.runToTerminal(t, jobs.Params{URL: "https://example.com/v"})
	if final.Lang != "es" || final.Gender != "female" {
		t.Fatalf("defaults not applied: lang=%q gender=%q", final.Lang, final.Gender)
	}
}

func TestRunnerDownloadFailureIsFatal(t *testing.T) {
	f := newFixture(t)
	f.downloader.err = errors.New("yt-dlp exploded")
	final := f.runToTerminal(t, validParams())

	if final.Status != jobs.StatusError {
		t.Fatalf("expected error status, got %s", final.Status)
	}
	if final.Progress >= 100 {
		t.Fatalf("failed job must not reach 100, got %d", final.Progress)
	}
	if !strings.Contains(final.Error, "yt-dlp exploded") {
		t.Fatalf("error not propagated: %q", final.Error)
	}
	if final.OutputFile != "" {
		t.Fatalf("failed job must not carry output: %q", final.OutputFile)
	}
}

func TestRunnerEmptyTranscriptIsFatal(t *testing.T) {
	f := newFixture(t)
	f.transcriber.segments = nil
	final := f.runToTerminal(t, validParams())
	if final.Status != jobs.StatusError {
		t.Fatalf("expected error status, got %s", final.Status)
	}
}

func TestRunnerPartialSynthesisFailureDegrades(t *testing.T) {
	f := newFixture(t)
	f.synth.failFor = map[int]bool{0: true}
	final := f.runToTerminal(t, validParams())

	if final.Status != jobs.StatusComplete {
		t.Fatalf("partial tts failure should not kill the job: %s (%s)", final.Status, final.Error)
	}
}

func TestRunnerAllSynthesisFailedIsFatal(t *testing.T) {
	f := newFixture(t)
	f.synth.synthErr = errors.New("every chunk fails")
	final := f.runToTerminal(t, validParams())

	if final.Status != jobs.StatusError {
		t.Fatalf("expected error status, got %s", final.Status)
	}
	if !strings.Contains(final.Error, "every chunk") && !strings.Contains(final.Error, "Speech synthesis failed") {
		t.Fatalf("unexpected error: %q", final.Error)
	}
}

func TestRunnerRenderFailureIsFatal(t *testing.T) {
	f := newFixture(t)
	f.renderer.renderErr = errors.New("mux blew up")
	final := f.runToTerminal(t, validParams())
	if final.Status != jobs.StatusError {
		t.Fatalf("expected error status, got %s", final.Status)
	}
}

func TestRunnerPreflightFailureIsFatal(t *testing.T) {
	f := newFixture(t)
	f.runner.preflight = func() []string { return []string{"ffmpeg"} }
	final := f.runToTerminal(t, validParams())
	if final.Status != jobs.StatusError || !strings.Contains(final.Error, "ffmpeg") {
		t.Fatalf("expected preflight error naming ffmpeg, got %#v", final)
	}
}

func TestRunnerCancellation(t *testing.T) {
	f := newFixture(t)
	f.synth.block = make(chan struct{})

	job, err := f.runner.Start(validParams())
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// Wait until the job is inside the tts stage before canceling.
	deadline := time.After(5 * time.Second)
	for {
		snapshot, _ := f.store.Get(job.ID)
		if snapshot.Stage == jobs.StageTTS {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("job never reached tts stage: %#v", snapshot)
		case <-time.After(5 * time.Millisecond):
		}
	}

	if !f.runner.Cancel(job.ID) {
		t.Fatal("Cancel returned false for running job")
	}
	f.runner.Wait()

	final, _ := f.store.Get(job.ID)
	if final.Status != jobs.StatusError {
		t.Fatalf("expected canceled job to end in error, got %s", final.Status)
	}
	if !strings.Contains(strings.ToLower(final.Error), "cancel") {
		t.Fatalf("error should mention cancellation: %q", final.Error)
	}

	if f.runner.Cancel(job.ID) {
		t.Fatal("Cancel should return false for terminal job")
	}
}

func TestRunnerCancelUnknownJob(t *testing.T) {
	f := newFixture(t)
	if f.runner.Cancel("nope") {
		t.Fatal("Cancel should return false for unknown job")
	}
}

func TestRunnerProgressMonotonic(t *testing.T) {
	f := newFixture(t)
	job, err := f.runner.Start(validParams())
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	ch, cancel := f.store.Subscribe(job.ID)
	defer cancel()

	last := -1
	done := make(chan struct{})
	go func() {
		defer close(done)
		for range ch {
			snapshot, _ := f.store.Get(job.ID)
			if snapshot.Progress < last {
				t.Errorf("progress went backward: %d -> %d", last, snapshot.Progress)
			}
			last = snapshot.Progress
			if snapshot.Status.IsTerminal() {
				return
			}
		}
	}()

	f.runner.Wait()
	// Nudge the watcher in case the terminal notification was coalesced.
	select {
	case <-done:
	case <-time.After(time.Second):
	}

	final, _ := f.store.Get(job.ID)
	if final.Status != jobs.StatusComplete || final.Progress != 100 {
		t.Fatalf("unexpected final snapshot: %#v", final)
	}
}

func TestRunnerConcurrentJobsStayIsolated(t *testing.T) {
	f := newFixture(t)

	const n = 8
	ids := make([]string, n)
	for i := 0; i < n; i++ {
		job, err := f.runner.Start(jobs.Params{
			URL:  fmt.Sprintf("https://example.com/v%d", i),
			Lang: "es",
		})
		if err != nil {
			t.Fatalf("Start %d failed: %v", i, err)
		}
		ids[i] = job.ID
	}
	f.runner.Wait()

	seen := map[string]bool{}
	for i, id := range ids {
		final, ok := f.store.Get(id)
		if !ok {
			t.Fatalf("job %d missing", i)
		}
		if final.Status != jobs.StatusComplete {
			t.Fatalf("job %d failed: %s", i, final.Error)
		}
		if final.URL != fmt.Sprintf("https://example.com/v%d", i) {
			t.Fatalf("job %d carries wrong URL: %s", i, final.URL)
		}
		if seen[final.OutputFile] {
			t.Fatalf("output file collision: %s", final.OutputFile)
		}
		seen[final.OutputFile] = true
	}
	if len(f.history.recorded) != n {
		t.Fatalf("expected %d archived snapshots, got %d", n, len(f.history.recorded))
	}
}
