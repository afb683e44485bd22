package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"autodub/internal/chunking"
	"autodub/internal/config"
	"autodub/internal/deps"
	"autodub/internal/jobs"
	"autodub/internal/language"
	"autodub/internal/logging"
	"autodub/internal/render"
	"autodub/internal/services"
	"autodub/internal/services/translate"
	"autodub/internal/services/ytdlp"
	"autodub/internal/timeline"
)

// Downloader fetches the source video and audio for a job.
type Downloader interface {
	Download(ctx context.Context, url, workDir string) (ytdlp.Result, error)
}

// Transcriber produces transcript segments from an audio file.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath, workDir string, gpu bool) ([]chunking.Segment, error)
}

// Translator converts chunk texts to the target language.
type Translator interface {
	TranslateBatch(ctx context.Context, texts []string, targetLang string) (translate.Result, error)
}

// Synthesizer renders text as speech and paces calls between chunks.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, lang, gender, outPath string) error
	Pace(ctx context.Context)
}

// Renderer executes the ffmpeg side: probing, fitting, and the final mux.
type Renderer interface {
	EnsureSilenceBase(ctx context.Context, workDir string) (string, error)
	FitClip(ctx context.Context, clipPath string, slotDuration float64) (string, bool, error)
	ProbeDuration(ctx context.Context, path string) (float64, error)
	Render(ctx context.Context, videoPath, concatPath, subtitlePath, outPath string) error
}

// Archiver persists terminal job snapshots.
type Archiver interface {
	Record(ctx context.Context, job jobs.Job) error
}

// Deps bundles the stage collaborators a Runner drives.
type Deps struct {
	Downloader  Downloader
	Transcriber Transcriber
	Translator  Translator
	Synthesizer Synthesizer
	Renderer    Renderer
	History     Archiver // optional
}

// Runner owns job execution: one goroutine per job, stages strictly
// forward, all observable state flowing through the job store.
type Runner struct {
	cfg    *config.Config
	store  *jobs.Store
	logger *slog.Logger
	deps   Deps

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	wg      sync.WaitGroup

	// preflight is swappable so tests do not need real binaries on PATH.
	preflight func() []string
}

func NewRunner(cfg *config.Config, store *jobs.Store, logger *slog.Logger, d Deps) *Runner {
	r := &Runner{
		cfg:     cfg,
		store:   store,
		logger:  logging.NewComponentLogger(logger, "pipeline"),
		deps:    d,
		cancels: make(map[string]context.CancelFunc),
	}
	r.preflight = func() []string {
		return deps.MissingRequired(deps.CheckBinaries(deps.Requirements(cfg)))
	}
	return r
}

// Start validates the request, registers a queued job, and launches its
// worker goroutine.
func (r *Runner) Start(params jobs.Params) (jobs.Job, error) {
	if err := ytdlp.ValidateURL(params.URL); err != nil {
		return jobs.Job{}, err
	}
	params.Lang = strings.TrimSpace(params.Lang)
	if params.Lang == "" {
		params.Lang = r.cfg.Workflow.DefaultLang
	}
	if !language.Supported(params.Lang) {
		return jobs.Job{}, services.Wrap(services.ErrValidation, "init", "validate request", fmt.Sprintf("Unsupported target language %q", params.Lang), nil)
	}
	params.Gender = strings.ToLower(strings.TrimSpace(params.Gender))
	if params.Gender == "" {
		params.Gender = r.cfg.Workflow.DefaultGender
	}
	if !jobs.ValidGender(params.Gender) {
		return jobs.Job{}, services.Wrap(services.ErrValidation, "init", "validate request", fmt.Sprintf("Unsupported voice gender %q", params.Gender), nil)
	}

	job := r.store.Create(params)

	ctx, cancel := context.WithCancel(context.Background())
	r.mu.Lock()
	r.cancels[job.ID] = cancel
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.release(job.ID)
		r.execute(ctx, job.ID)
	}()
	return job, nil
}

// Cancel requests cancellation of a running job. Returns false when the job
// is unknown or already terminal.
func (r *Runner) Cancel(id string) bool {
	job, ok := r.store.Get(id)
	if !ok || job.Status.IsTerminal() {
		return false
	}
	r.mu.Lock()
	cancel, ok := r.cancels[id]
	r.mu.Unlock()
	if !ok {
		return false
	}
	cancel()
	return true
}

// Wait blocks until every launched job has reached a terminal state.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) release(id string) {
	r.mu.Lock()
	if cancel, ok := r.cancels[id]; ok {
		cancel()
		delete(r.cancels, id)
	}
	r.mu.Unlock()
}

func (r *Runner) execute(ctx context.Context, jobID string) {
	ctx = services.WithJobID(ctx, jobID)
	logger := r.logger.With(logging.String(logging.FieldJobID, jobID))
	job, ok := r.store.Get(jobID)
	if !ok {
		return
	}

	workDir := r.cfg.JobDir(jobID)
	defer r.finish(jobID, workDir, logger)

	// init 0-4
	r.progress(jobID, jobs.StageInit, 0, "Initializing pipeline...")
	r.store.Update(jobID, func(j *jobs.Job) { j.Status = jobs.StatusRunning })
	if missing := r.preflight(); len(missing) > 0 {
		r.fail(jobID, logger, services.Wrap(services.ErrConfiguration, "init", "preflight", fmt.Sprintf("Missing dependencies: %s", strings.Join(missing, ", ")), nil))
		return
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		r.fail(jobID, logger, services.Wrap(services.ErrConfiguration, "init", "work dir", "Failed to create job work directory", err))
		return
	}
	device := "CPU"
	if job.GPU {
		if r.cfg.Transcribe.CUDAEnabled {
			device = "CUDA"
		} else {
			r.progress(jobID, jobs.StageInit, 2, "CUDA not available, using CPU instead...")
		}
	}
	r.store.Update(jobID, func(j *jobs.Job) { j.Device = device })

	// download 5-15
	if r.canceled(ctx, jobID, logger) {
		return
	}
	r.progress(jobID, jobs.StageDownload, 5, fmt.Sprintf("Downloading video and audio... [%s]", device))
	media, err := r.deps.Downloader.Download(stageContext(ctx, jobs.StageDownload), job.URL, workDir)
	if err != nil {
		r.fail(jobID, logger, err)
		return
	}
	r.progress(jobID, jobs.StageDownload, 15, "Download complete!")

	// transcribe 20-35
	if r.canceled(ctx, jobID, logger) {
		return
	}
	r.progress(jobID, jobs.StageTranscribe, 20, "Transcribing speech...")
	segments, err := r.deps.Transcriber.Transcribe(stageContext(ctx, jobs.StageTranscribe), media.AudioPath, workDir, device == "CUDA")
	if err != nil {
		r.fail(jobID, logger, err)
		return
	}
	r.progress(jobID, jobs.StageTranscribe, 35, fmt.Sprintf("Transcription complete: %d segments", len(segments)))

	// chunk 40-45
	if r.canceled(ctx, jobID, logger) {
		return
	}
	r.progress(jobID, jobs.StageChunk, 40, "Optimizing audio chunks...")
	chunks := chunking.Schedule(segments, chunking.Limits{
		MaxDuration: r.cfg.Chunking.MaxChunkSeconds,
		MaxChars:    r.cfg.Chunking.MaxChunkChars,
		SceneBreak:  r.cfg.Chunking.SceneBreakSeconds,
	})
	if len(chunks) == 0 {
		r.fail(jobID, logger, services.Wrap(services.ErrValidation, "chunk", "schedule", "No usable speech found in transcript", nil))
		return
	}
	r.progress(jobID, jobs.StageChunk, 45, fmt.Sprintf("Optimized into %d chunks", len(chunks)))

	// translate 50-60
	if r.canceled(ctx, jobID, logger) {
		return
	}
	r.progress(jobID, jobs.StageTranslate, 50, fmt.Sprintf("Translating to %s...", strings.ToUpper(job.Lang)))
	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}
	translated, err := r.deps.Translator.TranslateBatch(stageContext(ctx, jobs.StageTranslate), texts, job.Lang)
	if err != nil {
		r.fail(jobID, logger, err)
		return
	}
	for i := range chunks {
		chunks[i].TranslatedText = translated.Texts[i]
	}
	translateMsg := "Translation complete!"
	if translated.Fallbacks > 0 {
		translateMsg = fmt.Sprintf("Translation complete (%d of %d kept source text)", translated.Fallbacks, len(chunks))
	}
	r.progress(jobID, jobs.StageTranslate, 60, translateMsg)

	// tts 65-85
	if r.canceled(ctx, jobID, logger) {
		return
	}
	r.progress(jobID, jobs.StageTTS, 65, fmt.Sprintf("Generating %s voice...", job.Gender))
	failed := r.synthesizeChunks(stageContext(ctx, jobs.StageTTS), jobID, &job, chunks, workDir, logger)
	if r.canceled(ctx, jobID, logger) {
		return
	}
	if failed == len(chunks) {
		r.fail(jobID, logger, services.Wrap(services.ErrExternalTool, "tts", "synthesize", "Speech synthesis failed for every chunk", nil))
		return
	}
	r.progress(jobID, jobs.StageTTS, 85, fmt.Sprintf("TTS complete (%d/%d successful)", len(chunks)-failed, len(chunks)))

	// render 88-100
	if r.canceled(ctx, jobID, logger) {
		return
	}
	r.progress(jobID, jobs.StageRender, 88, "Rendering final video...")
	outputFile, err := r.render(stageContext(ctx, jobs.StageRender), job, chunks, media.VideoPath, workDir)
	if err != nil {
		r.fail(jobID, logger, err)
		return
	}

	sizeMsg := "Done!"
	if info, statErr := os.Stat(outputFile); statErr == nil {
		sizeMsg = fmt.Sprintf("Done! File size: %.1f MB", float64(info.Size())/1_048_576)
	}
	r.store.Update(jobID, func(j *jobs.Job) { j.Complete(outputFile, sizeMsg) })
	logger.Info("job complete",
		logging.String("output", outputFile),
		logging.String(logging.FieldEventType, "job_complete"),
	)
}

// stageContext annotates the context so collaborators can derive job and
// stage log fields without threading them explicitly.
func stageContext(ctx context.Context, stage jobs.Stage) context.Context {
	return services.WithStage(ctx, string(stage))
}

// synthesizeChunks runs synthesis and slot fitting per chunk. Failures skip
// the chunk (silence will fill its slot) and are counted, not fatal.
func (r *Runner) synthesizeChunks(ctx context.Context, jobID string, job *jobs.Job, chunks []chunking.Chunk, workDir string, logger *slog.Logger) int {
	failed := 0
	for i := range chunks {
		if ctx.Err() != nil {
			return failed
		}
		clipPath := filepath.Join(workDir, fmt.Sprintf("chunk_%04d.mp3", chunks[i].Index))
		err := r.deps.Synthesizer.Synthesize(ctx, chunks[i].TranslatedText, job.Lang, job.Gender, clipPath)
		if err == nil {
			var fitted string
			var imperfect bool
			fitted, imperfect, err = r.deps.Renderer.FitClip(ctx, clipPath, chunks[i].Duration())
			if err == nil {
				chunks[i].ProcessedAudio = fitted
				chunks[i].ImperfectFit = imperfect
			}
		}
		if err != nil {
			failed++
			logger.Warn("chunk synthesis skipped",
				logging.Int("chunk", chunks[i].Index),
				logging.Error(err),
				logging.String(logging.FieldEventType, "tts_chunk_skipped"),
			)
		}
		r.deps.Synthesizer.Pace(ctx)

		progress := 65 + (i+1)*20/len(chunks)
		r.progress(jobID, jobs.StageTTS, progress, fmt.Sprintf("Voice synthesis: %d/%d chunks", i+1, len(chunks)))
	}
	return failed
}

func (r *Runner) render(ctx context.Context, job jobs.Job, chunks []chunking.Chunk, videoPath, workDir string) (string, error) {
	videoDuration, err := r.deps.Renderer.ProbeDuration(ctx, videoPath)
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, "render", "probe video", "Failed to measure source video", err)
	}
	silencePath, err := r.deps.Renderer.EnsureSilenceBase(ctx, workDir)
	if err != nil {
		return "", err
	}
	entries, err := timeline.Build(chunks, videoDuration, r.cfg.Timeline.ToleranceSeconds)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "render", "timeline", "Failed to assemble timeline", err)
	}

	concatPath := filepath.Join(workDir, "concat_list.txt")
	if err := render.WriteConcatFile(entries, silencePath, r.cfg.Timeline.SilenceSeconds, concatPath); err != nil {
		return "", err
	}

	subtitlePath := ""
	if job.Subtitle {
		subtitlePath = filepath.Join(workDir, "subtitles.srt")
		if err := render.WriteSRT(chunks, subtitlePath); err != nil {
			return "", err
		}
	}

	outputFile := r.outputPath(job)
	if err := r.deps.Renderer.Render(ctx, videoPath, concatPath, subtitlePath, outputFile); err != nil {
		return "", err
	}
	return outputFile, nil
}

func (r *Runner) outputPath(job jobs.Job) string {
	suffix := ""
	if job.Subtitle {
		suffix = "_sub"
	}
	name := fmt.Sprintf("dubbed_%s_%s%s_%s.mp4", job.Lang, job.Gender, suffix, job.ID)
	return filepath.Join(r.cfg.Paths.OutputDir, name)
}

func (r *Runner) progress(jobID string, stage jobs.Stage, progress int, message string) {
	r.store.Update(jobID, func(j *jobs.Job) { j.SetProgress(stage, progress, message) })
}

func (r *Runner) fail(jobID string, logger *slog.Logger, err error) {
	logger.Error("job failed",
		logging.Error(err),
		logging.String(logging.FieldEventType, "job_failed"),
	)
	r.store.Update(jobID, func(j *jobs.Job) { j.Fail(err.Error()) })
}

// canceled checks the job's context at a stage boundary and records the
// cancellation as the job's terminal error.
func (r *Runner) canceled(ctx context.Context, jobID string, logger *slog.Logger) bool {
	if ctx.Err() == nil {
		return false
	}
	r.fail(jobID, logger, services.Wrap(services.ErrCanceled, "", "", "Job canceled by request", nil))
	return true
}

// finish archives the terminal snapshot and tears down the work dir.
func (r *Runner) finish(jobID, workDir string, logger *slog.Logger) {
	job, ok := r.store.Get(jobID)
	if ok && !job.Status.IsTerminal() {
		// The worker returned without reaching a terminal state; treat it
		// as an internal failure so no job is left running forever.
		job, _ = r.store.Update(jobID, func(j *jobs.Job) { j.Fail("Pipeline exited unexpectedly") })
	}
	if r.deps.History != nil && ok {
		if err := r.deps.History.Record(context.Background(), job); err != nil {
			logger.Warn("failed to archive job snapshot",
				logging.Error(err),
				logging.String(logging.FieldEventType, "history_write_failed"),
			)
		}
	}
	if err := os.RemoveAll(workDir); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("failed to remove work dir",
			logging.String("work_dir", workDir),
			logging.Error(err),
		)
	}
}
