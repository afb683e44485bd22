package config

const (
	defaultStagingDir        = "~/.local/share/autodub/staging"
	defaultOutputDir         = "~/.local/share/autodub/output"
	defaultLogDir            = "~/.local/share/autodub/logs"
	defaultBind              = "127.0.0.1:8480"
	defaultDownloadBinary    = "yt-dlp"
	defaultDownloadTimeout   = 600
	defaultDownloadRetries   = 3
	defaultWhisperModel      = "small"
	defaultTranslateBaseURL  = "https://translate.googleapis.com/translate_a/single"
	defaultTranslateTimeout  = 30
	defaultTranslateRetries  = 3
	defaultTTSBinary         = "edge-tts"
	defaultTTSRetries        = 3
	defaultTTSPauseMinMillis = 500
	defaultTTSPauseMaxMillis = 1500
	defaultMaxChunkSeconds   = 20.0
	defaultMaxChunkChars     = 450
	defaultSceneBreakSecs    = 10.0
	defaultMaxCompression    = 2.0
	// One frame at 24 fps; the timeline invariant tolerance.
	defaultToleranceSeconds = 1.0 / 24.0
	defaultSilenceSeconds   = 300.0
	defaultSampleRate       = 24000
	defaultStreamPollMillis = 500
	defaultLang             = "es"
	defaultGender           = "female"
	defaultLogLevel         = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir: defaultStagingDir,
			OutputDir:  defaultOutputDir,
			LogDir:     defaultLogDir,
			Bind:       defaultBind,
		},
		Download: Download{
			Binary:         defaultDownloadBinary,
			TimeoutSeconds: defaultDownloadTimeout,
			Retries:        defaultDownloadRetries,
		},
		Transcribe: Transcribe{
			Model: defaultWhisperModel,
		},
		Translate: Translate{
			BaseURL:        defaultTranslateBaseURL,
			TimeoutSeconds: defaultTranslateTimeout,
			Retries:        defaultTranslateRetries,
		},
		TTS: TTS{
			Binary:         defaultTTSBinary,
			Retries:        defaultTTSRetries,
			PauseMinMillis: defaultTTSPauseMinMillis,
			PauseMaxMillis: defaultTTSPauseMaxMillis,
		},
		Chunking: Chunking{
			MaxChunkSeconds:   defaultMaxChunkSeconds,
			MaxChunkChars:     defaultMaxChunkChars,
			SceneBreakSeconds: defaultSceneBreakSecs,
		},
		Timeline: Timeline{
			MaxCompression:   defaultMaxCompression,
			ToleranceSeconds: defaultToleranceSeconds,
			SilenceSeconds:   defaultSilenceSeconds,
			SampleRate:       defaultSampleRate,
		},
		Workflow: Workflow{
			StreamPollMillis: defaultStreamPollMillis,
			DefaultLang:      defaultLang,
			DefaultGender:    defaultGender,
		},
		Logging: Logging{
			Level: defaultLogLevel,
		},
	}
}
