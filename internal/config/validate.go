package config

import (
	"errors"
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	var err error
	if c.Paths.StagingDir, err = expandPath(valueOr(c.Paths.StagingDir, defaultStagingDir)); err != nil {
		return err
	}
	if c.Paths.OutputDir, err = expandPath(valueOr(c.Paths.OutputDir, defaultOutputDir)); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(valueOr(c.Paths.LogDir, defaultLogDir)); err != nil {
		return err
	}
	c.Paths.Bind = valueOr(c.Paths.Bind, defaultBind)
	c.Download.Binary = valueOr(c.Download.Binary, defaultDownloadBinary)
	c.Translate.BaseURL = strings.TrimSpace(c.Translate.BaseURL)
	c.TTS.Binary = valueOr(c.TTS.Binary, defaultTTSBinary)
	c.Workflow.DefaultLang = strings.ToLower(valueOr(c.Workflow.DefaultLang, defaultLang))
	c.Workflow.DefaultGender = strings.ToLower(valueOr(c.Workflow.DefaultGender, defaultGender))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(valueOr(c.Logging.Level, defaultLogLevel))

	if c.Download.TimeoutSeconds <= 0 {
		c.Download.TimeoutSeconds = defaultDownloadTimeout
	}
	if c.Download.Retries <= 0 {
		c.Download.Retries = defaultDownloadRetries
	}
	if c.Translate.TimeoutSeconds <= 0 {
		c.Translate.TimeoutSeconds = defaultTranslateTimeout
	}
	if c.Translate.Retries <= 0 {
		c.Translate.Retries = defaultTranslateRetries
	}
	if c.TTS.Retries <= 0 {
		c.TTS.Retries = defaultTTSRetries
	}
	if c.TTS.PauseMinMillis < 0 {
		c.TTS.PauseMinMillis = 0
	}
	if c.TTS.PauseMaxMillis < c.TTS.PauseMinMillis {
		c.TTS.PauseMaxMillis = c.TTS.PauseMinMillis
	}
	if c.Chunking.MaxChunkSeconds <= 0 {
		c.Chunking.MaxChunkSeconds = defaultMaxChunkSeconds
	}
	if c.Chunking.MaxChunkChars <= 0 {
		c.Chunking.MaxChunkChars = defaultMaxChunkChars
	}
	if c.Chunking.SceneBreakSeconds <= 0 {
		c.Chunking.SceneBreakSeconds = defaultSceneBreakSecs
	}
	if c.Timeline.MaxCompression < 1 {
		c.Timeline.MaxCompression = defaultMaxCompression
	}
	if c.Timeline.ToleranceSeconds <= 0 {
		c.Timeline.ToleranceSeconds = defaultToleranceSeconds
	}
	if c.Timeline.SilenceSeconds <= 0 {
		c.Timeline.SilenceSeconds = defaultSilenceSeconds
	}
	if c.Timeline.SampleRate <= 0 {
		c.Timeline.SampleRate = defaultSampleRate
	}
	if c.Workflow.StreamPollMillis <= 0 {
		c.Workflow.StreamPollMillis = defaultStreamPollMillis
	}
	return nil
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	var problems []string
	if strings.TrimSpace(c.Paths.StagingDir) == "" {
		problems = append(problems, "paths.staging_dir must be set")
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		problems = append(problems, "paths.output_dir must be set")
	}
	if strings.TrimSpace(c.Paths.Bind) == "" {
		problems = append(problems, "paths.bind must be set")
	}
	switch c.Workflow.DefaultGender {
	case "male", "female":
	default:
		problems = append(problems, fmt.Sprintf("workflow.default_gender %q must be male or female", c.Workflow.DefaultGender))
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging.format %q must be console or json", c.Logging.Format))
	}
	if len(problems) > 0 {
		return errors.New("invalid configuration: " + strings.Join(problems, "; "))
	}
	return nil
}

func valueOr(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}
