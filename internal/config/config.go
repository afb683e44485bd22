package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	StagingDir string `toml:"staging_dir"`
	OutputDir  string `toml:"output_dir"`
	LogDir     string `toml:"log_dir"`
	Bind       string `toml:"bind"`
}

// Download contains configuration for the video/audio downloader.
type Download struct {
	Binary         string `toml:"binary"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	Retries        int    `toml:"retries"`
}

// Transcribe contains configuration for WhisperX transcription.
type Transcribe struct {
	Model       string `toml:"model"`
	CUDAEnabled bool   `toml:"cuda_enabled"`
}

// Translate contains configuration for the translation API.
type Translate struct {
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	Retries        int    `toml:"retries"`
}

// TTS contains configuration for speech synthesis.
type TTS struct {
	Binary  string `toml:"binary"`
	Retries int    `toml:"retries"`
	// PauseMinMillis/PauseMaxMillis pace synthesis calls so hosted voices
	// are not rate limited.
	PauseMinMillis int `toml:"pause_min_millis"`
	PauseMaxMillis int `toml:"pause_max_millis"`
}

// Chunking bounds how transcript segments merge into processing chunks.
type Chunking struct {
	MaxChunkSeconds   float64 `toml:"max_chunk_seconds"`
	MaxChunkChars     int     `toml:"max_chunk_chars"`
	SceneBreakSeconds float64 `toml:"scene_break_seconds"`
}

// Timeline controls audio fitting and drift tolerance.
type Timeline struct {
	MaxCompression   float64 `toml:"max_compression"`
	ToleranceSeconds float64 `toml:"tolerance_seconds"`
	SilenceSeconds   float64 `toml:"silence_seconds"`
	SampleRate       int     `toml:"sample_rate"`
}

// Workflow contains job streaming and default request parameters.
type Workflow struct {
	StreamPollMillis int    `toml:"stream_poll_millis"`
	DefaultLang      string `toml:"default_lang"`
	DefaultGender    string `toml:"default_gender"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for autodub.
type Config struct {
	Paths      Paths      `toml:"paths"`
	Download   Download   `toml:"download"`
	Transcribe Transcribe `toml:"transcribe"`
	Translate  Translate  `toml:"translate"`
	TTS        TTS        `toml:"tts"`
	Chunking   Chunking   `toml:"chunking"`
	Timeline   Timeline   `toml:"timeline"`
	Workflow   Workflow   `toml:"workflow"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/autodub/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The boolean reports
// whether a config file was actually found.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	loadEnvOverrides(&cfg)

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// loadEnvOverrides reads secrets from the environment, seeding it from a
// local .env file when present. Environment values win over file values so
// deployments can keep keys out of the config file.
func loadEnvOverrides(cfg *Config) {
	_ = godotenv.Load()
	if key := strings.TrimSpace(os.Getenv("AUTODUB_TRANSLATE_API_KEY")); key != "" {
		cfg.Translate.APIKey = key
	}
	if url := strings.TrimSpace(os.Getenv("AUTODUB_TRANSLATE_BASE_URL")); url != "" {
		cfg.Translate.BaseURL = url
	}
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("autodub.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the service needs at runtime.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StagingDir, c.Paths.OutputDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// JobDir returns the per-job working directory under the staging dir.
// Every job gets its own arena so concurrent jobs never share scratch files.
func (c *Config) JobDir(jobID string) string {
	return filepath.Join(c.Paths.StagingDir, jobID)
}

// FFmpegBinary returns the ffmpeg executable name.
func (c *Config) FFmpegBinary() string { return "ffmpeg" }

// FFprobeBinary returns the ffprobe executable name.
func (c *Config) FFprobeBinary() string { return "ffprobe" }

// ExpandPath resolves ~ and returns an absolute, cleaned path.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
