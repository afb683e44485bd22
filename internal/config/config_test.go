package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"autodub/internal/config"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, _, exists, err := config.Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if exists {
		t.Fatal("expected missing config file")
	}
	if cfg.Download.Binary != "yt-dlp" {
		t.Fatalf("unexpected download binary: %q", cfg.Download.Binary)
	}
	if cfg.Chunking.MaxChunkSeconds != 20.0 {
		t.Fatalf("unexpected max chunk seconds: %v", cfg.Chunking.MaxChunkSeconds)
	}
	if cfg.Timeline.MaxCompression != 2.0 {
		t.Fatalf("unexpected max compression: %v", cfg.Timeline.MaxCompression)
	}
}

func TestLoadParsesAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
staging_dir = "` + filepath.Join(dir, "staging") + `"
output_dir = "` + filepath.Join(dir, "out") + `"
log_dir = "` + filepath.Join(dir, "logs") + `"

[workflow]
default_lang = "FR"
default_gender = "MALE"

[chunking]
max_chunk_seconds = -5.0
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected config at %s, got %s exists=%v", path, resolved, exists)
	}
	if cfg.Workflow.DefaultLang != "fr" {
		t.Fatalf("lang not lowercased: %q", cfg.Workflow.DefaultLang)
	}
	if cfg.Workflow.DefaultGender != "male" {
		t.Fatalf("gender not lowercased: %q", cfg.Workflow.DefaultGender)
	}
	if cfg.Chunking.MaxChunkSeconds != 20.0 {
		t.Fatalf("invalid max_chunk_seconds should reset to default, got %v", cfg.Chunking.MaxChunkSeconds)
	}
}

func TestLoadRejectsBadGender(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[workflow]\ndefault_gender = \"robot\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(path); err == nil || !strings.Contains(err.Error(), "default_gender") {
		t.Fatalf("expected gender validation error, got %v", err)
	}
}

func TestEnvOverridesTranslateKey(t *testing.T) {
	t.Setenv("AUTODUB_TRANSLATE_API_KEY", "env-secret")
	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Translate.APIKey != "env-secret" {
		t.Fatalf("expected env API key, got %q", cfg.Translate.APIKey)
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	if _, _, exists, err := config.Load(path); err != nil || !exists {
		t.Fatalf("sample config should load cleanly: exists=%v err=%v", exists, err)
	}
}

func TestJobDirIsJobScoped(t *testing.T) {
	cfg := config.Default()
	a := cfg.JobDir("job-a")
	b := cfg.JobDir("job-b")
	if a == b {
		t.Fatal("job dirs must differ per job")
	}
	if filepath.Dir(a) != filepath.Dir(b) {
		t.Fatal("job dirs should share the staging root")
	}
}
