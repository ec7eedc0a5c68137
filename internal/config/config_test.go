package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("SUNO_API_KEY", "test-key")

	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Fatal("expected exists=false for missing file")
	}
	if resolved != path {
		t.Errorf("resolved path %q, want %q", resolved, path)
	}
	if cfg.Suno.APIKey != "test-key" {
		t.Errorf("api key not taken from environment: %q", cfg.Suno.APIKey)
	}
	if cfg.Suno.PollIntervalSeconds != 30 || cfg.Suno.JobTimeoutSeconds != 600 {
		t.Errorf("unexpected polling defaults: %d/%d",
			cfg.Suno.PollIntervalSeconds, cfg.Suno.JobTimeoutSeconds)
	}
	if cfg.Suno.MaxConcurrent != 10 {
		t.Errorf("max_concurrent default = %d", cfg.Suno.MaxConcurrent)
	}
	if cfg.Mixer.MaxDownloads != 5 {
		t.Errorf("max_downloads default = %d", cfg.Mixer.MaxDownloads)
	}
	if cfg.Mixer.Transition != "cut" {
		t.Errorf("transition default = %q", cfg.Mixer.Transition)
	}
	if cfg.Mixer.TargetLoudnessDBFS != -14.0 {
		t.Errorf("target loudness default = %v", cfg.Mixer.TargetLoudnessDBFS)
	}
}

func TestLoadFileOverridesAndEnvWins(t *testing.T) {
	t.Setenv("SUNO_API_KEY", "env-key")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[suno]
api_key = "file-key"
poll_interval_seconds = 5
job_timeout_seconds = 60

[mixer]
transition = "Crossfade"
crossfade_duration_ms = 1500
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, _, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists {
		t.Fatal("expected exists=true")
	}
	if cfg.Suno.APIKey != "env-key" {
		t.Errorf("environment should win over file, got %q", cfg.Suno.APIKey)
	}
	if cfg.Suno.PollIntervalSeconds != 5 {
		t.Errorf("poll interval = %d", cfg.Suno.PollIntervalSeconds)
	}
	if cfg.Mixer.Transition != "crossfade" {
		t.Errorf("transition not normalized: %q", cfg.Mixer.Transition)
	}
	if cfg.Mixer.CrossfadeDurationMs != 1500 {
		t.Errorf("crossfade duration = %d", cfg.Mixer.CrossfadeDurationMs)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Default()
	cfg.Suno.APIKey = "k"

	cfg.Mixer.Transition = "fade"
	cfg.Suno.PollIntervalSeconds = 700
	cfg.Pipeline.MinTracks = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation failure")
	}
	msg := err.Error()
	for _, want := range []string{"mixer.transition", "poll_interval_seconds", "min_tracks"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error missing %q: %s", want, msg)
		}
	}
}

func TestValidateRequiresAPIKey(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected failure without api key")
	} else if !strings.Contains(err.Error(), "suno.api_key") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateCrossfadeNeedsDuration(t *testing.T) {
	cfg := Default()
	cfg.Suno.APIKey = "k"
	cfg.Mixer.Transition = "crossfade"
	cfg.Mixer.CrossfadeDurationMs = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected failure for zero crossfade duration")
	}
}

func TestValidatePublishRequiresEndpoint(t *testing.T) {
	cfg := Default()
	cfg.Suno.APIKey = "k"
	cfg.Publish.Enabled = true
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected failure for enabled publish without endpoint")
	}
	if !strings.Contains(err.Error(), "publish.endpoint") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestParseResolution(t *testing.T) {
	w, h, err := ParseResolution("1920x1080")
	if err != nil || w != 1920 || h != 1080 {
		t.Fatalf("got %dx%d, %v", w, h, err)
	}
	if _, _, err := ParseResolution("widescreen"); err == nil {
		t.Fatal("expected error for malformed resolution")
	}
}

func TestExpandPathTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	got, err := ExpandPath("~/mixdown")
	if err != nil {
		t.Fatal(err)
	}
	if got != filepath.Join(home, "mixdown") {
		t.Errorf("got %q", got)
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	t.Setenv("SUNO_API_KEY", "k")

	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	if _, _, exists, err := Load(path); err != nil || !exists {
		t.Fatalf("sample config should load cleanly: exists=%v err=%v", exists, err)
	}
}
