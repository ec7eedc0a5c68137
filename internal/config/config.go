package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	OutputDir string `toml:"output_dir"`
	TempDir   string `toml:"temp_dir"`
	LogDir    string `toml:"log_dir"`
	AssetsDir string `toml:"assets_dir"`
}

// Suno contains configuration for the music generation service.
type Suno struct {
	APIKey              string `toml:"api_key"`
	BaseURL             string `toml:"base_url"`
	CallbackURL         string `toml:"callback_url"`
	Model               string `toml:"model"`
	Instrumental        bool   `toml:"instrumental"`
	PollIntervalSeconds int    `toml:"poll_interval_seconds"`
	JobTimeoutSeconds   int    `toml:"job_timeout_seconds"`
	MaxConcurrent       int    `toml:"max_concurrent"`
	// ResubmitFailed controls whether jobs that land in the transient
	// failed state are resubmitted as new jobs instead of re-polled.
	// Resubmission creates duplicate billed jobs, so it defaults to off.
	ResubmitFailed bool `toml:"resubmit_failed"`
}

// Gemini contains configuration for the enrichment service used for
// thumbnail and title generation.
type Gemini struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	TextModel      string `toml:"text_model"`
	ImageModel     string `toml:"image_model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Mixer contains configuration for audio assembly.
type Mixer struct {
	Transition          string  `toml:"transition"` // "cut" or "crossfade"
	CrossfadeDurationMs int     `toml:"crossfade_duration_ms"`
	TargetLoudnessDBFS  float64 `toml:"target_loudness_dbfs"`
	OutputFormat        string  `toml:"output_format"`
	OutputBitrate       string  `toml:"output_bitrate"`
	Warmth              bool    `toml:"warmth"`
	MaxDownloads        int     `toml:"max_downloads"`
}

// Video contains configuration for the final video encode.
type Video struct {
	Resolution   string `toml:"resolution"`
	FPS          int    `toml:"fps"`
	Codec        string `toml:"codec"`
	Preset       string `toml:"preset"`
	CRF          int    `toml:"crf"`
	AudioCodec   string `toml:"audio_codec"`
	AudioBitrate string `toml:"audio_bitrate"`
	FadeInSecs   int    `toml:"fade_in_seconds"`
}

// Overlay contains configuration for the publish-thumbnail text overlay.
type Overlay struct {
	Enabled  bool   `toml:"enabled"`
	FontFile string `toml:"font_file"`
	FontSize int    `toml:"font_size"`
	Color    string `toml:"color"`
}

// Pipeline contains run-level behavior toggles.
type Pipeline struct {
	CleanupTemp bool `toml:"cleanup_temp"`
	// MinTracks is the smallest surviving track count considered a
	// viable mix; below it the run fails.
	MinTracks int `toml:"min_tracks"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Publish contains configuration for the optional publish step.
type Publish struct {
	Enabled     bool   `toml:"enabled"`
	Endpoint    string `toml:"endpoint"`
	AccessToken string `toml:"access_token"`
	Category    string `toml:"category"`
	Privacy     string `toml:"privacy"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for mixdown.
//
// Configuration sections by subsystem:
//   - Paths: output, temp, log, and pre-generated asset directories
//   - Suno: music generation service connection and polling budgets
//   - Gemini: enrichment service for titles and thumbnails
//   - Mixer: loudness target, transition policy, export format
//   - Video: still-image video encode parameters
//   - Overlay: publish-thumbnail text overlay
//   - Pipeline: temp cleanup and viability threshold
//   - Notifications: ntfy push notification settings
//   - Publish: optional upload target
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Suno          Suno          `toml:"suno"`
	Gemini        Gemini        `toml:"gemini"`
	Mixer         Mixer         `toml:"mixer"`
	Video         Video         `toml:"video"`
	Overlay       Overlay       `toml:"overlay"`
	Pipeline      Pipeline      `toml:"pipeline"`
	Notifications Notifications `toml:"notifications"`
	Publish       Publish       `toml:"publish"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/mixdown/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and environment overrides applied.
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

	cfg.applyEnvOverrides()

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
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

	projectPath, err := filepath.Abs("mixdown.toml")
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

// EnsureDirectories creates the directories a run needs.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputDir, c.Paths.TempDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable name.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable name.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
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

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
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
