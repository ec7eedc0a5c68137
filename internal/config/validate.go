package config

import (
	"fmt"
	"strings"
)

// ValidationError aggregates everything wrong with a configuration so the
// user can fix the file in one pass.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 1 {
		return "invalid configuration: " + e.Problems[0]
	}
	return fmt.Sprintf("invalid configuration (%d problems):\n  - %s",
		len(e.Problems), strings.Join(e.Problems, "\n  - "))
}

// Validate checks the configuration for missing or contradictory values.
func (c *Config) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if c.Paths.OutputDir == "" {
		add("paths.output_dir is required")
	}
	if c.Paths.TempDir == "" {
		add("paths.temp_dir is required")
	}

	if c.Suno.APIKey == "" {
		add("suno.api_key is required (set SUNO_API_KEY or suno.api_key)")
	}
	if c.Suno.BaseURL == "" {
		add("suno.base_url is required")
	}
	if c.Suno.PollIntervalSeconds <= 0 {
		add("suno.poll_interval_seconds must be positive, got %d", c.Suno.PollIntervalSeconds)
	}
	if c.Suno.JobTimeoutSeconds <= 0 {
		add("suno.job_timeout_seconds must be positive, got %d", c.Suno.JobTimeoutSeconds)
	}
	if c.Suno.JobTimeoutSeconds > 0 && c.Suno.PollIntervalSeconds > c.Suno.JobTimeoutSeconds {
		add("suno.poll_interval_seconds (%d) exceeds suno.job_timeout_seconds (%d)",
			c.Suno.PollIntervalSeconds, c.Suno.JobTimeoutSeconds)
	}
	if c.Suno.MaxConcurrent <= 0 {
		add("suno.max_concurrent must be positive, got %d", c.Suno.MaxConcurrent)
	}

	if c.Gemini.TimeoutSeconds <= 0 {
		add("gemini.timeout_seconds must be positive, got %d", c.Gemini.TimeoutSeconds)
	}

	switch c.Mixer.Transition {
	case "cut", "crossfade":
	default:
		add("mixer.transition must be \"cut\" or \"crossfade\", got %q", c.Mixer.Transition)
	}
	if c.Mixer.Transition == "crossfade" && c.Mixer.CrossfadeDurationMs <= 0 {
		add("mixer.crossfade_duration_ms must be positive when transition is crossfade, got %d",
			c.Mixer.CrossfadeDurationMs)
	}
	if c.Mixer.TargetLoudnessDBFS > 0 {
		add("mixer.target_loudness_dbfs must be zero or negative, got %.1f", c.Mixer.TargetLoudnessDBFS)
	}
	if c.Mixer.OutputFormat == "" {
		add("mixer.output_format is required")
	}
	if c.Mixer.MaxDownloads <= 0 {
		add("mixer.max_downloads must be positive, got %d", c.Mixer.MaxDownloads)
	}

	if c.Video.FPS <= 0 {
		add("video.fps must be positive, got %d", c.Video.FPS)
	}
	if c.Video.CRF < 0 || c.Video.CRF > 51 {
		add("video.crf must be between 0 and 51, got %d", c.Video.CRF)
	}
	if _, _, err := ParseResolution(c.Video.Resolution); err != nil {
		add("video.resolution: %v", err)
	}
	if c.Video.FadeInSecs < 0 {
		add("video.fade_in_seconds must not be negative, got %d", c.Video.FadeInSecs)
	}

	if c.Pipeline.MinTracks < 1 {
		add("pipeline.min_tracks must be at least 1, got %d", c.Pipeline.MinTracks)
	}

	if c.Publish.Enabled {
		if c.Publish.Endpoint == "" {
			add("publish.endpoint is required when publish is enabled")
		}
		if c.Publish.AccessToken == "" {
			add("publish.access_token is required when publish is enabled (set MIXDOWN_PUBLISH_TOKEN)")
		}
		switch c.Publish.Privacy {
		case "public", "unlisted", "private":
		default:
			add("publish.privacy must be public, unlisted, or private, got %q", c.Publish.Privacy)
		}
	}

	switch c.Logging.Format {
	case "console", "json":
	default:
		add("logging.format must be \"console\" or \"json\", got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		add("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// ParseResolution splits a WxH resolution string into its dimensions.
func ParseResolution(resolution string) (width, height int, err error) {
	if _, scanErr := fmt.Sscanf(resolution, "%dx%d", &width, &height); scanErr != nil {
		return 0, 0, fmt.Errorf("expected WIDTHxHEIGHT, got %q", resolution)
	}
	if width <= 0 || height <= 0 {
		return 0, 0, fmt.Errorf("dimensions must be positive, got %q", resolution)
	}
	return width, height, nil
}
