package config

import "strings"

// normalize expands paths and canonicalizes string fields. It runs after
// decode and env overlay, before validation.
func (c *Config) normalize() error {
	pathFields := []*string{
		&c.Paths.OutputDir,
		&c.Paths.TempDir,
		&c.Paths.LogDir,
		&c.Paths.AssetsDir,
		&c.Overlay.FontFile,
	}
	for _, field := range pathFields {
		if *field == "" {
			continue
		}
		expanded, err := expandPath(*field)
		if err != nil {
			return err
		}
		*field = expanded
	}

	c.Suno.APIKey = strings.TrimSpace(c.Suno.APIKey)
	c.Suno.BaseURL = strings.TrimRight(strings.TrimSpace(c.Suno.BaseURL), "/")
	c.Suno.Model = strings.TrimSpace(c.Suno.Model)
	c.Gemini.APIKey = strings.TrimSpace(c.Gemini.APIKey)
	c.Gemini.BaseURL = strings.TrimRight(strings.TrimSpace(c.Gemini.BaseURL), "/")

	c.Mixer.Transition = strings.ToLower(strings.TrimSpace(c.Mixer.Transition))
	c.Mixer.OutputFormat = strings.ToLower(strings.TrimSpace(c.Mixer.OutputFormat))
	c.Publish.Privacy = strings.ToLower(strings.TrimSpace(c.Publish.Privacy))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))

	return nil
}
