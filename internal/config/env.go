package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads a .env file from the working directory when present.
// Existing process environment always wins.
func LoadDotEnv() {
	// godotenv.Load never overwrites variables already set.
	_ = godotenv.Load()
}

// applyEnvOverrides layers secret material from the environment over
// whatever the config file provided. Keys in files are supported but the
// environment is the recommended home for them.
func (c *Config) applyEnvOverrides() {
	if v := strings.TrimSpace(os.Getenv("SUNO_API_KEY")); v != "" {
		c.Suno.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("GEMINI_API_KEY")); v != "" {
		c.Gemini.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("MIXDOWN_PUBLISH_TOKEN")); v != "" {
		c.Publish.AccessToken = v
	}
	if v := strings.TrimSpace(os.Getenv("MIXDOWN_NTFY_TOPIC")); v != "" {
		c.Notifications.NtfyTopic = v
	}
}
