package gemini

import (
	"os"
	"time"
)

const (
	DefaultBaseURL    = "https://generativelanguage.googleapis.com"
	DefaultVideoModel = "veo-3.1-fast-generate-preview"
	DefaultResolution = "720p"
	DefaultTimeout    = 2 * time.Minute
)

type Config struct {
	APIKey     string
	BaseURL    string
	VideoModel string
	Resolution string
	Timeout    time.Duration
}

// ConfigFromEnv reads GEMINI_API_KEY (or API_KEY), GEMINI_BASE_URL and
// GEMINI_VIDEO_MODEL, filling in defaults for anything unset.
func ConfigFromEnv() Config {
	key := os.Getenv("GEMINI_API_KEY")
	if key == "" {
		key = os.Getenv("API_KEY")
	}
	return Config{
		APIKey:     key,
		BaseURL:    os.Getenv("GEMINI_BASE_URL"),
		VideoModel: os.Getenv("GEMINI_VIDEO_MODEL"),
	}.withDefaults()
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.VideoModel == "" {
		c.VideoModel = DefaultVideoModel
	}
	if c.Resolution == "" {
		c.Resolution = DefaultResolution
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}
