package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// DefaultAPIBaseURL is the hardcoded fallback when neither the settings
// file nor the environment names a backend.
const DefaultAPIBaseURL = "http://localhost:8000"

const (
	defaultTitle        = "Requiem"
	defaultSubtitle     = "The AI That Never Sleeps."
	defaultHistoryLimit = 100
)

// APIConfig holds backend connection settings
type APIConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

// FrontendConfig holds optional display text
type FrontendConfig struct {
	Title    string `mapstructure:"title"`
	Subtitle string `mapstructure:"subtitle"`
}

// ChatConfig holds chat fetch settings
type ChatConfig struct {
	HistoryLimit int `mapstructure:"history_limit"`
}

// Config mirrors the shared settings.json document
type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Frontend FrontendConfig `mapstructure:"frontend"`
	Chat     ChatConfig     `mapstructure:"chat"`
}

// Default returns the built-in configuration used when no settings file
// can be read.
func Default() *Config {
	return &Config{
		Frontend: FrontendConfig{Title: defaultTitle, Subtitle: defaultSubtitle},
		Chat:     ChatConfig{HistoryLimit: defaultHistoryLimit},
	}
}

// candidatePaths lists where settings.json is searched for when no explicit
// path is given: the working directory's config/ first, then the user's
// config directory.
func candidatePaths() []string {
	paths := []string{filepath.Join("config", "settings.json")}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".requiem", "settings.json"))
	}
	return paths
}

// Load reads the settings file at path, or from the default locations when
// path is empty. A missing or unreadable file is not fatal: defaults are
// returned together with a warning message for the UI to surface.
func Load(path string) (*Config, string) {
	if path == "" {
		for _, candidate := range candidatePaths() {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}
	if path == "" {
		return Default(), "Unable to load shared configuration file."
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		return Default(), fmt.Sprintf("Unable to load shared configuration file: %v", err)
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return Default(), fmt.Sprintf("Unable to parse shared configuration file: %v", err)
	}

	// Re-apply defaults for fields the file left empty
	if cfg.Frontend.Title == "" {
		cfg.Frontend.Title = defaultTitle
	}
	if cfg.Frontend.Subtitle == "" {
		cfg.Frontend.Subtitle = defaultSubtitle
	}
	if cfg.Chat.HistoryLimit <= 0 {
		cfg.Chat.HistoryLimit = defaultHistoryLimit
	}
	return cfg, ""
}

// ResolveBaseURL applies the precedence rules once per configuration load:
// explicit config value, then the REQUIEM_API_URL environment, then the
// built-in local default.
func (c *Config) ResolveBaseURL() string {
	if c.API.BaseURL != "" {
		return strings.TrimSuffix(c.API.BaseURL, "/")
	}
	if env := os.Getenv("REQUIEM_API_URL"); env != "" {
		return strings.TrimSuffix(env, "/")
	}
	return DefaultAPIBaseURL
}
