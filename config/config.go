// Package config loads and persists the gitwit configuration file. A
// repository-local .gitwit/config.json overrides the global
// ~/.gitwit/config.json, and environment variables override both.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sweetpotato0/gitwit/pkg/logging"
)

// Backend selection values stored in the config file. "online" is kept
// as an accepted alias for "openrouter" for configs written by older
// releases.
const (
	BackendOllama     = "ollama"
	BackendOffline    = "offline"
	BackendOpenRouter = "openrouter"
)

// Defaults applied when the config file leaves a setting empty.
const (
	DefaultOllamaURL       = "http://localhost:11434/api/generate"
	DefaultOllamaModel     = "llama3"
	DefaultOfflineModel    = "tinyllama-1.1b-chat-v1.0.Q4_K_M"
	DefaultOpenRouterModel = "anthropic/claude-3-opus"
)

// ErrNotConfigured is returned by Load when no config file exists yet.
var ErrNotConfigured = errors.New("gitwit is not configured; run 'gitwit init' first")

// Config is the persisted gitwit configuration.
type Config struct {
	Backend          string `json:"llm_backend"`
	OllamaURL        string `json:"ollama_url,omitempty"`
	OllamaModel      string `json:"ollama_model,omitempty"`
	OfflineModel     string `json:"offline_model,omitempty"`
	OfflineModelURL  string `json:"offline_model_url,omitempty"`
	OpenRouterAPIKey string `json:"openrouter_api_key,omitempty"`
	OpenRouterModel  string `json:"openrouter_model,omitempty"`
}

// Default returns a config populated with default settings.
func Default() *Config {
	return &Config{
		Backend:         BackendOffline,
		OllamaURL:       DefaultOllamaURL,
		OllamaModel:     DefaultOllamaModel,
		OfflineModel:    DefaultOfflineModel,
		OpenRouterModel: DefaultOpenRouterModel,
	}
}

// GlobalPath returns the path of the global config file.
func GlobalPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: resolve home directory: %w", err)
	}
	return filepath.Join(home, ".gitwit", "config.json"), nil
}

// LocalPath returns the path of the repository-local config file
// relative to the current working directory.
func LocalPath() string {
	return filepath.Join(".gitwit", "config.json")
}

// Load reads the active configuration: local file first, then global,
// then environment overrides. Returns ErrNotConfigured when neither
// file exists and no backend is selected via the environment.
func Load() (*Config, error) {
	cfg := Default()
	loaded := false

	if global, err := GlobalPath(); err == nil {
		if ok, err := cfg.mergeFile(global); err != nil {
			return nil, err
		} else if ok {
			loaded = true
		}
	}
	if ok, err := cfg.mergeFile(LocalPath()); err != nil {
		return nil, err
	} else if ok {
		loaded = true
	}

	cfg.applyEnv()

	if !loaded && os.Getenv("GITWIT_LLM_BACKEND") == "" {
		return nil, ErrNotConfigured
	}
	if cfg.Backend != "" && cfg.ActiveBackend() == "" {
		logging.WithComponent("config").Warn("unknown llm_backend value, defaulting to offline",
			"value", cfg.Backend)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config. With global set it writes the global file,
// otherwise the repository-local one.
func (c *Config) Save(global bool) error {
	path := LocalPath()
	if global {
		var err error
		if path, err = GlobalPath(); err != nil {
			return err
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

// ActiveBackend returns the normalized backend selection. Unknown
// values normalize to the empty string; the router treats that as the
// offline default.
func (c *Config) ActiveBackend() string {
	switch c.Backend {
	case BackendOllama, BackendOffline, BackendOpenRouter:
		return c.Backend
	case "online":
		return BackendOpenRouter
	default:
		return ""
	}
}

// Validate checks the loaded settings with the fluent validator. An
// unrecognized backend selection is not an error here: it normalizes
// to the empty string and the router routes it to the offline default,
// so only the settings of the resolved backend are checked.
func (c *Config) Validate() error {
	v := NewValidator()
	switch c.ActiveBackend() {
	case BackendOllama:
		v.ValidateURL("ollama_url", c.OllamaURL)
		v.RequireNonEmpty("ollama_model", c.OllamaModel)
	case BackendOffline:
		v.RequireNonEmpty("offline_model", c.OfflineModel)
	case BackendOpenRouter:
		v.RequireNonEmpty("openrouter_model", c.OpenRouterModel)
	}
	return v.Error()
}

func (c *Config) mergeFile(path string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, c); err != nil {
		return false, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return true, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("GITWIT_LLM_BACKEND"); v != "" {
		c.Backend = v
	}
	if v := os.Getenv("OLLAMA_URL"); v != "" {
		c.OllamaURL = v
	}
	if v := os.Getenv("OLLAMA_MODEL"); v != "" {
		c.OllamaModel = v
	}
	if v := os.Getenv("GITWIT_OFFLINE_MODEL"); v != "" {
		c.OfflineModel = v
	}
	if v := os.Getenv("OPENROUTER_MODEL"); v != "" {
		c.OpenRouterModel = v
	}
}
