// Package config handles application configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/voxkey/voxkey/internal/types"
)

// DefaultModelID is used when no model override is configured.
const DefaultModelID = "small"

// Postprocess configures the transcript rewrite step.
type Postprocess struct {
	Enabled      bool   `json:"enabled"`
	BaseURL      string `json:"base_url,omitempty"`
	Model        string `json:"model,omitempty"`
	SystemPrompt string `json:"system_prompt,omitempty"`
	// APIKeyEnv names the environment variable holding the bearer token.
	APIKeyEnv string `json:"api_key_env,omitempty"`
}

// Config represents the application configuration. Zero values mean
// "use the built-in default" throughout.
type Config struct {
	// Language override for transcription; empty means auto-detect.
	Language string `json:"language,omitempty"`
	// ModelID override; empty means DefaultModelID.
	ModelID string `json:"model_id,omitempty"`
	// ModelIdleMinutes controls idle unload. nil means the memory-based
	// default; 0 disables idle unload.
	ModelIdleMinutes *int `json:"model_idle_minutes,omitempty"`

	Postprocess Postprocess  `json:"postprocess"`
	Hotkey      types.Hotkey `json:"hotkey"`
}

// DefaultAPIKeyEnv is consulted when Postprocess.APIKeyEnv is empty.
const DefaultAPIKeyEnv = "OPENAI_API_KEY"

func defaultConfig() *Config {
	return &Config{Hotkey: types.DefaultHotkey}
}

// Load reads configuration from path. A missing file yields the default
// config; a corrupt file falls back to the .bak copy before giving up.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return defaultConfig(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg, err := parse(data)
	if err != nil {
		backup, berr := os.ReadFile(path + ".bak")
		if berr != nil {
			return defaultConfig(), nil
		}
		cfg, err = parse(backup)
		if err != nil {
			return defaultConfig(), nil
		}
	}
	return cfg, nil
}

func parse(data []byte) (*Config, error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.normalize()
	return &cfg, nil
}

// normalize maps legacy sentinel values to zero values and clamps
// out-of-range settings.
func (c *Config) normalize() {
	if strings.EqualFold(strings.TrimSpace(c.Language), "auto") {
		c.Language = ""
	} else {
		c.Language = strings.TrimSpace(c.Language)
	}
	if strings.EqualFold(strings.TrimSpace(c.ModelID), "default") {
		c.ModelID = ""
	} else {
		c.ModelID = strings.TrimSpace(c.ModelID)
	}
	if c.ModelIdleMinutes != nil && *c.ModelIdleMinutes < 0 {
		c.ModelIdleMinutes = nil
	}
	if c.Hotkey.Modifiers == 0 && c.Hotkey.Keycode == 0 {
		c.Hotkey = types.DefaultHotkey
	}
	c.Postprocess.BaseURL = strings.TrimSpace(c.Postprocess.BaseURL)
	c.Postprocess.Model = strings.TrimSpace(c.Postprocess.Model)
	c.Postprocess.SystemPrompt = strings.TrimSpace(c.Postprocess.SystemPrompt)
}

// Save persists the configuration to path, keeping a .bak copy of the
// previous file and writing through a temp file so a crash cannot leave a
// truncated config behind.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if prev, err := os.ReadFile(path); err == nil {
		if err := os.WriteFile(path+".bak", prev, 0o644); err != nil {
			return fmt.Errorf("write config backup: %w", err)
		}
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace config: %w", err)
	}
	return nil
}

// Model returns the effective model id.
func (c *Config) Model() string {
	if c.ModelID != "" {
		return c.ModelID
	}
	return DefaultModelID
}

// APIKey resolves the post-processing bearer token from the environment.
func (c *Config) APIKey() string {
	env := c.Postprocess.APIKeyEnv
	if env == "" {
		env = DefaultAPIKeyEnv
	}
	return os.Getenv(env)
}
