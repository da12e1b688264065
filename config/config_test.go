package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/voxkey/voxkey/internal/types"
)

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Language != "" || cfg.ModelID != "" {
		t.Errorf("expected zero overrides, got %+v", cfg)
	}
	if cfg.Hotkey != types.DefaultHotkey {
		t.Errorf("Hotkey = %+v, want default", cfg.Hotkey)
	}
	if cfg.Model() != DefaultModelID {
		t.Errorf("Model() = %q, want %q", cfg.Model(), DefaultModelID)
	}
}

func TestNormalize(t *testing.T) {
	neg := -5
	tests := []struct {
		name string
		in   Config
		want func(t *testing.T, c *Config)
	}{
		{
			name: "auto language cleared",
			in:   Config{Language: "Auto"},
			want: func(t *testing.T, c *Config) {
				if c.Language != "" {
					t.Errorf("Language = %q, want empty", c.Language)
				}
			},
		},
		{
			name: "default model cleared",
			in:   Config{ModelID: "default"},
			want: func(t *testing.T, c *Config) {
				if c.ModelID != "" {
					t.Errorf("ModelID = %q, want empty", c.ModelID)
				}
			},
		},
		{
			name: "negative idle minutes dropped",
			in:   Config{ModelIdleMinutes: &neg},
			want: func(t *testing.T, c *Config) {
				if c.ModelIdleMinutes != nil {
					t.Errorf("ModelIdleMinutes = %v, want nil", *c.ModelIdleMinutes)
				}
			},
		},
		{
			name: "empty hotkey replaced by default",
			in:   Config{},
			want: func(t *testing.T, c *Config) {
				if c.Hotkey != types.DefaultHotkey {
					t.Errorf("Hotkey = %+v, want default", c.Hotkey)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.in
			cfg.normalize()
			tt.want(t, &cfg)
		})
	}
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	minutes := 20
	cfg := &Config{
		Language:         "en",
		ModelID:          "medium",
		ModelIdleMinutes: &minutes,
		Postprocess: Postprocess{
			Enabled: true,
			Model:   "gpt-4o-mini",
		},
		Hotkey: types.Hotkey{Modifiers: types.ModControl | types.ModShift, Keycode: 49},
	}
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Language != "en" || got.ModelID != "medium" {
		t.Errorf("reloaded overrides = %q/%q", got.Language, got.ModelID)
	}
	if got.ModelIdleMinutes == nil || *got.ModelIdleMinutes != 20 {
		t.Errorf("ModelIdleMinutes = %v, want 20", got.ModelIdleMinutes)
	}
	if !got.Postprocess.Enabled || got.Postprocess.Model != "gpt-4o-mini" {
		t.Errorf("Postprocess = %+v", got.Postprocess)
	}
	if got.Hotkey.Keycode != 49 {
		t.Errorf("Hotkey = %+v", got.Hotkey)
	}
}

func TestLoadCorruptFallsBackToBackup(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path+".bak", []byte(`{"model_id":"base"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ModelID != "base" {
		t.Errorf("ModelID = %q, want %q from backup", cfg.ModelID, "base")
	}
}

func TestLoadCorruptWithoutBackup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ModelID != "" {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}
