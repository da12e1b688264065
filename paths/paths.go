// Package paths resolves the per-user directory layout.
package paths

import (
	"path/filepath"

	"github.com/adrg/xdg"
)

const appName = "voxkey"

// BaseDir is the data root for recordings, models and history.
func BaseDir() string {
	return filepath.Join(xdg.DataHome, appName)
}

// RecordsDir holds audio artifacts and their transcript JSON files.
func RecordsDir() string {
	return filepath.Join(BaseDir(), "records")
}

// ModelsDir holds downloaded model artifacts.
func ModelsDir() string {
	return filepath.Join(BaseDir(), "models")
}

// HistoryDir holds the transcript history store.
func HistoryDir() string {
	return filepath.Join(BaseDir(), "history")
}

// ConfigPath is the JSON configuration file.
func ConfigPath() string {
	return filepath.Join(xdg.ConfigHome, appName, "config.json")
}
