package model

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// CatalogEntry describes a model the user can pick.
type CatalogEntry struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	SizeMB      int    `json:"size_mb"`
	Downloaded  bool   `json:"downloaded"`
}

// Catalog lists the bundled model choices, flagging the ones already
// present under modelsDir.
func Catalog(modelsDir string) []CatalogEntry {
	entries := []CatalogEntry{
		{ID: "tiny", Description: "Fastest, lowest accuracy", SizeMB: 75},
		{ID: "base", Description: "Fast, basic accuracy", SizeMB: 142},
		{ID: "small", Description: "Balanced speed and accuracy", SizeMB: 466},
		{ID: "medium", Description: "Slower, high accuracy", SizeMB: 1500},
		{ID: "large", Description: "Slowest, best accuracy", SizeMB: 2900},
	}
	for i := range entries {
		entries[i].Downloaded = IsDownloaded(modelsDir, entries[i].ID)
	}
	return entries
}

const catalogURL = "https://huggingface.co/api/models/ggerganov/whisper.cpp"

var catalogClient = &http.Client{Timeout: 15 * time.Second}

// FetchCatalog lists the ggml model ids published in the whisper.cpp
// repository, falling back to the bundled list when the hub is
// unreachable.
func FetchCatalog(ctx context.Context, modelsDir string) ([]CatalogEntry, error) {
	ids, err := fetchRemoteIDs(ctx)
	if err != nil {
		return Catalog(modelsDir), fmt.Errorf("fetch model catalog: %w", err)
	}
	entries := make([]CatalogEntry, 0, len(ids))
	for _, id := range ids {
		entries = append(entries, CatalogEntry{
			ID:         id,
			Downloaded: IsDownloaded(modelsDir, id),
		})
	}
	return entries, nil
}

func fetchRemoteIDs(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, catalogURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := catalogClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	var body struct {
		Siblings []struct {
			Rfilename string `json:"rfilename"`
		} `json:"siblings"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}

	var ids []string
	for _, s := range body.Siblings {
		name := s.Rfilename
		if !strings.HasPrefix(name, "ggml-") || !strings.HasSuffix(name, ".bin") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(strings.TrimPrefix(name, "ggml-"), ".bin"))
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no model files listed")
	}
	return ids, nil
}

// IsDownloaded reports whether modelID's file exists under modelsDir.
func IsDownloaded(modelsDir, modelID string) bool {
	filename, _ := resolveModel(modelID)
	_, err := os.Stat(filepath.Join(modelsDir, filename))
	return err == nil
}

// ListDownloaded returns the model files present under modelsDir.
func ListDownloaded(modelsDir string) ([]string, error) {
	entries, err := os.ReadDir(modelsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".bin") {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

// Delete removes modelID's file from modelsDir.
func Delete(modelsDir, modelID string) error {
	filename, _ := resolveModel(modelID)
	return os.Remove(filepath.Join(modelsDir, filename))
}
