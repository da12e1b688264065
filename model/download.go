package model

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// downloadMu serializes downloads so concurrent warmups of the same
// model never race on the temp file.
var downloadMu sync.Mutex

var downloadClient = &http.Client{Timeout: 30 * time.Minute}

// knownModels maps short model names to their ggml files in the
// ggerganov/whisper.cpp repository.
var knownModels = map[string]string{
	"tiny":   "ggml-tiny.bin",
	"base":   "ggml-base.bin",
	"small":  "ggml-small.bin",
	"medium": "ggml-medium.bin",
	"large":  "ggml-large-v3.bin",
}

// EnsureModel returns the local path for modelID, downloading it first
// when missing. modelID is a short name (tiny, base, small, medium,
// large) or a Hugging Face "owner/repo" whose repo name is the ggml
// file name.
func EnsureModel(ctx context.Context, modelsDir, modelID string) (string, error) {
	downloadMu.Lock()
	defer downloadMu.Unlock()

	filename, url := resolveModel(modelID)
	path := filepath.Join(modelsDir, filename)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	if err := os.MkdirAll(modelsDir, 0o755); err != nil {
		return "", fmt.Errorf("create models dir: %w", err)
	}

	slog.Info("downloading model", "model", modelID, "url", url)
	if err := download(ctx, url, path); err != nil {
		return "", fmt.Errorf("download model %s: %w", modelID, err)
	}
	slog.Info("model downloaded", "model", modelID, "path", path)
	return path, nil
}

func resolveModel(modelID string) (filename, url string) {
	if file, ok := knownModels[modelID]; ok {
		return file, "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/" + file
	}
	if owner, repo, ok := strings.Cut(modelID, "/"); ok {
		file := repo
		if !strings.HasSuffix(file, ".bin") {
			file += ".bin"
		}
		return strings.ReplaceAll(modelID, "/", "__") + ".bin",
			fmt.Sprintf("https://huggingface.co/%s/%s/resolve/main/%s", owner, repo, file)
	}
	file := "ggml-" + modelID + ".bin"
	return file, "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/" + file
}

// download fetches url into path through a temp file so a partial fetch
// never looks like a complete model.
func download(ctx context.Context, url, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	if token := hfToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := downloadClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func hfToken() string {
	for _, key := range []string{"HF_TOKEN", "HUGGINGFACE_HUB_TOKEN"} {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return ""
}
