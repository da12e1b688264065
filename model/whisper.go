package model

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/voxkey/voxkey/wavfile"
)

// WhisperCLI runs whisper.cpp's command-line binary for each request.
// Loading only verifies the model file and binary exist; the process
// keeps no resident memory between transcriptions beyond OS file cache,
// which is what makes the idle-unload cheap.
type WhisperCLI struct {
	// Binary overrides binary discovery when non-empty.
	Binary string
}

// NewWhisperCLI returns an engine backed by the whisper-cli binary.
func NewWhisperCLI() *WhisperCLI {
	return &WhisperCLI{}
}

// Load verifies the model file and resolves the binary.
func (w *WhisperCLI) Load(ctx context.Context, modelPath string) (Handle, error) {
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("model file: %w", err)
	}
	bin := w.Binary
	if bin == "" {
		var err error
		bin, err = findWhisperBinary()
		if err != nil {
			return nil, err
		}
	}
	return &whisperHandle{binary: bin, modelPath: modelPath}, nil
}

// findWhisperBinary locates a whisper.cpp CLI in PATH or the usual
// install prefixes.
func findWhisperBinary() (string, error) {
	names := []string{"whisper-cli", "whisper-cpp", "whisper"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	home, _ := os.UserHomeDir()
	prefixes := []string{"/opt/homebrew/bin", "/usr/local/bin", filepath.Join(home, ".local", "bin")}
	for _, prefix := range prefixes {
		for _, name := range names {
			candidate := filepath.Join(prefix, name)
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return candidate, nil
			}
		}
	}
	return "", fmt.Errorf("whisper binary not found, looked for %s", strings.Join(names, ", "))
}

type whisperHandle struct {
	binary    string
	modelPath string
}

func (h *whisperHandle) Transcribe(ctx context.Context, samples []float32, opts Options) (string, error) {
	tmp, err := os.CreateTemp("", "voxkey-*.wav")
	if err != nil {
		return "", fmt.Errorf("temp wav: %w", err)
	}
	tmp.Close()
	defer os.Remove(tmp.Name())

	rate := opts.SampleRate
	if rate <= 0 {
		rate = 16000
	}
	if err := wavfile.Write(tmp.Name(), samples, rate); err != nil {
		return "", fmt.Errorf("write temp wav: %w", err)
	}
	return h.TranscribeFile(ctx, tmp.Name(), opts)
}

func (h *whisperHandle) TranscribeFile(ctx context.Context, path string, opts Options) (string, error) {
	args := []string{
		"-m", h.modelPath,
		"-f", path,
		"-oj",
		"--no-prints",
	}
	if opts.Language != "" {
		args = append(args, "-l", opts.Language)
	}

	cmd := exec.CommandContext(ctx, h.binary, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("whisper: %w: %s", err, strings.TrimSpace(string(out)))
	}

	// -oj writes <input>.json next to the input file.
	jsonPath := path + ".json"
	defer os.Remove(jsonPath)
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return "", fmt.Errorf("read whisper output: %w", err)
	}
	return parseWhisperOutput(data)
}

func (h *whisperHandle) Close() error { return nil }

type whisperCppOutput struct {
	Result struct {
		Language string `json:"language"`
	} `json:"result"`
	Transcription []struct {
		Text    string `json:"text"`
		Offsets struct {
			From int64 `json:"from"`
			To   int64 `json:"to"`
		} `json:"offsets"`
	} `json:"transcription"`
}

func parseWhisperOutput(data []byte) (string, error) {
	var out whisperCppOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("parse whisper output: %w", err)
	}
	var parts []string
	for _, seg := range out.Transcription {
		if text := strings.TrimSpace(seg.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " "), nil
}
