// Package audiocapture records microphone input to WAV files.
package audiocapture

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ErrAlreadyRecording is returned by Start while a capture is running.
var ErrAlreadyRecording = errors.New("audiocapture: already recording")

// captureImpl is the platform backend. start must create the file at
// path and keep appending until stop, which finalizes the WAV header.
type captureImpl interface {
	start(path string, sampleRate int) error
	stop() error
}

// Recorder manages one capture session at a time, writing timestamped
// WAV files into its directory.
type Recorder struct {
	mu         sync.Mutex
	dir        string
	sampleRate int
	active     bool
	lastPath   string
	impl       captureImpl
}

// NewRecorder creates a recorder storing files under dir at sampleRate.
func NewRecorder(dir string, sampleRate int) *Recorder {
	return &Recorder{
		dir:        dir,
		sampleRate: sampleRate,
		impl:       newFFmpegCapture(),
	}
}

// Start begins a capture and returns the path of the file being written.
func (r *Recorder) Start() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active {
		return "", ErrAlreadyRecording
	}
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("create records dir: %w", err)
	}

	path := filepath.Join(r.dir, time.Now().Format("recording_20060102_150405.wav"))
	if err := r.impl.start(path, r.sampleRate); err != nil {
		return "", fmt.Errorf("start capture: %w", err)
	}
	r.active = true
	r.lastPath = path
	slog.Info("recording started", "path", path)
	return path, nil
}

// Stop finishes the capture and returns the finalized file path. Calling
// Stop while idle is not an error; it returns the previous path so a
// caller that raced a stop can still find its artifact.
func (r *Recorder) Stop() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.active {
		return r.lastPath, nil
	}
	r.active = false
	if err := r.impl.stop(); err != nil {
		return r.lastPath, fmt.Errorf("stop capture: %w", err)
	}
	slog.Info("recording stopped", "path", r.lastPath)
	return r.lastPath, nil
}

// Recording reports whether a capture is in progress.
func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}
