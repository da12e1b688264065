// Package model manages speech-to-text model download, loading and
// idle-based unloading.
package model

import "context"

// Options adjusts a single transcription request.
type Options struct {
	// Language is an ISO 639-1 hint; empty lets the model detect it.
	Language string
	// SampleRate is the rate of raw PCM samples; 0 means 16 kHz.
	SampleRate int
}

// Handle is a loaded model ready to transcribe. Implementations must be
// safe for sequential reuse; the manager serializes access.
type Handle interface {
	// Transcribe converts mono float32 PCM samples to text.
	Transcribe(ctx context.Context, samples []float32, opts Options) (string, error)
	// TranscribeFile converts a WAV file to text.
	TranscribeFile(ctx context.Context, path string, opts Options) (string, error)
	// Close releases the model's resources.
	Close() error
}

// Engine turns a model file on disk into a usable Handle.
type Engine interface {
	Load(ctx context.Context, modelPath string) (Handle, error)
}
