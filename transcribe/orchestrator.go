// Package transcribe turns finished recordings into transcript records.
package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/voxkey/voxkey/history"
	"github.com/voxkey/voxkey/internal/types"
	"github.com/voxkey/voxkey/langdetect"
	"github.com/voxkey/voxkey/model"
	"github.com/voxkey/voxkey/postprocess"
	"github.com/voxkey/voxkey/segment"
	"github.com/voxkey/voxkey/wavfile"
)

// Transcriber is the slice of the model manager the orchestrator needs.
type Transcriber interface {
	MarkUsed()
	Transcribe(ctx context.Context, samples []float32, opts model.Options) (string, error)
	TranscribeFile(ctx context.Context, path string, opts model.Options) (string, error)
}

// Options configures the pipeline.
type Options struct {
	// SampleRate is the capture rate recordings are expected in.
	SampleRate int
	// Language hints the model; empty means auto-detect.
	Language string
	// SegmentOnSilence splits long recordings at pauses before
	// transcription.
	SegmentOnSilence bool
	// Segmentation tunes the splitter when SegmentOnSilence is set.
	Segmentation segment.Params
	// Postprocess rewrites the raw transcript when non-nil.
	Postprocess *postprocess.Client
	// History indexes finished transcripts when non-nil.
	History *history.Store
}

// Orchestrator runs recordings through segmentation, transcription and
// post-processing.
type Orchestrator struct {
	transcriber Transcriber
	opts        Options
	inFlight    atomic.Int32
}

// New creates an orchestrator, defaulting unset options.
func New(t Transcriber, opts Options) *Orchestrator {
	if opts.SampleRate <= 0 {
		opts.SampleRate = 16000
	}
	if opts.SegmentOnSilence && opts.Segmentation == (segment.Params{}) {
		opts.Segmentation = segment.DefaultParams()
	}
	return &Orchestrator{transcriber: t, opts: opts}
}

// SetHistory attaches a transcript index. Call before the first Run.
func (o *Orchestrator) SetHistory(s *history.Store) {
	o.opts.History = s
}

// Active reports how many transcriptions are in flight.
func (o *Orchestrator) Active() int {
	return int(o.inFlight.Load())
}

// Run transcribes the recording at audioPath and returns the finished
// record. The record is also written as JSON next to the recording, and
// indexed in history when a store is configured. A post-processing
// failure degrades to the raw transcript rather than failing the run.
func (o *Orchestrator) Run(ctx context.Context, audioPath string) (types.TranscriptRecord, error) {
	o.inFlight.Add(1)
	defer o.inFlight.Add(-1)

	o.transcriber.MarkUsed()
	start := time.Now()

	text, err := o.transcribeAudio(ctx, audioPath)
	if err != nil {
		return types.TranscriptRecord{}, err
	}

	// The record id is the recording's filename stem so the .wav and
	// .json artifacts pair up.
	record := types.TranscriptRecord{
		ID:           strings.TrimSuffix(filepath.Base(audioPath), ".wav"),
		Text:         text,
		OriginalText: text,
	}

	if o.opts.Postprocess != nil && text != "" {
		polished, err := o.opts.Postprocess.Rewrite(ctx, text)
		if err != nil {
			slog.Error("postprocess failed, keeping raw transcript", "err", err)
		} else {
			record.Text = polished
			record.PolishedText = polished
		}
	}

	if err := writeRecord(audioPath, record); err != nil {
		slog.Warn("could not write transcript file", "err", err)
	}
	o.index(record)

	slog.Info("transcription finished",
		"path", audioPath, "chars", len(record.Text), "took", time.Since(start))
	return record, nil
}

// transcribeAudio decodes and segments the recording when enabled,
// falling back to whole-file transcription when the file cannot be
// decoded at the expected format.
func (o *Orchestrator) transcribeAudio(ctx context.Context, audioPath string) (string, error) {
	modelOpts := model.Options{Language: o.opts.Language, SampleRate: o.opts.SampleRate}
	if !o.opts.SegmentOnSilence {
		return o.transcriber.TranscribeFile(ctx, audioPath, modelOpts)
	}

	samples, err := wavfile.ReadMono(audioPath, o.opts.SampleRate)
	if err != nil {
		slog.Warn("recording not splittable, transcribing whole file", "path", audioPath, "err", err)
		return o.transcriber.TranscribeFile(ctx, audioPath, modelOpts)
	}

	segments := segment.Split(samples, o.opts.SampleRate, o.opts.Segmentation)
	var parts []string
	for _, seg := range segments {
		text, err := o.transcriber.Transcribe(ctx, samples[seg.Start:seg.End], modelOpts)
		if err != nil {
			return "", fmt.Errorf("transcribe segment [%d:%d]: %w", seg.Start, seg.End, err)
		}
		if text = strings.TrimSpace(text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " "), nil
}

// writeRecord stores the record as JSON next to the recording.
func writeRecord(audioPath string, record types.TranscriptRecord) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(strings.TrimSuffix(audioPath, ".wav")+".json", data, 0o644)
}

// index adds the record to history, best effort.
func (o *Orchestrator) index(record types.TranscriptRecord) {
	if o.opts.History == nil || record.Text == "" {
		return
	}
	code, _ := langdetect.Detect(record.Text)
	_, err := o.opts.History.Put(history.Entry{
		ID:       record.ID,
		Text:     record.Text,
		Language: code,
	})
	if err != nil {
		slog.Warn("could not index transcript", "err", err)
	}
}
