package transcribe

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/voxkey/voxkey/internal/types"
	"github.com/voxkey/voxkey/model"
	"github.com/voxkey/voxkey/postprocess"
	"github.com/voxkey/voxkey/wavfile"
)

const testRate = 16000

type fakeTranscriber struct {
	mu          sync.Mutex
	outputs     []string
	next        int
	err         error
	fileCalls   int
	sampleCalls int
	marked      int
	lastOpts    model.Options
}

func (f *fakeTranscriber) MarkUsed() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marked++
}

func (f *fakeTranscriber) take() (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if len(f.outputs) == 0 {
		return "", nil
	}
	out := f.outputs[f.next%len(f.outputs)]
	f.next++
	return out, nil
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, samples []float32, opts model.Options) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sampleCalls++
	f.lastOpts = opts
	return f.take()
}

func (f *fakeTranscriber) TranscribeFile(ctx context.Context, path string, opts model.Options) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fileCalls++
	return f.take()
}

// gappedRecording writes a WAV with speech, a silent pause, then speech.
func gappedRecording(t *testing.T, rate int) string {
	t.Helper()
	var samples []float32
	appendSpan := func(seconds, amp float64) {
		n := int(seconds * float64(rate))
		for i := 0; i < n; i++ {
			samples = append(samples, float32(amp*math.Sin(2*math.Pi*200*float64(i)/float64(rate))))
		}
	}
	appendSpan(1.2, 0.5)
	appendSpan(0.6, 0)
	appendSpan(1.2, 0.5)

	path := filepath.Join(t.TempDir(), "recording_20250101_120000.wav")
	if err := wavfile.Write(path, samples, rate); err != nil {
		t.Fatalf("write recording: %v", err)
	}
	return path
}

func TestRunSegmentedJoinsParts(t *testing.T) {
	fake := &fakeTranscriber{outputs: []string{" one ", "two"}}
	o := New(fake, Options{SegmentOnSilence: true})
	path := gappedRecording(t, testRate)

	record, err := o.Run(context.Background(), path)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if record.Text != "one two" {
		t.Errorf("text = %q, want %q", record.Text, "one two")
	}
	if record.OriginalText != record.Text {
		t.Errorf("original_text = %q, want %q", record.OriginalText, record.Text)
	}
	if record.ID == "" {
		t.Error("no record ID")
	}
	if fake.sampleCalls != 2 {
		t.Errorf("segment transcriptions = %d, want 2", fake.sampleCalls)
	}
	if fake.fileCalls != 0 {
		t.Errorf("whole-file transcriptions = %d, want 0", fake.fileCalls)
	}
	if fake.marked == 0 {
		t.Error("manager never marked as used")
	}
	if fake.lastOpts.SampleRate != testRate {
		t.Errorf("segment sample rate = %d, want %d", fake.lastOpts.SampleRate, testRate)
	}
}

func TestRunWritesRecordFile(t *testing.T) {
	fake := &fakeTranscriber{outputs: []string{"saved text"}}
	o := New(fake, Options{})
	path := gappedRecording(t, testRate)

	record, err := o.Run(context.Background(), path)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	data, err := os.ReadFile(strings.TrimSuffix(path, ".wav") + ".json")
	if err != nil {
		t.Fatalf("read record file: %v", err)
	}
	var onDisk types.TranscriptRecord
	if err := json.Unmarshal(data, &onDisk); err != nil {
		t.Fatalf("decode record file: %v", err)
	}
	if onDisk.ID != record.ID || onDisk.Text != "saved text" {
		t.Errorf("on-disk record = %+v", onDisk)
	}
	if record.ID != "recording_20250101_120000" {
		t.Errorf("record id = %q, want the recording stem", record.ID)
	}
}

func TestRunWholeFileWhenNotSplittable(t *testing.T) {
	fake := &fakeTranscriber{outputs: []string{"whole file"}}
	o := New(fake, Options{SegmentOnSilence: true, SampleRate: testRate})
	// The recording is at a different rate than the pipeline expects, so
	// segmentation is skipped and the file goes to the model as-is.
	path := gappedRecording(t, 8000)

	record, err := o.Run(context.Background(), path)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if record.Text != "whole file" {
		t.Errorf("text = %q", record.Text)
	}
	if fake.fileCalls != 1 {
		t.Errorf("whole-file transcriptions = %d, want 1", fake.fileCalls)
	}
	if fake.sampleCalls != 0 {
		t.Errorf("segment transcriptions = %d, want 0", fake.sampleCalls)
	}
}

func TestRunPostprocessApplied(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"content":"Polished text."}}]}`))
	}))
	defer srv.Close()
	client := postprocess.NewClient(postprocess.Config{
		Enabled: true, BaseURL: srv.URL, Model: "test-model", APIKey: "sk-test",
	})

	fake := &fakeTranscriber{outputs: []string{"raw text"}}
	o := New(fake, Options{Postprocess: client})
	record, err := o.Run(context.Background(), gappedRecording(t, testRate))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if record.Text != "Polished text." {
		t.Errorf("text = %q", record.Text)
	}
	if record.OriginalText != "raw text" {
		t.Errorf("original_text = %q", record.OriginalText)
	}
	if record.PolishedText != "Polished text." {
		t.Errorf("polished_text = %q", record.PolishedText)
	}
}

func TestRunPostprocessFailureKeepsRawText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()
	client := postprocess.NewClient(postprocess.Config{
		Enabled: true, BaseURL: srv.URL, Model: "test-model", APIKey: "sk-test",
	})

	fake := &fakeTranscriber{outputs: []string{"raw text"}}
	o := New(fake, Options{Postprocess: client})
	record, err := o.Run(context.Background(), gappedRecording(t, testRate))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if record.Text != "raw text" {
		t.Errorf("text = %q, want raw transcript", record.Text)
	}
	if record.PolishedText != "" {
		t.Errorf("polished_text = %q, want empty", record.PolishedText)
	}
}

func TestRunTranscribeErrorPropagates(t *testing.T) {
	wantErr := errors.New("model exploded")
	fake := &fakeTranscriber{err: wantErr}
	o := New(fake, Options{})
	if _, err := o.Run(context.Background(), gappedRecording(t, testRate)); !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
	if o.Active() != 0 {
		t.Errorf("Active() = %d after failed run", o.Active())
	}
}

func TestActiveReturnsToZero(t *testing.T) {
	fake := &fakeTranscriber{outputs: []string{"x"}}
	o := New(fake, Options{})
	if _, err := o.Run(context.Background(), gappedRecording(t, testRate)); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if o.Active() != 0 {
		t.Errorf("Active() = %d, want 0", o.Active())
	}
}
