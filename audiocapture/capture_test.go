package audiocapture

import (
	"errors"
	"path/filepath"
	"regexp"
	"testing"
)

type fakeCapture struct {
	startPaths []string
	startErr   error
	stopCalls  int
	stopErr    error
}

func (f *fakeCapture) start(path string, sampleRate int) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.startPaths = append(f.startPaths, path)
	return nil
}

func (f *fakeCapture) stop() error {
	f.stopCalls++
	return f.stopErr
}

func newTestRecorder(t *testing.T) (*Recorder, *fakeCapture) {
	t.Helper()
	fake := &fakeCapture{}
	r := NewRecorder(t.TempDir(), 16000)
	r.impl = fake
	return r, fake
}

func TestStartWhileRecordingFails(t *testing.T) {
	r, _ := newTestRecorder(t)
	if _, err := r.Start(); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	if _, err := r.Start(); !errors.Is(err, ErrAlreadyRecording) {
		t.Fatalf("second Start = %v, want ErrAlreadyRecording", err)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	r, fake := newTestRecorder(t)
	started, err := r.Start()
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	first, err := r.Stop()
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if first != started {
		t.Errorf("Stop path = %q, want %q", first, started)
	}

	second, err := r.Stop()
	if err != nil {
		t.Fatalf("second Stop: %v", err)
	}
	if second != started {
		t.Errorf("second Stop path = %q, want %q", second, started)
	}
	if fake.stopCalls != 1 {
		t.Errorf("backend stop called %d times, want 1", fake.stopCalls)
	}
}

func TestStopWithoutStart(t *testing.T) {
	r, fake := newTestRecorder(t)
	path, err := r.Stop()
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if path != "" {
		t.Errorf("path = %q, want empty", path)
	}
	if fake.stopCalls != 0 {
		t.Errorf("backend stop called %d times, want 0", fake.stopCalls)
	}
}

func TestStartErrorLeavesRecorderIdle(t *testing.T) {
	r, fake := newTestRecorder(t)
	fake.startErr = errors.New("device busy")
	if _, err := r.Start(); err == nil {
		t.Fatal("Start succeeded with failing backend")
	}
	if r.Recording() {
		t.Error("recorder active after failed Start")
	}

	fake.startErr = nil
	if _, err := r.Start(); err != nil {
		t.Fatalf("retry Start: %v", err)
	}
}

func TestFilenamePattern(t *testing.T) {
	r, _ := newTestRecorder(t)
	path, err := r.Start()
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	name := filepath.Base(path)
	pattern := regexp.MustCompile(`^recording_\d{8}_\d{6}\.wav$`)
	if !pattern.MatchString(name) {
		t.Errorf("filename %q does not match %v", name, pattern)
	}
}

func TestRecordingState(t *testing.T) {
	r, _ := newTestRecorder(t)
	if r.Recording() {
		t.Fatal("new recorder reports recording")
	}
	r.Start()
	if !r.Recording() {
		t.Fatal("Recording() false after Start")
	}
	r.Stop()
	if r.Recording() {
		t.Fatal("Recording() true after Stop")
	}
}
