// Package types provides shared type definitions for the application.
package types

// Modifier mask bits for hotkey bindings.
const (
	ModControl uint16 = 1 << iota
	ModOption
	ModShift
	ModCommand
	ModFn
)

// Hotkey identifies a global key binding. A zero Keycode means the binding
// is modifier-only and fires on the modifier mask transition itself.
// Immutable value; replaced wholesale on reconfiguration.
type Hotkey struct {
	Modifiers uint16 `json:"modifiers"`
	Keycode   uint16 `json:"keycode,omitempty"`
	Label     string `json:"label,omitempty"`
}

// DefaultHotkey is Fn+Ctrl as a modifier-only binding.
var DefaultHotkey = Hotkey{Modifiers: ModControl | ModFn, Label: "Fn+Ctrl"}

// TranscriptRecord is the write-once artifact persisted per recording.
// Text carries the value delivered downstream: the polished text when
// post-processing succeeded, the raw transcript otherwise.
type TranscriptRecord struct {
	ID           string `json:"id"`
	Text         string `json:"text"`
	OriginalText string `json:"original_text"`
	PolishedText string `json:"polished_text"`
}

// Status is the derived pipeline state exposed to the UI layer.
type Status int

const (
	StatusIdle Status = iota
	StatusRecording
	StatusModelLoading
	StatusTranscribing
)

func (s Status) String() string {
	switch s {
	case StatusRecording:
		return "recording"
	case StatusModelLoading:
		return "model-loading"
	case StatusTranscribing:
		return "transcribing"
	default:
		return "idle"
	}
}
