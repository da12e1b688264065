package hotkey

import (
	"testing"
	"time"

	"github.com/voxkey/voxkey/internal/types"
)

const (
	rawCtrlLeft  = 59
	rawShiftLeft = 56
	rawFn        = 63
	rawSpace     = 49
)

func newMachine(h types.Hotkey) *machine {
	var m machine
	m.setBinding(h)
	return &m
}

func TestKeyBindingFiresOncePerPress(t *testing.T) {
	m := newMachine(types.Hotkey{Modifiers: types.ModControl, Keycode: rawSpace})
	now := time.Now()

	if m.keyDown(rawCtrlLeft, now) {
		t.Fatal("modifier press alone fired")
	}
	if !m.keyDown(rawSpace, now) {
		t.Fatal("Ctrl+Space did not fire")
	}
	// Key repeat while held must not fire again.
	if m.keyDown(rawSpace, now.Add(30*time.Millisecond)) {
		t.Fatal("held key repeat fired")
	}
	m.keyUp(rawSpace, now.Add(50*time.Millisecond))
	if !m.keyDown(rawSpace, now.Add(100*time.Millisecond)) {
		t.Fatal("second press after release did not fire")
	}
}

func TestKeyBindingRequiresExactModifiers(t *testing.T) {
	m := newMachine(types.Hotkey{Modifiers: types.ModControl, Keycode: rawSpace})
	now := time.Now()

	m.keyDown(rawCtrlLeft, now)
	m.keyDown(rawShiftLeft, now)
	if m.keyDown(rawSpace, now) {
		t.Fatal("fired with extra Shift held")
	}
	m.keyUp(rawShiftLeft, now)
	if !m.keyDown(rawSpace, now) {
		t.Fatal("did not fire after extra modifier released")
	}
}

func TestModifierOnlyBindingFiresOnMaskMatch(t *testing.T) {
	m := newMachine(types.Hotkey{Modifiers: types.ModControl | types.ModFn})
	now := time.Now()

	if m.keyDown(rawCtrlLeft, now) {
		t.Fatal("partial mask fired")
	}
	if !m.keyDown(rawFn, now) {
		t.Fatal("full mask did not fire")
	}
	// Modifier key-repeat events must not retrigger.
	if m.keyDown(rawFn, now.Add(30*time.Millisecond)) {
		t.Fatal("modifier repeat fired")
	}
	m.keyUp(rawFn, now.Add(50*time.Millisecond))
	if !m.keyDown(rawFn, now.Add(100*time.Millisecond)) {
		t.Fatal("re-press after release did not fire")
	}
}

func TestFnDoubleTap(t *testing.T) {
	tests := []struct {
		name string
		gap  time.Duration
		want bool
	}{
		{"inside window", 150 * time.Millisecond, true},
		{"at window edge", doubleTapWindow, true},
		{"too slow", 250 * time.Millisecond, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMachine(types.Hotkey{Modifiers: types.ModFn})
			now := time.Now()

			if m.keyDown(rawFn, now) {
				t.Fatal("single tap fired")
			}
			m.keyUp(rawFn, now.Add(20*time.Millisecond))
			if got := m.keyDown(rawFn, now.Add(tt.gap)); got != tt.want {
				t.Fatalf("second tap after %v fired = %v, want %v", tt.gap, got, tt.want)
			}
		})
	}
}

func TestFnDoubleTapConsumesWindow(t *testing.T) {
	m := newMachine(types.Hotkey{Modifiers: types.ModFn})
	now := time.Now()

	m.keyDown(rawFn, now)
	m.keyUp(rawFn, now.Add(20*time.Millisecond))
	if !m.keyDown(rawFn, now.Add(100*time.Millisecond)) {
		t.Fatal("double-tap did not fire")
	}
	m.keyUp(rawFn, now.Add(120*time.Millisecond))
	// The firing tap must not also arm the next window; a third tap
	// shortly after is a fresh first tap.
	if m.keyDown(rawFn, now.Add(180*time.Millisecond)) {
		t.Fatal("third tap reused the consumed window")
	}
}

func TestSetBindingResetsHeldState(t *testing.T) {
	m := newMachine(types.Hotkey{Modifiers: types.ModControl, Keycode: rawSpace})
	now := time.Now()

	m.keyDown(rawCtrlLeft, now)
	m.keyDown(rawSpace, now)

	m.setBinding(types.Hotkey{Modifiers: types.ModControl, Keycode: rawSpace})
	if !m.keyDown(rawSpace, now.Add(time.Millisecond)) {
		t.Fatal("stale held flag survived rebinding")
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		name string
		h    types.Hotkey
		want string
	}{
		{"default label", types.Hotkey{Modifiers: types.ModControl | types.ModFn}, "Ctrl+Fn"},
		{"fn only", types.Hotkey{Modifiers: types.ModFn}, "Fn"},
		{"with key", types.Hotkey{Modifiers: types.ModCommand | types.ModShift, Keycode: rawSpace}, "Shift+Cmd+Space"},
		{"unbound", types.Hotkey{}, "None"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Format(tt.h); got != tt.want {
				t.Errorf("Format(%+v) = %q, want %q", tt.h, got, tt.want)
			}
		})
	}
}
