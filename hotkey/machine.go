package hotkey

import (
	"time"

	"github.com/voxkey/voxkey/internal/types"
)

// doubleTapWindow is the max gap between two Fn presses that counts as a
// double-tap toggle.
const doubleTapWindow = 200 * time.Millisecond

// machine decides when a raw key event fires the toggle. It owns all
// binding state and sees events one at a time, so the monitor goroutine
// can feed it without extra synchronization.
type machine struct {
	binding types.Hotkey

	mods        uint16 // currently held modifier mask
	hotkeyDown  bool
	fnDown      bool
	fnLastPress time.Time
}

func (m *machine) setBinding(h types.Hotkey) {
	m.binding = h
	m.hotkeyDown = false
}

// keyDown reports whether the press fires the toggle.
func (m *machine) keyDown(raw uint16, now time.Time) bool {
	if bit := modifierBit(raw); bit != 0 {
		if m.mods&bit != 0 {
			// Modifier key-repeat.
			return false
		}
		m.mods |= bit
		return m.flagsChanged(now)
	}

	if m.binding.Keycode == 0 {
		return false
	}
	if raw == m.binding.Keycode && m.mods == m.binding.Modifiers && !m.hotkeyDown {
		m.hotkeyDown = true
		return true
	}
	return false
}

// keyUp never fires; it clears held state so the next press can.
func (m *machine) keyUp(raw uint16, now time.Time) {
	if bit := modifierBit(raw); bit != 0 {
		if m.mods&bit == 0 {
			return
		}
		m.mods &^= bit
		m.flagsChanged(now)
		return
	}
	if m.binding.Keycode != 0 && raw == m.binding.Keycode {
		m.hotkeyDown = false
	}
}

// flagsChanged handles modifier-only bindings on mask transitions.
func (m *machine) flagsChanged(now time.Time) bool {
	if m.binding.Keycode != 0 {
		return false
	}

	if m.binding.Modifiers == types.ModFn {
		// Fn alone is a double-tap binding: a lone press only arms the
		// window, the second press inside it toggles and consumes it.
		fnNow := m.mods&types.ModFn != 0
		switch {
		case fnNow && !m.fnDown:
			m.fnDown = true
			if !m.fnLastPress.IsZero() && now.Sub(m.fnLastPress) <= doubleTapWindow {
				m.fnLastPress = time.Time{}
				return true
			}
			m.fnLastPress = now
		case !fnNow && m.fnDown:
			m.fnDown = false
		}
		return false
	}

	match := m.mods == m.binding.Modifiers
	if match && !m.hotkeyDown {
		m.hotkeyDown = true
		return true
	}
	if !match && m.hotkeyDown {
		m.hotkeyDown = false
	}
	return false
}

// modifierBit maps platform virtual keycodes of modifier keys to mask
// bits. Codes follow the macOS layout gohook reports (left/right pairs).
func modifierBit(raw uint16) uint16 {
	switch raw {
	case 59, 62:
		return types.ModControl
	case 58, 61:
		return types.ModOption
	case 56, 60:
		return types.ModShift
	case 54, 55:
		return types.ModCommand
	case 63:
		return types.ModFn
	default:
		return 0
	}
}
