package hotkey

import (
	"fmt"
	"strings"

	"github.com/voxkey/voxkey/internal/types"
)

// Format renders a binding as a human-readable label, e.g. "Fn+Ctrl" or
// "Ctrl+Shift+Space".
func Format(h types.Hotkey) string {
	var names []string
	if h.Modifiers&types.ModControl != 0 {
		names = append(names, "Ctrl")
	}
	if h.Modifiers&types.ModOption != 0 {
		names = append(names, "Alt")
	}
	if h.Modifiers&types.ModShift != 0 {
		names = append(names, "Shift")
	}
	if h.Modifiers&types.ModCommand != 0 {
		names = append(names, "Cmd")
	}
	if h.Modifiers&types.ModFn != 0 {
		names = append(names, "Fn")
	}
	if h.Keycode == 0 {
		if len(names) == 0 {
			return "None"
		}
		return strings.Join(names, "+")
	}
	label := h.Label
	if label == "" {
		label = keycodeLabel(h.Keycode)
	}
	names = append(names, label)
	return strings.Join(names, "+")
}

func keycodeLabel(keycode uint16) string {
	switch keycode {
	case 36:
		return "Enter"
	case 48:
		return "Tab"
	case 49:
		return "Space"
	case 51:
		return "Backspace"
	case 53:
		return "Esc"
	case 57:
		return "CapsLock"
	case 123:
		return "Left"
	case 124:
		return "Right"
	case 125:
		return "Down"
	case 126:
		return "Up"
	}
	if keycode >= 122 && keycode <= 133 {
		return fmt.Sprintf("F%d", keycode-111)
	}
	return fmt.Sprintf("Key%d", keycode)
}
