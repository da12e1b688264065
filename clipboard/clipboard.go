// Package clipboard copies text to the system clipboard via the
// platform's clipboard utility.
package clipboard

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// Copy places text on the system clipboard.
func Copy(text string) error {
	cmd, err := command()
	if err != nil {
		return err
	}
	cmd.Stdin = strings.NewReader(text)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("clipboard: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

func command() (*exec.Cmd, error) {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("pbcopy"), nil
	case "windows":
		return exec.Command("clip"), nil
	case "linux":
		// Wayland first, then the X11 tools.
		for _, candidate := range [][]string{
			{"wl-copy"},
			{"xclip", "-selection", "clipboard"},
			{"xsel", "--clipboard", "--input"},
		} {
			if path, err := exec.LookPath(candidate[0]); err == nil {
				return exec.Command(path, candidate[1:]...), nil
			}
		}
		return nil, fmt.Errorf("clipboard: no clipboard utility found, install wl-copy or xclip")
	default:
		return nil, fmt.Errorf("clipboard: unsupported platform %s", runtime.GOOS)
	}
}
