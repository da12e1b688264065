package audiocapture

import (
	"errors"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"strconv"
	"time"
)

// gracefulStopTimeout bounds how long we wait for ffmpeg to flush and
// finalize the WAV header after a quit request.
const gracefulStopTimeout = 3 * time.Second

// ffmpegCapture records via an ffmpeg child process. Asking ffmpeg to
// quit over stdin (rather than killing it) makes it write the final
// RIFF sizes, so the output stays a valid WAV.
type ffmpegCapture struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser
}

func newFFmpegCapture() *ffmpegCapture {
	return &ffmpegCapture{}
}

func (f *ffmpegCapture) start(path string, sampleRate int) error {
	bin, err := exec.LookPath("ffmpeg")
	if err != nil {
		return errors.New("ffmpeg not found in PATH")
	}

	args := []string{"-hide_banner", "-loglevel", "error"}
	switch runtime.GOOS {
	case "darwin":
		args = append(args, "-f", "avfoundation", "-i", ":0")
	case "linux":
		args = append(args, "-f", "pulse", "-i", "default")
	default:
		return fmt.Errorf("unsupported platform %s", runtime.GOOS)
	}
	args = append(args,
		"-ac", "1",
		"-ar", strconv.Itoa(sampleRate),
		"-c:a", "pcm_s16le",
		"-y", path,
	)

	cmd := exec.Command(bin, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("open ffmpeg stdin: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("spawn ffmpeg: %w", err)
	}
	f.cmd = cmd
	f.stdin = stdin
	return nil
}

func (f *ffmpegCapture) stop() error {
	if f.cmd == nil {
		return nil
	}
	cmd, stdin := f.cmd, f.stdin
	f.cmd, f.stdin = nil, nil

	// Ask for a clean quit first.
	io.WriteString(stdin, "q\n")
	stdin.Close()

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("ffmpeg exit: %w", err)
		}
		return nil
	case <-time.After(gracefulStopTimeout):
		cmd.Process.Kill()
		<-done
		return errors.New("ffmpeg did not exit cleanly")
	}
}
