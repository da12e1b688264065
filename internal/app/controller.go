package app

import (
	"log/slog"
	"os"
	"sync"
	"time"
)

// stopCancelWindow is how long after a stop the recording is held back;
// a second toggle inside the window cancels it instead of committing.
const stopCancelWindow = 400 * time.Millisecond

type recorder interface {
	Start() (string, error)
	Stop() (string, error)
}

// Controller owns the recording state machine driven by the hotkey.
// Toggle transitions idle -> recording -> pending-commit, with a short
// cancel window after each stop so an accidental double-press discards
// the take instead of dictating it.
type Controller struct {
	mu           sync.Mutex
	rec          recorder
	recording    bool
	pendingPath  string
	pendingTimer *time.Timer
	pendingGen   uint64
	window       time.Duration

	modelLoading func() bool
	onCommit     func(path string)
	onChange     func()
}

func newController(rec recorder, modelLoading func() bool, onCommit func(string)) *Controller {
	return &Controller{
		rec:          rec,
		window:       stopCancelWindow,
		modelLoading: modelLoading,
		onCommit:     onCommit,
		onChange:     func() {},
	}
}

// Recording reports whether a capture is in progress.
func (c *Controller) Recording() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recording
}

// Toggle advances the state machine one step. It is the hotkey handler.
func (c *Controller) Toggle() {
	c.mu.Lock()
	defer c.mu.Unlock()

	// A toggle inside the cancel window discards the pending take.
	if c.pendingTimer != nil {
		c.pendingGen++
		c.pendingTimer.Stop()
		c.pendingTimer = nil
		path := c.pendingPath
		c.pendingPath = ""
		if path != "" {
			if err := os.Remove(path); err != nil {
				slog.Warn("could not remove cancelled recording", "path", path, "err", err)
			}
		}
		slog.Info("recording cancelled", "path", path)
		c.onChange()
		return
	}

	if c.recording {
		c.stopLocked()
		return
	}

	if c.modelLoading != nil && c.modelLoading() {
		slog.Info("ignoring toggle while model is loading")
		return
	}

	if _, err := c.rec.Start(); err != nil {
		slog.Error("could not start recording", "err", err)
		return
	}
	c.recording = true
	c.onChange()
}

func (c *Controller) stopLocked() {
	path, err := c.rec.Stop()
	c.recording = false
	if err != nil {
		slog.Error("could not stop recording", "err", err)
		c.onChange()
		return
	}

	// Hold the commit back so a quick second press can cancel it.
	c.pendingGen++
	gen := c.pendingGen
	c.pendingPath = path
	c.pendingTimer = time.AfterFunc(c.window, func() { c.finalize(gen) })
	c.onChange()
}

func (c *Controller) finalize(gen uint64) {
	c.mu.Lock()
	if gen != c.pendingGen || c.pendingPath == "" {
		c.mu.Unlock()
		return
	}
	path := c.pendingPath
	c.pendingPath = ""
	c.pendingTimer = nil
	c.mu.Unlock()

	c.onCommit(path)
}

// Close cancels any pending commit without deleting its artifact.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pendingGen++
	if c.pendingTimer != nil {
		c.pendingTimer.Stop()
		c.pendingTimer = nil
	}
	c.pendingPath = ""
}
