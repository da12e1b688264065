// Package hotkey listens for the global toggle binding.
package hotkey

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	hook "github.com/robotn/gohook"

	"github.com/voxkey/voxkey/internal/types"
)

// ErrHookUnavailable means the low-level event hook could not be
// installed, typically because the OS accessibility permission is
// missing. Start may be retried after the permission is granted.
var ErrHookUnavailable = errors.New("hotkey: event hook unavailable, check accessibility permissions")

// hookEnableTimeout bounds the wait for the native hook to confirm
// installation.
var hookEnableTimeout = 2 * time.Second

// Hook entry points, swapped out in tests.
var (
	startHook = hook.Start
	endHook   = hook.End
)

// Monitor converts global keyboard events into toggle callbacks.
type Monitor struct {
	mu       sync.Mutex
	machine  machine
	onToggle func()
	running  bool
	done     chan struct{}
}

// NewMonitor creates a monitor firing onToggle once per qualifying press.
func NewMonitor(onToggle func()) *Monitor {
	m := &Monitor{onToggle: onToggle}
	m.machine.setBinding(types.DefaultHotkey)
	return m
}

// Register replaces the active binding atomically.
func (m *Monitor) Register(h types.Hotkey) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.machine.setBinding(h)
	slog.Info("hotkey registered", "binding", h.Label)
}

// Start attaches the global event listener. It is a no-op while already
// running. The native layer reports a HookEnabled event once the event
// tap is installed; when the OS denies it (missing accessibility
// permission) that confirmation never arrives and Start returns
// ErrHookUnavailable, so the caller can retry after the grant.
func (m *Monitor) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return nil
	}

	events := startHook()
	var pending []hook.Event
	select {
	case ev, ok := <-events:
		if !ok || ev.Kind == hook.HookDisabled {
			endHook()
			return ErrHookUnavailable
		}
		if ev.Kind != hook.HookEnabled {
			// A key event beat the enable confirmation through the
			// channel; the hook is evidently installed. Keep the event
			// for the loop so the press is not swallowed.
			pending = append(pending, ev)
		}
	case <-time.After(hookEnableTimeout):
		endHook()
		return ErrHookUnavailable
	}

	m.running = true
	m.done = make(chan struct{})
	go m.loop(events, m.done, pending)
	return nil
}

// Stop detaches the listener.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}
	m.running = false
	close(m.done)
	endHook()
}

func (m *Monitor) loop(events chan hook.Event, done chan struct{}, pending []hook.Event) {
	for _, ev := range pending {
		if m.handle(ev) {
			m.onToggle()
		}
	}
	for {
		select {
		case <-done:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if fire := m.handle(ev); fire {
				m.onToggle()
			}
		}
	}
}

func (m *Monitor) handle(ev hook.Event) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch ev.Kind {
	case hook.KeyDown:
		return m.machine.keyDown(ev.Rawcode, time.Now())
	case hook.KeyUp:
		m.machine.keyUp(ev.Rawcode, time.Now())
	}
	return false
}
