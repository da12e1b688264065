package model

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// lowMemoryThreshold is the total RAM below which the manager defers
// model loading to first use and enables the default idle unload.
const lowMemoryThreshold = 16 << 30

// defaultIdleTimeout applies on low-memory machines unless configured.
const defaultIdleTimeout = 15 * time.Minute

// Manager owns the loaded model handle. It downloads models on demand,
// loads lazily or eagerly depending on available memory, and unloads
// the handle after a configurable idle period.
type Manager struct {
	engine    Engine
	modelsDir string

	mu        sync.Mutex
	handle    Handle
	loadedID  string
	currentID string

	loadOps atomic.Int32

	idleMu    sync.Mutex
	idleFor   time.Duration
	idleTimer *time.Timer
	idleGen   uint64
	lastUse   time.Time

	busy      func() bool
	deferLoad bool
}

// NewManager creates a manager for models stored under modelsDir. On
// machines with less than 16 GiB of RAM it defers loading to first use
// and enables a 15 minute idle unload.
func NewManager(engine Engine, modelsDir string) *Manager {
	m := &Manager{
		engine:    engine,
		modelsDir: modelsDir,
		busy:      func() bool { return false },
	}
	if total := totalMemoryBytes(); total > 0 && total < lowMemoryThreshold {
		m.deferLoad = true
		m.idleFor = defaultIdleTimeout
		slog.Info("low memory detected, deferring model load",
			"total_gb", total>>30, "idle_timeout", defaultIdleTimeout)
	}
	return m
}

// SetModel selects the active model. A different loaded model is
// dropped so the next request loads the new one.
func (m *Manager) SetModel(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.currentID == id {
		return
	}
	m.currentID = id
	if m.handle != nil && m.loadedID != id {
		m.handle.Close()
		m.handle = nil
		m.loadedID = ""
	}
}

// Model returns the active model id.
func (m *Manager) Model() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentID
}

// SetIdleTimeout configures how long the handle may sit unused before
// it is unloaded. Zero disables unloading. A negative value keeps the
// memory-based default.
func (m *Manager) SetIdleTimeout(d time.Duration) {
	if d < 0 {
		return
	}
	m.idleMu.Lock()
	defer m.idleMu.Unlock()
	m.idleFor = d
	m.rescheduleLocked()
}

// SetBusy installs a callback consulted before unloading; while it
// reports true the idle timer keeps rescheduling instead of firing.
func (m *Manager) SetBusy(busy func() bool) {
	if busy != nil {
		m.busy = busy
	}
}

// Loading reports whether a load or download is in flight.
func (m *Manager) Loading() bool {
	return m.loadOps.Load() > 0
}

// Loaded reports whether a model handle is resident.
func (m *Manager) Loaded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.handle != nil
}

// WarmUp downloads the active model and, unless loading is deferred,
// loads it so the first dictation does not pay the load cost.
func (m *Manager) WarmUp(ctx context.Context) error {
	id := m.Model()
	if id == "" {
		return fmt.Errorf("no model selected")
	}
	m.loadOps.Add(1)
	defer m.loadOps.Add(-1)

	path, err := EnsureModel(ctx, m.modelsDir, id)
	if err != nil {
		return err
	}
	if m.deferLoad {
		slog.Info("model warmup deferred", "model", id)
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.handle != nil && m.loadedID == id {
		return nil
	}
	return m.loadLocked(ctx, id, path)
}

// Transcribe runs the active model over PCM samples, loading it first
// if needed.
func (m *Manager) Transcribe(ctx context.Context, samples []float32, opts Options) (string, error) {
	h, err := m.ensureLoaded(ctx)
	if err != nil {
		return "", err
	}
	m.MarkUsed()
	return h.Transcribe(ctx, samples, opts)
}

// TranscribeFile runs the active model over a WAV file, loading it
// first if needed.
func (m *Manager) TranscribeFile(ctx context.Context, path string, opts Options) (string, error) {
	h, err := m.ensureLoaded(ctx)
	if err != nil {
		return "", err
	}
	m.MarkUsed()
	return h.TranscribeFile(ctx, path, opts)
}

// MarkUsed records activity and pushes the idle deadline out.
func (m *Manager) MarkUsed() {
	m.idleMu.Lock()
	defer m.idleMu.Unlock()
	m.lastUse = time.Now()
	m.rescheduleLocked()
}

// Close stops the idle timer and releases the handle.
func (m *Manager) Close() error {
	m.idleMu.Lock()
	m.idleGen++
	if m.idleTimer != nil {
		m.idleTimer.Stop()
		m.idleTimer = nil
	}
	m.idleMu.Unlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.handle == nil {
		return nil
	}
	err := m.handle.Close()
	m.handle = nil
	m.loadedID = ""
	return err
}

func (m *Manager) ensureLoaded(ctx context.Context) (Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.currentID
	if id == "" {
		return nil, fmt.Errorf("no model selected")
	}
	if m.handle != nil && m.loadedID == id {
		return m.handle, nil
	}

	m.loadOps.Add(1)
	defer m.loadOps.Add(-1)
	path, err := EnsureModel(ctx, m.modelsDir, id)
	if err != nil {
		return nil, err
	}
	if err := m.loadLocked(ctx, id, path); err != nil {
		return nil, err
	}
	return m.handle, nil
}

// loadLocked swaps in a fresh handle. Caller holds mu.
func (m *Manager) loadLocked(ctx context.Context, id, path string) error {
	start := time.Now()
	h, err := m.engine.Load(ctx, path)
	if err != nil {
		return fmt.Errorf("load model %s: %w", id, err)
	}
	if m.handle != nil {
		m.handle.Close()
	}
	m.handle = h
	m.loadedID = id
	slog.Info("model loaded", "model", id, "took", time.Since(start))
	return nil
}

// rescheduleLocked restarts the idle timer. Caller holds idleMu. The
// generation counter invalidates timers that fire after a reschedule
// raced them.
func (m *Manager) rescheduleLocked() {
	m.idleGen++
	if m.idleTimer != nil {
		m.idleTimer.Stop()
		m.idleTimer = nil
	}
	if m.idleFor <= 0 {
		return
	}
	gen := m.idleGen
	m.idleTimer = time.AfterFunc(m.idleFor, func() { m.idleCheck(gen) })
}

func (m *Manager) idleCheck(gen uint64) {
	m.idleMu.Lock()
	if gen != m.idleGen || m.idleFor <= 0 {
		m.idleMu.Unlock()
		return
	}
	if remaining := m.idleFor - time.Since(m.lastUse); remaining > 0 {
		gen = m.idleGen + 1
		m.idleGen = gen
		m.idleTimer = time.AfterFunc(remaining, func() { m.idleCheck(gen) })
		m.idleMu.Unlock()
		return
	}
	if m.busy() || m.Loading() {
		// Work is still in flight; check again after a full period.
		gen = m.idleGen + 1
		m.idleGen = gen
		m.idleTimer = time.AfterFunc(m.idleFor, func() { m.idleCheck(gen) })
		m.idleMu.Unlock()
		return
	}
	m.idleTimer = nil
	m.idleMu.Unlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.handle == nil {
		return
	}
	m.handle.Close()
	m.handle = nil
	id := m.loadedID
	m.loadedID = ""
	slog.Info("model unloaded after idle timeout", "model", id)
}
