// Package app wires the dictation pipeline together.
package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/voxkey/voxkey/audiocapture"
	"github.com/voxkey/voxkey/clipboard"
	"github.com/voxkey/voxkey/config"
	"github.com/voxkey/voxkey/history"
	"github.com/voxkey/voxkey/hotkey"
	"github.com/voxkey/voxkey/internal/types"
	"github.com/voxkey/voxkey/model"
	"github.com/voxkey/voxkey/paths"
	"github.com/voxkey/voxkey/postprocess"
	"github.com/voxkey/voxkey/transcribe"
)

const captureSampleRate = 16000

// hookRetryInterval paces Start retries while the accessibility
// permission is missing.
const hookRetryInterval = 5 * time.Second

// App runs the hotkey-to-clipboard dictation pipeline.
type App struct {
	cfg        *config.Config
	manager    *model.Manager
	controller *Controller
	monitor    *hotkey.Monitor
	orch       *transcribe.Orchestrator
	hist       *history.Store

	onStatus func(types.Status)
	cancel   context.CancelFunc
}

// New assembles the pipeline from configuration.
func New(cfg *config.Config) *App {
	a := &App{cfg: cfg, onStatus: func(types.Status) {}}

	a.manager = model.NewManager(model.NewWhisperCLI(), paths.ModelsDir())
	a.manager.SetModel(cfg.Model())
	if cfg.ModelIdleMinutes != nil {
		a.manager.SetIdleTimeout(time.Duration(*cfg.ModelIdleMinutes) * time.Minute)
	}

	var pp *postprocess.Client
	if cfg.Postprocess.Enabled {
		ppModel := cfg.Postprocess.Model
		if ppModel == "" {
			ppModel = postprocess.DefaultModel
		}
		pp = postprocess.NewClient(postprocess.Config{
			Enabled:      true,
			BaseURL:      cfg.Postprocess.BaseURL,
			Model:        ppModel,
			SystemPrompt: cfg.Postprocess.SystemPrompt,
			APIKey:       cfg.APIKey(),
		})
	}

	recorder := audiocapture.NewRecorder(paths.RecordsDir(), captureSampleRate)
	a.orch = transcribe.New(a.manager, transcribe.Options{
		SampleRate:       captureSampleRate,
		Language:         cfg.Language,
		SegmentOnSilence: true,
		Postprocess:      pp,
	})

	a.controller = newController(recorder, a.manager.Loading, a.commit)
	a.controller.onChange = a.notifyStatus

	// Keep the model resident while audio is being captured or
	// transcribed, even past the idle deadline.
	a.manager.SetBusy(func() bool {
		return a.controller.Recording() || a.orch.Active() > 0
	})

	a.monitor = hotkey.NewMonitor(a.controller.Toggle)
	a.monitor.Register(cfg.Hotkey)
	return a
}

// SetStatusFunc installs the status change callback. Must be called
// before Start.
func (a *App) SetStatusFunc(fn func(types.Status)) {
	if fn != nil {
		a.onStatus = fn
	}
}

// Status derives the externally visible state, recording taking
// priority over loading and transcription.
func (a *App) Status() types.Status {
	switch {
	case a.controller.Recording():
		return types.StatusRecording
	case a.manager.Loading():
		return types.StatusModelLoading
	case a.orch.Active() > 0:
		return types.StatusTranscribing
	default:
		return types.StatusIdle
	}
}

// Start opens the history store, warms the model up in the background
// and attaches the hotkey listener, retrying while the accessibility
// permission is missing.
func (a *App) Start(ctx context.Context) error {
	ctx, a.cancel = context.WithCancel(ctx)

	hist, err := history.Open(paths.HistoryDir())
	if err != nil {
		// Dictation still works without the index.
		slog.Warn("history store unavailable", "err", err)
	} else {
		a.hist = hist
		a.orch.SetHistory(hist)
	}

	go func() {
		if err := a.manager.WarmUp(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("model warmup failed", "model", a.cfg.Model(), "err", err)
		}
		a.notifyStatus()
	}()

	if err := a.monitor.Start(); err != nil {
		if !errors.Is(err, hotkey.ErrHookUnavailable) {
			return err
		}
		slog.Warn("hotkey hook unavailable, retrying", "interval", hookRetryInterval)
		go a.retryHook(ctx)
	}
	slog.Info("ready", "hotkey", hotkey.Format(a.cfg.Hotkey), "model", a.cfg.Model())
	return nil
}

func (a *App) retryHook(ctx context.Context) {
	ticker := time.NewTicker(hookRetryInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := a.monitor.Start()
			if err == nil {
				slog.Info("hotkey hook attached")
				return
			}
			if !errors.Is(err, hotkey.ErrHookUnavailable) {
				slog.Error("hotkey hook failed", "err", err)
				return
			}
		}
	}
}

// commit runs a finished recording through the pipeline and puts the
// transcript on the clipboard.
func (a *App) commit(path string) {
	go func() {
		a.notifyStatus()
		defer a.notifyStatus()

		record, err := a.orch.Run(context.Background(), path)
		if err != nil {
			slog.Error("transcription failed", "path", path, "err", err)
			return
		}
		if record.Text == "" {
			slog.Info("empty transcript, nothing to deliver", "path", path)
			return
		}
		if err := clipboard.Copy(record.Text); err != nil {
			slog.Error("could not copy transcript", "err", err)
		}
	}()
}

func (a *App) notifyStatus() {
	a.onStatus(a.Status())
}

// Close tears the pipeline down.
func (a *App) Close() error {
	if a.cancel != nil {
		a.cancel()
	}
	a.monitor.Stop()
	a.controller.Close()
	err := a.manager.Close()
	if a.hist != nil {
		if herr := a.hist.Close(); err == nil {
			err = herr
		}
	}
	return err
}
