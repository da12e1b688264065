package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"

	"github.com/voxkey/voxkey/config"
	"github.com/voxkey/voxkey/history"
	"github.com/voxkey/voxkey/internal/app"
	"github.com/voxkey/voxkey/internal/types"
	"github.com/voxkey/voxkey/model"
	"github.com/voxkey/voxkey/paths"
)

func main() {
	listModels := flag.Bool("models", false, "list available models and exit")
	showHistory := flag.Int("history", 0, "print the N most recent transcripts and exit")
	flag.Parse()

	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      slog.LevelInfo,
		TimeFormat: time.Kitchen,
	})))

	if *listModels {
		printModels()
		return
	}
	if *showHistory > 0 {
		printHistory(*showHistory)
		return
	}

	cfg, err := config.Load(paths.ConfigPath())
	if err != nil {
		slog.Error("could not load config", "path", paths.ConfigPath(), "err", err)
		os.Exit(1)
	}

	a := app.New(cfg)
	a.SetStatusFunc(func(s types.Status) {
		slog.Info("status", "state", s)
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Start(ctx); err != nil {
		slog.Error("could not start", "err", err)
		os.Exit(1)
	}

	<-ctx.Done()
	slog.Info("shutting down")
	if err := a.Close(); err != nil {
		slog.Error("shutdown error", "err", err)
	}
}

// printModels lists the model catalog, marking downloaded entries.
func printModels() {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	entries, err := model.FetchCatalog(ctx, paths.ModelsDir())
	if err != nil {
		slog.Warn("model hub unreachable, showing bundled catalog", "err", err)
	}
	for _, e := range entries {
		mark := " "
		if e.Downloaded {
			mark = "*"
		}
		if e.Description != "" {
			fmt.Printf("%s %-12s %s\n", mark, e.ID, e.Description)
		} else {
			fmt.Printf("%s %s\n", mark, e.ID)
		}
	}

	files, err := model.ListDownloaded(paths.ModelsDir())
	if err != nil {
		slog.Warn("could not list downloaded model files", "err", err)
		return
	}
	for _, f := range files {
		fmt.Printf("  on disk: %s\n", f)
	}
}

// printHistory dumps the most recent transcript entries.
func printHistory(n int) {
	store, err := history.Open(paths.HistoryDir())
	if err != nil {
		slog.Error("could not open history", "err", err)
		os.Exit(1)
	}
	defer store.Close()

	entries, err := store.Recent(n)
	if err != nil {
		slog.Error("could not read history", "err", err)
		os.Exit(1)
	}
	for _, e := range entries {
		lang := e.Language
		if lang == "" {
			lang = "?"
		}
		fmt.Printf("%s  [%s]  %s\n", e.CreatedAt.Format(time.DateTime), lang, e.Text)
	}
}
