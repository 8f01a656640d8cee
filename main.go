// Package main provides a manager for a virtual PulseAudio mixing device:
// it creates and supervises the virtual sink, renders a live waveform of
// its monitor stream, and guards device volume levels against outside
// interference.
//
// Usage:
//
//	virtmix [-config path/to/config.json]
//
// If -config is not specified, the manager looks for config.json in the
// same directory as the binary.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/virtmix/virtmix/internal/audio"
	"github.com/virtmix/virtmix/internal/config"
	"github.com/virtmix/virtmix/internal/events"
	"github.com/virtmix/virtmix/internal/guard"
	"github.com/virtmix/virtmix/internal/mixer"
	"github.com/virtmix/virtmix/internal/pactl"
	"github.com/virtmix/virtmix/internal/proc"
	"github.com/virtmix/virtmix/internal/types"
	"github.com/virtmix/virtmix/internal/util"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: config.json next to binary)")
	showVersion := flag.Bool("version", false, "Print version information and exit")
	flag.Parse()

	if *showVersion {
		slog.Info("version info", "version", Version, "commit", Commit, "build_time", BuildTime)
		return
	}

	if *configPath == "" {
		execPath, err := os.Executable()
		if err != nil {
			slog.Error("failed to get executable path", "error", err)
			os.Exit(1)
		}
		*configPath = filepath.Join(filepath.Dir(execPath), "config.json")
	}

	slog.Info("using config file", "path", *configPath)

	cfg := config.New(*configPath)
	if err := cfg.Load(); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	snap := cfg.Snapshot()

	// The external tools are hard requirements; without them no operation
	// can succeed, so report once and exit.
	pactlPath := util.ResolveTool("pactl", snap.PactlPath)
	if pactlPath == "" {
		slog.Error("pactl not found", "configured_path", snap.PactlPath)
		os.Exit(1)
	}
	parecPath := util.ResolveTool("parec", snap.ParecPath)
	if parecPath == "" {
		slog.Error("parec not found", "configured_path", snap.ParecPath)
		os.Exit(1)
	}
	if missing := util.CheckTools("bash"); len(missing) > 0 {
		slog.Error("required tools not found", "missing", missing)
		os.Exit(1)
	}
	if err := util.CheckScript(snap.ScriptPath); err != nil {
		slog.Error("lifecycle script check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("external tools found", "pactl", pactlPath, "parec", parecPath)

	eventLogPath := filepath.Join(filepath.Dir(*configPath), "events.log")
	eventLog, err := events.NewLogger(eventLogPath)
	if err != nil {
		slog.Error("failed to open event log", "path", eventLogPath, "error", err)
		os.Exit(1)
	}

	ctl := pactl.New(pactlPath)
	sup := proc.NewSupervisor()
	mgr := mixer.New(cfg, ctl, sup, eventLog)
	capture := audio.NewScheduler(func(device string) (audio.SampleSource, error) {
		return audio.OpenParec(sup, parecPath, device)
	})
	mixerGuard := guard.New(guard.KindSink, ctl)
	micGuard := guard.New(guard.KindSource, ctl)

	srv := NewServer(cfg, mgr, capture, ctl, mixerGuard, micGuard, eventLog)

	// Start web server.
	httpServer := srv.Start()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, util.ShutdownSignals()...)
	<-sigChan

	slog.Info("shutting down")

	// Stop version checker goroutine
	srv.version.Stop()

	// Shut down HTTP server.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), types.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	mixerGuard.Disarm()
	micGuard.Disarm()

	if err := capture.Stop(); err != nil {
		slog.Error("error stopping capture", "error", err)
	}

	mgr.Shutdown()

	if err := eventLog.Close(); err != nil {
		slog.Error("error closing event log", "error", err)
	}

	slog.Info("shutdown complete")
}
