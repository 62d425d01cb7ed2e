package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/petems/capture-tray/internal/app"
	"github.com/petems/capture-tray/internal/audio"
	"github.com/petems/capture-tray/internal/config"
	"github.com/petems/capture-tray/internal/hotkey"
	"github.com/petems/capture-tray/internal/logging"
	"github.com/petems/capture-tray/internal/metrics"
	"github.com/petems/capture-tray/internal/permissions"
	"github.com/petems/capture-tray/internal/resync"
	"github.com/petems/capture-tray/internal/tray"
	"github.com/petems/capture-tray/internal/video"
)

var (
	// Version is set via ldflags at build time
	Version = "dev"
	// Commit is set via ldflags at build time
	Commit = "unknown"
)

func main() {
	log := logging.New()

	// macOS requires explicit camera + microphone approval before capture works
	if err := permissions.EnsurePermissions(); err != nil {
		log.Fatal().Err(err).Msg("Required permissions not granted")
	}

	metrics.ServeIfConfigured(log)

	store := config.NewStore(log)
	settings := store.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize audio capture
	audioBackend, err := audio.NewPortAudio()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize audio")
	}
	defer audioBackend.Close()
	audioSession := audio.NewSession(audioBackend, log)

	// Initialize video capture; the display window binds its own sink,
	// the drain keeps frames flowing until then.
	videoBackend, err := video.NewV4L2()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize video")
	}
	videoSession := video.NewSession(videoBackend, video.NewDrainSink(log), log)

	scheduler := resync.New(audioSession, log)

	// Create tray UI first (we'll pass it to app)
	trayUI := tray.New(nil, settings, store, Version, Commit) // App reference set below

	// Create app with tray as notifier
	application := app.New(app.Config{
		Store:     store,
		Video:     videoSession,
		Audio:     audioSession,
		Scheduler: scheduler,
		Logger:    log,
		Notifier:  trayUI,
	})

	// Set app reference in tray
	trayUI.SetApp(application)

	application.ApplySettings(settings)

	// Register global hotkeys; failures are logged, never fatal
	hkManager, err := hotkey.New(log)
	if err != nil {
		log.Error().Err(err).Msg("Failed to initialize hotkeys")
	} else {
		defer hkManager.Close()
		bindings := map[hotkey.Intent]func(){
			hotkey.ToggleSettingsPanel: application.OnToggleSettingsPanel,
			hotkey.ToggleFullscreen:    application.OnFullscreenToggled,
			hotkey.VolumeUp:            func() { application.OnVolumeStep(true) },
			hotkey.VolumeDown:          func() { application.OnVolumeStep(false) },
			hotkey.ToggleMute:          application.OnMuteToggled,
			hotkey.ManualSync:          application.OnManualSync,
		}
		for _, intent := range hotkey.Intents() {
			if err := hkManager.Register(intent, bindings[intent]); err != nil {
				log.Warn().Err(err).Stringer("intent", intent).Msg("Hotkey registration failed")
			}
		}
	}

	log.Info().Str("version", Version).Msg("capture-tray starting...")

	// Setup shutdown signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("Shutting down...")
		if err := application.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("Shutdown error")
		}
		os.Exit(0)
	}()

	// Start tray UI - MUST run on main thread
	if err := trayUI.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("Tray error")
	}
}
