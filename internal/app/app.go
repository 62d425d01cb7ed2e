package app

import (
	"context"
	"sync"
	"time"

	"github.com/petems/capture-tray/internal/audio"
	"github.com/petems/capture-tray/internal/config"
	"github.com/petems/capture-tray/internal/metrics"
	"github.com/petems/capture-tray/internal/video"
	"github.com/rs/zerolog"
)

// volumeStep is the increment applied by the volume hotkeys.
const volumeStep = 0.1

// VideoSession is the video capture half of the coordinator.
type VideoSession interface {
	Configure(deviceName string, requested video.Mode) error
	ChangeResolution(width, height int) error
	ChangeFrameRate(fps int) error
	Stop()
	ActualFrameRate() float64
	ListDevices() ([]video.Device, error)
}

// AudioSession is the audio capture half of the coordinator.
type AudioSession interface {
	Configure(deviceName string) error
	SetVolume(v float64)
	Volume() float64
	Muted() bool
	ToggleMute()
	Restart() error
	Pause()
	Resume()
	Stop()
	ListDevices() ([]audio.Device, error)
}

// Store persists the settings record.
type Store interface {
	Load() *config.Settings
	Save(*config.Settings)
}

// Scheduler arms the periodic audio resync.
type Scheduler interface {
	Start(interval time.Duration)
	Stop()
}

// Notifier is the UI collaborator's callback surface. Optional - can be nil.
type Notifier interface {
	// DeviceError reports a non-fatal device failure; kind is "video" or
	// "audio".
	DeviceError(kind, device string, err error)
	// SettingsChanged announces a persisted settings snapshot.
	SettingsChanged(*config.Settings)
	// ShowSettingsPanel asks the UI to toggle its settings surface.
	ShowSettingsPanel()
}

type Config struct {
	Store     Store
	Video     VideoSession
	Audio     AudioSession
	Scheduler Scheduler
	Logger    zerolog.Logger
	Notifier  Notifier
}

// App coordinates the sessions, the scheduler and the settings store.
// Every user intent mutates the relevant session, then persists the full
// settings snapshot.
type App struct {
	store     Store
	video     VideoSession
	audio     AudioSession
	scheduler Scheduler
	log       zerolog.Logger
	notifier  Notifier

	mu       sync.Mutex
	settings *config.Settings
}

func New(cfg Config) *App {
	return &App{
		store:     cfg.Store,
		video:     cfg.Video,
		audio:     cfg.Audio,
		scheduler: cfg.Scheduler,
		log:       cfg.Logger,
		notifier:  cfg.Notifier,
		settings:  config.Defaults(),
	}
}

// ApplySettings feeds a loaded settings record into both sessions and
// arms the sync timer if enabled. Device failures are reported and the
// affected session stays in the no-device state.
func (a *App) ApplySettings(s *config.Settings) {
	a.mu.Lock()
	defer a.mu.Unlock()

	s.Normalize()
	a.settings = s

	a.configureVideoLocked()
	a.configureAudioLocked()
	a.audio.SetVolume(s.Volume)

	if s.AudioSyncEnabled {
		a.scheduler.Start(time.Duration(s.AudioSyncFrequencyMinutes) * time.Minute)
	}
}

func (a *App) configureVideoLocked() {
	s := a.settings
	mode := video.Mode{Width: s.Resolution.X, Height: s.Resolution.Y, FPS: s.FPS}
	if err := a.video.Configure(s.CaptureCardName, mode); err != nil {
		a.log.Error().Err(err).Str("device", s.CaptureCardName).Msg("Video device failed")
		metrics.DeviceOpenFailures.WithLabelValues("video").Inc()
		if a.notifier != nil {
			a.notifier.DeviceError("video", s.CaptureCardName, err)
		}
	}
}

func (a *App) configureAudioLocked() {
	s := a.settings
	if err := a.audio.Configure(s.AudioDeviceName); err != nil {
		a.log.Error().Err(err).Str("device", s.AudioDeviceName).Msg("Audio device failed")
		metrics.DeviceOpenFailures.WithLabelValues("audio").Inc()
		if a.notifier != nil {
			a.notifier.DeviceError("audio", s.AudioDeviceName, err)
		}
	}
}

// persistLocked writes the full settings snapshot. Called after every
// mutation; the write volume is low enough that the simple policy wins.
func (a *App) persistLocked() {
	a.store.Save(a.settings)
	metrics.SettingsSaves.Inc()
	if a.notifier != nil {
		a.notifier.SettingsChanged(a.snapshotLocked())
	}
}

func (a *App) snapshotLocked() *config.Settings {
	snapshot := *a.settings
	return &snapshot
}

// Settings returns a copy of the current settings record.
func (a *App) Settings() *config.Settings {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshotLocked()
}

// OnDeviceChanged switches the video capture card.
func (a *App) OnDeviceChanged(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.settings.CaptureCardName = name
	a.configureVideoLocked()
	a.persistLocked()
}

// OnAudioDeviceChanged switches the audio capture device.
func (a *App) OnAudioDeviceChanged(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.settings.AudioDeviceName = name
	a.configureAudioLocked()
	a.audio.SetVolume(a.settings.Volume)
	a.persistLocked()
}

// OnResolutionChanged restarts video capture at a new resolution.
func (a *App) OnResolutionChanged(width, height int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if width <= 0 || height <= 0 {
		return
	}
	if err := a.video.ChangeResolution(width, height); err != nil {
		a.log.Error().Err(err).Msg("Resolution change failed")
	}
	a.settings.Resolution = config.Size{X: width, Y: height}
	a.persistLocked()
}

// OnFrameRateChanged restarts video capture at a new frame rate.
func (a *App) OnFrameRateChanged(fps int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if fps <= 0 {
		return
	}
	if err := a.video.ChangeFrameRate(fps); err != nil {
		a.log.Error().Err(err).Msg("Frame rate change failed")
	}
	a.settings.FPS = fps
	a.persistLocked()
}

// OnVolumeChanged sets the playback volume.
func (a *App) OnVolumeChanged(v float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.setVolumeLocked(v)
}

func (a *App) setVolumeLocked(v float64) {
	a.audio.SetVolume(v)
	a.settings.Volume = a.audio.Volume() // clamped by the session
	a.persistLocked()
}

// OnVolumeStep nudges the volume up or down by 10%.
func (a *App) OnVolumeStep(up bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	delta := volumeStep
	if !up {
		delta = -volumeStep
	}
	a.setVolumeLocked(a.audio.Volume() + delta)
}

// OnMuteToggled flips the mute state.
func (a *App) OnMuteToggled() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.audio.ToggleMute()
	a.settings.Volume = a.audio.Volume()
	a.persistLocked()
}

// OnAudioSyncToggled enables or disables the periodic audio resync.
func (a *App) OnAudioSyncToggled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.settings.AudioSyncEnabled = enabled
	if enabled {
		a.scheduler.Start(time.Duration(a.settings.AudioSyncFrequencyMinutes) * time.Minute)
	} else {
		a.scheduler.Stop()
	}
	a.persistLocked()
}

// OnAudioSyncFrequencyChanged rearms the resync timer at a new interval.
func (a *App) OnAudioSyncFrequencyChanged(minutes int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if minutes <= 0 {
		return
	}
	a.settings.AudioSyncFrequencyMinutes = minutes
	if a.settings.AudioSyncEnabled {
		a.scheduler.Start(time.Duration(minutes) * time.Minute)
	}
	a.persistLocked()
}

// OnManualSync restarts audio capture on demand.
func (a *App) OnManualSync() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.audio.Restart(); err != nil {
		a.log.Error().Err(err).Msg("Manual audio restart failed")
		if a.notifier != nil {
			a.notifier.DeviceError("audio", a.settings.AudioDeviceName, err)
		}
	} else {
		metrics.AudioResyncs.WithLabelValues("manual").Inc()
	}
	a.persistLocked()
}

// OnFullscreenToggled records the window chrome state.
func (a *App) OnFullscreenToggled() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.settings.Fullscreen = !a.settings.Fullscreen
	a.persistLocked()
}

// OnWindowResized records the windowed size.
func (a *App) OnWindowResized(width, height int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if width <= 0 || height <= 0 {
		return
	}
	a.settings.WindowSize = config.Size{X: width, Y: height}
	a.persistLocked()
}

// OnToggleSettingsPanel forwards the panel intent to the UI collaborator.
func (a *App) OnToggleSettingsPanel() {
	if a.notifier != nil {
		a.notifier.ShowSettingsPanel()
	}
}

// Suspend pauses audio playback when the process is backgrounded.
func (a *App) Suspend() {
	a.audio.Pause()
}

// Resume unpauses audio playback.
func (a *App) Resume() {
	a.audio.Resume()
}

// ListVideoDevices enumerates capture cards for the UI.
func (a *App) ListVideoDevices() ([]video.Device, error) {
	return a.video.ListDevices()
}

// ListAudioDevices enumerates audio inputs for the UI.
func (a *App) ListAudioDevices() ([]audio.Device, error) {
	return a.audio.ListDevices()
}

// ActualFrameRate reports the measured video frame rate for the UI.
func (a *App) ActualFrameRate() float64 {
	return a.video.ActualFrameRate()
}

// Muted reports the audio mute state for the UI.
func (a *App) Muted() bool {
	return a.audio.Muted()
}

// Shutdown stops the scheduler and both sessions and persists settings
// one final time.
func (a *App) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.scheduler.Stop()
	a.audio.Stop()
	a.video.Stop()
	a.persistLocked()

	a.log.Info().Msg("Sessions stopped, settings flushed")
	return nil
}
