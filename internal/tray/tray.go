package tray

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/atotto/clipboard"
	"github.com/getlantern/systray"
	"github.com/petems/capture-tray/internal/app"
	"github.com/petems/capture-tray/internal/audio"
	"github.com/petems/capture-tray/internal/config"
	"github.com/petems/capture-tray/internal/logging"
	"github.com/petems/capture-tray/internal/video"
	"github.com/rs/zerolog"
)

// resolutionPresets are the modes offered in the tray menu. Anything else
// goes through the external settings panel.
var resolutionPresets = []struct {
	label string
	w, h  int
	fps   int
}{
	{"1920x1080 @60", 1920, 1080, 60},
	{"1920x1080 @30", 1920, 1080, 30},
	{"1280x720 @60", 1280, 720, 60},
	{"1280x720 @30", 1280, 720, 30},
	{"640x480 @30", 640, 480, 30},
}

var syncFrequencyPresets = []int{1, 5, 15, 30, 60}

type UI struct {
	app     *app.App
	store   *config.Store
	version string
	commit  string
	log     zerolog.Logger

	// cfg is replaced by SettingsChanged from app goroutines while the
	// event loop reads it.
	cfgMu sync.Mutex
	cfg   *config.Settings

	// Menu items
	mVideoDevices *systray.MenuItem
	mAudioDevices *systray.MenuItem
	mResolution   *systray.MenuItem
	mMute         *systray.MenuItem
	mSync         *systray.MenuItem
	mSyncFreq     *systray.MenuItem
	mSyncNow      *systray.MenuItem
}

func New(application *app.App, cfg *config.Settings, store *config.Store, version, commit string) *UI {
	log := logging.New()
	return &UI{
		app:     application,
		cfg:     cfg,
		store:   store,
		version: version,
		commit:  commit,
		log:     log,
	}
}

// SetApp sets the app reference (for circular dependency resolution)
func (u *UI) SetApp(application *app.App) {
	u.app = application
}

func (u *UI) Run(ctx context.Context) error {
	systray.Run(u.onReady, u.onExit)
	return nil
}

// app.Notifier implementation

func (u *UI) DeviceError(kind, device string, err error) {
	u.log.Error().Err(err).Str("kind", kind).Str("device", device).Msg("Device error")
	systray.SetTooltip(fmt.Sprintf("%s device %q unavailable", kind, device))
	u.updateStatus("error")
}

func (u *UI) settings() *config.Settings {
	u.cfgMu.Lock()
	defer u.cfgMu.Unlock()
	return u.cfg
}

func (u *UI) SettingsChanged(s *config.Settings) {
	u.cfgMu.Lock()
	u.cfg = s
	u.cfgMu.Unlock()
	if u.mMute == nil {
		return // menu not built yet
	}
	if u.app.Muted() {
		u.mMute.Check()
	} else {
		u.mMute.Uncheck()
	}
	if s.AudioSyncEnabled {
		u.mSync.Check()
	} else {
		u.mSync.Uncheck()
	}
}

func (u *UI) ShowSettingsPanel() {
	// The settings panel lives in the host window, not the tray. Surface
	// the file path so a headless run still has a way in.
	u.log.Info().Str("path", u.store.Path()).Msg("Settings panel requested")
}

func (u *UI) updateStatus(status string) {
	switch status {
	case "live":
		systray.SetTitle("🟢")
	case "error":
		systray.SetTitle("🔴")
	default:
		systray.SetTitle("📺")
	}
}

func (u *UI) onReady() {
	u.updateStatus("idle")
	systray.SetTooltip("Capture card viewer")

	u.mVideoDevices = systray.AddMenuItem("Capture Card", "Select video device")
	u.buildVideoDeviceMenu()

	u.mAudioDevices = systray.AddMenuItem("Audio Input", "Select audio device")
	u.buildAudioDeviceMenu()

	u.mResolution = systray.AddMenuItem("Resolution", "Select capture mode")
	u.buildResolutionMenu()

	systray.AddSeparator()
	u.mMute = systray.AddMenuItemCheckbox("Mute", "Silence playback", u.app.Muted())
	u.mSync = systray.AddMenuItemCheckbox("Audio Sync", "Periodically restart audio capture", u.settings().AudioSyncEnabled)
	u.mSyncFreq = systray.AddMenuItem("Sync Frequency", "Minutes between audio restarts")
	u.buildSyncFrequencyMenu()
	u.mSyncNow = systray.AddMenuItem("Sync Now", "Restart audio capture")

	systray.AddSeparator()
	mDiag := systray.AddMenuItem("Copy Diagnostics", "Copy settings and paths to clipboard")
	mAbout := systray.AddMenuItem("About", "About capture-tray")
	mQuit := systray.AddMenuItem("Quit", "Exit application")

	// Event loop
	go u.handleEvents(mDiag, mAbout, mQuit)
}

func (u *UI) handleEvents(mDiag, mAbout, mQuit *systray.MenuItem) {
	for {
		select {
		case <-u.mMute.ClickedCh:
			u.app.OnMuteToggled()
		case <-u.mSync.ClickedCh:
			u.app.OnAudioSyncToggled(!u.settings().AudioSyncEnabled)
		case <-u.mSyncNow.ClickedCh:
			u.app.OnManualSync()
		case <-mDiag.ClickedCh:
			u.copyDiagnostics()
		case <-mAbout.ClickedCh:
			u.showAbout()
		case <-mQuit.ClickedCh:
			systray.Quit()
			return
		}
	}
}

func (u *UI) buildVideoDeviceMenu() {
	devices, err := u.app.ListVideoDevices()
	if err != nil {
		u.log.Error().Err(err).Msg("Failed to list video devices")
		return
	}

	names := []string{video.NoDevice}
	for _, dev := range devices {
		names = append(names, dev.Name)
	}

	cfg := u.settings()
	items := make(map[string]*systray.MenuItem)
	for _, name := range names {
		item := u.mVideoDevices.AddSubMenuItem(name, "")
		if name == cfg.CaptureCardName {
			item.Check()
		}
		items[name] = item
	}

	// Click loops range over all the items, so spawn them only once the
	// map is complete.
	for name, item := range items {
		go func(deviceName string, menuItem *systray.MenuItem) {
			for {
				<-menuItem.ClickedCh
				for n, itm := range items {
					if n != deviceName {
						itm.Uncheck()
					}
				}
				menuItem.Check()
				u.log.Info().Str("device", deviceName).Msg("Changed capture card")
				u.app.OnDeviceChanged(deviceName)
				if video.DeviceSelected(deviceName) {
					u.updateStatus("live")
				} else {
					u.updateStatus("idle")
				}
			}
		}(name, item)
	}
}

func (u *UI) buildAudioDeviceMenu() {
	devices, err := u.app.ListAudioDevices()
	if err != nil {
		u.log.Error().Err(err).Msg("Failed to list audio devices")
		return
	}

	names := []string{audio.NoDevice}
	for _, dev := range devices {
		names = append(names, dev.Name)
	}

	cfg := u.settings()
	items := make(map[string]*systray.MenuItem)
	for _, name := range names {
		item := u.mAudioDevices.AddSubMenuItem(name, "")
		if name == cfg.AudioDeviceName {
			item.Check()
		}
		items[name] = item
	}

	for name, item := range items {
		go func(deviceName string, menuItem *systray.MenuItem) {
			for {
				<-menuItem.ClickedCh
				for n, itm := range items {
					if n != deviceName {
						itm.Uncheck()
					}
				}
				menuItem.Check()
				u.log.Info().Str("device", deviceName).Msg("Changed audio device")
				u.app.OnAudioDeviceChanged(deviceName)
			}
		}(name, item)
	}
}

func (u *UI) buildResolutionMenu() {
	cfg := u.settings()
	items := make(map[string]*systray.MenuItem)
	for _, preset := range resolutionPresets {
		item := u.mResolution.AddSubMenuItem(preset.label, "")
		if preset.w == cfg.Resolution.X && preset.h == cfg.Resolution.Y && preset.fps == cfg.FPS {
			item.Check()
		}
		items[preset.label] = item
	}

	for _, preset := range resolutionPresets {
		preset := preset
		go func(menuItem *systray.MenuItem) {
			for {
				<-menuItem.ClickedCh
				for label, itm := range items {
					if label != preset.label {
						itm.Uncheck()
					}
				}
				menuItem.Check()
				u.log.Info().Str("mode", preset.label).Msg("Changed capture mode")
				u.app.OnResolutionChanged(preset.w, preset.h)
				u.app.OnFrameRateChanged(preset.fps)
			}
		}(items[preset.label])
	}
}

func (u *UI) buildSyncFrequencyMenu() {
	cfg := u.settings()
	items := make(map[int]*systray.MenuItem)
	for _, minutes := range syncFrequencyPresets {
		item := u.mSyncFreq.AddSubMenuItem(fmt.Sprintf("%d min", minutes), "")
		if minutes == cfg.AudioSyncFrequencyMinutes {
			item.Check()
		}
		items[minutes] = item
	}

	for minutes, item := range items {
		minutes := minutes
		go func(menuItem *systray.MenuItem) {
			for {
				<-menuItem.ClickedCh
				for m, itm := range items {
					if m != minutes {
						itm.Uncheck()
					}
				}
				menuItem.Check()
				u.app.OnAudioSyncFrequencyChanged(minutes)
			}
		}(item)
	}
}

func (u *UI) copyDiagnostics() {
	diag := struct {
		Version  string           `json:"version"`
		Commit   string           `json:"commit"`
		Settings *config.Settings `json:"settings"`
		Path     string           `json:"settingsPath"`
		Log      string           `json:"logPath"`
		FPS      float64          `json:"measuredFps"`
	}{
		Version:  u.version,
		Commit:   u.commit,
		Settings: u.app.Settings(),
		Path:     u.store.Path(),
		Log:      logging.LogPath(),
		FPS:      u.app.ActualFrameRate(),
	}

	data, err := json.MarshalIndent(diag, "", "  ")
	if err != nil {
		u.log.Error().Err(err).Msg("Failed to build diagnostics")
		return
	}
	if err := clipboard.WriteAll(string(data)); err != nil {
		u.log.Error().Err(err).Msg("Failed to copy diagnostics")
		return
	}
	u.log.Info().Msg("Diagnostics copied to clipboard")
}

func (u *UI) showAbout() {
	fmt.Printf("capture-tray %s (%s)\nCapture card viewer\n", u.version, u.commit)
}

func (u *UI) onExit() {
	// Cleanup
}
