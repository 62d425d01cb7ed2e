package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"

	"github.com/rs/zerolog"
)

// AspectRatioMode selects how the display sink fits the video frame.
type AspectRatioMode int

const (
	AspectNone AspectRatioMode = iota
	AspectWidthControlsHeight
	AspectHeightControlsWidth
	AspectFitInParent
	AspectEnvelopeParent
)

func (m AspectRatioMode) String() string {
	switch m {
	case AspectNone:
		return "None"
	case AspectWidthControlsHeight:
		return "WidthControlsHeight"
	case AspectHeightControlsWidth:
		return "HeightControlsWidth"
	case AspectFitInParent:
		return "FitInParent"
	case AspectEnvelopeParent:
		return "EnvelopeParent"
	}
	return "Unknown"
}

// Size is a width/height pair, persisted as {x,y}.
type Size struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Settings is the persisted configuration record. The key names are fixed;
// renaming one is a breaking change for existing installs.
type Settings struct {
	CaptureCardName           string          `json:"captureCardName"`
	Resolution                Size            `json:"resolution"`
	FPS                       int             `json:"fps"`
	AspectRatioMode           AspectRatioMode `json:"aspectRatioMode"`
	AudioDeviceName           string          `json:"audioDeviceName"`
	Volume                    float64         `json:"volume"`
	AudioSyncEnabled          bool            `json:"audioSyncEnabled"`
	AudioSyncFrequencyMinutes int             `json:"audioSyncFrequencyMinutes"`
	Fullscreen                bool            `json:"fullscreen"`
	WindowSize                Size            `json:"windowSize"`
}

// Defaults returns the first-run configuration.
func Defaults() *Settings {
	return &Settings{
		CaptureCardName:           "",
		Resolution:                Size{X: 1920, Y: 1080},
		FPS:                       60,
		AspectRatioMode:           AspectFitInParent,
		AudioDeviceName:           "",
		Volume:                    0.5,
		AudioSyncEnabled:          false,
		AudioSyncFrequencyMinutes: 5,
		Fullscreen:                false,
		WindowSize:                Size{X: 1280, Y: 720},
	}
}

// Normalize repairs out-of-range values in place: volume is clamped to
// [0,1]; non-positive resolution, fps and sync frequency fall back to
// defaults. A hand-edited file never reaches the sessions unchecked.
func (s *Settings) Normalize() {
	def := Defaults()
	if s.Volume < 0 {
		s.Volume = 0
	}
	if s.Volume > 1 {
		s.Volume = 1
	}
	if s.Resolution.X <= 0 || s.Resolution.Y <= 0 {
		s.Resolution = def.Resolution
	}
	if s.FPS <= 0 {
		s.FPS = def.FPS
	}
	if s.AudioSyncFrequencyMinutes <= 0 {
		s.AudioSyncFrequencyMinutes = def.AudioSyncFrequencyMinutes
	}
	if s.AspectRatioMode < AspectNone || s.AspectRatioMode > AspectEnvelopeParent {
		s.AspectRatioMode = def.AspectRatioMode
	}
	if s.WindowSize.X <= 0 || s.WindowSize.Y <= 0 {
		s.WindowSize = def.WindowSize
	}
}

// Store reads and writes the settings file. Load never fails: every error
// path degrades to defaults so the application always starts.
type Store struct {
	path string
	log  zerolog.Logger
}

// NewStore creates a store at the platform config path.
func NewStore(log zerolog.Logger) *Store {
	return NewStoreAt(DefaultPath(), log)
}

// NewStoreAt creates a store at an explicit path (used by tests).
func NewStoreAt(path string, log zerolog.Logger) *Store {
	return &Store{path: path, log: log}
}

func (st *Store) Path() string {
	return st.path
}

// Load reads the settings file. A missing file returns defaults and
// persists them so the next run finds a file; an unreadable or unparsable
// file returns defaults without persisting, leaving the broken file in
// place for inspection.
func (st *Store) Load() *Settings {
	data, err := os.ReadFile(st.path)
	if os.IsNotExist(err) {
		s := Defaults()
		st.Save(s)
		return s
	}
	if err != nil {
		st.log.Error().Err(err).Str("path", st.path).Msg("Failed to read settings, using defaults")
		return Defaults()
	}

	s := Defaults()
	if err := json.Unmarshal(data, s); err != nil {
		st.log.Error().Err(err).Str("path", st.path).Msg("Failed to parse settings, using defaults")
		return Defaults()
	}
	s.Normalize()
	return s
}

// Save writes the settings atomically: marshal, write a temp file in the
// same directory, rename over the target. Failures are logged, not
// surfaced; in-memory state stays authoritative.
func (st *Store) Save(s *Settings) {
	if err := st.save(s); err != nil {
		st.log.Error().Err(err).Str("path", st.path).Msg("Failed to save settings")
	}
}

func (st *Store) save(s *Settings) error {
	if err := os.MkdirAll(filepath.Dir(st.path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(st.path), ".settings-*.json")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), st.path)
}

// Reset overwrites the file with defaults and returns them.
func (st *Store) Reset() *Settings {
	s := Defaults()
	st.Save(s)
	return s
}

// Delete removes the settings file. No-op if it does not exist.
func (st *Store) Delete() {
	if err := os.Remove(st.path); err != nil && !os.IsNotExist(err) {
		st.log.Error().Err(err).Str("path", st.path).Msg("Failed to delete settings")
	}
}

// DefaultPath returns the platform-specific settings file path.
func DefaultPath() string {
	var base string

	switch runtime.GOOS {
	case "darwin":
		base = os.Getenv("HOME") + "/Library/Application Support"
	case "windows":
		base = os.Getenv("APPDATA")
	default: // linux
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = xdg
		} else {
			base = os.Getenv("HOME") + "/.config"
		}
	}

	return filepath.Join(base, "capture-tray", "settings.json")
}
