package hotkey

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.design/x/hotkey"
)

// Fixed accelerator table. Ctrl+Shift avoids colliding with plain typing
// in whatever window has focus.
func binding(intent Intent) ([]hotkey.Modifier, hotkey.Key, error) {
	mods := []hotkey.Modifier{hotkey.ModCtrl, hotkey.ModShift}
	switch intent {
	case ToggleSettingsPanel:
		return mods, hotkey.KeyS, nil
	case ToggleFullscreen:
		return mods, hotkey.KeyF, nil
	case VolumeUp:
		return mods, hotkey.KeyUp, nil
	case VolumeDown:
		return mods, hotkey.KeyDown, nil
	case ToggleMute:
		return mods, hotkey.KeyM, nil
	case ManualSync:
		return mods, hotkey.KeyR, nil
	}
	return nil, 0, fmt.Errorf("no binding for intent %s", intent)
}

type manager struct {
	log zerolog.Logger

	mu   sync.Mutex
	keys []*hotkey.Hotkey
}

// New creates a global hotkey manager.
func New(log zerolog.Logger) (Manager, error) {
	return &manager{log: log}, nil
}

func (m *manager) Register(intent Intent, callback func()) error {
	mods, key, err := binding(intent)
	if err != nil {
		return err
	}

	hk := hotkey.New(mods, key)
	if err := hk.Register(); err != nil {
		return fmt.Errorf("failed to register %s: %w", intent, err)
	}

	m.mu.Lock()
	m.keys = append(m.keys, hk)
	m.mu.Unlock()

	// Keydown closes when the hotkey is unregistered.
	go func() {
		for range hk.Keydown() {
			m.log.Debug().Stringer("intent", intent).Msg("Hotkey fired")
			callback()
		}
	}()

	return nil
}

func (m *manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, hk := range m.keys {
		hk.Unregister()
	}
	m.keys = nil
	return nil
}
