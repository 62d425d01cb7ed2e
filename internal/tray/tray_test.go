package tray

import (
	"sync"
	"testing"

	"github.com/petems/capture-tray/internal/config"
	"github.com/stretchr/testify/assert"
)

// The menus are built from these tables; a bad preset would silently wedge
// a submenu, so keep them honest here.

func TestResolutionPresetsAreValid(t *testing.T) {
	seen := make(map[string]bool)
	for _, p := range resolutionPresets {
		assert.Positive(t, p.w, p.label)
		assert.Positive(t, p.h, p.label)
		assert.Positive(t, p.fps, p.label)
		assert.False(t, seen[p.label], "duplicate preset %s", p.label)
		seen[p.label] = true
	}
}

func TestDefaultModeHasAPreset(t *testing.T) {
	def := config.Defaults()

	found := false
	for _, p := range resolutionPresets {
		if p.w == def.Resolution.X && p.h == def.Resolution.Y && p.fps == def.FPS {
			found = true
		}
	}
	assert.True(t, found, "default capture mode must be selectable from the tray")
}

func TestSyncFrequencyPresetsArePositive(t *testing.T) {
	for _, m := range syncFrequencyPresets {
		assert.Positive(t, m)
	}

	def := config.Defaults()
	assert.Contains(t, syncFrequencyPresets, def.AudioSyncFrequencyMinutes)
}

// SettingsChanged arrives from app goroutines while the event loop reads
// the current settings. Run under the race detector.
func TestSettingsChangedRacesAgainstReads(t *testing.T) {
	u := New(nil, config.Defaults(), nil, "test", "none")

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				u.SettingsChanged(config.Defaults())
				_ = u.settings().AudioSyncEnabled
			}
		}()
	}
	wg.Wait()

	assert.NotNil(t, u.settings())
}
