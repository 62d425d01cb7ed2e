package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStoreAt(filepath.Join(t.TempDir(), "settings.json"), zerolog.Nop())
}

func TestDefaults(t *testing.T) {
	s := Defaults()

	assert.Equal(t, Size{X: 1920, Y: 1080}, s.Resolution)
	assert.Equal(t, 60, s.FPS)
	assert.Equal(t, AspectFitInParent, s.AspectRatioMode)
	assert.Equal(t, 0.5, s.Volume)
	assert.False(t, s.AudioSyncEnabled)
	assert.Equal(t, 5, s.AudioSyncFrequencyMinutes)
	assert.False(t, s.Fullscreen)
	assert.Equal(t, Size{X: 1280, Y: 720}, s.WindowSize)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	st := newTestStore(t)

	want := &Settings{
		CaptureCardName:           "USB Video",
		Resolution:                Size{X: 1280, Y: 720},
		FPS:                       30,
		AspectRatioMode:           AspectEnvelopeParent,
		AudioDeviceName:           "USB Audio",
		Volume:                    0.8,
		AudioSyncEnabled:          true,
		AudioSyncFrequencyMinutes: 15,
		Fullscreen:                true,
		WindowSize:                Size{X: 1600, Y: 900},
	}
	st.Save(want)

	got := st.Load()
	assert.Equal(t, want, got)
}

func TestLoadMissingFilePersistsDefaults(t *testing.T) {
	st := newTestStore(t)

	s := st.Load()
	assert.Equal(t, Defaults(), s)

	// The implicit save means the file now exists.
	_, err := os.Stat(st.Path())
	require.NoError(t, err)

	assert.Equal(t, Defaults(), st.Load())
}

func TestLoadMalformedFileReturnsDefaults(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(st.Path()), 0755))
	require.NoError(t, os.WriteFile(st.Path(), []byte("{not json"), 0644))

	s := st.Load()
	assert.Equal(t, Defaults(), s)

	// The malformed file is left in place, not overwritten.
	data, err := os.ReadFile(st.Path())
	require.NoError(t, err)
	assert.Equal(t, "{not json", string(data))
}

func TestLoadNormalizesOutOfRangeValues(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(st.Path()), 0755))
	raw := `{"captureCardName":"USB Video","resolution":{"x":-1,"y":0},"fps":0,"volume":3.5,"audioSyncFrequencyMinutes":-2,"windowSize":{"x":800,"y":600}}`
	require.NoError(t, os.WriteFile(st.Path(), []byte(raw), 0644))

	s := st.Load()
	assert.Equal(t, "USB Video", s.CaptureCardName)
	assert.Equal(t, Size{X: 1920, Y: 1080}, s.Resolution)
	assert.Equal(t, 60, s.FPS)
	assert.Equal(t, 1.0, s.Volume)
	assert.Equal(t, 5, s.AudioSyncFrequencyMinutes)
	assert.Equal(t, Size{X: 800, Y: 600}, s.WindowSize)
}

func TestNormalizeClampsVolume(t *testing.T) {
	for _, tc := range []struct {
		in, want float64
	}{
		{-0.5, 0}, {0, 0}, {0.3, 0.3}, {1, 1}, {1.7, 1},
	} {
		s := Defaults()
		s.Volume = tc.in
		s.Normalize()
		assert.Equal(t, tc.want, s.Volume, "volume %v", tc.in)
	}
}

func TestPersistedKeysAreStable(t *testing.T) {
	st := newTestStore(t)
	st.Save(Defaults())

	data, err := os.ReadFile(st.Path())
	require.NoError(t, err)

	var keys map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &keys))

	for _, k := range []string{
		"captureCardName", "resolution", "fps", "aspectRatioMode",
		"audioDeviceName", "volume", "audioSyncEnabled",
		"audioSyncFrequencyMinutes", "fullscreen", "windowSize",
	} {
		assert.Contains(t, keys, k)
	}
	assert.Len(t, keys, 10)
}

func TestResetOverwritesFile(t *testing.T) {
	st := newTestStore(t)

	s := st.Load()
	s.Volume = 0.9
	s.CaptureCardName = "USB Video"
	st.Save(s)

	got := st.Reset()
	assert.Equal(t, Defaults(), got)
	assert.Equal(t, Defaults(), st.Load())
}

func TestDeleteIsIdempotent(t *testing.T) {
	st := newTestStore(t)
	st.Save(Defaults())

	st.Delete()
	_, err := os.Stat(st.Path())
	assert.True(t, os.IsNotExist(err))

	// Second delete on a missing file is a no-op.
	st.Delete()
}
