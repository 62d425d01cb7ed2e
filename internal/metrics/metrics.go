// Package metrics exposes prometheus instrumentation for the capture
// sessions. Collectors are registered at package init; the debug listener
// only starts when CAPTURE_TRAY_METRICS_ADDR is set.
package metrics

import (
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	// ActualFPS is the smoothed measured frame rate of the video session.
	ActualFPS = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "capture_actual_fps",
		Help: "Measured video frame rate, averaged over a half-second window",
	})

	// AudioResyncs counts audio restarts, by trigger.
	AudioResyncs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "capture_audio_resyncs_total",
		Help: "Audio capture restarts performed to clear drift artifacts",
	}, []string{"trigger"}) // "manual" or "scheduled"

	// SettingsSaves counts settings-file writes.
	SettingsSaves = promauto.NewCounter(prometheus.CounterOpts{
		Name: "capture_settings_saves_total",
		Help: "Settings snapshots persisted to disk",
	})

	// DeviceOpenFailures counts failed device acquisitions, by kind.
	DeviceOpenFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "capture_device_open_failures_total",
		Help: "Capture devices that failed to open",
	}, []string{"kind"}) // "video" or "audio"
)

// ListenAddrEnv names the environment variable enabling the debug listener.
const ListenAddrEnv = "CAPTURE_TRAY_METRICS_ADDR"

// ServeIfConfigured starts the /metrics listener when the environment asks
// for one. Errors are logged, never fatal.
func ServeIfConfigured(log zerolog.Logger) {
	addr := os.Getenv(ListenAddrEnv)
	if addr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		log.Info().Str("addr", addr).Msg("Metrics listener started")
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Error().Err(err).Msg("Metrics listener stopped")
		}
	}()
}
