// Package metrics exposes the tick driver's health as Prometheus gauges,
// histograms, and counters on an internal /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"net/http"
)

var (
	TickDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "tidewar",
		Name:      "tick_duration_seconds",
		Help:      "Wall-clock duration of a named tick-driver phase.",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14),
	}, []string{"phase"})

	EntityCount = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "tidewar",
		Name:      "entities",
		Help:      "Number of entities currently in the world.",
	})

	PlayerCount = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "tidewar",
		Name:      "players",
		Help:      "Number of connected human players.",
	})

	BotCount = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "tidewar",
		Name:      "bots",
		Help:      "Number of connected bot clients.",
	})

	WorldRadius = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "tidewar",
		Name:      "world_radius_meters",
		Help:      "Current interpolated world radius.",
	})

	DroppedFrames = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tidewar",
		Name:      "dropped_frames_total",
		Help:      "Updates dropped due to client backpressure, by reason.",
	}, []string{"reason"})

	TicksSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tidewar",
		Name:      "ticks_skipped_total",
		Help:      "Tick-driver iterations skipped because the process fell behind.",
	})
)

func SetEntityCount(n int)   { EntityCount.Set(float64(n)) }
func SetPlayerCount(n int)   { PlayerCount.Set(float64(n)) }
func SetBotCount(n int)      { BotCount.Set(float64(n)) }
func SetWorldRadius(r float64) { WorldRadius.Set(r) }

func RecordDroppedFrame(reason string) { DroppedFrames.WithLabelValues(reason).Inc() }
func RecordTickSkipped()               { TicksSkipped.Inc() }

// Handler returns the HTTP handler to mount at /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
