package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	refreshCycles    prometheus.Counter
	supersededCycles prometheus.Counter
	emptySessions    prometheus.Counter
	eventsIngested   prometheus.Counter
	eventDiagnostics prometheus.Counter
	framesCorrelated prometheus.Counter
	jankyFrames      prometheus.Counter
	profilesAttached prometheus.Counter
	profilesDropped  prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)
	return &metrics{
		refreshCycles: factory.NewCounter(prometheus.CounterOpts{
			Name: "devtools_session_refresh_cycles_total",
			Help: "Refresh cycles started.",
		}),
		supersededCycles: factory.NewCounter(prometheus.CounterOpts{
			Name: "devtools_session_superseded_cycles_total",
			Help: "Refresh cycles discarded because a newer cycle superseded them.",
		}),
		emptySessions: factory.NewCounter(prometheus.CounterOpts{
			Name: "devtools_session_empty_sessions_total",
			Help: "Refresh cycles whose fetch returned no events.",
		}),
		eventsIngested: factory.NewCounter(prometheus.CounterOpts{
			Name: "devtools_session_events_ingested_total",
			Help: "Raw trace events consumed by tree reconstruction.",
		}),
		eventDiagnostics: factory.NewCounter(prometheus.CounterOpts{
			Name: "devtools_session_event_diagnostics_total",
			Help: "Malformed or unterminated events recorded during reconstruction.",
		}),
		framesCorrelated: factory.NewCounter(prometheus.CounterOpts{
			Name: "devtools_session_frames_correlated_total",
			Help: "Render frames produced by frame correlation.",
		}),
		jankyFrames: factory.NewCounter(prometheus.CounterOpts{
			Name: "devtools_session_janky_frames_total",
			Help: "Correlated frames exceeding the refresh-rate budget on either axis.",
		}),
		profilesAttached: factory.NewCounter(prometheus.CounterOpts{
			Name: "devtools_session_cpu_profiles_attached_total",
			Help: "Sampling profiles attached to a selected event.",
		}),
		profilesDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "devtools_session_cpu_profiles_dropped_total",
			Help: "Sampling responses dropped because their selection was superseded.",
		}),
	}
}
