package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "interview_sessions_active",
		Help: "Currently open interview sessions",
	})

	SessionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "interview_sessions_total",
		Help: "Total interview sessions opened",
	})

	CallTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "interview_call_transitions_total",
		Help: "Call state transitions by target state",
	}, []string{"state"})

	TranscriptEntries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "interview_transcript_entries_total",
		Help: "Finalized utterances captured by speaker",
	}, []string{"speaker"})

	SetupFieldUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "interview_setup_field_updates_total",
		Help: "Setup profile fields detected from speech",
	}, []string{"field"})

	OrchestratorCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "interview_orchestrator_calls_total",
		Help: "One-shot orchestrator invocations by outcome",
	}, []string{"orchestrator", "outcome"})

	Suppressed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "interview_suppressed_total",
		Help: "Re-entrant triggers suppressed by one-shot guards",
	}, []string{"orchestrator"})

	ServiceDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "interview_service_duration_seconds",
		Help:    "Latency of generation, resume and feedback services",
		Buckets: []float64{0.25, 0.5, 1.0, 2.0, 4.0, 8.0, 15.0, 30.0, 60.0},
	}, []string{"service"})

	LLMDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "interview_llm_duration_seconds",
		Help:    "LLM completion latency",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
	})

	FallbackUsed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "interview_fallback_used_total",
		Help: "Fixed fallback lists used after unparseable LLM output",
	}, []string{"service"})

	Errors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "interview_errors_total",
		Help: "Error counts by stage",
	}, []string{"stage", "error_type"})
)
