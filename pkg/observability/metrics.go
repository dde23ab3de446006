package observability

import (
	"context"

	"github.com/aretw0/intake/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every metric name.
const Namespace = "intake"

// Metrics holds the collectors fed by the engine hooks.
type Metrics struct {
	SessionsCreated   prometheus.Counter
	SessionsCompleted prometheus.Counter
	StepAdvances      *prometheus.CounterVec
	ValidationErrors  *prometheus.CounterVec
	Resets            *prometheus.CounterVec
	Turns             *prometheus.CounterVec
	TurnDuration      prometheus.Histogram
}

// NewMetrics creates the collectors and registers them on reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SessionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "sessions_created_total",
			Help:      "Total number of sessions created",
		}),
		SessionsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "sessions_completed_total",
			Help:      "Total number of sessions that produced a summary",
		}),
		StepAdvances: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "step_advances_total",
			Help:      "Accepted transitions by source step",
		}, []string{"from"}),
		ValidationErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "validation_failures_total",
			Help:      "Rejected answers by step",
		}, []string{"step"}),
		Resets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "session_resets_total",
			Help:      "Sessions sent back to the first question, by reason",
		}, []string{"reason"}),
		Turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "turns_total",
			Help:      "Processed turns by outcome",
		}, []string{"outcome"}),
		TurnDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "turn_duration_seconds",
			Help:      "Time spent processing a turn, store round-trips included",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.SessionsCreated,
			m.SessionsCompleted,
			m.StepAdvances,
			m.ValidationErrors,
			m.Resets,
			m.Turns,
			m.TurnDuration,
		)
	}
	return m
}

// Hooks returns lifecycle hooks recording into m.
// Combine them with other hooks through domain.ChainHooks.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnSessionCreated: func(ctx context.Context, e *domain.SessionEvent) {
			m.SessionsCreated.Inc()
		},
		OnStepAdvanced: func(ctx context.Context, e *domain.StepEvent) {
			m.StepAdvances.WithLabelValues(string(e.From)).Inc()
		},
		OnValidationFailed: func(ctx context.Context, e *domain.ValidationEvent) {
			m.ValidationErrors.WithLabelValues(string(e.Step)).Inc()
		},
		OnSessionReset: func(ctx context.Context, e *domain.ResetEvent) {
			m.Resets.WithLabelValues(string(e.Reason)).Inc()
		},
		OnSessionCompleted: func(ctx context.Context, e *domain.SessionEvent) {
			m.SessionsCompleted.Inc()
		},
		OnTurnProcessed: func(ctx context.Context, e *domain.TurnEvent) {
			m.Turns.WithLabelValues(e.Outcome).Inc()
			m.TurnDuration.Observe(e.Duration.Seconds())
		},
	}
}
