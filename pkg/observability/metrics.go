package observability

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/nodus-reseau/leadform/internal/logging"
	"github.com/nodus-reseau/leadform/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "leadform"

// Metrics holds the collectors fed by the lifecycle hooks.
type Metrics struct {
	Sessions       *prometheus.CounterVec
	StepEntries    *prometheus.CounterVec
	Answers        *prometheus.CounterVec
	Submissions    *prometheus.CounterVec
	SubmitDuration prometheus.Histogram
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Number of forms opened, by acquisition source.",
		}, []string{"source"}),
		StepEntries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "step_entries_total",
			Help:      "Number of times a screen was shown, by step and direction.",
		}, []string{"step", "direction"}),
		Answers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answers_total",
			Help:      "Number of answer changes, by field.",
		}, []string{"field"}),
		Submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Number of submission attempts, by outcome.",
		}, []string{"outcome"}),
		SubmitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "submit_duration_seconds",
			Help:      "Duration of requests to the form endpoint.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	for _, c := range []prometheus.Collector{m.Sessions, m.StepEntries, m.Answers, m.Submissions, m.SubmitDuration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Hooks returns lifecycle callbacks that record metrics and log each event.
// A nil Metrics only logs. Answer values are never logged.
func (m *Metrics) Hooks(logger *slog.Logger) domain.LifecycleHooks {
	if logger == nil {
		logger = logging.NewNop()
	}
	return domain.LifecycleHooks{
		OnSessionStart: func(ctx context.Context, e *domain.SessionEvent) {
			logger.InfoContext(ctx, "session_start", "session_id", e.SessionID, "source", e.Source)
			if m != nil {
				m.Sessions.WithLabelValues(e.Source).Inc()
			}
		},
		OnStepEnter: func(ctx context.Context, e *domain.StepEvent) {
			step := stepLabel(e)
			logger.DebugContext(ctx, "step_enter",
				"session_id", e.SessionID,
				"step", step,
				"index", e.Index,
				"direction", int(e.Direction),
			)
			if m != nil {
				m.StepEntries.WithLabelValues(step, directionLabel(e.Direction)).Inc()
			}
		},
		OnAnswer: func(ctx context.Context, e *domain.AnswerEvent) {
			logger.DebugContext(ctx, "answer", "session_id", e.SessionID, "field", e.Field, "empty", e.Empty)
			if m != nil {
				m.Answers.WithLabelValues(string(e.Field)).Inc()
			}
		},
		OnSubmit: func(ctx context.Context, e *domain.SubmitEvent) {
			logger.InfoContext(ctx, "submit",
				"session_id", e.SessionID,
				"outcome", e.Outcome,
				"duration", e.Duration,
			)
			if m != nil {
				m.Submissions.WithLabelValues(string(e.Outcome)).Inc()
				m.SubmitDuration.Observe(e.Duration.Seconds())
			}
		},
	}
}

// Merge fans every event out to all the given hook sets, in order.
func Merge(sets ...domain.LifecycleHooks) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnSessionStart: func(ctx context.Context, e *domain.SessionEvent) {
			for _, h := range sets {
				if h.OnSessionStart != nil {
					h.OnSessionStart(ctx, e)
				}
			}
		},
		OnStepEnter: func(ctx context.Context, e *domain.StepEvent) {
			for _, h := range sets {
				if h.OnStepEnter != nil {
					h.OnStepEnter(ctx, e)
				}
			}
		},
		OnAnswer: func(ctx context.Context, e *domain.AnswerEvent) {
			for _, h := range sets {
				if h.OnAnswer != nil {
					h.OnAnswer(ctx, e)
				}
			}
		},
		OnSubmit: func(ctx context.Context, e *domain.SubmitEvent) {
			for _, h := range sets {
				if h.OnSubmit != nil {
					h.OnSubmit(ctx, e)
				}
			}
		},
	}
}

func stepLabel(e *domain.StepEvent) string {
	if e.Phase == domain.PhaseRecap {
		return "recap"
	}
	if e.Field != "" {
		return string(e.Field)
	}
	return strconv.Itoa(e.Index)
}

func directionLabel(d domain.Direction) string {
	if d == domain.Backward {
		return "backward"
	}
	return "forward"
}
