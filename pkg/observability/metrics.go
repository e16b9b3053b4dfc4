package observability

import (
	"context"

	"github.com/aretw0/cognito/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors fed by the engine hooks.
type Metrics struct {
	NodeVisits   *prometheus.CounterVec
	NodeDuration *prometheus.HistogramVec
	ToolCalls    *prometheus.CounterVec
	Transitions  *prometheus.CounterVec
	Suspensions  *prometheus.CounterVec
	Resumes      *prometheus.CounterVec
	Walks        *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		NodeVisits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cognito_node_visits_total",
			Help: "Total number of node executions.",
		}, []string{"node_id"}),
		NodeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cognito_node_duration_seconds",
			Help:    "Duration of node executions.",
			Buckets: prometheus.DefBuckets,
		}, []string{"node_id"}),
		ToolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cognito_tool_calls_total",
			Help: "Tool executions by outcome.",
		}, []string{"tool_name", "outcome"}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cognito_transitions_total",
			Help: "Edges taken, by kind (static, retry, fallback).",
		}, []string{"kind"}),
		Suspensions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cognito_suspensions_total",
			Help: "Walks suspended for human approval, by tool.",
		}, []string{"tool_name"}),
		Resumes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cognito_resumes_total",
			Help: "Suspended walks resumed, by decision.",
		}, []string{"decision"}),
		Walks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cognito_walks_total",
			Help: "Walk runs by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(m.NodeVisits, m.NodeDuration, m.ToolCalls, m.Transitions, m.Suspensions, m.Resumes, m.Walks)
	return m
}

// ObserveWalk counts one run ending in outcome (completed, suspended, fault).
func (m *Metrics) ObserveWalk(outcome string) {
	m.Walks.WithLabelValues(outcome).Inc()
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(_ context.Context, e *domain.NodeEvent) {
			m.NodeVisits.WithLabelValues(e.NodeID).Inc()
		},
		OnNodeLeave: func(_ context.Context, e *domain.NodeEvent) {
			m.NodeDuration.WithLabelValues(e.NodeID).Observe(e.Duration.Seconds())
		},
		OnToolReturn: func(_ context.Context, e *domain.ToolEvent) {
			outcome := "ok"
			if e.IsError {
				outcome = "error"
			}
			m.ToolCalls.WithLabelValues(e.ToolName, outcome).Inc()
		},
		OnTransition: func(_ context.Context, e *domain.TransitionEvent) {
			kind := "static"
			switch {
			case e.Retry:
				kind = "retry"
			case e.Fallback:
				kind = "fallback"
			}
			m.Transitions.WithLabelValues(kind).Inc()
		},
		OnSuspend: func(_ context.Context, e *domain.ApprovalEvent) {
			m.Suspensions.WithLabelValues(e.ToolName).Inc()
		},
		OnResume: func(_ context.Context, e *domain.ApprovalEvent) {
			m.Resumes.WithLabelValues(string(e.Decision)).Inc()
		},
	}
}
