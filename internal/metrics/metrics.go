package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "learnly_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "learnly_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	ChatRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "learnly_agent_chats_total",
			Help: "Total number of completed agent chat turns.",
		},
		[]string{"outcome"},
	)

	ChatDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "learnly_agent_chat_duration_seconds",
			Help:    "End-to-end agent chat turn duration in seconds.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60},
		},
	)

	ChatIterations = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "learnly_agent_chat_iterations",
			Help:    "Model requests made per agent chat turn.",
			Buckets: []float64{1, 2, 3, 4, 5, 6, 8, 10},
		},
	)

	ToolExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "learnly_tool_executions_total",
			Help: "Total number of tool executions by outcome.",
		},
		[]string{"tool", "status"},
	)

	ToolExecutionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "learnly_tool_execution_duration_seconds",
			Help:    "Tool execution duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"tool"},
	)

	MemoryWriteFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "learnly_memory_write_failures_total",
			Help: "Conversation memory writes swallowed as best-effort failures.",
		},
		[]string{"kind"},
	)

	TurnsSweptTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "learnly_turns_swept_total",
			Help: "Total number of expired conversation turns removed by retention sweeps.",
		},
	)

	AuditEventsPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "learnly_audit_events_published_total",
			Help: "Audit events published to the event stream.",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		ChatRequestsTotal,
		ChatDuration,
		ChatIterations,
		ToolExecutionsTotal,
		ToolExecutionDuration,
		MemoryWriteFailuresTotal,
		TurnsSweptTotal,
		AuditEventsPublishedTotal,
	)
}
