package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edinsights_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)

	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "edinsights_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"route", "method"},
	)

	// Agent metrics
	AgentCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edinsights_agent_calls_total",
			Help: "Total number of agent calls",
		},
		[]string{"agent", "model", "status"}, // status: success|error|retried
	)

	AgentLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "edinsights_agent_latency_seconds",
			Help:    "Agent execution latency in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"agent", "model"},
	)

	AgentTokens = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edinsights_agent_tokens_total",
			Help: "Total tokens used by agents",
		},
		[]string{"agent", "model", "type"}, // type: input|output
	)

	AgentCost = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edinsights_agent_cost_usd",
			Help: "Total AI cost in USD",
		},
		[]string{"agent", "model"},
	)

	// Tool metrics
	ToolExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edinsights_tool_executions_total",
			Help: "Total number of tool executions",
		},
		[]string{"tool", "status"}, // status: success|error
	)

	ToolLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "edinsights_tool_latency_seconds",
			Help:    "Tool execution latency in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"tool"},
	)

	// Warehouse metrics
	WarehouseQueries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edinsights_warehouse_queries_total",
			Help: "Total number of warehouse queries",
		},
		[]string{"kind", "status"}, // status: success|error
	)

	WarehouseQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "edinsights_warehouse_query_duration_seconds",
			Help:    "Warehouse query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"kind"},
	)

	WarehouseRowsReturned = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "edinsights_warehouse_rows_returned",
			Help:    "Rows returned per warehouse query",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
		},
		[]string{"kind"},
	)

	// Attachment metrics
	AttachmentsAccepted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edinsights_attachments_accepted_total",
			Help: "Total number of accepted attachments",
		},
		[]string{"kind"}, // kind: image|document
	)

	AttachmentsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edinsights_attachments_rejected_total",
			Help: "Total number of rejected attachments",
		},
		[]string{"reason"}, // reason: oversized|unsupported_type|unreadable|too_many
	)

	// Chat turn metrics
	ChatTurns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edinsights_chat_turns_total",
			Help: "Total number of chat turns processed",
		},
		[]string{"status"}, // status: success|validation|insufficient_data|data_unavailable|model_unavailable|error
	)
)

// Init registers all metrics with Prometheus
func Init() {
	prometheus.MustRegister(HTTPRequests)
	prometheus.MustRegister(HTTPDuration)

	prometheus.MustRegister(AgentCalls)
	prometheus.MustRegister(AgentLatency)
	prometheus.MustRegister(AgentTokens)
	prometheus.MustRegister(AgentCost)

	prometheus.MustRegister(ToolExecutions)
	prometheus.MustRegister(ToolLatency)

	prometheus.MustRegister(WarehouseQueries)
	prometheus.MustRegister(WarehouseQueryDuration)
	prometheus.MustRegister(WarehouseRowsReturned)

	prometheus.MustRegister(AttachmentsAccepted)
	prometheus.MustRegister(AttachmentsRejected)

	prometheus.MustRegister(ChatTurns)
}

// Handler returns Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordAgentCall records an agent invocation
func RecordAgentCall(agent, model string, latency time.Duration, cost float64, tokens int, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	AgentCalls.WithLabelValues(agent, model, status).Inc()
	AgentLatency.WithLabelValues(agent, model).Observe(latency.Seconds())

	if cost > 0 {
		AgentCost.WithLabelValues(agent, model).Add(cost)
	}

	if tokens > 0 {
		AgentTokens.WithLabelValues(agent, model, "total").Add(float64(tokens))
	}
}

// RecordToolExecution records a tool execution
func RecordToolExecution(tool string, latency time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	ToolExecutions.WithLabelValues(tool, status).Inc()
	ToolLatency.WithLabelValues(tool).Observe(latency.Seconds())
}

// RecordWarehouseQuery records a warehouse query
func RecordWarehouseQuery(kind string, duration time.Duration, rows int, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	WarehouseQueries.WithLabelValues(kind, status).Inc()
	WarehouseQueryDuration.WithLabelValues(kind).Observe(duration.Seconds())

	if err == nil {
		WarehouseRowsReturned.WithLabelValues(kind).Observe(float64(rows))
	}
}

// RecordHTTPRequest records an HTTP request
func RecordHTTPRequest(route, method, status string, duration time.Duration) {
	HTTPRequests.WithLabelValues(route, method, status).Inc()
	HTTPDuration.WithLabelValues(route, method).Observe(duration.Seconds())
}
