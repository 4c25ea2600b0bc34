package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(reportRendersTotal, cacheOpsTotal) }

var reportRendersTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "report_renders_total",
		Help: "Renderer invocations by format; generate calls served from the memoized handle never reach the renderer.",
	},
	[]string{"format"},
)

var cacheOpsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "job_projection_cache_total",
		Help: "Redis job projection cache lookups by result.",
	},
	[]string{"result"}, // 'hit', 'miss', 'error'
)

func IncReportRender(format string) {
	reportRendersTotal.WithLabelValues(norm(format)).Inc()
}

func IncProjectionCache(result string) {
	cacheOpsTotal.WithLabelValues(norm(result)).Inc()
}
