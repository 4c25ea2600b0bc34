package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(jobOpsTotal, jobConflictsTotal, jobsAssessedTotal) }

var jobOpsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "grading_job_ops_total",
		Help: "Mutating job operations by operation and outcome.",
	},
	[]string{"op", "outcome"}, // outcome: 'ok', 'rejected', 'error'
)

var jobConflictsTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "grading_job_conflicts_total",
		Help: "Optimistic-version conflicts surfaced to callers.",
	},
)

var jobsAssessedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "grading_jobs_assessed_total",
		Help: "Jobs leaving the processing stage, labeled by final status.",
	},
	[]string{"status"}, // 'assessed', 'failed'
)

func IncJobOp(op, outcome string) {
	jobOpsTotal.WithLabelValues(norm(op), norm(outcome)).Inc()
}

func IncConflict() { jobConflictsTotal.Inc() }

func IncJobAssessed(status string) {
	jobsAssessedTotal.WithLabelValues(norm(status)).Inc()
}
