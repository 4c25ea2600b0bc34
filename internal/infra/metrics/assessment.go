package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(assessmentLatencyMs, feedbackCallsTotal) }

var assessmentLatencyMs = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "assessment_call_latency_ms",
		Help:    "Assessment service call latency distribution in milliseconds.",
		Buckets: []float64{100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000, 120000},
	},
	[]string{"success"},
)

var feedbackCallsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "feedback_calls_total",
		Help: "Feedback synthesis calls by outcome.",
	},
	[]string{"success"},
)

func ObserveAssessment(d time.Duration, success bool) {
	assessmentLatencyMs.WithLabelValues(strconv.FormatBool(success)).
		Observe(float64(d.Milliseconds()))
}

func IncFeedbackCall(success bool) {
	feedbackCallsTotal.WithLabelValues(strconv.FormatBool(success)).Inc()
}
