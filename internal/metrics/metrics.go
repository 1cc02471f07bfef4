// Package metrics exposes Prometheus instrumentation for the API server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prediction kinds.
const (
	KindHeart = "heart"
	KindKNN   = "knn"
)

// Prediction outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeNotFound = "not_found"
	OutcomeInvalid  = "invalid"
	OutcomeError    = "error"
)

var (
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "healthrec_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "healthrec_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	Predictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "healthrec_predictions_total",
			Help: "Model invocations by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	Feedback = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "healthrec_feedback_total",
			Help: "Feedback submissions by sentiment label",
		},
		[]string{"sentiment"},
	)
)

func RecordAPIRequest(method, route string, status int, duration time.Duration) {
	HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func RecordPrediction(kind, outcome string) {
	Predictions.WithLabelValues(kind, outcome).Inc()
}

func RecordFeedback(sentiment string) {
	Feedback.WithLabelValues(sentiment).Inc()
}

// Middleware records every request under its route template; unmatched
// paths are grouped so arbitrary URLs cannot blow up label cardinality.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		RecordAPIRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
