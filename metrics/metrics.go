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

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduler_http_requests_total",
		Help: "Total number of HTTP requests processed.",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "scheduler_http_request_duration_seconds",
		Help:    "Histogram of latencies for HTTP requests.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	completionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "scheduler_completion_duration_seconds",
		Help:    "Histogram of completion provider latencies.",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60},
	})

	scheduleRowsParsed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scheduler_plan_rows_parsed_total",
		Help: "Total schedule table rows successfully parsed from generated plans.",
	})

	scheduleRowsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scheduler_plan_rows_skipped_total",
		Help: "Total candidate table rows dropped during plan parsing.",
	})

	calendarEventsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scheduler_calendar_events_created_total",
		Help: "Total calendar events created from parsed schedule rows.",
	})

	calendarEventsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scheduler_calendar_events_failed_total",
		Help: "Total calendar event submissions that returned an error.",
	})
)

// Middleware records per-request counters and latency.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := strconv.Itoa(c.Writer.Status())

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, status).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveCompletionLatency records how long a schedule generation call took.
func ObserveCompletionLatency(start time.Time) {
	completionDuration.Observe(time.Since(start).Seconds())
}

// RecordParseResult accounts for rows kept and dropped from a generated plan.
func RecordParseResult(parsed int, skipped int) {
	scheduleRowsParsed.Add(float64(parsed))
	scheduleRowsSkipped.Add(float64(skipped))
}

// RecordEventsCreated accounts for a batch of calendar submissions.
func RecordEventsCreated(created int, failed int) {
	calendarEventsCreated.Add(float64(created))
	calendarEventsFailed.Add(float64(failed))
}
