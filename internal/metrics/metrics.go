package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// SampleFallbacks counts reads served from sample data, by endpoint.
	SampleFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quizmaster_sample_fallbacks_total",
			Help: "Reads answered with sample data because the backend failed",
		},
		[]string{"endpoint"},
	)

	// Submissions counts quiz submissions by outcome.
	Submissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quizmaster_submissions_total",
			Help: "Quiz submissions by outcome",
		},
		[]string{"outcome"},
	)

	// FeedEvents counts notifications received by the live feed.
	FeedEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quizmaster_feed_events_total",
			Help: "Real-time events received by the notification bridge",
		},
		[]string{"event"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quizmaster_http_request_duration_seconds",
			Help:    "Duration of HTTP requests served by the BFF",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "route", "status"},
	)
)

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request durations. route names the pattern, not the raw path.
func Middleware(route func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			RequestDuration.WithLabelValues(r.Method, route(r), strconv.Itoa(rec.status)).
				Observe(time.Since(start).Seconds())
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack keeps websocket upgrades working behind the middleware.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return hj.Hijack()
}
