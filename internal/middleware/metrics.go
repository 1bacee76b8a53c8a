package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "postline_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
	authFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "postline_auth_failures_total",
			Help: "Requests rejected by session checks, by error code",
		},
		[]string{"code"},
	)
)

// PrometheusMiddleware records request duration labelled by route template so
// path parameters do not explode cardinality.
func PrometheusMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := wrap(w)
		start := time.Now()

		next.ServeHTTP(rw, r)

		httpRequestDuration.
			WithLabelValues(r.Method, routeLabel(r), strconv.Itoa(rw.statusCode)).
			Observe(time.Since(start).Seconds())
	})
}

func RecordAuthFailure(code string) {
	authFailures.WithLabelValues(code).Inc()
}

func routeLabel(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}
