package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/SergeyBogomolovv/storefront-orders/internal/entities"
)

const (
	callerAnonymous = "anonymous"
	callerUser      = "user"
	callerAdmin     = "admin"
)

var (
	httpInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "storefront_orders",
		Subsystem: "http",
		Name:      "in_flight_requests",
		Help:      "Current number of in-flight HTTP requests.",
	})

	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront_orders",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route, status class and caller role.",
	}, []string{"method", "route", "status", "caller"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "storefront_orders",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latencies in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})
)

// Metrics records request counts and latencies per chi route pattern, so
// order ids never end up in label values.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		start := time.Now()
		rw := wrapResponseWriter(w)

		next.ServeHTTP(rw, r)

		route := "unknown"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}

		httpRequestsTotal.WithLabelValues(r.Method, route, statusClass(rw.status), callerRole(rw.who)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func statusClass(code int) string {
	return fmt.Sprintf("%dxx", code/100)
}

func callerRole(who entities.Identity) string {
	switch {
	case who.IsAnonymous():
		return callerAnonymous
	case who.IsAdmin:
		return callerAdmin
	default:
		return callerUser
	}
}
