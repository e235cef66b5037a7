package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for the application.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	signupsTotal             prometheus.Counter
	emailChangeRequestsTotal prometheus.Counter
	mailDeliveryFailures     prometheus.Counter
}

// NewMetrics initialises the registry with HTTP and account-flow metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "atrium_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "atrium_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	signups := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "atrium_signups_total",
		Help: "Successful account registrations.",
	})
	emailChanges := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "atrium_email_change_requests_total",
		Help: "Email change requests received.",
	})
	deliveryFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "atrium_mail_delivery_failures_total",
		Help: "Outbound mail sends that failed.",
	})
	registry.MustRegister(requests, duration, signups, emailChanges, deliveryFailures)
	return &Metrics{
		registry:                 registry,
		handler:                  promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:            requests,
		requestDuration:          duration,
		signupsTotal:             signups,
		emailChangeRequestsTotal: emailChanges,
		mailDeliveryFailures:     deliveryFailures,
	}
}

// Handler returns the http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records metrics for each HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// CountSignup increments the successful-registration counter.
func (m *Metrics) CountSignup() {
	if m == nil {
		return
	}
	m.signupsTotal.Inc()
}

// CountEmailChangeRequest increments the change-request counter.
func (m *Metrics) CountEmailChangeRequest() {
	if m == nil {
		return
	}
	m.emailChangeRequestsTotal.Inc()
}

// CountMailDeliveryFailure increments the failed-send counter.
func (m *Metrics) CountMailDeliveryFailure() {
	if m == nil {
		return
	}
	m.mailDeliveryFailures.Inc()
}

// Registerer exposes the registry for custom metric registration.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
