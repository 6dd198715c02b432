package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "assistant_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "assistant_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	// Generate metrics
	generateRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "assistant_generate_requests_total",
		Help: "Total number of generate requests by model and response status",
	}, []string{"model", "status"})

	rateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "assistant_rate_limited_total",
		Help: "Total number of generate requests rejected by the interval guard",
	}, []string{"model"})

	upstreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "assistant_upstream_duration_seconds",
		Help:    "Duration of calls to Gemini and the RAG backend",
		Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"target"})

	// Live chat
	activeChatConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "assistant_chat_connections",
		Help: "Number of open chat websocket connections",
	})
)

// Metrics records Prometheus metrics for the HTTP layer and the proxy.
type Metrics struct{}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) RecordGenerate(model, status string) {
	generateRequests.WithLabelValues(model, status).Inc()
}

func (m *Metrics) RecordRateLimited(model string) {
	rateLimited.WithLabelValues(model).Inc()
}

func (m *Metrics) ObserveUpstream(target string, d time.Duration) {
	upstreamDuration.WithLabelValues(target).Observe(d.Seconds())
}

// ConnectionOpened and ConnectionClosed track live chat sockets.
func (m *Metrics) ConnectionOpened() { activeChatConnections.Inc() }
func (m *Metrics) ConnectionClosed() { activeChatConnections.Dec() }

// Middleware labels requests by chi route pattern so path parameters do not
// explode cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// Handler serves the Prometheus scrape endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.Handler()
}
