// Package metrics exposes Prometheus counters/histograms for request
// throughput and latency, an optional collaborator wired in only when a
// program built on the engine asks for it (see cmd/crowd's
// metrics.enabled config flag).
package metrics

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/crowgo/crow"
)

// Collector holds the registered metrics. Use New to construct one
// registered against prometheus.DefaultRegisterer.
type Collector struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight prometheus.Gauge

	index int
}

// New registers and returns a Collector.
func New() *Collector {
	return &Collector{
		requests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "crow_requests_total",
			Help: "Total HTTP requests handled, by method, route and status class.",
		}, []string{"method", "route", "status"}),
		duration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "crow_request_duration_seconds",
			Help:    "Request handling latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		inFlight: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "crow_requests_in_flight",
			Help: "Requests currently being handled.",
		}),
	}
}

// SetIndex implements middleware.AllContextAware.
func (c *Collector) SetIndex(i int) { c.index = i }

// Before implements middleware.Middleware: it records the start time as
// this stage's context value and increments the in-flight gauge.
func (c *Collector) Before(req *crow.Request, _ crow.ResponseWriter) (any, bool) {
	c.inFlight.Inc()
	return time.Now(), true
}

// After implements middleware.Middleware: it records the observed
// duration and increments the request counter, labeled by the matched
// route's pattern when one was recorded on the request via RouteLabel.
func (c *Collector) After(req *crow.Request, w crow.ResponseWriter, ctxVal any) {
	c.inFlight.Dec()
	start, _ := ctxVal.(time.Time)
	route := RouteOf(req)
	c.duration.WithLabelValues(req.Method, route).Observe(time.Since(start).Seconds())
	c.requests.WithLabelValues(req.Method, route, statusClass(w)).Inc()
}

func statusClass(w crow.ResponseWriter) string {
	// The ResponseWriter interface does not expose the status, so the
	// label falls back to "unknown" unless the writer also has a
	// Status() int method (the engine's own response does).
	if sr, ok := w.(statusReporter); ok {
		return strconv.Itoa(sr.Status() / 100 * 100)
	}
	return "unknown"
}

type statusReporter interface{ Status() int }

type routeKey struct{}

// RouteLabel attaches the matched route's pattern to req's context, for
// After to read back as a low-cardinality label (raw paths would blow up
// metric cardinality for any route with a typed/path parameter).
func RouteLabel(req *crow.Request, pattern string) {
	*req = *req.WithContext(withRoute(req.Context(), pattern))
}

func withRoute(ctx context.Context, pattern string) context.Context {
	return context.WithValue(ctx, routeKey{}, pattern)
}

func RouteOf(req *crow.Request) string {
	if v := req.Context().Value(routeKey{}); v != nil {
		return v.(string)
	}
	return "unmatched"
}
