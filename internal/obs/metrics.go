package obs

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics holds the request-level collectors. Every request this service
// handles either answers from cache or crosses to the booking backend, so the
// latency buckets carry a long tail for proxied round trips, and requests are
// counted by status class to line up with the backend proxy counter.
type HTTPMetrics struct {
	Requests *prometheus.CounterVec
	Latency  *prometheus.HistogramVec
	InFlight prometheus.Gauge
}

// defaultLatencyBucketsMS covers sub-millisecond cache hits through slow
// payment-backend round trips.
var defaultLatencyBucketsMS = []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000}

// NewHTTPMetrics builds and registers the request collectors. A nil registerer
// means the process default; re-registering returns the existing collectors so
// tests can construct the metrics repeatedly.
func NewHTTPMetrics(namespace string, bucketsMS []float64, reg prometheus.Registerer) *HTTPMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if len(bucketsMS) == 0 {
		bucketsMS = defaultLatencyBucketsMS
	} else {
		sort.Float64s(bucketsMS)
	}
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests handled, by method, route and status class.",
	}, []string{"method", "route", "status_class"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_ms",
		Help:      "HTTP request latency in milliseconds.",
		Buckets:   bucketsMS,
	}, []string{"method", "route"})
	inFlight := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "http_in_flight_requests",
		Help:      "Requests currently being handled.",
	})
	return &HTTPMetrics{
		Requests: registerOrReuse(reg, requests),
		Latency:  registerOrReuse(reg, latency),
		InFlight: registerOrReuse(reg, inFlight),
	}
}

// StatusClass buckets an HTTP status code into "2xx".."5xx" form. The proxy
// counter in the backend package uses the same shape.
func StatusClass(code int) string {
	if code < 100 || code > 599 {
		return "unknown"
	}
	return strconv.Itoa(code/100) + "xx"
}

// ParseBucketsCSV reads operator-supplied histogram bucket boundaries in
// milliseconds. Blank or non-positive entries are dropped; an empty result
// falls back to the defaults in NewHTTPMetrics.
func ParseBucketsCSV(csv string) []float64 {
	var out []float64
	for _, part := range strings.Split(csv, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil || v <= 0 {
			continue
		}
		out = append(out, v)
	}
	return out
}

func registerOrReuse[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	err := reg.Register(c)
	if err == nil {
		return c
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(C); ok {
			return existing
		}
	}
	panic(fmt.Errorf("register http metric: %w", err))
}
