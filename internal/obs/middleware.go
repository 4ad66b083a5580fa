package obs

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// StatusRecorder wraps a ResponseWriter so middleware can read the status
// code and body size after the handler ran. The webhook handler writes its
// acknowledgment exactly once, so double WriteHeader calls are swallowed
// rather than logged by net/http.
type StatusRecorder struct {
	http.ResponseWriter
	code  int
	bytes int64
	wrote bool
}

func NewStatusRecorder(w http.ResponseWriter) *StatusRecorder {
	return &StatusRecorder{ResponseWriter: w, code: http.StatusOK}
}

func (sr *StatusRecorder) WriteHeader(code int) {
	if sr.wrote {
		return
	}
	sr.wrote = true
	sr.code = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *StatusRecorder) Write(p []byte) (int, error) {
	sr.wrote = true
	n, err := sr.ResponseWriter.Write(p)
	sr.bytes += int64(n)
	return n, err
}

func (sr *StatusRecorder) Status() int { return sr.code }

func (sr *StatusRecorder) BytesWritten() int64 { return sr.bytes }

// Unwrap exposes the underlying writer for http.ResponseController.
func (sr *StatusRecorder) Unwrap() http.ResponseWriter { return sr.ResponseWriter }

// routeOf resolves the matched route pattern for a request. Routing has
// finished by the time observation middleware reads it, so the chi route
// context carries the full pattern; the context copy is a fallback for
// handlers mounted outside the main router.
func routeOf(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if pattern := rc.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return RoutePatternFromContext(r.Context())
}

// HTTPObs instruments the router with the request collectors.
type HTTPObs struct {
	Metrics *HTTPMetrics
}

func (o HTTPObs) Middleware(next http.Handler) http.Handler {
	if o.Metrics == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := NewStatusRecorder(w)
		o.Metrics.InFlight.Inc()
		start := time.Now()
		next.ServeHTTP(recorder, r)
		elapsed := time.Since(start)
		o.Metrics.InFlight.Dec()

		route := routeOf(r)
		if route == "" {
			route = "unmatched"
		}
		o.Metrics.Requests.WithLabelValues(r.Method, route, StatusClass(recorder.Status())).Inc()
		o.Metrics.Latency.WithLabelValues(r.Method, route).Observe(float64(elapsed) / float64(time.Millisecond))
	})
}

// RoutePatternMiddleware copies the matched route pattern onto the request
// context for consumers that cannot reach the chi route context, the request
// logger above all.
func RoutePatternMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if rc := chi.RouteContext(ctx); rc != nil {
			if pattern := rc.RoutePattern(); pattern != "" {
				ctx = WithRoutePattern(ctx, pattern)
			}
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// TracingMiddleware opens a server span per request. The span starts under a
// provisional name and is renamed once routing has resolved the pattern, so
// checkout and webhook traffic group by route rather than by raw path.
func TracingMiddleware(next http.Handler) http.Handler {
	tracer := otel.Tracer("gateway.http")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), r.Method)
		recorder := NewStatusRecorder(w)
		next.ServeHTTP(recorder, r.WithContext(ctx))

		route := routeOf(r)
		if route == "" {
			route = r.URL.Path
		}
		span.SetName(r.Method + " " + route)
		span.SetAttributes(
			attribute.String("http.request.method", r.Method),
			attribute.String("http.route", route),
			attribute.String("url.path", r.URL.Path),
			attribute.Int("http.response.status_code", recorder.Status()),
		)
		if provider := chi.URLParam(r, "provider"); provider != "" {
			span.SetAttributes(attribute.String("payment.provider", provider))
		}
		if recorder.Status() >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(recorder.Status()))
		}
		span.End()
	})
}
