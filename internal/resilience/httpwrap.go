package resilience

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// HTTPClient wraps an http.Client with a circuit breaker. It deliberately
// performs a single attempt per call: retry policy belongs to the booking
// backend, not to this layer. Call timeouts come from the embedded client's
// Timeout so response bodies stay readable after Do returns.
type HTTPClient struct {
	Client  *http.Client
	Breaker *Breaker
}

// Do executes the request. When the breaker is open ErrOpenCircuit is
// returned without touching the network. Responses with a 5xx status count as
// failures against the breaker but are returned to the caller untouched.
func (cl HTTPClient) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if cl.Client == nil {
		return nil, errors.New("resilience: http client not configured")
	}
	breaker := cl.Breaker
	if breaker == nil {
		// default to a closed breaker that never trips
		breaker = NewBreaker(1, 1, time.Second)
	}
	if !breaker.Allow() {
		return nil, ErrOpenCircuit
	}

	resp, err := cl.Client.Do(req.WithContext(ctx))
	if err != nil {
		breaker.Report(false)
		return nil, err
	}
	breaker.Report(resp.StatusCode < http.StatusInternalServerError)
	return resp, nil
}
