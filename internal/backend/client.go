package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/lioncity-tours/gateway/internal/resilience"
)

// Client performs requests against the external booking backend. All durable
// business state lives behind this contract; the gateway only relays.
type Client struct {
	BaseURL string
	HTTP    resilience.HTTPClient
	Logger  zerolog.Logger
}

// New builds a backend client with tracing-instrumented transport and a
// circuit breaker. No retries: a failed call surfaces immediately.
func New(baseURL string, timeout time.Duration, logger zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	breaker := resilience.NewBreaker(10, 0.5, 30*time.Second).
		WithTarget("booking-backend").
		WithLogger(logger)
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: resilience.HTTPClient{
			Client: &http.Client{
				Transport: otelhttp.NewTransport(http.DefaultTransport),
				Timeout:   timeout,
			},
			Breaker: breaker,
		},
		Logger: logger,
	}
}

// StatusError reports a non-2xx backend response, preserving the raw body so
// callers can surface the backend message verbatim.
type StatusError struct {
	StatusCode int
	Body       []byte
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("backend responded %d: %s", e.StatusCode, e.Message())
}

// Message extracts the backend-provided error text. JSON bodies with an
// "error" field take priority; otherwise the raw body text is returned.
func (e *StatusError) Message() string {
	trimmed := strings.TrimSpace(string(e.Body))
	if trimmed == "" {
		return http.StatusText(e.StatusCode)
	}
	var envelope struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(e.Body, &envelope); err == nil {
		if envelope.Error != "" {
			return envelope.Error
		}
		if envelope.Message != "" {
			return envelope.Message
		}
	}
	return trimmed
}

// Do issues a request to the backend. path must start with "/" and is joined
// to the configured base URL.
func (c *Client) Do(ctx context.Context, method, path string, body []byte, header http.Header) (*http.Response, error) {
	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if len(body) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, values := range header {
		for _, v := range values {
			req.Header.Set(key, v)
		}
	}
	return c.HTTP.Do(ctx, req)
}

// GetJSON issues a GET and decodes a 2xx JSON response into dst. Non-2xx
// responses are returned as *StatusError.
func (c *Client) GetJSON(ctx context.Context, path string, dst any) error {
	resp, err := c.Do(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{StatusCode: resp.StatusCode, Body: data}
	}
	if dst == nil {
		return nil
	}
	return json.Unmarshal(data, dst)
}

// PostJSON marshals in, issues a POST, and decodes a 2xx JSON response into
// dst. Non-2xx responses are returned as *StatusError.
func (c *Client) PostJSON(ctx context.Context, path string, in, dst any) error {
	var payload []byte
	if in != nil {
		var err error
		payload, err = json.Marshal(in)
		if err != nil {
			return err
		}
	}
	resp, err := c.Do(ctx, http.MethodPost, path, payload, nil)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{StatusCode: resp.StatusCode, Body: data}
	}
	if dst == nil {
		return nil
	}
	return json.Unmarshal(data, dst)
}

// Ping reports whether the backend is reachable. Any HTTP response counts as
// reachable; only transport failures are errors.
func (c *Client) Ping(ctx context.Context, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	resp, err := c.Do(ctx, http.MethodGet, "/tours", nil, nil)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	return resp.Body.Close()
}
