package backend

import (
	"io"
	"net/http"
	"strings"

	"github.com/lioncity-tours/gateway/internal/common"
	"github.com/lioncity-tours/gateway/internal/obs"
)

// passthroughHeaders lists the backend response headers relayed to clients.
var passthroughHeaders = []string{
	"Content-Type",
	"Cache-Control",
	"ETag",
	"Link",
	"Vary",
	"X-Total-Count",
}

// ForwardOptions controls a proxied request.
type ForwardOptions struct {
	// Target is the metric label identifying the proxied surface.
	Target string
	// Authorization, when set, replaces the Authorization header sent upstream.
	Authorization string
}

// Forward relays the incoming request to the backend at path, preserving the
// query string and streaming the backend response back verbatim apart from a
// header allowlist. Bodies are only forwarded for methods that carry one.
func (c *Client) Forward(w http.ResponseWriter, r *http.Request, path string, opts ForwardOptions) {
	target := opts.Target
	if target == "" {
		target = "public"
	}

	var body []byte
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		data, err := io.ReadAll(r.Body)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "unable to read payload", nil)
			return
		}
		body = data
	}

	if r.URL.RawQuery != "" {
		path += "?" + r.URL.RawQuery
	}

	header := http.Header{}
	if opts.Authorization != "" {
		header.Set("Authorization", opts.Authorization)
	}

	resp, err := c.Do(r.Context(), r.Method, path, body, header)
	if err != nil {
		c.Logger.Error().Err(err).Str("target", target).Str("path", path).Msg("backend forward failed")
		recordProxy(target, http.StatusBadGateway)
		common.JSONError(w, http.StatusBadGateway, "BACKEND_UNAVAILABLE", "backend unavailable", nil)
		return
	}
	defer func() { _ = resp.Body.Close() }()

	for _, key := range passthroughHeaders {
		if value := resp.Header.Get(key); value != "" {
			w.Header().Set(key, value)
		}
	}
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "application/json")
	}
	recordProxy(target, resp.StatusCode)
	w.WriteHeader(resp.StatusCode)
	_, _ = io.Copy(w, resp.Body)
}

func recordProxy(target string, status int) {
	if obs.BackendProxyTotal == nil {
		return
	}
	obs.BackendProxyTotal.WithLabelValues(strings.ToLower(target), obs.StatusClass(status)).Inc()
}
