package payment

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/lioncity-tours/gateway/internal/backend"
)

func newWebhookRig(t *testing.T, psk string, upstream http.HandlerFunc) (*WebhookHandler, *atomic.Int64, func(body, header string) *httptest.ResponseRecorder) {
	t.Helper()
	var relayed atomic.Int64
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		relayed.Add(1)
		if upstream != nil {
			upstream(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	t.Cleanup(ts.Close)

	h := &WebhookHandler{
		Verifier: Verifier{MID: "merchant-1", PSK: psk},
		Backend:  backend.New(ts.URL, 5*time.Second, zerolog.Nop()),
		Logger:   zerolog.Nop(),
	}
	router := chi.NewRouter()
	router.Post("/api/v1/webhooks/payment/{provider}", h.Handle)

	do := func(body, header string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payment/fomopay", strings.NewReader(body))
		if header != "" {
			req.Header.Set(AuthorizationHeader, header)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}
	return h, &relayed, do
}

func requireAck(t *testing.T, w *httptest.ResponseRecorder) {
	t.Helper()
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"ok":true}`, w.Body.String())
}

func TestWebhookValidNotificationRelayed(t *testing.T) {
	body := `{"orderNo":"book-1","status":"SUCCESS"}`
	_, relayed, do := newWebhookRig(t, "psk-secret", nil)

	header := authHeader("merchant-1", "n-42", "1700000123",
		"2be55321636422e4f78abcc7c5387a6b5330f9a390cc2464c6badd1f07cb759f")
	requireAck(t, do(body, header))
	require.Equal(t, int64(1), relayed.Load())
}

func TestWebhookBadSignatureStillAcked(t *testing.T) {
	body := `{"orderNo":"book-1","status":"SUCCESS"}`
	_, relayed, do := newWebhookRig(t, "psk-secret", nil)

	requireAck(t, do(body, authHeader("merchant-1", "n-42", "1700000123", "deadbeef")))
	requireAck(t, do(body, ""))
	require.Equal(t, int64(0), relayed.Load(), "invalid notifications must never reach the backend")
}

func TestWebhookRelayFailureStillAcked(t *testing.T) {
	body := `{"orderNo":"book-1","status":"SUCCESS"}`
	_, relayed, do := newWebhookRig(t, "psk-secret", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	header := authHeader("merchant-1", "n-42", "1700000123",
		"2be55321636422e4f78abcc7c5387a6b5330f9a390cc2464c6badd1f07cb759f")
	requireAck(t, do(body, header))
	require.Equal(t, int64(1), relayed.Load())
}

func TestWebhookRelayPreservesRawBody(t *testing.T) {
	// Signature covers the exact bytes, so the relay must forward them
	// unmodified, whitespace and all.
	body := `{"orderNo":"book-1",  "status":"SUCCESS"}`
	sig := Verifier{MID: "merchant-1", PSK: "psk-secret"}.Sign([]byte(body), "1700000123", "n-42")

	var got []byte
	_, _, do := newWebhookRig(t, "psk-secret", func(w http.ResponseWriter, r *http.Request) {
		got, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	requireAck(t, do(body, authHeader("merchant-1", "n-42", "1700000123", sig)))
	require.Equal(t, body, string(got))
}

func TestWebhookUnknownProviderIgnored(t *testing.T) {
	h, relayed, _ := newWebhookRig(t, "psk-secret", nil)
	router := chi.NewRouter()
	router.Post("/api/v1/webhooks/payment/{provider}", h.Handle)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payment/stripe", strings.NewReader("{}"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	requireAck(t, w)
	require.Equal(t, int64(0), relayed.Load())
}

func TestWebhookOversizedBodyStillAcked(t *testing.T) {
	// An oversized notification must be swallowed like any other invalid
	// one; a 413 would put the provider into a retry loop.
	h, relayed, do := newWebhookRig(t, "psk-secret", nil)
	h.MaxBody = 64

	body := `{"orderNo":"book-1","status":"` + strings.Repeat("A", 128) + `"}`
	sig := Verifier{MID: "merchant-1", PSK: "psk-secret"}.Sign([]byte(body), "1700000123", "n-42")
	requireAck(t, do(body, authHeader("merchant-1", "n-42", "1700000123", sig)))
	require.Equal(t, int64(0), relayed.Load())
}

func TestWebhookMaxBodyAllowsExactFit(t *testing.T) {
	body := `{"orderNo":"book-1","status":"SUCCESS"}`
	h, relayed, do := newWebhookRig(t, "psk-secret", nil)
	h.MaxBody = int64(len(body))

	header := authHeader("merchant-1", "n-42", "1700000123",
		"2be55321636422e4f78abcc7c5387a6b5330f9a390cc2464c6badd1f07cb759f")
	requireAck(t, do(body, header))
	require.Equal(t, int64(1), relayed.Load())
}

func TestWebhookMissingOrderNoIgnored(t *testing.T) {
	body := `{"status":"SUCCESS"}`
	sig := Verifier{MID: "merchant-1", PSK: "psk-secret"}.Sign([]byte(body), "1700000123", "n-42")
	_, relayed, do := newWebhookRig(t, "psk-secret", nil)

	requireAck(t, do(body, authHeader("merchant-1", "n-42", "1700000123", sig)))
	require.Equal(t, int64(0), relayed.Load())
}
