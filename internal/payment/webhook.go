package payment

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/lioncity-tours/gateway/internal/backend"
	"github.com/lioncity-tours/gateway/internal/obs"
)

// Notification is the minimal shape the gateway reads out of a webhook body
// before relaying it. The full raw body is what gets forwarded.
type Notification struct {
	OrderNo string `json:"orderNo"`
	Status  string `json:"status"`
}

// WebhookHandler verifies provider notifications and relays valid ones to
// the backend. The provider contract requires a 200 acknowledgment no matter
// what, so every outcome short of a transport panic answers 200 {ok:true};
// rejected notifications are logged and counted, never bounced.
type WebhookHandler struct {
	Verifier Verifier
	Backend  *backend.Client
	Logger   zerolog.Logger
	Timeout  time.Duration
	// MaxBody caps how much of the notification is read. Oversized bodies
	// are ignored and acknowledged like any other invalid notification; a
	// 413 here would trigger provider retries. Zero means no cap.
	MaxBody int64
}

func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			h.Logger.Error().Interface("panic", rec).Msg("webhook handler panic")
		}
		acknowledge(w)
	}()

	provider := chi.URLParam(r, "provider")
	if provider == "" {
		provider = ProviderFomoPay
	}

	reader := io.Reader(r.Body)
	if h.MaxBody > 0 {
		reader = io.LimitReader(r.Body, h.MaxBody+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		h.ignore(provider, "body_read", err)
		return
	}
	if h.MaxBody > 0 && int64(len(body)) > h.MaxBody {
		h.ignore(provider, "oversized", nil)
		return
	}

	if provider != ProviderFomoPay {
		h.ignore(provider, "unknown_provider", nil)
		return
	}
	if err := h.Verifier.Verify(r.Header.Get(AuthorizationHeader), body); err != nil {
		h.ignore(provider, "bad_signature", err)
		return
	}

	var note Notification
	if err := json.Unmarshal(body, &note); err != nil || note.OrderNo == "" {
		h.ignore(provider, "bad_payload", err)
		return
	}

	ctx := r.Context()
	if h.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.Timeout)
		defer cancel()
	}
	if err := h.relay(ctx, provider, body); err != nil {
		// The provider will retry on its own schedule; the backend record
		// is also reconciled on the result page, so a failed relay is
		// logged but still acknowledged.
		h.Logger.Error().Err(err).
			Str("provider", provider).
			Str("order_no", note.OrderNo).
			Msg("webhook relay failed")
		obs.PaymentWebhookTotal.WithLabelValues(provider, "relay_error").Inc()
		return
	}

	h.Logger.Info().
		Str("provider", provider).
		Str("order_no", note.OrderNo).
		Str("status", string(MapStatus(note.Status))).
		Msg("webhook accepted")
	obs.PaymentWebhookTotal.WithLabelValues(provider, "accepted").Inc()
}

func (h *WebhookHandler) relay(ctx context.Context, provider string, body []byte) error {
	resp, err := h.Backend.Do(ctx, http.MethodPost, "/payments/"+provider+"/webhook", body, nil)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &backend.StatusError{StatusCode: resp.StatusCode, Body: data}
	}
	return nil
}

func (h *WebhookHandler) ignore(provider, reason string, err error) {
	h.Logger.Debug().Err(err).
		Str("provider", provider).
		Str("reason", reason).
		Msg("webhook ignored")
	obs.PaymentWebhookTotal.WithLabelValues(provider, reason).Inc()
}

func acknowledge(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"ok":true}`))
}
