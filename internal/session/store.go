package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/lioncity-tours/gateway/internal/booking"
)

// Checkout is the per-session state that must survive the redirect to the
// hosted payment page: the backend-issued order id and a contact snapshot.
// It is written once at order initiation and read once at reconciliation.
type Checkout struct {
	OrderID string          `json:"orderId"`
	Contact booking.Contact `json:"contact"`
	SavedAt time.Time       `json:"savedAt"`
}

// ErrNotConfigured is returned when the store has no Redis client.
var ErrNotConfigured = errors.New("session: store not configured")

// Store keeps checkout state in Redis, keyed by the browser session id. The
// TTL bounds the lifetime server-side; the cookie itself is session-scoped.
type Store struct {
	R   *redis.Client
	TTL time.Duration
}

func checkoutKey(sid string) string {
	return "sess:checkout:" + sid
}

// SaveCheckout persists the checkout state for sid. The write must succeed
// before the caller releases the hosted-payment URL to the browser.
func (s *Store) SaveCheckout(ctx context.Context, sid string, state Checkout) error {
	if s == nil || s.R == nil {
		return ErrNotConfigured
	}
	if state.SavedAt.IsZero() {
		state.SavedAt = time.Now().UTC()
	}
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	ttl := s.TTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return s.R.Set(ctx, checkoutKey(sid), data, ttl).Err()
}

// LoadCheckout fetches the checkout state for sid. The second return reports
// whether any state existed.
func (s *Store) LoadCheckout(ctx context.Context, sid string) (Checkout, bool, error) {
	if s == nil || s.R == nil {
		return Checkout{}, false, ErrNotConfigured
	}
	data, err := s.R.Get(ctx, checkoutKey(sid)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Checkout{}, false, nil
		}
		return Checkout{}, false, err
	}
	var state Checkout
	if err := json.Unmarshal(data, &state); err != nil {
		return Checkout{}, false, err
	}
	return state, true, nil
}

// ClearCheckout removes the checkout state for sid.
func (s *Store) ClearCheckout(ctx context.Context, sid string) error {
	if s == nil || s.R == nil {
		return ErrNotConfigured
	}
	return s.R.Del(ctx, checkoutKey(sid)).Err()
}
