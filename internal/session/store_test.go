package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/lioncity-tours/gateway/internal/booking"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return &Store{R: client, TTL: time.Hour}, mr
}

func TestStoreSaveLoadClear(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	state := Checkout{
		OrderID: "ord-123",
		Contact: booking.Contact{Name: "Jane Tan", Email: "jane@example.com", Phone: "91234567"},
	}
	require.NoError(t, s.SaveCheckout(ctx, "sid-1", state))

	got, ok, err := s.LoadCheckout(ctx, "sid-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "ord-123", got.OrderID)
	require.Equal(t, "jane@example.com", got.Contact.Email)
	require.False(t, got.SavedAt.IsZero())

	require.NoError(t, s.ClearCheckout(ctx, "sid-1"))
	_, ok, err = s.LoadCheckout(ctx, "sid-1")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestStoreMissingSession(t *testing.T) {
	s, _ := newTestStore(t)
	_, ok, err := s.LoadCheckout(context.Background(), "unknown")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestStoreExpires(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveCheckout(ctx, "sid-ttl", Checkout{OrderID: "ord-1"}))

	mr.FastForward(2 * time.Hour)

	_, ok, err := s.LoadCheckout(ctx, "sid-ttl")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestStoreNotConfigured(t *testing.T) {
	var s *Store
	err := s.SaveCheckout(context.Background(), "x", Checkout{})
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestCookiesMintAndReuse(t *testing.T) {
	c := Cookies{Name: "tour_session"}

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	sid := c.ID(w, r)
	require.NoError(t, uuid.Validate(sid))

	set := w.Result().Cookies()
	require.Len(t, set, 1)
	require.Equal(t, "tour_session", set[0].Name)
	require.Equal(t, sid, set[0].Value)
	require.True(t, set[0].HttpOnly)
	require.Equal(t, 0, set[0].MaxAge)

	// Subsequent request with the cookie reuses the id and sets nothing.
	w2 := httptest.NewRecorder()
	r2 := httptest.NewRequest(http.MethodGet, "/", nil)
	r2.AddCookie(set[0])
	require.Equal(t, sid, c.ID(w2, r2))
	require.Empty(t, w2.Result().Cookies())

	got, ok := c.Peek(r2)
	require.True(t, ok)
	require.Equal(t, sid, got)
}

func TestCookiesRejectsGarbage(t *testing.T) {
	c := Cookies{Name: "tour_session"}
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: "tour_session", Value: "not-a-uuid"})

	_, ok := c.Peek(r)
	require.False(t, ok)

	w := httptest.NewRecorder()
	sid := c.ID(w, r)
	require.NoError(t, uuid.Validate(sid))
	require.NotEqual(t, "not-a-uuid", sid)
}
