package catalog_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/lioncity-tours/gateway/internal/backend"
	"github.com/lioncity-tours/gateway/internal/catalog"
)

func newService(t *testing.T, handler http.Handler, withCache bool) (*catalog.Service, *atomic.Int64) {
	t.Helper()
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		handler.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)

	var cache *catalog.Cache
	if withCache {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		cache = catalog.NewCache(client, time.Minute)
	}

	return &catalog.Service{
		Backend: backend.New(srv.URL, 2*time.Second, zerolog.Nop()),
		Cache:   cache,
		Logger:  zerolog.Nop(),
	}, &calls
}

func toursHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":1,"name":"City Essentials (Half-Day)","price_pp":89},{"id":2,"name":"Foodie Night Walk","price_pp":99.5}]`))
	})
}

func TestToursCached(t *testing.T) {
	svc, calls := newService(t, toursHandler(), true)

	first, err := svc.Tours(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 2)

	second, err := svc.Tours(context.Background())
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, int64(1), calls.Load(), "second read must come from cache")
}

func TestTourPrice(t *testing.T) {
	svc, _ := newService(t, toursHandler(), false)

	name, cents, known, err := svc.TourPrice(context.Background(), 2)
	require.NoError(t, err)
	require.True(t, known)
	require.Equal(t, "Foodie Night Walk", name)
	require.Equal(t, int64(9950), cents)

	_, _, _, err = svc.TourPrice(context.Background(), 99)
	require.Error(t, err)
}

func TestToursFallback(t *testing.T) {
	down := httptest.NewServer(http.NotFoundHandler())
	down.Close()

	svc := &catalog.Service{
		Backend:  backend.New(down.URL, 500*time.Millisecond, zerolog.Nop()),
		Fallback: true,
		Logger:   zerolog.Nop(),
	}
	tours, err := svc.Tours(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, tours)

	svc.Fallback = false
	_, err = svc.Tours(context.Background())
	require.Error(t, err)
}
