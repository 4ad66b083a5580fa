package resilience_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lioncity-tours/gateway/internal/resilience"
)

func TestBreakerOpensAfterFailures(t *testing.T) {
	b := resilience.NewBreaker(4, 0.5, time.Minute)
	for i := 0; i < 4; i++ {
		require.True(t, b.Allow())
		b.Report(false)
	}
	require.Equal(t, resilience.Open, b.CurrentState())
	require.False(t, b.Allow())
}

func TestBreakerHalfOpenRecovery(t *testing.T) {
	b := resilience.NewBreaker(2, 0.5, 10*time.Millisecond)
	b.Report(false)
	b.Report(false)
	require.Equal(t, resilience.Open, b.CurrentState())

	time.Sleep(20 * time.Millisecond)
	require.True(t, b.Allow())
	require.Equal(t, resilience.HalfOpen, b.CurrentState())

	b.Report(true)
	require.Equal(t, resilience.Closed, b.CurrentState())
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	b := resilience.NewBreaker(2, 0.5, 10*time.Millisecond)
	b.Report(false)
	b.Report(false)
	time.Sleep(20 * time.Millisecond)
	require.True(t, b.Allow())
	b.Report(false)
	require.Equal(t, resilience.Open, b.CurrentState())
	require.False(t, b.Allow())
}

func TestHTTPClientReportsServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	breaker := resilience.NewBreaker(2, 0.5, time.Minute)
	client := resilience.HTTPClient{Client: srv.Client(), Breaker: breaker}

	for i := 0; i < 2; i++ {
		req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
		require.NoError(t, err)
		resp, err := client.Do(context.Background(), req)
		require.NoError(t, err)
		require.Equal(t, http.StatusBadGateway, resp.StatusCode)
		resp.Body.Close()
	}

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	_, err = client.Do(context.Background(), req)
	require.ErrorIs(t, err, resilience.ErrOpenCircuit)
}
