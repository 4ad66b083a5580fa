package admin

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/lioncity-tours/gateway/internal/backend"
)

func newAdminRig(t *testing.T, upstream http.Handler) (*Sessions, *Proxy, chi.Router) {
	t.Helper()
	ts := httptest.NewServer(upstream)
	t.Cleanup(ts.Close)

	client := backend.New(ts.URL, 5*time.Second, zerolog.Nop())
	sessions := &Sessions{
		Backend: client,
		Cookie: CookieOptions{
			Name:     "admin_token",
			TTL:      12 * time.Hour,
			SameSite: http.SameSiteLaxMode,
		},
		Logger: zerolog.Nop(),
	}
	proxy := &Proxy{Backend: client, CookieName: "admin_token", Logger: zerolog.Nop()}

	router := chi.NewRouter()
	router.Route("/api/admin", func(r chi.Router) {
		r.Post("/session", sessions.Login)
		r.Delete("/session", sessions.Logout)
		r.HandleFunc("/*", proxy.Handle)
	})
	return sessions, proxy, router
}

func TestLoginSetsCookie(t *testing.T) {
	_, _, router := newAdminRig(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/admin/login", r.URL.Path)
		var req struct {
			Password string `json:"password"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "s3cret", req.Password)
		_, _ = w.Write([]byte(`{"token":"tok-abc"}`))
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/admin/session", strings.NewReader(`{"password":"s3cret"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, "admin_token", cookies[0].Name)
	require.Equal(t, "tok-abc", cookies[0].Value)
	require.True(t, cookies[0].HttpOnly)
	require.Equal(t, int(12*time.Hour/time.Second), cookies[0].MaxAge)
	require.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)
}

func TestLoginWrongPassword(t *testing.T) {
	_, _, router := newAdminRig(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"Invalid password"}`))
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/admin/session", strings.NewReader(`{"password":"nope"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Contains(t, w.Body.String(), "Invalid password")
	require.Empty(t, w.Result().Cookies())
}

func TestLoginMissingPassword(t *testing.T) {
	_, _, router := newAdminRig(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("backend must not be called without a password")
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/admin/session", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogoutClearsCookie(t *testing.T) {
	_, _, router := newAdminRig(t, http.NewServeMux())

	req := httptest.NewRequest(http.MethodDelete, "/api/admin/session", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, "", cookies[0].Value)
	require.Equal(t, -1, cookies[0].MaxAge)
}

func TestProxyRequiresCookie(t *testing.T) {
	_, _, router := newAdminRig(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("unauthenticated request must not reach the backend")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/admin/overview", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProxyAttachesBearerAndRelays(t *testing.T) {
	_, _, router := newAdminRig(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/admin/timeslots", r.URL.Path)
		require.Equal(t, "tour=1", r.URL.RawQuery)
		require.Equal(t, "Bearer tok-abc", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		require.JSONEq(t, `{"date":"2025-06-01"}`, string(body))
		w.Header().Set("X-Total-Count", "4")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":9}`))
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/admin/timeslots?tour=1", strings.NewReader(`{"date":"2025-06-01"}`))
	req.AddCookie(&http.Cookie{Name: "admin_token", Value: "tok-abc"})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	require.Equal(t, "4", w.Header().Get("X-Total-Count"))
	require.JSONEq(t, `{"id":9}`, w.Body.String())
}

func TestProxyNeverForwardsSessionPath(t *testing.T) {
	_, _, router := newAdminRig(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("session path must not be proxied")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/admin/session/", nil)
	req.AddCookie(&http.Cookie{Name: "admin_token", Value: "tok-abc"})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestProxyBackendDown(t *testing.T) {
	client := backend.New("http://127.0.0.1:1", time.Second, zerolog.Nop())
	proxy := &Proxy{Backend: client, CookieName: "admin_token", Logger: zerolog.Nop()}

	router := chi.NewRouter()
	router.HandleFunc("/api/admin/*", proxy.Handle)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/overview", nil)
	req.AddCookie(&http.Cookie{Name: "admin_token", Value: "tok-abc"})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadGateway, w.Code)
}
