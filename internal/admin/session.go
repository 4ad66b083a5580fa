package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/lioncity-tours/gateway/internal/backend"
	"github.com/lioncity-tours/gateway/internal/common"
)

// CookieOptions shape the admin token cookie. The token itself is opaque to
// the gateway; it is stored http-only and replayed as a bearer header.
type CookieOptions struct {
	Name     string
	TTL      time.Duration
	Domain   string
	Secure   bool
	SameSite http.SameSite
}

// Sessions handles admin login and logout. Credential verification belongs
// entirely to the backend; the gateway only shuttles the password in and the
// token into a cookie.
type Sessions struct {
	Backend *backend.Client
	Cookie  CookieOptions
	Logger  zerolog.Logger
}

type loginRequest struct {
	Password string `json:"password"`
}

// Login handles POST /session.
func (s *Sessions) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Password) == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "Password is required.", nil)
		return
	}

	token, err := s.login(r.Context(), req.Password)
	if err != nil {
		var se *backend.StatusError
		if errors.As(err, &se) {
			status := se.StatusCode
			if status != http.StatusUnauthorized && status != http.StatusForbidden {
				status = http.StatusUnauthorized
			}
			common.JSONError(w, status, "LOGIN_FAILED", se.Message(), nil)
			return
		}
		s.Logger.Error().Err(err).Msg("admin login backend call failed")
		common.JSONError(w, http.StatusBadGateway, "BACKEND_UNAVAILABLE", "Login is unavailable right now.", nil)
		return
	}

	http.SetCookie(w, s.cookie(token, s.Cookie.TTL))
	common.JSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Logout handles DELETE /session.
func (s *Sessions) Logout(w http.ResponseWriter, r *http.Request) {
	c := s.cookie("", -time.Second)
	c.MaxAge = -1
	http.SetCookie(w, c)
	common.JSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Sessions) login(ctx context.Context, password string) (string, error) {
	var resp struct {
		Token string `json:"token"`
	}
	if err := s.Backend.PostJSON(ctx, "/admin/login", loginRequest{Password: password}, &resp); err != nil {
		return "", err
	}
	if resp.Token == "" {
		return "", &backend.StatusError{StatusCode: http.StatusBadGateway, Body: []byte("login response missing token")}
	}
	return resp.Token, nil
}

func (s *Sessions) cookie(token string, ttl time.Duration) *http.Cookie {
	maxAge := 0
	if ttl > 0 {
		maxAge = int(ttl / time.Second)
	}
	sameSite := s.Cookie.SameSite
	if sameSite == http.SameSiteDefaultMode {
		sameSite = http.SameSiteLaxMode
	}
	return &http.Cookie{
		Name:     s.Cookie.Name,
		Value:    token,
		Path:     "/",
		Domain:   s.Cookie.Domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.Cookie.Secure,
		SameSite: sameSite,
	}
}
