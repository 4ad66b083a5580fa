package admin

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/lioncity-tours/gateway/internal/backend"
	"github.com/lioncity-tours/gateway/internal/common"
)

// Proxy relays authenticated admin calls to the backend's /admin surface,
// translating the http-only cookie into a bearer header. Every proxied call
// requires the cookie; there is no anonymous admin read.
type Proxy struct {
	Backend    *backend.Client
	CookieName string
	Logger     zerolog.Logger
}

// Handle serves the admin catch-all mounted under a chi wildcard route.
func (p *Proxy) Handle(w http.ResponseWriter, r *http.Request) {
	rest := "/" + chi.URLParam(r, "*")

	// The session endpoints are the gateway's own; a trailing-slash or
	// cased variant must not fall through to the backend.
	if seg := strings.Trim(rest, "/"); strings.EqualFold(seg, "session") {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "no such admin resource", nil)
		return
	}

	cookie, err := r.Cookie(p.CookieName)
	if err != nil || cookie.Value == "" {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "admin login required", nil)
		return
	}

	p.Backend.Forward(w, r, "/admin"+rest, backend.ForwardOptions{
		Target:        "admin",
		Authorization: "Bearer " + cookie.Value,
	})
}
