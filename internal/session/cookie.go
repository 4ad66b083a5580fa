package session

import (
	"net/http"

	"github.com/google/uuid"
)

// Cookies mints and reads the browser session cookie. The cookie carries an
// opaque uuid only; all state lives server-side in the Store. No MaxAge is
// set so the cookie dies with the browser session.
type Cookies struct {
	Name     string
	Secure   bool
	SameSite http.SameSite
}

// ID returns the session id from the request cookie, minting and setting a
// new one when absent or unreadable.
func (c Cookies) ID(w http.ResponseWriter, r *http.Request) string {
	if ck, err := r.Cookie(c.Name); err == nil && ck.Value != "" {
		if _, err := uuid.Parse(ck.Value); err == nil {
			return ck.Value
		}
	}
	sid := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Value:    sid,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: c.sameSite(),
	})
	return sid
}

// Peek returns the session id without minting one. The second return reports
// whether a valid cookie was present.
func (c Cookies) Peek(r *http.Request) (string, bool) {
	ck, err := r.Cookie(c.Name)
	if err != nil || ck.Value == "" {
		return "", false
	}
	if _, err := uuid.Parse(ck.Value); err != nil {
		return "", false
	}
	return ck.Value, true
}

func (c Cookies) sameSite() http.SameSite {
	if c.SameSite == 0 {
		return http.SameSiteLaxMode
	}
	return c.SameSite
}
