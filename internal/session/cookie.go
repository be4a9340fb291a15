package session

import (
	"net/http"
	"time"
)

const (
	CookieName = "sf_client"
)

// CookieOptions defines how the client scope cookie is issued.
type CookieOptions struct {
	Path     string
	HttpOnly bool
	Secure   bool
	SameSite http.SameSite
	Domain   string
	MaxAge   time.Duration
}

// normalize applies safe defaults without breaking callers
func (o CookieOptions) normalize() CookieOptions {
	if o.Path == "" {
		o.Path = "/"
	}
	if !o.HttpOnly {
		o.HttpOnly = true
	}
	if o.SameSite == 0 {
		o.SameSite = http.SameSiteLaxMode
	}
	if o.MaxAge <= 0 {
		o.MaxAge = DefaultTTL
	}
	return o
}

// SetCookie issues the client scope cookie.
func SetCookie(w http.ResponseWriter, clientID string, opts CookieOptions) {
	opts = opts.normalize()

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    clientID,
		Path:     opts.Path,
		Domain:   opts.Domain,
		Expires:  time.Now().Add(opts.MaxAge),
		MaxAge:   int(opts.MaxAge.Seconds()),
		HttpOnly: opts.HttpOnly,
		Secure:   opts.Secure,
		SameSite: opts.SameSite,
	})
}
