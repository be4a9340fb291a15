package middleware

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"storefront/internal/logger"
	"storefront/internal/session"
	"storefront/internal/storage"
)

type AuthMiddleware struct {
	KV        storage.KV
	TTL       time.Duration
	LoginPath string
}

func NewAuthMiddleware(kv storage.KV, ttl time.Duration, loginPath string) *AuthMiddleware {
	if loginPath == "" {
		loginPath = "/login"
	}
	return &AuthMiddleware{KV: kv, TTL: ttl, LoginPath: loginPath}
}

// RequireAuth lets the request through only when its client scope holds a
// token. Whether the token is still valid is for the backend to decide.
func (a *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		scope, ok := ScopeFromContext(r.Context())
		if !ok {
			RejectAuth(w, r, a.LoginPath)
			return
		}

		authenticated, err := session.NewStore(a.KV, scope, a.TTL).Authenticated(r.Context())
		if err != nil {
			logger.Error("session lookup failed", map[string]any{
				"path":  r.URL.Path,
				"error": err.Error(),
			})
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"error": "session storage unavailable",
			})
			return
		}
		if !authenticated {
			RejectAuth(w, r, a.LoginPath)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RejectAuth sends the user to the login view: a redirect for browser
// navigations, a 401 naming the redirect target for everything else.
func RejectAuth(w http.ResponseWriter, r *http.Request, loginPath string) {
	if WantsHTML(r) {
		http.Redirect(w, r, loginPath, http.StatusFound)
		return
	}
	writeJSON(w, http.StatusUnauthorized, map[string]any{
		"error":    "authentication required",
		"redirect": loginPath,
	})
}

// WantsHTML reports whether r is a top-level browser navigation.
func WantsHTML(r *http.Request) bool {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return false
	}
	if r.Header.Get("X-Requested-With") == "XMLHttpRequest" {
		return false
	}
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
