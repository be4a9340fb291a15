package middleware

import (
	"context"
	"net/http"

	"storefront/internal/logger"
	"storefront/internal/session"
)

// unexported, collision-proof context key
type scopeContextKeyType struct{}

var scopeKey = scopeContextKeyType{}

// ScopeFromContext extracts the client scope id set by ClientScope.
func ScopeFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(scopeKey).(string)
	return id, ok && id != ""
}

// WithScope returns ctx carrying the client scope id.
func WithScope(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, scopeKey, id)
}

type ScopeMiddleware struct {
	Cookie session.CookieOptions
}

func NewScopeMiddleware(cookie session.CookieOptions) *ScopeMiddleware {
	return &ScopeMiddleware{Cookie: cookie}
}

// ClientScope makes sure every request belongs to a client scope. A missing
// or malformed cookie gets a fresh id, issued back to the browser.
func (m *ScopeMiddleware) ClientScope(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id string
		if cookie, err := r.Cookie(session.CookieName); err == nil && session.ValidID(cookie.Value) {
			id = cookie.Value
		}

		if id == "" {
			fresh, err := session.GenerateID()
			if err != nil {
				logger.Error("failed to create client scope", map[string]any{
					"error": err.Error(),
				})
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			id = fresh
			session.SetCookie(w, id, m.Cookie)
		}

		next.ServeHTTP(w, r.WithContext(WithScope(r.Context(), id)))
	})
}
