package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GinClientScope adapts ScopeMiddleware.ClientScope to Gin.
func GinClientScope(m *ScopeMiddleware) gin.HandlerFunc {
	return adapt(m.ClientScope)
}

// GinRequireAuth adapts AuthMiddleware.RequireAuth to Gin.
func GinRequireAuth(auth *AuthMiddleware) gin.HandlerFunc {
	return adapt(auth.RequireAuth)
}

// adapt runs a net/http middleware inside a Gin chain. When the middleware
// answers the request itself, the rest of the chain is aborted.
func adapt(mw func(http.Handler) http.Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		passed := false

		// Bridge handler to allow net/http middleware execution
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			passed = true
			c.Request = r
			c.Next()
		})

		mw(next).ServeHTTP(c.Writer, c.Request)

		if !passed {
			c.Abort()
		}
	}
}
