package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/session"
	"storefront/internal/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newEngine(kv storage.KV) *gin.Engine {
	r := gin.New()
	r.Use(GinClientScope(NewScopeMiddleware(session.CookieOptions{})))

	r.GET("/scope", func(c *gin.Context) {
		id, _ := ScopeFromContext(c.Request.Context())
		c.String(http.StatusOK, id)
	})

	protected := r.Group("/")
	protected.Use(GinRequireAuth(NewAuthMiddleware(kv, 0, "/login")))
	protected.GET("/orders", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func scopeCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.CookieName {
			return c
		}
	}
	t.Fatalf("no %s cookie issued", session.CookieName)
	return nil
}

func TestClientScopeIssuesCookie(t *testing.T) {
	r := newEngine(storage.NewMemoryKV())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/scope", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	cookie := scopeCookie(t, rec)
	assert.True(t, session.ValidID(cookie.Value))
	assert.Equal(t, cookie.Value, rec.Body.String())
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, "/", cookie.Path)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
}

func TestClientScopeReusesValidCookie(t *testing.T) {
	r := newEngine(storage.NewMemoryKV())
	id, err := session.GenerateID()
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/scope", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: id})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, id, rec.Body.String())
	assert.Empty(t, rec.Result().Cookies())
}

func TestClientScopeReplacesForgedCookie(t *testing.T) {
	r := newEngine(storage.NewMemoryKV())

	req := httptest.NewRequest(http.MethodGet, "/scope", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "admin:token"})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	cookie := scopeCookie(t, rec)
	assert.NotEqual(t, "admin:token", cookie.Value)
	assert.Equal(t, cookie.Value, rec.Body.String())
}

func TestRequireAuth(t *testing.T) {
	kv := storage.NewMemoryKV()
	r := newEngine(kv)

	loggedIn, err := session.GenerateID()
	require.NoError(t, err)
	require.NoError(t, session.NewStore(kv, loggedIn, 0).Login(context.Background(), nil, "abc.def.ghi"))

	anonymous, err := session.GenerateID()
	require.NoError(t, err)

	tests := []struct {
		name     string
		scope    string
		accept   string
		status   int
		location string
	}{
		{name: "logged in", scope: loggedIn, status: http.StatusOK},
		{name: "anonymous xhr", scope: anonymous, accept: "application/json", status: http.StatusUnauthorized},
		{name: "anonymous navigation", scope: anonymous, accept: "text/html,application/xhtml+xml", status: http.StatusFound, location: "/login"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/orders", nil)
			req.AddCookie(&http.Cookie{Name: session.CookieName, Value: tt.scope})
			if tt.accept != "" {
				req.Header.Set("Accept", tt.accept)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.location != "" {
				assert.Equal(t, tt.location, rec.Header().Get("Location"))
			}
			if tt.status == http.StatusUnauthorized {
				var body map[string]string
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				assert.Equal(t, "/login", body["redirect"])
			}
		})
	}
}

func TestWantsHTML(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept", "text/html")
	assert.True(t, WantsHTML(req))

	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	assert.False(t, WantsHTML(req))

	post := httptest.NewRequest(http.MethodPost, "/", nil)
	post.Header.Set("Accept", "text/html")
	assert.False(t, WantsHTML(post))
}
