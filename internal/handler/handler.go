// Package handler is the storefront's HTTP surface. Every request runs in
// its client scope: the session, the cart and the gateway calls are all
// bound to the scope's id.
package handler

import (
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"storefront/internal/bookstore"
	"storefront/internal/gateway"
	"storefront/internal/logger"
	"storefront/internal/middleware"
	"storefront/internal/session"
	"storefront/internal/storage"
)

type Handler struct {
	kv        storage.KV
	gw        *gateway.Client
	ttl       time.Duration
	loginPath string
	cookie    session.CookieOptions
	locks     *scopeLocks
}

// Options configures a Handler. Zero values fall back to the session
// defaults.
type Options struct {
	// TTL bounds the session token, the cart and the scope cookie.
	TTL       time.Duration
	LoginPath string
	Cookie    session.CookieOptions
}

func NewHandler(kv storage.KV, gw *gateway.Client, opts Options) *Handler {
	if opts.TTL <= 0 {
		opts.TTL = session.DefaultTTL
	}
	if opts.LoginPath == "" {
		opts.LoginPath = gateway.DefaultLoginPath
	}
	if opts.Cookie.MaxAge <= 0 {
		opts.Cookie.MaxAge = opts.TTL
	}
	return &Handler{
		kv:        kv,
		gw:        gw,
		ttl:       opts.TTL,
		loginPath: opts.LoginPath,
		cookie:    opts.Cookie,
		locks:     newScopeLocks(),
	}
}

// RegisterRoutes mounts all storefront routes. r must already run the
// client scope middleware; requireAuth guards the routes that need a login.
func (h *Handler) RegisterRoutes(r gin.IRouter, requireAuth gin.HandlerFunc) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.POST("/auth/login", h.login)
	r.POST("/auth/register", h.register)
	r.POST("/auth/logout", h.logout)
	r.POST("/auth/refresh", h.refresh)
	r.GET("/me", h.me)

	r.GET("/cart", h.getCart)
	r.POST("/cart/items", h.addCartItem)
	r.PATCH("/cart/items/:productId", h.updateCartItem)
	r.DELETE("/cart/items/:productId", h.removeCartItem)
	r.DELETE("/cart", h.clearCart)

	r.GET("/books", h.listBooks)
	r.GET("/books/:id", h.getBook)
	r.GET("/books/slug/:slug", h.getBookBySlug)
	r.GET("/categories", h.listCategories)

	member := r.Group("/")
	member.Use(requireAuth)
	member.POST("/checkout", h.checkout)
	member.GET("/orders", h.myOrders)

	admin := r.Group("/admin")
	admin.Use(requireAuth)
	h.registerAdmin(admin)
}

// redirect records where the gateway wants the user to go. The handler
// turns it into a response once the backend call has returned.
// Concurrent backend calls of one request may all report.
type redirect struct {
	mu sync.Mutex
	to string
}

func (r *redirect) Redirect(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.to = path
}

func (r *redirect) target() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.to
}

// scope is everything one request needs, bound to its client scope.
type scope struct {
	id      string
	session *session.Store
	api     *bookstore.Client
	nav     *redirect
}

// renew re-issues the scope cookie so it lives as long as the state just
// written under it. Call it before the response body is written.
func (h *Handler) renew(c *gin.Context, s *scope) {
	session.SetCookie(c.Writer, s.id, h.cookie)
}

func (h *Handler) scope(c *gin.Context) *scope {
	id, _ := middleware.ScopeFromContext(c.Request.Context())
	sess := session.NewStore(h.kv, id, h.ttl)
	nav := &redirect{}
	return &scope{
		id:      id,
		session: sess,
		api:     bookstore.New(h.gw.For(sess, nav)),
		nav:     nav,
	}
}

// fail renders a backend or storage error. An authentication rejection has
// already logged the session out and becomes a redirect to the login view.
func (h *Handler) fail(c *gin.Context, s *scope, err error) {
	var fe *gateway.FallbackError
	if errors.As(err, &fe) {
		logger.Warn("no candidate route answered", map[string]any{
			"op":    fe.Op,
			"error": err.Error(),
		})
		c.JSON(http.StatusBadGateway, gin.H{"error": "backend route unavailable"})
		return
	}

	kind := gateway.KindOf(err)
	if kind == gateway.KindUnauthorized {
		to := h.loginPath
		if s != nil && s.nav.target() != "" {
			to = s.nav.target()
		}
		middleware.RejectAuth(c.Writer, c.Request, to)
		c.Abort()
		return
	}

	status := statusFor(kind)
	if status == http.StatusInternalServerError {
		logger.Error("request failed", map[string]any{
			"method": c.Request.Method,
			"path":   c.FullPath(),
			"error":  err.Error(),
		})
	}

	msg := gateway.MessageOf(err)
	if msg == "" {
		msg = http.StatusText(status)
	}
	c.JSON(status, gin.H{"error": msg})
}

func statusFor(kind gateway.Kind) int {
	switch kind {
	case gateway.KindForbidden:
		return http.StatusForbidden
	case gateway.KindNotFound:
		return http.StatusNotFound
	case gateway.KindValidation:
		return http.StatusUnprocessableEntity
	case gateway.KindClient:
		return http.StatusBadRequest
	case gateway.KindServer, gateway.KindUnreachable:
		return http.StatusBadGateway
	case gateway.KindTimeout:
		return http.StatusGatewayTimeout
	case gateway.KindCanceled:
		// client went away; nobody reads this
		return 499
	}
	return http.StatusInternalServerError
}

func listQuery(c *gin.Context) bookstore.Query {
	page, _ := strconv.Atoi(c.Query("page"))
	size, _ := strconv.Atoi(c.Query("size"))
	return bookstore.Query{
		Page:   page,
		Size:   size,
		Search: c.Query("search"),
		Sort:   c.Query("sort"),
	}
}
