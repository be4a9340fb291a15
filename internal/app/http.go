package app

import (
	"context"
	"net/http"

	"storefront/internal/config"
	"storefront/internal/gateway"
	"storefront/internal/handler"
	"storefront/internal/logger"
	"storefront/internal/middleware"
	"storefront/internal/session"

	"github.com/gin-gonic/gin"
)

func setupHTTP(ctx context.Context, cfg config.Config) (*gin.Engine, func() error, error) {
	infra, err := setupInfra(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	// ----------------------------
	// Dependencies
	// ----------------------------

	gw := gateway.New(
		cfg.BackendBaseURL,
		gateway.WithTimeout(cfg.BackendTimeout),
		gateway.WithLoginPath(cfg.LoginPath),
	)

	cookie := session.CookieOptions{
		Secure:   cfg.CookieSecure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   cfg.SessionTTL,
	}

	scopeMiddleware := middleware.NewScopeMiddleware(cookie)
	authMiddleware := middleware.NewAuthMiddleware(infra.KV, cfg.SessionTTL, cfg.LoginPath)

	storefront := handler.NewHandler(infra.KV, gw, handler.Options{
		TTL:       cfg.SessionTTL,
		LoginPath: cfg.LoginPath,
		Cookie:    cookie,
	})

	// ----------------------------
	// Router
	// ----------------------------

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.GinClientScope(scopeMiddleware))

	storefront.RegisterRoutes(router, middleware.GinRequireAuth(authMiddleware))

	for _, route := range router.Routes() {
		logger.Info("route registered", map[string]any{
			"method": route.Method,
			"path":   route.Path,
		})
	}

	// ----------------------------
	// Cleanup
	// ----------------------------

	return router, infra.Close, nil
}
