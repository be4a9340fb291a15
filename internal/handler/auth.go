package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/bookstore"
	"storefront/internal/gateway"
	"storefront/internal/logger"
	"storefront/internal/middleware"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	FullName string `json:"fullName"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	s := h.scope(c)
	ctx := c.Request.Context()

	res, err := s.api.Login(ctx, bookstore.Credentials{Username: req.Username, Password: req.Password})
	switch {
	case errors.Is(err, gateway.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	case errors.Is(err, bookstore.ErrNoToken):
		logger.Error("login response without token", nil)
		c.JSON(http.StatusBadGateway, gin.H{"error": "login failed"})
		return
	case err != nil:
		h.fail(c, s, err)
		return
	}

	if err := s.session.Login(ctx, res.User, res.AccessToken); err != nil {
		h.fail(c, s, err)
		return
	}

	user := res.User
	if user == nil {
		// the token is kept even if the profile cannot be fetched yet,
		// unless the backend rejected it, which has logged the session out
		user, err = s.api.Profile(ctx)
		if errors.Is(err, gateway.ErrUnauthorized) {
			h.fail(c, s, err)
			return
		}
		if err != nil {
			logger.Warn("profile fetch after login failed", map[string]any{
				"error": err.Error(),
			})
		} else if err := s.session.SetUser(ctx, user); err != nil {
			logger.Warn("failed to store profile", map[string]any{
				"error": err.Error(),
			})
		}
	}

	logger.Info("login succeeded", map[string]any{
		"username": req.Username,
		"ip":       c.ClientIP(),
	})

	h.renew(c, s)

	c.JSON(http.StatusOK, gin.H{
		"authenticated": true,
		"user":          user,
	})
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	s := h.scope(c)
	created, err := s.api.Register(c.Request.Context(), bookstore.Registration{
		Username: req.Username,
		Password: req.Password,
		Email:    req.Email,
		FullName: req.FullName,
	})
	if err != nil {
		h.fail(c, s, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": created})
}

// refresh replaces the scope's token. A rejected refresh ends the session
// the same way an expired token does on any other call.
func (h *Handler) refresh(c *gin.Context) {
	s := h.scope(c)
	ctx := c.Request.Context()

	unlock := h.locks.lock(s.id)
	defer unlock()

	token, err := s.session.CurrentToken(ctx)
	if err != nil {
		h.fail(c, s, err)
		return
	}
	if token == "" {
		middleware.RejectAuth(c.Writer, c.Request, h.loginPath)
		return
	}

	user, err := s.session.CurrentUser(ctx)
	if err != nil {
		h.fail(c, s, err)
		return
	}

	res, err := s.api.Refresh(ctx, token)
	if errors.Is(err, gateway.ErrUnauthorized) {
		if err := s.session.Logout(ctx); err != nil {
			h.fail(c, s, err)
			return
		}
		middleware.RejectAuth(c.Writer, c.Request, h.loginPath)
		return
	}
	if err != nil {
		h.fail(c, s, err)
		return
	}

	if res.User != nil {
		user = res.User
	}
	if err := s.session.Login(ctx, user, res.AccessToken); err != nil {
		h.fail(c, s, err)
		return
	}
	h.renew(c, s)
	c.JSON(http.StatusOK, gin.H{"authenticated": true, "user": user})
}

// logout is idempotent: an anonymous scope gets the same 204.
func (h *Handler) logout(c *gin.Context) {
	s := h.scope(c)
	if err := s.session.Logout(c.Request.Context()); err != nil {
		h.fail(c, s, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) me(c *gin.Context) {
	s := h.scope(c)
	ctx := c.Request.Context()

	authenticated, err := s.session.Authenticated(ctx)
	if err != nil {
		h.fail(c, s, err)
		return
	}
	if !authenticated {
		c.JSON(http.StatusOK, gin.H{"authenticated": false, "user": nil})
		return
	}

	user, err := s.session.CurrentUser(ctx)
	if err != nil {
		h.fail(c, s, err)
		return
	}
	if user == nil {
		user, err = s.api.Profile(ctx)
		if err != nil {
			h.fail(c, s, err)
			return
		}
		if err := s.session.SetUser(ctx, user); err != nil {
			logger.Warn("failed to store profile", map[string]any{
				"error": err.Error(),
			})
		}
	}

	c.JSON(http.StatusOK, gin.H{"authenticated": true, "user": user})
}
