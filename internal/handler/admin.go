package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/bookstore"
)

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

var adminResources = []func(*bookstore.Client) bookstore.Resource{
	(*bookstore.Client).Books,
	(*bookstore.Client).Categories,
	(*bookstore.Client).Publishers,
	(*bookstore.Client).Users,
	(*bookstore.Client).Roles,
	(*bookstore.Client).Permissions,
	(*bookstore.Client).Discounts,
}

// collections with a status endpoint
var statusResources = []func(*bookstore.Client) bookstore.Resource{
	(*bookstore.Client).Users,
	(*bookstore.Client).Discounts,
}

func (h *Handler) registerAdmin(admin gin.IRouter) {
	for _, res := range adminResources {
		name := res(bookstore.New(nil)).Name()
		g := admin.Group("/" + name)
		g.GET("", h.adminList(res))
		g.POST("", h.adminCreate(res))
		g.GET("/:id", h.adminGet(res))
		g.PUT("/:id", h.adminUpdate(res))
		g.DELETE("/:id", h.adminDelete(res))
	}
	for _, res := range statusResources {
		admin.PATCH("/"+res(bookstore.New(nil)).Name()+"/:id/status", h.adminStatus(res))
	}

	admin.GET("/orders", h.allOrders)
	admin.PATCH("/orders/:id/status", h.updateOrderStatus)
	admin.GET("/dashboard", h.dashboard)
}

// rawBody reads a JSON body that is passed to the backend unchanged.
func rawBody(c *gin.Context) (json.RawMessage, bool) {
	data, err := c.GetRawData()
	if err != nil || !json.Valid(data) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return nil, false
	}
	return json.RawMessage(data), true
}

func (h *Handler) adminList(res func(*bookstore.Client) bookstore.Resource) gin.HandlerFunc {
	return func(c *gin.Context) {
		s := h.scope(c)
		list, err := res(s.api).List(c.Request.Context(), listQuery(c))
		if err != nil {
			h.fail(c, s, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

func (h *Handler) adminGet(res func(*bookstore.Client) bookstore.Resource) gin.HandlerFunc {
	return func(c *gin.Context) {
		s := h.scope(c)
		item, err := res(s.api).Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			h.fail(c, s, err)
			return
		}
		c.JSON(http.StatusOK, item)
	}
}

func (h *Handler) adminCreate(res func(*bookstore.Client) bookstore.Resource) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, ok := rawBody(c)
		if !ok {
			return
		}
		s := h.scope(c)
		item, err := res(s.api).Create(c.Request.Context(), body)
		if err != nil {
			h.fail(c, s, err)
			return
		}
		c.JSON(http.StatusCreated, item)
	}
}

func (h *Handler) adminUpdate(res func(*bookstore.Client) bookstore.Resource) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, ok := rawBody(c)
		if !ok {
			return
		}
		s := h.scope(c)
		item, err := res(s.api).Update(c.Request.Context(), c.Param("id"), body)
		if err != nil {
			h.fail(c, s, err)
			return
		}
		c.JSON(http.StatusOK, item)
	}
}

func (h *Handler) adminDelete(res func(*bookstore.Client) bookstore.Resource) gin.HandlerFunc {
	return func(c *gin.Context) {
		s := h.scope(c)
		if err := res(s.api).Delete(c.Request.Context(), c.Param("id")); err != nil {
			h.fail(c, s, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func (h *Handler) adminStatus(res func(*bookstore.Client) bookstore.Resource) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req statusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		s := h.scope(c)
		item, err := res(s.api).UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
		if err != nil {
			h.fail(c, s, err)
			return
		}
		c.JSON(http.StatusOK, item)
	}
}

func (h *Handler) allOrders(c *gin.Context) {
	s := h.scope(c)
	list, err := s.api.AllOrders(c.Request.Context(), listQuery(c))
	if err != nil {
		h.fail(c, s, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) updateOrderStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	s := h.scope(c)
	order, err := s.api.UpdateOrderStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		h.fail(c, s, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) dashboard(c *gin.Context) {
	s := h.scope(c)
	d, err := s.api.Dashboard(c.Request.Context())
	if err != nil {
		h.fail(c, s, err)
		return
	}
	c.JSON(http.StatusOK, d)
}
