package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/cart"
	"storefront/internal/model"
)

type addItemRequest struct {
	ProductID model.ID `json:"productId" binding:"required"`
}

type updateItemRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

func cartView(s *cart.Store) gin.H {
	return gin.H{
		"items":      s.Lines(),
		"totalCount": s.TotalCount(),
		"totalPrice": s.TotalPrice(),
	}
}

// loadCart reads the scope's cart. Callers that modify it hold the scope
// lock from before the load until the write.
func (h *Handler) loadCart(c *gin.Context, s *scope) (*cart.Store, bool) {
	store, err := cart.Load(c.Request.Context(), h.kv, s.id, h.ttl)
	if err != nil {
		h.fail(c, s, err)
		return nil, false
	}
	return store, true
}

func (h *Handler) getCart(c *gin.Context) {
	s := h.scope(c)
	store, ok := h.loadCart(c, s)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, cartView(store))
}

// addCartItem snapshots the product from the catalog, so title and price
// come from the backend rather than from the request.
func (h *Handler) addCartItem(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	s := h.scope(c)
	ctx := c.Request.Context()

	book, err := s.api.GetBook(ctx, req.ProductID.String())
	if err != nil {
		h.fail(c, s, err)
		return
	}

	unlock := h.locks.lock(s.id)
	defer unlock()

	store, ok := h.loadCart(c, s)
	if !ok {
		return
	}
	if err := store.AddItem(ctx, cart.Product{
		ID:        req.ProductID,
		Title:     book.Title,
		Price:     book.Price,
		Thumbnail: book.Thumbnail,
	}); err != nil {
		h.fail(c, s, err)
		return
	}
	h.renew(c, s)
	c.JSON(http.StatusOK, cartView(store))
}

func (h *Handler) updateCartItem(c *gin.Context) {
	var req updateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	s := h.scope(c)
	unlock := h.locks.lock(s.id)
	defer unlock()

	store, ok := h.loadCart(c, s)
	if !ok {
		return
	}
	if err := store.UpdateQuantity(c.Request.Context(), model.ID(c.Param("productId")), *req.Quantity); err != nil {
		h.fail(c, s, err)
		return
	}
	h.renew(c, s)
	c.JSON(http.StatusOK, cartView(store))
}

func (h *Handler) removeCartItem(c *gin.Context) {
	s := h.scope(c)
	unlock := h.locks.lock(s.id)
	defer unlock()

	store, ok := h.loadCart(c, s)
	if !ok {
		return
	}
	if err := store.RemoveItem(c.Request.Context(), model.ID(c.Param("productId"))); err != nil {
		h.fail(c, s, err)
		return
	}
	h.renew(c, s)
	c.JSON(http.StatusOK, cartView(store))
}

func (h *Handler) clearCart(c *gin.Context) {
	s := h.scope(c)
	unlock := h.locks.lock(s.id)
	defer unlock()

	store, ok := h.loadCart(c, s)
	if !ok {
		return
	}
	if err := store.Clear(c.Request.Context()); err != nil {
		h.fail(c, s, err)
		return
	}
	h.renew(c, s)
	c.JSON(http.StatusOK, cartView(store))
}
