package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/bookstore"
	"storefront/internal/logger"
)

type checkoutRequest struct {
	Shipping bookstore.Shipping `json:"shipping"`
	Payment  bookstore.Payment  `json:"payment"`
}

// checkout turns the cart into an order. The cart is cleared only after the
// backend accepted the order.
func (h *Handler) checkout(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if req.Shipping.FullName == "" || req.Shipping.Phone == "" || req.Shipping.Address == "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "shipping name, phone and address are required"})
		return
	}
	if req.Payment.Method == "" {
		req.Payment.Method = "COD"
	}

	s := h.scope(c)
	ctx := c.Request.Context()

	// held until the cart is cleared, so a concurrent add is either part of
	// this order or lands after the clear
	unlock := h.locks.lock(s.id)
	defer unlock()

	store, ok := h.loadCart(c, s)
	if !ok {
		return
	}
	if store.Empty() {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "cart is empty"})
		return
	}

	lines := store.Lines()
	items := make([]bookstore.OrderItem, 0, len(lines))
	for _, l := range lines {
		items = append(items, bookstore.OrderItem{
			ProductID: l.ProductID,
			Title:     l.Title,
			Price:     l.Price,
			Quantity:  l.Quantity,
		})
	}

	orderReq := bookstore.OrderRequest{
		Items:    items,
		Shipping: req.Shipping,
		Payment:  req.Payment,
		Total:    store.TotalPrice(),
	}
	key, err := orderReq.IdempotencyKey(s.id)
	if err != nil {
		h.fail(c, s, err)
		return
	}

	order, err := s.api.CreateOrder(ctx, orderReq, key)
	if err != nil {
		h.fail(c, s, err)
		return
	}

	if err := store.Clear(ctx); err != nil {
		// the order exists; a stale cart is the lesser problem
		logger.Error("failed to clear cart after checkout", map[string]any{
			"error": err.Error(),
		})
	}

	c.JSON(http.StatusCreated, gin.H{"order": order})
}

func (h *Handler) myOrders(c *gin.Context) {
	s := h.scope(c)
	list, err := s.api.MyOrders(c.Request.Context(), listQuery(c))
	if err != nil {
		h.fail(c, s, err)
		return
	}
	c.JSON(http.StatusOK, list)
}
