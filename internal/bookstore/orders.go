package bookstore

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"storefront/internal/gateway"
	"storefront/internal/model"
)

type OrderItem struct {
	ProductID model.ID `json:"productId"`
	Title     string   `json:"title"`
	Price     float64  `json:"price"`
	Quantity  int      `json:"quantity"`
}

type Shipping struct {
	FullName string `json:"fullName"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	City     string `json:"city,omitempty"`
	Note     string `json:"note,omitempty"`
}

type Payment struct {
	Method string `json:"method"`
}

// OrderRequest is a cart snapshot plus shipping and payment details.
type OrderRequest struct {
	Items    []OrderItem `json:"items"`
	Shipping Shipping    `json:"shipping"`
	Payment  Payment     `json:"payment"`
	Total    float64     `json:"totalAmount"`
}

// IdempotencyKey derives a stable key for this order placed from scope.
// Resubmitting the same cart with the same details yields the same key, so
// a backend that honours the header can drop the duplicate.
func (o OrderRequest) IdempotencyKey(scope string) (string, error) {
	data, err := json.Marshal(o)
	if err != nil {
		return "", fmt.Errorf("bookstore: order key: %w", err)
	}
	return uuid.NewSHA1(orderKeySpace, append([]byte(scope+"\n"), data...)).String(), nil
}

var orderKeySpace = uuid.MustParse("5b0c7a8e-3f7d-4d8e-9a53-0f3c2d8e6a11")

// CreateOrder places an order under idempotencyKey; an empty key gets a
// random one.
func (c *Client) CreateOrder(ctx context.Context, order OrderRequest, idempotencyKey string) (json.RawMessage, error) {
	if idempotencyKey == "" {
		idempotencyKey = uuid.NewString()
	}
	resp, err := c.gw.Do(ctx, "orders.create", gateway.Request{
		Method: http.MethodPost,
		Path:   "/orders",
		Body:   order,
		Header: http.Header{"Idempotency-Key": {idempotencyKey}},
	})
	if err != nil {
		return nil, err
	}
	return resp.Object(), nil
}

// MyOrders lists the orders of the logged-in user.
func (c *Client) MyOrders(ctx context.Context, q Query) (List[json.RawMessage], error) {
	resp, err := c.gw.Get(ctx, "orders.mine", "/orders/my", q.values())
	if err != nil {
		return List[json.RawMessage]{}, err
	}
	return listFrom[json.RawMessage](resp.Page())
}

// AllOrders lists every order for the admin console.
func (c *Client) AllOrders(ctx context.Context, q Query) (List[json.RawMessage], error) {
	resp, err := c.gw.Fallback(ctx, "orders.all", allOrdersPaths, gateway.Request{
		Method: http.MethodGet,
		Query:  q.values(),
	})
	if err != nil {
		return List[json.RawMessage]{}, err
	}
	return listFrom[json.RawMessage](resp.Page())
}

func (c *Client) UpdateOrderStatus(ctx context.Context, id, status string) (json.RawMessage, error) {
	return c.resource("orders", "/orders", nil).UpdateStatus(ctx, id, status)
}
