package bookstore

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"storefront/internal/gateway"
	"storefront/internal/logger"
)

// Dashboard is the admin overview. A section whose call failed is empty and
// listed in Failed; the others are still usable.
type Dashboard struct {
	Users  []json.RawMessage `json:"users"`
	Orders []json.RawMessage `json:"orders"`
	Books  []json.RawMessage `json:"books"`
	Failed []string          `json:"failed,omitempty"`
}

// Dashboard loads users, orders and books concurrently and waits for all
// three. Section failures are tolerated, except an authentication
// rejection: the session is gone then and the error is returned.
func (c *Client) Dashboard(ctx context.Context) (Dashboard, error) {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		d        Dashboard
		failed   = map[string]bool{}
		rejected error
	)

	load := func(section string, dst *[]json.RawMessage, fetch func() (List[json.RawMessage], error)) {
		defer wg.Done()
		list, err := fetch()

		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			logger.Warn("dashboard section unavailable", map[string]any{
				"section": section,
				"error":   err.Error(),
			})
			failed[section] = true
			if rejected == nil && errors.Is(err, gateway.ErrUnauthorized) {
				rejected = err
			}
			*dst = []json.RawMessage{}
			return
		}
		*dst = list.Items
	}

	q := Query{Size: 100}
	wg.Add(3)
	go load("users", &d.Users, func() (List[json.RawMessage], error) { return c.Users().List(ctx, q) })
	go load("orders", &d.Orders, func() (List[json.RawMessage], error) { return c.AllOrders(ctx, q) })
	go load("books", &d.Books, func() (List[json.RawMessage], error) { return c.Books().List(ctx, q) })
	wg.Wait()

	if rejected != nil {
		return Dashboard{}, rejected
	}

	for _, section := range []string{"users", "orders", "books"} {
		if failed[section] {
			d.Failed = append(d.Failed, section)
		}
	}
	return d, nil
}
