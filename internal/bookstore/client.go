// Package bookstore names the logical operations of the bookstore backend
// and maps each one onto gateway calls, including the candidate paths for
// operations whose route differs between backend versions.
package bookstore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"storefront/internal/gateway"
)

// Candidate paths for operations the backend exposes under different routes
// depending on version and role. Order matters: the first success wins.
var (
	allOrdersPaths    = gateway.Candidates{"/orders", "/admin/orders", "/orders/all", "/orders/admin/all"}
	allDiscountsPaths = gateway.Candidates{"/discounts", "/admin/discounts", "/discounts/all"}
	categoriesPaths   = gateway.Candidates{"/categories", "/categories/all", "/admin/categories"}
)

type Client struct {
	gw *gateway.Client
}

// New wraps a gateway client already bound to a session.
func New(gw *gateway.Client) *Client {
	return &Client{gw: gw}
}

// Query is the common list filter: free-text search, sort key and paging.
type Query struct {
	Page   int
	Size   int
	Search string
	Sort   string
}

func (q Query) values() url.Values {
	v := url.Values{}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Size > 0 {
		v.Set("size", strconv.Itoa(q.Size))
	}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.Sort != "" {
		v.Set("sort", q.Sort)
	}
	return v
}

// List is a normalized list with the paging metadata the backend sent.
type List[T any] struct {
	Items         []T   `json:"items"`
	TotalPages    int   `json:"totalPages,omitempty"`
	TotalElements int64 `json:"totalElements,omitempty"`
	NoData        bool  `json:"noData,omitempty"`
}

func listFrom[T any](p gateway.Page) (List[T], error) {
	items, err := gateway.DecodeItems[T](p)
	if err != nil {
		return List[T]{}, err
	}
	return List[T]{
		Items:         items,
		TotalPages:    p.TotalPages,
		TotalElements: p.TotalElements,
		NoData:        p.NoData(),
	}, nil
}

// Resource is one CRUD collection on the backend, e.g. /books. Items are
// passed through as raw JSON.
type Resource struct {
	gw   *gateway.Client
	name string
	base string
	// listPaths, when set, replaces base for List with a candidate list.
	listPaths gateway.Candidates
}

func (c *Client) resource(name, base string, listPaths gateway.Candidates) Resource {
	return Resource{gw: c.gw, name: name, base: base, listPaths: listPaths}
}

func (c *Client) Books() Resource      { return c.resource("books", "/books", nil) }
func (c *Client) Categories() Resource { return c.resource("categories", "/categories", categoriesPaths) }
func (c *Client) Publishers() Resource { return c.resource("publishers", "/publishers", nil) }
func (c *Client) Users() Resource      { return c.resource("users", "/users", nil) }
func (c *Client) Roles() Resource      { return c.resource("roles", "/roles", nil) }
func (c *Client) Permissions() Resource {
	return c.resource("permissions", "/permissions", nil)
}
func (c *Client) Discounts() Resource { return c.resource("discounts", "/discounts", allDiscountsPaths) }

// Name is the resource's collection name, e.g. "books".
func (r Resource) Name() string { return r.name }

func (r Resource) item(id string) string {
	return r.base + "/" + url.PathEscape(id)
}

func (r Resource) List(ctx context.Context, q Query) (List[json.RawMessage], error) {
	op := r.name + ".list"
	req := gateway.Request{Method: http.MethodGet, Query: q.values()}

	var (
		resp *gateway.Response
		err  error
	)
	if len(r.listPaths) > 0 {
		resp, err = r.gw.Fallback(ctx, op, r.listPaths, req)
	} else {
		req.Path = r.base
		resp, err = r.gw.Do(ctx, op, req)
	}
	if err != nil {
		return List[json.RawMessage]{}, err
	}
	return listFrom[json.RawMessage](resp.Page())
}

func (r Resource) Get(ctx context.Context, id string) (json.RawMessage, error) {
	resp, err := r.gw.Get(ctx, r.name+".get", r.item(id), nil)
	if err != nil {
		return nil, err
	}
	return resp.Object(), nil
}

func (r Resource) Create(ctx context.Context, body any) (json.RawMessage, error) {
	resp, err := r.gw.Post(ctx, r.name+".create", r.base, body)
	if err != nil {
		return nil, err
	}
	return resp.Object(), nil
}

func (r Resource) Update(ctx context.Context, id string, body any) (json.RawMessage, error) {
	resp, err := r.gw.Put(ctx, r.name+".update", r.item(id), body)
	if err != nil {
		return nil, err
	}
	return resp.Object(), nil
}

func (r Resource) Delete(ctx context.Context, id string) error {
	_, err := r.gw.Delete(ctx, r.name+".delete", r.item(id))
	return err
}

// UpdateStatus is the narrow status call some collections (users,
// discounts, orders) expose.
func (r Resource) UpdateStatus(ctx context.Context, id, status string) (json.RawMessage, error) {
	resp, err := r.gw.Patch(ctx, r.name+".status", r.item(id)+"/status", map[string]string{"status": status})
	if err != nil {
		return nil, err
	}
	return resp.Object(), nil
}
