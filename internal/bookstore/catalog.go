package bookstore

import (
	"context"
	"encoding/json"
	"net/url"

	"storefront/internal/model"
)

func (c *Client) ListBooks(ctx context.Context, q Query) (List[model.Book], error) {
	resp, err := c.gw.Get(ctx, "books.list", "/books", q.values())
	if err != nil {
		return List[model.Book]{}, err
	}
	return listFrom[model.Book](resp.Page())
}

func (c *Client) GetBook(ctx context.Context, id string) (*model.Book, error) {
	resp, err := c.gw.Get(ctx, "books.get", "/books/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	var b model.Book
	if err := resp.Decode(&b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (c *Client) GetBookBySlug(ctx context.Context, slug string) (*model.Book, error) {
	resp, err := c.gw.Get(ctx, "books.slug", "/books/slug/"+url.PathEscape(slug), nil)
	if err != nil {
		return nil, err
	}
	var b model.Book
	if err := resp.Decode(&b); err != nil {
		return nil, err
	}
	return &b, nil
}

// ListCategories tries the category candidates; storefront menus use it
// without login.
func (c *Client) ListCategories(ctx context.Context, q Query) (List[json.RawMessage], error) {
	return c.Categories().List(ctx, q)
}
