// Package cart keeps the shopping cart of one client scope. The cart lives
// independently of login state and is persisted in full after every change.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"storefront/internal/logger"
	"storefront/internal/model"
	"storefront/internal/storage"
)

// Product is the subset of a catalog item the cart copies at add time.
type Product struct {
	ID        model.ID
	Title     string
	Price     float64
	Thumbnail string
}

// Line is one product in the cart. Title, Price and Thumbnail are the values
// seen when the product was first added; later catalog changes do not
// touch them.
type Line struct {
	ProductID model.ID `json:"productId"`
	Title     string   `json:"title"`
	Price     float64  `json:"price"`
	Thumbnail string   `json:"thumbnail,omitempty"`
	Quantity  int      `json:"quantity"`
}

// Store holds the cart lines. At most one line exists per product and every
// quantity is at least 1.
type Store struct {
	kv  storage.KV
	key string
	ttl time.Duration

	mu    sync.Mutex
	lines []Line
}

func storageKey(scope string) string { return scope + ":cart" }

// Load reads the cart of scope from kv. A missing cart is empty. A cart that
// cannot be decoded is logged and replaced by an empty one.
//
// Every write restarts the cart's expiry at ttl, so an abandoned cart
// disappears with its scope; ttl <= 0 keeps it forever.
func Load(ctx context.Context, kv storage.KV, scope string, ttl time.Duration) (*Store, error) {
	s := &Store{kv: kv, key: storageKey(scope), ttl: ttl}

	raw, err := kv.Get(ctx, s.key)
	if errors.Is(err, storage.ErrNotFound) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cart: load: %w", err)
	}

	var lines []Line
	if err := json.Unmarshal([]byte(raw), &lines); err != nil {
		logger.Warn("discarding unreadable cart", map[string]any{
			"key":   s.key,
			"error": err.Error(),
		})
		return s, nil
	}
	s.lines = sanitize(lines)
	return s, nil
}

// sanitize merges duplicate product ids and drops non-positive quantities
// so a hand-edited or legacy payload still yields one line per product.
func sanitize(lines []Line) []Line {
	out := make([]Line, 0, len(lines))
	index := make(map[model.ID]int, len(lines))
	for _, l := range lines {
		if l.Quantity <= 0 || l.ProductID == "" {
			continue
		}
		if i, ok := index[l.ProductID]; ok {
			out[i].Quantity += l.Quantity
			continue
		}
		index[l.ProductID] = len(out)
		out = append(out, l)
	}
	return out
}

// AddItem increments the line for p.ID, or appends a new line with
// quantity 1 and a snapshot of p.
func (s *Store) AddItem(ctx context.Context, p Product) error {
	if p.ID == "" {
		return errors.New("cart: product id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.copyLines()
	if i := indexOf(next, p.ID); i >= 0 {
		next[i].Quantity++
	} else {
		next = append(next, Line{
			ProductID: p.ID,
			Title:     p.Title,
			Price:     p.Price,
			Thumbnail: p.Thumbnail,
			Quantity:  1,
		})
	}
	return s.commit(ctx, next)
}

// UpdateQuantity sets the quantity of a line exactly. A quantity of zero or
// less removes the line. Unknown ids are ignored.
func (s *Store) UpdateQuantity(ctx context.Context, id model.ID, quantity int) error {
	if quantity <= 0 {
		return s.RemoveItem(ctx, id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := indexOf(s.lines, id)
	if i < 0 {
		return nil
	}
	next := s.copyLines()
	next[i].Quantity = quantity
	return s.commit(ctx, next)
}

// RemoveItem deletes the line for id if there is one.
func (s *Store) RemoveItem(ctx context.Context, id model.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := indexOf(s.lines, id)
	if i < 0 {
		return nil
	}
	next := make([]Line, 0, len(s.lines)-1)
	next = append(next, s.lines[:i]...)
	next = append(next, s.lines[i+1:]...)
	return s.commit(ctx, next)
}

// Clear empties the cart.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.commit(ctx, []Line{})
}

// commit persists next and only then makes it the current cart, so memory
// never runs ahead of storage.
func (s *Store) commit(ctx context.Context, next []Line) error {
	if next == nil {
		next = []Line{}
	}
	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("cart: marshal: %w", err)
	}
	if err := s.kv.Set(ctx, s.key, string(data), s.ttl); err != nil {
		return fmt.Errorf("cart: persist: %w", err)
	}
	s.lines = next
	return nil
}

func (s *Store) copyLines() []Line {
	out := make([]Line, len(s.lines))
	copy(out, s.lines)
	return out
}

func indexOf(lines []Line, id model.ID) int {
	for i, l := range lines {
		if l.ProductID == id {
			return i
		}
	}
	return -1
}

// Lines returns a copy of the current lines in insertion order.
func (s *Store) Lines() []Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyLines()
}

// TotalCount is the sum of all quantities.
func (s *Store) TotalCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, l := range s.lines {
		n += l.Quantity
	}
	return n
}

// TotalPrice is the sum of price times quantity over all lines.
func (s *Store) TotalPrice() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	var total float64
	for _, l := range s.lines {
		total += l.Price * float64(l.Quantity)
	}
	return total
}

// Empty reports whether the cart has no lines.
func (s *Store) Empty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lines) == 0
}
