package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"storefront/internal/model"
	"storefront/internal/storage"
)

// DefaultTTL is how long a login survives without re-authentication.
const DefaultTTL = 7 * 24 * time.Hour

// Store is the session of one client scope: the bearer token and the user it
// belongs to. The token in durable storage is authoritative; the in-memory
// copy is only a cache and is re-derived on every CurrentToken call.
type Store struct {
	kv    storage.KV
	scope string
	ttl   time.Duration

	mu    sync.Mutex
	token string
	user  *model.User
}

// NewStore binds a session to one client scope in kv.
func NewStore(kv storage.KV, scope string, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{kv: kv, scope: scope, ttl: ttl}
}

func (s *Store) tokenKey() string { return s.scope + ":token" }
func (s *Store) userKey() string  { return s.scope + ":user" }

// Login records a fresh token and, when known, the user it belongs to.
// A nil user drops any snapshot left from a previous login.
func (s *Store) Login(ctx context.Context, user *model.User, token string) error {
	if token == "" {
		return errors.New("session: login requires a token")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Set(ctx, s.tokenKey(), token, s.ttl); err != nil {
		return fmt.Errorf("session: save token: %w", err)
	}
	if err := s.writeUser(ctx, user); err != nil {
		return err
	}

	s.token = token
	s.user = user
	return nil
}

// SetUser stores the profile fetched after login. It is ignored when the
// scope is anonymous.
func (s *Store) SetUser(ctx context.Context, user *model.User) error {
	token, err := s.CurrentToken(ctx)
	if err != nil {
		return err
	}
	if token == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writeUser(ctx, user); err != nil {
		return err
	}
	s.user = user
	return nil
}

func (s *Store) writeUser(ctx context.Context, user *model.User) error {
	if user == nil {
		if err := s.kv.Delete(ctx, s.userKey()); err != nil {
			return fmt.Errorf("session: clear user: %w", err)
		}
		return nil
	}

	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("session: marshal user: %w", err)
	}
	if err := s.kv.Set(ctx, s.userKey(), string(data), s.ttl); err != nil {
		return fmt.Errorf("session: save user: %w", err)
	}
	return nil
}

// Logout removes the token and user. Calling it on an anonymous scope is a
// no-op.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = ""
	s.user = nil

	if err := s.kv.Delete(ctx, s.tokenKey()); err != nil {
		return fmt.Errorf("session: delete token: %w", err)
	}
	if err := s.kv.Delete(ctx, s.userKey()); err != nil {
		return fmt.Errorf("session: delete user: %w", err)
	}
	return nil
}

// CurrentToken returns the token held in durable storage, or "" when the
// scope is anonymous.
func (s *Store) CurrentToken(ctx context.Context) (string, error) {
	token, err := s.kv.Get(ctx, s.tokenKey())
	if errors.Is(err, storage.ErrNotFound) {
		s.mu.Lock()
		s.token = ""
		s.user = nil
		s.mu.Unlock()
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("session: read token: %w", err)
	}

	s.mu.Lock()
	if s.token != token {
		// replaced by another login on the same scope
		s.user = nil
	}
	s.token = token
	s.mu.Unlock()

	return token, nil
}

// CurrentUser returns the user snapshot, or nil when the scope is anonymous
// or the profile has not been fetched yet.
func (s *Store) CurrentUser(ctx context.Context) (*model.User, error) {
	token, err := s.CurrentToken(ctx)
	if err != nil || token == "" {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.user != nil {
		return s.user, nil
	}

	raw, err := s.kv.Get(ctx, s.userKey())
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session: read user: %w", err)
	}

	var user model.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return nil, fmt.Errorf("session: unmarshal user: %w", err)
	}
	s.user = &user
	return s.user, nil
}

// Authenticated reports whether the scope currently holds a token.
func (s *Store) Authenticated(ctx context.Context) (bool, error) {
	token, err := s.CurrentToken(ctx)
	return token != "", err
}
