// Package gateway is the single path from the storefront to the bookstore
// backend. It attaches the session's bearer token, bounds every call with a
// timeout, classifies failures, reacts to authentication rejection by
// logging the session out, and normalizes the backend's list envelopes.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"

	"storefront/internal/logger"
)

const (
	DefaultTimeout   = 10 * time.Second
	DefaultLoginPath = "/login"

	// DefaultMaxBodyBytes caps how much of a response is read.
	DefaultMaxBodyBytes = 10 << 20
)

// Session is what the gateway needs from a session store.
type Session interface {
	CurrentToken(ctx context.Context) (string, error)
	Logout(ctx context.Context) error
}

// Navigator sends the user to another view. The gateway uses it to send
// the user to the login view after an authentication rejection.
type Navigator interface {
	Redirect(path string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(path string)

func (f NavigatorFunc) Redirect(path string) { f(path) }

type anonymous struct{}

func (anonymous) CurrentToken(context.Context) (string, error) { return "", nil }
func (anonymous) Logout(context.Context) error                 { return nil }

type stay struct{}

func (stay) Redirect(string) {}

// Client dispatches requests to the backend. The zero value is not usable;
// build one with New and bind it to a session with For.
type Client struct {
	baseURL   string
	http      *http.Client
	timeout   time.Duration
	loginPath string
	maxBody   int64

	session   Session
	navigator Navigator
}

type Option func(*Client)

// WithHTTPClient replaces the default otelhttp-instrumented client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the default per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLoginPath sets where users are sent after an authentication rejection.
func WithLoginPath(path string) Option {
	return func(c *Client) {
		if path != "" {
			c.loginPath = path
		}
	}
}

// WithMaxBodyBytes sets the largest response body accepted. Larger bodies
// fail the call instead of being cut short.
func WithMaxBodyBytes(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxBody = n
		}
	}
}

// New creates an unbound client for baseURL, e.g. "https://api.example.com/api".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		timeout:   DefaultTimeout,
		loginPath: DefaultLoginPath,
		maxBody:   DefaultMaxBodyBytes,
		session:   anonymous{},
		navigator: stay{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// For returns a copy of c bound to one client scope's session and navigator.
// Either may be nil.
func (c *Client) For(session Session, nav Navigator) *Client {
	bound := *c
	if session != nil {
		bound.session = session
	}
	if nav != nil {
		bound.navigator = nav
	}
	return &bound
}

// Request describes one backend call. Path is relative to the base URL.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
	Header http.Header
	// Public requests never carry a token and never trigger logout.
	// Login, register and refresh are public.
	Public bool
	// Timeout overrides the client default for this call.
	Timeout time.Duration
}

// Response is a successful (2xx/3xx) backend response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Page normalizes the body as a list.
func (r *Response) Page() Page {
	return Normalize(r.Body)
}

// Decode unwraps a single entity and decodes it into v.
func (r *Response) Decode(v any) error {
	return DecodeObject(r.Body, v)
}

// Object returns the unwrapped single-entity body.
func (r *Response) Object() json.RawMessage {
	return Object(r.Body)
}

// Do sends req. Failures come back as *Error. An authentication rejection
// on a non-public request logs the session out and redirects to the login
// view before the error is returned.
func (c *Client) Do(ctx context.Context, op string, req Request) (*Response, error) {
	if req.Method == "" {
		req.Method = http.MethodGet
	}

	timeout := c.timeout
	if req.Timeout > 0 {
		timeout = req.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := c.newRequest(ctx, req)
	if err != nil {
		return nil, &Error{Op: op, Kind: KindClient, Method: req.Method, Path: req.Path, Err: err}
	}

	if !req.Public {
		c.attachToken(ctx, httpReq)
	}

	started := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		gerr := &Error{Op: op, Kind: transportKind(ctx, err), Method: req.Method, Path: req.Path, Err: err}
		logger.Warn("backend call failed", map[string]any{
			"op":     op,
			"method": req.Method,
			"path":   req.Path,
			"kind":   gerr.Kind.String(),
			"error":  err.Error(),
		})
		return nil, gerr
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, &Error{Op: op, Kind: transportKind(ctx, err), Method: req.Method, Path: req.Path, Status: resp.StatusCode, Err: err}
	}
	if int64(len(body)) > c.maxBody {
		logger.Warn("backend response too large", map[string]any{
			"op":    op,
			"path":  req.Path,
			"limit": c.maxBody,
		})
		return nil, &Error{
			Op:     op,
			Kind:   KindServer,
			Method: req.Method,
			Path:   req.Path,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("gateway: response body exceeds %d bytes", c.maxBody),
		}
	}

	if resp.StatusCode >= 400 {
		gerr := &Error{
			Op:      op,
			Kind:    KindForStatus(resp.StatusCode),
			Method:  req.Method,
			Path:    req.Path,
			Status:  resp.StatusCode,
			Message: backendMessage(body),
		}
		logger.Warn("backend rejected call", map[string]any{
			"op":          op,
			"method":      req.Method,
			"path":        req.Path,
			"status":      resp.StatusCode,
			"duration_ms": time.Since(started).Milliseconds(),
		})
		if gerr.Kind == KindUnauthorized && !req.Public {
			c.rejectSession(ctx, op)
		}
		return nil, gerr
	}

	return &Response{Status: resp.StatusCode, Header: resp.Header, Body: body}, nil
}

func (c *Client) newRequest(ctx context.Context, req Request) (*http.Request, error) {
	u := c.baseURL + "/" + strings.TrimPrefix(req.Path, "/")
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("gateway: marshal body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u, body)
	if err != nil {
		return nil, err
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if httpReq.Header.Get("X-Request-ID") == "" {
		httpReq.Header.Set("X-Request-ID", uuid.NewString())
	}
	return httpReq, nil
}

// attachToken adds the bearer header when the session has a token. A
// missing or unreadable token does not block the call; the backend decides.
func (c *Client) attachToken(ctx context.Context, req *http.Request) {
	token, err := c.session.CurrentToken(ctx)
	if err != nil {
		logger.Warn("session token unavailable, sending without it", map[string]any{
			"error": err.Error(),
		})
		return
	}
	if token == "" {
		return
	}
	(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}).SetAuthHeader(req)
}

func (c *Client) rejectSession(ctx context.Context, op string) {
	// the call's own deadline may be what just expired
	ctx = context.WithoutCancel(ctx)
	if err := c.session.Logout(ctx); err != nil {
		logger.Error("logout after authentication rejection failed", map[string]any{
			"op":    op,
			"error": err.Error(),
		})
	}
	c.navigator.Redirect(c.loginPath)
}

func transportKind(ctx context.Context, err error) Kind {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return KindTimeout
	}
	if errors.Is(err, context.Canceled) {
		return KindCanceled
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return KindTimeout
	}
	return KindUnreachable
}

// Get, Post, Put, Patch and Delete are shorthands for Do.

func (c *Client) Get(ctx context.Context, op, path string, query url.Values) (*Response, error) {
	return c.Do(ctx, op, Request{Method: http.MethodGet, Path: path, Query: query})
}

func (c *Client) Post(ctx context.Context, op, path string, body any) (*Response, error) {
	return c.Do(ctx, op, Request{Method: http.MethodPost, Path: path, Body: body})
}

func (c *Client) Put(ctx context.Context, op, path string, body any) (*Response, error) {
	return c.Do(ctx, op, Request{Method: http.MethodPut, Path: path, Body: body})
}

func (c *Client) Patch(ctx context.Context, op, path string, body any) (*Response, error) {
	return c.Do(ctx, op, Request{Method: http.MethodPatch, Path: path, Body: body})
}

func (c *Client) Delete(ctx context.Context, op, path string) (*Response, error) {
	return c.Do(ctx, op, Request{Method: http.MethodDelete, Path: path})
}
