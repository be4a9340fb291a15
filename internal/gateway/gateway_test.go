package gateway

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	mu      sync.Mutex
	token   string
	err     error
	logouts int
}

func (f *fakeSession) CurrentToken(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token, f.err
}

func (f *fakeSession) Logout(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = ""
	f.logouts++
	return nil
}

type recordingNavigator struct {
	paths []string
}

func (r *recordingNavigator) Redirect(path string) { r.paths = append(r.paths, path) }

func newTestClient(t *testing.T, h http.Handler, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	opts = append([]Option{WithHTTPClient(srv.Client())}, opts...)
	return New(srv.URL+"/api", opts...)
}

func TestBearerTokenAttached(t *testing.T) {
	var gotAuth, gotPath, gotRequestID string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		gotRequestID = r.Header.Get("X-Request-ID")
		_, _ = io.WriteString(w, `{"data":{"id":1,"username":"admin123"}}`)
	}))

	sess := &fakeSession{token: "abc.def.ghi"}
	resp, err := c.For(sess, nil).Get(context.Background(), "users.me", "/users/me", nil)
	require.NoError(t, err)

	assert.Equal(t, "Bearer abc.def.ghi", gotAuth)
	assert.Equal(t, "/api/users/me", gotPath)
	assert.NotEmpty(t, gotRequestID)
	assert.JSONEq(t, `{"id":1,"username":"admin123"}`, string(resp.Object()))
}

func TestNoTokenStillSends(t *testing.T) {
	var called bool
	var gotAuth string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		gotAuth = r.Header.Get("Authorization")
		_, _ = io.WriteString(w, `[]`)
	}))

	_, err := c.For(&fakeSession{}, nil).Get(context.Background(), "books.list", "/books", nil)
	require.NoError(t, err)
	assert.True(t, called)
	assert.Empty(t, gotAuth)
}

func TestTokenReadErrorStillSends(t *testing.T) {
	var gotAuth string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = io.WriteString(w, `[]`)
	}))

	sess := &fakeSession{token: "t", err: errors.New("redis down")}
	_, err := c.For(sess, nil).Get(context.Background(), "books.list", "/books", nil)
	require.NoError(t, err)
	assert.Empty(t, gotAuth)
}

func TestPublicRequestOmitsToken(t *testing.T) {
	var gotAuth string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"message":"Bad credentials"}`)
	}))

	sess := &fakeSession{token: "old"}
	nav := &recordingNavigator{}
	_, err := c.For(sess, nav).Do(context.Background(), "auth.login", Request{
		Method: http.MethodPost,
		Path:   "/auth/login",
		Body:   map[string]string{"username": "u", "password": "p"},
		Public: true,
	})

	require.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, "Bad credentials", MessageOf(err))
	assert.Empty(t, gotAuth)
	assert.Zero(t, sess.logouts, "bad credentials on a public call keep the session")
	assert.Empty(t, nav.paths)
}

func TestUnauthorizedLogsOutAndRedirects(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}), WithLoginPath("/login"))

	sess := &fakeSession{token: "expired"}
	nav := &recordingNavigator{}
	bound := c.For(sess, nav)

	_, err := bound.Get(context.Background(), "orders.mine", "/orders/my", nil)
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, KindUnauthorized, KindOf(err))
	assert.Equal(t, 1, sess.logouts)
	assert.Equal(t, []string{"/login"}, nav.paths)

	token, _ := sess.CurrentToken(context.Background())
	assert.Empty(t, token)
}

func TestLogoutStopsBearerHeader(t *testing.T) {
	var auths []string
	var mu sync.Mutex
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		auths = append(auths, r.Header.Get("Authorization"))
		mu.Unlock()
		_, _ = io.WriteString(w, `{}`)
	}))

	ctx := context.Background()
	sess := &fakeSession{token: "tok"}
	bound := c.For(sess, nil)

	_, err := bound.Get(ctx, "users.me", "/users/me", nil)
	require.NoError(t, err)
	require.NoError(t, sess.Logout(ctx))
	_, err = bound.Get(ctx, "users.me", "/users/me", nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"Bearer tok", ""}, auths)
}

func TestStatusKinds(t *testing.T) {
	tests := []struct {
		status int
		target error
		kind   Kind
	}{
		{status: http.StatusForbidden, target: ErrForbidden, kind: KindForbidden},
		{status: http.StatusNotFound, target: ErrNotFound, kind: KindNotFound},
		{status: http.StatusBadRequest, target: ErrValidation, kind: KindValidation},
		{status: http.StatusConflict, target: ErrValidation, kind: KindValidation},
		{status: http.StatusUnprocessableEntity, target: ErrValidation, kind: KindValidation},
		{status: http.StatusTooManyRequests, target: ErrClient, kind: KindClient},
		{status: http.StatusInternalServerError, target: ErrServer, kind: KindServer},
		{status: http.StatusBadGateway, target: ErrServer, kind: KindServer},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, `{"message":"nope"}`)
			}))
			sess := &fakeSession{token: "t"}
			nav := &recordingNavigator{}

			_, err := c.For(sess, nav).Get(context.Background(), "op", "/x", nil)
			require.ErrorIs(t, err, tt.target)
			assert.Equal(t, tt.kind, KindOf(err))

			var ge *Error
			require.ErrorAs(t, err, &ge)
			assert.Equal(t, tt.status, ge.Status)
			assert.Equal(t, "nope", ge.Message)
			assert.Equal(t, "/x", ge.Path)

			assert.Zero(t, sess.logouts, "only authentication rejection logs out")
			assert.Empty(t, nav.paths)
		})
	}
}

func TestTimeout(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}), WithTimeout(time.Second))
	defer close(release)

	start := time.Now()
	_, err := c.Do(context.Background(), "slow", Request{Path: "/slow", Timeout: 50 * time.Millisecond})
	require.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, time.Since(start), time.Second)
}

func TestUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c := New(base)
	_, err := c.Get(context.Background(), "books.list", "/books", nil)
	require.ErrorIs(t, err, ErrUnreachable)

	var ge *Error
	require.ErrorAs(t, err, &ge)
	assert.Zero(t, ge.Status)
	assert.NotNil(t, ge.Err)
}

func TestCallerCancellation(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := c.Get(ctx, "books.list", "/books", nil)
	require.ErrorIs(t, err, ErrCanceled)
}

func TestRequestEncoding(t *testing.T) {
	var gotMethod, gotQuery, gotBody, gotType string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotQuery = r.URL.RawQuery
		gotType = r.Header.Get("Content-Type")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"data":{"id":9}}`)
	}))

	resp, err := c.Do(context.Background(), "books.create", Request{
		Method: http.MethodPost,
		Path:   "books",
		Query:  url.Values{"draft": {"true"}},
		Body:   map[string]any{"title": "Go"},
	})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "draft=true", gotQuery)
	assert.Equal(t, "application/json", gotType)
	assert.JSONEq(t, `{"title":"Go"}`, gotBody)
	assert.Equal(t, http.StatusCreated, resp.Status)

	var created struct {
		ID int `json:"id"`
	}
	require.NoError(t, resp.Decode(&created))
	assert.Equal(t, 9, created.ID)
}

func TestOversizedBodyFails(t *testing.T) {
	tests := []struct {
		name string
		body string
		ok   bool
	}{
		{name: "at limit", body: `[1,2,3,4]`, ok: true},
		{name: "over limit", body: `[1,2,3,4,5]`, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, tt.body)
			}), WithMaxBodyBytes(9))

			resp, err := c.Get(context.Background(), "books.list", "/books", nil)
			if tt.ok {
				require.NoError(t, err)
				assert.Len(t, resp.Page().Items, 4)
				return
			}
			require.ErrorIs(t, err, ErrServer)
			assert.Contains(t, err.Error(), "exceeds 9 bytes")
		})
	}
}

func TestErrorString(t *testing.T) {
	err := &Error{Op: "orders.all", Kind: KindNotFound, Method: "GET", Path: "/orders", Status: 404, Message: "No route"}
	assert.Equal(t, "orders.all: GET /orders returned 404: No route", err.Error())

	err = &Error{Op: "books.list", Kind: KindTimeout, Method: "GET", Path: "/books", Err: context.DeadlineExceeded}
	assert.Equal(t, "books.list: GET /books failed (timeout): context deadline exceeded", err.Error())
}
