package bookstore

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"storefront/internal/gateway"
	"storefront/internal/model"
)

// ErrNoToken means the backend accepted the credentials but sent no token.
var ErrNoToken = errors.New("bookstore: login response carried no access token")

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type Registration struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
	FullName string `json:"fullName,omitempty"`
}

// LoginResult is the token and, when the backend includes it, the user.
type LoginResult struct {
	AccessToken string
	User        *model.User
}

type loginPayload struct {
	AccessToken string      `json:"accessToken"`
	Token       string      `json:"token"`
	User        *model.User `json:"user"`
}

// Login exchanges credentials for a token. It is a public call: a 401 here
// means bad credentials, not an expired session.
func (c *Client) Login(ctx context.Context, creds Credentials) (*LoginResult, error) {
	resp, err := c.gw.Do(ctx, "auth.login", gateway.Request{
		Method: http.MethodPost,
		Path:   "/auth/login",
		Body:   creds,
		Public: true,
	})
	if err != nil {
		return nil, err
	}
	return tokenFrom(resp)
}

// tokenFrom reads accessToken, or the older token field, from a login or
// refresh response.
func tokenFrom(resp *gateway.Response) (*LoginResult, error) {
	var p loginPayload
	if err := resp.Decode(&p); err != nil {
		return nil, err
	}
	token := p.AccessToken
	if token == "" {
		token = p.Token
	}
	if token == "" {
		return nil, ErrNoToken
	}
	return &LoginResult{AccessToken: token, User: p.User}, nil
}

func (c *Client) Register(ctx context.Context, reg Registration) (json.RawMessage, error) {
	resp, err := c.gw.Do(ctx, "auth.register", gateway.Request{
		Method: http.MethodPost,
		Path:   "/auth/register",
		Body:   reg,
		Public: true,
	})
	if err != nil {
		return nil, err
	}
	return resp.Object(), nil
}

// Profile fetches the user the current token belongs to.
func (c *Client) Profile(ctx context.Context) (*model.User, error) {
	resp, err := c.gw.Get(ctx, "users.me", "/users/me", nil)
	if err != nil {
		return nil, err
	}
	var u model.User
	if err := resp.Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Refresh trades the current token for a new one. Like login it is public:
// the old token travels in the body, not in the bearer header.
func (c *Client) Refresh(ctx context.Context, token string) (*LoginResult, error) {
	resp, err := c.gw.Do(ctx, "auth.refresh", gateway.Request{
		Method: http.MethodPost,
		Path:   "/auth/refresh",
		Body:   map[string]string{"token": token},
		Public: true,
	})
	if err != nil {
		return nil, err
	}
	return tokenFrom(resp)
}
