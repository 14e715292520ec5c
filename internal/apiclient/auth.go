package apiclient

import (
	"context"
	"errors"
	"net/http"
)

type sessionData struct {
	User User `json:"user"`
}

func (c *Client) startSession(ctx context.Context, path string, payload any) (*User, error) {
	req, err := jsonRequest(http.MethodPost, path, payload, false)
	if err != nil {
		return nil, err
	}
	var env envelope[sessionData]
	if err := c.do(ctx, req, &env); err != nil {
		return nil, err
	}
	if env.Token == "" {
		return nil, errors.New("server returned no token")
	}
	u := env.Data.User
	c.cache.Reset()
	c.setSession(env.Token, &u)
	return u.clone(), nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*User, error) {
	return c.startSession(ctx, "/users/login", map[string]string{"email": email, "password": password})
}

func (c *Client) Signup(ctx context.Context, in RegisterRequest) (*User, error) {
	return c.startSession(ctx, "/users/signup", in)
}

// Logout revokes the token server side and forgets it locally. The local
// session is dropped even when the request fails.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.requireAuth(); err != nil {
		return err
	}
	err := c.do(ctx, request{method: http.MethodPost, path: "/users/logout", auth: true}, nil)
	c.setSession("", nil)
	c.cache.Reset()
	return err
}

// Me loads the signed-in account, from cache when fresh.
func (c *Client) Me(ctx context.Context) (*User, error) {
	if err := c.requireAuth(); err != nil {
		return nil, err
	}
	const key = "users/me"
	if users, ok := c.cache.Users(key); ok && len(users) == 1 {
		return &users[0], nil
	}
	var env envelope[sessionData]
	if err := c.do(ctx, request{method: http.MethodGet, path: "/users/me", auth: true}, &env); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
			c.setSession("", nil)
		}
		return nil, err
	}
	u := env.Data.User
	c.cache.StoreUsers(key, []User{u}, AuthTag)
	c.mu.Lock()
	c.me = u.clone()
	c.mu.Unlock()
	return &u, nil
}
