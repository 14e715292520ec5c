package apiclient

import (
	"context"
	"net/http"

	"go.uber.org/zap"
)

const keySuggested = "users/suggested-user"

func keyProfile(userID string) string { return "users/profile/" + userID }

func (c *Client) logFields(path string, err error) []zap.Field {
	return []zap.Field{zap.String("path", path), zap.Error(err)}
}

func (c *Client) refreshMe(u *User) {
	if u == nil || u.ID == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.me != nil && c.me.ID == u.ID {
		c.me = u.clone()
	}
}

func (c *Client) Profile(ctx context.Context, userID string) (*Profile, error) {
	key := keyProfile(userID)
	if p, ok := c.cache.Profile(key); ok {
		return p, nil
	}
	var env envelope[struct {
		User Profile `json:"user"`
	}]
	if err := c.do(ctx, request{method: http.MethodGet, path: "/users/profile/" + userID}, &env); err != nil {
		return nil, err
	}
	c.cache.StoreProfile(key, &env.Data.User, UserTag(userID))
	return &env.Data.User, nil
}

// Suggested lists every other account. Like the post lists it fails soft.
func (c *Client) Suggested(ctx context.Context) ([]User, error) {
	if err := c.requireAuth(); err != nil {
		return nil, err
	}
	if users, ok := c.cache.Users(keySuggested); ok {
		return users, nil
	}
	ctx, cancel := context.WithTimeout(ctx, c.conf.ListTimeout)
	defer cancel()

	var env envelope[struct {
		Users []User `json:"users"`
	}]
	if err := c.do(ctx, request{method: http.MethodGet, path: "/users/suggested-user", auth: true}, &env); err != nil {
		c.log.Warn("suggested users unavailable", c.logFields("/users/suggested-user", err)...)
		return []User{}, nil
	}
	users := env.Data.Users
	if users == nil {
		users = []User{}
	}
	c.cache.StoreUsers(keySuggested, users, AllUsers)
	return users, nil
}

// ToggleFollow follows or unfollows userID and returns the server's message.
func (c *Client) ToggleFollow(ctx context.Context, userID string) (string, error) {
	var env envelope[struct {
		User User `json:"user"`
	}]
	if err := c.do(ctx, request{method: http.MethodPost, path: "/users/follow-unfollow/" + userID, auth: true}, &env); err != nil {
		return "", err
	}
	c.refreshMe(&env.Data.User)
	c.cache.Invalidate(UserTag(userID), AllUsers, AuthTag)
	return env.Message, nil
}

func (c *Client) IsFollowing(ctx context.Context, userID string) (bool, error) {
	var env envelope[struct {
		IsFollowing bool `json:"isFollowing"`
	}]
	if err := c.do(ctx, request{method: http.MethodGet, path: "/users/check-follow/" + userID, auth: true}, &env); err != nil {
		return false, err
	}
	return env.Data.IsFollowing, nil
}

// EditProfile updates the bio when bio is non-nil and the picture when one
// is given.
func (c *Client) EditProfile(ctx context.Context, bio *string, picture *FilePart) (*User, error) {
	if err := c.requireAuth(); err != nil {
		return nil, err
	}
	fields := map[string]string{}
	if bio != nil {
		fields["bio"] = *bio
	}
	if picture != nil {
		picture.Field = "profilePicture"
	}
	req, err := multipartRequest("/users/edit-profile", fields, picture)
	if err != nil {
		return nil, err
	}
	var env envelope[struct {
		User User `json:"user"`
	}]
	if err := c.do(ctx, req, &env); err != nil {
		return nil, err
	}
	c.refreshMe(&env.Data.User)
	c.cache.Invalidate(AuthTag, AllUsers)
	return &env.Data.User, nil
}
