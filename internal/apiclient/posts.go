package apiclient

import (
	"context"
	"net/http"
)

const (
	keyFeed       = "posts/all"
	keySavedPosts = "users/saved-posts"
)

func keyUserPosts(userID string) string { return "posts/user-post/" + userID }

type postsData struct {
	Posts      []Post `json:"posts"`
	SavedPosts []Post `json:"savedPosts"`
}

// listPosts serves key from the cache when fresh, otherwise fetches it
// under the list timeout. A failed fetch falls back to stale data or an
// empty list and is only logged.
func (c *Client) listPosts(ctx context.Context, key, path string, auth bool, tags func([]Post) []Tag) []Post {
	if posts, ok := c.cache.Posts(key); ok {
		return posts
	}
	ctx, cancel := context.WithTimeout(ctx, c.conf.ListTimeout)
	defer cancel()

	var env envelope[postsData]
	if err := c.do(ctx, request{method: http.MethodGet, path: path, auth: auth}, &env); err != nil {
		c.log.Warn("post list unavailable", c.logFields(path, err)...)
		if stale, ok := c.cache.StalePosts(key); ok {
			return stale
		}
		return []Post{}
	}
	posts := env.Data.Posts
	if posts == nil {
		posts = env.Data.SavedPosts
	}
	if posts == nil {
		posts = []Post{}
	}
	c.cache.StorePosts(key, posts, tags(posts)...)
	return posts
}

// Feed lists every post, newest first.
func (c *Client) Feed(ctx context.Context) []Post {
	return c.listPosts(ctx, keyFeed, "/posts/all", false, func(posts []Post) []Tag {
		tags := make([]Tag, 0, len(posts)+1)
		for _, p := range posts {
			tags = append(tags, PostTag(p.ID))
		}
		return append(tags, PostList)
	})
}

func (c *Client) UserPosts(ctx context.Context, userID string) []Post {
	return c.listPosts(ctx, keyUserPosts(userID), "/posts/user-post/"+userID, false, func([]Post) []Tag {
		return []Tag{PostTag(userID)}
	})
}

func (c *Client) SavedPosts(ctx context.Context) ([]Post, error) {
	if err := c.requireAuth(); err != nil {
		return nil, err
	}
	return c.listPosts(ctx, keySavedPosts, "/users/saved-posts", true, func([]Post) []Tag {
		return []Tag{AllPosts}
	}), nil
}

func (c *Client) CreatePost(ctx context.Context, caption string, image FilePart) (*Post, error) {
	if err := c.requireAuth(); err != nil {
		return nil, err
	}
	image.Field = "image"
	req, err := multipartRequest("/posts/create-post", map[string]string{"caption": caption}, &image)
	if err != nil {
		return nil, err
	}
	var env envelope[struct {
		Post Post `json:"post"`
	}]
	if err := c.do(ctx, req, &env); err != nil {
		return nil, err
	}
	c.cache.Invalidate(PostList)
	return &env.Data.Post, nil
}

// ToggleLike flips the caller's like on the cached post before the request
// is sent, then reconciles: success invalidates the post, failure restores
// the previous version.
func (c *Client) ToggleLike(ctx context.Context, postID string) (string, error) {
	if err := c.requireAuth(); err != nil {
		return "", err
	}
	me := c.CurrentUser()
	if me == nil {
		var err error
		if me, err = c.Me(ctx); err != nil {
			return "", err
		}
	}

	prev, cached := c.cache.UpdatePost(postID, func(p *Post) {
		if p.LikedBy(me.ID) {
			p.Likes = removeID(p.Likes, me.ID)
		} else {
			p.Likes = append(p.Likes, me.ID)
		}
	})

	var env envelope[struct{}]
	err := c.do(ctx, request{method: http.MethodPost, path: "/posts/like-dislike/" + postID, auth: true}, &env)
	if err != nil {
		if cached {
			c.cache.RestorePost(prev)
		}
		return "", err
	}
	c.cache.Invalidate(PostTag(postID))
	return env.Message, nil
}

func (c *Client) ToggleSave(ctx context.Context, postID string) (string, error) {
	var env envelope[struct {
		User User `json:"user"`
	}]
	if err := c.do(ctx, request{method: http.MethodPost, path: "/posts/save-unsave-post/" + postID, auth: true}, &env); err != nil {
		return "", err
	}
	c.refreshMe(&env.Data.User)
	c.cache.Invalidate(AllPosts, AllUsers)
	return env.Message, nil
}

func (c *Client) DeletePost(ctx context.Context, postID string) error {
	if err := c.do(ctx, request{method: http.MethodDelete, path: "/posts/delete-post/" + postID, auth: true}, nil); err != nil {
		return err
	}
	c.cache.Invalidate(PostList)
	return nil
}

func (c *Client) AddComment(ctx context.Context, postID, text string) (*Comment, error) {
	req, err := jsonRequest(http.MethodPost, "/posts/comment/"+postID, map[string]string{"text": text}, true)
	if err != nil {
		return nil, err
	}
	var env envelope[struct {
		Comment Comment `json:"comment"`
	}]
	if err := c.do(ctx, req, &env); err != nil {
		return nil, err
	}
	c.cache.Invalidate(PostTag(postID))
	return &env.Data.Comment, nil
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, x := range ids {
		if x != id {
			out = append(out, x)
		}
	}
	return out
}
