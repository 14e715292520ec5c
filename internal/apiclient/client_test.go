package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeAPI struct {
	mu        sync.Mutex
	posts     []Post
	hits      map[string]int
	feedFails int32
	feedDelay time.Duration
	likeGate  chan int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		posts: []Post{{ID: "p1", Caption: "hello", User: &User{ID: "u2", Username: "bob"}, Likes: []string{}}},
		hits:  map[string]int{},
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (f *fakeAPI) hit(path string) {
	f.mu.Lock()
	f.hits[path]++
	f.mu.Unlock()
}

func (f *fakeAPI) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[path]
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1")
	f.hit(path)
	authed := r.Header.Get("Authorization") == "Bearer tok"

	switch {
	case path == "/users/login":
		writeJSON(w, http.StatusOK, map[string]any{
			"status": "success", "token": "tok",
			"data": map[string]any{"user": User{ID: "u1", Username: "alice"}},
		})
	case path == "/users/me":
		if !authed {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"status": "fail", "message": "You are not logged in"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "success", "data": map[string]any{"user": User{ID: "u1", Username: "alice"}}})
	case path == "/posts/all":
		if f.feedDelay > 0 {
			time.Sleep(f.feedDelay)
		}
		if atomic.AddInt32(&f.feedFails, -1) >= 0 {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "error", "message": "down"})
			return
		}
		f.mu.Lock()
		posts := append([]Post(nil), f.posts...)
		f.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"status": "success", "results": len(posts), "data": map[string]any{"posts": posts}})
	case path == "/posts/create-post":
		f.mu.Lock()
		p := Post{ID: "p2", Caption: r.FormValue("caption"), User: &User{ID: "u1"}, Likes: []string{}}
		f.posts = append([]Post{p}, f.posts...)
		f.mu.Unlock()
		writeJSON(w, http.StatusCreated, map[string]any{"status": "success", "data": map[string]any{"post": p}})
	case strings.HasPrefix(path, "/posts/like-dislike/"):
		status := http.StatusOK
		if f.likeGate != nil {
			status = <-f.likeGate
		}
		if status != http.StatusOK {
			writeJSON(w, status, map[string]string{"status": "error", "message": "store down"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "success", "message": "Post liked successfully"})
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"status": "fail", "message": "Can't find " + r.URL.Path + " on this server!"})
	}
}

func newTestClient(t *testing.T, api *fakeAPI, conf Config) *Client {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	conf.BaseURL = srv.URL
	if conf.RetryMaxElapsed == 0 {
		conf.RetryMaxElapsed = 2 * time.Second
	}
	return New(conf, zap.NewNop())
}

func TestMutationsNeedAccount(t *testing.T) {
	api := newFakeAPI()
	c := newTestClient(t, api, Config{})
	ctx := context.Background()

	_, err := c.ToggleLike(ctx, "p1")
	require.ErrorIs(t, err, ErrNotAuthenticated)
	_, err = c.ToggleSave(ctx, "p1")
	require.ErrorIs(t, err, ErrNotAuthenticated)
	_, err = c.ToggleFollow(ctx, "u2")
	require.ErrorIs(t, err, ErrNotAuthenticated)
	_, err = c.AddComment(ctx, "p1", "hi")
	require.ErrorIs(t, err, ErrNotAuthenticated)
	require.ErrorIs(t, c.DeletePost(ctx, "p1"), ErrNotAuthenticated)
	_, err = c.CreatePost(ctx, "x", FilePart{Data: []byte("img")})
	require.ErrorIs(t, err, ErrNotAuthenticated)
	_, err = c.EditProfile(ctx, nil, nil)
	require.ErrorIs(t, err, ErrNotAuthenticated)
	_, err = c.SavedPosts(ctx)
	require.ErrorIs(t, err, ErrNotAuthenticated)
	_, err = c.Suggested(ctx)
	require.ErrorIs(t, err, ErrNotAuthenticated)

	api.mu.Lock()
	require.Empty(t, api.hits)
	api.mu.Unlock()
}

func TestFeedIsCachedUntilInvalidated(t *testing.T) {
	api := newFakeAPI()
	c := newTestClient(t, api, Config{})
	ctx := context.Background()

	require.Len(t, c.Feed(ctx), 1)
	require.Len(t, c.Feed(ctx), 1)
	require.Equal(t, 1, api.count("/posts/all"))

	_, err := c.Login(ctx, "alice@example.com", "secret1")
	require.NoError(t, err)
	require.Len(t, c.Feed(ctx), 1)
	require.Equal(t, 2, api.count("/posts/all"))

	_, err = c.CreatePost(ctx, "new", FilePart{Filename: "a.png", ContentType: "image/png", Data: []byte("img")})
	require.NoError(t, err)
	require.True(t, c.Cache().IsStale(keyFeed))

	feed := c.Feed(ctx)
	require.Len(t, feed, 2)
	require.Equal(t, "p2", feed[0].ID)
	require.Equal(t, 3, api.count("/posts/all"))
}

func TestOptimisticLikeRevertsOnFailure(t *testing.T) {
	api := newFakeAPI()
	api.likeGate = make(chan int)
	c := newTestClient(t, api, Config{})
	ctx := context.Background()

	_, err := c.Login(ctx, "alice@example.com", "secret1")
	require.NoError(t, err)
	require.Len(t, c.Feed(ctx), 1)

	done := make(chan error, 1)
	go func() {
		_, err := c.ToggleLike(ctx, "p1")
		done <- err
	}()

	require.Eventually(t, func() bool {
		p, ok := c.Cache().Post("p1")
		return ok && p.LikedBy("u1")
	}, time.Second, 5*time.Millisecond)

	api.likeGate <- http.StatusInternalServerError
	err = <-done
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)

	p, ok := c.Cache().Post("p1")
	require.True(t, ok)
	require.False(t, p.LikedBy("u1"))
	require.Equal(t, 1, api.count("/posts/like-dislike/p1"))
}

func TestOptimisticLikeReconcilesOnSuccess(t *testing.T) {
	api := newFakeAPI()
	c := newTestClient(t, api, Config{})
	ctx := context.Background()

	_, err := c.Login(ctx, "alice@example.com", "secret1")
	require.NoError(t, err)
	require.Len(t, c.Feed(ctx), 1)

	msg, err := c.ToggleLike(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, "Post liked successfully", msg)

	p, _ := c.Cache().Post("p1")
	require.True(t, p.LikedBy("u1"))
	require.True(t, c.Cache().IsStale(keyFeed))
}

func TestFeedRetriesServerErrors(t *testing.T) {
	api := newFakeAPI()
	api.feedFails = 1
	c := newTestClient(t, api, Config{})

	require.Len(t, c.Feed(context.Background()), 1)
	require.Equal(t, 2, api.count("/posts/all"))
}

func TestFeedFailsSoft(t *testing.T) {
	api := newFakeAPI()
	api.feedFails = 1000
	c := newTestClient(t, api, Config{RetryMaxElapsed: 50 * time.Millisecond})

	feed := c.Feed(context.Background())
	require.NotNil(t, feed)
	require.Empty(t, feed)
}

func TestFeedTimesOut(t *testing.T) {
	api := newFakeAPI()
	api.feedDelay = 300 * time.Millisecond
	c := newTestClient(t, api, Config{ListTimeout: 50 * time.Millisecond})

	start := time.Now()
	feed := c.Feed(context.Background())
	require.Empty(t, feed)
	require.Less(t, time.Since(start), 250*time.Millisecond)
}

func TestNonRetryableErrorsSurface(t *testing.T) {
	api := newFakeAPI()
	c := newTestClient(t, api, Config{})

	_, err := c.Profile(context.Background(), "missing")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	require.Equal(t, "fail", apiErr.Status)
	require.Equal(t, 1, api.count("/users/profile/missing"))
}

func TestTagInvalidation(t *testing.T) {
	cache := NewCache()
	cache.StorePosts(keyFeed, []Post{{ID: "p1"}}, PostTag("p1"), PostList)
	cache.StorePosts(keyUserPosts("u1"), []Post{{ID: "p1"}}, PostTag("u1"))
	cache.StorePosts(keySavedPosts, []Post{}, AllPosts)
	cache.StoreUsers(keySuggested, []User{{ID: "u2"}}, AllUsers)

	cache.Invalidate(PostTag("p1"))
	require.True(t, cache.IsStale(keyFeed))
	require.False(t, cache.IsStale(keyUserPosts("u1")))
	require.False(t, cache.IsStale(keySavedPosts))
	require.False(t, cache.IsStale(keySuggested))

	cache.Invalidate(AllPosts)
	require.True(t, cache.IsStale(keyUserPosts("u1")))
	require.True(t, cache.IsStale(keySavedPosts))
	require.False(t, cache.IsStale(keySuggested))

	cache.Invalidate(UserTag("u2"))
	require.False(t, cache.IsStale(keySuggested))
	cache.Invalidate(AllUsers)
	require.True(t, cache.IsStale(keySuggested))
}

func TestUpdatedEntityVisibleInEveryList(t *testing.T) {
	cache := NewCache()
	cache.StorePosts(keyFeed, []Post{{ID: "p1"}}, PostList)
	cache.StorePosts(keyUserPosts("u2"), []Post{{ID: "p1"}}, PostTag("u2"))

	_, ok := cache.UpdatePost("p1", func(p *Post) { p.Likes = append(p.Likes, "u1") })
	require.True(t, ok)

	feed, ok := cache.Posts(keyFeed)
	require.True(t, ok)
	require.True(t, feed[0].LikedBy("u1"))
	mine, ok := cache.Posts(keyUserPosts("u2"))
	require.True(t, ok)
	require.True(t, mine[0].LikedBy("u1"))
}
