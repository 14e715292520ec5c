package apiclient

import "sync"

const (
	TypePost = "Post"
	TypeUser = "User"
	TypeAuth = "Auth"
)

// Tag labels cached query results. A tag without an ID stands for the
// whole type.
type Tag struct {
	Type string
	ID   string
}

func (t Tag) String() string {
	if t.ID == "" {
		return t.Type
	}
	return t.Type + ":" + t.ID
}

var (
	PostList = Tag{Type: TypePost, ID: "LIST"}
	AllPosts = Tag{Type: TypePost}
	AllUsers = Tag{Type: TypeUser}
	AuthTag  = Tag{Type: TypeAuth}
)

func PostTag(id string) Tag { return Tag{Type: TypePost, ID: id} }
func UserTag(id string) Tag { return Tag{Type: TypeUser, ID: id} }

// invalidates reports whether invalidating t marks a query that provided p
// as stale. An untyped-id tag covers every tag of its type; an id tag only
// covers the same id.
func (t Tag) invalidates(p Tag) bool {
	return t.Type == p.Type && (t.ID == "" || t.ID == p.ID)
}

type entry struct {
	tags  []Tag
	stale bool

	posts []string
	users []string
	value any
}

// Cache is a normalized store: posts and users live once, keyed by id, and
// query results refer to them. Updating an entity is therefore visible in
// every list that holds it.
type Cache struct {
	mu      sync.RWMutex
	posts   map[string]*Post
	users   map[string]*User
	queries map[string]*entry
}

func NewCache() *Cache {
	return &Cache{
		posts:   make(map[string]*Post),
		users:   make(map[string]*User),
		queries: make(map[string]*entry),
	}
}

func (c *Cache) putPostsLocked(posts []Post) []string {
	ids := make([]string, 0, len(posts))
	for i := range posts {
		p := posts[i].clone()
		c.posts[p.ID] = p
		if p.User != nil && p.User.ID != "" {
			if _, ok := c.users[p.User.ID]; !ok {
				c.users[p.User.ID] = p.User.clone()
			}
		}
		ids = append(ids, p.ID)
	}
	return ids
}

func (c *Cache) putUsersLocked(users []User) []string {
	ids := make([]string, 0, len(users))
	for i := range users {
		c.users[users[i].ID] = users[i].clone()
		ids = append(ids, users[i].ID)
	}
	return ids
}

// StorePosts records a post list result under key.
func (c *Cache) StorePosts(key string, posts []Post, tags ...Tag) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queries[key] = &entry{tags: tags, posts: c.putPostsLocked(posts)}
}

// StoreUsers records a user list result under key.
func (c *Cache) StoreUsers(key string, users []User, tags ...Tag) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queries[key] = &entry{tags: tags, users: c.putUsersLocked(users)}
}

// StoreProfile records a profile result; its posts are normalized too.
func (c *Cache) StoreProfile(key string, p *Profile, tags ...Tag) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.putPostsLocked(p.Posts)
	c.putPostsLocked(p.SavedPosts)
	c.putUsersLocked([]User{p.User})
	cp := *p
	c.queries[key] = &entry{tags: tags, value: &cp}
}

func (c *Cache) lookup(key string) (*entry, bool) {
	e, ok := c.queries[key]
	if !ok {
		return nil, false
	}
	return e, true
}

// Posts returns the fresh post list cached under key.
func (c *Cache) Posts(key string) ([]Post, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.lookup(key)
	if !ok || e.stale || e.posts == nil {
		return nil, false
	}
	return c.resolvePostsLocked(e.posts), true
}

// StalePosts returns whatever is cached under key, fresh or not.
func (c *Cache) StalePosts(key string) ([]Post, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.lookup(key)
	if !ok || e.posts == nil {
		return nil, false
	}
	return c.resolvePostsLocked(e.posts), true
}

func (c *Cache) resolvePostsLocked(ids []string) []Post {
	out := make([]Post, 0, len(ids))
	for _, id := range ids {
		if p, ok := c.posts[id]; ok {
			out = append(out, *p.clone())
		}
	}
	return out
}

func (c *Cache) Users(key string) ([]User, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.lookup(key)
	if !ok || e.stale || e.users == nil {
		return nil, false
	}
	out := make([]User, 0, len(e.users))
	for _, id := range e.users {
		if u, ok := c.users[id]; ok {
			out = append(out, *u.clone())
		}
	}
	return out, true
}

func (c *Cache) Profile(key string) (*Profile, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.lookup(key)
	if !ok || e.stale {
		return nil, false
	}
	p, ok := e.value.(*Profile)
	if !ok {
		return nil, false
	}
	cp := *p
	return &cp, true
}

// Post returns the cached entity for id.
func (c *Cache) Post(id string) (*Post, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.posts[id]
	if !ok {
		return nil, false
	}
	return p.clone(), true
}

// UpdatePost applies fn to the cached post and returns the previous
// version so the caller can restore it.
func (c *Cache) UpdatePost(id string, fn func(p *Post)) (*Post, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.posts[id]
	if !ok {
		return nil, false
	}
	prev := p.clone()
	fn(p)
	return prev, true
}

// RestorePost puts a previous version back.
func (c *Cache) RestorePost(p *Post) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.posts[p.ID] = p.clone()
}

// Invalidate marks stale every query that provided a tag covered by tags.
// Stale queries are refetched on their next read.
func (c *Cache) Invalidate(tags ...Tag) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.queries {
		if e.stale {
			continue
		}
		for _, provided := range e.tags {
			if matchesAny(tags, provided) {
				e.stale = true
				break
			}
		}
	}
}

func matchesAny(tags []Tag, provided Tag) bool {
	for _, t := range tags {
		if t.invalidates(provided) {
			return true
		}
	}
	return false
}

// IsStale reports whether key is cached and stale. Unknown keys are not
// stale.
func (c *Cache) IsStale(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.queries[key]
	return ok && e.stale
}

func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.posts = make(map[string]*Post)
	c.users = make(map[string]*User)
	c.queries = make(map[string]*entry)
}
