package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fathima-sithara/snapshare/internal/errs"
	"github.com/fathima-sithara/snapshare/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryStore keeps all three collections in process. It backs the
// "memory" store driver and the service tests. Values are copied on the
// way in and out so callers never share state with the store.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[primitive.ObjectID]*models.User
	posts    map[primitive.ObjectID]*models.Post
	comments map[primitive.ObjectID]*models.Comment
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[primitive.ObjectID]*models.User),
		posts:    make(map[primitive.ObjectID]*models.Post),
		comments: make(map[primitive.ObjectID]*models.Comment),
	}
}

func (s *MemoryStore) Users() *MemoryUserRepo       { return &MemoryUserRepo{s: s} }
func (s *MemoryStore) Posts() *MemoryPostRepo       { return &MemoryPostRepo{s: s} }
func (s *MemoryStore) Comments() *MemoryCommentRepo { return &MemoryCommentRepo{s: s} }

func cloneIDs(ids []primitive.ObjectID) []primitive.ObjectID {
	out := make([]primitive.ObjectID, len(ids))
	copy(out, ids)
	return out
}

func cloneUser(u *models.User) *models.User {
	c := *u
	c.Followers = cloneIDs(u.Followers)
	c.Following = cloneIDs(u.Following)
	c.Posts = cloneIDs(u.Posts)
	c.SavedPosts = cloneIDs(u.SavedPosts)
	return &c
}

func clonePost(p *models.Post) *models.Post {
	c := *p
	c.Likes = cloneIDs(p.Likes)
	c.Comments = cloneIDs(p.Comments)
	return &c
}

func addToSet(ids []primitive.ObjectID, id primitive.ObjectID) []primitive.ObjectID {
	if models.ContainsID(ids, id) {
		return ids
	}
	return append(ids, id)
}

func pull(ids []primitive.ObjectID, id primitive.ObjectID) []primitive.ObjectID {
	out := ids[:0]
	for _, x := range ids {
		if x != id {
			out = append(out, x)
		}
	}
	return out
}

type MemoryUserRepo struct{ s *MemoryStore }

func (r *MemoryUserRepo) edge(doc *models.User, edge Edge) *[]primitive.ObjectID {
	switch edge {
	case EdgeFollowers:
		return &doc.Followers
	case EdgeFollowing:
		return &doc.Following
	case EdgePosts:
		return &doc.Posts
	default:
		return &doc.SavedPosts
	}
}

func (r *MemoryUserRepo) Create(_ context.Context, u *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return errs.ErrDuplicate
		}
	}
	now := time.Now().UTC()
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	u.CreatedAt = now
	u.UpdatedAt = now
	u.Normalize()
	r.s.users[u.ID] = cloneUser(u)
	return nil
}

func (r *MemoryUserRepo) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return cloneUser(u), nil
}

func (r *MemoryUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, errs.ErrNotFound
}

func (r *MemoryUserRepo) FindManyByIDs(_ context.Context, ids []primitive.ObjectID) ([]*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []*models.User{}
	for _, id := range ids {
		if u, ok := r.s.users[id]; ok {
			out = append(out, cloneUser(u))
		}
	}
	return out, nil
}

func (r *MemoryUserRepo) ListExcept(_ context.Context, id primitive.ObjectID) ([]*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []*models.User{}
	for _, u := range r.s.users {
		if u.ID != id {
			out = append(out, cloneUser(u))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryUserRepo) UpdateProfile(_ context.Context, id primitive.ObjectID, upd ProfileUpdate) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	if upd.Bio != nil {
		u.Bio = *upd.Bio
	}
	if upd.ProfilePicture != nil {
		u.ProfilePicture = *upd.ProfilePicture
	}
	if upd.ProfilePictureID != nil {
		u.ProfilePictureID = *upd.ProfilePictureID
	}
	u.UpdatedAt = time.Now().UTC()
	return cloneUser(u), nil
}

func (r *MemoryUserRepo) mutate(id primitive.ObjectID, fn func(u *models.User)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return errs.ErrNotFound
	}
	fn(u)
	return nil
}

func (r *MemoryUserRepo) AddEdge(_ context.Context, id primitive.ObjectID, edge Edge, target primitive.ObjectID) error {
	return r.mutate(id, func(u *models.User) {
		list := r.edge(u, edge)
		if edge == EdgePosts {
			*list = append(*list, target)
			return
		}
		*list = addToSet(*list, target)
	})
}

func (r *MemoryUserRepo) RemoveEdge(_ context.Context, id primitive.ObjectID, edge Edge, target primitive.ObjectID) error {
	return r.mutate(id, func(u *models.User) {
		list := r.edge(u, edge)
		*list = pull(*list, target)
	})
}

func (r *MemoryUserRepo) RemoveEdgeEverywhere(_ context.Context, edge Edge, target primitive.ObjectID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, u := range r.s.users {
		list := r.edge(u, edge)
		if models.ContainsID(*list, target) {
			*list = pull(*list, target)
			n++
		}
	}
	return n, nil
}

func (r *MemoryUserRepo) SetPassword(_ context.Context, id primitive.ObjectID, hash string) error {
	return r.mutate(id, func(u *models.User) {
		u.Password = hash
		u.ResetPasswordOTP = ""
		u.ResetPasswordOTPExpires = nil
		u.UpdatedAt = time.Now().UTC()
	})
}

func (r *MemoryUserRepo) SetVerificationOTP(_ context.Context, id primitive.ObjectID, otp string, expires time.Time) error {
	return r.mutate(id, func(u *models.User) {
		u.OTP = otp
		u.OTPExpires = &expires
	})
}

func (r *MemoryUserRepo) MarkVerified(_ context.Context, id primitive.ObjectID) error {
	return r.mutate(id, func(u *models.User) {
		u.IsVerified = true
		u.OTP = ""
		u.OTPExpires = nil
	})
}

func (r *MemoryUserRepo) SetResetOTP(_ context.Context, id primitive.ObjectID, otp string, expires time.Time) error {
	return r.mutate(id, func(u *models.User) {
		u.ResetPasswordOTP = otp
		u.ResetPasswordOTPExpires = &expires
	})
}

type MemoryPostRepo struct{ s *MemoryStore }

func sortNewestFirst(posts []*models.Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		if posts[i].CreatedAt.Equal(posts[j].CreatedAt) {
			return posts[i].ID.Hex() > posts[j].ID.Hex()
		}
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})
}

func (r *MemoryPostRepo) Create(_ context.Context, p *models.Post) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := time.Now().UTC()
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	p.CreatedAt = now
	p.UpdatedAt = now
	p.Normalize()
	r.s.posts[p.ID] = clonePost(p)
	return nil
}

func (r *MemoryPostRepo) FindByID(_ context.Context, id primitive.ObjectID) (*models.Post, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.posts[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return clonePost(p), nil
}

func (r *MemoryPostRepo) filter(keep func(p *models.Post) bool) []*models.Post {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []*models.Post{}
	for _, p := range r.s.posts {
		if keep(p) {
			out = append(out, clonePost(p))
		}
	}
	sortNewestFirst(out)
	return out
}

func (r *MemoryPostRepo) FindManyByIDs(_ context.Context, ids []primitive.ObjectID) ([]*models.Post, error) {
	return r.filter(func(p *models.Post) bool { return models.ContainsID(ids, p.ID) }), nil
}

func (r *MemoryPostRepo) ListAll(_ context.Context) ([]*models.Post, error) {
	return r.filter(func(*models.Post) bool { return true }), nil
}

func (r *MemoryPostRepo) ListByOwner(_ context.Context, owner primitive.ObjectID) ([]*models.Post, error) {
	return r.filter(func(p *models.Post) bool { return p.User == owner }), nil
}

func (r *MemoryPostRepo) mutate(id primitive.ObjectID, fn func(p *models.Post)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.posts[id]
	if !ok {
		return errs.ErrNotFound
	}
	fn(p)
	return nil
}

func (r *MemoryPostRepo) AddLike(_ context.Context, postID, userID primitive.ObjectID) error {
	return r.mutate(postID, func(p *models.Post) { p.Likes = addToSet(p.Likes, userID) })
}

func (r *MemoryPostRepo) RemoveLike(_ context.Context, postID, userID primitive.ObjectID) error {
	return r.mutate(postID, func(p *models.Post) { p.Likes = pull(p.Likes, userID) })
}

func (r *MemoryPostRepo) AppendComment(_ context.Context, postID, commentID primitive.ObjectID) error {
	return r.mutate(postID, func(p *models.Post) {
		p.Comments = append(p.Comments, commentID)
		p.UpdatedAt = time.Now().UTC()
	})
}

func (r *MemoryPostRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.posts[id]; !ok {
		return errs.ErrNotFound
	}
	delete(r.s.posts, id)
	return nil
}

type MemoryCommentRepo struct{ s *MemoryStore }

func (r *MemoryCommentRepo) Create(_ context.Context, c *models.Comment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	c.CreatedAt = time.Now().UTC()
	cpy := *c
	r.s.comments[c.ID] = &cpy
	return nil
}

func (r *MemoryCommentRepo) FindManyByIDs(_ context.Context, ids []primitive.ObjectID) ([]*models.Comment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []*models.Comment{}
	for _, id := range ids {
		if c, ok := r.s.comments[id]; ok {
			cpy := *c
			out = append(out, &cpy)
		}
	}
	return out, nil
}

func (r *MemoryCommentRepo) DeleteByPost(_ context.Context, postID primitive.ObjectID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, c := range r.s.comments {
		if c.Post == postID {
			delete(r.s.comments, id)
			n++
		}
	}
	return n, nil
}

// CommentCount reports how many comments reference postID.
func (s *MemoryStore) CommentCount(postID primitive.ObjectID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, c := range s.comments {
		if c.Post == postID {
			n++
		}
	}
	return n
}

var (
	_ UserRepository    = (*MemoryUserRepo)(nil)
	_ PostRepository    = (*MemoryPostRepo)(nil)
	_ CommentRepository = (*MemoryCommentRepo)(nil)
	_ UserRepository    = (*MongoUserRepo)(nil)
	_ PostRepository    = (*MongoPostRepo)(nil)
	_ CommentRepository = (*MongoCommentRepo)(nil)
)
