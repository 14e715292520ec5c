package services

import (
	"context"
	"fmt"

	"github.com/fathima-sithara/snapshare/internal/models"
	"github.com/fathima-sithara/snapshare/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Projection selects which account fields a summary carries.
type Projection struct {
	Email bool
	Bio   bool
}

var (
	// feed owner: username, profilePicture, bio
	FeedOwner = Projection{Bio: true}
	// freshly created post owner: username, email, bio, profilePicture
	CreatorOwner = Projection{Email: true, Bio: true}
	// comment author: username, profilePicture, bio
	CommentAuthor = Projection{Bio: true}
)

func Summarize(u *models.User, p Projection) *models.UserSummary {
	if u == nil {
		return nil
	}
	s := &models.UserSummary{ID: u.ID, Username: u.Username, ProfilePicture: u.ProfilePicture}
	if p.Email {
		s.Email = u.Email
	}
	if p.Bio {
		s.Bio = u.Bio
	}
	return s
}

// Populator resolves the references held by posts and comments. Each stage
// is one batched lookup; references to deleted documents resolve to nil.
type Populator struct {
	users    repository.UserRepository
	comments repository.CommentRepository
}

func NewPopulator(users repository.UserRepository, comments repository.CommentRepository) *Populator {
	return &Populator{users: users, comments: comments}
}

func (p *Populator) usersByID(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.User, error) {
	found, err := p.users.FindManyByIDs(ctx, dedupe(ids))
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	out := make(map[primitive.ObjectID]*models.User, len(found))
	for _, u := range found {
		out[u.ID] = u
	}
	return out, nil
}

// Comments resolves comment ids into views with their authors, in the order
// the ids were given.
func (p *Populator) Comments(ctx context.Context, ids []primitive.ObjectID) ([]models.CommentView, error) {
	out := []models.CommentView{}
	if len(ids) == 0 {
		return out, nil
	}
	found, err := p.comments.FindManyByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load comments: %w", err)
	}
	byID := make(map[primitive.ObjectID]*models.Comment, len(found))
	authorIDs := make([]primitive.ObjectID, 0, len(found))
	for _, c := range found {
		byID[c.ID] = c
		authorIDs = append(authorIDs, c.User)
	}
	authors, err := p.usersByID(ctx, authorIDs)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		c, ok := byID[id]
		if !ok {
			continue
		}
		out = append(out, models.CommentView{Comment: c, User: Summarize(authors[c.User], CommentAuthor)})
	}
	return out, nil
}

// Posts attaches owners (with the given projection) and, when withComments
// is set, comments with their authors.
func (p *Populator) Posts(ctx context.Context, posts []*models.Post, owner Projection, withComments bool) ([]models.PostView, error) {
	views := make([]models.PostView, 0, len(posts))
	if len(posts) == 0 {
		return views, nil
	}

	ownerIDs := make([]primitive.ObjectID, 0, len(posts))
	var commentIDs []primitive.ObjectID
	for _, post := range posts {
		ownerIDs = append(ownerIDs, post.User)
		commentIDs = append(commentIDs, post.Comments...)
	}
	owners, err := p.usersByID(ctx, ownerIDs)
	if err != nil {
		return nil, err
	}

	commentsByID := map[primitive.ObjectID]models.CommentView{}
	if withComments {
		resolved, err := p.Comments(ctx, commentIDs)
		if err != nil {
			return nil, err
		}
		for _, c := range resolved {
			commentsByID[c.ID] = c
		}
	}

	for _, post := range posts {
		v := models.PostView{
			Post:     post,
			User:     Summarize(owners[post.User], owner),
			Comments: []models.CommentView{},
		}
		for _, id := range post.Comments {
			if c, ok := commentsByID[id]; ok {
				v.Comments = append(v.Comments, c)
			}
		}
		views = append(views, v)
	}
	return views, nil
}

func dedupe(ids []primitive.ObjectID) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]struct{}, len(ids))
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
