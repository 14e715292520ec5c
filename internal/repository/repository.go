package repository

import (
	"context"
	"time"

	"github.com/fathima-sithara/snapshare/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Edge names one of the id lists stored on an account.
type Edge string

const (
	EdgeFollowers  Edge = "followers"
	EdgeFollowing  Edge = "following"
	EdgePosts      Edge = "posts"
	EdgeSavedPosts Edge = "savedPosts"
)

// ProfileUpdate carries only the fields that change; nil means untouched.
type ProfileUpdate struct {
	Bio              *string
	ProfilePicture   *string
	ProfilePictureID *string
}

// UserRepository stores accounts. Edge mutations are single-document set
// operations so concurrent toggles never lose each other's writes.
// Missing documents are reported as errs.ErrNotFound.
type UserRepository interface {
	Create(ctx context.Context, u *models.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindManyByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*models.User, error)
	ListExcept(ctx context.Context, id primitive.ObjectID) ([]*models.User, error)
	UpdateProfile(ctx context.Context, id primitive.ObjectID, upd ProfileUpdate) (*models.User, error)

	// AddEdge appends target to the edge. EdgePosts is an ordered list,
	// the other edges are sets.
	AddEdge(ctx context.Context, id primitive.ObjectID, edge Edge, target primitive.ObjectID) error
	RemoveEdge(ctx context.Context, id primitive.ObjectID, edge Edge, target primitive.ObjectID) error
	// RemoveEdgeEverywhere pulls target from the edge of every account.
	RemoveEdgeEverywhere(ctx context.Context, edge Edge, target primitive.ObjectID) (int64, error)

	SetPassword(ctx context.Context, id primitive.ObjectID, hash string) error
	SetVerificationOTP(ctx context.Context, id primitive.ObjectID, otp string, expires time.Time) error
	MarkVerified(ctx context.Context, id primitive.ObjectID) error
	SetResetOTP(ctx context.Context, id primitive.ObjectID, otp string, expires time.Time) error
}

// PostRepository stores posts. Lists come back newest first.
type PostRepository interface {
	Create(ctx context.Context, p *models.Post) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Post, error)
	FindManyByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*models.Post, error)
	ListAll(ctx context.Context) ([]*models.Post, error)
	ListByOwner(ctx context.Context, owner primitive.ObjectID) ([]*models.Post, error)
	AddLike(ctx context.Context, postID, userID primitive.ObjectID) error
	RemoveLike(ctx context.Context, postID, userID primitive.ObjectID) error
	AppendComment(ctx context.Context, postID, commentID primitive.ObjectID) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type CommentRepository interface {
	Create(ctx context.Context, c *models.Comment) error
	FindManyByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*models.Comment, error)
	DeleteByPost(ctx context.Context, postID primitive.ObjectID) (int64, error)
}
