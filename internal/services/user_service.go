package services

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/fathima-sithara/snapshare/internal/errs"
	"github.com/fathima-sithara/snapshare/internal/events"
	"github.com/fathima-sithara/snapshare/internal/models"
	"github.com/fathima-sithara/snapshare/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type UserService struct {
	users repository.UserRepository
	posts repository.PostRepository
	relay ImageRelay
	pub   events.Publisher
	log   *zap.Logger
}

func NewUserService(users repository.UserRepository, posts repository.PostRepository, relay ImageRelay, pub events.Publisher, logger *zap.Logger) *UserService {
	return &UserService{users: users, posts: posts, relay: relay, pub: pub, log: logger}
}

// GetProfile loads an account with its own and saved posts, newest first.
func (s *UserService) GetProfile(ctx context.Context, rawID string) (*models.Profile, error) {
	id, err := ParseID(rawID, msgNoUser)
	if err != nil {
		return nil, err
	}
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, msgNoUser)
	}
	own, err := s.posts.FindManyByIDs(ctx, u.Posts)
	if err != nil {
		return nil, storeErr(err, msgNoPost)
	}
	saved, err := s.posts.FindManyByIDs(ctx, u.SavedPosts)
	if err != nil {
		return nil, storeErr(err, msgNoPost)
	}
	return &models.Profile{User: u, Posts: own, SavedPosts: saved}, nil
}

type EditProfileInput struct {
	Bio     *string
	Picture *Upload
}

// EditProfile applies only the provided fields. A new picture is relayed
// before anything is written; the picture it replaces is released best
// effort.
func (s *UserService) EditProfile(ctx context.Context, caller *models.User, in EditProfileInput) (*models.User, error) {
	if in.Bio != nil && utf8.RuneCountInString(*in.Bio) > models.MaxBioLength {
		return nil, errs.Validation(fmt.Sprintf("Your bio must be at most %d characters", models.MaxBioLength))
	}

	upd := repository.ProfileUpdate{Bio: in.Bio}
	var uploaded *models.Image
	if in.Picture != nil && len(in.Picture.Data) > 0 {
		img, err := s.relay.Upload(ctx, in.Picture.Data, in.Picture.ContentType)
		if err != nil {
			return nil, err
		}
		uploaded = &img
		upd.ProfilePicture = &img.URL
		upd.ProfilePictureID = &img.PublicID
	}

	u, err := s.users.UpdateProfile(ctx, caller.ID, upd)
	if err != nil {
		if uploaded != nil {
			s.release(ctx, uploaded.PublicID)
		}
		return nil, storeErr(err, msgNoUser)
	}
	if uploaded != nil && caller.ProfilePictureID != "" && caller.ProfilePictureID != uploaded.PublicID {
		s.release(ctx, caller.ProfilePictureID)
	}
	return u, nil
}

func (s *UserService) release(ctx context.Context, publicID string) {
	if err := s.relay.Release(ctx, publicID); err != nil {
		s.log.Warn("asset release failed", zap.String("public_id", publicID), zap.Error(err))
	}
}

// Suggested returns every account except the caller. No ranking and no
// pagination.
func (s *UserService) Suggested(ctx context.Context, callerID primitive.ObjectID) ([]*models.User, error) {
	users, err := s.users.ListExcept(ctx, callerID)
	if err != nil {
		return nil, storeErr(err, msgNoUser)
	}
	return users, nil
}

type FollowResult struct {
	Following bool
	User      *models.User
}

func (r FollowResult) Message() string {
	if r.Following {
		return "Followed successfully"
	}
	return "Unfollowed successfully"
}

type edgeWrite struct {
	id     primitive.ObjectID
	edge   repository.Edge
	target primitive.ObjectID
}

func (s *UserService) apply(ctx context.Context, add bool, w edgeWrite) error {
	if add {
		return s.users.AddEdge(ctx, w.id, w.edge, w.target)
	}
	return s.users.RemoveEdge(ctx, w.id, w.edge, w.target)
}

// ToggleFollow flips the caller's follow of target. The direction comes from
// whether the caller is already among target's followers. Both sides of the
// pair are written; when the second write fails the first is reverted so
// the pair never stays one-sided.
func (s *UserService) ToggleFollow(ctx context.Context, callerID primitive.ObjectID, rawTarget string) (*FollowResult, error) {
	targetID, err := ParseID(rawTarget, msgNoUser)
	if err != nil {
		return nil, err
	}
	if targetID == callerID {
		return nil, errs.Validation(msgSelfFollow)
	}
	target, err := s.users.FindByID(ctx, targetID)
	if err != nil {
		return nil, storeErr(err, msgNoUser)
	}

	follow := !target.IsFollowedBy(callerID)
	first := edgeWrite{id: callerID, edge: repository.EdgeFollowing, target: targetID}
	second := edgeWrite{id: targetID, edge: repository.EdgeFollowers, target: callerID}

	if err := s.apply(ctx, follow, first); err != nil {
		return nil, storeErr(err, msgNoUser)
	}
	if err := s.apply(ctx, follow, second); err != nil {
		if cerr := s.apply(ctx, !follow, first); cerr != nil {
			s.log.Error("follow compensation failed",
				zap.String("caller", callerID.Hex()),
				zap.String("target", targetID.Hex()),
				zap.Error(cerr))
		}
		return nil, errs.Upstream("Could not update follow state", err)
	}

	refreshed, err := s.users.FindByID(ctx, callerID)
	if err != nil {
		return nil, storeErr(err, msgNoUser)
	}
	typ := events.UserUnfollowed
	if follow {
		typ = events.UserFollowed
	}
	publish(ctx, s.pub, s.log, typ, callerID, targetID)
	return &FollowResult{Following: follow, User: refreshed}, nil
}

func (s *UserService) IsFollowing(ctx context.Context, callerID primitive.ObjectID, rawTarget string) (bool, error) {
	targetID, err := ParseID(rawTarget, msgNoUser)
	if err != nil {
		return false, err
	}
	target, err := s.users.FindByID(ctx, targetID)
	if err != nil {
		return false, storeErr(err, msgNoUser)
	}
	return target.IsFollowedBy(callerID), nil
}

// SavedPosts returns the caller's saved posts, newest first.
func (s *UserService) SavedPosts(ctx context.Context, callerID primitive.ObjectID) ([]*models.Post, error) {
	u, err := s.users.FindByID(ctx, callerID)
	if err != nil {
		return nil, storeErr(err, msgNoUser)
	}
	posts, err := s.posts.FindManyByIDs(ctx, u.SavedPosts)
	if err != nil {
		return nil, storeErr(err, msgNoPost)
	}
	return posts, nil
}
