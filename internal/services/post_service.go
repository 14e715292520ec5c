package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/fathima-sithara/snapshare/internal/errs"
	"github.com/fathima-sithara/snapshare/internal/events"
	"github.com/fathima-sithara/snapshare/internal/models"
	"github.com/fathima-sithara/snapshare/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type PostService struct {
	users     repository.UserRepository
	posts     repository.PostRepository
	comments  repository.CommentRepository
	populator *Populator
	relay     ImageRelay
	pub       events.Publisher
	log       *zap.Logger
}

func NewPostService(
	users repository.UserRepository,
	posts repository.PostRepository,
	comments repository.CommentRepository,
	relay ImageRelay,
	pub events.Publisher,
	logger *zap.Logger,
) *PostService {
	return &PostService{
		users:     users,
		posts:     posts,
		comments:  comments,
		populator: NewPopulator(users, comments),
		relay:     relay,
		pub:       pub,
		log:       logger,
	}
}

// CreatePost relays the image, stores the post and appends it to the
// owner's post list. The append is best effort: a missing owner is logged
// and the post is kept.
func (s *PostService) CreatePost(ctx context.Context, ownerID primitive.ObjectID, caption string, img *Upload) (*models.PostView, error) {
	if img == nil || len(img.Data) == 0 {
		return nil, errs.Validation(msgImageNeeded)
	}
	caption = strings.TrimSpace(caption)
	if utf8.RuneCountInString(caption) > models.MaxCaptionLength {
		return nil, errs.Validation(fmt.Sprintf("Caption cannot be more than %d characters", models.MaxCaptionLength))
	}

	image, err := s.relay.Upload(ctx, img.Data, img.ContentType)
	if err != nil {
		return nil, err
	}

	post := &models.Post{Caption: caption, Image: image, User: ownerID}
	if err := s.posts.Create(ctx, post); err != nil {
		s.release(ctx, image.PublicID)
		return nil, storeErr(err, msgNoPost)
	}

	if err := s.users.AddEdge(ctx, ownerID, repository.EdgePosts, post.ID); err != nil {
		s.log.Warn("post not appended to owner",
			zap.String("owner", ownerID.Hex()),
			zap.String("post", post.ID.Hex()),
			zap.Error(err))
	}

	views, err := s.populator.Posts(ctx, []*models.Post{post}, CreatorOwner, false)
	if err != nil {
		return nil, storeErr(err, msgNoUser)
	}
	publish(ctx, s.pub, s.log, events.PostCreated, ownerID, post.ID)
	return &views[0], nil
}

// ListAll returns every post, newest first, with owners and comments
// resolved.
func (s *PostService) ListAll(ctx context.Context) ([]models.PostView, error) {
	posts, err := s.posts.ListAll(ctx)
	if err != nil {
		return nil, storeErr(err, msgNoPost)
	}
	views, err := s.populator.Posts(ctx, posts, FeedOwner, true)
	if err != nil {
		return nil, storeErr(err, msgNoPost)
	}
	return views, nil
}

func (s *PostService) ListByOwner(ctx context.Context, rawOwner string) ([]models.PostView, error) {
	ownerID, err := ParseID(rawOwner, msgNoUser)
	if err != nil {
		return nil, err
	}
	posts, err := s.posts.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, storeErr(err, msgNoPost)
	}
	views, err := s.populator.Posts(ctx, posts, FeedOwner, true)
	if err != nil {
		return nil, storeErr(err, msgNoPost)
	}
	return views, nil
}

type SaveResult struct {
	Saved bool
	User  *models.User
}

func (r SaveResult) Message() string {
	if r.Saved {
		return "Post saved successfully"
	}
	return "Post unsaved successfully"
}

// ToggleSave flips membership of the post in the caller's saved list.
// Unsaving works even when the post itself is already gone.
func (s *PostService) ToggleSave(ctx context.Context, callerID primitive.ObjectID, rawPost string) (*SaveResult, error) {
	postID, err := ParseID(rawPost, msgNoPost)
	if err != nil {
		return nil, err
	}
	caller, err := s.users.FindByID(ctx, callerID)
	if err != nil {
		return nil, storeErr(err, msgNoUser)
	}

	save := !caller.HasSaved(postID)
	if save {
		if _, err := s.posts.FindByID(ctx, postID); err != nil {
			return nil, storeErr(err, msgNoPost)
		}
		err = s.users.AddEdge(ctx, callerID, repository.EdgeSavedPosts, postID)
	} else {
		err = s.users.RemoveEdge(ctx, callerID, repository.EdgeSavedPosts, postID)
	}
	if err != nil {
		return nil, storeErr(err, msgNoUser)
	}

	refreshed, err := s.users.FindByID(ctx, callerID)
	if err != nil {
		return nil, storeErr(err, msgNoUser)
	}
	typ := events.PostUnsaved
	if save {
		typ = events.PostSaved
	}
	publish(ctx, s.pub, s.log, typ, callerID, postID)
	return &SaveResult{Saved: save, User: refreshed}, nil
}

// DeletePost removes a post owned by the caller together with everything
// that references it: the owner's post list entry, every saved-list entry,
// its comments and its image. The steps are independent writes; releasing
// the image is best effort.
func (s *PostService) DeletePost(ctx context.Context, callerID primitive.ObjectID, rawPost string) error {
	postID, err := ParseID(rawPost, msgNoPost)
	if err != nil {
		return err
	}
	post, err := s.posts.FindByID(ctx, postID)
	if err != nil {
		return storeErr(err, msgNoPost)
	}
	if post.User != callerID {
		return errs.Forbidden(msgNotPostOwner)
	}

	if err := s.users.RemoveEdge(ctx, post.User, repository.EdgePosts, postID); err != nil && !errors.Is(err, errs.ErrNotFound) {
		return storeErr(err, msgNoPost)
	}
	if _, err := s.users.RemoveEdgeEverywhere(ctx, repository.EdgeSavedPosts, postID); err != nil {
		return storeErr(err, msgNoPost)
	}
	n, err := s.comments.DeleteByPost(ctx, postID)
	if err != nil {
		return storeErr(err, msgNoPost)
	}
	s.release(ctx, post.Image.PublicID)
	if err := s.posts.Delete(ctx, postID); err != nil && !errors.Is(err, errs.ErrNotFound) {
		return storeErr(err, msgNoPost)
	}

	s.log.Debug("post deleted", zap.String("post", postID.Hex()), zap.Int64("comments", n))
	publish(ctx, s.pub, s.log, events.PostDeleted, callerID, postID)
	return nil
}

// ToggleLike adds or removes the caller in the post's likes and reports
// whether the post is now liked.
func (s *PostService) ToggleLike(ctx context.Context, callerID primitive.ObjectID, rawPost string) (bool, error) {
	postID, err := ParseID(rawPost, msgNoPost)
	if err != nil {
		return false, err
	}
	post, err := s.posts.FindByID(ctx, postID)
	if err != nil {
		return false, storeErr(err, msgNoPost)
	}

	like := !post.LikedBy(callerID)
	if like {
		err = s.posts.AddLike(ctx, postID, callerID)
	} else {
		err = s.posts.RemoveLike(ctx, postID, callerID)
	}
	if err != nil {
		return false, storeErr(err, msgNoPost)
	}
	typ := events.PostUnliked
	if like {
		typ = events.PostLiked
	}
	publish(ctx, s.pub, s.log, typ, callerID, postID)
	return like, nil
}

func LikeMessage(liked bool) string {
	if liked {
		return "Post liked successfully"
	}
	return "Post disliked successfully"
}

func (s *PostService) AddComment(ctx context.Context, callerID primitive.ObjectID, rawPost, text string) (*models.CommentView, error) {
	postID, err := ParseID(rawPost, msgNoPost)
	if err != nil {
		return nil, err
	}
	if _, err := s.posts.FindByID(ctx, postID); err != nil {
		return nil, storeErr(err, msgNoPost)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errs.Validation(msgCommentNeeded)
	}

	comment := &models.Comment{Text: text, User: callerID, Post: postID}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, storeErr(err, msgNoPost)
	}
	if err := s.posts.AppendComment(ctx, postID, comment.ID); err != nil {
		return nil, storeErr(err, msgNoPost)
	}

	publish(ctx, s.pub, s.log, events.CommentAdded, callerID, postID)

	view := &models.CommentView{Comment: comment}
	if author, err := s.users.FindByID(ctx, callerID); err == nil {
		view.User = Summarize(author, CommentAuthor)
	} else {
		s.log.Warn("comment author lookup failed", zap.String("user", callerID.Hex()), zap.Error(err))
	}
	return view, nil
}

func (s *PostService) release(ctx context.Context, publicID string) {
	if err := s.relay.Release(ctx, publicID); err != nil {
		s.log.Warn("asset release failed", zap.String("public_id", publicID), zap.Error(err))
	}
}
