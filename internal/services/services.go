package services

import (
	"context"
	"errors"

	"github.com/fathima-sithara/snapshare/internal/errs"
	"github.com/fathima-sithara/snapshare/internal/events"
	"github.com/fathima-sithara/snapshare/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	msgNoUser        = "No user found with this ID"
	msgNoPost        = "No post found with this ID"
	msgStoreFailure  = "Something went wrong, please try again later"
	msgNotPostOwner  = "You are not authorized to delete this post"
	msgSelfFollow    = "You cannot follow/unfollow yourself"
	msgCommentNeeded = "Comment text is required"
	msgImageNeeded   = "Please upload an image"
)

// Upload is a binary payload received from the client.
type Upload struct {
	Data        []byte
	ContentType string
	Filename    string
}

// ImageRelay uploads normalized images and releases them by public id.
type ImageRelay interface {
	Upload(ctx context.Context, data []byte, contentType string) (models.Image, error)
	Release(ctx context.Context, publicID string) error
}

// ParseID turns a path parameter into an ObjectID. Malformed ids cannot name
// any document, so they are reported as not found.
func ParseID(raw, notFoundMsg string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, errs.NotFound(notFoundMsg)
	}
	return id, nil
}

// storeErr maps a repository failure to a client-facing error.
func storeErr(err error, notFoundMsg string) error {
	if errors.Is(err, errs.ErrNotFound) {
		return errs.NotFound(notFoundMsg)
	}
	var e *errs.Error
	if errors.As(err, &e) {
		return err
	}
	return errs.Upstream(msgStoreFailure, err)
}

func publish(ctx context.Context, pub events.Publisher, log *zap.Logger, typ string, actor, subject primitive.ObjectID) {
	if err := pub.Publish(ctx, events.New(typ, actor.Hex(), subject.Hex())); err != nil {
		log.Warn("event publish failed", zap.String("type", typ), zap.Error(err))
	}
}
