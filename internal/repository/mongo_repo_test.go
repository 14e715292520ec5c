package repository

import (
	"context"
	"testing"

	"github.com/fathima-sithara/snapshare/internal/errs"
	"github.com/fathima-sithara/snapshare/internal/models"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func newTestUser() *models.User {
	return &models.User{Username: "alice", Email: "a@x.io", Password: "hash"}
}

func TestMongoUserRepo(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("find by email decodes and normalizes", func(mt *mtest.T) {
		repo := NewMongoUserRepo(mt.DB, "users")
		id := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "db.users", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: id},
			{Key: "username", Value: "alice"},
			{Key: "email", Value: "a@x.io"},
			{Key: "password", Value: "hash"},
		}))

		u, err := repo.FindByEmail(context.Background(), "a@x.io")
		require.NoError(mt, err)
		require.Equal(mt, id, u.ID)
		require.Equal(mt, "hash", u.Password)
		require.NotNil(mt, u.Followers)
		require.NotNil(mt, u.SavedPosts)
	})

	mt.Run("missing document maps to not found", func(mt *mtest.T) {
		repo := NewMongoUserRepo(mt.DB, "users")
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "db.users", mtest.FirstBatch))

		_, err := repo.FindByID(context.Background(), primitive.NewObjectID())
		require.ErrorIs(mt, err, errs.ErrNotFound)
	})

	mt.Run("duplicate email maps to duplicate", func(mt *mtest.T) {
		repo := NewMongoUserRepo(mt.DB, "users")
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index: 0, Code: 11000, Message: "E11000 duplicate key error",
		}))

		err := repo.Create(context.Background(), newTestUser())
		require.ErrorIs(mt, err, errs.ErrDuplicate)
	})

	mt.Run("edge on missing account is not found", func(mt *mtest.T) {
		repo := NewMongoUserRepo(mt.DB, "users")
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 0},
			bson.E{Key: "nModified", Value: 0},
		))

		err := repo.AddEdge(context.Background(), primitive.NewObjectID(), EdgeFollowers, primitive.NewObjectID())
		require.ErrorIs(mt, err, errs.ErrNotFound)
	})

	mt.Run("edge update matched", func(mt *mtest.T) {
		repo := NewMongoUserRepo(mt.DB, "users")
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 1},
		))

		err := repo.RemoveEdge(context.Background(), primitive.NewObjectID(), EdgeSavedPosts, primitive.NewObjectID())
		require.NoError(mt, err)
	})

	mt.Run("update profile returns the new document", func(mt *mtest.T) {
		repo := NewMongoUserRepo(mt.DB, "users")
		id := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: bson.D{
			{Key: "_id", Value: id},
			{Key: "username", Value: "alice"},
			{Key: "bio", Value: "new bio"},
		}}))

		bio := "new bio"
		u, err := repo.UpdateProfile(context.Background(), id, ProfileUpdate{Bio: &bio})
		require.NoError(mt, err)
		require.Equal(mt, "new bio", u.Bio)
	})
}

func TestMongoPostRepo(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("list by owner", func(mt *mtest.T) {
		repo := NewMongoPostRepo(mt.DB, "posts")
		owner := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "db.posts", mtest.FirstBatch,
			bson.D{{Key: "_id", Value: primitive.NewObjectID()}, {Key: "user", Value: owner}, {Key: "caption", Value: "b"}},
			bson.D{{Key: "_id", Value: primitive.NewObjectID()}, {Key: "user", Value: owner}, {Key: "caption", Value: "a"}},
		))

		posts, err := repo.ListByOwner(context.Background(), owner)
		require.NoError(mt, err)
		require.Len(mt, posts, 2)
		require.Equal(mt, "b", posts[0].Caption)
		require.NotNil(mt, posts[0].Likes)
	})

	mt.Run("delete missing post", func(mt *mtest.T) {
		repo := NewMongoPostRepo(mt.DB, "posts")
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}))

		err := repo.Delete(context.Background(), primitive.NewObjectID())
		require.ErrorIs(mt, err, errs.ErrNotFound)
	})

	mt.Run("like", func(mt *mtest.T) {
		repo := NewMongoPostRepo(mt.DB, "posts")
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 1},
		))

		require.NoError(mt, repo.AddLike(context.Background(), primitive.NewObjectID(), primitive.NewObjectID()))
	})
}

func TestMongoCommentRepo(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("delete by post", func(mt *mtest.T) {
		repo := NewMongoCommentRepo(mt.DB, "comments")
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 3}))

		n, err := repo.DeleteByPost(context.Background(), primitive.NewObjectID())
		require.NoError(mt, err)
		require.Equal(mt, int64(3), n)
	})

	mt.Run("no ids skips the query", func(mt *mtest.T) {
		repo := NewMongoCommentRepo(mt.DB, "comments")
		out, err := repo.FindManyByIDs(context.Background(), nil)
		require.NoError(mt, err)
		require.Empty(mt, out)
	})
}
