package repository

import (
	"context"
	"time"

	"github.com/fathima-sithara/snapshare/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoCommentRepo struct {
	col *mongo.Collection
}

func NewMongoCommentRepo(db *mongo.Database, collection string) *MongoCommentRepo {
	return &MongoCommentRepo{col: db.Collection(collection)}
}

func (r *MongoCommentRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{{Key: "post", Value: 1}}})
	return err
}

func (r *MongoCommentRepo) Create(ctx context.Context, c *models.Comment) error {
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	c.CreatedAt = time.Now().UTC()
	_, err := r.col.InsertOne(ctx, c)
	return err
}

// FindManyByIDs returns comments oldest first, the order they were added.
func (r *MongoCommentRepo) FindManyByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*models.Comment, error) {
	out := []*models.Comment{}
	if len(ids) == 0 {
		return out, nil
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cur, err := r.col.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, opts)
	if err != nil {
		return nil, err
	}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *MongoCommentRepo) DeleteByPost(ctx context.Context, postID primitive.ObjectID) (int64, error) {
	res, err := r.col.DeleteMany(ctx, bson.M{"post": postID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
