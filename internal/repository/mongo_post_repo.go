package repository

import (
	"context"
	"errors"
	"time"

	"github.com/fathima-sithara/snapshare/internal/errs"
	"github.com/fathima-sithara/snapshare/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var newestFirst = options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

type MongoPostRepo struct {
	col *mongo.Collection
}

func NewMongoPostRepo(db *mongo.Database, collection string) *MongoPostRepo {
	return &MongoPostRepo{col: db.Collection(collection)}
}

func (r *MongoPostRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
	})
	return err
}

func (r *MongoPostRepo) Create(ctx context.Context, p *models.Post) error {
	now := time.Now().UTC()
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	p.CreatedAt = now
	p.UpdatedAt = now
	p.Normalize()
	_, err := r.col.InsertOne(ctx, p)
	return err
}

func (r *MongoPostRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Post, error) {
	var p models.Post
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.Normalize()
	return &p, nil
}

func (r *MongoPostRepo) find(ctx context.Context, filter bson.M) ([]*models.Post, error) {
	cur, err := r.col.Find(ctx, filter, newestFirst)
	if err != nil {
		return nil, err
	}
	out := []*models.Post{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	for _, p := range out {
		p.Normalize()
	}
	return out, nil
}

func (r *MongoPostRepo) FindManyByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*models.Post, error) {
	if len(ids) == 0 {
		return []*models.Post{}, nil
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

func (r *MongoPostRepo) ListAll(ctx context.Context) ([]*models.Post, error) {
	return r.find(ctx, bson.M{})
}

func (r *MongoPostRepo) ListByOwner(ctx context.Context, owner primitive.ObjectID) ([]*models.Post, error) {
	return r.find(ctx, bson.M{"user": owner})
}

func (r *MongoPostRepo) update(ctx context.Context, id primitive.ObjectID, update bson.M) error {
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (r *MongoPostRepo) AddLike(ctx context.Context, postID, userID primitive.ObjectID) error {
	return r.update(ctx, postID, bson.M{"$addToSet": bson.M{"likes": userID}})
}

func (r *MongoPostRepo) RemoveLike(ctx context.Context, postID, userID primitive.ObjectID) error {
	return r.update(ctx, postID, bson.M{"$pull": bson.M{"likes": userID}})
}

func (r *MongoPostRepo) AppendComment(ctx context.Context, postID, commentID primitive.ObjectID) error {
	return r.update(ctx, postID, bson.M{
		"$push": bson.M{"comments": commentID},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	})
}

func (r *MongoPostRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return errs.ErrNotFound
	}
	return nil
}
