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

type MongoUserRepo struct {
	col *mongo.Collection
}

func NewMongoUserRepo(db *mongo.Database, collection string) *MongoUserRepo {
	return &MongoUserRepo{col: db.Collection(collection)}
}

func (r *MongoUserRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	return err
}

func (r *MongoUserRepo) Create(ctx context.Context, u *models.User) error {
	now := time.Now().UTC()
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	u.CreatedAt = now
	u.UpdatedAt = now
	u.Normalize()
	if _, err := r.col.InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errs.ErrDuplicate
		}
		return err
	}
	return nil
}

func (r *MongoUserRepo) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var u models.User
	err := r.col.FindOne(ctx, filter).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u.Normalize()
	return &u, nil
}

func (r *MongoUserRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *MongoUserRepo) find(ctx context.Context, filter bson.M) ([]*models.User, error) {
	cur, err := r.col.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := []*models.User{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	for _, u := range out {
		u.Normalize()
	}
	return out, nil
}

func (r *MongoUserRepo) FindManyByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*models.User, error) {
	if len(ids) == 0 {
		return []*models.User{}, nil
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

func (r *MongoUserRepo) ListExcept(ctx context.Context, id primitive.ObjectID) ([]*models.User, error) {
	return r.find(ctx, bson.M{"_id": bson.M{"$ne": id}})
}

func (r *MongoUserRepo) UpdateProfile(ctx context.Context, id primitive.ObjectID, upd ProfileUpdate) (*models.User, error) {
	set := bson.M{"updatedAt": time.Now().UTC()}
	if upd.Bio != nil {
		set["bio"] = *upd.Bio
	}
	if upd.ProfilePicture != nil {
		set["profilePicture"] = *upd.ProfilePicture
	}
	if upd.ProfilePictureID != nil {
		set["profilePictureId"] = *upd.ProfilePictureID
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var u models.User
	err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u.Normalize()
	return &u, nil
}

func (r *MongoUserRepo) update(ctx context.Context, id primitive.ObjectID, update bson.M) error {
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (r *MongoUserRepo) AddEdge(ctx context.Context, id primitive.ObjectID, edge Edge, target primitive.ObjectID) error {
	op := "$addToSet"
	if edge == EdgePosts {
		op = "$push"
	}
	return r.update(ctx, id, bson.M{op: bson.M{string(edge): target}})
}

func (r *MongoUserRepo) RemoveEdge(ctx context.Context, id primitive.ObjectID, edge Edge, target primitive.ObjectID) error {
	return r.update(ctx, id, bson.M{"$pull": bson.M{string(edge): target}})
}

func (r *MongoUserRepo) RemoveEdgeEverywhere(ctx context.Context, edge Edge, target primitive.ObjectID) (int64, error) {
	res, err := r.col.UpdateMany(ctx,
		bson.M{string(edge): target},
		bson.M{"$pull": bson.M{string(edge): target}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (r *MongoUserRepo) SetPassword(ctx context.Context, id primitive.ObjectID, hash string) error {
	return r.update(ctx, id, bson.M{
		"$set":   bson.M{"password": hash, "updatedAt": time.Now().UTC()},
		"$unset": bson.M{"resetPasswordOTP": "", "resetPasswordOTPExpires": ""},
	})
}

func (r *MongoUserRepo) SetVerificationOTP(ctx context.Context, id primitive.ObjectID, otp string, expires time.Time) error {
	return r.update(ctx, id, bson.M{"$set": bson.M{"otp": otp, "otpExpires": expires}})
}

func (r *MongoUserRepo) MarkVerified(ctx context.Context, id primitive.ObjectID) error {
	return r.update(ctx, id, bson.M{
		"$set":   bson.M{"isVerified": true},
		"$unset": bson.M{"otp": "", "otpExpires": ""},
	})
}

func (r *MongoUserRepo) SetResetOTP(ctx context.Context, id primitive.ObjectID, otp string, expires time.Time) error {
	return r.update(ctx, id, bson.M{"$set": bson.M{"resetPasswordOTP": otp, "resetPasswordOTPExpires": expires}})
}
