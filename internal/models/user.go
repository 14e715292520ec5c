package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is an account document. Secrets and one-time codes never leave the
// server: they are excluded from JSON.
type User struct {
	ID               primitive.ObjectID   `bson:"_id,omitempty" json:"_id"`
	Username         string               `bson:"username" json:"username"`
	Email            string               `bson:"email" json:"email"`
	Password         string               `bson:"password" json:"-"`
	Bio              string               `bson:"bio" json:"bio"`
	ProfilePicture   string               `bson:"profilePicture,omitempty" json:"profilePicture,omitempty"`
	ProfilePictureID string               `bson:"profilePictureId,omitempty" json:"-"`
	Followers        []primitive.ObjectID `bson:"followers" json:"followers"`
	Following        []primitive.ObjectID `bson:"following" json:"following"`
	Posts            []primitive.ObjectID `bson:"posts" json:"posts"`
	SavedPosts       []primitive.ObjectID `bson:"savedPosts" json:"savedPosts"`

	IsVerified              bool       `bson:"isVerified" json:"isVerified"`
	OTP                     string     `bson:"otp,omitempty" json:"-"`
	OTPExpires              *time.Time `bson:"otpExpires,omitempty" json:"-"`
	ResetPasswordOTP        string     `bson:"resetPasswordOTP,omitempty" json:"-"`
	ResetPasswordOTPExpires *time.Time `bson:"resetPasswordOTPExpires,omitempty" json:"-"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// Normalize replaces nil edge lists with empty ones. A nil slice is stored
// as null, which $addToSet and $push refuse to operate on.
func (u *User) Normalize() {
	if u.Followers == nil {
		u.Followers = []primitive.ObjectID{}
	}
	if u.Following == nil {
		u.Following = []primitive.ObjectID{}
	}
	if u.Posts == nil {
		u.Posts = []primitive.ObjectID{}
	}
	if u.SavedPosts == nil {
		u.SavedPosts = []primitive.ObjectID{}
	}
}

func (u *User) IsFollowedBy(id primitive.ObjectID) bool {
	return ContainsID(u.Followers, id)
}

func (u *User) HasSaved(postID primitive.ObjectID) bool {
	return ContainsID(u.SavedPosts, postID)
}

func ContainsID(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
