package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	MaxCaptionLength = 2200
	MaxBioLength     = 150
)

// Image is a relayed asset: the public URL plus the object-store id used to
// release it later.
type Image struct {
	URL      string `bson:"url" json:"url"`
	PublicID string `bson:"publicId" json:"publicId"`
}

type Post struct {
	ID        primitive.ObjectID   `bson:"_id,omitempty" json:"_id"`
	Caption   string               `bson:"caption" json:"caption"`
	Image     Image                `bson:"image" json:"image"`
	User      primitive.ObjectID   `bson:"user" json:"user"`
	Likes     []primitive.ObjectID `bson:"likes" json:"likes"`
	Comments  []primitive.ObjectID `bson:"comments" json:"comments"`
	CreatedAt time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time            `bson:"updatedAt" json:"updatedAt"`
}

func (p *Post) Normalize() {
	if p.Likes == nil {
		p.Likes = []primitive.ObjectID{}
	}
	if p.Comments == nil {
		p.Comments = []primitive.ObjectID{}
	}
}

func (p *Post) LikedBy(id primitive.ObjectID) bool {
	return ContainsID(p.Likes, id)
}

type Comment struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Text      string             `bson:"text" json:"text"`
	User      primitive.ObjectID `bson:"user" json:"user"`
	Post      primitive.ObjectID `bson:"post" json:"post"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}
