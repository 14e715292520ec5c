package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// UserSummary is the projection of an account embedded in posts and
// comments. Email is only filled where the caller asks for it.
type UserSummary struct {
	ID             primitive.ObjectID `json:"_id"`
	Username       string             `json:"username"`
	Email          string             `json:"email,omitempty"`
	Bio            string             `json:"bio,omitempty"`
	ProfilePicture string             `json:"profilePicture,omitempty"`
}

// CommentView is a comment with its author resolved. The embedded user id
// is shadowed by the summary.
type CommentView struct {
	*Comment
	User *UserSummary `json:"user"`
}

// PostView is a post with owner and comments resolved. Either may stay nil
// when the referenced document is gone; Comments is never nil.
type PostView struct {
	*Post
	User     *UserSummary  `json:"user"`
	Comments []CommentView `json:"comments"`
}

// Profile is an account with its own and saved posts resolved.
type Profile struct {
	*User
	Posts      []*Post `json:"posts"`
	SavedPosts []*Post `json:"savedPosts"`
}
