package apiclient

import (
	"fmt"
	"time"
)

type Image struct {
	URL      string `json:"url"`
	PublicID string `json:"publicId"`
}

// User mirrors the account document as the API serves it. Edge lists hold
// ids.
type User struct {
	ID             string   `json:"_id"`
	Username       string   `json:"username"`
	Email          string   `json:"email,omitempty"`
	Bio            string   `json:"bio,omitempty"`
	ProfilePicture string   `json:"profilePicture,omitempty"`
	Followers      []string `json:"followers,omitempty"`
	Following      []string `json:"following,omitempty"`
	Posts          []string `json:"posts,omitempty"`
	SavedPosts     []string `json:"savedPosts,omitempty"`
	IsVerified     bool     `json:"isVerified,omitempty"`
}

func (u *User) clone() *User {
	c := *u
	c.Followers = append([]string(nil), u.Followers...)
	c.Following = append([]string(nil), u.Following...)
	c.Posts = append([]string(nil), u.Posts...)
	c.SavedPosts = append([]string(nil), u.SavedPosts...)
	return &c
}

type Comment struct {
	ID        string    `json:"_id"`
	Text      string    `json:"text"`
	User      *User     `json:"user"`
	Post      string    `json:"post"`
	CreatedAt time.Time `json:"createdAt"`
}

type Post struct {
	ID        string    `json:"_id"`
	Caption   string    `json:"caption"`
	Image     Image     `json:"image"`
	User      *User     `json:"user"`
	Likes     []string  `json:"likes"`
	Comments  []Comment `json:"comments"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (p *Post) clone() *Post {
	c := *p
	c.Likes = append([]string(nil), p.Likes...)
	c.Comments = append([]Comment(nil), p.Comments...)
	return &c
}

// LikedBy reports whether userID is among the post's likes.
func (p *Post) LikedBy(userID string) bool {
	for _, id := range p.Likes {
		if id == userID {
			return true
		}
	}
	return false
}

// Profile is an account with its own and saved posts resolved.
type Profile struct {
	User
	Posts      []Post `json:"posts"`
	SavedPosts []Post `json:"savedPosts"`
}

// APIError is a non-2xx reply decoded from the error envelope.
type APIError struct {
	StatusCode int
	Status     string `json:"status"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.StatusCode, e.Status, e.Message)
}

type envelope[T any] struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Token   string `json:"token"`
	Results int    `json:"results"`
	Data    T      `json:"data"`
}

type RegisterRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}
