package routes

import (
	"github.com/fathima-sithara/snapshare/internal/handlers"
	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Users *handlers.UserHandler
	Posts *handlers.PostHandler
	Auth  *handlers.AuthHandler
}

// Setup registers the /api/v1 routes. authLimit guards the credential
// endpoints.
func Setup(app *fiber.App, h Handlers, requireAuth, authLimit fiber.Handler) {
	api := app.Group("/api/v1")

	users := api.Group("/users")
	users.Post("/signup", authLimit, h.Auth.Signup)
	users.Post("/login", authLimit, h.Auth.Login)
	users.Post("/forget-password", authLimit, h.Auth.ForgetPassword)
	users.Post("/reset-password", authLimit, h.Auth.ResetPassword)
	users.Get("/profile/:id", h.Users.GetProfile)

	users.Post("/logout", requireAuth, h.Auth.Logout)
	users.Post("/verify", requireAuth, authLimit, h.Auth.Verify)
	users.Post("/resend-otp", requireAuth, authLimit, h.Auth.ResendOTP)
	users.Post("/change-password", requireAuth, authLimit, h.Auth.ChangePassword)
	users.Get("/authenticated", requireAuth, h.Auth.Authenticated)
	users.Get("/me", requireAuth, h.Users.Me)
	users.Post("/edit-profile", requireAuth, h.Users.EditProfile)
	users.Get("/suggested-user", requireAuth, h.Users.Suggested)
	users.Post("/follow-unfollow/:id", requireAuth, h.Users.FollowUnfollow)
	users.Get("/check-follow/:id", requireAuth, h.Users.CheckFollow)
	users.Get("/saved-posts", requireAuth, h.Users.SavedPosts)

	posts := api.Group("/posts")
	posts.Get("/all", h.Posts.GetAllPosts)
	posts.Get("/user-post/:id", h.Posts.GetUserPosts)
	posts.Post("/create-post", requireAuth, h.Posts.CreatePost)
	posts.Post("/save-unsave-post/:id", requireAuth, h.Posts.SaveOrUnsave)
	posts.Delete("/delete-post/:id", requireAuth, h.Posts.DeletePost)
	posts.Post("/like-dislike/:id", requireAuth, h.Posts.LikeOrDislike)
	posts.Post("/comment/:postId", requireAuth, h.Posts.AddComment)
}
