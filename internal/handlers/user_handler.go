package handlers

import (
	"strings"

	"github.com/fathima-sithara/snapshare/internal/middleware"
	"github.com/fathima-sithara/snapshare/internal/services"
	"github.com/gofiber/fiber/v2"
)

type UserHandler struct {
	svc *services.UserService
}

func NewUserHandler(svc *services.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

func (h *UserHandler) GetProfile(c *fiber.Ctx) error {
	profile, err := h.svc.GetProfile(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return JSONSuccess(c, fiber.StatusOK, fiber.Map{"data": fiber.Map{"user": profile}})
}

type editProfileReq struct {
	Bio *string `json:"bio"`
}

// EditProfile accepts multipart (bio, profilePicture) or a JSON body with
// just the bio.
func (h *UserHandler) EditProfile(c *fiber.Ctx) error {
	var in services.EditProfileInput
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		var req editProfileReq
		if err := parseBody(c, &req); err != nil {
			return err
		}
		in.Bio = req.Bio
	} else {
		if bio, ok := formField(c, "bio"); ok {
			in.Bio = &bio
		}
		pic, err := formFile(c, "profilePicture")
		if err != nil {
			return err
		}
		in.Picture = pic
	}

	user, err := h.svc.EditProfile(c.UserContext(), middleware.CurrentUser(c), in)
	if err != nil {
		return err
	}
	return JSONSuccess(c, fiber.StatusOK, fiber.Map{
		"message": "Profile updated successfully",
		"data":    fiber.Map{"user": user},
	})
}

func (h *UserHandler) Suggested(c *fiber.Ctx) error {
	users, err := h.svc.Suggested(c.UserContext(), middleware.CurrentUser(c).ID)
	if err != nil {
		return err
	}
	return JSONSuccess(c, fiber.StatusOK, fiber.Map{"data": fiber.Map{"users": users}})
}

func (h *UserHandler) FollowUnfollow(c *fiber.Ctx) error {
	res, err := h.svc.ToggleFollow(c.UserContext(), middleware.CurrentUser(c).ID, c.Params("id"))
	if err != nil {
		return err
	}
	return JSONSuccess(c, fiber.StatusOK, fiber.Map{
		"message": res.Message(),
		"data":    fiber.Map{"user": res.User},
	})
}

func (h *UserHandler) CheckFollow(c *fiber.Ctx) error {
	following, err := h.svc.IsFollowing(c.UserContext(), middleware.CurrentUser(c).ID, c.Params("id"))
	if err != nil {
		return err
	}
	return JSONSuccess(c, fiber.StatusOK, fiber.Map{"data": fiber.Map{"isFollowing": following}})
}

func (h *UserHandler) SavedPosts(c *fiber.Ctx) error {
	posts, err := h.svc.SavedPosts(c.UserContext(), middleware.CurrentUser(c).ID)
	if err != nil {
		return err
	}
	return JSONSuccess(c, fiber.StatusOK, fiber.Map{
		"results": len(posts),
		"data":    fiber.Map{"savedPosts": posts},
	})
}

func (h *UserHandler) Me(c *fiber.Ctx) error {
	return JSONSuccess(c, fiber.StatusOK, fiber.Map{
		"message": "Authenticated User",
		"data":    fiber.Map{"user": middleware.CurrentUser(c)},
	})
}
