package handlers

import (
	"github.com/fathima-sithara/snapshare/internal/middleware"
	"github.com/fathima-sithara/snapshare/internal/services"
	"github.com/gofiber/fiber/v2"
)

type PostHandler struct {
	svc *services.PostService
}

func NewPostHandler(svc *services.PostService) *PostHandler {
	return &PostHandler{svc: svc}
}

func (h *PostHandler) CreatePost(c *fiber.Ctx) error {
	img, err := formFile(c, "image")
	if err != nil {
		return err
	}
	caption, _ := formField(c, "caption")

	post, err := h.svc.CreatePost(c.UserContext(), middleware.CurrentUser(c).ID, caption, img)
	if err != nil {
		return err
	}
	return JSONSuccess(c, fiber.StatusCreated, fiber.Map{
		"message": "Post created successfully",
		"data":    fiber.Map{"post": post},
	})
}

func (h *PostHandler) GetAllPosts(c *fiber.Ctx) error {
	posts, err := h.svc.ListAll(c.UserContext())
	if err != nil {
		return err
	}
	return JSONSuccess(c, fiber.StatusOK, fiber.Map{
		"results": len(posts),
		"data":    fiber.Map{"posts": posts},
	})
}

func (h *PostHandler) GetUserPosts(c *fiber.Ctx) error {
	posts, err := h.svc.ListByOwner(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return JSONSuccess(c, fiber.StatusOK, fiber.Map{
		"results": len(posts),
		"data":    fiber.Map{"posts": posts},
	})
}

func (h *PostHandler) SaveOrUnsave(c *fiber.Ctx) error {
	res, err := h.svc.ToggleSave(c.UserContext(), middleware.CurrentUser(c).ID, c.Params("id"))
	if err != nil {
		return err
	}
	return JSONSuccess(c, fiber.StatusOK, fiber.Map{
		"message": res.Message(),
		"data":    fiber.Map{"user": res.User},
	})
}

func (h *PostHandler) DeletePost(c *fiber.Ctx) error {
	if err := h.svc.DeletePost(c.UserContext(), middleware.CurrentUser(c).ID, c.Params("id")); err != nil {
		return err
	}
	return JSONSuccess(c, fiber.StatusOK, fiber.Map{"message": "Post deleted successfully"})
}

func (h *PostHandler) LikeOrDislike(c *fiber.Ctx) error {
	liked, err := h.svc.ToggleLike(c.UserContext(), middleware.CurrentUser(c).ID, c.Params("id"))
	if err != nil {
		return err
	}
	return JSONSuccess(c, fiber.StatusOK, fiber.Map{"message": services.LikeMessage(liked)})
}

type commentReq struct {
	Text string `json:"text" form:"text"`
}

func (h *PostHandler) AddComment(c *fiber.Ctx) error {
	var req commentReq
	if err := parseBody(c, &req); err != nil {
		return err
	}
	comment, err := h.svc.AddComment(c.UserContext(), middleware.CurrentUser(c).ID, c.Params("postId"), req.Text)
	if err != nil {
		return err
	}
	return JSONSuccess(c, fiber.StatusCreated, fiber.Map{
		"message": "Comment added successfully",
		"data":    fiber.Map{"comment": comment},
	})
}
