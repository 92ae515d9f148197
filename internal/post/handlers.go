package post

import (
	"fmt"

	"backend-socialgraph/internal/apperr"
	"backend-socialgraph/internal/httpctx"

	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes mounts /post/ and /users/:id/posts on r.
func RegisterRoutes(r fiber.Router, svc *Service, feed *Feed) {
	r.Post("/post/", func(c *fiber.Ctx) error {
		var req NewPost
		if err := c.BodyParser(&req); err != nil {
			return fmt.Errorf("%w: invalid payload", apperr.ErrValidation)
		}
		if req.AuthorID == 0 || req.Content == "" {
			return fmt.Errorf("%w: author_id and content required", apperr.ErrValidation)
		}
		p, err := svc.CreatePost(c.UserContext(), req.AuthorID, req.Content)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "post_id": p.ID})
	})

	r.Get("/post/:id", func(c *fiber.Ctx) error {
		id, err := httpctx.ParamID(c, "id")
		if err != nil {
			return err
		}
		p, err := svc.GetPost(c.UserContext(), id)
		if err != nil {
			return err
		}
		return c.JSON(p)
	})

	r.Get("/users/:id/posts", func(c *fiber.Ctx) error {
		userID, err := httpctx.ParamID(c, "id")
		if err != nil {
			return err
		}
		start, stop, err := httpctx.Range(c)
		if err != nil {
			return err
		}
		posts, err := feed.ListPosts(c.UserContext(), userID, start, stop)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"user_id": userID,
			"start":   start,
			"stop":    stop,
			"count":   len(posts),
			"posts":   posts,
		})
	})
}
