package graph

import (
	"context"
	"fmt"

	"backend-socialgraph/internal/apperr"
	"backend-socialgraph/internal/httpctx"

	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes mounts /user/follow, /user/unfollow and the /users/:id
// edge listings on r.
func RegisterRoutes(r fiber.Router, svc *Service) {
	r.Post("/user/follow", edgeHandler(svc.Follow))
	r.Post("/user/unfollow", edgeHandler(svc.Unfollow))

	r.Get("/users/:id/followers", func(c *fiber.Ctx) error {
		return listHandler(c, svc.ListFollowers, "followers")
	})
	r.Get("/users/:id/following", func(c *fiber.Ctx) error {
		return listHandler(c, svc.ListFollowing, "following")
	})
}

func edgeHandler(op func(ctx context.Context, followerID, followedID int64) error) fiber.Handler {
	return func(c *fiber.Ctx) error {
		req, err := parseFollowRequest(c)
		if err != nil {
			return err
		}
		if err := op(c.UserContext(), req.FollowerID, req.FollowedID); err != nil {
			return err
		}
		return c.JSON(fiber.Map{"success": true})
	}
}

// parseFollowRequest accepts a JSON body or, as legacy clients send
// it, follower_id/followed_id query parameters.
func parseFollowRequest(c *fiber.Ctx) (FollowRequest, error) {
	var req FollowRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return FollowRequest{}, fmt.Errorf("%w: invalid payload", apperr.ErrValidation)
		}
	}
	if req.FollowerID == 0 && req.FollowedID == 0 {
		if err := c.QueryParser(&req); err != nil {
			return FollowRequest{}, fmt.Errorf("%w: invalid query", apperr.ErrValidation)
		}
	}
	if req.FollowerID == 0 || req.FollowedID == 0 {
		return FollowRequest{}, fmt.Errorf("%w: follower_id and followed_id required", apperr.ErrValidation)
	}
	return req, nil
}

type lister func(ctx context.Context, userID, start, stop int64) ([]int64, error)

func listHandler(c *fiber.Ctx, list lister, field string) error {
	userID, err := httpctx.ParamID(c, "id")
	if err != nil {
		return err
	}
	start, stop, err := httpctx.Range(c)
	if err != nil {
		return err
	}
	ids, err := list(c.UserContext(), userID, start, stop)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"user_id": userID,
		"start":   start,
		"stop":    stop,
		"count":   len(ids),
		field:     ids,
	})
}
