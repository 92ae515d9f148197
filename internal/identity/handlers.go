package identity

import (
	"context"
	"fmt"

	"backend-socialgraph/internal/apperr"
	"backend-socialgraph/internal/httpctx"

	"github.com/gofiber/fiber/v2"
)

// EdgeLister supplies the follower/following id lists shown on a profile.
type EdgeLister interface {
	ListFollowers(ctx context.Context, userID, start, stop int64) ([]int64, error)
	ListFollowing(ctx context.Context, userID, start, stop int64) ([]int64, error)
}

type TokenIssuer interface {
	IssueToken(userID int64) (string, error)
}

// wholeRange asks an EdgeLister for every edge.
const wholeRange = -1

func RegisterRoutes(r fiber.Router, svc *Service, edges EdgeLister, tokens TokenIssuer) {
	r.Post("/", func(c *fiber.Ctx) error {
		var req NewUser
		if err := c.BodyParser(&req); err != nil {
			return fmt.Errorf("%w: invalid payload", apperr.ErrValidation)
		}
		id, err := svc.CreateUser(c.UserContext(), req.Username, req.Password)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "user_id": id})
	})

	r.Post("/authenticate", func(c *fiber.Ctx) error {
		var req AuthenticateRequest
		if err := c.BodyParser(&req); err != nil {
			return fmt.Errorf("%w: invalid payload", apperr.ErrValidation)
		}
		if req.UserID == 0 && req.Username != "" {
			user, err := svc.GetByUsername(c.UserContext(), req.Username)
			if err != nil {
				return err
			}
			req.UserID = user.ID
		}
		if req.UserID <= 0 {
			return fmt.Errorf("%w: user_id or username required", apperr.ErrValidation)
		}

		ok, err := svc.VerifyCredential(c.UserContext(), req.UserID, req.Password)
		if err != nil {
			return err
		}
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false})
		}
		token, err := tokens.IssueToken(req.UserID)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"success": true, "token": token})
	})

	r.Get("/by-username", func(c *fiber.Ctx) error {
		username := c.Query("username")
		if username == "" {
			return fmt.Errorf("%w: username required", apperr.ErrValidation)
		}
		user, err := svc.GetByUsername(c.UserContext(), username)
		if err != nil {
			return err
		}
		return profile(c, user, edges)
	})

	r.Get("/:id", func(c *fiber.Ctx) error {
		id, err := httpctx.ParamID(c, "id")
		if err != nil {
			return err
		}
		user, err := svc.GetByID(c.UserContext(), id)
		if err != nil {
			return err
		}
		return profile(c, user, edges)
	})
}

func profile(c *fiber.Ctx, user User, edges EdgeLister) error {
	followers, err := edges.ListFollowers(c.UserContext(), user.ID, 0, wholeRange)
	if err != nil {
		return err
	}
	following, err := edges.ListFollowing(c.UserContext(), user.ID, 0, wholeRange)
	if err != nil {
		return err
	}
	return c.JSON(Profile{User: user, Followers: followers, Following: following})
}
