package httpctx

import (
	"fmt"
	"strconv"

	"backend-socialgraph/internal/apperr"

	"github.com/gofiber/fiber/v2"
)

const (
	DefaultStart = 0
	DefaultStop  = 10
)

// ParamID parses a positive integer path parameter.
func ParamID(c *fiber.Ctx, name string) (int64, error) {
	return parseID(name, c.Params(name))
}

func parseID(name, raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", apperr.ErrValidation, name)
	}
	return id, nil
}

// Range reads the inclusive start/stop pagination window, defaulting to 0/10.
func Range(c *fiber.Ctx) (int64, int64, error) {
	start, err := queryInt(c, "start", DefaultStart)
	if err != nil {
		return 0, 0, err
	}
	stop, err := queryInt(c, "stop", DefaultStop)
	if err != nil {
		return 0, 0, err
	}
	if start < 0 || stop < 0 {
		return 0, 0, fmt.Errorf("%w: start and stop must not be negative", apperr.ErrValidation)
	}
	return start, stop, nil
}

func queryInt(c *fiber.Ctx, name string, def int64) (int64, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", apperr.ErrValidation, name)
	}
	return n, nil
}
