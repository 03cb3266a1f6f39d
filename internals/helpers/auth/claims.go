// file: internals/helpers/auth/claims.go
package helper

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"hostelku_backend/internals/constants"
)

// GetUserUUID reads the authenticated user id placed in Locals by the
// auth middleware. Returns uuid.Nil when the request is unauthenticated.
func GetUserUUID(c *fiber.Ctx) uuid.UUID {
	if raw := c.Locals("user_id"); raw != nil {
		switch v := raw.(type) {
		case uuid.UUID:
			return v
		case string:
			if parsed, err := uuid.Parse(v); err == nil {
				return parsed
			}
		}
	}
	return uuid.Nil
}

func GetUserRole(c *fiber.Ctx) string {
	if raw := c.Locals("user_role"); raw != nil {
		if s, ok := raw.(string); ok {
			return strings.ToLower(strings.TrimSpace(s))
		}
	}
	return ""
}

func IsAdmin(c *fiber.Ctx) bool {
	role := GetUserRole(c)
	for _, r := range constants.AdminRoles {
		if role == r {
			return true
		}
	}
	return false
}

func ParseUUIDParam(c *fiber.Ctx, name string) (uuid.UUID, error) {
	return uuid.Parse(strings.TrimSpace(c.Params(name)))
}
