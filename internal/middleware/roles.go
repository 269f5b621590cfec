package middleware

// roles.go: Role-based access control middleware.
// The app has two roles, admin and user. Ownership rules ("only the player
// who recorded a score may edit it") live in the handlers instead, because
// they need the row.

import (
	"github.com/gofiber/fiber/v2"

	"github.com/trentd187/golf-scorekeeper/internal/models"
)

// RequireRole returns a middleware handler that allows only users whose role
// matches one of roles, answering 403 with msg otherwise.
//
//	api.Post("/courses", auth, middleware.RequireRole("Admin access required", models.UserRoleAdmin), ...)
//
// RequireRole must be used AFTER the Auth middleware, because Auth is what
// populates the "userRole" value in the request context via c.Locals.
func RequireRole(msg string, roles ...models.UserRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userRole, _ := c.Locals(LocalUserRole).(string)
		for _, role := range roles {
			if userRole == string(role) {
				return c.Next()
			}
		}

		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": msg,
		})
	}
}

// RequireAdmin is RequireRole for the admin-only routes, with the error text
// the web client shows.
func RequireAdmin() fiber.Handler {
	return RequireRole("Admin access required", models.UserRoleAdmin)
}
