// Package middleware contains HTTP middleware functions for the Golf Scorekeeper API.
// Middleware sits between the HTTP server and route handlers. It runs on every
// request that passes through it, making it the right place for cross-cutting
// concerns like authentication, role checks and path normalisation.
package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/trentd187/golf-scorekeeper/internal/auth"
	"github.com/trentd187/golf-scorekeeper/internal/models"
)

// Keys used for values stored in c.Locals by Auth.
const (
	LocalUser     = "user"     // *models.User
	LocalUserID   = "userID"   // uuid.UUID (users.user_id)
	LocalUserRole = "userRole" // string

	LocalAuthUserID = "authUserID" // uuid.UUID (auth_accounts.id)
)

// Auth returns a Fiber middleware handler that:
//  1. Reads the bearer token from the "Authorization: Bearer <token>" header
//     (websocket upgrades may pass it as ?token= instead, browsers can't set headers there)
//  2. Verifies the token with the auth service
//  3. Finds the matching users row (or creates one the first time an account shows up)
//  4. Stores the user, its ID and role in c.Locals for downstream handlers
func Auth(svc *auth.Service, db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenStr, ok := bearerToken(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing or invalid authorization header",
			})
		}

		identity, err := svc.ResolveToken(tokenStr)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": auth.ErrInvalidToken.Error(),
			})
		}

		user, err := FindOrCreateUser(db.WithContext(c.UserContext()), identity.AuthUserID, identity.Email)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Valid signature, but the account has been deleted since the token was issued.
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": auth.ErrInvalidToken.Error(),
			})
		}
		if err != nil {
			log.WithError(err).WithField("auth_user_id", identity.AuthUserID).Error("Failed to resolve user profile")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to load user profile",
			})
		}

		c.Locals(LocalUser, user)
		c.Locals(LocalUserID, user.UserID)
		c.Locals(LocalUserRole, string(user.UserRole))
		c.Locals(LocalAuthUserID, user.AuthUserID)

		return c.Next()
	}
}

// FindOrCreateUser returns the profile linked to authUserID, creating a default
// one (role "user") if none exists yet. This self-heals accounts that were
// created without a profile, e.g. by an operator or an interrupted sign-up.
func FindOrCreateUser(db *gorm.DB, authUserID uuid.UUID, email string) (*models.User, error) {
	var user models.User
	err := db.Where("auth_user_id = ?", authUserID).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	account := models.AuthAccount{}
	if err := db.First(&account, "id = ?", authUserID).Error; err != nil {
		// A valid token for a deleted account: there's nobody to create a profile for.
		return nil, err
	}

	user = models.User{
		AuthUserID: account.ID,
		Name:       defaultName(email),
		Email:      account.Email,
		UserRole:   models.UserRoleUser,
	}
	if err := db.Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// CurrentUser returns the user stored by Auth. It panics if Auth didn't run,
// which is a routing bug, not a request error.
func CurrentUser(c *fiber.Ctx) *models.User {
	return c.Locals(LocalUser).(*models.User)
}

// bearerToken extracts the raw token from the request.
func bearerToken(c *fiber.Ctx) (string, bool) {
	header := c.Get(fiber.HeaderAuthorization)
	if strings.HasPrefix(header, "Bearer ") {
		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		return token, token != ""
	}
	if header == "" && strings.EqualFold(c.Get(fiber.HeaderUpgrade), "websocket") {
		token := c.Query("token")
		return token, token != ""
	}
	return "", false
}

// defaultName derives a display name from the local part of an email.
func defaultName(email string) string {
	if at := strings.IndexByte(email, '@'); at > 0 {
		return email[:at]
	}
	return email
}
