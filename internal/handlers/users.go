package handlers

// users.go: admin management of player profiles (/api/users) and the
// caller's own profile (/api/profile).

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/trentd187/golf-scorekeeper/internal/auth"
	"github.com/trentd187/golf-scorekeeper/internal/models"
)

// Handicap bounds under the World Handicap System (plus handicaps are negative).
const (
	minHandicap = -10.0
	maxHandicap = 54.0
)

// UpdateUserRequest is the JSON body for PUT /api/users/:id.
// Every field is optional; only the ones present are changed.
type UpdateUserRequest struct {
	Name     *string          `json:"name"`
	Email    *string          `json:"email"`
	Handicap *float64         `json:"handicap"`
	UserRole *models.UserRole `json:"user_role"`
}

// UpdateProfileRequest is the JSON body for PUT /api/profile.
// Same as UpdateUserRequest minus the role: nobody can promote themselves.
type UpdateProfileRequest struct {
	Name     *string  `json:"name"`
	Email    *string  `json:"email"`
	Handicap *float64 `json:"handicap"`
}

func validateHandicap(h *float64) error {
	if h != nil && (*h < minHandicap || *h > maxHandicap) {
		return fiber.NewError(fiber.StatusBadRequest, "handicap must be between -10 and 54")
	}
	return nil
}

// applyProfileChanges merges the present fields into user.
func applyProfileChanges(user *models.User, name, email *string, handicap *float64) error {
	if name != nil {
		n := strings.TrimSpace(*name)
		if n == "" {
			return fiber.NewError(fiber.StatusBadRequest, "name cannot be empty")
		}
		user.Name = n
	}
	if email != nil {
		e := auth.NormalizeEmail(*email)
		if !strings.Contains(e, "@") {
			return fiber.NewError(fiber.StatusBadRequest, auth.ErrInvalidEmail.Error())
		}
		user.Email = e
	}
	if handicap != nil {
		if err := validateHandicap(handicap); err != nil {
			return err
		}
		user.Handicap = handicap
	}
	return nil
}

// saveProfile runs write in a transaction. When the email changed it also
// moves the user's sign-in account to the new address, so both stay in step.
func saveProfile(c *fiber.Ctx, db *gorm.DB, svc *auth.Service, user *models.User, oldEmail string, write func(tx *gorm.DB) error) error {
	err := dbFor(c, db).Transaction(func(tx *gorm.DB) error {
		if user.Email != oldEmail {
			if err := svc.WithTx(tx).ChangeEmail(c.UserContext(), user.AuthUserID, user.Email); err != nil {
				return err
			}
		}
		return write(tx)
	})
	switch {
	case errors.Is(err, auth.ErrEmailTaken), errors.Is(err, auth.ErrInvalidEmail):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case err != nil:
		return internalError(c, err, "Failed to update profile")
	}
	return nil
}

// GetUsers returns a handler for GET /api/users (admin only).
func GetUsers(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var users []models.User
		if err := dbFor(c, db).Order("name").Find(&users).Error; err != nil {
			return internalError(c, err, "Failed to fetch users")
		}
		return c.JSON(users)
	}
}

// GetUser returns a handler for GET /api/users/:id (admin only).
func GetUser(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}

		var user models.User
		err = dbFor(c, db).First(&user, "user_id = ?", id).Error
		if isNotFound(err) {
			return fiber.NewError(fiber.StatusNotFound, "User not found")
		}
		if err != nil {
			return internalError(c, err, "Failed to fetch user")
		}
		return c.JSON(user)
	}
}

// UpdateUser returns a handler for PUT /api/users/:id (admin only).
// Admins can change a user's role here; that is the only way to grant "admin"
// besides the promote CLI command.
func UpdateUser(db *gorm.DB, svc *auth.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}

		var req UpdateUserRequest
		if err := c.BodyParser(&req); err != nil {
			return invalidBody()
		}
		if req.UserRole != nil && !req.UserRole.Valid() {
			return fiber.NewError(fiber.StatusBadRequest, "user_role must be 'user' or 'admin'")
		}

		var user models.User
		err = dbFor(c, db).First(&user, "user_id = ?", id).Error
		if isNotFound(err) {
			return fiber.NewError(fiber.StatusNotFound, "User not found")
		}
		if err != nil {
			return internalError(c, err, "Failed to fetch user")
		}

		oldEmail := user.Email
		if err := applyProfileChanges(&user, req.Name, req.Email, req.Handicap); err != nil {
			return err
		}
		if req.UserRole != nil {
			user.UserRole = *req.UserRole
		}

		err = saveProfile(c, db, svc, &user, oldEmail, func(tx *gorm.DB) error {
			return tx.Save(&user).Error
		})
		if err != nil {
			return err
		}
		return c.JSON(user)
	}
}

// DeleteUser returns a handler for DELETE /api/users/:id.
// Admins may delete anyone; everyone else only themselves. A user who has
// recorded scores can't be deleted (403); their scores would be orphaned.
// Deleting removes the profile, its tournament registrations and the sign-in account.
func DeleteUser(db *gorm.DB, svc *auth.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}

		caller := currentUser(c)
		if !caller.IsAdmin() && caller.UserID != id {
			return fiber.NewError(fiber.StatusForbidden, "You can only delete your own account")
		}

		var user models.User
		err = dbFor(c, db).First(&user, "user_id = ?", id).Error
		if isNotFound(err) {
			return fiber.NewError(fiber.StatusNotFound, "User not found")
		}
		if err != nil {
			return internalError(c, err, "Failed to fetch user")
		}

		hasScores, err := exists(dbFor(c, db), &models.Score{}, "user_id = ?", id)
		if err != nil {
			return internalError(c, err, "Failed to check user scores")
		}
		if hasScores {
			return fiber.NewError(fiber.StatusForbidden, "Cannot delete user with existing scores")
		}

		err = dbFor(c, db).Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("user_id = ?", id).Delete(&models.TournamentParticipant{}).Error; err != nil {
				return err
			}
			if err := tx.Delete(&models.User{}, "user_id = ?", id).Error; err != nil {
				return err
			}
			return svc.WithTx(tx).DeleteAccount(c.UserContext(), user.AuthUserID)
		})
		if err != nil {
			return internalError(c, err, "Failed to delete user")
		}

		return c.JSON(fiber.Map{"message": "User deleted successfully"})
	}
}

// GetProfile returns a handler for GET /api/profile: the caller's own profile.
func GetProfile() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(currentUser(c))
	}
}

// UpdateProfile returns a handler for PUT /api/profile.
// Only the fields present in the body change; the merged record is returned.
// A new email is also the one the player signs in with from then on.
func UpdateProfile(db *gorm.DB, svc *auth.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req UpdateProfileRequest
		if err := c.BodyParser(&req); err != nil {
			return invalidBody()
		}

		user := *currentUser(c)
		oldEmail := user.Email
		if err := applyProfileChanges(&user, req.Name, req.Email, req.Handicap); err != nil {
			return err
		}

		err := saveProfile(c, db, svc, &user, oldEmail, func(tx *gorm.DB) error {
			return tx.Model(&models.User{}).
				Where("user_id = ?", user.UserID).
				Updates(map[string]any{
					"name":     user.Name,
					"email":    user.Email,
					"handicap": user.Handicap,
				}).Error
		})
		if err != nil {
			return err
		}

		return c.JSON(user)
	}
}
