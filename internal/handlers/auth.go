package handlers

// auth.go: POST /api/auth/signup and POST /api/auth/signin.
// Both are public and return the same envelope: the player's profile plus a
// session holding the bearer token the web client stores and sends back.

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/trentd187/golf-scorekeeper/internal/auth"
	"github.com/trentd187/golf-scorekeeper/internal/middleware"
	"github.com/trentd187/golf-scorekeeper/internal/models"
)

// SignUpRequest is the JSON body expected on POST /api/auth/signup.
type SignUpRequest struct {
	Email    string   `json:"email"`    // Required
	Password string   `json:"password"` // Required, at least auth.MinPasswordLength characters
	Name     string   `json:"name"`     // Optional display name; defaults to the email's local part
	Handicap *float64 `json:"handicap"` // Optional
}

// SignInRequest is the JSON body expected on POST /api/auth/signin.
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthUser is the "user" half of the auth envelope.
type AuthUser struct {
	ID         uuid.UUID       `json:"id"` // users.user_id
	AuthUserID uuid.UUID       `json:"auth_user_id"`
	Email      string          `json:"email"`
	Name       string          `json:"name"`
	Handicap   *float64        `json:"handicap"`
	Role       models.UserRole `json:"role"`
}

// AuthResponse is returned by sign-up and sign-in.
type AuthResponse struct {
	User    AuthUser      `json:"user"`
	Session *auth.Session `json:"session"`
}

func newAuthResponse(user *models.User, session *auth.Session) AuthResponse {
	return AuthResponse{
		User: AuthUser{
			ID:         user.UserID,
			AuthUserID: user.AuthUserID,
			Email:      user.Email,
			Name:       user.Name,
			Handicap:   user.Handicap,
			Role:       user.UserRole,
		},
		Session: session,
	}
}

// SignUp returns a handler for POST /api/auth/signup.
// Creates the sign-in account and the player profile in one transaction, so a
// failure never leaves an account without a profile (or the reverse).
func SignUp(db *gorm.DB, svc *auth.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req SignUpRequest
		if err := c.BodyParser(&req); err != nil {
			return invalidBody()
		}

		if strings.TrimSpace(req.Email) == "" || req.Password == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Email and password are required")
		}
		if err := validateHandicap(req.Handicap); err != nil {
			return err
		}

		var (
			account *models.AuthAccount
			user    models.User
		)
		txErr := dbFor(c, db).Transaction(func(tx *gorm.DB) error {
			var err error
			account, err = svc.WithTx(tx).SignUp(c.UserContext(), req.Email, req.Password)
			if err != nil {
				return err
			}

			name := strings.TrimSpace(req.Name)
			if name == "" {
				name = strings.SplitN(account.Email, "@", 2)[0]
			}

			user = models.User{
				AuthUserID: account.ID,
				Name:       name,
				Email:      account.Email,
				Handicap:   req.Handicap,
				UserRole:   models.UserRoleUser,
			}
			return tx.Create(&user).Error
		})

		switch {
		case errors.Is(txErr, auth.ErrEmailTaken),
			errors.Is(txErr, auth.ErrWeakPassword),
			errors.Is(txErr, auth.ErrInvalidEmail):
			return fiber.NewError(fiber.StatusBadRequest, txErr.Error())
		case txErr != nil:
			return internalError(c, txErr, "Failed to create account")
		}

		session, err := svc.IssueToken(account)
		if err != nil {
			return internalError(c, err, "Failed to create session")
		}

		return c.JSON(newAuthResponse(&user, session))
	}
}

// SignIn returns a handler for POST /api/auth/signin.
// If the account has no profile yet (created out-of-band, or before profiles
// existed) one is created on the spot with the default "user" role.
func SignIn(db *gorm.DB, svc *auth.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req SignInRequest
		if err := c.BodyParser(&req); err != nil {
			return invalidBody()
		}
		if strings.TrimSpace(req.Email) == "" || req.Password == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Email and password are required")
		}

		account, err := svc.SignIn(c.UserContext(), req.Email, req.Password)
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return fiber.NewError(fiber.StatusUnauthorized, err.Error())
		}
		if err != nil {
			return internalError(c, err, "Failed to sign in")
		}

		user, err := middleware.FindOrCreateUser(dbFor(c, db), account.ID, account.Email)
		if err != nil {
			return internalError(c, err, "Failed to load user profile")
		}

		session, err := svc.IssueToken(account)
		if err != nil {
			return internalError(c, err, "Failed to create session")
		}

		return c.JSON(newAuthResponse(user, session))
	}
}
