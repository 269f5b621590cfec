package handlers

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/trentd187/golf-scorekeeper/internal/middleware"
	"github.com/trentd187/golf-scorekeeper/internal/models"
)

// Clock returns "today" for tournament status derivation.
type Clock func() time.Time

// Handlers report failures by returning *fiber.Error values; the app's error
// handler renders them as {"error": message} with the error's status code.

// internalError logs err with the request context and returns a generic 500.
// Database error text stays in the logs; the client only sees msg.
func internalError(c *fiber.Ctx, err error, msg string) error {
	log.WithError(err).WithFields(log.Fields{
		"method": c.Method(),
		"path":   c.Path(),
	}).Error(msg)
	return fiber.NewError(fiber.StatusInternalServerError, msg)
}

// missingField is the 400 returned when a required body field is absent.
func missingField(name string) error {
	return fiber.NewError(fiber.StatusBadRequest, "Missing required field: "+name)
}

// invalidBody is the 400 returned when the body isn't valid JSON for the request struct.
func invalidBody() error {
	return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
}

// paramID parses the ":id" route parameter as a UUID.
func paramID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "Invalid id")
	}
	return id, nil
}

// parseUUIDField parses an ID taken from a request body or query string.
func parseUUIDField(name, value string) (uuid.UUID, error) {
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("Invalid %s", name))
	}
	return id, nil
}

// parseDateField parses a "YYYY-MM-DD" value from a request body.
func parseDateField(name, value string) (time.Time, error) {
	t, err := time.Parse(models.DateLayout, value)
	if err != nil {
		return time.Time{}, fiber.NewError(fiber.StatusBadRequest, name+" must be in YYYY-MM-DD format")
	}
	return t, nil
}

// formatDate renders a stored date in "2006-01-02" form.
func formatDate(t time.Time) string {
	return t.Format(models.DateLayout)
}

// isNotFound reports whether err is GORM's "no rows" error.
func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// exists reports whether a row of model matching query/args exists.
func exists(db *gorm.DB, model any, query string, args ...any) (bool, error) {
	var count int64
	if err := db.Model(model).Where(query, args...).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// currentUser is a short alias used throughout the handlers.
func currentUser(c *fiber.Ctx) *models.User {
	return middleware.CurrentUser(c)
}

// dbFor scopes db to the request's context so a client disconnect cancels queries.
func dbFor(c *fiber.Ctx, db *gorm.DB) *gorm.DB {
	return db.WithContext(c.UserContext())
}
