package handlers

// courses.go: /api/courses. Anyone can browse courses; only admins add,
// edit or remove them.

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/trentd187/golf-scorekeeper/internal/models"
)

// CourseRequest is the JSON body for POST and PUT /api/courses.
// On POST name, location and par are required; on PUT every field is optional.
type CourseRequest struct {
	Name        *string  `json:"name"`
	Location    *string  `json:"location"`
	Par         *int     `json:"par"`
	SlopeValue  *int     `json:"slope_value"`
	CourseValue *float64 `json:"course_value"`
}

// validate checks the ranges of whichever fields are present.
func (r *CourseRequest) validate() error {
	if r.Name != nil && strings.TrimSpace(*r.Name) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "name cannot be empty")
	}
	if r.Location != nil && strings.TrimSpace(*r.Location) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "location cannot be empty")
	}
	if r.Par != nil && (*r.Par < 1 || *r.Par > 90) {
		return fiber.NewError(fiber.StatusBadRequest, "par must be between 1 and 90")
	}
	// USGA slope ratings run from 55 to 155; 113 is a course of standard difficulty.
	if r.SlopeValue != nil && (*r.SlopeValue < 55 || *r.SlopeValue > 155) {
		return fiber.NewError(fiber.StatusBadRequest, "slope_value must be between 55 and 155")
	}
	if r.CourseValue != nil && *r.CourseValue <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "course_value must be a positive number")
	}
	return nil
}

// apply copies the present fields onto course.
func (r *CourseRequest) apply(course *models.Course) {
	if r.Name != nil {
		course.Name = strings.TrimSpace(*r.Name)
	}
	if r.Location != nil {
		course.Location = strings.TrimSpace(*r.Location)
	}
	if r.Par != nil {
		course.Par = *r.Par
	}
	if r.SlopeValue != nil {
		course.SlopeValue = r.SlopeValue
	}
	if r.CourseValue != nil {
		course.CourseValue = r.CourseValue
	}
}

// GetCourses returns a handler for GET /api/courses.
func GetCourses(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var courses []models.Course
		if err := dbFor(c, db).Order("name").Find(&courses).Error; err != nil {
			return internalError(c, err, "Failed to fetch courses")
		}
		return c.JSON(courses)
	}
}

// GetCourse returns a handler for GET /api/courses/:id.
func GetCourse(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}

		var course models.Course
		err = dbFor(c, db).First(&course, "course_id = ?", id).Error
		if isNotFound(err) {
			return fiber.NewError(fiber.StatusNotFound, "Course not found")
		}
		if err != nil {
			return internalError(c, err, "Failed to fetch course")
		}
		return c.JSON(course)
	}
}

// CreateCourse returns a handler for POST /api/courses (admin only).
func CreateCourse(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req CourseRequest
		if err := c.BodyParser(&req); err != nil {
			return invalidBody()
		}

		switch {
		case req.Name == nil:
			return missingField("name")
		case req.Location == nil:
			return missingField("location")
		case req.Par == nil:
			return missingField("par")
		}
		if err := req.validate(); err != nil {
			return err
		}

		course := models.Course{CreatedBy: currentUser(c).UserID}
		req.apply(&course)

		if err := dbFor(c, db).Create(&course).Error; err != nil {
			return internalError(c, err, "Failed to create course")
		}
		return c.Status(fiber.StatusCreated).JSON(course)
	}
}

// UpdateCourse returns a handler for PUT /api/courses/:id (admin only).
func UpdateCourse(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}

		var req CourseRequest
		if err := c.BodyParser(&req); err != nil {
			return invalidBody()
		}
		if err := req.validate(); err != nil {
			return err
		}

		var course models.Course
		err = dbFor(c, db).First(&course, "course_id = ?", id).Error
		if isNotFound(err) {
			return fiber.NewError(fiber.StatusNotFound, "Course not found")
		}
		if err != nil {
			return internalError(c, err, "Failed to fetch course")
		}

		req.apply(&course)
		if err := dbFor(c, db).Save(&course).Error; err != nil {
			return internalError(c, err, "Failed to update course")
		}
		return c.JSON(course)
	}
}

// DeleteCourse returns a handler for DELETE /api/courses/:id (admin only).
// Courses with recorded scores or tournament bookings can't be deleted (403);
// the check and the delete aren't atomic, so a score recorded in between
// makes the delete fail on the foreign key instead.
func DeleteCourse(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}

		found, err := exists(dbFor(c, db), &models.Course{}, "course_id = ?", id)
		if err != nil {
			return internalError(c, err, "Failed to fetch course")
		}
		if !found {
			return fiber.NewError(fiber.StatusNotFound, "Course not found")
		}

		hasScores, err := exists(dbFor(c, db), &models.Score{}, "course_id = ?", id)
		if err != nil {
			return internalError(c, err, "Failed to check course scores")
		}
		if hasScores {
			return fiber.NewError(fiber.StatusForbidden, "Cannot delete course with existing scores")
		}

		booked, err := exists(dbFor(c, db), &models.TournamentCourse{}, "course_id = ?", id)
		if err != nil {
			return internalError(c, err, "Failed to check tournament courses")
		}
		if booked {
			return fiber.NewError(fiber.StatusForbidden, "Cannot delete course assigned to a tournament")
		}

		if err := dbFor(c, db).Delete(&models.Course{}, "course_id = ?", id).Error; err != nil {
			return internalError(c, err, "Failed to delete course")
		}
		return c.JSON(fiber.Map{"message": "Course deleted successfully"})
	}
}
