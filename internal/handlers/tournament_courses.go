package handlers

// tournament_courses.go: /api/tournament-courses (admin only).
// A tournament course books a course for a given day of a tournament.
// GET /:id lists the bookings of tournament :id; PUT and DELETE /:id act on
// the booking row with that id.

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/trentd187/golf-scorekeeper/internal/models"
)

// BookedCourse is the course data joined onto a booking.
type BookedCourse struct {
	Name     string `json:"name"`
	Location string `json:"location"`
	Par      int    `json:"par"`
}

// TournamentCourseResponse is a booking with its course's details.
type TournamentCourseResponse struct {
	models.TournamentCourse
	PlayDate string        `json:"play_date"`
	Courses  *BookedCourse `json:"courses"`
}

// TournamentCourseRequest is the JSON body for POST and PUT /api/tournament-courses.
type TournamentCourseRequest struct {
	TournamentID *string `json:"tournament_id"` // POST only
	CourseID     *string `json:"course_id"`
	PlayDate     *string `json:"play_date"`
}

// withCourses joins course details onto bookings with a single extra query.
func withCourses(db *gorm.DB, rows []models.TournamentCourse) ([]TournamentCourseResponse, error) {
	ids := make([]uuid.UUID, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.CourseID)
	}

	byID := make(map[uuid.UUID]models.Course, len(ids))
	if len(ids) > 0 {
		var courses []models.Course
		if err := db.Where("course_id IN ?", ids).Find(&courses).Error; err != nil {
			return nil, err
		}
		for _, course := range courses {
			byID[course.CourseID] = course
		}
	}

	out := make([]TournamentCourseResponse, 0, len(rows))
	for _, r := range rows {
		resp := TournamentCourseResponse{TournamentCourse: r, PlayDate: formatDate(r.PlayDate)}
		if course, ok := byID[r.CourseID]; ok {
			resp.Courses = &BookedCourse{Name: course.Name, Location: course.Location, Par: course.Par}
		}
		out = append(out, resp)
	}
	return out, nil
}

// checkPlayDate rejects play dates outside the tournament's range.
func checkPlayDate(t *models.Tournament, d time.Time) error {
	if d.Before(t.StartDate) || d.After(t.EndDate) {
		return fiber.NewError(fiber.StatusBadRequest, "play_date must fall within the tournament dates")
	}
	return nil
}

// requireCourse returns a 404 *fiber.Error if the course doesn't exist.
func requireCourse(c *fiber.Ctx, db *gorm.DB, id uuid.UUID) error {
	found, err := exists(db, &models.Course{}, "course_id = ?", id)
	if err != nil {
		return internalError(c, err, "Failed to fetch course")
	}
	if !found {
		return fiber.NewError(fiber.StatusNotFound, "Course not found")
	}
	return nil
}

// GetAllTournamentCourses returns a handler for GET /api/tournament-courses.
func GetAllTournamentCourses(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tx := dbFor(c, db)

		var rows []models.TournamentCourse
		if err := tx.Order("play_date").Find(&rows).Error; err != nil {
			return internalError(c, err, "Failed to fetch tournament courses")
		}

		resp, err := withCourses(tx, rows)
		if err != nil {
			return internalError(c, err, "Failed to fetch tournament courses")
		}
		return c.JSON(resp)
	}
}

// GetTournamentCourses returns a handler for GET /api/tournament-courses/:id,
// where :id is the tournament. Bookings come back in play order.
func GetTournamentCourses(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		tx := dbFor(c, db)

		if _, err := findTournament(c, tx, id); err != nil {
			return err
		}

		var rows []models.TournamentCourse
		if err := tx.Where("tournament_id = ?", id).Order("play_date").Find(&rows).Error; err != nil {
			return internalError(c, err, "Failed to fetch tournament courses")
		}

		resp, err := withCourses(tx, rows)
		if err != nil {
			return internalError(c, err, "Failed to fetch tournament courses")
		}
		return c.JSON(resp)
	}
}

// AddTournamentCourse returns a handler for POST /api/tournament-courses.
func AddTournamentCourse(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req TournamentCourseRequest
		if err := c.BodyParser(&req); err != nil {
			return invalidBody()
		}
		switch {
		case req.TournamentID == nil || *req.TournamentID == "":
			return missingField("tournament_id")
		case req.CourseID == nil || *req.CourseID == "":
			return missingField("course_id")
		case req.PlayDate == nil || *req.PlayDate == "":
			return missingField("play_date")
		}

		tournamentID, err := parseUUIDField("tournament_id", *req.TournamentID)
		if err != nil {
			return err
		}
		courseID, err := parseUUIDField("course_id", *req.CourseID)
		if err != nil {
			return err
		}
		playDate, err := parseDateField("play_date", *req.PlayDate)
		if err != nil {
			return err
		}

		tx := dbFor(c, db)
		t, err := findTournament(c, tx, tournamentID)
		if err != nil {
			return err
		}
		if err := requireCourse(c, tx, courseID); err != nil {
			return err
		}
		if err := checkPlayDate(t, playDate); err != nil {
			return err
		}

		row := models.TournamentCourse{TournamentID: tournamentID, CourseID: courseID, PlayDate: playDate}
		if err := tx.Create(&row).Error; err != nil {
			return internalError(c, err, "Failed to add tournament course")
		}

		resp, err := withCourses(tx, []models.TournamentCourse{row})
		if err != nil {
			return internalError(c, err, "Failed to fetch tournament course")
		}
		return c.Status(fiber.StatusCreated).JSON(resp[0])
	}
}

// UpdateTournamentCourse returns a handler for PUT /api/tournament-courses/:id.
// The course and play date can change; the tournament can't.
func UpdateTournamentCourse(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}

		var req TournamentCourseRequest
		if err := c.BodyParser(&req); err != nil {
			return invalidBody()
		}

		tx := dbFor(c, db)
		var row models.TournamentCourse
		err = tx.First(&row, "id = ?", id).Error
		if isNotFound(err) {
			return fiber.NewError(fiber.StatusNotFound, "Tournament course not found")
		}
		if err != nil {
			return internalError(c, err, "Failed to fetch tournament course")
		}

		if req.CourseID != nil {
			courseID, err := parseUUIDField("course_id", *req.CourseID)
			if err != nil {
				return err
			}
			if err := requireCourse(c, tx, courseID); err != nil {
				return err
			}
			row.CourseID = courseID
		}
		if req.PlayDate != nil {
			playDate, err := parseDateField("play_date", *req.PlayDate)
			if err != nil {
				return err
			}
			t, err := findTournament(c, tx, row.TournamentID)
			if err != nil {
				return err
			}
			if err := checkPlayDate(t, playDate); err != nil {
				return err
			}
			row.PlayDate = playDate
		}

		if err := tx.Save(&row).Error; err != nil {
			return internalError(c, err, "Failed to update tournament course")
		}

		resp, err := withCourses(tx, []models.TournamentCourse{row})
		if err != nil {
			return internalError(c, err, "Failed to fetch tournament course")
		}
		return c.JSON(resp[0])
	}
}

// DeleteTournamentCourse returns a handler for DELETE /api/tournament-courses/:id.
func DeleteTournamentCourse(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}

		result := dbFor(c, db).Delete(&models.TournamentCourse{}, "id = ?", id)
		if result.Error != nil {
			return internalError(c, result.Error, "Failed to delete tournament course")
		}
		if result.RowsAffected == 0 {
			return fiber.NewError(fiber.StatusNotFound, "Tournament course not found")
		}
		return c.JSON(fiber.Map{"message": "Tournament course deleted successfully"})
	}
}
