package handlers

// tournaments.go: /api/tournaments.
// Any signed-in player can list and view tournaments; only admins create,
// edit or delete them. Status (Pending / Live / Closed) is derived from the
// dates on every read and never stored.

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/trentd187/golf-scorekeeper/internal/models"
)

// TournamentResponse is a tournament as sent to the client.
type TournamentResponse struct {
	models.Tournament
	StartDate        string                  `json:"start_date"`
	EndDate          string                  `json:"end_date"`
	Status           models.TournamentStatus `json:"status"`
	ParticipantCount *int64                  `json:"participant_count,omitempty"` // single-tournament reads only
	CourseCount      *int64                  `json:"course_count,omitempty"`      // single-tournament reads only
}

func newTournamentResponse(t models.Tournament, now time.Time) TournamentResponse {
	return TournamentResponse{
		Tournament: t,
		StartDate:  formatDate(t.StartDate),
		EndDate:    formatDate(t.EndDate),
		Status:     t.StatusOn(now),
	}
}

// TournamentRequest is the JSON body for POST and PUT /api/tournaments.
// On POST every field is required; on PUT every field is optional.
type TournamentRequest struct {
	Name      *string `json:"name"`
	StartDate *string `json:"start_date"`
	EndDate   *string `json:"end_date"`
}

// apply validates the present fields and copies them onto t, then checks the
// resulting date range.
func (r *TournamentRequest) apply(t *models.Tournament) error {
	if r.Name != nil {
		name := strings.TrimSpace(*r.Name)
		if name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "name cannot be empty")
		}
		t.Name = name
	}
	if r.StartDate != nil {
		d, err := parseDateField("start_date", *r.StartDate)
		if err != nil {
			return err
		}
		t.StartDate = d
	}
	if r.EndDate != nil {
		d, err := parseDateField("end_date", *r.EndDate)
		if err != nil {
			return err
		}
		t.EndDate = d
	}
	if t.EndDate.Before(t.StartDate) {
		return fiber.NewError(fiber.StatusBadRequest, "end_date must be on or after start_date")
	}
	return nil
}

// findTournament loads a tournament or returns a 404 *fiber.Error.
func findTournament(c *fiber.Ctx, db *gorm.DB, id any) (*models.Tournament, error) {
	var t models.Tournament
	err := db.First(&t, "tournament_id = ?", id).Error
	if isNotFound(err) {
		return nil, fiber.NewError(fiber.StatusNotFound, "Tournament not found")
	}
	if err != nil {
		return nil, internalError(c, err, "Failed to fetch tournament")
	}
	return &t, nil
}

// GetTournaments returns a handler for GET /api/tournaments, newest first.
func GetTournaments(db *gorm.DB, now Clock) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var tournaments []models.Tournament
		if err := dbFor(c, db).Order("start_date DESC").Find(&tournaments).Error; err != nil {
			return internalError(c, err, "Failed to fetch tournaments")
		}

		today := now()
		resp := make([]TournamentResponse, 0, len(tournaments))
		for _, t := range tournaments {
			resp = append(resp, newTournamentResponse(t, today))
		}
		return c.JSON(resp)
	}
}

// GetTournament returns a handler for GET /api/tournaments/:id.
func GetTournament(db *gorm.DB, now Clock) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		tx := dbFor(c, db)

		t, err := findTournament(c, tx, id)
		if err != nil {
			return err
		}

		var participants, courses int64
		if err := tx.Model(&models.TournamentParticipant{}).Where("tournament_id = ?", id).Count(&participants).Error; err != nil {
			return internalError(c, err, "Failed to count participants")
		}
		if err := tx.Model(&models.TournamentCourse{}).Where("tournament_id = ?", id).Count(&courses).Error; err != nil {
			return internalError(c, err, "Failed to count tournament courses")
		}

		resp := newTournamentResponse(*t, now())
		resp.ParticipantCount = &participants
		resp.CourseCount = &courses
		return c.JSON(resp)
	}
}

// CreateTournament returns a handler for POST /api/tournaments (admin only).
func CreateTournament(db *gorm.DB, now Clock) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req TournamentRequest
		if err := c.BodyParser(&req); err != nil {
			return invalidBody()
		}

		switch {
		case req.Name == nil:
			return missingField("name")
		case req.StartDate == nil:
			return missingField("start_date")
		case req.EndDate == nil:
			return missingField("end_date")
		}

		t := models.Tournament{CreatedBy: currentUser(c).UserID}
		if err := req.apply(&t); err != nil {
			return err
		}

		if err := dbFor(c, db).Create(&t).Error; err != nil {
			return internalError(c, err, "Failed to create tournament")
		}
		return c.Status(fiber.StatusCreated).JSON(newTournamentResponse(t, now()))
	}
}

// UpdateTournament returns a handler for PUT /api/tournaments/:id (admin only).
func UpdateTournament(db *gorm.DB, now Clock) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}

		var req TournamentRequest
		if err := c.BodyParser(&req); err != nil {
			return invalidBody()
		}

		tx := dbFor(c, db)
		t, err := findTournament(c, tx, id)
		if err != nil {
			return err
		}
		if err := req.apply(t); err != nil {
			return err
		}
		if err := checkDependentDates(c, tx, t); err != nil {
			return err
		}

		if err := tx.Save(t).Error; err != nil {
			return internalError(c, err, "Failed to update tournament")
		}
		return c.JSON(newTournamentResponse(*t, now()))
	}
}

// checkDependentDates rejects a date change that would leave booked courses
// or tournament scores outside the tournament's range.
func checkDependentDates(c *fiber.Ctx, tx *gorm.DB, t *models.Tournament) error {
	var bookings []models.TournamentCourse
	if err := tx.Where("tournament_id = ?", t.TournamentID).Find(&bookings).Error; err != nil {
		return internalError(c, err, "Failed to fetch tournament courses")
	}
	for _, b := range bookings {
		if b.PlayDate.Before(t.StartDate) || b.PlayDate.After(t.EndDate) {
			return fiber.NewError(fiber.StatusBadRequest, "Tournament has courses booked outside the new dates")
		}
	}

	var scores []models.Score
	if err := tx.Where("tournament_id = ?", t.TournamentID).Find(&scores).Error; err != nil {
		return internalError(c, err, "Failed to fetch scores")
	}
	for _, s := range scores {
		if s.DatePlayed.Before(t.StartDate) || s.DatePlayed.After(t.EndDate) {
			return fiber.NewError(fiber.StatusBadRequest, "Tournament has scores recorded outside the new dates")
		}
	}
	return nil
}

// DeleteTournament returns a handler for DELETE /api/tournaments/:id (admin only).
// A tournament that still has participants, scheduled courses or scores can't
// be deleted (403); remove those first.
func DeleteTournament(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		tx := dbFor(c, db)

		if _, err := findTournament(c, tx, id); err != nil {
			return err
		}

		dependents := []struct {
			model any
			msg   string
		}{
			{&models.TournamentParticipant{}, "Cannot delete tournament with participants"},
			{&models.TournamentCourse{}, "Cannot delete tournament with assigned courses"},
			{&models.Score{}, "Cannot delete tournament with recorded scores"},
		}
		for _, d := range dependents {
			found, err := exists(tx, d.model, "tournament_id = ?", id)
			if err != nil {
				return internalError(c, err, "Failed to check tournament dependencies")
			}
			if found {
				return fiber.NewError(fiber.StatusForbidden, d.msg)
			}
		}

		if err := tx.Delete(&models.Tournament{}, "tournament_id = ?", id).Error; err != nil {
			return internalError(c, err, "Failed to delete tournament")
		}
		return c.JSON(fiber.Map{"message": "Tournament deleted successfully"})
	}
}
