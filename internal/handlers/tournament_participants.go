package handlers

// tournament_participants.go: /api/tournament-participants (admin only).
// GET /:id lists the participants of tournament :id; DELETE /:id removes the
// participant row with that id.

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/trentd187/golf-scorekeeper/internal/models"
)

// ParticipantUser is the user data joined onto a participant row.
type ParticipantUser struct {
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	Handicap *float64 `json:"handicap"`
}

// ParticipantResponse is a participant row with its user's details.
type ParticipantResponse struct {
	models.TournamentParticipant
	Users *ParticipantUser `json:"users"`
}

// AddParticipantRequest is the JSON body for POST /api/tournament-participants.
type AddParticipantRequest struct {
	TournamentID string `json:"tournament_id"`
	UserID       string `json:"user_id"`
}

// withUsers joins user details onto participant rows with a single extra query.
func withUsers(db *gorm.DB, rows []models.TournamentParticipant) ([]ParticipantResponse, error) {
	ids := make([]uuid.UUID, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.UserID)
	}

	byID := make(map[uuid.UUID]models.User, len(ids))
	if len(ids) > 0 {
		var users []models.User
		if err := db.Where("user_id IN ?", ids).Find(&users).Error; err != nil {
			return nil, err
		}
		for _, u := range users {
			byID[u.UserID] = u
		}
	}

	out := make([]ParticipantResponse, 0, len(rows))
	for _, r := range rows {
		resp := ParticipantResponse{TournamentParticipant: r}
		if u, ok := byID[r.UserID]; ok {
			resp.Users = &ParticipantUser{Name: u.Name, Email: u.Email, Handicap: u.Handicap}
		}
		out = append(out, resp)
	}
	return out, nil
}

// GetParticipants returns a handler for GET /api/tournament-participants.
// Optional ?tournament_id= narrows the list to one tournament.
func GetParticipants(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tx := dbFor(c, db)
		query := tx.Model(&models.TournamentParticipant{})

		if raw := c.Query("tournament_id"); raw != "" {
			id, err := parseUUIDField("tournament_id", raw)
			if err != nil {
				return err
			}
			query = query.Where("tournament_id = ?", id)
		}

		var rows []models.TournamentParticipant
		if err := query.Find(&rows).Error; err != nil {
			return internalError(c, err, "Failed to fetch participants")
		}

		resp, err := withUsers(tx, rows)
		if err != nil {
			return internalError(c, err, "Failed to fetch participants")
		}
		return c.JSON(resp)
	}
}

// GetTournamentParticipants returns a handler for GET /api/tournament-participants/:id,
// where :id is the tournament.
func GetTournamentParticipants(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		tx := dbFor(c, db)

		if _, err := findTournament(c, tx, id); err != nil {
			return err
		}

		var rows []models.TournamentParticipant
		if err := tx.Where("tournament_id = ?", id).Find(&rows).Error; err != nil {
			return internalError(c, err, "Failed to fetch participants")
		}

		resp, err := withUsers(tx, rows)
		if err != nil {
			return internalError(c, err, "Failed to fetch participants")
		}
		return c.JSON(resp)
	}
}

// AddParticipant returns a handler for POST /api/tournament-participants.
func AddParticipant(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req AddParticipantRequest
		if err := c.BodyParser(&req); err != nil {
			return invalidBody()
		}
		switch {
		case req.TournamentID == "":
			return missingField("tournament_id")
		case req.UserID == "":
			return missingField("user_id")
		}

		tournamentID, err := parseUUIDField("tournament_id", req.TournamentID)
		if err != nil {
			return err
		}
		userID, err := parseUUIDField("user_id", req.UserID)
		if err != nil {
			return err
		}

		tx := dbFor(c, db)
		if _, err := findTournament(c, tx, tournamentID); err != nil {
			return err
		}

		var user models.User
		err = tx.First(&user, "user_id = ?", userID).Error
		if isNotFound(err) {
			return fiber.NewError(fiber.StatusNotFound, "User not found")
		}
		if err != nil {
			return internalError(c, err, "Failed to fetch user")
		}

		already, err := exists(tx, &models.TournamentParticipant{},
			"tournament_id = ? AND user_id = ?", tournamentID, userID)
		if err != nil {
			return internalError(c, err, "Failed to check participants")
		}
		if already {
			return fiber.NewError(fiber.StatusBadRequest, "User is already a participant in this tournament")
		}

		row := models.TournamentParticipant{TournamentID: tournamentID, UserID: userID}
		if err := tx.Create(&row).Error; err != nil {
			return internalError(c, err, "Failed to add participant")
		}

		return c.Status(fiber.StatusCreated).JSON(ParticipantResponse{
			TournamentParticipant: row,
			Users:                 &ParticipantUser{Name: user.Name, Email: user.Email, Handicap: user.Handicap},
		})
	}
}

// DeleteParticipant returns a handler for DELETE /api/tournament-participants/:id,
// where :id is the participant row.
func DeleteParticipant(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}

		result := dbFor(c, db).Delete(&models.TournamentParticipant{}, "id = ?", id)
		if result.Error != nil {
			return internalError(c, result.Error, "Failed to remove participant")
		}
		if result.RowsAffected == 0 {
			return fiber.NewError(fiber.StatusNotFound, "Participant not found")
		}
		return c.JSON(fiber.Map{"message": "Participant removed successfully"})
	}
}
