package handlers

// scores.go: /api/scores and /api/tournament-scores/:id.
//
// --- Permission model ---
// Players record and read their own scores. A score can only be edited or
// deleted by the player who owns it, or by an admin. Admins may also record a
// score on behalf of another player by passing user_id.

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/trentd187/golf-scorekeeper/internal/models"
)

// ScoreNotifier receives score changes for tournaments so live viewers can
// be updated. *live.Hub implements it.
type ScoreNotifier interface {
	BroadcastToTournament(tournamentID string, data []byte)
}

// ScoreResponse is a score as sent to the client, with the date formatted
// and the course name filled in for display.
type ScoreResponse struct {
	models.Score
	DatePlayed string `json:"date_played"`
	CourseName string `json:"course_name,omitempty"`
}

// CreateScoreRequest is the JSON body for POST /api/scores.
// Pointers let us tell "missing" apart from a zero value.
type CreateScoreRequest struct {
	CourseID     *string `json:"course_id"`     // Required
	ScoreValue   *int    `json:"score_value"`   // Required, > 0
	DatePlayed   *string `json:"date_played"`   // Required, YYYY-MM-DD
	Notes        *string `json:"notes"`         // Optional
	TournamentID *string `json:"tournament_id"` // Optional
	UserID       *string `json:"user_id"`       // Optional, admin only: record for another player
}

// UpdateScoreRequest is the JSON body for PUT /api/scores/:id. All fields optional.
type UpdateScoreRequest struct {
	CourseID   *string `json:"course_id"`
	ScoreValue *int    `json:"score_value"`
	DatePlayed *string `json:"date_played"`
	Notes      *string `json:"notes"`
}

// scoreEvent is the live-feed payload for a score change.
type scoreEvent struct {
	Type  string        `json:"type"` // score_created, score_updated, score_deleted
	Score ScoreResponse `json:"score"`
}

func notifyScore(n ScoreNotifier, eventType string, score ScoreResponse) {
	if n == nil || score.TournamentID == nil {
		return
	}
	data, err := json.Marshal(scoreEvent{Type: eventType, Score: score})
	if err != nil {
		log.WithError(err).Warn("Failed to encode live score event")
		return
	}
	n.BroadcastToTournament(score.TournamentID.String(), data)
}

// toScoreResponses converts scores and looks up the course names in one query.
func toScoreResponses(db *gorm.DB, scores []models.Score) ([]ScoreResponse, error) {
	courseIDs := make([]uuid.UUID, 0, len(scores))
	seen := make(map[uuid.UUID]bool)
	for _, s := range scores {
		if !seen[s.CourseID] {
			seen[s.CourseID] = true
			courseIDs = append(courseIDs, s.CourseID)
		}
	}

	names := make(map[uuid.UUID]string, len(courseIDs))
	if len(courseIDs) > 0 {
		var courses []models.Course
		if err := db.Where("course_id IN ?", courseIDs).Find(&courses).Error; err != nil {
			return nil, err
		}
		for _, course := range courses {
			names[course.CourseID] = course.Name
		}
	}

	out := make([]ScoreResponse, 0, len(scores))
	for _, s := range scores {
		out = append(out, ScoreResponse{
			Score:      s,
			DatePlayed: formatDate(s.DatePlayed),
			CourseName: names[s.CourseID],
		})
	}
	return out, nil
}

func toScoreResponse(db *gorm.DB, score models.Score) (ScoreResponse, error) {
	out, err := toScoreResponses(db, []models.Score{score})
	if err != nil {
		return ScoreResponse{}, err
	}
	return out[0], nil
}

// GetScores returns a handler for GET /api/scores.
// Returns the caller's scores, newest first. Admins may pass ?user_id= to read
// another player's scores.
func GetScores(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller := currentUser(c)
		userID := caller.UserID

		if raw := c.Query("user_id"); raw != "" {
			id, err := parseUUIDField("user_id", raw)
			if err != nil {
				return err
			}
			if id != caller.UserID && !caller.IsAdmin() {
				return fiber.NewError(fiber.StatusForbidden, "You can only view your own scores")
			}
			userID = id
		}

		var scores []models.Score
		err := dbFor(c, db).
			Where("user_id = ?", userID).
			Order("date_played DESC").
			Find(&scores).Error
		if err != nil {
			return internalError(c, err, "Failed to fetch scores")
		}

		resp, err := toScoreResponses(dbFor(c, db), scores)
		if err != nil {
			return internalError(c, err, "Failed to fetch scores")
		}
		return c.JSON(resp)
	}
}

// CreateScore returns a handler for POST /api/scores.
func CreateScore(db *gorm.DB, notifier ScoreNotifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller := currentUser(c)

		var req CreateScoreRequest
		if err := c.BodyParser(&req); err != nil {
			return invalidBody()
		}

		switch {
		case req.CourseID == nil || *req.CourseID == "":
			return missingField("course_id")
		case req.ScoreValue == nil:
			return missingField("score_value")
		case req.DatePlayed == nil || *req.DatePlayed == "":
			return missingField("date_played")
		}

		courseID, err := parseUUIDField("course_id", *req.CourseID)
		if err != nil {
			return err
		}
		if *req.ScoreValue <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "score_value must be a positive number")
		}
		datePlayed, err := parseDateField("date_played", *req.DatePlayed)
		if err != nil {
			return err
		}

		tx := dbFor(c, db)

		found, err := exists(tx, &models.Course{}, "course_id = ?", courseID)
		if err != nil {
			return internalError(c, err, "Failed to fetch course")
		}
		if !found {
			return fiber.NewError(fiber.StatusNotFound, "Course not found")
		}

		// Whose score is this? Default: the caller.
		userID := caller.UserID
		if req.UserID != nil && *req.UserID != "" {
			id, err := parseUUIDField("user_id", *req.UserID)
			if err != nil {
				return err
			}
			if id != caller.UserID {
				if !caller.IsAdmin() {
					return fiber.NewError(fiber.StatusForbidden, "You can only record your own scores")
				}
				found, err := exists(tx, &models.User{}, "user_id = ?", id)
				if err != nil {
					return internalError(c, err, "Failed to fetch user")
				}
				if !found {
					return fiber.NewError(fiber.StatusNotFound, "User not found")
				}
			}
			userID = id
		}

		score := models.Score{
			UserID:     userID,
			CourseID:   courseID,
			ScoreValue: *req.ScoreValue,
			DatePlayed: datePlayed,
			Notes:      trimmedOrNil(req.Notes),
		}

		if req.TournamentID != nil && *req.TournamentID != "" {
			tournamentID, err := parseUUIDField("tournament_id", *req.TournamentID)
			if err != nil {
				return err
			}

			var tournament models.Tournament
			err = tx.First(&tournament, "tournament_id = ?", tournamentID).Error
			if isNotFound(err) {
				return fiber.NewError(fiber.StatusNotFound, "Tournament not found")
			}
			if err != nil {
				return internalError(c, err, "Failed to fetch tournament")
			}

			if err := checkDatePlayed(&tournament, datePlayed); err != nil {
				return err
			}

			registered, err := exists(tx, &models.TournamentParticipant{},
				"tournament_id = ? AND user_id = ?", tournamentID, userID)
			if err != nil {
				return internalError(c, err, "Failed to check tournament participation")
			}
			if !registered && !caller.IsAdmin() {
				return fiber.NewError(fiber.StatusForbidden, "You are not a participant in this tournament")
			}
			score.TournamentID = &tournamentID
		}

		if err := tx.Create(&score).Error; err != nil {
			return internalError(c, err, "Failed to create score")
		}

		resp, err := toScoreResponse(tx, score)
		if err != nil {
			return internalError(c, err, "Failed to fetch score")
		}
		notifyScore(notifier, "score_created", resp)

		return c.Status(fiber.StatusCreated).JSON(resp)
	}
}

// checkDatePlayed rejects tournament scores dated outside the tournament's range.
func checkDatePlayed(t *models.Tournament, d time.Time) error {
	if d.Before(t.StartDate) || d.After(t.EndDate) {
		return fiber.NewError(fiber.StatusBadRequest, "date_played must fall within the tournament dates")
	}
	return nil
}

// loadOwnedScore fetches the score named by :id and checks the caller may modify it.
func loadOwnedScore(c *fiber.Ctx, db *gorm.DB) (*models.Score, error) {
	id, err := paramID(c)
	if err != nil {
		return nil, err
	}

	var score models.Score
	err = db.First(&score, "score_id = ?", id).Error
	if isNotFound(err) {
		return nil, fiber.NewError(fiber.StatusNotFound, "Score not found")
	}
	if err != nil {
		return nil, internalError(c, err, "Failed to fetch score")
	}

	caller := currentUser(c)
	if score.UserID != caller.UserID && !caller.IsAdmin() {
		return nil, fiber.NewError(fiber.StatusForbidden, "You can only modify your own scores")
	}
	return &score, nil
}

// UpdateScore returns a handler for PUT /api/scores/:id (owner or admin).
func UpdateScore(db *gorm.DB, notifier ScoreNotifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tx := dbFor(c, db)

		var req UpdateScoreRequest
		if err := c.BodyParser(&req); err != nil {
			return invalidBody()
		}

		score, err := loadOwnedScore(c, tx)
		if err != nil {
			return err
		}

		if req.CourseID != nil {
			courseID, err := parseUUIDField("course_id", *req.CourseID)
			if err != nil {
				return err
			}
			found, err := exists(tx, &models.Course{}, "course_id = ?", courseID)
			if err != nil {
				return internalError(c, err, "Failed to fetch course")
			}
			if !found {
				return fiber.NewError(fiber.StatusNotFound, "Course not found")
			}
			score.CourseID = courseID
		}
		if req.ScoreValue != nil {
			if *req.ScoreValue <= 0 {
				return fiber.NewError(fiber.StatusBadRequest, "score_value must be a positive number")
			}
			score.ScoreValue = *req.ScoreValue
		}
		if req.DatePlayed != nil {
			d, err := parseDateField("date_played", *req.DatePlayed)
			if err != nil {
				return err
			}
			if score.TournamentID != nil {
				t, err := findTournament(c, tx, *score.TournamentID)
				if err != nil {
					return err
				}
				if err := checkDatePlayed(t, d); err != nil {
					return err
				}
			}
			score.DatePlayed = d
		}
		if req.Notes != nil {
			score.Notes = trimmedOrNil(req.Notes)
		}

		if err := tx.Save(score).Error; err != nil {
			return internalError(c, err, "Failed to update score")
		}

		resp, err := toScoreResponse(tx, *score)
		if err != nil {
			return internalError(c, err, "Failed to fetch score")
		}
		notifyScore(notifier, "score_updated", resp)

		return c.JSON(resp)
	}
}

// DeleteScore returns a handler for DELETE /api/scores/:id (owner or admin).
func DeleteScore(db *gorm.DB, notifier ScoreNotifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tx := dbFor(c, db)

		score, err := loadOwnedScore(c, tx)
		if err != nil {
			return err
		}

		if err := tx.Delete(&models.Score{}, "score_id = ?", score.ScoreID).Error; err != nil {
			return internalError(c, err, "Failed to delete score")
		}

		notifyScore(notifier, "score_deleted", ScoreResponse{Score: *score, DatePlayed: formatDate(score.DatePlayed)})
		return c.JSON(fiber.Map{"message": "Score deleted successfully"})
	}
}

// GetTournamentScores returns a handler for GET /api/tournament-scores/:id.
// Players see their own scores in the tournament; admins see everyone's.
func GetTournamentScores(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		tx := dbFor(c, db)

		found, err := exists(tx, &models.Tournament{}, "tournament_id = ?", id)
		if err != nil {
			return internalError(c, err, "Failed to fetch tournament")
		}
		if !found {
			return fiber.NewError(fiber.StatusNotFound, "Tournament not found")
		}

		query := tx.Where("tournament_id = ?", id)
		if caller := currentUser(c); !caller.IsAdmin() {
			query = query.Where("user_id = ?", caller.UserID)
		}

		var scores []models.Score
		if err := query.Order("date_played").Find(&scores).Error; err != nil {
			return internalError(c, err, "Failed to fetch scores")
		}

		resp, err := toScoreResponses(tx, scores)
		if err != nil {
			return internalError(c, err, "Failed to fetch scores")
		}
		return c.JSON(resp)
	}
}

// trimmedOrNil returns nil for a missing or blank string.
func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}
