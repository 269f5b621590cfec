package handlers

// leaderboards.go: GET /api/leaderboards.
// Without a query string this is the all-time board across every recorded
// round. With ?tournament_id= it ranks that tournament's participants using
// only the scores tied to it.

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/trentd187/golf-scorekeeper/internal/leaderboard"
	"github.com/trentd187/golf-scorekeeper/internal/models"
)

// TournamentLeaderboard is the response for a tournament-scoped leaderboard.
type TournamentLeaderboard struct {
	Tournament TournamentResponse            `json:"tournament"`
	Entries    []leaderboard.TournamentEntry `json:"entries"`
}

// OverallLeaderboard is the response for the all-time leaderboard.
type OverallLeaderboard struct {
	Entries []leaderboard.OverallEntry `json:"entries"`
}

// loadRounds pairs each score with its course's par.
func loadRounds(db *gorm.DB, scores []models.Score) ([]leaderboard.Round, error) {
	var courses []models.Course
	if err := db.Select("course_id", "par").Find(&courses).Error; err != nil {
		return nil, err
	}
	par := make(map[uuid.UUID]int, len(courses))
	for _, course := range courses {
		par[course.CourseID] = course.Par
	}

	rounds := make([]leaderboard.Round, 0, len(scores))
	for _, s := range scores {
		rounds = append(rounds, leaderboard.Round{UserID: s.UserID, Score: s.ScoreValue, Par: par[s.CourseID]})
	}
	return rounds, nil
}

func toPlayers(users []models.User) []leaderboard.Player {
	players := make([]leaderboard.Player, 0, len(users))
	for _, u := range users {
		players = append(players, leaderboard.Player{UserID: u.UserID, Name: u.Name, Handicap: u.Handicap})
	}
	return players
}

// GetLeaderboards returns a handler for GET /api/leaderboards.
func GetLeaderboards(db *gorm.DB, now Clock) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tx := dbFor(c, db)

		if raw := c.Query("tournament_id"); raw != "" {
			id, err := parseUUIDField("tournament_id", raw)
			if err != nil {
				return err
			}
			return tournamentLeaderboard(c, tx, id, now)
		}

		var users []models.User
		if err := tx.Find(&users).Error; err != nil {
			return internalError(c, err, "Failed to fetch players")
		}
		var scores []models.Score
		if err := tx.Find(&scores).Error; err != nil {
			return internalError(c, err, "Failed to fetch scores")
		}
		rounds, err := loadRounds(tx, scores)
		if err != nil {
			return internalError(c, err, "Failed to fetch courses")
		}

		return c.JSON(OverallLeaderboard{Entries: leaderboard.Overall(toPlayers(users), rounds)})
	}
}

func tournamentLeaderboard(c *fiber.Ctx, tx *gorm.DB, id uuid.UUID, now Clock) error {
	t, err := findTournament(c, tx, id)
	if err != nil {
		return err
	}

	var userIDs []uuid.UUID
	if err := tx.Model(&models.TournamentParticipant{}).
		Where("tournament_id = ?", id).
		Pluck("user_id", &userIDs).Error; err != nil {
		return internalError(c, err, "Failed to fetch participants")
	}

	users := []models.User{}
	if len(userIDs) > 0 {
		if err := tx.Where("user_id IN ?", userIDs).Find(&users).Error; err != nil {
			return internalError(c, err, "Failed to fetch players")
		}
	}

	var scores []models.Score
	if err := tx.Where("tournament_id = ?", id).Find(&scores).Error; err != nil {
		return internalError(c, err, "Failed to fetch scores")
	}
	rounds, err := loadRounds(tx, scores)
	if err != nil {
		return internalError(c, err, "Failed to fetch courses")
	}

	return c.JSON(TournamentLeaderboard{
		Tournament: newTournamentResponse(*t, now()),
		Entries:    leaderboard.Tournament(toPlayers(users), rounds),
	})
}
