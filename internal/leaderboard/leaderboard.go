// Package leaderboard ranks players from their recorded rounds.
// It is pure computation: handlers load rows from the database and pass them in.
package leaderboard

import (
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Player is a user who may appear on a leaderboard.
type Player struct {
	UserID   uuid.UUID
	Name     string
	Handicap *float64
}

// Round is one recorded score together with the par of the course it was played on.
type Round struct {
	UserID uuid.UUID
	Score  int
	Par    int
}

// OverallEntry is one row of the all-time leaderboard.
type OverallEntry struct {
	Position     int       `json:"position"`
	UserID       uuid.UUID `json:"user_id"`
	Name         string    `json:"name"`
	Handicap     *float64  `json:"handicap"`
	RoundsPlayed int       `json:"rounds_played"`
	BestScore    int       `json:"best_score"`
	AverageScore float64   `json:"average_score"`
}

// TournamentEntry is one participant's standing in a tournament.
// Position is 0 (omitted) for participants who haven't posted a round yet.
type TournamentEntry struct {
	Position     int       `json:"position,omitempty"`
	UserID       uuid.UUID `json:"user_id"`
	Name         string    `json:"name"`
	Handicap     *float64  `json:"handicap"`
	RoundsPlayed int       `json:"rounds_played"`
	TotalStrokes int       `json:"total_strokes"`
	TotalPar     int       `json:"total_par"`
	ToPar        int       `json:"to_par"`
	NetTotal     int       `json:"net_total"`
}

// Overall ranks every player with at least one round by average score
// (lower is better). Ties on average share a position; more rounds played
// sorts first within a tie, then name.
func Overall(players []Player, rounds []Round) []OverallEntry {
	byUser := groupRounds(rounds)

	entries := make([]OverallEntry, 0, len(byUser))
	for _, p := range players {
		rs := byUser[p.UserID]
		if len(rs) == 0 {
			continue
		}
		total, best := 0, rs[0].Score
		for _, r := range rs {
			total += r.Score
			if r.Score < best {
				best = r.Score
			}
		}
		entries = append(entries, OverallEntry{
			UserID:       p.UserID,
			Name:         p.Name,
			Handicap:     p.Handicap,
			RoundsPlayed: len(rs),
			BestScore:    best,
			AverageScore: round1(float64(total) / float64(len(rs))),
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.AverageScore != b.AverageScore {
			return a.AverageScore < b.AverageScore
		}
		if a.RoundsPlayed != b.RoundsPlayed {
			return a.RoundsPlayed > b.RoundsPlayed
		}
		return strings.ToLower(a.Name) < strings.ToLower(b.Name)
	})

	for i := range entries {
		if i > 0 && entries[i].AverageScore == entries[i-1].AverageScore {
			entries[i].Position = entries[i-1].Position
		} else {
			entries[i].Position = i + 1
		}
	}
	return entries
}

// Tournament ranks a tournament's participants by strokes relative to par
// (lower is better), so players who have completed different courses stay
// comparable. Equal ToPar shares a position (1, 2, 2, 4). Participants
// without rounds are listed last, unranked.
func Tournament(players []Player, rounds []Round) []TournamentEntry {
	byUser := groupRounds(rounds)

	var ranked, unranked []TournamentEntry
	for _, p := range players {
		rs := byUser[p.UserID]
		e := TournamentEntry{
			UserID:       p.UserID,
			Name:         p.Name,
			Handicap:     p.Handicap,
			RoundsPlayed: len(rs),
		}
		for _, r := range rs {
			e.TotalStrokes += r.Score
			e.TotalPar += r.Par
		}
		e.ToPar = e.TotalStrokes - e.TotalPar
		e.NetTotal = e.TotalStrokes
		if p.Handicap != nil {
			e.NetTotal -= int(math.Round(*p.Handicap * float64(len(rs))))
		}

		if len(rs) == 0 {
			unranked = append(unranked, e)
		} else {
			ranked = append(ranked, e)
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.ToPar != b.ToPar {
			return a.ToPar < b.ToPar
		}
		return strings.ToLower(a.Name) < strings.ToLower(b.Name)
	})
	sort.SliceStable(unranked, func(i, j int) bool {
		return strings.ToLower(unranked[i].Name) < strings.ToLower(unranked[j].Name)
	})

	for i := range ranked {
		if i > 0 && ranked[i].ToPar == ranked[i-1].ToPar {
			ranked[i].Position = ranked[i-1].Position
		} else {
			ranked[i].Position = i + 1
		}
	}

	out := make([]TournamentEntry, 0, len(players))
	out = append(out, ranked...)
	return append(out, unranked...)
}

func groupRounds(rounds []Round) map[uuid.UUID][]Round {
	byUser := make(map[uuid.UUID][]Round)
	for _, r := range rounds {
		byUser[r.UserID] = append(byUser[r.UserID], r)
	}
	return byUser
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
