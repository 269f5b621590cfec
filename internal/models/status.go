package models

import "time"

// TournamentStatus is derived from a tournament's dates; it is never stored.
type TournamentStatus string

const (
	TournamentStatusPending TournamentStatus = "Pending" // Starts in the future
	TournamentStatusLive    TournamentStatus = "Live"    // Today falls inside the date range
	TournamentStatusClosed  TournamentStatus = "Closed"  // Ended before today
)

// DateLayout is the wire format for every calendar date in the API.
const DateLayout = "2006-01-02"

// StatusOn derives the tournament's status for the calendar day of now.
// Both ends of the range are inclusive, and only the date part of each
// value is compared, so a tournament ending today is still Live.
func (t *Tournament) StatusOn(now time.Time) TournamentStatus {
	return StatusBetween(t.StartDate, t.EndDate, now)
}

// StatusBetween is StatusOn for a bare date range.
func StatusBetween(start, end, now time.Time) TournamentStatus {
	today := truncateDay(now)
	switch {
	case today.Before(truncateDay(start)):
		return TournamentStatusPending
	case today.After(truncateDay(end)):
		return TournamentStatusClosed
	default:
		return TournamentStatusLive
	}
}

// truncateDay drops the clock part, keeping the calendar date as written.
// The date is read in the value's own location so a date stored as midnight
// UTC is not shifted a day by a local timezone.
func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
