// Package models defines the data structures (models) that map to database tables.
// GORM uses these structs to generate SQL queries and map database rows back to Go values.
// The struct field tags (the backtick strings like `gorm:"..."`) tell GORM how to handle
// each field, and the json tags give the exact field names the web client reads.
//
// The data model represents a golf scorekeeping platform where:
//   - Users record Scores for rounds played at Courses
//   - Tournaments span a date range, have Participants, and schedule Courses on play dates
//   - Scores may optionally belong to a Tournament
//
// The SQL schema lives in internal/database/migrations; these structs mirror it.
package models

import (
	"time"

	// uuid provides universally unique identifiers for primary keys.
	// IDs are generated here in Go (BeforeCreate hooks) so the same models work
	// against Postgres in production and SQLite in tests.
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- Enums ---

// UserRole represents a user's global permission level.
type UserRole string

const (
	UserRoleAdmin UserRole = "admin" // Manage users, courses, tournaments
	UserRoleUser  UserRole = "user"  // Regular player: records their own scores
)

// Valid reports whether r is one of the known roles.
func (r UserRole) Valid() bool {
	return r == UserRoleAdmin || r == UserRoleUser
}

// --- Models ---

// AuthAccount is a sign-in identity: an email and a bcrypt password hash.
// It is owned by the auth package; the profile data lives in User.
type AuthAccount struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"` // never serialised
	CreatedAt    time.Time `json:"created_at"`
}

// BeforeCreate assigns a UUID primary key if one isn't set yet.
func (a *AuthAccount) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// User is the player profile. There is exactly one User per AuthAccount,
// linked through AuthUserID. Users are created at sign-up, or lazily the
// first time an account without a profile signs in.
type User struct {
	UserID     uuid.UUID `gorm:"column:user_id;type:uuid;primaryKey" json:"user_id"`
	AuthUserID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"auth_user_id"`
	Name       string    `gorm:"not null;default:''" json:"name"`
	Email      string    `gorm:"not null" json:"email"`
	Handicap   *float64  `json:"handicap"` // nil until the player sets one
	UserRole   UserRole  `gorm:"column:user_role;not null;default:'user'" json:"user_role"`
	CreatedAt  time.Time `json:"created_at"`
}

// BeforeCreate assigns a UUID primary key if one isn't set yet.
func (u *User) BeforeCreate(*gorm.DB) error {
	if u.UserID == uuid.Nil {
		u.UserID = uuid.New()
	}
	return nil
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.UserRole == UserRoleAdmin
}

// Course is a golf course where scores are recorded.
type Course struct {
	CourseID    uuid.UUID `gorm:"column:course_id;type:uuid;primaryKey" json:"course_id"`
	Name        string    `gorm:"not null" json:"name"`
	Location    string    `gorm:"not null" json:"location"`
	Par         int       `gorm:"not null" json:"par"`
	SlopeValue  *int      `json:"slope_value"`  // USGA slope rating (55–155); optional
	CourseValue *float64  `json:"course_value"` // USGA course rating (e.g. 71.3); optional
	CreatedBy   uuid.UUID `gorm:"type:uuid;not null" json:"created_by"`
}

// BeforeCreate assigns a UUID primary key if one isn't set yet.
func (c *Course) BeforeCreate(*gorm.DB) error {
	if c.CourseID == uuid.Nil {
		c.CourseID = uuid.New()
	}
	return nil
}

// Score is one recorded round: the total strokes a user took at a course on a date.
type Score struct {
	ScoreID      uuid.UUID  `gorm:"column:score_id;type:uuid;primaryKey" json:"score_id"`
	UserID       uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	CourseID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"course_id"`
	TournamentID *uuid.UUID `gorm:"type:uuid;index" json:"tournament_id"` // nil for a casual round
	ScoreValue   int        `gorm:"not null" json:"score_value"`
	DatePlayed   time.Time  `gorm:"not null" json:"-"`
	Notes        *string    `json:"notes"`
}

// BeforeCreate assigns a UUID primary key if one isn't set yet.
func (s *Score) BeforeCreate(*gorm.DB) error {
	if s.ScoreID == uuid.Nil {
		s.ScoreID = uuid.New()
	}
	return nil
}

// Tournament is a competition running from StartDate to EndDate (inclusive).
type Tournament struct {
	TournamentID uuid.UUID `gorm:"column:tournament_id;type:uuid;primaryKey" json:"tournament_id"`
	Name         string    `gorm:"not null" json:"name"`
	StartDate    time.Time `gorm:"not null" json:"-"`
	EndDate      time.Time `gorm:"not null" json:"-"`
	CreatedBy    uuid.UUID `gorm:"type:uuid;not null" json:"created_by"`
}

// BeforeCreate assigns a UUID primary key if one isn't set yet.
func (t *Tournament) BeforeCreate(*gorm.DB) error {
	if t.TournamentID == uuid.Nil {
		t.TournamentID = uuid.New()
	}
	return nil
}

// TournamentParticipant registers a user in a tournament.
// The unique index prevents registering the same user twice.
type TournamentParticipant struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TournamentID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_tournament_user" json:"tournament_id"`
	UserID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_tournament_user" json:"user_id"`
}

// BeforeCreate assigns a UUID primary key if one isn't set yet.
func (p *TournamentParticipant) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// TournamentCourse schedules a course in a tournament on a specific play date.
type TournamentCourse struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TournamentID uuid.UUID `gorm:"type:uuid;not null;index" json:"tournament_id"`
	CourseID     uuid.UUID `gorm:"type:uuid;not null;index" json:"course_id"`
	PlayDate     time.Time `gorm:"not null" json:"-"`
}

// BeforeCreate assigns a UUID primary key if one isn't set yet.
func (tc *TournamentCourse) BeforeCreate(*gorm.DB) error {
	if tc.ID == uuid.Nil {
		tc.ID = uuid.New()
	}
	return nil
}

// All lists every model, in dependency order. Used by tests to auto-migrate
// an in-memory database with the same tables the SQL migrations create.
func All() []any {
	return []any{
		&AuthAccount{},
		&User{},
		&Course{},
		&Tournament{},
		&Score{},
		&TournamentParticipant{},
		&TournamentCourse{},
	}
}
