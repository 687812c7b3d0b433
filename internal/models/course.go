package models

import "time"

// Course is a published learning unit owned by exactly one team.
type Course struct {
	ID          string    `db:"id" json:"id"`
	TeamID      string    `db:"team_id" json:"team_id"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description,omitempty"`
	Published   bool      `db:"published" json:"published"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// CourseFilter captures filtering criteria for listing courses.
type CourseFilter struct {
	TeamID    string
	Published *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// RosterEntry is a denormalized accepted learner row for exports.
type RosterEntry struct {
	UserID     string    `db:"user_id" json:"user_id"`
	Email      string    `db:"email" json:"email"`
	FullName   string    `db:"full_name" json:"full_name"`
	TeamName   string    `db:"team_name" json:"team_name"`
	AcceptedAt time.Time `db:"accepted_at" json:"accepted_at"`
}
