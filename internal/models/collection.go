package models

import "time"

// Collection is a named group of courses owned by a team. Access granted to a
// collection extends to every course currently linked into it.
type Collection struct {
	ID          string    `db:"id" json:"id"`
	TeamID      string    `db:"team_id" json:"team_id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// CollectionFilter captures filtering criteria for listing collections.
type CollectionFilter struct {
	TeamID    string
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
