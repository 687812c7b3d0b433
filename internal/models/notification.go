package models

import "time"

// NotificationStatus tracks outbox delivery state.
type NotificationStatus string

const (
	NotificationStatusQueued NotificationStatus = "QUEUED"
	NotificationStatusSent   NotificationStatus = "SENT"
	NotificationStatusFailed NotificationStatus = "FAILED"
)

// NotificationMessage is the payload handed to the dispatcher. The core never
// renders templates; Content arrives fully built.
type NotificationMessage struct {
	Recipients []string `json:"recipients"`
	Subject    string   `json:"subject"`
	Content    string   `json:"content"`
	// Branding is the sender team's branding label, empty for platform default.
	Branding string `json:"branding,omitempty"`
}

// Notification is a persisted outbox row for a dispatched message.
type Notification struct {
	ID         string             `db:"id" json:"id"`
	Recipients string             `db:"recipients" json:"recipients"`
	Subject    string             `db:"subject" json:"subject"`
	Content    string             `db:"content" json:"content"`
	Branding   string             `db:"branding" json:"branding,omitempty"`
	Status     NotificationStatus `db:"status" json:"status"`
	Attempts   int                `db:"attempts" json:"attempts"`
	LastError  *string            `db:"last_error" json:"last_error,omitempty"`
	CreatedAt  time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time          `db:"updated_at" json:"updated_at"`
}
