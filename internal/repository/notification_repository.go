package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/lumenlms/lumen-api/internal/models"
)

// NotificationRepository persists the notification outbox.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository constructs the repository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create inserts a queued outbox row.
func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	n.CreatedAt = now
	n.UpdatedAt = now
	if n.Status == "" {
		n.Status = models.NotificationStatusQueued
	}
	const query = `INSERT INTO notifications (id, recipients, subject, content, branding, status, attempts, created_at, updated_at)
VALUES (:id, :recipients, :subject, :content, :branding, :status, :attempts, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, n); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// MarkSent records successful delivery.
func (r *NotificationRepository) MarkSent(ctx context.Context, id string, attempts int) error {
	const query = `UPDATE notifications SET status = $2, attempts = $3, last_error = NULL, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.NotificationStatusSent, attempts, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark notification sent: %w", err)
	}
	return nil
}

// MarkFailed records a delivery failure with the last error message.
func (r *NotificationRepository) MarkFailed(ctx context.Context, id string, attempts int, lastError string) error {
	const query = `UPDATE notifications SET status = $2, attempts = $3, last_error = $4, updated_at = $5 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.NotificationStatusFailed, attempts, lastError, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark notification failed: %w", err)
	}
	return nil
}
