package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lumenlms/lumen-api/internal/models"
	"github.com/lumenlms/lumen-api/pkg/config"
	"github.com/lumenlms/lumen-api/pkg/jobs"
)

// NotificationDispatcher accepts fully rendered messages for delivery.
// Callers never block on delivery; messages are persisted and sent by
// background workers.
type NotificationDispatcher interface {
	Dispatch(ctx context.Context, msg models.NotificationMessage) error
}

// NotificationSender performs the actual delivery of one message.
type NotificationSender interface {
	Send(ctx context.Context, msg models.NotificationMessage) error
}

// LogSender writes messages to the structured log instead of delivering
// them. It is the default sender for environments without a mail provider.
type LogSender struct {
	From   string
	Logger *zap.Logger
}

func (s *LogSender) Send(_ context.Context, msg models.NotificationMessage) error {
	logger := s.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("notification delivered",
		zap.String("from", s.From),
		zap.Strings("recipients", msg.Recipients),
		zap.String("subject", msg.Subject),
		zap.String("branding", msg.Branding),
	)
	return nil
}

type notificationOutbox interface {
	Create(ctx context.Context, n *models.Notification) error
	MarkSent(ctx context.Context, id string, attempts int) error
	MarkFailed(ctx context.Context, id string, attempts int, lastError string) error
}

// NotificationService persists every message to the outbox and delivers it
// through a worker queue with retries.
type NotificationService struct {
	outbox  notificationOutbox
	sender  NotificationSender
	queue   *jobs.Queue
	enabled bool
	logger  *zap.Logger
}

// NewNotificationService constructs NotificationService.
func NewNotificationService(outbox notificationOutbox, sender NotificationSender, cfg config.NotificationsConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sender == nil {
		sender = &LogSender{From: cfg.DefaultSender, Logger: logger}
	}
	s := &NotificationService{
		outbox:  outbox,
		sender:  sender,
		enabled: cfg.Enabled,
		logger:  logger,
	}
	s.queue = jobs.NewQueue("notifications", s.handleJob, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return s
}

// Start launches the delivery workers.
func (s *NotificationService) Start(ctx context.Context) {
	if !s.enabled {
		s.logger.Info("notification delivery disabled")
		return
	}
	s.queue.Start(ctx)
}

// Stop drains the workers.
func (s *NotificationService) Stop() {
	if !s.enabled {
		return
	}
	s.queue.Stop()
}

// Dispatch records the message in the outbox and queues it for delivery.
// When delivery is disabled the outbox row is still written so nothing is
// silently lost.
func (s *NotificationService) Dispatch(ctx context.Context, msg models.NotificationMessage) error {
	if len(msg.Recipients) == 0 {
		return nil
	}

	now := time.Now().UTC()
	row := &models.Notification{
		ID:         uuid.NewString(),
		Recipients: strings.Join(msg.Recipients, ","),
		Subject:    msg.Subject,
		Content:    msg.Content,
		Branding:   msg.Branding,
		Status:     models.NotificationStatusQueued,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.outbox.Create(ctx, row); err != nil {
		return err
	}
	if !s.enabled {
		return nil
	}
	return s.queue.Enqueue(jobs.Job{
		ID:      row.ID,
		Type:    "notification",
		Payload: msg,
	})
}

func (s *NotificationService) handleJob(ctx context.Context, job jobs.Job) error {
	msg, ok := job.Payload.(models.NotificationMessage)
	if !ok {
		s.logger.Error("unexpected notification payload", zap.String("job_id", job.ID))
		return nil
	}

	attempts := job.Attempt + 1
	if err := s.sender.Send(ctx, msg); err != nil {
		if markErr := s.outbox.MarkFailed(ctx, job.ID, attempts, err.Error()); markErr != nil {
			s.logger.Error("failed to mark notification failed", zap.String("job_id", job.ID), zap.Error(markErr))
		}
		return err
	}
	if err := s.outbox.MarkSent(ctx, job.ID, attempts); err != nil {
		s.logger.Error("failed to mark notification sent", zap.String("job_id", job.ID), zap.Error(err))
	}
	return nil
}
