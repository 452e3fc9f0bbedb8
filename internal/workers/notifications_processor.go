// internal/workers/notifications_processor.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/smtp"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hibiken/asynq"
	"github.com/sony/gobreaker"

	"github.com/akash684/bloodbank-be/internal/core/domain"
	"github.com/akash684/bloodbank-be/internal/core/ports"
	"github.com/akash684/bloodbank-be/internal/pkg/config"
)

// NotificationProcessor delivers stored notifications to external
// channels: email to the target user and an optional webhook. Failures
// here never touch the stored notification row.
type NotificationProcessor struct {
	users   ports.UserRepository
	config  *config.Config
	logger  *slog.Logger
	webhook *resty.Client
	breaker *gobreaker.CircuitBreaker
}

// NewNotificationProcessor creates a new notification processor
func NewNotificationProcessor(users ports.UserRepository, cfg *config.Config, logger *slog.Logger) *NotificationProcessor {
	client := resty.New().
		SetTimeout(10 * time.Second).
		SetHeader("Content-Type", "application/json")

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "notification-webhook",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &NotificationProcessor{
		users:   users,
		config:  cfg,
		logger:  logger.With(slog.String("processor", "notification")),
		webhook: client,
		breaker: breaker,
	}
}

// DeliverNotification handles a queued delivery task
func (p *NotificationProcessor) DeliverNotification(ctx context.Context, t *asynq.Task) error {
	var payload NotificationDeliverPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	p.logger.InfoContext(ctx, "delivering notification",
		slog.String("notification_id", payload.NotificationID.String()),
		slog.String("type", string(payload.Type)))

	user, err := p.users.FindByID(ctx, payload.UserID)
	if err != nil {
		return fmt.Errorf("failed to load notification target: %w", err)
	}
	if user == nil {
		p.logger.WarnContext(ctx, "notification target no longer exists",
			slog.String("user_id", payload.UserID.String()))
		return nil
	}

	if err := p.sendEmail(ctx, user.Email, payload.Title, payload.Message); err != nil {
		p.logger.WarnContext(ctx, "email delivery failed",
			slog.String("notification_id", payload.NotificationID.String()),
			slog.String("error", err.Error()))
	}

	if url := p.config.Notifications.WebhookURL; url != "" {
		if err := p.postWebhook(ctx, url, payload); err != nil {
			p.logger.WarnContext(ctx, "webhook delivery failed",
				slog.String("notification_id", payload.NotificationID.String()),
				slog.String("error", err.Error()))
		}
	}

	return nil
}

func (p *NotificationProcessor) sendEmail(ctx context.Context, to, subject, body string) error {
	// In development, just log the email
	if p.config.App.Environment == "development" {
		p.logger.InfoContext(ctx, "email would be sent",
			slog.String("to", to),
			slog.String("subject", subject),
			slog.String("body", body))
		return nil
	}

	from := p.config.Notifications.EmailFrom
	msg := []byte(fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		from, to, subject, body,
	))

	host := p.config.Notifications.SMTPHost
	auth := smtp.PlainAuth("", p.config.Notifications.SMTPUser, p.config.Notifications.SMTPPassword, host)
	addr := fmt.Sprintf("%s:%d", host, p.config.Notifications.SMTPPort)

	if err := smtp.SendMail(addr, auth, from, []string{to}, msg); err != nil {
		return &domain.NotificationDeliveryError{Channel: "email", Err: err}
	}

	return nil
}

func (p *NotificationProcessor) postWebhook(ctx context.Context, url string, payload NotificationDeliverPayload) error {
	_, err := p.breaker.Execute(func() (interface{}, error) {
		resp, err := p.webhook.R().
			SetContext(ctx).
			SetBody(payload).
			Post(url)
		if err != nil {
			return nil, err
		}
		if resp.IsError() {
			return nil, fmt.Errorf("webhook returned status %d", resp.StatusCode())
		}
		return nil, nil
	})
	if err != nil {
		return &domain.NotificationDeliveryError{Channel: "webhook", Err: err}
	}
	return nil
}
