package handlers

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/IEEE-ISSATM-SB/PhoneCare/internal/infra/logger"
)

// NotificationDispatcher fans out account lifecycle events to downstream notifiers.
type NotificationDispatcher interface {
	SendWelcome(ctx context.Context, payload WelcomeNotification) error
	SendPasswordReset(ctx context.Context, payload PasswordResetNotification) error
}

// WelcomeNotification captures data needed to greet a freshly registered account.
type WelcomeNotification struct {
	Email string
	Name  *string
}

// PasswordResetNotification captures data needed to deliver a reset code.
type PasswordResetNotification struct {
	Contact string
	DevCode string
	Expires time.Time
}

type noopDispatcher struct{}

func (noopDispatcher) SendWelcome(ctx context.Context, payload WelcomeNotification) error {
	return nil
}

func (noopDispatcher) SendPasswordReset(ctx context.Context, payload PasswordResetNotification) error {
	return nil
}

// LoggingNotificationDispatcher records dispatch events for observability
// without delivering them.
type LoggingNotificationDispatcher struct {
	logger *zap.Logger
}

// NewLoggingNotificationDispatcher constructs a notification dispatcher backed by structured logging.
func NewLoggingNotificationDispatcher(log *zap.Logger) NotificationDispatcher {
	if log == nil {
		return noopDispatcher{}
	}
	return &LoggingNotificationDispatcher{logger: log}
}

func (d *LoggingNotificationDispatcher) SendWelcome(ctx context.Context, payload WelcomeNotification) error {
	if d == nil || d.logger == nil {
		return nil
	}

	fields := []zap.Field{
		zap.String("email", logger.MaskEmail(payload.Email)),
	}
	if payload.Name != nil && *payload.Name != "" {
		fields = append(fields, zap.String("name", *payload.Name))
	}

	d.logger.Info("dispatch welcome", fields...)
	return nil
}

func (d *LoggingNotificationDispatcher) SendPasswordReset(ctx context.Context, payload PasswordResetNotification) error {
	if d == nil || d.logger == nil {
		return nil
	}

	fields := []zap.Field{
		zap.String("contact", payload.Contact),
		zap.Time("expires_at", payload.Expires),
	}
	if payload.DevCode != "" {
		fields = append(fields, zap.String("dev_code", payload.DevCode))
	}

	d.logger.Info("dispatch password reset", fields...)
	return nil
}
