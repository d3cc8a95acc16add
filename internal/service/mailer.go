package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/feedback-service/internal/config"
	apperrors "github.com/spec-kit/feedback-service/pkg/util"
)

// LogMailer records outbound mail in the log instead of delivering it.
// It stands in for a real SMTP sender in environments without one.
type LogMailer struct {
	from   string
	logger *zap.Logger
}

// NewLogMailer creates a mailer from notification config. Returns nil
// when no sender address is configured, which disables outbound mail.
func NewLogMailer(cfg config.NotificationConfig, logger *zap.Logger) *LogMailer {
	if cfg.EmailFrom == "" {
		return nil
	}
	return &LogMailer{from: cfg.EmailFrom, logger: logger}
}

// Send logs the outbound message.
func (m *LogMailer) Send(ctx context.Context, to, subject, body string) error {
	if to == "" {
		return apperrors.NewValidationError("recipient address required", nil)
	}
	m.logger.Info("outbound mail",
		zap.String("from", m.from),
		zap.String("to", to),
		zap.String("subject", subject),
		zap.Int("body_bytes", len(body)))
	return nil
}
