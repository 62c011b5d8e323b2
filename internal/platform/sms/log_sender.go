package sms

import (
	"context"
	"log/slog"

	"github.com/voltlab/voltlab-api/internal/domain"
	"github.com/voltlab/voltlab-api/internal/verification"
)

// LogSender logs codes instead of sending them. Used in development when
// no gateway URL is configured.
type LogSender struct {
	logger *slog.Logger
}

// Ensure LogSender implements Sender interface
var _ Sender = (*LogSender)(nil)

// NewLogSender creates a sender that only logs.
// If logger is nil, a default logger will be used.
func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger.With(slog.String("component", "sms"))}
}

// Send implements the Sender interface by logging the code.
func (s *LogSender) Send(ctx context.Context, phoneNumber, code string, scene verification.Scene) error {
	s.logger.InfoContext(ctx, "sms sending disabled, logging code instead",
		"phone", domain.MaskPhoneNumber(phoneNumber),
		"code", code,
		"scene", string(scene))
	return nil
}
