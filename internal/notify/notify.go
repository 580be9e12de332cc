// Package notify provides application.Notifier implementations. Delivery is
// best-effort: senders report failure through their return values and never
// return errors to the workflow that triggered them.
package notify

import (
	"context"
	"log/slog"
	"net/mail"
	"strings"
)

// LogSender records messages in the structured log instead of delivering
// them. It stands in for the SMS and email providers.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender returns a sender that writes to logger, or slog.Default when nil.
func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger.With("component", "notify")}
}

// SendSMS logs text for a phone number. Blank numbers are rejected.
func (s *LogSender) SendSMS(ctx context.Context, to, text string) bool {
	to = strings.TrimSpace(to)
	if to == "" || ctx.Err() != nil {
		return false
	}
	s.logger.InfoContext(ctx, "sms sent", "to", maskPhone(to), "length", len(text))
	return true
}

// SendEmail logs an email. Addresses that do not parse are rejected.
func (s *LogSender) SendEmail(ctx context.Context, to, subject, body string) bool {
	if ctx.Err() != nil {
		return false
	}
	addr, err := mail.ParseAddress(strings.TrimSpace(to))
	if err != nil {
		s.logger.WarnContext(ctx, "email not sent", "reason", "invalid address", "error", err)
		return false
	}
	s.logger.InfoContext(ctx, "email sent", "to", addr.Address, "subject", subject, "length", len(body))
	return true
}

// SendBulkEmail sends the same email to every address and returns how many succeeded.
func (s *LogSender) SendBulkEmail(ctx context.Context, to []string, subject, body string) int {
	sent := 0
	for _, addr := range to {
		if s.SendEmail(ctx, addr, subject, body) {
			sent++
		}
	}
	return sent
}

func maskPhone(phone string) string {
	if len(phone) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(phone)-4) + phone[len(phone)-4:]
}
