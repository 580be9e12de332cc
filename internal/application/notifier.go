package application

import "context"

// Notifier delivers best-effort messages. Implementations report failure
// through the return value and never panic or block indefinitely.
type Notifier interface {
	SendSMS(ctx context.Context, to, text string) bool
	SendEmail(ctx context.Context, to, subject, body string) bool
	// SendBulkEmail returns how many recipients were sent the message.
	SendBulkEmail(ctx context.Context, to []string, subject, body string) int
}

type discardNotifier struct{}

func (discardNotifier) SendSMS(context.Context, string, string) bool { return false }

func (discardNotifier) SendEmail(context.Context, string, string, string) bool { return false }

func (discardNotifier) SendBulkEmail(context.Context, []string, string, string) int { return 0 }
