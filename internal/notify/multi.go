package notify

import "context"

// Sender is the delivery contract shared with the application layer.
type Sender interface {
	SendSMS(ctx context.Context, to, text string) bool
	SendEmail(ctx context.Context, to, subject, body string) bool
	SendBulkEmail(ctx context.Context, to []string, subject, body string) int
}

// Multi fans each message out to every sender. A message counts as sent
// when at least one sender accepted it.
type Multi []Sender

func (m Multi) SendSMS(ctx context.Context, to, text string) bool {
	ok := false
	for _, s := range m {
		ok = s.SendSMS(ctx, to, text) || ok
	}
	return ok
}

func (m Multi) SendEmail(ctx context.Context, to, subject, body string) bool {
	ok := false
	for _, s := range m {
		ok = s.SendEmail(ctx, to, subject, body) || ok
	}
	return ok
}

// SendBulkEmail reports the best per-sender count.
func (m Multi) SendBulkEmail(ctx context.Context, to []string, subject, body string) int {
	best := 0
	for _, s := range m {
		if n := s.SendBulkEmail(ctx, to, subject, body); n > best {
			best = n
		}
	}
	return best
}
