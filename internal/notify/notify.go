// Package notify delivers best-effort e-mail notifications.
package notify

import (
	"context"
	"log"
)

// Notifier sends one message. It reports success and never returns an error:
// callers log the outcome and carry on.
type Notifier interface {
	Send(ctx context.Context, to, subject, body string) bool
}

// LogNotifier writes notifications to the process log. Used when no outbox
// is configured.
type LogNotifier struct {
	From string
}

func (n LogNotifier) Send(_ context.Context, to, subject, _ string) bool {
	if to == "" {
		return false
	}
	log.Printf("notify: from=%q to=%q subject=%q", n.From, to, subject)
	return true
}
