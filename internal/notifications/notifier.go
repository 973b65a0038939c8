// Package notifications delivers user-facing messages. Delivery is best effort:
// failures are logged and counted, never returned to the jobs.
package notifications

import "context"

type Message struct {
	To      string
	Subject string
	Body    string
}

// Notifier is the fire-and-forget capability the jobs depend on.
type Notifier interface {
	Notify(to, subject, body string)
}

// Channel is one delivery route (email, chat webhook, log).
type Channel interface {
	Name() string
	Deliver(ctx context.Context, m Message) error
}
