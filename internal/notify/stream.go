package notify

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// EmailRequested is the event type written to the notification stream.
const EmailRequested = "email.requested"

// Event is the envelope stored under the "event" field of each stream entry.
type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      Email     `json:"data"`
}

// Email is the payload a mail worker consumes.
type Email struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// StreamNotifier appends e-mail requests to a Redis stream for an external
// mail worker to deliver.
type StreamNotifier struct {
	client  redis.Cmdable
	stream  string
	from    string
	timeout time.Duration
}

// NewStreamNotifier returns a notifier writing to stream.
func NewStreamNotifier(client redis.Cmdable, stream, from string) *StreamNotifier {
	return &StreamNotifier{client: client, stream: stream, from: from, timeout: 2 * time.Second}
}

func (n *StreamNotifier) Send(ctx context.Context, to, subject, body string) bool {
	if to == "" {
		return false
	}
	event := Event{
		Type:      EmailRequested,
		Timestamp: time.Now().UTC(),
		Data:      Email{From: n.from, To: to, Subject: subject, Body: body},
	}
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("notify: marshal event failed: %v", err)
		return false
	}

	// detached from the request so a finished response does not cancel delivery
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
	defer cancel()

	args := &redis.XAddArgs{
		Stream: n.stream,
		Values: map[string]any{"event": payload},
	}
	if _, err := n.client.XAdd(sendCtx, args).Result(); err != nil {
		log.Printf("notify: publish to %s failed: %v", n.stream, err)
		return false
	}
	return true
}
