package models

import "time"

// TicketStatus tracks a support message through triage.
type TicketStatus string

const (
	TicketOpen       TicketStatus = "open"
	TicketInProgress TicketStatus = "in_progress"
	TicketResolved   TicketStatus = "resolved"
	TicketClosed     TicketStatus = "closed"
)

// Valid reports whether s is a known ticket status.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketOpen, TicketInProgress, TicketResolved, TicketClosed:
		return true
	}
	return false
}

// Message is a support ticket or operator reply.
type Message struct {
	ID          string       `json:"id"`
	SenderID    string       `json:"senderId"`
	RecipientID string       `json:"recipientId,omitempty"`
	Subject     string       `json:"subject"`
	Body        string       `json:"body"`
	Category    string       `json:"category"`
	Status      TicketStatus `json:"ticketStatus"`
	Read        bool         `json:"readByRecipient"`
	CreatedAt   time.Time    `json:"createdAt"`
}
