// Package support records customer support messages.
package support

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hongminglow/hometown-ledger/internal/apperr"
	"github.com/hongminglow/hometown-ledger/internal/auth"
	"github.com/hongminglow/hometown-ledger/internal/models"
	"github.com/hongminglow/hometown-ledger/internal/storage"
)

const (
	maxSubjectLength = 200
	maxBodyLength    = 5000
	defaultCategory  = "general"
)

// Service opens support tickets.
type Service struct {
	store storage.Store
	now   func() time.Time
	newID func() string
}

// NewService returns a support service.
func NewService(store storage.Store) *Service {
	return &Service{store: store, now: time.Now, newID: uuid.NewString}
}

// Submit opens a ticket from the caller.
func (s *Service) Submit(ctx context.Context, actor auth.Actor, subject, body, category string) (models.Message, error) {
	if err := auth.Authorize(actor, auth.CapSendMessage); err != nil {
		return models.Message{}, err
	}
	subject = strings.TrimSpace(subject)
	body = strings.TrimSpace(body)
	switch {
	case subject == "" || body == "":
		return models.Message{}, apperr.New(apperr.Validation, "subject and body are required")
	case len(subject) > maxSubjectLength:
		return models.Message{}, apperr.New(apperr.Validation, "subject must be at most %d characters", maxSubjectLength)
	case len(body) > maxBodyLength:
		return models.Message{}, apperr.New(apperr.Validation, "body must be at most %d characters", maxBodyLength)
	}
	category = strings.ToLower(strings.TrimSpace(category))
	if category == "" {
		category = defaultCategory
	}

	msg := models.Message{
		ID:        s.newID(),
		SenderID:  actor.ID,
		Subject:   subject,
		Body:      body,
		Category:  category,
		Status:    models.TicketOpen,
		CreatedAt: s.now().UTC(),
	}
	err := s.store.WithinTx(ctx, func(repo storage.Repository) error {
		if _, err := repo.GetUser(ctx, actor.ID); err != nil {
			return err
		}
		return repo.CreateMessage(ctx, msg)
	})
	if err != nil {
		return models.Message{}, apperr.FromStorage(err, "user")
	}
	return msg, nil
}

// Open returns a ticket for an operator and marks it read.
func (s *Service) Open(ctx context.Context, actor auth.Actor, id string) (models.Message, error) {
	if err := auth.Authorize(actor, auth.CapAdmin); err != nil {
		return models.Message{}, err
	}
	var msg models.Message
	err := s.store.WithinTx(ctx, func(repo storage.Repository) error {
		var err error
		if msg, err = repo.GetMessage(ctx, id); err != nil {
			return err
		}
		if msg.Read {
			return nil
		}
		msg.Read = true
		return repo.UpdateMessage(ctx, msg)
	})
	if err != nil {
		return models.Message{}, apperr.FromStorage(err, "message")
	}
	return msg, nil
}

// SetStatus moves a ticket to status.
func (s *Service) SetStatus(ctx context.Context, actor auth.Actor, id string, status models.TicketStatus) (models.Message, error) {
	if err := auth.Authorize(actor, auth.CapAdmin); err != nil {
		return models.Message{}, err
	}
	if !status.Valid() {
		return models.Message{}, apperr.New(apperr.Validation, "ticketStatus must be one of open, in_progress, resolved, closed")
	}
	var msg models.Message
	err := s.store.WithinTx(ctx, func(repo storage.Repository) error {
		var err error
		if msg, err = repo.GetMessage(ctx, id); err != nil {
			return err
		}
		msg.Status = status
		return repo.UpdateMessage(ctx, msg)
	})
	if err != nil {
		return models.Message{}, apperr.FromStorage(err, "message")
	}
	return msg, nil
}

// Reply answers a ticket on behalf of the operator. The reply is addressed to
// the ticket's sender, and an open ticket moves to in_progress.
func (s *Service) Reply(ctx context.Context, actor auth.Actor, ticketID, body string) (models.Message, error) {
	if err := auth.Authorize(actor, auth.CapAdmin); err != nil {
		return models.Message{}, err
	}
	body = strings.TrimSpace(body)
	switch {
	case body == "":
		return models.Message{}, apperr.New(apperr.Validation, "reply body is required")
	case len(body) > maxBodyLength:
		return models.Message{}, apperr.New(apperr.Validation, "body must be at most %d characters", maxBodyLength)
	}

	var reply models.Message
	err := s.store.WithinTx(ctx, func(repo storage.Repository) error {
		ticket, err := repo.GetMessage(ctx, ticketID)
		if err != nil {
			return err
		}
		if ticket.Status == models.TicketOpen {
			ticket.Status = models.TicketInProgress
			if err := repo.UpdateMessage(ctx, ticket); err != nil {
				return err
			}
		}
		reply = models.Message{
			ID:          s.newID(),
			SenderID:    actor.ID,
			RecipientID: ticket.SenderID,
			Subject:     replySubject(ticket.Subject),
			Body:        body,
			Category:    ticket.Category,
			Status:      ticket.Status,
			CreatedAt:   s.now().UTC(),
		}
		return repo.CreateMessage(ctx, reply)
	})
	if err != nil {
		return models.Message{}, apperr.FromStorage(err, "ticket")
	}
	return reply, nil
}

func replySubject(subject string) string {
	if strings.HasPrefix(strings.ToUpper(subject), "RE:") {
		return subject
	}
	return "RE: " + subject
}
