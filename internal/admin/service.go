// Package admin holds the privileged operations performed by bank operators.
// None of them require a transfer PIN; all of them require the admin capability.
package admin

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hongminglow/hometown-ledger/internal/accounts"
	"github.com/hongminglow/hometown-ledger/internal/apperr"
	"github.com/hongminglow/hometown-ledger/internal/auth"
	"github.com/hongminglow/hometown-ledger/internal/ids"
	"github.com/hongminglow/hometown-ledger/internal/models"
	"github.com/hongminglow/hometown-ledger/internal/notify"
	"github.com/hongminglow/hometown-ledger/internal/storage"
)

// unitAttempts bounds whole-unit retries after a generated identifier loses
// an insert race.
const unitAttempts = 3

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

// Service implements the admin operations.
type Service struct {
	store    storage.Store
	accounts *accounts.Service
	gen      *ids.Generator
	hasher   auth.Hasher
	notifier notify.Notifier
	currency string
	now      func() time.Time
	newID    func() string
}

// Config carries the collaborators of Service.
type Config struct {
	Store           storage.Store
	Accounts        *accounts.Service
	Generator       *ids.Generator
	Hasher          auth.Hasher
	Notifier        notify.Notifier
	DefaultCurrency string
}

// NewService builds an admin service.
func NewService(cfg Config) *Service {
	currency := cfg.DefaultCurrency
	if currency == "" {
		currency = "USD"
	}
	return &Service{
		store:    cfg.Store,
		accounts: cfg.Accounts,
		gen:      cfg.Generator,
		hasher:   cfg.Hasher,
		notifier: cfg.Notifier,
		currency: currency,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// withRetry runs fn in a unit of work, starting over when an identifier
// generated inside it collides with a row committed concurrently.
func (s *Service) withRetry(ctx context.Context, retryable func(field string) bool, fn func(storage.Repository) error) error {
	var err error
	for attempt := 1; attempt <= unitAttempts; attempt++ {
		err = s.store.WithinTx(ctx, fn)
		var conflict *storage.ConflictError
		if !errors.As(err, &conflict) || !retryable(conflict.Field) {
			return err
		}
		log.Printf("admin: %s collided at insert, retrying (attempt %d)", conflict.Field, attempt)
	}
	return apperr.Wrap(apperr.GenerationExhausted, err, "could not allocate unique identifiers")
}

func (s *Service) notify(ctx context.Context, to, subject, body string) bool {
	if s.notifier == nil {
		return false
	}
	if !s.notifier.Send(ctx, to, subject, body) {
		log.Printf("admin: notification %q to %s not delivered", subject, to)
		return false
	}
	return true
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

// GetUser returns one user with accounts and cards.
func (s *Service) GetUser(ctx context.Context, actor auth.Actor, userID string) (models.User, error) {
	if err := auth.Authorize(actor, auth.CapAdmin); err != nil {
		return models.User{}, err
	}
	var user models.User
	err := s.store.Read(ctx, func(repo storage.Repository) error {
		var err error
		user, err = repo.GetUser(ctx, userID)
		return err
	})
	return user, apperr.FromStorage(err, "user")
}

// FindUser resolves identifier as a username, e-mail, account number or
// routing number, in that order.
func (s *Service) FindUser(ctx context.Context, actor auth.Actor, identifier string) (models.User, error) {
	if err := auth.Authorize(actor, auth.CapAdmin); err != nil {
		return models.User{}, err
	}
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return models.User{}, apperr.New(apperr.Validation, "identifier (email, username, account number, or routing number) is required")
	}
	var user models.User
	err := s.store.Read(ctx, func(repo storage.Repository) error {
		var err error
		user, err = repo.FindUserByLogin(ctx, strings.ToLower(identifier))
		if !errors.Is(err, storage.ErrNotFound) {
			return err
		}
		owned, err := repo.FindAccount(ctx, identifier)
		if err == nil {
			user, err = repo.GetUser(ctx, owned.UserID)
			return err
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return err
		}
		user, err = repo.FindUserByRoutingNumber(ctx, identifier)
		return err
	})
	return user, apperr.FromStorage(err, "user")
}

// ListUsers returns users, newest first.
func (s *Service) ListUsers(ctx context.Context, actor auth.Actor, limit int) ([]models.User, error) {
	if err := auth.Authorize(actor, auth.CapAdmin); err != nil {
		return nil, err
	}
	var users []models.User
	err := s.store.Read(ctx, func(repo storage.Repository) error {
		var err error
		users, err = repo.ListUsers(ctx, clampLimit(limit))
		return err
	})
	return users, apperr.FromStorage(err, "user")
}

// ListTransactions returns transactions matching filter, newest first.
func (s *Service) ListTransactions(ctx context.Context, actor auth.Actor, filter storage.TransactionFilter) ([]models.Transaction, error) {
	if err := auth.Authorize(actor, auth.CapAdmin); err != nil {
		return nil, err
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, apperr.New(apperr.Validation, "unknown status %q", filter.Status)
	}
	filter.Limit = clampLimit(filter.Limit)
	var out []models.Transaction
	err := s.store.Read(ctx, func(repo storage.Repository) error {
		var err error
		out, err = repo.ListTransactions(ctx, filter)
		return err
	})
	return out, apperr.FromStorage(err, "transaction")
}

// GetTransaction returns one transaction.
func (s *Service) GetTransaction(ctx context.Context, actor auth.Actor, id string) (models.Transaction, error) {
	if err := auth.Authorize(actor, auth.CapAdmin); err != nil {
		return models.Transaction{}, err
	}
	var tx models.Transaction
	err := s.store.Read(ctx, func(repo storage.Repository) error {
		var err error
		tx, err = repo.GetTransaction(ctx, id)
		return err
	})
	return tx, apperr.FromStorage(err, "transaction")
}

// ListMessages returns support messages, newest first. An empty userID lists all.
func (s *Service) ListMessages(ctx context.Context, actor auth.Actor, userID string, limit int) ([]models.Message, error) {
	if err := auth.Authorize(actor, auth.CapAdmin); err != nil {
		return nil, err
	}
	var out []models.Message
	err := s.store.Read(ctx, func(repo storage.Repository) error {
		var err error
		out, err = repo.ListMessages(ctx, userID, clampLimit(limit))
		return err
	})
	return out, apperr.FromStorage(err, "message")
}
