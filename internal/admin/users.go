package admin

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"regexp"
	"strings"

	"github.com/hongminglow/hometown-ledger/internal/apperr"
	"github.com/hongminglow/hometown-ledger/internal/auth"
	"github.com/hongminglow/hometown-ledger/internal/models"
	"github.com/hongminglow/hometown-ledger/internal/storage"
)

const minPasswordLength = 8

var (
	pinPattern     = regexp.MustCompile(`^[0-9]{4}$`)
	routingPattern = regexp.MustCompile(`^[0-9]{9}$`)
)

// NewUserRequest describes a customer created by an operator.
type NewUserRequest struct {
	Username      string
	Email         string
	Password      string
	FullName      string
	Phone         string
	Currency      string
	RoutingNumber string
	TransferPin   string
	Role          models.Role
}

func (r *NewUserRequest) normalize() error {
	r.Username = strings.ToLower(strings.TrimSpace(r.Username))
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.FullName = strings.TrimSpace(r.FullName)
	r.Phone = strings.TrimSpace(r.Phone)
	r.RoutingNumber = strings.TrimSpace(r.RoutingNumber)
	if r.Role == "" {
		r.Role = models.RoleUser
	}
	switch {
	case r.Username == "" || r.Email == "" || r.FullName == "":
		return apperr.New(apperr.Validation, "username, email and fullName are required")
	case len(r.Password) < minPasswordLength:
		return apperr.New(apperr.Validation, "password must be at least %d characters", minPasswordLength)
	case !r.Role.Valid():
		return apperr.New(apperr.Validation, "unknown role %q", r.Role)
	case r.RoutingNumber != "" && !routingPattern.MatchString(r.RoutingNumber):
		return apperr.New(apperr.Validation, "routingNumber must be exactly 9 digits")
	case r.TransferPin != "" && !pinPattern.MatchString(r.TransferPin):
		return apperr.New(apperr.Validation, "transferPin must be exactly 4 digits")
	}
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return apperr.New(apperr.Validation, "email is not a valid address")
	}
	return nil
}

// CreateUser provisions a customer with both accounts, a routing number and a
// transfer PIN. Secrets are hashed before they are stored. The generated PIN
// is never returned; operators set a known one with ResetTransferPin.
func (s *Service) CreateUser(ctx context.Context, actor auth.Actor, req NewUserRequest) (models.User, error) {
	if err := auth.Authorize(actor, auth.CapAdmin); err != nil {
		return models.User{}, err
	}
	user, err := s.createUser(ctx, req)
	if err != nil {
		return models.User{}, err
	}
	s.sendWelcome(ctx, user)
	return user, nil
}

func (s *Service) createUser(ctx context.Context, req NewUserRequest) (models.User, error) {
	if err := req.normalize(); err != nil {
		return models.User{}, err
	}
	currency := req.Currency
	if strings.TrimSpace(currency) == "" {
		currency = s.currency
	}
	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return models.User{}, apperr.Wrap(apperr.Internal, err, "hash password")
	}
	pin := req.TransferPin
	if pin == "" {
		if pin, err = s.gen.TransferPin(); err != nil {
			return models.User{}, apperr.Wrap(apperr.Internal, err, "generate transfer pin")
		}
	}
	pinHash, err := s.hasher.Hash(pin)
	if err != nil {
		return models.User{}, apperr.Wrap(apperr.Internal, err, "hash transfer pin")
	}

	retryable := func(field string) bool {
		return field == storage.FieldAccountNumber || (field == storage.FieldRoutingNumber && req.RoutingNumber == "")
	}
	var user models.User
	err = s.withRetry(ctx, retryable, func(repo storage.Repository) error {
		checking, savings, err := s.accounts.Provision(ctx, repo, currency)
		if err != nil {
			return err
		}
		routing := req.RoutingNumber
		if routing == "" {
			if routing, err = s.gen.RoutingNumber(ctx, repo.RoutingNumberExists); err != nil {
				return err
			}
		}
		now := s.now().UTC()
		user = models.User{
			ID:              s.newID(),
			Username:        req.Username,
			Email:           req.Email,
			FullName:        req.FullName,
			Phone:           req.Phone,
			Role:            req.Role,
			RoutingNumber:   routing,
			Status:          models.UserActive,
			PasswordHash:    passwordHash,
			TransferPinHash: pinHash,
			Checking:        checking,
			Savings:         savings,
			Cards:           []models.Card{},
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		return repo.CreateUser(ctx, user)
	})
	if err != nil {
		if apperr.Is(err, apperr.GenerationExhausted) {
			return models.User{}, err
		}
		var conflict *storage.ConflictError
		if errors.As(err, &conflict) {
			return models.User{}, apperr.Wrap(apperr.Conflict, err, "user with this %s already exists", conflict.Field)
		}
		return models.User{}, apperr.FromStorage(err, "user")
	}
	return user, nil
}

func (s *Service) sendWelcome(ctx context.Context, user models.User) {
	body := fmt.Sprintf(
		"Dear %s,\n\nYour account has been created by our administrator.\n\n"+
			"Username: %s\nEmail: %s\nChecking Account Number: %s\nSavings Account Number: %s\nRouting Number: %s\n\n"+
			"You can log in using your username and the password provided by the administrator.\n",
		user.FullName, user.Username, user.Email, user.Checking.Number, user.Savings.Number, user.RoutingNumber,
	)
	s.notify(ctx, user.Email, "Welcome to Hometown Bank! Your New Account Details", body)
}

// EnsureAdmin creates the bootstrap operator unless a user with that username
// or email already exists. It runs with system authority.
func (s *Service) EnsureAdmin(ctx context.Context, username, email, password string) (models.User, bool, error) {
	var existing models.User
	err := s.store.Read(ctx, func(repo storage.Repository) error {
		var err error
		existing, err = repo.FindUserByLogin(ctx, strings.ToLower(strings.TrimSpace(username)))
		if errors.Is(err, storage.ErrNotFound) {
			existing, err = repo.FindUserByLogin(ctx, strings.ToLower(strings.TrimSpace(email)))
		}
		return err
	})
	switch {
	case err == nil:
		return existing, false, nil
	case !errors.Is(err, storage.ErrNotFound):
		return models.User{}, false, apperr.FromStorage(err, "user")
	}

	user, err := s.createUser(ctx, NewUserRequest{
		Username: username,
		Email:    email,
		Password: password,
		FullName: "Administrator",
		Role:     models.RoleAdmin,
	})
	if err != nil {
		return models.User{}, false, err
	}
	log.Printf("admin: bootstrap operator %s created", user.Username)
	return user, true, nil
}

// ResetTransferPin replaces a user's PIN with a new 4-digit value and, when
// asked, sends it to the user.
func (s *Service) ResetTransferPin(ctx context.Context, actor auth.Actor, userID, pin string, notifyUser bool) (bool, error) {
	if err := auth.Authorize(actor, auth.CapAdmin); err != nil {
		return false, err
	}
	if !pinPattern.MatchString(pin) {
		return false, apperr.New(apperr.Validation, "transfer PIN must be exactly 4 digits")
	}
	pinHash, err := s.hasher.Hash(pin)
	if err != nil {
		return false, apperr.Wrap(apperr.Internal, err, "hash transfer pin")
	}

	var user models.User
	err = s.store.WithinTx(ctx, func(repo storage.Repository) error {
		var err error
		if user, err = repo.LockUser(ctx, userID); err != nil {
			return err
		}
		return repo.SetTransferPin(ctx, userID, pinHash)
	})
	if err != nil {
		return false, apperr.FromStorage(err, "user")
	}
	if !notifyUser {
		return false, nil
	}
	body := fmt.Sprintf("Dear %s,\n\nYour transfer PIN has been reset by an administrator.\nYour new transfer PIN is: %s\n", user.FullName, pin)
	return s.notify(ctx, user.Email, "Your transfer PIN has been reset", body), nil
}

// SetUserStatus changes the administrative status of a user.
func (s *Service) SetUserStatus(ctx context.Context, actor auth.Actor, userID string, status models.UserStatus) (models.User, error) {
	if err := auth.Authorize(actor, auth.CapAdmin); err != nil {
		return models.User{}, err
	}
	if !status.Valid() {
		return models.User{}, apperr.New(apperr.Validation, "invalid status %q", status)
	}
	var user models.User
	err := s.store.WithinTx(ctx, func(repo storage.Repository) error {
		if err := repo.SetUserStatus(ctx, userID, status); err != nil {
			return err
		}
		var err error
		user, err = repo.GetUser(ctx, userID)
		return err
	})
	if err != nil {
		return models.User{}, apperr.FromStorage(err, "user")
	}
	return user, nil
}

// DeleteSummary counts what a user deletion removed.
type DeleteSummary struct {
	Transactions int `json:"transactionsDeleted"`
	Messages     int `json:"messagesDeleted"`
}

// DeleteUser removes a user's transactions and messages and then the user,
// all in one unit. Other users' transactions keep their rows but lose the
// reference to the deleted user.
func (s *Service) DeleteUser(ctx context.Context, actor auth.Actor, userID string) (DeleteSummary, error) {
	if err := auth.Authorize(actor, auth.CapAdmin); err != nil {
		return DeleteSummary{}, err
	}
	if userID == actor.ID {
		return DeleteSummary{}, apperr.New(apperr.Validation, "administrators cannot delete their own account")
	}
	var summary DeleteSummary
	err := s.store.WithinTx(ctx, func(repo storage.Repository) error {
		if _, err := repo.LockUser(ctx, userID); err != nil {
			return err
		}
		var err error
		if summary.Transactions, err = repo.DeleteTransactionsByUser(ctx, userID); err != nil {
			return err
		}
		if err = repo.DetachCounterparty(ctx, userID); err != nil {
			return err
		}
		if summary.Messages, err = repo.DeleteMessagesByUser(ctx, userID); err != nil {
			return err
		}
		return repo.DeleteUser(ctx, userID)
	})
	if err != nil {
		return DeleteSummary{}, apperr.FromStorage(err, "user")
	}
	log.Printf("admin: user %s deleted by %s (%d transactions, %d messages)", userID, actor.ID, summary.Transactions, summary.Messages)
	return summary, nil
}
