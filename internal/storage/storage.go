package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hongminglow/hometown-ledger/internal/models"
	"github.com/shopspring/decimal"
)

// ErrNotFound indicates a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a uniqueness conflict.
var ErrAlreadyExists = errors.New("record already exists")

// ErrInsufficientFunds is returned when a balance adjustment would go negative.
var ErrInsufficientFunds = errors.New("insufficient funds")

// ErrOutOfRange is returned when a stored amount would exceed MaxAmount.
var ErrOutOfRange = errors.New("value out of range")

// ErrUnavailable indicates the backing store could not complete the call in time.
var ErrUnavailable = errors.New("storage unavailable")

// ConflictError names the unique field that rejected a write.
type ConflictError struct {
	Field string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("duplicate %s", e.Field)
}

func (e *ConflictError) Unwrap() error { return ErrAlreadyExists }

// Unique field names reported by ConflictError.
const (
	FieldUsername      = "username"
	FieldEmail         = "email"
	FieldAccountNumber = "account_number"
	FieldRoutingNumber = "routing_number"
	FieldCardNumber    = "card_number"
)

// TransactionFilter narrows ListTransactions. Zero values mean no constraint.
type TransactionFilter struct {
	UserID string
	Status models.TransactionStatus
	Search string
	Limit  int
}

// OwnedAccount is an account together with the user that owns it.
type OwnedAccount struct {
	UserID   string
	FullName string
	Account  models.Account
}

// Repository is the set of operations available inside a unit of work.
// Every call made through one Repository sees the same snapshot and, under
// WithinTx, commits or rolls back together.
type Repository interface {
	CreateUser(ctx context.Context, user models.User) error
	GetUser(ctx context.Context, id string) (models.User, error)
	// LockUser reads the user and holds a write lock on it until the unit ends.
	LockUser(ctx context.Context, id string) (models.User, error)
	FindUserByLogin(ctx context.Context, identifier string) (models.User, error)
	FindUserByRoutingNumber(ctx context.Context, number string) (models.User, error)
	ListUsers(ctx context.Context, limit int) ([]models.User, error)
	SetUserStatus(ctx context.Context, id string, status models.UserStatus) error
	SetTransferPin(ctx context.Context, id, pinHash string) error
	DeleteUser(ctx context.Context, id string) error

	AccountNumberExists(ctx context.Context, number string) (bool, error)
	RoutingNumberExists(ctx context.Context, number string) (bool, error)
	FindAccount(ctx context.Context, number string) (OwnedAccount, error)
	// AdjustBalance adds delta to the account and returns the new balance. It
	// fails with ErrInsufficientFunds instead of going negative.
	AdjustBalance(ctx context.Context, number string, delta decimal.Decimal) (decimal.Decimal, error)

	CardNumberExists(ctx context.Context, number string) (bool, error)
	AddCard(ctx context.Context, userID string, card models.Card) error

	InsertTransaction(ctx context.Context, tx models.Transaction) error
	GetTransaction(ctx context.Context, id string) (models.Transaction, error)
	UpdateTransaction(ctx context.Context, tx models.Transaction) error
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]models.Transaction, error)
	DeleteTransactionsByUser(ctx context.Context, userID string) (int, error)
	// DetachCounterparty clears references to userID on other users' transactions.
	DetachCounterparty(ctx context.Context, userID string) error

	CreateMessage(ctx context.Context, msg models.Message) error
	GetMessage(ctx context.Context, id string) (models.Message, error)
	// UpdateMessage persists the ticket status and read flag of msg.
	UpdateMessage(ctx context.Context, msg models.Message) error
	ListMessages(ctx context.Context, userID string, limit int) ([]models.Message, error)
	DeleteMessagesByUser(ctx context.Context, userID string) (int, error)
}

// Store hands out units of work over the system of record.
type Store interface {
	// Read runs fn against a consistent view. Writes made through it are
	// not guaranteed to be atomic.
	Read(ctx context.Context, fn func(Repository) error) error
	// WithinTx runs fn atomically: every write through the Repository
	// commits if fn returns nil and none survive otherwise.
	WithinTx(ctx context.Context, fn func(Repository) error) error
	Close()
}

// DefaultTimeout bounds a unit of work when the caller's context has no deadline.
const DefaultTimeout = 5 * time.Second
