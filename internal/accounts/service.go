// Package accounts owns the embedded checking and savings balances.
package accounts

import (
	"context"
	"strings"
	"time"

	"github.com/hongminglow/hometown-ledger/internal/apperr"
	"github.com/hongminglow/hometown-ledger/internal/ids"
	"github.com/hongminglow/hometown-ledger/internal/models"
	"github.com/hongminglow/hometown-ledger/internal/storage"
	"github.com/shopspring/decimal"
)

// Service provisions and mutates sub-accounts. All writes go through the
// Repository of the caller's unit of work.
type Service struct {
	gen *ids.Generator
	now func() time.Time
}

// NewService returns an account service drawing numbers from gen.
func NewService(gen *ids.Generator) *Service {
	return &Service{gen: gen, now: time.Now}
}

// Provision allocates a checking and a savings account with distinct, unused
// numbers and a zero balance. The accounts are persisted with the user.
func (s *Service) Provision(ctx context.Context, repo storage.Repository, currency string) (checking, savings models.Account, err error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if len(currency) != 3 {
		return models.Account{}, models.Account{}, apperr.New(apperr.Validation, "currency must be a 3-letter code")
	}

	checkingNumber, err := s.gen.AccountNumber(ctx, repo.AccountNumberExists)
	if err != nil {
		return models.Account{}, models.Account{}, err
	}
	savingsNumber, err := s.gen.AccountNumber(ctx, func(ctx context.Context, candidate string) (bool, error) {
		if candidate == checkingNumber {
			return true, nil
		}
		return repo.AccountNumberExists(ctx, candidate)
	})
	if err != nil {
		return models.Account{}, models.Account{}, err
	}

	opened := s.now().UTC()
	checking = models.Account{
		Type:     models.Checking,
		Number:   checkingNumber,
		Balance:  decimal.Zero,
		Currency: currency,
		Status:   models.AccountActive,
		OpenedAt: opened,
	}
	savings = checking
	savings.Type = models.Savings
	savings.Number = savingsNumber
	return checking, savings, nil
}

// Balance returns the balance of the user's account of the given type.
func Balance(user models.User, accountType models.AccountType) (decimal.Decimal, error) {
	acct, ok := user.Account(accountType)
	if !ok {
		return decimal.Zero, apperr.New(apperr.NotFound, "%s account not found", accountType)
	}
	return acct.Balance, nil
}

// Adjust applies delta to the user's account of the given type and returns the
// account with its new balance. A delta that would take the balance below
// zero fails with InsufficientFunds and changes nothing.
func (s *Service) Adjust(ctx context.Context, repo storage.Repository, user models.User, accountType models.AccountType, delta decimal.Decimal) (models.Account, error) {
	acct, ok := user.Account(accountType)
	if !ok {
		return models.Account{}, apperr.New(apperr.NotFound, "%s account not found", accountType)
	}
	return s.AdjustNumber(ctx, repo, acct, delta)
}

// AdjustNumber is Adjust for an already resolved account.
func (s *Service) AdjustNumber(ctx context.Context, repo storage.Repository, acct models.Account, delta decimal.Decimal) (models.Account, error) {
	balance, err := repo.AdjustBalance(ctx, acct.Number, delta)
	if err != nil {
		return models.Account{}, apperr.FromStorage(err, "account")
	}
	acct.Balance = balance
	return acct, nil
}
