package admin

import (
	"context"
	"fmt"
	"strings"

	"github.com/hongminglow/hometown-ledger/internal/apperr"
	"github.com/hongminglow/hometown-ledger/internal/auth"
	"github.com/hongminglow/hometown-ledger/internal/models"
	"github.com/hongminglow/hometown-ledger/internal/storage"
	"github.com/shopspring/decimal"
)

// Direction of an administrative balance adjustment.
type Direction string

const (
	Credit Direction = "credit"
	Debit  Direction = "debit"
)

// FundsRequest is an out-of-band credit or debit.
type FundsRequest struct {
	UserID      string
	AccountType models.AccountType
	Direction   Direction
	Amount      decimal.Decimal
	Description string
}

// FundsResult reports the adjusted account.
type FundsResult struct {
	TransactionID string          `json:"transactionId"`
	AccountNumber string          `json:"accountNumber"`
	NewBalance    decimal.Decimal `json:"newBalance"`
}

func (r FundsRequest) validate() error {
	if strings.TrimSpace(r.UserID) == "" {
		return apperr.New(apperr.Validation, "userId is required")
	}
	if !r.AccountType.Valid() {
		return apperr.New(apperr.Validation, "accountType must be checking or savings")
	}
	if r.Direction != Credit && r.Direction != Debit {
		return apperr.New(apperr.Validation, "direction must be credit or debit")
	}
	if !r.Amount.IsPositive() {
		return apperr.New(apperr.Validation, "amount must be greater than zero")
	}
	if !r.Amount.Round(2).Equal(r.Amount) {
		return apperr.New(apperr.Validation, "amount must have at most two decimal places")
	}
	if r.Amount.GreaterThan(models.MaxAmount) {
		return apperr.New(apperr.Validation, "amount exceeds the maximum of %s", models.MaxAmount)
	}
	return nil
}

// CreditOrDebit adjusts a user's balance without a PIN and records a
// completed deposit or withdrawal annotated with the acting admin.
func (s *Service) CreditOrDebit(ctx context.Context, actor auth.Actor, req FundsRequest) (FundsResult, error) {
	if err := auth.Authorize(actor, auth.CapAdmin); err != nil {
		return FundsResult{}, err
	}
	if err := req.validate(); err != nil {
		return FundsResult{}, err
	}

	var result FundsResult
	err := s.store.WithinTx(ctx, func(repo storage.Repository) error {
		user, err := repo.LockUser(ctx, req.UserID)
		if err != nil {
			return apperr.FromStorage(err, "user")
		}
		delta := req.Amount
		txType := models.TxDeposit
		verb := "credited"
		if req.Direction == Debit {
			delta = delta.Neg()
			txType = models.TxWithdrawal
			verb = "debited"
		}
		acct, err := s.accounts.Adjust(ctx, repo, user, req.AccountType, delta)
		if err != nil {
			return err
		}

		now := s.now().UTC()
		description := strings.TrimSpace(req.Description)
		if description == "" {
			description = fmt.Sprintf("Administrative %s", req.Direction)
		}
		tx := models.Transaction{
			ID:           s.newID(),
			UserID:       user.ID,
			Type:         txType,
			Amount:       delta,
			Currency:     acct.Currency,
			Status:       models.StatusCompleted,
			Description:  description,
			AccountType:  acct.Type,
			BalanceAfter: acct.Balance,
			Notes: []models.AdminNote{{
				Note:      fmt.Sprintf("Funds %s by administrator", verb),
				Timestamp: now,
				AdminID:   actor.ID,
			}},
			CreatedAt: now,
			UpdatedAt: now,
		}
		if req.Direction == Credit {
			tx.ToAccount = acct.Number
		} else {
			tx.FromAccount = acct.Number
		}
		if err := repo.InsertTransaction(ctx, tx); err != nil {
			return apperr.FromStorage(err, "transaction")
		}
		result = FundsResult{TransactionID: tx.ID, AccountNumber: acct.Number, NewBalance: acct.Balance}
		return nil
	})
	if err != nil {
		return FundsResult{}, apperr.FromStorage(err, "user")
	}
	return result, nil
}
