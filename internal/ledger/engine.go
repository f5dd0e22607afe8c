// Package ledger moves money between accounts and records the transactions
// that did it.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hongminglow/hometown-ledger/internal/accounts"
	"github.com/hongminglow/hometown-ledger/internal/apperr"
	"github.com/hongminglow/hometown-ledger/internal/auth"
	"github.com/hongminglow/hometown-ledger/internal/models"
	"github.com/hongminglow/hometown-ledger/internal/notify"
	"github.com/hongminglow/hometown-ledger/internal/storage"
	"github.com/shopspring/decimal"
)

const (
	maxMemoLength  = 140
	defaultHistory = 50
	maxHistory     = 500
)

// TransferRequest is a validated-on-entry request to move funds out of one of
// the caller's accounts.
type TransferRequest struct {
	FromAccount      string
	RecipientName    string
	RecipientAccount string
	Amount           decimal.Decimal
	Memo             string
	Pin              string
	Details          Details
}

// TransferResult summarises the sender's side of a committed transfer.
type TransferResult struct {
	TransactionID string                   `json:"transactionId"`
	Status        models.TransactionStatus `json:"status"`
	NewBalance    decimal.Decimal          `json:"newBalance"`
}

// Overview is the caller's own accounts and cards.
type Overview struct {
	Checking models.Account `json:"checkingAccount"`
	Savings  models.Account `json:"savingsAccount"`
	Cards    []models.Card  `json:"cards"`
}

// Engine runs transfers against a Store.
type Engine struct {
	store    storage.Store
	accounts *accounts.Service
	hasher   auth.Hasher
	notifier notify.Notifier
	now      func() time.Time
	newID    func() string
}

// NewEngine wires the engine's collaborators.
func NewEngine(store storage.Store, accts *accounts.Service, hasher auth.Hasher, notifier notify.Notifier) *Engine {
	return &Engine{
		store:    store,
		accounts: accts,
		hasher:   hasher,
		notifier: notifier,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Transfer debits the caller's account, records the outgoing transaction and,
// when the recipient account belongs to a user of this bank, credits it and
// completes both sides. External transfers stay processing. Every write
// happens in one unit of work.
func (e *Engine) Transfer(ctx context.Context, actor auth.Actor, req TransferRequest) (TransferResult, error) {
	if err := auth.Authorize(actor, auth.CapTransfer); err != nil {
		return TransferResult{}, err
	}
	req = req.normalized()
	if err := validateTransfer(req); err != nil {
		return TransferResult{}, err
	}

	var sender models.User
	err := e.store.Read(ctx, func(repo storage.Repository) error {
		var err error
		sender, err = repo.GetUser(ctx, actor.ID)
		return err
	})
	if err != nil {
		return TransferResult{}, apperr.FromStorage(err, "user")
	}
	source, ok := sender.AccountByNumber(req.FromAccount)
	if !ok {
		return TransferResult{}, apperr.New(apperr.NotFound, "source account not found or does not belong to user")
	}
	if err := checkActive(sender, source); err != nil {
		return TransferResult{}, err
	}
	if !sender.HasTransferPin() || !e.hasher.Compare(sender.TransferPinHash, req.Pin) {
		return TransferResult{}, apperr.New(apperr.InvalidPin, "invalid transfer PIN")
	}

	var result TransferResult
	err = e.store.WithinTx(ctx, func(repo storage.Repository) error {
		var err error
		result, err = e.transfer(ctx, repo, actor.ID, req)
		return err
	})
	if err != nil {
		return TransferResult{}, apperr.FromStorage(err, "account")
	}

	e.sendReceipt(ctx, sender, req, result)
	return result, nil
}

func (e *Engine) transfer(ctx context.Context, repo storage.Repository, senderID string, req TransferRequest) (TransferResult, error) {
	sender, err := repo.LockUser(ctx, senderID)
	if err != nil {
		return TransferResult{}, apperr.FromStorage(err, "user")
	}
	source, ok := sender.AccountByNumber(req.FromAccount)
	if !ok {
		return TransferResult{}, apperr.New(apperr.NotFound, "source account not found or does not belong to user")
	}
	if err := checkActive(sender, source); err != nil {
		return TransferResult{}, err
	}
	if source.Balance.LessThan(req.Amount) {
		return TransferResult{}, apperr.New(apperr.InsufficientFunds, "insufficient funds in the selected account")
	}

	debited, err := e.accounts.AdjustNumber(ctx, repo, source, req.Amount.Neg())
	if err != nil {
		return TransferResult{}, err
	}

	now := e.now().UTC()
	description := strings.TrimSpace(req.Memo)
	if description == "" {
		description = fmt.Sprintf("Transfer to %s", req.RecipientName)
	}
	outgoing := models.Transaction{
		ID:           e.newID(),
		UserID:       sender.ID,
		Type:         models.TxTransfer,
		Amount:       req.Amount.Neg(),
		Currency:     source.Currency,
		Status:       models.StatusProcessing,
		Description:  description,
		FromAccount:  source.Number,
		ToAccount:    req.RecipientAccount,
		AccountType:  source.Type,
		External:     req.Details.external(req.RecipientName),
		BalanceAfter: debited.Balance,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := repo.InsertTransaction(ctx, outgoing); err != nil {
		return TransferResult{}, apperr.FromStorage(err, "transaction")
	}

	recipient, err := repo.FindAccount(ctx, req.RecipientAccount)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		// external: completion happens out of band
		return TransferResult{TransactionID: outgoing.ID, Status: outgoing.Status, NewBalance: debited.Balance}, nil
	case err != nil:
		return TransferResult{}, apperr.FromStorage(err, "account")
	}
	if recipient.Account.Currency != source.Currency {
		return TransferResult{}, apperr.New(apperr.Validation, "recipient account holds %s, source holds %s", recipient.Account.Currency, source.Currency)
	}

	credited, err := e.accounts.AdjustNumber(ctx, repo, recipient.Account, req.Amount)
	if err != nil {
		return TransferResult{}, err
	}
	incoming := models.Transaction{
		ID:                 e.newID(),
		UserID:             recipient.UserID,
		CounterpartyUserID: sender.ID,
		Type:               models.TxTransfer,
		Amount:             req.Amount,
		Currency:           recipient.Account.Currency,
		Status:             models.StatusCompleted,
		Description:        fmt.Sprintf("Transfer from %s (%s)", sender.FullName, source.Number),
		FromAccount:        source.Number,
		ToAccount:          recipient.Account.Number,
		AccountType:        recipient.Account.Type,
		BalanceAfter:       credited.Balance,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := repo.InsertTransaction(ctx, incoming); err != nil {
		return TransferResult{}, apperr.FromStorage(err, "transaction")
	}

	outgoing.Status = models.StatusCompleted
	outgoing.CounterpartyUserID = recipient.UserID
	if err := repo.UpdateTransaction(ctx, outgoing); err != nil {
		return TransferResult{}, apperr.FromStorage(err, "transaction")
	}
	return TransferResult{TransactionID: outgoing.ID, Status: outgoing.Status, NewBalance: debited.Balance}, nil
}

func (e *Engine) sendReceipt(ctx context.Context, sender models.User, req TransferRequest, result TransferResult) {
	if e.notifier == nil {
		return
	}
	body := fmt.Sprintf(
		"Hello %s,\n\nYour transfer of %s from account %s to %s (%s) is %s.\nReference: %s\nAvailable balance: %s\n",
		sender.FullName, req.Amount.StringFixed(2), req.FromAccount, req.RecipientName, req.RecipientAccount,
		result.Status, result.TransactionID, result.NewBalance.StringFixed(2),
	)
	if !e.notifier.Send(ctx, sender.Email, "Transfer receipt", body) {
		log.Printf("ledger: receipt for transaction %s not delivered", result.TransactionID)
	}
}

// History returns the caller's own transactions, newest first.
func (e *Engine) History(ctx context.Context, actor auth.Actor, limit int) ([]models.Transaction, error) {
	if err := auth.Authorize(actor, auth.CapReadOwn); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultHistory
	}
	if limit > maxHistory {
		limit = maxHistory
	}
	var out []models.Transaction
	err := e.store.Read(ctx, func(repo storage.Repository) error {
		var err error
		out, err = repo.ListTransactions(ctx, storage.TransactionFilter{UserID: actor.ID, Limit: limit})
		return err
	})
	if err != nil {
		return nil, apperr.FromStorage(err, "transaction")
	}
	return out, nil
}

// Overview returns the caller's accounts and cards.
func (e *Engine) Overview(ctx context.Context, actor auth.Actor) (Overview, error) {
	if err := auth.Authorize(actor, auth.CapReadOwn); err != nil {
		return Overview{}, err
	}
	var user models.User
	err := e.store.Read(ctx, func(repo storage.Repository) error {
		var err error
		user, err = repo.GetUser(ctx, actor.ID)
		return err
	})
	if err != nil {
		return Overview{}, apperr.FromStorage(err, "user")
	}
	cards := user.Cards
	if cards == nil {
		cards = []models.Card{}
	}
	return Overview{Checking: user.Checking, Savings: user.Savings, Cards: cards}, nil
}

func checkActive(user models.User, acct models.Account) error {
	if user.Status != models.UserActive {
		return apperr.New(apperr.Unauthorized, "user is %s and cannot transfer", user.Status)
	}
	if acct.Status != models.AccountActive {
		return apperr.New(apperr.Unauthorized, "account %s is %s", acct.Number, acct.Status)
	}
	return nil
}
