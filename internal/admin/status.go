package admin

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/hongminglow/hometown-ledger/internal/apperr"
	"github.com/hongminglow/hometown-ledger/internal/auth"
	"github.com/hongminglow/hometown-ledger/internal/models"
	"github.com/hongminglow/hometown-ledger/internal/storage"
)

// StatusOverride moves a transaction to any allowed status.
type StatusOverride struct {
	TransactionID string
	Status        models.TransactionStatus
	Note          string
	Notify        bool
}

// OverrideTransactionStatus sets the status unconditionally and appends the
// note, if any. Re-applying the current status with no note and no
// notification changes nothing and succeeds.
func (s *Service) OverrideTransactionStatus(ctx context.Context, actor auth.Actor, req StatusOverride) (models.Transaction, error) {
	if err := auth.Authorize(actor, auth.CapAdmin); err != nil {
		return models.Transaction{}, err
	}
	if !req.Status.Valid() {
		return models.Transaction{}, apperr.New(apperr.Validation, "invalid status %q", req.Status)
	}
	note := strings.TrimSpace(req.Note)

	var (
		updated   models.Transaction
		oldStatus models.TransactionStatus
		changed   bool
	)
	err := s.store.WithinTx(ctx, func(repo storage.Repository) error {
		tx, err := repo.GetTransaction(ctx, req.TransactionID)
		if err != nil {
			return apperr.FromStorage(err, "transaction")
		}
		oldStatus = tx.Status
		if tx.Status == req.Status && note == "" && !req.Notify {
			updated = tx
			return nil
		}
		now := s.now().UTC()
		tx.Status = req.Status
		if note != "" {
			tx.Notes = append(tx.Notes, models.AdminNote{Note: note, Timestamp: now, AdminID: actor.ID})
		}
		tx.UpdatedAt = now
		if err := repo.UpdateTransaction(ctx, tx); err != nil {
			return apperr.FromStorage(err, "transaction")
		}
		updated = tx
		changed = true
		return nil
	})
	if err != nil {
		return models.Transaction{}, apperr.FromStorage(err, "transaction")
	}

	if changed && req.Notify {
		s.notifyStatus(ctx, updated, oldStatus, note)
	}
	return updated, nil
}

func (s *Service) notifyStatus(ctx context.Context, tx models.Transaction, oldStatus models.TransactionStatus, note string) {
	var owner models.User
	err := s.store.Read(ctx, func(repo storage.Repository) error {
		var err error
		owner, err = repo.GetUser(ctx, tx.UserID)
		return err
	})
	if err != nil {
		log.Printf("admin: status notification for %s skipped: %v", tx.ID, err)
		return
	}
	body := fmt.Sprintf(
		"Hello %s,\n\nThe status of your transaction %s (%s %s) changed from %s to %s.\n",
		owner.FullName, tx.ID, tx.Amount.StringFixed(2), tx.Currency, oldStatus, tx.Status,
	)
	if note != "" {
		body += fmt.Sprintf("\nNote from our team: %s\n", note)
	}
	s.notify(ctx, owner.Email, "Transaction status updated", body)
}
