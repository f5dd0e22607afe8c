package ledger

import (
	"strings"

	"github.com/hongminglow/hometown-ledger/internal/apperr"
	"github.com/hongminglow/hometown-ledger/internal/models"
)

// normalized trims the free-text identifiers so lookups and the
// same-account guard compare canonical account numbers.
func (r TransferRequest) normalized() TransferRequest {
	r.FromAccount = strings.TrimSpace(r.FromAccount)
	r.RecipientAccount = strings.TrimSpace(r.RecipientAccount)
	r.RecipientName = strings.TrimSpace(r.RecipientName)
	r.Pin = strings.TrimSpace(r.Pin)
	return r
}

func validateTransfer(req TransferRequest) error {
	if strings.TrimSpace(req.FromAccount) == "" {
		return apperr.New(apperr.Validation, "fromAccountNumber is required")
	}
	if strings.TrimSpace(req.RecipientName) == "" {
		return apperr.New(apperr.Validation, "recipientName is required")
	}
	if strings.TrimSpace(req.RecipientAccount) == "" {
		return apperr.New(apperr.Validation, "recipientAccount is required")
	}
	if req.RecipientAccount == req.FromAccount {
		return apperr.New(apperr.Validation, "recipient account must differ from the source account")
	}
	if !req.Amount.IsPositive() {
		return apperr.New(apperr.Validation, "amount must be greater than zero")
	}
	if !req.Amount.Round(2).Equal(req.Amount) {
		return apperr.New(apperr.Validation, "amount must have at most two decimal places")
	}
	if req.Amount.GreaterThan(models.MaxAmount) {
		return apperr.New(apperr.Validation, "amount exceeds the maximum of %s", models.MaxAmount)
	}
	if len(req.Memo) > maxMemoLength {
		return apperr.New(apperr.Validation, "memo must be at most %d characters", maxMemoLength)
	}
	if req.Pin == "" {
		return apperr.New(apperr.Validation, "transferPin is required")
	}
	if req.Details == nil {
		return apperr.New(apperr.Validation, "transfer details are required")
	}
	return req.Details.validate()
}
