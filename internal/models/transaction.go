package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the semantic category of a ledger entry.
type TransactionType string

const (
	TxDeposit       TransactionType = "deposit"
	TxWithdrawal    TransactionType = "withdrawal"
	TxTransfer      TransactionType = "transfer"
	TxBillPayment   TransactionType = "bill_payment"
	TxLoanRepayment TransactionType = "loan_repayment"
)

// TransactionStatus follows pending -> processing -> completed|failed|cancelled|rejected,
// with approved and limit_exceeded reserved for administrative workflows.
type TransactionStatus string

const (
	StatusPending       TransactionStatus = "pending"
	StatusApproved      TransactionStatus = "approved"
	StatusProcessing    TransactionStatus = "processing"
	StatusLimitExceeded TransactionStatus = "limit_exceeded"
	StatusFailed        TransactionStatus = "failed"
	StatusCompleted     TransactionStatus = "completed"
	StatusCancelled     TransactionStatus = "cancelled"
	StatusRejected      TransactionStatus = "rejected"
)

// TransactionStatuses lists every allowed status in display order.
var TransactionStatuses = []TransactionStatus{
	StatusPending, StatusApproved, StatusProcessing, StatusLimitExceeded,
	StatusFailed, StatusCompleted, StatusCancelled, StatusRejected,
}

// Valid reports whether s is an allowed status.
func (s TransactionStatus) Valid() bool {
	for _, candidate := range TransactionStatuses {
		if s == candidate {
			return true
		}
	}
	return false
}

// ExternalDetails carries counterparty bank fields for transfers leaving the system.
type ExternalDetails struct {
	RecipientName string `json:"externalRecipientName,omitempty"`
	BankName      string `json:"externalRecipientBank,omitempty"`
	RoutingNumber string `json:"externalRoutingNumber,omitempty"`
	SwiftCode     string `json:"externalSwiftCode,omitempty"`
	IBAN          string `json:"externalIban,omitempty"`
}

// AdminNote is an operator annotation appended to a transaction.
type AdminNote struct {
	Note      string    `json:"note"`
	Timestamp time.Time `json:"timestamp"`
	AdminID   string    `json:"adminId"`
}

// Transaction is a ledger entry. Amount is signed: negative leaves the
// owner's account, positive enters it.
type Transaction struct {
	ID                 string            `json:"id"`
	UserID             string            `json:"userId"`
	CounterpartyUserID string            `json:"recipientUserId,omitempty"`
	Type               TransactionType   `json:"type"`
	Amount             decimal.Decimal   `json:"amount"`
	Currency           string            `json:"currency"`
	Status             TransactionStatus `json:"status"`
	Description        string            `json:"description"`
	FromAccount        string            `json:"fromAccount,omitempty"`
	ToAccount          string            `json:"toAccount,omitempty"`
	AccountType        AccountType       `json:"accountType,omitempty"`
	External           ExternalDetails   `json:"external"`
	BalanceAfter       decimal.Decimal   `json:"balanceAfterTransaction"`
	Notes              []AdminNote       `json:"adminNotes"`
	CreatedAt          time.Time         `json:"createdAt"`
	UpdatedAt          time.Time         `json:"updatedAt"`
}
