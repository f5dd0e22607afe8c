package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountType selects one of the two embedded sub-accounts.
type AccountType string

const (
	Checking AccountType = "checking"
	Savings  AccountType = "savings"
)

// Valid reports whether t names an embedded sub-account.
func (t AccountType) Valid() bool {
	return t == Checking || t == Savings
}

// MaxAmount is the largest amount or balance the ledger stores, the ceiling
// of a NUMERIC(20,2) column.
var MaxAmount = decimal.RequireFromString("999999999999999999.99")

// AccountStatus is the state of a single sub-account.
type AccountStatus string

const (
	AccountActive     AccountStatus = "active"
	AccountSuspended  AccountStatus = "suspended"
	AccountPending    AccountStatus = "pending"
	AccountRestricted AccountStatus = "restricted"
	AccountBlocked    AccountStatus = "blocked"
	AccountLimited    AccountStatus = "limited"
)

// Account is a sub-account embedded in a User. Balance is never negative.
type Account struct {
	Type     AccountType     `json:"type"`
	Number   string          `json:"accountNumber"`
	Balance  decimal.Decimal `json:"balance"`
	Currency string          `json:"currency"`
	Status   AccountStatus   `json:"status"`
	OpenedAt time.Time       `json:"openedDate"`
}
