package models

import "time"

// UserStatus is the administrative state of a customer profile.
type UserStatus string

const (
	UserActive     UserStatus = "active"
	UserBlocked    UserStatus = "blocked"
	UserRestricted UserStatus = "restricted"
	UserLimited    UserStatus = "limited"
	UserSuspended  UserStatus = "suspended"
	UserPending    UserStatus = "pending"
)

// Valid reports whether s is one of the allowed user statuses.
func (s UserStatus) Valid() bool {
	switch s {
	case UserActive, UserBlocked, UserRestricted, UserLimited, UserSuspended, UserPending:
		return true
	}
	return false
}

// User is the aggregate root: it owns one checking account, one savings
// account and any number of cards.
type User struct {
	ID              string     `json:"id"`
	Username        string     `json:"username"`
	Email           string     `json:"email"`
	FullName        string     `json:"fullName"`
	Phone           string     `json:"phone,omitempty"`
	Role            Role       `json:"role"`
	RoutingNumber   string     `json:"routingNumber"`
	Status          UserStatus `json:"status"`
	PasswordHash    string     `json:"-"`
	TransferPinHash string     `json:"-"`
	Checking        Account    `json:"checkingAccount"`
	Savings         Account    `json:"savingsAccount"`
	Cards           []Card     `json:"cards"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// Account returns the embedded account of the given type.
func (u User) Account(t AccountType) (Account, bool) {
	switch t {
	case Checking:
		return u.Checking, u.Checking.Number != ""
	case Savings:
		return u.Savings, u.Savings.Number != ""
	}
	return Account{}, false
}

// AccountByNumber resolves one of the user's own accounts by its number.
func (u User) AccountByNumber(number string) (Account, bool) {
	if number == "" {
		return Account{}, false
	}
	if u.Checking.Number == number {
		return u.Checking, true
	}
	if u.Savings.Number == number {
		return u.Savings, true
	}
	return Account{}, false
}

// HasTransferPin reports whether a transfer PIN has been set.
func (u User) HasTransferPin() bool {
	return u.TransferPinHash != ""
}
