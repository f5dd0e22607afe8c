package models

import "time"

// CardType is either debit or credit.
type CardType string

const (
	DebitCard  CardType = "debit"
	CreditCard CardType = "credit"
)

// Valid reports whether t is a known card type.
func (t CardType) Valid() bool {
	return t == DebitCard || t == CreditCard
}

// CVVLength is 3 digits for debit cards and 4 for credit cards.
func (t CardType) CVVLength() int {
	if t == CreditCard {
		return 4
	}
	return 3
}

// CardStatus is the lifecycle state of an issued card.
type CardStatus string

const (
	CardActive   CardStatus = "active"
	CardInactive CardStatus = "inactive"
	CardBlocked  CardStatus = "blocked"
	CardExpired  CardStatus = "expired"
)

// Card is embedded in its owning User. The CVV is stored hashed and never serialised.
type Card struct {
	ID            string     `json:"id"`
	Type          CardType   `json:"cardType"`
	Number        string     `json:"cardNumber"`
	LastFour      string     `json:"lastFourDigits"`
	HolderName    string     `json:"cardHolderName"`
	Expires       string     `json:"expires"`
	CVVHash       string     `json:"-"`
	Status        CardStatus `json:"status"`
	Design        string     `json:"design"`
	LinkedAccount string     `json:"linkedAccount,omitempty"`
	IssuedAt      time.Time  `json:"issuedAt"`
}
