// Package ids produces account numbers, card numbers and card secrets.
package ids

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/hongminglow/hometown-ledger/internal/apperr"
	"github.com/hongminglow/hometown-ledger/internal/models"
)

const (
	AccountNumberLength = 10
	RoutingNumberLength = 9
	CardNumberLength    = 16
	cardIssuerPrefix    = "4"
	expiryYears         = 5

	// DefaultMaxAttempts bounds each draw-and-check loop.
	DefaultMaxAttempts = 10
)

// ExistsFunc reports whether candidate is already taken. It is a pre-check
// only; the store's unique index is the final word.
type ExistsFunc func(ctx context.Context, candidate string) (bool, error)

// Generator draws random identifiers from a cryptographic source.
type Generator struct {
	rand        io.Reader
	now         func() time.Time
	maxAttempts int
}

// Option customises a Generator.
type Option func(*Generator)

// WithRandom replaces the entropy source.
func WithRandom(r io.Reader) Option {
	return func(g *Generator) { g.rand = r }
}

// WithClock replaces the clock used for expiry dates.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// WithMaxAttempts sets the retry bound for unique identifiers.
func WithMaxAttempts(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.maxAttempts = n
		}
	}
}

// NewGenerator returns a Generator backed by crypto/rand.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{rand: rand.Reader, now: time.Now, maxAttempts: DefaultMaxAttempts}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// AccountNumber returns a 10-digit number with a nonzero leading digit.
func (g *Generator) AccountNumber(ctx context.Context, exists ExistsFunc) (string, error) {
	return g.unique(ctx, "account number", exists, func() (string, error) {
		lead, err := g.leadingDigit()
		if err != nil {
			return "", err
		}
		rest, err := g.digits(AccountNumberLength - 1)
		if err != nil {
			return "", err
		}
		return lead + rest, nil
	})
}

// RoutingNumber returns a 9-digit bank routing number.
func (g *Generator) RoutingNumber(ctx context.Context, exists ExistsFunc) (string, error) {
	return g.unique(ctx, "routing number", exists, func() (string, error) {
		return g.digits(RoutingNumberLength)
	})
}

// CardNumber returns a 16-digit Luhn-valid number starting with the issuer prefix.
func (g *Generator) CardNumber(ctx context.Context, exists ExistsFunc) (string, error) {
	return g.unique(ctx, "card number", exists, func() (string, error) {
		body, err := g.digits(CardNumberLength - len(cardIssuerPrefix) - 1)
		if err != nil {
			return "", err
		}
		payload := cardIssuerPrefix + body
		return payload + string(LuhnCheckDigit(payload)), nil
	})
}

// CVV returns the security code for a card type.
func (g *Generator) CVV(cardType models.CardType) (string, error) {
	return g.digits(cardType.CVVLength())
}

// Expiry returns the card expiry five years from now as MM/YY.
func (g *Generator) Expiry() string {
	return g.now().AddDate(expiryYears, 0, 0).Format("01/06")
}

// TransferPin returns a 4-digit PIN between 1000 and 9999. Callers hash it
// before it is stored.
func (g *Generator) TransferPin() (string, error) {
	lead, err := g.leadingDigit()
	if err != nil {
		return "", err
	}
	rest, err := g.digits(3)
	if err != nil {
		return "", err
	}
	return lead + rest, nil
}

func (g *Generator) unique(ctx context.Context, what string, exists ExistsFunc, draw func() (string, error)) (string, error) {
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		candidate, err := draw()
		if err != nil {
			return "", apperr.Wrap(apperr.Internal, err, "draw %s", what)
		}
		if exists == nil {
			return candidate, nil
		}
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", apperr.FromStorage(err, what)
		}
		if !taken {
			return candidate, nil
		}
		log.Printf("ids: %s collision on attempt %d", what, attempt)
	}
	return "", apperr.New(apperr.GenerationExhausted, "could not allocate a unique %s after %d attempts", what, g.maxAttempts)
}

// leadingDigit returns a uniform digit in 1..9.
func (g *Generator) leadingDigit() (string, error) {
	for {
		d, err := g.digits(1)
		if err != nil {
			return "", err
		}
		if d != "0" {
			return d, nil
		}
	}
}

// digits returns n uniform decimal digits using rejection sampling.
func (g *Generator) digits(n int) (string, error) {
	out := make([]byte, 0, n)
	buf := make([]byte, n+4)
	for len(out) < n {
		if _, err := io.ReadFull(g.rand, buf); err != nil {
			return "", fmt.Errorf("read entropy: %w", err)
		}
		for _, b := range buf {
			if b >= 250 {
				continue
			}
			out = append(out, '0'+b%10)
			if len(out) == n {
				break
			}
		}
	}
	return string(out), nil
}
