package ledger

import (
	"regexp"
	"strings"

	"github.com/hongminglow/hometown-ledger/internal/apperr"
	"github.com/hongminglow/hometown-ledger/internal/models"
)

// Transfer type tags accepted from clients.
const (
	TypeInternal          = "Internal"
	TypeBankToBank        = "Bank to Bank"
	TypeACH               = "ACH"
	TypeDomesticWire      = "Domestic Wire"
	TypeInternationalBank = "International Bank"
	TypeWire              = "Wire"
)

var (
	routingPattern = regexp.MustCompile(`^[0-9]{9}$`)
	swiftPattern   = regexp.MustCompile(`^[A-Z0-9]{8}([A-Z0-9]{3})?$`)
	ibanPattern    = regexp.MustCompile(`^[A-Z0-9]{15,34}$`)
)

// Details is the transfer-type specific part of a transfer request. Exactly
// one of InternalDetails, DomesticDetails or InternationalDetails.
type Details interface {
	Type() string
	validate() error
	external(recipientName string) models.ExternalDetails
}

// InternalDetails is a transfer with no bank fields.
type InternalDetails struct{}

func (InternalDetails) Type() string    { return TypeInternal }
func (InternalDetails) validate() error { return nil }

func (InternalDetails) external(recipientName string) models.ExternalDetails {
	return models.ExternalDetails{RecipientName: recipientName}
}

// DomesticDetails routes through a domestic bank by routing number.
type DomesticDetails struct {
	Tag           string
	BankName      string
	RoutingNumber string
}

func (d DomesticDetails) Type() string { return d.Tag }

func (d DomesticDetails) validate() error {
	if strings.TrimSpace(d.BankName) == "" {
		return apperr.New(apperr.Validation, "bankName is required for %s transfers", d.Tag)
	}
	if !routingPattern.MatchString(d.RoutingNumber) {
		return apperr.New(apperr.Validation, "routingNumber must be exactly 9 digits")
	}
	return nil
}

func (d DomesticDetails) external(recipientName string) models.ExternalDetails {
	return models.ExternalDetails{RecipientName: recipientName, BankName: d.BankName, RoutingNumber: d.RoutingNumber}
}

// InternationalDetails routes abroad by SWIFT code and IBAN.
type InternationalDetails struct {
	Tag       string
	BankName  string
	SwiftCode string
	IBAN      string
}

func (d InternationalDetails) Type() string { return d.Tag }

func (d InternationalDetails) validate() error {
	if strings.TrimSpace(d.BankName) == "" {
		return apperr.New(apperr.Validation, "bankName is required for %s transfers", d.Tag)
	}
	if !swiftPattern.MatchString(d.SwiftCode) {
		return apperr.New(apperr.Validation, "swiftCode must be 8 or 11 alphanumeric characters")
	}
	if !ibanPattern.MatchString(d.IBAN) {
		return apperr.New(apperr.Validation, "iban must be 15 to 34 alphanumeric characters")
	}
	return nil
}

func (d InternationalDetails) external(recipientName string) models.ExternalDetails {
	return models.ExternalDetails{RecipientName: recipientName, BankName: d.BankName, SwiftCode: d.SwiftCode, IBAN: d.IBAN}
}

// ParseDetails selects the variant for transferType and copies only the
// fields it needs. Codes are upper-cased and stripped of spaces.
func ParseDetails(transferType, bankName, routingNumber, swiftCode, iban string) (Details, error) {
	bankName = strings.TrimSpace(bankName)
	switch strings.TrimSpace(transferType) {
	case "", TypeInternal:
		return InternalDetails{}, nil
	case TypeBankToBank, TypeACH, TypeDomesticWire:
		return DomesticDetails{
			Tag:           strings.TrimSpace(transferType),
			BankName:      bankName,
			RoutingNumber: strings.TrimSpace(routingNumber),
		}, nil
	case TypeInternationalBank, TypeWire:
		return InternationalDetails{
			Tag:       strings.TrimSpace(transferType),
			BankName:  bankName,
			SwiftCode: compactUpper(swiftCode),
			IBAN:      compactUpper(iban),
		}, nil
	}
	return nil, apperr.New(apperr.Validation, "unsupported transfer type %q", transferType)
}

func compactUpper(s string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), " ", ""))
}
