package ledger

import (
	"testing"

	"github.com/hongminglow/hometown-ledger/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDetails(t *testing.T) {
	d, err := ParseDetails("", "ignored", "", "", "")
	require.NoError(t, err)
	assert.Equal(t, InternalDetails{}, d)

	d, err = ParseDetails("Domestic Wire", " Chase ", " 021000021 ", "", "")
	require.NoError(t, err)
	assert.Equal(t, DomesticDetails{Tag: TypeDomesticWire, BankName: "Chase", RoutingNumber: "021000021"}, d)
	assert.NoError(t, d.validate())

	d, err = ParseDetails("International Bank", "Barclays", "", "barc gb22", "gb29 nwbk 6016 1331 9268 19")
	require.NoError(t, err)
	intl, ok := d.(InternationalDetails)
	require.True(t, ok)
	assert.Equal(t, "BARCGB22", intl.SwiftCode)
	assert.Equal(t, "GB29NWBK60161331926819", intl.IBAN)
	assert.NoError(t, d.validate())
	assert.Equal(t, "Barclays", d.external("Jane").BankName)

	_, err = ParseDetails("Carrier Pigeon", "", "", "", "")
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))
}

func TestDomesticRequiresBankName(t *testing.T) {
	err := DomesticDetails{Tag: TypeBankToBank, RoutingNumber: "021000021"}.validate()
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))
}
