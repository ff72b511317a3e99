package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestToMinorUnits(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		currency string
		expected int64
	}{
		{name: "usd", amount: "10.99", currency: "USD", expected: 1099},
		{name: "lowercase_currency", amount: "10.99", currency: "eur", expected: 1099},
		{name: "rounds_half_up", amount: "0.015", currency: "USD", expected: 2},
		{name: "zero_decimal_jpy", amount: "1500", currency: "JPY", expected: 1500},
		{name: "zero_decimal_rounds", amount: "1500.6", currency: "KRW", expected: 1501},
		{name: "three_decimal_kwd", amount: "1.234", currency: "KWD", expected: 1234},
		{name: "zero_amount", amount: "0", currency: "USD", expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ToMinorUnits(decimal.RequireFromString(tt.amount), tt.currency))
		})
	}
}

func TestFromMinorUnits(t *testing.T) {
	assert.True(t, decimal.RequireFromString("10.99").Equal(FromMinorUnits(1099, "USD")))
	assert.True(t, decimal.NewFromInt(1500).Equal(FromMinorUnits(1500, "JPY")))
	assert.True(t, decimal.RequireFromString("1.234").Equal(FromMinorUnits(1234, "KWD")))
}

func TestCurrencyExponent(t *testing.T) {
	assert.Equal(t, int32(2), CurrencyExponent("USD"))
	assert.Equal(t, int32(0), CurrencyExponent("jpy"))
	assert.Equal(t, int32(3), CurrencyExponent("BHD"))
}
