package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseMoney(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Money
		wantErr bool
	}{
		{name: "whole amount", input: "1000", want: Money(100000)},
		{name: "two decimals", input: "1000.50", want: Money(100050)},
		{name: "one decimal", input: "5.5", want: Money(550)},
		{name: "comma separator", input: "250,75", want: Money(25075)},
		{name: "third decimal rounds up", input: "1.005", want: Money(101)},
		{name: "third decimal rounds down", input: "1.004", want: Money(100)},
		{name: "leading dot", input: ".50", want: Money(50)},
		{name: "whitespace trimmed", input: "  42  ", want: Money(4200)},
		{name: "empty", input: "", wantErr: true},
		{name: "zero", input: "0", wantErr: true},
		{name: "zero decimal", input: "0.00", wantErr: true},
		{name: "negative", input: "-5", wantErr: true},
		{name: "explicit plus", input: "+5", wantErr: true},
		{name: "letters", input: "abc", wantErr: true},
		{name: "two dots", input: "1.2.3", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMoney(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidAmount)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMoneyArithmetic(t *testing.T) {
	a := MoneyFromShillings(1000)
	b := MoneyFromShillings(250)

	assert.Equal(t, Money(125000), a.Add(b))
	assert.Equal(t, Money(75000), a.Sub(b))
	assert.True(t, a.IsPositive())
	assert.False(t, Money(0).IsPositive())
	assert.False(t, a.Sub(a).Sub(b).IsPositive())
	assert.Equal(t, 1000.0, a.Shillings())
	assert.Equal(t, "1000.00", a.String())
	assert.Equal(t, "0.50", Money(50).String())
}

func TestPercentOf(t *testing.T) {
	principal := MoneyFromShillings(10000)

	assert.Equal(t, MoneyFromShillings(1000), Percent(10).Of(principal))
	assert.Equal(t, Money(0), Percent(0).Of(principal))
	assert.Equal(t, principal, Percent(100).Of(principal))

	// Half-up rounding on the cent boundary.
	assert.Equal(t, Money(13), Percent(12.5).Of(Money(100)))

	assert.True(t, Percent(0).Valid())
	assert.True(t, Percent(100).Valid())
	assert.False(t, Percent(-1).Valid())
	assert.False(t, Percent(101).Valid())
}

func TestRatioOf(t *testing.T) {
	collected := MoneyFromShillings(5000)

	assert.Equal(t, MoneyFromShillings(4750), Ratio(0.95).Of(collected))
	assert.Equal(t, collected, Ratio(1).Of(collected))
	assert.Equal(t, Money(0), Ratio(0).Of(collected))

	// 0.95 of 99 cents rounds half-up to 94.
	assert.Equal(t, Money(94), Ratio(0.95).Of(Money(99)))

	assert.True(t, Ratio(0.5).Valid())
	assert.False(t, Ratio(1.01).Valid())
	assert.False(t, Ratio(-0.1).Valid())
}
