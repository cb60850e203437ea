package models

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// Money is an amount in cents. All ledger arithmetic is integer
// arithmetic; floats only appear at the display edge.
type Money int64

// ErrInvalidAmount is returned for amounts that cannot be parsed
// or are not strictly positive.
var ErrInvalidAmount = fmt.Errorf("invalid amount")

// ParseMoney converts a decimal string to Money with half-up rounding
// on the third decimal place. Accepts both dot and comma separators.
// Only strictly positive amounts are accepted.
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart + fracPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	const maxSafe = (1<<63 - 1) / 100
	if iv > maxSafe {
		return 0, ErrInvalidAmount
	}
	var fracCents int64
	if len(fracPart) > 0 {
		fracCents = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			fracCents += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				fracCents++
			}
		}
	}
	cents := iv*100 + fracCents
	if cents <= 0 {
		return 0, ErrInvalidAmount
	}
	return Money(cents), nil
}

// MoneyFromShillings builds a Money from a whole-unit amount.
func MoneyFromShillings(units int64) Money { return Money(units * 100) }

func (m Money) Add(o Money) Money { return m + o }

func (m Money) Sub(o Money) Money { return m - o }

// IsPositive reports whether the amount is strictly greater than zero.
func (m Money) IsPositive() bool { return m > 0 }

// Shillings returns the whole-unit value as a float64 for display only.
func (m Money) Shillings() float64 { return float64(m) / 100.0 }

func (m Money) String() string {
	return fmt.Sprintf("%d.%02d", int64(m)/100, int64(m)%100)
}

// Percent is a rate expressed as 0-100, e.g. a loan interest rate.
type Percent float64

// Valid reports whether the rate is within 0-100.
func (p Percent) Valid() bool { return p >= 0 && p <= 100 }

// Of applies the rate to an amount with half-up rounding.
func (p Percent) Of(m Money) Money {
	return Money(math.Round(float64(m) * float64(p) / 100.0))
}

// Ratio is a 0-1 multiplier used for chama policy knobs
// (collection completion threshold, payout ratio).
type Ratio float64

// Valid reports whether the ratio is within 0-1.
func (r Ratio) Valid() bool { return r >= 0 && r <= 1 }

// Of applies the ratio to an amount with half-up rounding.
func (r Ratio) Of(m Money) Money {
	return Money(math.Round(float64(m) * float64(r)))
}
