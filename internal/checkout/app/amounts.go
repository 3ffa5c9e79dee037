package app

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dwikikusuma/pos-payments/internal/checkout/domain"
)

// Formatter renders a minor-unit amount for display.
type Formatter func(minor int64) string

type AmountInput struct {
	Subtotal       int64
	Discount       float64
	DiscountAmount int64
	Total          int64
}

// NormalizeAmounts derives the fiat amount and display string. It trusts
// DiscountAmount as given.
func NormalizeAmounts(in AmountInput, format Formatter) domain.Amounts {
	return domain.Amounts{
		Subtotal:       in.Subtotal,
		Discount:       in.Discount,
		DiscountAmount: in.DiscountAmount,
		Total:          in.Total,
		AmountFiat:     MinorToMajor(in.Total),
		DisplayTotal:   format(in.Total),
	}
}

func MinorToMajor(minor int64) float64 {
	return decimal.New(minor, -2).InexactFloat64()
}

// MajorToMinor converts a major-unit amount, rounding half away from zero.
func MajorToMinor(major float64) int64 {
	return decimal.NewFromFloat(major).Shift(2).Round(0).IntPart()
}

// CurrencyFormatter formats minor units as "<major with 2 decimals> <ACRONYM>".
func CurrencyFormatter(acronym string) Formatter {
	code := strings.ToUpper(strings.TrimSpace(acronym))
	return func(minor int64) string {
		s := decimal.New(minor, -2).StringFixed(2)
		if code == "" {
			return s
		}
		return s + " " + code
	}
}
