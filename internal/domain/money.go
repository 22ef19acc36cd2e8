package domain

import (
	"github.com/shopspring/decimal"
)

// Money is an exact decimal amount that travels as a bare JSON number.
// Database scanning and valuing come from the embedded decimal.Decimal.
type Money struct {
	decimal.Decimal
}

func NewMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, err
	}
	return Money{Decimal: d}, nil
}

func MoneyFromInt(n int64) Money { return Money{Decimal: decimal.NewFromInt(n)} }

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal.String()), nil
}

func (m *Money) UnmarshalJSON(b []byte) error {
	return m.Decimal.UnmarshalJSON(b)
}

// Format renders the amount the way receipts show it, e.g. "20.00".
func (m Money) Format() string { return m.StringFixed(2) }
