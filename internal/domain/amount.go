package domain

import "github.com/shopspring/decimal"

// AmountScale is the number of fractional digits a balance or amount may carry.
const AmountScale = 2

// ValidAmount reports whether v can be moved by a transfer.
func ValidAmount(v decimal.Decimal) bool {
	return v.IsPositive() && v.Equal(v.Truncate(AmountScale))
}

// ValidBalance reports whether v can be an account balance.
func ValidBalance(v decimal.Decimal) bool {
	return !v.IsNegative() && v.Equal(v.Truncate(AmountScale))
}
