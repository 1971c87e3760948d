package utils

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// FormatWon formats an amount in KRW with thousands separators.
func FormatWon(amount int64) string {
	negative := amount < 0
	if negative {
		amount = -amount
	}

	result := "₩" + groupThousands(strconv.FormatInt(amount, 10))
	if negative {
		result = "-" + result
	}
	return result
}

// groupThousands inserts commas every three digits from the right.
func groupThousands(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}

	result := s[n-3:]
	s = s[:n-3]
	for len(s) > 3 {
		result = s[len(s)-3:] + "," + result
		s = s[:len(s)-3]
	}
	return s + "," + result
}

// FormatQuantity formats a share count with commas.
func FormatQuantity(qty int64) string {
	if qty < 0 {
		return "-" + groupThousands(strconv.FormatInt(-qty, 10))
	}
	return groupThousands(strconv.FormatInt(qty, 10))
}

// FormatRate formats a change rate with sign, e.g. +12.50%.
func FormatRate(rate decimal.Decimal) string {
	sign := ""
	if rate.IsPositive() {
		sign = "+"
	}
	return fmt.Sprintf("%s%s%%", sign, rate.StringFixed(2))
}

// MaskAccount hides all but the last four characters of an account number.
func MaskAccount(account string) string {
	if len(account) <= 4 {
		return account
	}
	masked := make([]byte, len(account))
	for i := range masked {
		masked[i] = '*'
	}
	copy(masked[len(account)-4:], account[len(account)-4:])
	return string(masked)
}
