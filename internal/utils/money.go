package utils

import (
	"fmt"
	"strings"
)

// MaxQuotationDigits caps quotation input length; anything longer is truncated.
const MaxQuotationDigits = 9

// Down payment and balance are fixed shares of the quoted total.
const (
	DownPaymentShare = 0.40
	BalanceShare     = 0.60
)

// NormalizeQuotation reduces raw quotation input to a plain integer amount:
// non-digits stripped, leading zeros collapsed (at least one digit kept),
// then capped at MaxQuotationDigits digits. The order matters: zeros are
// collapsed before capping, so "0000000001234" keeps all of 1234.
// Empty or digit-free input yields 0.
func NormalizeQuotation(raw string) int64 {
	var sb strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			sb.WriteRune(r)
		}
	}
	digits := strings.TrimLeft(sb.String(), "0")
	if digits == "" {
		return 0
	}
	if len(digits) > MaxQuotationDigits {
		digits = digits[:MaxQuotationDigits]
	}

	var total int64
	for _, r := range digits {
		total = total*10 + int64(r-'0')
	}
	return total
}

// FormatGrouped renders an integer amount with comma thousand separators,
// e.g. 1234567 -> "1,234,567".
func FormatGrouped(amount int64) string {
	s := fmt.Sprintf("%d", amount)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}

	n := len(s)
	if n <= 3 {
		if neg {
			return "-" + s
		}
		return s
	}

	var sb strings.Builder
	first := n % 3
	if first > 0 {
		sb.WriteString(s[:first])
	}
	for i := first; i < n; i += 3 {
		if sb.Len() > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(s[i : i+3])
	}
	if neg {
		return "-" + sb.String()
	}
	return sb.String()
}

// DownPayment returns the 40% milestone of a quoted total, as a display string
// with two decimals and comma grouping.
func DownPayment(total int64) string {
	return formatShare(total, DownPaymentShare)
}

// Balance returns the 60% milestone of a quoted total, as a display string
// with two decimals and comma grouping.
func Balance(total int64) string {
	return formatShare(total, BalanceShare)
}

func formatShare(total int64, share float64) string {
	// Work in centavos to avoid float drift on display boundaries.
	cents := int64(float64(total*100)*share + 0.5)
	whole := cents / 100
	frac := cents % 100
	return fmt.Sprintf("%s.%02d", FormatGrouped(whole), frac)
}

// FormatYesNo renders a boolean the way the audit log displays it.
func FormatYesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}

// JoinList renders a string set the way the audit log displays it.
func JoinList(items []string) string {
	if len(items) == 0 {
		return "None"
	}
	return strings.Join(items, ", ")
}
