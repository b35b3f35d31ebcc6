// Package money converts between centavo amounts and their text forms.
package money

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("invalid amount")

var (
	centsPerUnit = decimal.NewFromInt(100)
	maxCents     = decimal.NewFromInt(math.MaxInt64)
	minCents     = decimal.NewFromInt(math.MinInt64)
)

// Parse reads an amount written as "1,234.56", "1.234,56", "₱ 1234" or
// "PHP 1,234" into centavos. The last separator is the decimal mark when both
// appear. A lone comma followed by exactly three digits groups thousands.
func Parse(s string) (int64, error) {
	clean := strings.TrimSpace(s)
	clean = strings.TrimPrefix(clean, "PHP")
	clean = strings.TrimPrefix(clean, "₱")
	clean = strings.ReplaceAll(clean, " ", "")

	if clean == "" {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}

	lastDot := strings.LastIndex(clean, ".")
	lastComma := strings.LastIndex(clean, ",")

	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			clean = strings.ReplaceAll(clean, ".", "")
			clean = strings.ReplaceAll(clean, ",", ".")
		} else {
			clean = strings.ReplaceAll(clean, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(clean, ",") > 1 || len(clean)-lastComma-1 == 3 {
			clean = strings.ReplaceAll(clean, ",", "")
		} else {
			clean = strings.ReplaceAll(clean, ",", ".")
		}
	case strings.Count(clean, ".") > 1:
		clean = strings.ReplaceAll(clean, ".", "")
	}

	d, err := decimal.NewFromString(clean)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}

	cents := d.Mul(centsPerUnit).Round(0)
	if cents.GreaterThan(maxCents) || cents.LessThan(minCents) {
		return 0, fmt.Errorf("%w: %q is out of range", ErrInvalidAmount, s)
	}

	return cents.IntPart(), nil
}

// Format renders centavos as "₱1,234.56".
func Format(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}

	fixed := decimal.New(cents, -2).StringFixed(2)
	whole, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder

	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}

		b.WriteRune(r)
	}

	return sign + "₱" + b.String() + "." + frac
}
