package domain

import "strconv"

// Money is an amount of Indonesian Rupiah as a whole-unit integer.
// The Rupiah has no subunits in this domain, so no scaling is applied.
type Money int64

func NewMoney(amount int64) (Money, error) {
	if amount < 0 {
		return 0, NewNegativeAmountError(amount)
	}
	return Money(amount), nil
}

func (m Money) Add(other Money) Money {
	return m + other
}

// Subtract returns m - other, failing if the result would be negative.
func (m Money) Subtract(other Money) (Money, error) {
	if other > m {
		return 0, NewNegativeAmountError(int64(m - other))
	}
	return m - other, nil
}

// MultiplyByRatio computes m * numerator / denominator with floor rounding.
// The second return value is the leftover numerator (0 <= r < denominator),
// so product + r/denominator is exact and no rupiah is lost silently.
// Used for tax and service-fee percentages.
func (m Money) MultiplyByRatio(numerator, denominator int64) (Money, int64, error) {
	if denominator <= 0 || numerator < 0 {
		return 0, 0, NewInvalidRatioError(numerator, denominator)
	}
	total := int64(m) * numerator
	return Money(total / denominator), total % denominator, nil
}

func (m Money) IsZero() bool {
	return m == 0
}

// Format renders the amount in Indonesian convention: Rp25.000.000.
func (m Money) Format() string {
	digits := strconv.FormatInt(int64(m), 10)
	neg := false
	if digits[0] == '-' {
		neg = true
		digits = digits[1:]
	}

	var out []byte
	for i, d := range []byte(digits) {
		if i > 0 && (len(digits)-i)%3 == 0 {
			out = append(out, '.')
		}
		out = append(out, d)
	}

	if neg {
		return "-Rp" + string(out)
	}
	return "Rp" + string(out)
}
