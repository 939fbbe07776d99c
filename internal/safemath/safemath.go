// Package safemath centralizes the NaN/Infinity guarding used by every
// ratio and average computation in the service layer.
package safemath

import "math"

// Div returns num/den, or 0 when the denominator is zero or the result is
// not a finite number.
func Div(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return Sanitize(num / den)
}

// Ratio is Div over integer counts, the common case for completion and
// conversion rates.
func Ratio(num, den int) float64 {
	return Div(float64(num), float64(den))
}

// Sanitize normalizes NaN and infinite values to 0. Numeric fields must
// never carry a non-finite value into storage or display.
func Sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
