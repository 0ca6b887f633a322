// internal/domain/common/money.go
package common

import "math"

// PriceTolerance is the rounding slack allowed when comparing a gateway
// reported amount against a stored price.
const PriceTolerance = 0.02

// Round2 rounds a monetary value to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// WithinTolerance reports whether two monetary values differ by at most
// PriceTolerance.
func WithinTolerance(a, b float64) bool {
	return math.Abs(a-b) <= PriceTolerance
}
