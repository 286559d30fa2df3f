// Package money normalizes amounts to cents. Rounding is intentionally
// biased to benefit the house: credits round down, charges round up.
package money

import (
	"fmt"
	"math"
)

// RoundCredit rounds a player credit down to the cent.
func RoundCredit(v float64) float64 {
	return math.Floor(v*100+1e-6) / 100
}

// RoundCharge rounds a player charge magnitude up to the cent.
func RoundCharge(v float64) float64 {
	return math.Ceil(v*100-1e-6) / 100
}

// RoundDelta rounds a signed account change: positive deltas credit the
// player and round down, negative deltas debit and round up in magnitude.
func RoundDelta(delta float64) float64 {
	if delta >= 0 {
		return RoundCredit(delta)
	}
	return -RoundCharge(-delta)
}

// RoundBalance normalizes a balance to cents in the house-favor direction
// by sign.
func RoundBalance(balance float64) float64 {
	if balance >= 0 {
		return RoundCredit(balance)
	}
	return -RoundCharge(-balance)
}

// Format renders an amount with two decimals (half-up) for display.
func Format(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
