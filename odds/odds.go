// Package odds holds the house odds multiplier and the payout math for
// the number-guessing games. Both payout directions round in the house's
// favor: the player's win rounds down, the player's loss rounds up.
package odds

import (
	"errors"
	"math"

	"github.com/pocket-arcade/houserules-casino-server/state"
)

var ErrInvalidOdds = errors.New("odds: multiplier must be positive")

// BreakEven is the payout at which expected player value is zero before
// any house-odds adjustment: numRange*price / 2^(guesses-1).
func BreakEven(numRange int, pricePerRound float64, guesses int) float64 {
	return float64(numRange) * pricePerRound / math.Pow(2, float64(guesses-1))
}

// PlayerPayout is what the player wins in player-guesses mode: the
// break-even payout shrunk by the odds multiplier and floored, but never
// less than the per-round price.
func PlayerPayout(numRange int, pricePerRound float64, guesses int, odds float64) float64 {
	payout := math.Floor(BreakEven(numRange, pricePerRound, guesses) / odds)
	return math.Max(payout, pricePerRound)
}

// ComputerLossPayout is what the player loses when the computer guesses
// their number: the break-even payout grown by the odds multiplier and
// ceiled, but never less than the per-round price.
func ComputerLossPayout(numRange int, pricePerRound float64, guesses int, odds float64) float64 {
	payout := math.Ceil(BreakEven(numRange, pricePerRound, guesses) * odds)
	return math.Max(payout, pricePerRound)
}

// Engine reads and writes the process-wide multiplier in the persisted
// document. Reads feed every round's payout computation; writes are
// admin-only.
type Engine struct {
	store *state.Store
}

func NewEngine(store *state.Store) *Engine {
	return &Engine{store: store}
}

// Current returns the saved multiplier, falling back to the default.
func (e *Engine) Current() (float64, error) {
	data, err := e.store.Load()
	if err != nil {
		return 0, err
	}
	if data.Odds <= 0 {
		return state.DefaultOdds, nil
	}
	return data.Odds, nil
}

// Set persists a new multiplier. Values at or below zero are rejected.
func (e *Engine) Set(value float64) error {
	if value <= 0 {
		return ErrInvalidOdds
	}
	return e.store.Update(func(data *state.AppState) error {
		data.Odds = value
		return nil
	})
}
