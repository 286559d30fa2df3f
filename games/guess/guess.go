// Package guess implements both number-guessing variants. A round is an
// in-memory state machine; the caller debits and credits the ledger
// around it.
package guess

import (
	"crypto/rand"
	"errors"
	"math/big"

	"github.com/pocket-arcade/houserules-casino-server/odds"
)

var (
	ErrInvalidParams = errors.New("guess: invalid round parameters")
	ErrRoundOver     = errors.New("guess: round already settled")
	ErrOutOfRange    = errors.New("guess: number outside the round's range")
)

// Feedback is one attempt's result.
type Feedback string

const (
	TooHigh Feedback = "too_high"
	TooLow  Feedback = "too_low"
	Correct Feedback = "correct"
)

// secureIntn returns a uniform random int in [0, n) using crypto/rand (CSPRNG).
func secureIntn(n int) int {
	if n <= 0 {
		return 0
	}
	max := big.NewInt(int64(n))
	v, err := rand.Int(rand.Reader, max)
	if err != nil {
		return 0
	}
	return int(v.Int64())
}

func validParams(numRange int, price float64, guesses int) bool {
	return numRange >= 1 && price >= 0 && guesses >= 1
}

// PlayerRound is the player-guesses variant: the house picks a secret in
// [1, NumRange] and the player gets Guesses attempts to find it.
type PlayerRound struct {
	NumRange int
	Price    float64
	Guesses  int
	Payout   float64

	secret   int
	attempts int
	done     bool
	won      bool
}

// NewPlayerRound starts a round with the secret already drawn. The win
// payout is fixed up front from the current house odds.
func NewPlayerRound(numRange int, price float64, guesses int, houseOdds float64) (*PlayerRound, error) {
	if !validParams(numRange, price, guesses) || houseOdds <= 0 {
		return nil, ErrInvalidParams
	}
	return &PlayerRound{
		NumRange: numRange,
		Price:    price,
		Guesses:  guesses,
		Payout:   odds.PlayerPayout(numRange, price, guesses, houseOdds),
		secret:   1 + secureIntn(numRange),
	}, nil
}

// Guess submits one attempt. Out-of-range numbers do not consume an
// attempt. The round settles on a correct guess or when attempts run out.
func (r *PlayerRound) Guess(n int) (Feedback, error) {
	if r.done {
		return "", ErrRoundOver
	}
	if n < 1 || n > r.NumRange {
		return "", ErrOutOfRange
	}
	if n == r.secret {
		r.done = true
		r.won = true
		return Correct, nil
	}
	r.attempts++
	if r.attempts >= r.Guesses {
		r.done = true
	}
	if n > r.secret {
		return TooHigh, nil
	}
	return TooLow, nil
}

// Done reports whether the round has settled.
func (r *PlayerRound) Done() bool { return r.done }

// Won reports whether the player found the secret within budget.
func (r *PlayerRound) Won() bool { return r.won }

// AttemptsLeft returns the remaining attempt budget.
func (r *PlayerRound) AttemptsLeft() int { return r.Guesses - r.attempts }

// WinDelta is the signed balance change credited on a win. The buy-in was
// debited when the round started, so a loss credits nothing.
func (r *PlayerRound) WinDelta() float64 {
	if r.won {
		return r.Payout
	}
	return 0
}

// ComputerRound is the computer-guesses variant: the player keeps a secret
// and answers each computer guess with feedback. The computer narrows
// [lo, hi] by halving. The player stakes the worst-case loss beyond the
// round price when the round starts; settlement then only ever pays out,
// never collects, so an outcome cannot be blocked by a drained balance.
type ComputerRound struct {
	NumRange   int
	Price      float64
	Guesses    int
	LossPayout float64

	lo, hi      int
	attempt     int
	lastGuess   int
	awaiting    bool
	done        bool
	computerWon bool
	voided      bool
}

func NewComputerRound(numRange int, price float64, guesses int, houseOdds float64) (*ComputerRound, error) {
	if !validParams(numRange, price, guesses) || houseOdds <= 0 {
		return nil, ErrInvalidParams
	}
	return &ComputerRound{
		NumRange:   numRange,
		Price:      price,
		Guesses:    guesses,
		LossPayout: odds.ComputerLossPayout(numRange, price, guesses, houseOdds),
		lo:         1,
		hi:         numRange,
	}, nil
}

// Next produces the computer's next guess, or false if the round is over.
// With a single-guess budget the computer guesses blind; on its final
// attempt it gambles on a random number in the surviving interval;
// otherwise it bisects. Contradictory feedback empties the interval and
// voids the round.
func (c *ComputerRound) Next() (int, bool) {
	if c.done || c.awaiting {
		return 0, false
	}
	if c.attempt >= c.Guesses || c.lo > c.hi {
		c.done = true
		return 0, false
	}
	c.attempt++
	switch {
	case c.Guesses == 1:
		c.lastGuess = 1 + secureIntn(c.NumRange)
	case c.attempt == c.Guesses:
		c.lastGuess = c.lo + secureIntn(c.hi-c.lo+1)
	default:
		c.lastGuess = (c.lo + c.hi) / 2
	}
	c.awaiting = true
	return c.lastGuess, true
}

// Feedback applies the player's answer to the last guess.
func (c *ComputerRound) Feedback(fb Feedback) error {
	if c.done || !c.awaiting {
		return ErrRoundOver
	}
	c.awaiting = false
	switch fb {
	case Correct:
		c.done = true
		c.computerWon = true
	case TooLow:
		c.lo = c.lastGuess + 1
	case TooHigh:
		c.hi = c.lastGuess - 1
	default:
		c.awaiting = true
		return ErrInvalidParams
	}
	if !c.done {
		switch {
		case c.lo > c.hi:
			// The answers admit no secret: proven contradiction.
			c.done = true
			c.voided = true
		case c.attempt >= c.Guesses:
			c.done = true
		}
	}
	return nil
}

// Done reports whether the round has settled: the computer guessed right,
// ran out of attempts, or its interval emptied.
func (c *ComputerRound) Done() bool { return c.done }

// ComputerWon reports whether the house found the player's number.
func (c *ComputerRound) ComputerWon() bool { return c.computerWon }

// Voided reports a round ended by contradictory feedback. A voided round
// is unwound rather than paid: lying about the feedback must not turn
// into a player win.
func (c *ComputerRound) Voided() bool { return c.voided }

// Reserve is the stake collected when the round starts: the worst-case
// loss net of the round price the player earns for hosting the game.
func (c *ComputerRound) Reserve() float64 {
	return c.LossPayout - c.Price
}

// SettleDelta is the player's net money change over the whole round:
// beating the budget keeps the round price, a computer win pays the loss
// payout beyond it, a voided round moves nothing.
func (c *ComputerRound) SettleDelta() float64 {
	switch {
	case c.voided:
		return 0
	case c.computerWon:
		return c.Price - c.LossPayout
	}
	return c.Price
}
