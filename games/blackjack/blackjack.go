// Package blackjack implements a single-deck, single-player blackjack
// round against the house dealer. The deck is reshuffled fresh for every
// round and discarded when it settles.
package blackjack

import (
	"crypto/rand"
	"errors"
	"math/big"
)

var (
	ErrRoundOver  = errors.New("blackjack: round already settled")
	ErrPlayerTurn = errors.New("blackjack: waiting on the player")
	ErrInvalidBet = errors.New("blackjack: bet must be positive")
)

// DealerStandTotal is the dealer's fixed policy: hit below it, stand at
// or above it. Standing on all 17+ is the strongest long-run dealer rule.
const DealerStandTotal = 17

var (
	ranks = []string{"2", "3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K", "A"}
	suits = []string{"S", "H", "D", "C"}
)

// Card is one playing card.
type Card struct {
	Rank string `json:"rank"`
	Suit string `json:"suit"`
}

// Result is a settled round's outcome.
type Result string

const (
	ResultBlackjack Result = "blackjack" // natural two-card 21
	ResultWin       Result = "win"
	ResultPush      Result = "push"
	ResultLoss      Result = "loss"
)

// Payout multipliers applied to the bet on settlement. The bet is debited
// when the round starts, so a push returns exactly the bet and a natural
// pays 3:2 on top of it.
const (
	blackjackReturn = 2.5
	winReturn       = 2.0
	pushReturn      = 1.0
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

// NewDeck returns a shuffled 52-card deck.
func NewDeck() []Card {
	deck := make([]Card, 0, 52)
	for _, s := range suits {
		for _, r := range ranks {
			deck = append(deck, Card{Rank: r, Suit: s})
		}
	}
	for i := len(deck) - 1; i > 0; i-- {
		j := secureIntn(i + 1)
		deck[i], deck[j] = deck[j], deck[i]
	}
	return deck
}

// HandTotal values a hand with flexible aces: each ace counts 11 until the
// hand would bust, then demotes to 1. Face cards count 10.
func HandTotal(cards []Card) int {
	total, aces := 0, 0
	for _, c := range cards {
		switch c.Rank {
		case "A":
			total += 11
			aces++
		case "J", "Q", "K":
			total += 10
		case "10":
			total += 10
		case "2", "3", "4", "5", "6", "7", "8", "9":
			total += int(c.Rank[0] - '0')
		}
	}
	for total > 21 && aces > 0 {
		total -= 10
		aces--
	}
	return total
}

// IsNatural reports a first two-card hand totaling 21.
func IsNatural(cards []Card) bool {
	return len(cards) == 2 && HandTotal(cards) == 21
}

// Round is one blackjack hand in flight.
type Round struct {
	Bet         float64
	PlayerCards []Card
	DealerCards []Card

	deck    []Card
	settled bool
	result  Result
}

// NewRound debits nothing itself: the caller takes the bet off the ledger
// first, then deals. Naturals on either side settle immediately, before
// any hit is offered.
func NewRound(bet float64) (*Round, error) {
	if bet <= 0 {
		return nil, ErrInvalidBet
	}
	r := &Round{Bet: bet, deck: NewDeck()}
	r.PlayerCards = append(r.PlayerCards, r.draw())
	r.DealerCards = append(r.DealerCards, r.draw())
	r.PlayerCards = append(r.PlayerCards, r.draw())
	r.DealerCards = append(r.DealerCards, r.draw())

	playerNatural := IsNatural(r.PlayerCards)
	dealerNatural := IsNatural(r.DealerCards)
	switch {
	case playerNatural && dealerNatural:
		r.settle(ResultPush)
	case playerNatural:
		r.settle(ResultBlackjack)
	case dealerNatural:
		r.settle(ResultLoss)
	}
	return r, nil
}

func (r *Round) draw() Card {
	if len(r.deck) == 0 {
		r.deck = NewDeck()
	}
	c := r.deck[len(r.deck)-1]
	r.deck = r.deck[:len(r.deck)-1]
	return c
}

func (r *Round) settle(res Result) {
	r.settled = true
	r.result = res
}

// Hit deals the player one card. Busting settles the round as a loss
// without the dealer playing.
func (r *Round) Hit() (Card, error) {
	if r.settled {
		return Card{}, ErrRoundOver
	}
	c := r.draw()
	r.PlayerCards = append(r.PlayerCards, c)
	if HandTotal(r.PlayerCards) > 21 {
		r.settle(ResultLoss)
	}
	return c, nil
}

// Stand ends the player's turn; the dealer draws to the stand total and
// the hands are compared.
func (r *Round) Stand() error {
	if r.settled {
		return ErrRoundOver
	}
	for HandTotal(r.DealerCards) < DealerStandTotal {
		r.DealerCards = append(r.DealerCards, r.draw())
	}
	playerTotal := HandTotal(r.PlayerCards)
	dealerTotal := HandTotal(r.DealerCards)
	switch {
	case dealerTotal > 21:
		r.settle(ResultWin)
	case playerTotal > dealerTotal:
		r.settle(ResultWin)
	case playerTotal < dealerTotal:
		r.settle(ResultLoss)
	default:
		r.settle(ResultPush)
	}
	return nil
}

// Settled reports whether the round is over.
func (r *Round) Settled() bool { return r.settled }

// Result returns the outcome of a settled round.
func (r *Round) Result() (Result, error) {
	if !r.settled {
		return "", ErrPlayerTurn
	}
	return r.result, nil
}

// PayoutReturn is the gross amount credited back against the already
// debited bet: 2.5x for a natural, 2x for a win, 1x for a push, 0 for a
// loss.
func (r *Round) PayoutReturn() (float64, error) {
	res, err := r.Result()
	if err != nil {
		return 0, err
	}
	switch res {
	case ResultBlackjack:
		return r.Bet * blackjackReturn, nil
	case ResultWin:
		return r.Bet * winReturn, nil
	case ResultPush:
		return r.Bet * pushReturn, nil
	default:
		return 0, nil
	}
}

// Won reports whether the settled round counts as a player win for stats.
func (r *Round) Won() bool {
	return r.settled && (r.result == ResultWin || r.result == ResultBlackjack)
}

// DealerUpcard is the dealer card shown while the player acts; the hole
// card stays down until the dealer plays.
func (r *Round) DealerUpcard() Card {
	if len(r.DealerCards) < 2 {
		return Card{}
	}
	return r.DealerCards[1]
}
