// Package stats derives win/loss/profit summaries per account from the
// persisted round history counters.
package stats

import (
	"errors"
	"sort"

	"github.com/pocket-arcade/houserules-casino-server/money"
	"github.com/pocket-arcade/houserules-casino-server/state"
)

var (
	ErrUnknownAccount = errors.New("stats: account not found")
	ErrUnknownGame    = errors.New("stats: unknown game mode")
)

type Aggregator struct {
	store *state.Store
}

func New(store *state.Store) *Aggregator {
	return &Aggregator{store: store}
}

func applyResult(bucket *state.StatsBucket, buyIn, payout float64, won bool) {
	buyIn = money.RoundDelta(buyIn)
	payout = money.RoundDelta(payout)
	net := money.RoundBalance(payout - buyIn)

	bucket.RoundsPlayed++
	if won {
		bucket.RoundsWon++
	}
	bucket.TotalGameBuyIn = money.RoundBalance(bucket.TotalGameBuyIn + buyIn)
	bucket.TotalGamePayout = money.RoundBalance(bucket.TotalGamePayout + payout)
	bucket.TotalGameNet = money.RoundBalance(bucket.TotalGameNet + net)
	if bucket.RoundsPlayed > 0 {
		bucket.CurrentWinPercent = float64(bucket.RoundsWon) / float64(bucket.RoundsPlayed) * 100
	}
}

// Record folds one settled round into the account's overall bucket and,
// when the game mode is known, its per-game breakdown.
func (a *Aggregator) Record(name string, buyIn, payout float64, won bool, gameMode string) error {
	return a.store.Update(func(data *state.AppState) error {
		acct, ok := data.Accounts[name]
		if !ok {
			return ErrUnknownAccount
		}
		applyResult(&acct.Stats.StatsBucket, buyIn, payout, won)
		if state.KnownGameMode(gameMode) {
			bucket := acct.Stats.GameBreakdown[gameMode]
			applyResult(&bucket, buyIn, payout, won)
			acct.Stats.GameBreakdown[gameMode] = bucket
		}
		data.Accounts[name] = acct
		return nil
	})
}

// Summary returns the account's overall bucket, or one game's bucket when
// gameMode is non-empty.
func (a *Aggregator) Summary(name, gameMode string) (state.StatsBucket, error) {
	data, err := a.store.Load()
	if err != nil {
		return state.StatsBucket{}, err
	}
	acct, ok := data.Accounts[name]
	if !ok {
		return state.StatsBucket{}, ErrUnknownAccount
	}
	if gameMode == "" {
		return acct.Stats.StatsBucket, nil
	}
	if !state.KnownGameMode(gameMode) {
		return state.StatsBucket{}, ErrUnknownGame
	}
	return acct.Stats.GameBreakdown[gameMode], nil
}

// AccountRow is one line of the casino-wide snapshot.
type AccountRow struct {
	Name    string            `json:"name"`
	Balance float64           `json:"balance"`
	IsAdmin bool              `json:"is_admin"`
	Stats   state.StatsBucket `json:"stats"`
}

// Snapshot lists every account with its balance and summary, sorted by
// name, optionally restricted to one game mode. Admin view.
func (a *Aggregator) Snapshot(gameMode string) ([]AccountRow, error) {
	if gameMode != "" && !state.KnownGameMode(gameMode) {
		return nil, ErrUnknownGame
	}
	data, err := a.store.Load()
	if err != nil {
		return nil, err
	}
	rows := make([]AccountRow, 0, len(data.Accounts))
	for name, acct := range data.Accounts {
		bucket := acct.Stats.StatsBucket
		if gameMode != "" {
			bucket = acct.Stats.GameBreakdown[gameMode]
		}
		rows = append(rows, AccountRow{
			Name:    name,
			Balance: acct.Balance,
			IsAdmin: acct.IsAdmin,
			Stats:   bucket,
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })
	return rows, nil
}
