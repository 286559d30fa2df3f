// Package state defines the persisted casino document and its storage
// backends. The whole document is loaded, mutated in memory, and written
// back; no partial-field writes are exposed.
package state

import (
	"github.com/pocket-arcade/houserules-casino-server/money"
)

// DefaultOdds is the house odds multiplier used when the document carries
// none (or an invalid one).
const DefaultOdds = 1.5

// OddsAccountKey is reserved and can never be used as an account name.
const OddsAccountKey = "__house_odds__"

// Game mode keys used for per-game stat breakdowns.
const (
	GamePlayerGuess   = "player_guess"
	GameComputerGuess = "computer_guess"
	GameBlackjack     = "blackjack"
)

// GameModes lists the known game stat keys.
var GameModes = []string{GamePlayerGuess, GameComputerGuess, GameBlackjack}

// KnownGameMode reports whether key names a tracked game mode.
func KnownGameMode(key string) bool {
	for _, m := range GameModes {
		if m == key {
			return true
		}
	}
	return false
}

// AppState is the root persisted document.
type AppState struct {
	Odds           float64            `json:"odds"`
	Accounts       map[string]Account `json:"accounts"`
	ActiveSessions map[string]Session `json:"active_sessions"`
	GameLimits     GameLimits         `json:"game_limits"`
}

// Account holds one user's balance, credential, settings, and stats.
type Account struct {
	Balance  float64         `json:"balance"`
	Password string          `json:"password"`
	IsAdmin  bool            `json:"is_admin"`
	Settings AccountSettings `json:"settings"`
	Stats    AccountStats    `json:"stats"`
}

// Session is the single live session allowed per account.
type Session struct {
	SessionID     string  `json:"session_id"`
	LastSeenEpoch float64 `json:"last_seen_epoch"`
}

// AccountSettings are per-account preferences. AllowNegativeBalance feeds
// the ledger's insufficient-funds check.
type AccountSettings struct {
	AllowNegativeBalance bool `json:"allow_negative_balance"`
	ConfirmBeforeBet     bool `json:"confirm_before_bet"`
}

// GameLimits caps round parameters casino-wide. Zero means unlimited.
type GameLimits struct {
	MaxRange   int     `json:"max_range,omitempty"`
	MaxBuyIn   float64 `json:"max_buy_in,omitempty"`
	MaxGuesses int     `json:"max_guesses,omitempty"`
}

// StatsBucket accumulates round results.
type StatsBucket struct {
	RoundsPlayed      int     `json:"rounds_played"`
	RoundsWon         int     `json:"rounds_won"`
	TotalGameBuyIn    float64 `json:"total_game_buy_in"`
	TotalGamePayout   float64 `json:"total_game_payout"`
	TotalGameNet      float64 `json:"total_game_net"`
	CurrentWinPercent float64 `json:"current_win_percentage"`
}

// AccountStats is the overall bucket plus a per-game breakdown.
type AccountStats struct {
	StatsBucket
	GameBreakdown map[string]StatsBucket `json:"game_breakdown"`
}

// DefaultAccountSettings returns the settings assigned at signup.
func DefaultAccountSettings() AccountSettings {
	return AccountSettings{
		AllowNegativeBalance: false,
		ConfirmBeforeBet:     true,
	}
}

// DefaultAccountStats returns zeroed stats with all game buckets present.
func DefaultAccountStats() AccountStats {
	s := AccountStats{GameBreakdown: make(map[string]StatsBucket, len(GameModes))}
	for _, m := range GameModes {
		s.GameBreakdown[m] = StatsBucket{}
	}
	return s
}

// NewAccount builds a fresh account with the initial deposit credited.
func NewAccount(initialDeposit float64) Account {
	return Account{
		Balance:  money.RoundCredit(initialDeposit),
		Settings: DefaultAccountSettings(),
		Stats:    DefaultAccountStats(),
	}
}

// Default returns the empty document: default odds, no accounts, no
// sessions, unlimited game limits.
func Default() *AppState {
	return &AppState{
		Odds:           DefaultOdds,
		Accounts:       make(map[string]Account),
		ActiveSessions: make(map[string]Session),
	}
}

// Normalize repairs a freshly decoded document in place: invalid odds fall
// back to the default, account balances are re-rounded, sessions that point
// at unknown accounts or carry empty tokens are dropped, and missing stat
// buckets are filled in.
func (s *AppState) Normalize() {
	if s.Odds <= 0 {
		s.Odds = DefaultOdds
	}
	if s.Accounts == nil {
		s.Accounts = make(map[string]Account)
	}
	for name, acct := range s.Accounts {
		if name == OddsAccountKey {
			delete(s.Accounts, name)
			continue
		}
		acct.Balance = money.RoundBalance(acct.Balance)
		if acct.Stats.GameBreakdown == nil {
			acct.Stats.GameBreakdown = DefaultAccountStats().GameBreakdown
		} else {
			for _, m := range GameModes {
				if _, ok := acct.Stats.GameBreakdown[m]; !ok {
					acct.Stats.GameBreakdown[m] = StatsBucket{}
				}
			}
		}
		s.Accounts[name] = acct
	}
	if s.ActiveSessions == nil {
		s.ActiveSessions = make(map[string]Session)
	}
	for name, sess := range s.ActiveSessions {
		if _, ok := s.Accounts[name]; !ok || sess.SessionID == "" || sess.LastSeenEpoch <= 0 {
			delete(s.ActiveSessions, name)
		}
	}
	if s.GameLimits.MaxRange < 0 {
		s.GameLimits.MaxRange = 0
	}
	if s.GameLimits.MaxBuyIn < 0 {
		s.GameLimits.MaxBuyIn = 0
	}
	if s.GameLimits.MaxGuesses < 0 {
		s.GameLimits.MaxGuesses = 0
	}
}
