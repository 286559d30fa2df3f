// Package ledger is the single choke point for account balance mutation.
// Every game settlement and every manual add/withdraw passes through
// ApplyDelta, which enforces the non-negative-balance policy.
package ledger

import (
	"errors"
	"sort"

	"github.com/pocket-arcade/houserules-casino-server/money"
	"github.com/pocket-arcade/houserules-casino-server/state"
)

var (
	ErrDuplicateAccount  = errors.New("ledger: account already exists")
	ErrUnknownAccount    = errors.New("ledger: account not found")
	ErrInvalidDeposit    = errors.New("ledger: initial deposit must not be negative")
	ErrInsufficientFunds = errors.New("ledger: insufficient funds")
	ErrReservedName      = errors.New("ledger: account name is reserved")
)

type Ledger struct {
	store *state.Store
}

func New(store *state.Store) *Ledger {
	return &Ledger{store: store}
}

// Create inserts a new account with the initial deposit credited and no
// password set. Names are case-sensitive exact matches.
func (l *Ledger) Create(name string, initialDeposit float64) error {
	if name == "" || name == state.OddsAccountKey {
		return ErrReservedName
	}
	if initialDeposit < 0 {
		return ErrInvalidDeposit
	}
	return l.store.Update(func(data *state.AppState) error {
		if _, ok := data.Accounts[name]; ok {
			return ErrDuplicateAccount
		}
		data.Accounts[name] = state.NewAccount(initialDeposit)
		return nil
	})
}

// Balance returns the account's balance.
func (l *Ledger) Balance(name string) (float64, error) {
	data, err := l.store.Load()
	if err != nil {
		return 0, err
	}
	acct, ok := data.Accounts[name]
	if !ok {
		return 0, ErrUnknownAccount
	}
	return acct.Balance, nil
}

// ApplyDelta credits (positive) or debits (negative) an account. The delta
// is cent-rounded in the house's favor before it lands. A debit that would
// take the balance negative fails with ErrInsufficientFunds unless the
// account opted into negative balances.
func (l *Ledger) ApplyDelta(name string, delta float64) error {
	return l.store.Update(func(data *state.AppState) error {
		acct, ok := data.Accounts[name]
		if !ok {
			return ErrUnknownAccount
		}
		rounded := money.RoundDelta(delta)
		next := money.RoundBalance(acct.Balance + rounded)
		if next < 0 && !acct.Settings.AllowNegativeBalance {
			return ErrInsufficientFunds
		}
		acct.Balance = next
		data.Accounts[name] = acct
		return nil
	})
}

// SetBalance overwrites an account's balance outright (admin override).
func (l *Ledger) SetBalance(name string, balance float64) (float64, error) {
	normalized := money.RoundBalance(balance)
	err := l.store.Update(func(data *state.AppState) error {
		acct, ok := data.Accounts[name]
		if !ok {
			return ErrUnknownAccount
		}
		acct.Balance = normalized
		data.Accounts[name] = acct
		return nil
	})
	if err != nil {
		return 0, err
	}
	return normalized, nil
}

// Delete removes the account and any live session for it (admin only;
// capability is checked at the boundary).
func (l *Ledger) Delete(name string) error {
	return l.store.Update(func(data *state.AppState) error {
		if _, ok := data.Accounts[name]; !ok {
			return ErrUnknownAccount
		}
		delete(data.Accounts, name)
		delete(data.ActiveSessions, name)
		return nil
	})
}

// ListNames returns all account names, sorted.
func (l *Ledger) ListNames() ([]string, error) {
	data, err := l.store.Load()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(data.Accounts))
	for name := range data.Accounts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Settings returns the account's settings.
func (l *Ledger) Settings(name string) (state.AccountSettings, error) {
	data, err := l.store.Load()
	if err != nil {
		return state.AccountSettings{}, err
	}
	acct, ok := data.Accounts[name]
	if !ok {
		return state.AccountSettings{}, ErrUnknownAccount
	}
	return acct.Settings, nil
}

// SetSettings replaces the account's settings.
func (l *Ledger) SetSettings(name string, settings state.AccountSettings) error {
	return l.store.Update(func(data *state.AppState) error {
		acct, ok := data.Accounts[name]
		if !ok {
			return ErrUnknownAccount
		}
		acct.Settings = settings
		data.Accounts[name] = acct
		return nil
	})
}

// IsAdmin reports the account's admin flag.
func (l *Ledger) IsAdmin(name string) (bool, error) {
	data, err := l.store.Load()
	if err != nil {
		return false, err
	}
	acct, ok := data.Accounts[name]
	if !ok {
		return false, ErrUnknownAccount
	}
	return acct.IsAdmin, nil
}

// SetAdmin flips the account's admin flag (super-admin only; capability is
// checked at the boundary).
func (l *Ledger) SetAdmin(name string, isAdmin bool) error {
	return l.store.Update(func(data *state.AppState) error {
		acct, ok := data.Accounts[name]
		if !ok {
			return ErrUnknownAccount
		}
		acct.IsAdmin = isAdmin
		data.Accounts[name] = acct
		return nil
	})
}
