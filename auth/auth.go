// Package auth verifies account credentials and gates sensitive actions.
//
// Passwords are stored verbatim. That matches the deployed contract and is
// isolated behind this service so a hashed-credential implementation can be
// swapped in without touching callers.
package auth

import (
	"errors"

	"github.com/pocket-arcade/houserules-casino-server/state"
)

var (
	ErrAuthFailed     = errors.New("auth: credential mismatch")
	ErrUnknownAccount = errors.New("auth: account not found")
	ErrPasswordSet    = errors.New("auth: password already set")
)

// Capability is one grant attached to an authenticated identity.
type Capability string

const (
	CapGuest      Capability = "guest"
	CapStandard   Capability = "standard"
	CapAdmin      Capability = "admin"
	CapSuperAdmin Capability = "superadmin"
)

// Identity is an authenticated caller and its capability set.
type Identity struct {
	Name string
	Caps map[Capability]bool
}

func (id Identity) Has(c Capability) bool {
	return id.Caps[c]
}

// Guest returns the anonymous identity: play-only, no account.
func Guest() Identity {
	return Identity{Caps: map[Capability]bool{CapGuest: true}}
}

type Service struct {
	store      *state.Store
	superAdmin string
}

// NewService builds the auth service. superAdmin is the single bootstrap
// account name that holds the superadmin capability unconditionally.
func NewService(store *state.Store, superAdmin string) *Service {
	return &Service{store: store, superAdmin: superAdmin}
}

// HasPassword reports whether the account has a password on file. An
// account without one must go through first-sign-in setup before Verify
// can ever succeed.
func (s *Service) HasPassword(name string) (bool, error) {
	data, err := s.store.Load()
	if err != nil {
		return false, err
	}
	acct, ok := data.Accounts[name]
	if !ok {
		return false, ErrUnknownAccount
	}
	return acct.Password != "", nil
}

// Verify checks the supplied password. With no password on file it always
// fails; the caller routes to SetupPassword first.
func (s *Service) Verify(name, password string) error {
	data, err := s.store.Load()
	if err != nil {
		return err
	}
	acct, ok := data.Accounts[name]
	if !ok {
		return ErrUnknownAccount
	}
	if acct.Password == "" || acct.Password != password {
		return ErrAuthFailed
	}
	return nil
}

// Reauthenticate is the gate before withdrawals, deposits, self password
// changes, and viewing one's own sensitive data. It is Verify under a
// name that states the intent; there is no lockout or backoff.
func (s *Service) Reauthenticate(name, password string) error {
	return s.Verify(name, password)
}

// SetupPassword sets the first password on an account that has none.
func (s *Service) SetupPassword(name, newPassword string) error {
	return s.store.Update(func(data *state.AppState) error {
		acct, ok := data.Accounts[name]
		if !ok {
			return ErrUnknownAccount
		}
		if acct.Password != "" {
			return ErrPasswordSet
		}
		acct.Password = newPassword
		data.Accounts[name] = acct
		return nil
	})
}

// ChangePassword replaces the password after proving the current one.
func (s *Service) ChangePassword(name, currentPassword, newPassword string) error {
	return s.store.Update(func(data *state.AppState) error {
		acct, ok := data.Accounts[name]
		if !ok {
			return ErrUnknownAccount
		}
		if acct.Password == "" || acct.Password != currentPassword {
			return ErrAuthFailed
		}
		acct.Password = newPassword
		data.Accounts[name] = acct
		return nil
	})
}

// ResetPassword overwrites the password without the current-password
// check. Admin path only; the capability is checked at the boundary.
func (s *Service) ResetPassword(name, newPassword string) error {
	return s.store.Update(func(data *state.AppState) error {
		acct, ok := data.Accounts[name]
		if !ok {
			return ErrUnknownAccount
		}
		acct.Password = newPassword
		data.Accounts[name] = acct
		return nil
	})
}

// IdentityFor resolves the capability set for a signed-in account. The
// super-admin name is the one hardcoded bootstrap; every other grant comes
// from the account's admin flag.
func (s *Service) IdentityFor(name string) (Identity, error) {
	data, err := s.store.Load()
	if err != nil {
		return Identity{}, err
	}
	acct, ok := data.Accounts[name]
	if !ok {
		return Identity{}, ErrUnknownAccount
	}
	caps := map[Capability]bool{CapStandard: true}
	if acct.IsAdmin {
		caps[CapAdmin] = true
	}
	if s.superAdmin != "" && name == s.superAdmin {
		caps[CapAdmin] = true
		caps[CapSuperAdmin] = true
	}
	return Identity{Name: name, Caps: caps}, nil
}
