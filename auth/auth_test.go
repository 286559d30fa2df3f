package auth

import (
	"errors"
	"testing"

	"github.com/pocket-arcade/houserules-casino-server/state"
)

func newService(t *testing.T, superAdmin string) *Service {
	t.Helper()
	store := state.NewStore(state.NewFileBackend(t.TempDir()))
	err := store.Update(func(data *state.AppState) error {
		data.Accounts["alice"] = state.NewAccount(0)
		admin := state.NewAccount(0)
		admin.IsAdmin = true
		data.Accounts["marge"] = admin
		data.Accounts["isaac"] = state.NewAccount(0)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	return NewService(store, superAdmin)
}

func TestPasswordLifecycle(t *testing.T) {
	s := newService(t, "")

	// No password yet: verify always fails, setup is the only way in.
	has, err := s.HasPassword("alice")
	if err != nil || has {
		t.Fatalf("HasPassword = %v, %v", has, err)
	}
	if err := s.Verify("alice", ""); !errors.Is(err, ErrAuthFailed) {
		t.Errorf("verify with no password err = %v, want ErrAuthFailed", err)
	}
	if err := s.SetupPassword("alice", "hunter2"); err != nil {
		t.Fatal(err)
	}
	if err := s.Verify("alice", "hunter2"); err != nil {
		t.Errorf("verify: %v", err)
	}
	if err := s.Verify("alice", "wrong"); !errors.Is(err, ErrAuthFailed) {
		t.Errorf("wrong password err = %v, want ErrAuthFailed", err)
	}

	// A second setup without proof of the current password fails.
	if err := s.SetupPassword("alice", "other"); !errors.Is(err, ErrPasswordSet) {
		t.Errorf("second setup err = %v, want ErrPasswordSet", err)
	}
	if err := s.ChangePassword("alice", "wrong", "other"); !errors.Is(err, ErrAuthFailed) {
		t.Errorf("change without proof err = %v, want ErrAuthFailed", err)
	}
	if err := s.ChangePassword("alice", "hunter2", "other"); err != nil {
		t.Fatal(err)
	}
	if err := s.Verify("alice", "other"); err != nil {
		t.Errorf("verify after change: %v", err)
	}

	// The admin reset path bypasses the current-password check.
	if err := s.ResetPassword("alice", "fresh"); err != nil {
		t.Fatal(err)
	}
	if err := s.Verify("alice", "fresh"); err != nil {
		t.Errorf("verify after reset: %v", err)
	}
}

func TestVerify_UnknownAccount(t *testing.T) {
	s := newService(t, "")
	if err := s.Verify("nobody", "x"); !errors.Is(err, ErrUnknownAccount) {
		t.Errorf("err = %v, want ErrUnknownAccount", err)
	}
}

func TestIdentityFor_Capabilities(t *testing.T) {
	s := newService(t, "isaac")

	id, err := s.IdentityFor("alice")
	if err != nil {
		t.Fatal(err)
	}
	if !id.Has(CapStandard) || id.Has(CapAdmin) || id.Has(CapSuperAdmin) {
		t.Errorf("alice caps = %v", id.Caps)
	}

	id, err = s.IdentityFor("marge")
	if err != nil {
		t.Fatal(err)
	}
	if !id.Has(CapAdmin) || id.Has(CapSuperAdmin) {
		t.Errorf("marge caps = %v", id.Caps)
	}

	id, err = s.IdentityFor("isaac")
	if err != nil {
		t.Fatal(err)
	}
	if !id.Has(CapAdmin) || !id.Has(CapSuperAdmin) {
		t.Errorf("isaac caps = %v", id.Caps)
	}
}

func TestGuestIdentity(t *testing.T) {
	id := Guest()
	if !id.Has(CapGuest) || id.Has(CapStandard) || id.Name != "" {
		t.Errorf("guest = %+v", id)
	}
}
