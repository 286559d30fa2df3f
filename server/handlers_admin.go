package server

import (
	"net/http"

	"github.com/pocket-arcade/houserules-casino-server/auth"
	"github.com/pocket-arcade/houserules-casino-server/state"

	"github.com/go-chi/chi/v5"
)

// handleGetOdds implements GET /api/admin/odds.
func (s *Server) handleGetOdds(w http.ResponseWriter, r *http.Request) {
	creds := sessionCreds{
		Account:   r.URL.Query().Get("account"),
		SessionID: r.URL.Query().Get("session_id"),
	}
	if _, ok := s.requireAdmin(w, creds); !ok {
		return
	}
	value, err := s.odds.Current()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"odds": value})
}

// handleSetOdds implements PUT /api/admin/odds. The multiplier skews
// every payout in the house's favor and only admins touch it.
func (s *Server) handleSetOdds(w http.ResponseWriter, r *http.Request) {
	var req struct {
		sessionCreds
		Odds float64 `json:"odds"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if _, ok := s.requireAdmin(w, req.sessionCreds); !ok {
		return
	}
	if err := s.odds.Set(req.Odds); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"odds": req.Odds})
}

// handleSetLimits implements PUT /api/admin/limits: casino-wide caps on
// guess-round parameters. Zero clears a cap.
func (s *Server) handleSetLimits(w http.ResponseWriter, r *http.Request) {
	var req struct {
		sessionCreds
		MaxRange   int     `json:"max_range"`
		MaxBuyIn   float64 `json:"max_buy_in"`
		MaxGuesses int     `json:"max_guesses"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if _, ok := s.requireAdmin(w, req.sessionCreds); !ok {
		return
	}
	if req.MaxRange < 0 || req.MaxBuyIn < 0 || req.MaxGuesses < 0 {
		writeError(w, http.StatusBadRequest, "limits must not be negative", "BAD_REQUEST")
		return
	}
	limits := state.GameLimits{
		MaxRange:   req.MaxRange,
		MaxBuyIn:   req.MaxBuyIn,
		MaxGuesses: req.MaxGuesses,
	}
	err := s.store.Update(func(data *state.AppState) error {
		data.GameLimits = limits
		return nil
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"limits": limits})
}

// handleOverrideBalance implements PUT /api/admin/accounts/{name}/balance.
func (s *Server) handleOverrideBalance(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	var req struct {
		sessionCreds
		Balance float64 `json:"balance"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if _, ok := s.requireAdmin(w, req.sessionCreds); !ok {
		return
	}
	balance, err := s.ledger.SetBalance(name, req.Balance)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"name": name, "balance": balance})
}

// handleSetAdmin implements PUT /api/admin/accounts/{name}/admin. Only
// the super-admin grants or revokes the admin flag; admins themselves
// never hold the grant capability.
func (s *Server) handleSetAdmin(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	var req struct {
		sessionCreds
		IsAdmin bool `json:"is_admin"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	id, ok := s.requireSession(w, req.sessionCreds)
	if !ok {
		return
	}
	if !id.Has(auth.CapSuperAdmin) {
		writeError(w, http.StatusForbidden, "super-admin capability required", "FORBIDDEN")
		return
	}
	if err := s.ledger.SetAdmin(name, req.IsAdmin); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"name": name, "is_admin": req.IsAdmin})
}

// handleSnapshot implements GET /api/admin/accounts: every account with
// balance and summary stats, optionally filtered by ?game=.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	creds := sessionCreds{
		Account:   r.URL.Query().Get("account"),
		SessionID: r.URL.Query().Get("session_id"),
	}
	if _, ok := s.requireAdmin(w, creds); !ok {
		return
	}
	rows, err := s.stats.Snapshot(r.URL.Query().Get("game"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"accounts": rows})
}
