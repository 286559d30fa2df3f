package server

import (
	"net/http"

	"github.com/pocket-arcade/houserules-casino-server/auth"
	"github.com/pocket-arcade/houserules-casino-server/state"

	"github.com/go-chi/chi/v5"
)

// handleCreateAccount implements POST /api/accounts: signup with an
// initial deposit and no password (first sign-in sets one).
func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name    string  `json:"name"`
		Deposit float64 `json:"deposit"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.ledger.Create(req.Name, req.Deposit); err != nil {
		writeDomainError(w, err)
		return
	}
	balance, err := s.ledger.Balance(req.Name)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"name":    req.Name,
		"balance": balance,
	})
}

// handleBalance implements GET /api/accounts/{name}/balance. The caller
// must hold the account's live session, or be an admin.
func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	creds := sessionCreds{
		Account:   r.URL.Query().Get("account"),
		SessionID: r.URL.Query().Get("session_id"),
	}
	if creds.Account == "" {
		creds.Account = name
	}
	id, ok := s.requireSession(w, creds)
	if !ok {
		return
	}
	if id.Name != name && !id.Has(auth.CapAdmin) {
		writeError(w, http.StatusForbidden, "not your account", "FORBIDDEN")
		return
	}
	balance, err := s.ledger.Balance(name)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"name": name, "balance": balance})
}

// handleFunds implements POST /api/accounts/{name}/funds: a manual
// deposit (positive amount) or withdrawal (negative). Sensitive, so it
// re-authenticates with the account password on top of the session.
func (s *Server) handleFunds(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	var req struct {
		sessionCreds
		Password string  `json:"password"`
		Amount   float64 `json:"amount"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Account = name
	if _, ok := s.requireSession(w, req.sessionCreds); !ok {
		return
	}
	if err := s.auth.Reauthenticate(name, req.Password); err != nil {
		writeDomainError(w, err)
		return
	}
	if err := s.ledger.ApplyDelta(name, req.Amount); err != nil {
		writeDomainError(w, err)
		return
	}
	balance, err := s.ledger.Balance(name)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"name": name, "balance": balance})
}

// handleDeleteAccount implements DELETE /api/accounts/{name}. Admin only.
func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	creds := sessionCreds{
		Account:   r.URL.Query().Get("account"),
		SessionID: r.URL.Query().Get("session_id"),
	}
	if _, ok := s.requireAdmin(w, creds); !ok {
		return
	}
	if err := s.ledger.Delete(name); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": name})
}

// handleAccountStats implements GET /api/accounts/{name}/stats with an
// optional ?game= filter.
func (s *Server) handleAccountStats(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	creds := sessionCreds{
		Account:   r.URL.Query().Get("account"),
		SessionID: r.URL.Query().Get("session_id"),
	}
	if creds.Account == "" {
		creds.Account = name
	}
	id, ok := s.requireSession(w, creds)
	if !ok {
		return
	}
	if id.Name != name && !id.Has(auth.CapAdmin) {
		writeError(w, http.StatusForbidden, "not your account", "FORBIDDEN")
		return
	}
	bucket, err := s.stats.Summary(name, r.URL.Query().Get("game"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"name": name, "stats": bucket})
}

// handleGetSettings implements GET /api/accounts/{name}/settings.
func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	creds := sessionCreds{
		Account:   name,
		SessionID: r.URL.Query().Get("session_id"),
	}
	if _, ok := s.requireSession(w, creds); !ok {
		return
	}
	settings, err := s.ledger.Settings(name)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	isAdmin, err := s.ledger.IsAdmin(name)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"name":     name,
		"settings": settings,
		"is_admin": isAdmin,
	})
}

// handleSetSettings implements PUT /api/accounts/{name}/settings.
// allow_negative_balance loosens the insufficient-funds check, so it
// re-authenticates with the account password like fund moves do.
func (s *Server) handleSetSettings(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	var req struct {
		sessionCreds
		Password string                `json:"password"`
		Settings state.AccountSettings `json:"settings"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Account = name
	if _, ok := s.requireSession(w, req.sessionCreds); !ok {
		return
	}
	if err := s.auth.Reauthenticate(name, req.Password); err != nil {
		writeDomainError(w, err)
		return
	}
	if err := s.ledger.SetSettings(name, req.Settings); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"name": name, "settings": req.Settings})
}

// handlePassword implements POST /api/accounts/{name}/password.
// action "setup" sets the first password on an account that has none,
// "change" requires the current password, "reset" is the admin path and
// bypasses the current-password check.
func (s *Server) handlePassword(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	var req struct {
		sessionCreds
		Action          string `json:"action"`
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	switch req.Action {
	case "setup":
		if err := s.auth.SetupPassword(name, req.NewPassword); err != nil {
			writeDomainError(w, err)
			return
		}
	case "change":
		if err := s.auth.ChangePassword(name, req.CurrentPassword, req.NewPassword); err != nil {
			writeDomainError(w, err)
			return
		}
	case "reset":
		if _, ok := s.requireAdmin(w, req.sessionCreds); !ok {
			return
		}
		if err := s.auth.ResetPassword(name, req.NewPassword); err != nil {
			writeDomainError(w, err)
			return
		}
	default:
		writeError(w, http.StatusBadRequest, "unknown action", "BAD_REQUEST")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"name": name, "updated": true})
}
