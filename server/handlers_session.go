package server

import (
	"errors"
	"net/http"

	"github.com/pocket-arcade/houserules-casino-server/session"
)

// handleSignIn implements POST /api/sessions. The password is verified
// first; an account that has no password yet is told to run setup. When a
// fresh session already holds the account, the caller may prove ownership
// of it by supplying the existing token, which replaces the session
// instead of conflicting.
func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Account           string `json:"account"`
		Password          string `json:"password"`
		ExistingSessionID string `json:"existing_session_id"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	hasPassword, err := s.auth.HasPassword(req.Account)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !hasPassword {
		writeError(w, http.StatusConflict, "no password set; run password setup first", "PASSWORD_NOT_SET")
		return
	}
	if err := s.auth.Verify(req.Account, req.Password); err != nil {
		writeDomainError(w, err)
		return
	}
	token, err := s.sessions.Acquire(req.Account)
	if errors.Is(err, session.ErrSessionConflict) && req.ExistingSessionID != "" {
		// Proof of ownership: the live token replaces the session.
		if vErr := s.sessions.Validate(req.Account, req.ExistingSessionID); vErr == nil {
			token, err = s.sessions.ForceAcquire(req.Account)
		}
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"account":    req.Account,
		"session_id": token,
	})
}

// handleHeartbeat implements POST /api/sessions/heartbeat.
func (s *Server) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	var req sessionCreds
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.sessions.Heartbeat(req.Account, req.SessionID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"account": req.Account, "alive": true})
}

// handleSignOut implements DELETE /api/sessions.
func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	var req sessionCreds
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.sessions.Release(req.Account, req.SessionID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"account": req.Account, "signed_out": true})
}
