package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pocket-arcade/houserules-casino-server/auth"
	"github.com/pocket-arcade/houserules-casino-server/games/blackjack"
	"github.com/pocket-arcade/houserules-casino-server/games/guess"
	"github.com/pocket-arcade/houserules-casino-server/ledger"
	"github.com/pocket-arcade/houserules-casino-server/odds"
	"github.com/pocket-arcade/houserules-casino-server/session"
	"github.com/pocket-arcade/houserules-casino-server/state"
	"github.com/pocket-arcade/houserules-casino-server/stats"
)

// APIError is the standard error response for the casino APIs.
type APIError struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

func writeError(w http.ResponseWriter, code int, errMsg, codeStr string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(APIError{
		Error:   errMsg,
		Code:    codeStr,
		Message: errMsg,
	})
}

// writeDomainError converts a ledger/session/auth/odds/game error into the
// API envelope. Every taxonomy error is recovered here; nothing crashes
// the process.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrDuplicateAccount):
		writeError(w, http.StatusConflict, err.Error(), "DUPLICATE_ACCOUNT")
	case errors.Is(err, ledger.ErrUnknownAccount),
		errors.Is(err, session.ErrUnknownAccount),
		errors.Is(err, auth.ErrUnknownAccount),
		errors.Is(err, stats.ErrUnknownAccount):
		writeError(w, http.StatusNotFound, err.Error(), "UNKNOWN_ACCOUNT")
	case errors.Is(err, ledger.ErrInvalidDeposit):
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID_DEPOSIT")
	case errors.Is(err, ledger.ErrInsufficientFunds):
		writeError(w, http.StatusConflict, err.Error(), "INSUFFICIENT_FUNDS")
	case errors.Is(err, ledger.ErrReservedName):
		writeError(w, http.StatusBadRequest, err.Error(), "RESERVED_NAME")
	case errors.Is(err, session.ErrSessionConflict):
		writeError(w, http.StatusConflict, err.Error(), "SESSION_CONFLICT")
	case errors.Is(err, session.ErrInvalidSession):
		writeError(w, http.StatusUnauthorized, err.Error(), "INVALID_SESSION")
	case errors.Is(err, auth.ErrAuthFailed), errors.Is(err, auth.ErrPasswordSet):
		writeError(w, http.StatusForbidden, err.Error(), "AUTH_FAILED")
	case errors.Is(err, odds.ErrInvalidOdds):
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID_ODDS")
	case errors.Is(err, stats.ErrUnknownGame):
		writeError(w, http.StatusBadRequest, err.Error(), "UNKNOWN_GAME")
	case errors.Is(err, guess.ErrInvalidParams), errors.Is(err, blackjack.ErrInvalidBet):
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID_ROUND")
	case errors.Is(err, guess.ErrRoundOver), errors.Is(err, blackjack.ErrRoundOver):
		writeError(w, http.StatusConflict, err.Error(), "ROUND_OVER")
	case errors.Is(err, blackjack.ErrPlayerTurn):
		writeError(w, http.StatusConflict, err.Error(), "PLAYER_TURN")
	case errors.Is(err, guess.ErrOutOfRange):
		writeError(w, http.StatusBadRequest, err.Error(), "OUT_OF_RANGE")
	case errors.Is(err, state.ErrIO):
		writeError(w, http.StatusServiceUnavailable, err.Error(), "IO_FAILURE")
	default:
		writeError(w, http.StatusInternalServerError, err.Error(), "INTERNAL")
	}
}
