package server

import (
	"net/http"
	"time"

	"github.com/pocket-arcade/houserules-casino-server/games/blackjack"
	"github.com/pocket-arcade/houserules-casino-server/games/guess"
	"github.com/pocket-arcade/houserules-casino-server/money"
	"github.com/pocket-arcade/houserules-casino-server/state"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// gameStartRequest is the shared shape for starting any round. Guest
// rounds skip the session check and never touch ledger or stats; the
// client tracks the guest balance.
type gameStartRequest struct {
	sessionCreds
	Guest bool `json:"guest"`

	Mode          string  `json:"mode"` // "player" or "computer"
	NumRange      int     `json:"num_range"`
	PricePerRound float64 `json:"price_per_round"`
	Guesses       int     `json:"guesses"`

	Bet float64 `json:"bet"` // blackjack
}

// authorizeRound validates the caller for a round start. Returns the
// account name ("" for guests).
func (s *Server) authorizeRound(w http.ResponseWriter, req *gameStartRequest) (string, bool) {
	if req.Guest {
		return "", true
	}
	id, ok := s.requireSession(w, req.sessionCreds)
	if !ok {
		return "", false
	}
	return id.Name, true
}

// checkLimits enforces the admin-set caps on guess-round parameters.
func (s *Server) checkLimits(w http.ResponseWriter, numRange int, price float64, guesses int) bool {
	data, err := s.store.Load()
	if err != nil {
		writeDomainError(w, err)
		return false
	}
	limits := data.GameLimits
	if limits.MaxRange > 0 && numRange > limits.MaxRange {
		writeError(w, http.StatusBadRequest, "range exceeds the casino limit", "LIMIT_EXCEEDED")
		return false
	}
	if limits.MaxBuyIn > 0 && price > limits.MaxBuyIn {
		writeError(w, http.StatusBadRequest, "buy-in exceeds the casino limit", "LIMIT_EXCEEDED")
		return false
	}
	if limits.MaxGuesses > 0 && guesses > limits.MaxGuesses {
		writeError(w, http.StatusBadRequest, "guess budget exceeds the casino limit", "LIMIT_EXCEEDED")
		return false
	}
	return true
}

// handleGuessStart implements POST /api/rounds/guess for both variants.
func (s *Server) handleGuessStart(w http.ResponseWriter, r *http.Request) {
	var req gameStartRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	account, ok := s.authorizeRound(w, &req)
	if !ok {
		return
	}
	if !s.checkLimits(w, req.NumRange, req.PricePerRound, req.Guesses) {
		return
	}
	houseOdds, err := s.odds.Current()
	if err != nil {
		writeDomainError(w, err)
		return
	}

	switch req.Mode {
	case "player":
		round, err := guess.NewPlayerRound(req.NumRange, req.PricePerRound, req.Guesses, houseOdds)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		// The buy-in comes off the balance up front; a win credits the
		// payout later.
		if account != "" {
			if err := s.ledger.ApplyDelta(account, -round.Price); err != nil {
				writeDomainError(w, err)
				return
			}
		}
		lr := &liveRound{
			RoundID:   uuid.NewString(),
			Account:   account,
			Guest:     req.Guest,
			CreatedAt: time.Now(),
			Player:    round,
		}
		s.rounds.Put(lr)
		writeJSON(w, http.StatusCreated, map[string]any{
			"round_id":      lr.RoundID,
			"mode":          "player",
			"payout":        round.Payout,
			"attempts_left": round.AttemptsLeft(),
			"delta":         -round.Price,
		})

	case "computer":
		round, err := guess.NewComputerRound(req.NumRange, req.PricePerRound, req.Guesses, houseOdds)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		// The worst-case loss beyond the round price is staked up front.
		// Settlement then only credits, so a drained balance can never
		// block an outcome, and an abandoned round holds no free money.
		if account != "" {
			if err := s.ledger.ApplyDelta(account, -round.Reserve()); err != nil {
				writeDomainError(w, err)
				return
			}
		}
		lr := &liveRound{
			RoundID:   uuid.NewString(),
			Account:   account,
			Guest:     req.Guest,
			CreatedAt: time.Now(),
			Computer:  round,
		}
		s.rounds.Put(lr)
		firstGuess, _ := round.Next()
		writeJSON(w, http.StatusCreated, map[string]any{
			"round_id":       lr.RoundID,
			"mode":           "computer",
			"loss_payout":    round.LossPayout,
			"computer_guess": firstGuess,
			"delta":          -round.Reserve(),
		})

	default:
		writeError(w, http.StatusBadRequest, "mode must be player or computer", "BAD_REQUEST")
	}
}

// loadRound fetches a live round and checks it belongs to the caller.
func (s *Server) loadRound(w http.ResponseWriter, r *http.Request, creds sessionCreds) (*liveRound, bool) {
	roundID := chi.URLParam(r, "roundID")
	lr, ok := s.rounds.Get(roundID)
	if !ok {
		writeError(w, http.StatusNotFound, "round not found", "ROUND_NOT_FOUND")
		return nil, false
	}
	if !lr.Guest {
		if _, ok := s.requireSession(w, creds); !ok {
			return nil, false
		}
		if creds.Account != lr.Account {
			writeError(w, http.StatusForbidden, "not your round", "FORBIDDEN")
			return nil, false
		}
	}
	return lr, true
}

// handleGuessAttempt implements POST /api/rounds/guess/{roundID}/guess
// (player mode).
func (s *Server) handleGuessAttempt(w http.ResponseWriter, r *http.Request) {
	var req struct {
		sessionCreds
		Guess int `json:"guess"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	lr, ok := s.loadRound(w, r, req.sessionCreds)
	if !ok {
		return
	}
	if lr.Player == nil {
		writeError(w, http.StatusBadRequest, "not a player-guess round", "BAD_REQUEST")
		return
	}
	round := lr.Player
	feedback, err := round.Guess(req.Guess)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	resp := map[string]any{
		"feedback":      feedback,
		"attempts_left": round.AttemptsLeft(),
		"settled":       round.Done(),
	}
	if round.Done() {
		delta := round.WinDelta()
		if lr.Account != "" {
			if delta > 0 {
				if err := s.ledger.ApplyDelta(lr.Account, delta); err != nil {
					writeDomainError(w, err)
					return
				}
			}
			payout := 0.0
			if round.Won() {
				payout = round.Payout
			}
			if err := s.stats.Record(lr.Account, round.Price, payout, round.Won(), state.GamePlayerGuess); err != nil {
				writeDomainError(w, err)
				return
			}
		}
		s.rounds.Delete(lr.RoundID)
		resp["won"] = round.Won()
		resp["delta"] = delta
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleGuessFeedback implements POST /api/rounds/guess/{roundID}/feedback
// (computer mode): the player answers the last computer guess and, while
// the round runs, receives the next one.
func (s *Server) handleGuessFeedback(w http.ResponseWriter, r *http.Request) {
	var req struct {
		sessionCreds
		Feedback guess.Feedback `json:"feedback"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	lr, ok := s.loadRound(w, r, req.sessionCreds)
	if !ok {
		return
	}
	if lr.Computer == nil {
		writeError(w, http.StatusBadRequest, "not a computer-guess round", "BAD_REQUEST")
		return
	}
	round := lr.Computer
	if err := round.Feedback(req.Feedback); err != nil {
		writeDomainError(w, err)
		return
	}
	resp := map[string]any{"settled": round.Done()}
	if !round.Done() {
		next, ok := round.Next()
		if ok {
			resp["computer_guess"] = next
			writeJSON(w, http.StatusOK, resp)
			return
		}
		// No further guess possible: the round is over after all.
		resp["settled"] = true
	}
	// The stake was taken at start, so the payout here is the settle net
	// plus the stake back: the full loss payout on a player win, the
	// stake alone on a void, nothing on a computer win.
	credit := round.SettleDelta() + round.Reserve()
	if lr.Account != "" {
		if credit > 0 {
			if err := s.ledger.ApplyDelta(lr.Account, credit); err != nil {
				writeDomainError(w, err)
				return
			}
		}
		switch {
		case round.Voided():
			// Unwound, not an outcome: nothing recorded.
		case round.ComputerWon():
			if err := s.stats.Record(lr.Account, round.LossPayout, round.Price, false, state.GameComputerGuess); err != nil {
				writeDomainError(w, err)
				return
			}
		default:
			if err := s.stats.Record(lr.Account, 0, round.Price, true, state.GameComputerGuess); err != nil {
				writeDomainError(w, err)
				return
			}
		}
	}
	s.rounds.Delete(lr.RoundID)
	resp["computer_won"] = round.ComputerWon()
	resp["voided"] = round.Voided()
	resp["delta"] = credit
	resp["round_net"] = round.SettleDelta()
	writeJSON(w, http.StatusOK, resp)
}

// blackjackView renders the round for the client, hiding the dealer's
// hole card until the player's turn is over.
func blackjackView(lr *liveRound) map[string]any {
	round := lr.Blackjack
	view := map[string]any{
		"round_id":     lr.RoundID,
		"player_cards": round.PlayerCards,
		"player_total": blackjack.HandTotal(round.PlayerCards),
		"settled":      round.Settled(),
	}
	if round.Settled() {
		view["dealer_cards"] = round.DealerCards
		view["dealer_total"] = blackjack.HandTotal(round.DealerCards)
		result, _ := round.Result()
		view["result"] = result
	} else {
		view["dealer_upcard"] = round.DealerUpcard()
	}
	return view
}

// settleBlackjack credits the payout, records stats, and drops the round.
func (s *Server) settleBlackjack(lr *liveRound, view map[string]any) error {
	round := lr.Blackjack
	gross, err := round.PayoutReturn()
	if err != nil {
		return err
	}
	payout := money.RoundCredit(gross)
	if lr.Account != "" {
		if payout > 0 {
			if err := s.ledger.ApplyDelta(lr.Account, payout); err != nil {
				return err
			}
		}
		if err := s.stats.Record(lr.Account, round.Bet, payout, round.Won(), state.GameBlackjack); err != nil {
			return err
		}
	}
	s.rounds.Delete(lr.RoundID)
	view["payout"] = payout
	view["delta"] = payout - round.Bet
	return nil
}

// handleBlackjackStart implements POST /api/rounds/blackjack. The bet is
// debited before the deal; naturals on either side settle immediately,
// before any hit is offered.
func (s *Server) handleBlackjackStart(w http.ResponseWriter, r *http.Request) {
	var req gameStartRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	account, ok := s.authorizeRound(w, &req)
	if !ok {
		return
	}
	if !s.checkLimits(w, 0, req.Bet, 0) {
		return
	}
	if account != "" {
		if err := s.ledger.ApplyDelta(account, -req.Bet); err != nil {
			writeDomainError(w, err)
			return
		}
	}
	round, err := blackjack.NewRound(req.Bet)
	if err != nil {
		// The bet was taken but the round is invalid; give it back.
		if account != "" {
			_ = s.ledger.ApplyDelta(account, req.Bet)
		}
		writeDomainError(w, err)
		return
	}
	lr := &liveRound{
		RoundID:   uuid.NewString(),
		Account:   account,
		Guest:     req.Guest,
		CreatedAt: time.Now(),
		Blackjack: round,
	}
	s.rounds.Put(lr)
	view := blackjackView(lr)
	if round.Settled() {
		if err := s.settleBlackjack(lr, view); err != nil {
			writeDomainError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusCreated, view)
}

// handleBlackjackHit implements POST /api/rounds/blackjack/{roundID}/hit.
func (s *Server) handleBlackjackHit(w http.ResponseWriter, r *http.Request) {
	var req sessionCreds
	if !decodeJSON(w, r, &req) {
		return
	}
	lr, ok := s.loadRound(w, r, req)
	if !ok {
		return
	}
	if lr.Blackjack == nil {
		writeError(w, http.StatusBadRequest, "not a blackjack round", "BAD_REQUEST")
		return
	}
	card, err := lr.Blackjack.Hit()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	view := blackjackView(lr)
	view["card"] = card
	if lr.Blackjack.Settled() {
		if err := s.settleBlackjack(lr, view); err != nil {
			writeDomainError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, view)
}

// handleBlackjackStand implements POST /api/rounds/blackjack/{roundID}/stand.
func (s *Server) handleBlackjackStand(w http.ResponseWriter, r *http.Request) {
	var req sessionCreds
	if !decodeJSON(w, r, &req) {
		return
	}
	lr, ok := s.loadRound(w, r, req)
	if !ok {
		return
	}
	if lr.Blackjack == nil {
		writeError(w, http.StatusBadRequest, "not a blackjack round", "BAD_REQUEST")
		return
	}
	if err := lr.Blackjack.Stand(); err != nil {
		writeDomainError(w, err)
		return
	}
	view := blackjackView(lr)
	if err := s.settleBlackjack(lr, view); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
