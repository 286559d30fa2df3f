package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pocket-arcade/houserules-casino-server/auth"
	"github.com/pocket-arcade/houserules-casino-server/config"
	"github.com/pocket-arcade/houserules-casino-server/ledger"
	"github.com/pocket-arcade/houserules-casino-server/odds"
	"github.com/pocket-arcade/houserules-casino-server/session"
	"github.com/pocket-arcade/houserules-casino-server/state"
	"github.com/pocket-arcade/houserules-casino-server/stats"
)

func newTestServer(t *testing.T) (*Server, http.Handler) {
	t.Helper()
	store := state.NewStore(state.NewFileBackend(t.TempDir()))
	cfg := &config.Config{Port: 8080, SuperAdminName: "isaac", SessionTTL: time.Hour}
	s := &Server{
		cfg:      cfg,
		store:    store,
		ledger:   ledger.New(store),
		sessions: session.NewManager(store, cfg.SessionTTL),
		auth:     auth.NewService(store, cfg.SuperAdminName),
		odds:     odds.NewEngine(store),
		stats:    stats.New(store),
		rounds:   newRoundStore(),
	}
	return s, s.routes()
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var out map[string]any
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode response %q: %v", rec.Body.String(), err)
		}
	}
	return rec.Code, out
}

// signUp creates an account, sets its password, and signs in, returning
// the session token.
func signUp(t *testing.T, h http.Handler, name string, deposit float64) string {
	t.Helper()
	code, _ := doJSON(t, h, http.MethodPost, "/api/accounts", map[string]any{
		"name": name, "deposit": deposit,
	})
	if code != http.StatusCreated {
		t.Fatalf("create account: status %d", code)
	}
	code, _ = doJSON(t, h, http.MethodPost, "/api/accounts/"+name+"/password", map[string]any{
		"action": "setup", "new_password": "hunter2",
	})
	if code != http.StatusOK {
		t.Fatalf("setup password: status %d", code)
	}
	code, out := doJSON(t, h, http.MethodPost, "/api/sessions", map[string]any{
		"account": name, "password": "hunter2",
	})
	if code != http.StatusCreated {
		t.Fatalf("sign in: status %d", code)
	}
	token, _ := out["session_id"].(string)
	if token == "" {
		t.Fatal("sign in returned no session_id")
	}
	return token
}

func TestHealth(t *testing.T) {
	_, h := newTestServer(t)
	code, out := doJSON(t, h, http.MethodGet, "/health", nil)
	if code != http.StatusOK || out["status"] != "ok" {
		t.Fatalf("health = %d %v", code, out)
	}
}

func TestSignInRequiresPasswordSetup(t *testing.T) {
	_, h := newTestServer(t)
	code, _ := doJSON(t, h, http.MethodPost, "/api/accounts", map[string]any{
		"name": "mallory", "deposit": 5.0,
	})
	if code != http.StatusCreated {
		t.Fatalf("create account: status %d", code)
	}
	code, out := doJSON(t, h, http.MethodPost, "/api/sessions", map[string]any{
		"account": "mallory", "password": "anything",
	})
	if code != http.StatusConflict || out["code"] != "PASSWORD_NOT_SET" {
		t.Fatalf("sign in without password = %d %v", code, out)
	}
}

func TestAccountLifecycle(t *testing.T) {
	_, h := newTestServer(t)
	token := signUp(t, h, "alice", 20)

	code, out := doJSON(t, h, http.MethodGet,
		"/api/accounts/alice/balance?account=alice&session_id="+token, nil)
	if code != http.StatusOK {
		t.Fatalf("balance: status %d %v", code, out)
	}
	if out["balance"].(float64) != 20 {
		t.Fatalf("balance = %v, want 20", out["balance"])
	}

	code, out = doJSON(t, h, http.MethodPost, "/api/accounts/alice/funds", map[string]any{
		"session_id": token, "password": "hunter2", "amount": -7.5,
	})
	if code != http.StatusOK || out["balance"].(float64) != 12.5 {
		t.Fatalf("withdrawal = %d %v", code, out)
	}

	code, out = doJSON(t, h, http.MethodPost, "/api/accounts/alice/funds", map[string]any{
		"session_id": token, "password": "wrong", "amount": -1,
	})
	if code != http.StatusForbidden {
		t.Fatalf("withdrawal with bad password = %d %v", code, out)
	}
}

func TestSettingsAllowNegativeBalance(t *testing.T) {
	_, h := newTestServer(t)
	token := signUp(t, h, "frank", 1)

	code, out := doJSON(t, h, http.MethodPost, "/api/accounts/frank/funds", map[string]any{
		"session_id": token, "password": "hunter2", "amount": -5,
	})
	if code != http.StatusConflict || out["code"] != "INSUFFICIENT_FUNDS" {
		t.Fatalf("overdraw = %d %v", code, out)
	}

	code, _ = doJSON(t, h, http.MethodPut, "/api/accounts/frank/settings", map[string]any{
		"session_id": token, "password": "hunter2",
		"settings": map[string]any{"allow_negative_balance": true},
	})
	if code != http.StatusOK {
		t.Fatalf("set settings: status %d", code)
	}

	code, out = doJSON(t, h, http.MethodPost, "/api/accounts/frank/funds", map[string]any{
		"session_id": token, "password": "hunter2", "amount": -5,
	})
	if code != http.StatusOK || out["balance"].(float64) != -4 {
		t.Fatalf("overdraw after opt-in = %d %v", code, out)
	}

	code, out = doJSON(t, h, http.MethodGet,
		"/api/accounts/frank/settings?session_id="+token, nil)
	if code != http.StatusOK {
		t.Fatalf("get settings = %d %v", code, out)
	}
	settings := out["settings"].(map[string]any)
	if settings["allow_negative_balance"] != true {
		t.Fatalf("settings = %v", settings)
	}
}

func TestPlayerGuessRoundSettles(t *testing.T) {
	_, h := newTestServer(t)
	token := signUp(t, h, "bob", 50)

	code, out := doJSON(t, h, http.MethodPost, "/api/rounds/guess", map[string]any{
		"account": "bob", "session_id": token,
		"mode": "player", "num_range": 2, "price_per_round": 1.0, "guesses": 5,
	})
	if code != http.StatusCreated {
		t.Fatalf("start round = %d %v", code, out)
	}
	roundID, _ := out["round_id"].(string)
	if roundID == "" {
		t.Fatal("no round_id")
	}
	if out["delta"].(float64) != -1 {
		t.Fatalf("start delta = %v, want -1", out["delta"])
	}

	// Two guesses cover a range of two; the round must settle as a win.
	won := false
	for _, g := range []int{1, 2} {
		code, out = doJSON(t, h, http.MethodPost, "/api/rounds/guess/"+roundID+"/guess", map[string]any{
			"account": "bob", "session_id": token, "guess": g,
		})
		if code != http.StatusOK {
			t.Fatalf("guess %d = %d %v", g, code, out)
		}
		if out["settled"] == true {
			won, _ = out["won"].(bool)
			break
		}
	}
	if !won {
		t.Fatal("round did not settle as a win within the range")
	}

	code, out = doJSON(t, h, http.MethodGet,
		"/api/accounts/bob/stats?session_id="+token+"&game=player_guess", nil)
	if code != http.StatusOK {
		t.Fatalf("stats = %d %v", code, out)
	}
	bucket := out["stats"].(map[string]any)
	if bucket["rounds_played"].(float64) != 1 || bucket["rounds_won"].(float64) != 1 {
		t.Fatalf("stats bucket = %v", bucket)
	}
}

func TestComputerGuessRoundAsGuest(t *testing.T) {
	_, h := newTestServer(t)

	code, out := doJSON(t, h, http.MethodPost, "/api/rounds/guess", map[string]any{
		"guest": true,
		"mode":  "computer", "num_range": 100, "price_per_round": 1.0, "guesses": 5,
	})
	if code != http.StatusCreated {
		t.Fatalf("start round = %d %v", code, out)
	}
	roundID := out["round_id"].(string)
	lossPayout := out["loss_payout"].(float64)
	// Range 100, one coin, five guesses: break-even 6.25, loss payout 10.
	// The stake is the loss payout beyond the round price.
	if lossPayout != 10 {
		t.Fatalf("loss_payout = %v, want 10", lossPayout)
	}
	if out["delta"].(float64) != -9 {
		t.Fatalf("start delta = %v, want -9", out["delta"])
	}
	if _, ok := out["computer_guess"]; !ok {
		t.Fatalf("no opening guess in %v", out)
	}

	// Conceding immediately ends the round as a computer win. The stake
	// already covered the loss, so settlement moves nothing.
	code, out = doJSON(t, h, http.MethodPost, "/api/rounds/guess/"+roundID+"/feedback", map[string]any{
		"guest": true, "feedback": "correct",
	})
	if code != http.StatusOK {
		t.Fatalf("feedback = %d %v", code, out)
	}
	if out["settled"] != true || out["computer_won"] != true || out["voided"] != false {
		t.Fatalf("settle = %v", out)
	}
	if out["delta"].(float64) != 0 {
		t.Fatalf("settle delta = %v, want 0", out["delta"])
	}
	if out["round_net"].(float64) != -9 {
		t.Fatalf("round_net = %v, want -9", out["round_net"])
	}
}

func TestComputerGuessRiskCheck(t *testing.T) {
	_, h := newTestServer(t)
	token := signUp(t, h, "carol", 2)

	// Range 100 with one guess at default odds prices the loss payout far
	// above a 2.00 balance.
	code, out := doJSON(t, h, http.MethodPost, "/api/rounds/guess", map[string]any{
		"account": "carol", "session_id": token,
		"mode": "computer", "num_range": 100, "price_per_round": 1.0, "guesses": 1,
	})
	if code != http.StatusConflict || out["code"] != "INSUFFICIENT_FUNDS" {
		t.Fatalf("risk check = %d %v", code, out)
	}
}

func TestBlackjackRoundAsGuest(t *testing.T) {
	_, h := newTestServer(t)

	code, out := doJSON(t, h, http.MethodPost, "/api/rounds/blackjack", map[string]any{
		"guest": true, "bet": 10.0,
	})
	if code != http.StatusCreated {
		t.Fatalf("start round = %d %v", code, out)
	}
	if out["settled"] != true {
		roundID := out["round_id"].(string)
		code, out = doJSON(t, h, http.MethodPost, "/api/rounds/blackjack/"+roundID+"/stand", map[string]any{
			"guest": true,
		})
		if code != http.StatusOK {
			t.Fatalf("stand = %d %v", code, out)
		}
	}
	payout := out["payout"].(float64)
	switch payout {
	case 0, 10, 20, 25:
	default:
		t.Fatalf("payout = %v, want one of 0/10/20/25", payout)
	}
	if out["delta"].(float64) != payout-10 {
		t.Fatalf("delta = %v, payout = %v", out["delta"], payout)
	}
}

func TestAdminLimitsAndOdds(t *testing.T) {
	_, h := newTestServer(t)
	token := signUp(t, h, "isaac", 0)

	code, out := doJSON(t, h, http.MethodPut, "/api/admin/limits", map[string]any{
		"account": "isaac", "session_id": token,
		"max_range": 50, "max_buy_in": 5.0, "max_guesses": 6,
	})
	if code != http.StatusOK {
		t.Fatalf("set limits = %d %v", code, out)
	}

	code, out = doJSON(t, h, http.MethodPost, "/api/rounds/guess", map[string]any{
		"guest": true,
		"mode":  "player", "num_range": 100, "price_per_round": 1.0, "guesses": 5,
	})
	if code != http.StatusBadRequest || out["code"] != "LIMIT_EXCEEDED" {
		t.Fatalf("limit check = %d %v", code, out)
	}

	code, _ = doJSON(t, h, http.MethodPut, "/api/admin/odds", map[string]any{
		"account": "isaac", "session_id": token, "odds": 2.0,
	})
	if code != http.StatusOK {
		t.Fatalf("set odds = %d", code)
	}
	code, out = doJSON(t, h, http.MethodGet,
		"/api/admin/odds?account=isaac&session_id="+token, nil)
	if code != http.StatusOK || out["odds"].(float64) != 2.0 {
		t.Fatalf("get odds = %d %v", code, out)
	}
}

func TestAdminEndpointsRejectStandardAccounts(t *testing.T) {
	_, h := newTestServer(t)
	token := signUp(t, h, "dave", 10)

	code, out := doJSON(t, h, http.MethodPut, "/api/admin/odds", map[string]any{
		"account": "dave", "session_id": token, "odds": 9.0,
	})
	if code != http.StatusForbidden {
		t.Fatalf("set odds as standard account = %d %v", code, out)
	}
}

func TestSuperAdminGrantsAdmin(t *testing.T) {
	_, h := newTestServer(t)
	super := signUp(t, h, "isaac", 0)
	_ = signUp(t, h, "erin", 10)

	code, out := doJSON(t, h, http.MethodPut, "/api/admin/accounts/erin/admin", map[string]any{
		"account": "isaac", "session_id": super, "is_admin": true,
	})
	if code != http.StatusOK {
		t.Fatalf("grant admin = %d %v", code, out)
	}

	code, out = doJSON(t, h, http.MethodGet,
		"/api/admin/accounts?account=erin&session_id=", nil)
	if code != http.StatusUnauthorized && code != http.StatusForbidden {
		t.Fatalf("snapshot without session = %d %v", code, out)
	}
}

func getBalance(t *testing.T, h http.Handler, name, token string) float64 {
	t.Helper()
	code, out := doJSON(t, h, http.MethodGet,
		"/api/accounts/"+name+"/balance?session_id="+token, nil)
	if code != http.StatusOK {
		t.Fatalf("balance = %d %v", code, out)
	}
	return out["balance"].(float64)
}

func TestAbandonedComputerRoundsHoldNoCredit(t *testing.T) {
	_, h := newTestServer(t)
	token := signUp(t, h, "frank", 100)

	// Range 10, one coin, four guesses: break-even 1.25, loss payout 2,
	// so each round stakes 1. Walking away mid-round must leave the
	// stakes with the house, never a free credit.
	for i := 0; i < 5; i++ {
		code, out := doJSON(t, h, http.MethodPost, "/api/rounds/guess", map[string]any{
			"account": "frank", "session_id": token,
			"mode": "computer", "num_range": 10, "price_per_round": 1.0, "guesses": 4,
		})
		if code != http.StatusCreated {
			t.Fatalf("start round %d = %d %v", i, code, out)
		}
		want := 100 - float64(i+1)
		if got := getBalance(t, h, "frank", token); got != want {
			t.Fatalf("balance after %d abandoned rounds = %v, want %v", i+1, got, want)
		}
	}
}

func TestExpiredRoundsAreReaped(t *testing.T) {
	s, h := newTestServer(t)
	token := signUp(t, h, "grace", 100)

	// A computer round stakes the worst-case loss up front; expiry must
	// hand the stake back since no outcome was reached.
	code, out := doJSON(t, h, http.MethodPost, "/api/rounds/guess", map[string]any{
		"account": "grace", "session_id": token,
		"mode": "computer", "num_range": 100, "price_per_round": 1.0, "guesses": 5,
	})
	if code != http.StatusCreated {
		t.Fatalf("start computer round = %d %v", code, out)
	}
	computerID := out["round_id"].(string)
	if got := getBalance(t, h, "grace", token); got != 91 {
		t.Fatalf("balance after stake = %v, want 91", got)
	}

	// A player round's buy-in is debited at start and forfeited on expiry.
	code, out = doJSON(t, h, http.MethodPost, "/api/rounds/guess", map[string]any{
		"account": "grace", "session_id": token,
		"mode": "player", "num_range": 10, "price_per_round": 2.0, "guesses": 3,
	})
	if code != http.StatusCreated {
		t.Fatalf("start player round = %d %v", code, out)
	}
	playerID := out["round_id"].(string)

	for _, id := range []string{computerID, playerID} {
		lr, ok := s.rounds.Get(id)
		if !ok {
			t.Fatalf("round %s not live", id)
		}
		lr.CreatedAt = time.Now().Add(-time.Hour)
	}
	s.reapRounds(time.Now())

	for _, id := range []string{computerID, playerID} {
		if _, ok := s.rounds.Get(id); ok {
			t.Fatalf("round %s survived the sweep", id)
		}
		code, out = doJSON(t, h, http.MethodPost, "/api/rounds/guess/"+id+"/feedback", map[string]any{
			"account": "grace", "session_id": token, "feedback": "correct",
		})
		if code != http.StatusNotFound {
			t.Fatalf("feedback on reaped round = %d %v", code, out)
		}
	}

	// Stake refunded, buy-in kept: 100 - 9 + 9 - 2.
	if got := getBalance(t, h, "grace", token); got != 98 {
		t.Fatalf("balance after sweep = %v, want 98", got)
	}
}

func TestComputerRoundSettlesAfterWithdrawal(t *testing.T) {
	_, h := newTestServer(t)
	token := signUp(t, h, "heidi", 10)

	code, out := doJSON(t, h, http.MethodPost, "/api/rounds/guess", map[string]any{
		"account": "heidi", "session_id": token,
		"mode": "computer", "num_range": 100, "price_per_round": 1.0, "guesses": 5,
	})
	if code != http.StatusCreated {
		t.Fatalf("start round = %d %v", code, out)
	}
	roundID := out["round_id"].(string)

	// Drain the account mid-round. The loss is already staked, so the
	// round must still settle cleanly.
	code, out = doJSON(t, h, http.MethodPost, "/api/accounts/heidi/funds", map[string]any{
		"session_id": token, "password": "hunter2", "amount": -1.0,
	})
	if code != http.StatusOK {
		t.Fatalf("withdraw = %d %v", code, out)
	}
	if out["balance"].(float64) != 0 {
		t.Fatalf("balance after withdrawal = %v, want 0", out["balance"])
	}

	code, out = doJSON(t, h, http.MethodPost, "/api/rounds/guess/"+roundID+"/feedback", map[string]any{
		"account": "heidi", "session_id": token, "feedback": "correct",
	})
	if code != http.StatusOK {
		t.Fatalf("feedback = %d %v", code, out)
	}
	if out["settled"] != true || out["computer_won"] != true {
		t.Fatalf("settle = %v", out)
	}
	if out["delta"].(float64) != 0 {
		t.Fatalf("settle delta = %v, want 0", out["delta"])
	}
	if got := getBalance(t, h, "heidi", token); got != 0 {
		t.Fatalf("balance after settle = %v, want 0", got)
	}
}

func TestContradictoryFeedbackVoidsRound(t *testing.T) {
	_, h := newTestServer(t)
	token := signUp(t, h, "ivan", 20)

	// Range 4, ten coins, three guesses: break-even 10, loss payout 15,
	// stake 5. The computer bisects: 2, then 1. Answering too_high to
	// both empties the interval before the attempt budget runs out.
	code, out := doJSON(t, h, http.MethodPost, "/api/rounds/guess", map[string]any{
		"account": "ivan", "session_id": token,
		"mode": "computer", "num_range": 4, "price_per_round": 10.0, "guesses": 3,
	})
	if code != http.StatusCreated {
		t.Fatalf("start round = %d %v", code, out)
	}
	roundID := out["round_id"].(string)
	if out["delta"].(float64) != -5 {
		t.Fatalf("start delta = %v, want -5", out["delta"])
	}

	code, out = doJSON(t, h, http.MethodPost, "/api/rounds/guess/"+roundID+"/feedback", map[string]any{
		"account": "ivan", "session_id": token, "feedback": "too_high",
	})
	if code != http.StatusOK || out["settled"] == true {
		t.Fatalf("first feedback = %d %v", code, out)
	}
	code, out = doJSON(t, h, http.MethodPost, "/api/rounds/guess/"+roundID+"/feedback", map[string]any{
		"account": "ivan", "session_id": token, "feedback": "too_high",
	})
	if code != http.StatusOK {
		t.Fatalf("second feedback = %d %v", code, out)
	}
	if out["settled"] != true || out["voided"] != true || out["computer_won"] != false {
		t.Fatalf("void settle = %v", out)
	}
	// The stake comes back and nothing else moves.
	if out["delta"].(float64) != 5 || out["round_net"].(float64) != 0 {
		t.Fatalf("void delta = %v, round_net = %v", out["delta"], out["round_net"])
	}
	if got := getBalance(t, h, "ivan", token); got != 20 {
		t.Fatalf("balance after void = %v, want 20", got)
	}

	code, out = doJSON(t, h, http.MethodGet,
		"/api/accounts/ivan/stats?session_id="+token+"&game=computer_guess", nil)
	if code != http.StatusOK {
		t.Fatalf("stats = %d %v", code, out)
	}
	bucket := out["stats"].(map[string]any)
	if bucket["rounds_played"].(float64) != 0 {
		t.Fatalf("voided round recorded in stats: %v", bucket)
	}
}
