package blackjack

import (
	"errors"
	"testing"
)

func TestNewDeck(t *testing.T) {
	deck := NewDeck()
	if len(deck) != 52 {
		t.Fatalf("deck size = %d, want 52", len(deck))
	}
	seen := make(map[Card]bool, 52)
	for _, c := range deck {
		if seen[c] {
			t.Fatalf("duplicate card %v", c)
		}
		seen[c] = true
	}
}

func TestHandTotal(t *testing.T) {
	cases := []struct {
		name  string
		cards []Card
		want  int
	}{
		{"ace king", []Card{{"A", "S"}, {"K", "H"}}, 21},
		{"ace six king demotes ace", []Card{{"A", "S"}, {"6", "H"}, {"K", "D"}}, 17},
		{"two aces", []Card{{"A", "S"}, {"A", "H"}}, 12},
		{"face cards", []Card{{"J", "S"}, {"Q", "H"}}, 20},
		{"pips", []Card{{"2", "S"}, {"9", "H"}, {"10", "D"}}, 21},
		{"bust", []Card{{"K", "S"}, {"Q", "H"}, {"5", "D"}}, 25},
		{"four aces", []Card{{"A", "S"}, {"A", "H"}, {"A", "D"}, {"A", "C"}}, 14},
	}
	for _, c := range cases {
		if got := HandTotal(c.cards); got != c.want {
			t.Errorf("%s: HandTotal = %d, want %d", c.name, got, c.want)
		}
	}
}

func TestIsNatural(t *testing.T) {
	if !IsNatural([]Card{{"A", "S"}, {"K", "H"}}) {
		t.Error("ace+king must be a natural")
	}
	if IsNatural([]Card{{"A", "S"}, {"6", "H"}, {"K", "D"}}) {
		t.Error("three-card 17 is not a natural")
	}
	if IsNatural([]Card{{"K", "S"}, {"Q", "H"}}) {
		t.Error("20 is not a natural")
	}
	// Three-card 21 is an ordinary 21, not a natural.
	if IsNatural([]Card{{"7", "S"}, {"7", "H"}, {"7", "D"}}) {
		t.Error("three-card 21 is not a natural")
	}
}

func TestNewRound_Validation(t *testing.T) {
	if _, err := NewRound(0); !errors.Is(err, ErrInvalidBet) {
		t.Errorf("err = %v, want ErrInvalidBet", err)
	}
	if _, err := NewRound(-5); !errors.Is(err, ErrInvalidBet) {
		t.Errorf("err = %v, want ErrInvalidBet", err)
	}
}

func TestNewRound_DealsTwoEach(t *testing.T) {
	r, err := NewRound(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(r.PlayerCards) != 2 || len(r.DealerCards) != 2 {
		t.Fatalf("dealt %d/%d cards, want 2/2", len(r.PlayerCards), len(r.DealerCards))
	}
}

// fixedRound builds a round with hand-picked cards, bypassing the shuffle.
func fixedRound(bet float64, player, dealer []Card, rest ...Card) *Round {
	return &Round{
		Bet:         bet,
		PlayerCards: player,
		DealerCards: dealer,
		deck:        rest,
	}
}

func TestNaturalSettlesBeforeHits(t *testing.T) {
	r := fixedRound(10, []Card{{"A", "S"}, {"K", "H"}}, []Card{{"9", "D"}, {"5", "C"}})
	playerNatural := IsNatural(r.PlayerCards)
	if !playerNatural {
		t.Fatal("fixture should be a natural")
	}
	r.settle(ResultBlackjack)
	if _, err := r.Hit(); !errors.Is(err, ErrRoundOver) {
		t.Errorf("hit after natural err = %v, want ErrRoundOver", err)
	}
	payout, err := r.PayoutReturn()
	if err != nil {
		t.Fatal(err)
	}
	if payout != 25 {
		t.Errorf("natural payout = %v, want 25 (2.5x bet)", payout)
	}
	if !r.Won() {
		t.Error("natural counts as a win")
	}
}

func TestPlayerBustLosesImmediately(t *testing.T) {
	r := fixedRound(10,
		[]Card{{"K", "S"}, {"Q", "H"}},
		[]Card{{"9", "D"}, {"5", "C"}},
		Card{"5", "D"}, // next draw busts the player
	)
	if _, err := r.Hit(); err != nil {
		t.Fatal(err)
	}
	if !r.Settled() {
		t.Fatal("bust must settle the round")
	}
	res, _ := r.Result()
	if res != ResultLoss {
		t.Errorf("result = %v, want loss", res)
	}
	payout, _ := r.PayoutReturn()
	if payout != 0 {
		t.Errorf("bust payout = %v, want 0", payout)
	}
}

func TestDealerDrawsToSeventeen(t *testing.T) {
	// Dealer starts at 9+5=14 and must draw; the stacked deck gives a 3
	// (17) and the dealer stands there.
	r := fixedRound(10,
		[]Card{{"K", "S"}, {"8", "H"}},
		[]Card{{"9", "D"}, {"5", "C"}},
		Card{"2", "C"}, Card{"3", "D"}, // drawn in reverse (deck pops from the end)
	)
	if err := r.Stand(); err != nil {
		t.Fatal(err)
	}
	if got := HandTotal(r.DealerCards); got != 17 {
		t.Fatalf("dealer total = %d, want 17", got)
	}
	res, _ := r.Result()
	if res != ResultWin {
		t.Errorf("player 18 vs dealer 17: result = %v, want win", res)
	}
	payout, _ := r.PayoutReturn()
	if payout != 20 {
		t.Errorf("win payout = %v, want 20 (2x bet)", payout)
	}
}

func TestDealerBustIsPlayerWin(t *testing.T) {
	// Dealer at 16 must draw; the stacked deck busts it.
	r := fixedRound(10,
		[]Card{{"10", "S"}, {"8", "H"}},
		[]Card{{"10", "D"}, {"6", "C"}},
		Card{"K", "C"},
	)
	if err := r.Stand(); err != nil {
		t.Fatal(err)
	}
	if got := HandTotal(r.DealerCards); got <= 21 {
		t.Fatalf("dealer total = %d, expected a bust", got)
	}
	res, _ := r.Result()
	if res != ResultWin {
		t.Errorf("result = %v, want win on dealer bust", res)
	}
}

func TestEqualTotalsPush(t *testing.T) {
	r := fixedRound(10,
		[]Card{{"10", "S"}, {"8", "H"}},
		[]Card{{"K", "D"}, {"8", "C"}},
	)
	if err := r.Stand(); err != nil {
		t.Fatal(err)
	}
	res, _ := r.Result()
	if res != ResultPush {
		t.Errorf("18 vs 18: result = %v, want push", res)
	}
	payout, _ := r.PayoutReturn()
	if payout != 10 {
		t.Errorf("push payout = %v, want the bet back", payout)
	}
	if r.Won() {
		t.Error("a push is not a win")
	}
}

func TestDealerAceDemotion(t *testing.T) {
	// Dealer A+6 is a soft 17 and stands under the all-17s rule.
	r := fixedRound(10,
		[]Card{{"10", "S"}, {"9", "H"}},
		[]Card{{"A", "D"}, {"6", "C"}},
	)
	if err := r.Stand(); err != nil {
		t.Fatal(err)
	}
	if len(r.DealerCards) != 2 {
		t.Fatalf("dealer drew %d extra cards on soft 17", len(r.DealerCards)-2)
	}
	res, _ := r.Result()
	if res != ResultWin {
		t.Errorf("19 vs soft 17: result = %v, want win", res)
	}
}

func TestStandAfterSettleFails(t *testing.T) {
	r := fixedRound(10, []Card{{"10", "S"}, {"8", "H"}}, []Card{{"K", "D"}, {"8", "C"}})
	if err := r.Stand(); err != nil {
		t.Fatal(err)
	}
	if err := r.Stand(); !errors.Is(err, ErrRoundOver) {
		t.Errorf("second stand err = %v, want ErrRoundOver", err)
	}
}

func TestResultBeforeSettleFails(t *testing.T) {
	r := fixedRound(10, []Card{{"10", "S"}, {"8", "H"}}, []Card{{"K", "D"}, {"8", "C"}})
	if _, err := r.Result(); !errors.Is(err, ErrPlayerTurn) {
		t.Errorf("err = %v, want ErrPlayerTurn", err)
	}
	if _, err := r.PayoutReturn(); !errors.Is(err, ErrPlayerTurn) {
		t.Errorf("err = %v, want ErrPlayerTurn", err)
	}
}

func TestNaturalDetectedAtDeal(t *testing.T) {
	// Statistical: across many real deals, any round whose player hand is a
	// natural must already be settled before the caller can act.
	for i := 0; i < 500; i++ {
		r, err := NewRound(1)
		if err != nil {
			t.Fatal(err)
		}
		if IsNatural(r.PlayerCards) || IsNatural(r.DealerCards) {
			if !r.Settled() {
				t.Fatalf("natural at deal must settle immediately: player=%v dealer=%v",
					r.PlayerCards, r.DealerCards)
			}
		}
	}
}
