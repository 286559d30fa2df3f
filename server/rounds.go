package server

import (
	"log"
	"sync"
	"time"

	"github.com/pocket-arcade/houserules-casino-server/games/blackjack"
	"github.com/pocket-arcade/houserules-casino-server/games/guess"
)

// roundTTL bounds how long an unfinished round may sit idle before the
// janitor reclaims it.
const roundTTL = 30 * time.Minute

// liveRound is one in-flight round. Exactly one of the game fields is set.
// Rounds are ephemeral: they live in memory for the duration of one
// interaction and are dropped on settlement or expiry.
type liveRound struct {
	RoundID   string
	Account   string // empty for guest rounds
	Guest     bool
	CreatedAt time.Time

	Player    *guess.PlayerRound
	Computer  *guess.ComputerRound
	Blackjack *blackjack.Round
}

// roundStore holds active rounds keyed by round ID.
type roundStore struct {
	mu     sync.Mutex
	rounds map[string]*liveRound
}

func newRoundStore() *roundStore {
	return &roundStore{rounds: make(map[string]*liveRound)}
}

func (s *roundStore) Put(r *liveRound) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rounds[r.RoundID] = r
}

func (s *roundStore) Get(roundID string) (*liveRound, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rounds[roundID]
	return r, ok
}

func (s *roundStore) Delete(roundID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rounds, roundID)
}

// Expire removes and returns every round older than ttl.
func (s *roundStore) Expire(now time.Time, ttl time.Duration) []*liveRound {
	s.mu.Lock()
	defer s.mu.Unlock()
	var expired []*liveRound
	for id, r := range s.rounds {
		if now.Sub(r.CreatedAt) > ttl {
			expired = append(expired, r)
			delete(s.rounds, id)
		}
	}
	return expired
}

// reapRounds expires abandoned rounds. Player-guess and blackjack buy-ins
// were debited at start and are forfeited with the round; a computer
// round's stake is returned since no outcome was reached.
func (s *Server) reapRounds(now time.Time) {
	for _, lr := range s.rounds.Expire(now, roundTTL) {
		if lr.Account != "" && lr.Computer != nil {
			if err := s.ledger.ApplyDelta(lr.Account, lr.Computer.Reserve()); err != nil {
				log.Printf("casino: stake refund for expired round %s (%s): %v", lr.RoundID, lr.Account, err)
				continue
			}
		}
		log.Printf("casino: expired round %s", lr.RoundID)
	}
}
