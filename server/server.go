package server

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/pocket-arcade/houserules-casino-server/auth"
	"github.com/pocket-arcade/houserules-casino-server/config"
	"github.com/pocket-arcade/houserules-casino-server/ledger"
	"github.com/pocket-arcade/houserules-casino-server/odds"
	"github.com/pocket-arcade/houserules-casino-server/session"
	"github.com/pocket-arcade/houserules-casino-server/state"
	"github.com/pocket-arcade/houserules-casino-server/stats"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

type Server struct {
	cfg      *config.Config
	store    *state.Store
	ledger   *ledger.Ledger
	sessions *session.Manager
	auth     *auth.Service
	odds     *odds.Engine
	stats    *stats.Aggregator
	rounds   *roundStore
}

func New(cfg *config.Config) (*Server, error) {
	store, err := state.Open(state.OpenConfig{
		DataDir:    cfg.DataDir,
		RedisURL:   cfg.RedisURL,
		StateTable: cfg.StateTable,
		RedisKey:   cfg.RedisKey,
	})
	if err != nil {
		return nil, err
	}
	return &Server{
		cfg:      cfg,
		store:    store,
		ledger:   ledger.New(store),
		sessions: session.NewManager(store, cfg.SessionTTL),
		auth:     auth.NewService(store, cfg.SuperAdminName),
		odds:     odds.NewEngine(store),
		stats:    stats.New(store),
		rounds:   newRoundStore(),
	}, nil
}

func (s *Server) Run() error {
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for now := range ticker.C {
			s.reapRounds(now)
		}
	}()
	addr := ":" + strconv.Itoa(s.cfg.Port)
	log.Printf("casino listening on %s (super admin: %s)", addr, s.cfg.SuperAdminName)
	return http.ListenAndServe(addr, s.routes())
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	}))
	r.Use(requestLogger)

	r.Get("/health", s.health)

	r.Route("/api", func(r chi.Router) {
		r.Post("/accounts", s.handleCreateAccount)
		r.Get("/accounts/{name}/balance", s.handleBalance)
		r.Post("/accounts/{name}/funds", s.handleFunds)
		r.Delete("/accounts/{name}", s.handleDeleteAccount)
		r.Get("/accounts/{name}/stats", s.handleAccountStats)
		r.Get("/accounts/{name}/settings", s.handleGetSettings)
		r.Put("/accounts/{name}/settings", s.handleSetSettings)
		r.Post("/accounts/{name}/password", s.handlePassword)

		r.Post("/sessions", s.handleSignIn)
		r.Post("/sessions/heartbeat", s.handleHeartbeat)
		r.Delete("/sessions", s.handleSignOut)

		r.Get("/admin/odds", s.handleGetOdds)
		r.Put("/admin/odds", s.handleSetOdds)
		r.Put("/admin/limits", s.handleSetLimits)
		r.Put("/admin/accounts/{name}/balance", s.handleOverrideBalance)
		r.Put("/admin/accounts/{name}/admin", s.handleSetAdmin)
		r.Get("/admin/accounts", s.handleSnapshot)

		r.Post("/rounds/guess", s.handleGuessStart)
		r.Post("/rounds/guess/{roundID}/guess", s.handleGuessAttempt)
		r.Post("/rounds/guess/{roundID}/feedback", s.handleGuessFeedback)

		r.Post("/rounds/blackjack", s.handleBlackjackStart)
		r.Post("/rounds/blackjack/{roundID}/hit", s.handleBlackjackHit)
		r.Post("/rounds/blackjack/{roundID}/stand", s.handleBlackjackStand)
	})

	return r
}

// requestLogger logs method and path for each request (no body or secrets).
func requestLogger(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("casino %s %s", r.Method, r.URL.Path)
		h.ServeHTTP(w, r)
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "casino"})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", "BAD_REQUEST")
		return false
	}
	return true
}

// sessionCreds are the account/token pair carried by authenticated calls.
type sessionCreds struct {
	Account   string `json:"account"`
	SessionID string `json:"session_id"`
}

// requireSession validates the creds and returns the caller's identity.
func (s *Server) requireSession(w http.ResponseWriter, creds sessionCreds) (auth.Identity, bool) {
	if err := s.sessions.Validate(creds.Account, creds.SessionID); err != nil {
		writeDomainError(w, err)
		return auth.Identity{}, false
	}
	id, err := s.auth.IdentityFor(creds.Account)
	if err != nil {
		writeDomainError(w, err)
		return auth.Identity{}, false
	}
	return id, true
}

// requireAdmin is requireSession plus the admin capability.
func (s *Server) requireAdmin(w http.ResponseWriter, creds sessionCreds) (auth.Identity, bool) {
	id, ok := s.requireSession(w, creds)
	if !ok {
		return auth.Identity{}, false
	}
	if !id.Has(auth.CapAdmin) {
		writeError(w, http.StatusForbidden, "admin capability required", "FORBIDDEN")
		return auth.Identity{}, false
	}
	return id, true
}
