package state

import (
	"log"

	casino "github.com/pocket-arcade/houserules-casino-server"

	"github.com/redis/go-redis/v9"
)

// OpenConfig selects the storage backend. The precedence is hosted
// Postgres (DATABASE_URL), then Redis, then the local data dir.
type OpenConfig struct {
	DataDir    string
	RedisURL   string
	StateTable string
	RedisKey   string
}

// Open picks a backend from the config and wraps it in a Store.
func Open(cfg OpenConfig) (*Store, error) {
	db, err := casino.GetDB()
	if err != nil {
		return nil, err
	}
	if db != nil {
		log.Printf("state: using postgres backend (table %q)", cfg.StateTable)
		return NewStore(NewPostgresBackend(db, cfg.StateTable)), nil
	}
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		log.Printf("state: using redis backend")
		return NewStore(NewRedisBackend(redis.NewClient(opts), cfg.RedisKey)), nil
	}
	log.Printf("state: using file backend (%s)", cfg.DataDir)
	return NewStore(NewFileBackend(cfg.DataDir)), nil
}
