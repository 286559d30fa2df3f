package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port           int
	DataDir        string
	RedisURL       string
	StateTable     string // hosted document table name override
	RedisKey       string
	SessionTTL     time.Duration
	SuperAdminName string
}

func Load() *Config {
	port := 8080
	// Prefer PORT (Render, Fly.io, Railway, etc.) then CASINO_PORT
	if p := os.Getenv("PORT"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			port = v
		}
	} else if p := os.Getenv("CASINO_PORT"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			port = v
		}
	}
	dataDir := os.Getenv("CASINO_DATA_DIR")
	if dataDir == "" {
		dataDir = "data"
	}
	stateTable := os.Getenv("CASINO_STATE_TABLE")
	if stateTable == "" {
		stateTable = "app_state"
	}
	redisKey := os.Getenv("CASINO_REDIS_KEY")
	if redisKey == "" {
		redisKey = "casino:app_state"
	}
	ttl := 6 * time.Hour
	if s := os.Getenv("CASINO_SESSION_TTL_SECONDS"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			ttl = time.Duration(v) * time.Second
		}
	}
	superAdmin := os.Getenv("CASINO_SUPER_ADMIN")
	if superAdmin == "" {
		superAdmin = "isaac"
	}
	return &Config{
		Port:           port,
		DataDir:        dataDir,
		RedisURL:       os.Getenv("REDIS_URL"),
		StateTable:     stateTable,
		RedisKey:       redisKey,
		SessionTTL:     ttl,
		SuperAdminName: superAdmin,
	}
}
