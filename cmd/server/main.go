package main

import (
	"log"

	"github.com/pocket-arcade/houserules-casino-server/config"
	"github.com/pocket-arcade/houserules-casino-server/server"

	"github.com/joho/godotenv"
)

func main() {
	// Load .env so DATABASE_URL / REDIS_URL are set: cwd first, then the
	// project root when running from cmd/server.
	_ = godotenv.Load(".env")
	_ = godotenv.Load("../.env")
	_ = godotenv.Load("../../.env")
	cfg := config.Load()
	srv, err := server.New(cfg)
	if err != nil {
		log.Fatal(err)
	}
	if err := srv.Run(); err != nil {
		log.Fatal(err)
	}
}
