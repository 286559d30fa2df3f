package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	casino "github.com/pocket-arcade/houserules-casino-server"
	"github.com/pocket-arcade/houserules-casino-server/state"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

// statectl inspects and moves the casino state document between
// backends. Usage:
//
//	statectl dump  -src file:data
//	statectl prune -src file:data
//	statectl copy  -src file:data -dst redis:redis://localhost:6379/0
//
// Backend specs are "file:<dir>", "redis:<url>", or "postgres:<table>"
// (postgres connects through DATABASE_URL).
func main() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load("../.env")

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}
	cmd := os.Args[1]
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	src := fs.String("src", "file:data", "source backend spec")
	dst := fs.String("dst", "", "destination backend spec (copy only)")
	_ = fs.Parse(os.Args[2:])

	var err error
	switch cmd {
	case "dump":
		err = runDump(*src)
	case "prune":
		err = runPrune(*src)
	case "copy":
		if *dst == "" {
			fmt.Fprintln(os.Stderr, "missing required -dst argument")
			os.Exit(1)
		}
		err = runCopy(*src, *dst)
	default:
		usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s failed: %v\n", cmd, err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: statectl <dump|prune|copy> [-src spec] [-dst spec]")
}

// openBackend parses a "scheme:rest" spec into a backend.
func openBackend(spec string) (state.Backend, error) {
	scheme, rest, _ := strings.Cut(spec, ":")
	switch scheme {
	case "file":
		if rest == "" {
			rest = "data"
		}
		return state.NewFileBackend(rest), nil
	case "redis":
		opts, err := redis.ParseURL(rest)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		return state.NewRedisBackend(redis.NewClient(opts), ""), nil
	case "postgres":
		db, err := casino.GetDB()
		if err != nil {
			return nil, fmt.Errorf("connect db: %w", err)
		}
		if db == nil {
			return nil, fmt.Errorf("DATABASE_URL is not set; cannot connect to DB")
		}
		return state.NewPostgresBackend(db, rest), nil
	default:
		return nil, fmt.Errorf("unknown backend spec %q", spec)
	}
}

// runDump prints the state document as indented JSON.
func runDump(spec string) error {
	backend, err := openBackend(spec)
	if err != nil {
		return err
	}
	data, err := state.NewStore(backend).Load()
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

// runPrune normalizes the document in place: orphaned or malformed
// sessions are dropped, balances re-rounded, odds repaired.
func runPrune(spec string) error {
	backend, err := openBackend(spec)
	if err != nil {
		return err
	}
	removed, before, err := pruneSessions(backend)
	if err != nil {
		return err
	}
	fmt.Printf("pruned %d of %d sessions\n", removed, before)
	return nil
}

// pruneSessions persists a normalized document and reports how many
// sessions that dropped. The before count comes from the raw backend
// bytes: the store normalizes on every load, so counting inside an
// Update callback would always see the already-repaired document.
func pruneSessions(backend state.Backend) (removed, before int, err error) {
	raw, err := backend.Load()
	if err != nil {
		return 0, 0, err
	}
	if raw != nil {
		before = len(raw.ActiveSessions)
	}
	after := before
	err = state.NewStore(backend).Update(func(data *state.AppState) error {
		after = len(data.ActiveSessions)
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return before - after, before, nil
}

// runCopy reads the whole document from src and writes it to dst.
// The destination is overwritten; last writer wins.
func runCopy(srcSpec, dstSpec string) error {
	srcBackend, err := openBackend(srcSpec)
	if err != nil {
		return err
	}
	dstBackend, err := openBackend(dstSpec)
	if err != nil {
		return err
	}
	data, err := state.NewStore(srcBackend).Load()
	if err != nil {
		return err
	}
	dstStore := state.NewStore(dstBackend)
	err = dstStore.Update(func(dst *state.AppState) error {
		*dst = *data
		return nil
	})
	if err != nil {
		return err
	}
	fmt.Printf("copied state: %d accounts, %d sessions\n", len(data.Accounts), len(data.ActiveSessions))
	return nil
}
