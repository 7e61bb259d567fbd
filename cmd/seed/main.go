// Command seed loads the trick catalog into the database without starting
// the server. The server also seeds on every startup; this is for preparing
// a database file ahead of time or loading a custom catalog.
//
//	seed [-db data/keep_bouncing_back.db] [-file highline_tricks.json]
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	sqliteRepo "github.com/sakif/keep-bouncing-back/internal/repository/sqlite"
	"github.com/sakif/keep-bouncing-back/internal/seed"
)

func main() {
	_ = godotenv.Load()

	dbPath := flag.String("db", envOr("DB_PATH", "data/keep_bouncing_back.db"), "SQLite database file")
	file := flag.String("file", os.Getenv("SEED_FILE"), "catalog JSON (empty: built-in catalog)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	if err := os.MkdirAll(filepath.Dir(*dbPath), 0755); err != nil {
		logger.Error("failed to create database directory", slog.String("error", err.Error()))
		os.Exit(1)
	}

	db, err := sqliteRepo.New(*dbPath)
	if err != nil {
		logger.Error("failed to open database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer db.Close()

	catalog, err := seed.Open(*file)
	if err != nil {
		logger.Error("failed to open catalog", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if _, err := seed.Tricks(context.Background(), db, catalog, logger); err != nil {
		logger.Error("seeding failed", slog.String("error", err.Error()))
		db.Close()
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
