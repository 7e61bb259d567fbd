// Package seed fills the trick catalog from a JSON document of the form
//
//	{ "0": ["Sit start", ...], "1": ["Butt bounce", ...], ... }
//
// keyed by difficulty level. Seeding is idempotent: tricks whose name already
// exists are left alone, so it runs on every startup.
package seed

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"
)

//go:embed highline_tricks.json
var defaultCatalog []byte

// Entry is one trick of the catalog document.
type Entry struct {
	Name  string
	Level int
}

// TrickInserter is satisfied by the sqlite repository.
type TrickInserter interface {
	InsertTrickIfMissing(ctx context.Context, name string, level int) (bool, error)
}

// Open returns the catalog at path, or the embedded catalog when path is empty.
func Open(path string) (io.Reader, error) {
	if path == "" {
		return bytes.NewReader(defaultCatalog), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("seed: reading %s: %w", path, err)
	}
	return bytes.NewReader(data), nil
}

// ParseCatalog decodes a catalog document, ordered by level then name.
func ParseCatalog(r io.Reader) ([]Entry, error) {
	var doc map[string][]string
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("seed: decoding catalog: %w", err)
	}

	var entries []Entry
	for key, names := range doc {
		level, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil || level < 0 {
			return nil, fmt.Errorf("seed: level %q is not a non-negative integer", key)
		}
		for _, name := range names {
			name = strings.TrimSpace(name)
			if name == "" {
				return nil, fmt.Errorf("seed: empty trick name at level %d", level)
			}
			entries = append(entries, Entry{Name: name, Level: level})
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Level != entries[j].Level {
			return entries[i].Level < entries[j].Level
		}
		return entries[i].Name < entries[j].Name
	})
	return entries, nil
}

// Tricks inserts every catalog entry that is not already stored and returns
// how many were added.
func Tricks(ctx context.Context, repo TrickInserter, catalog io.Reader, logger *slog.Logger) (int, error) {
	entries, err := ParseCatalog(catalog)
	if err != nil {
		return 0, err
	}

	inserted := 0
	for _, e := range entries {
		added, err := repo.InsertTrickIfMissing(ctx, e.Name, e.Level)
		if err != nil {
			return inserted, fmt.Errorf("seed: inserting %q: %w", e.Name, err)
		}
		if added {
			inserted++
		}
	}

	logger.Info("trick catalog seeded",
		slog.Int("inserted", inserted),
		slog.Int("total", len(entries)),
	)
	return inserted, nil
}
