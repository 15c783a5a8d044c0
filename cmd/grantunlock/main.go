// Package main provides a CLI tool for granting or revoking ability
// unlocks on a character.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/mverrilli/deckbound/internal/config"
	"github.com/mverrilli/deckbound/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	characterID := flag.Int64("character", 0, "target character id (required)")
	grant := flag.String("grant", "", "comma-separated unlock keys to add")
	revoke := flag.String("revoke", "", "comma-separated unlock keys to remove")
	flag.Parse()

	if *characterID <= 0 || (*grant == "" && *revoke == "") {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("connecting to database: %v", err)
	}
	defer pool.Close()

	repo := postgres.NewCharacterRepository(pool.DB())

	c, err := repo.GetByID(ctx, *characterID)
	if err != nil {
		log.Fatalf("looking up character #%d: %v", *characterID, err)
	}

	unlocks := make(map[string]struct{}, len(c.Unlocks))
	for _, key := range c.Unlocks {
		unlocks[key] = struct{}{}
	}
	for _, key := range splitKeys(*grant) {
		unlocks[key] = struct{}{}
	}
	for _, key := range splitKeys(*revoke) {
		delete(unlocks, key)
	}

	updated := make([]string, 0, len(unlocks))
	for key := range unlocks {
		updated = append(updated, key)
	}
	sort.Strings(updated)

	if err := repo.SetUnlocks(ctx, c.ID, updated); err != nil {
		log.Fatalf("setting unlocks: %v", err)
	}

	elapsed := time.Since(start)
	fmt.Fprintf(os.Stdout, "unlocks for %s (#%d): [%s] [%s]\n",
		c.Name, c.ID, strings.Join(updated, ", "), elapsed)
}

func splitKeys(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		key := strings.TrimSpace(part)
		if key != "" {
			out = append(out, key)
		}
	}
	return out
}
