// Package main provides a content linter: it loads every YAML content
// directory and cross-validates references between them before a server
// deploy ships broken content.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/mverrilli/deckbound/internal/game/ability"
	"github.com/mverrilli/deckbound/internal/game/card"
	"github.com/mverrilli/deckbound/internal/game/item"
	"github.com/mverrilli/deckbound/internal/game/ruleset"
)

func main() {
	contentDir := flag.String("content", "content", "root directory of YAML content")
	flag.Parse()

	templates, err := card.LoadTemplates(filepath.Join(*contentDir, "cards"))
	if err != nil {
		log.Fatalf("cards: %v", err)
	}
	zones, err := card.LoadZones(filepath.Join(*contentDir, "zones"), templates)
	if err != nil {
		log.Fatalf("zones: %v", err)
	}
	items, err := item.LoadDirectory(filepath.Join(*contentDir, "items"))
	if err != nil {
		log.Fatalf("items: %v", err)
	}
	abilities, err := ability.LoadDirectory(filepath.Join(*contentDir, "abilities"))
	if err != nil {
		log.Fatalf("abilities: %v", err)
	}
	callings, err := ruleset.LoadCallings(filepath.Join(*contentDir, "callings"))
	if err != nil {
		log.Fatalf("callings: %v", err)
	}

	var problems []string
	report := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	// Card loot must reference known items.
	for _, tmpl := range templates {
		for i, row := range tmpl.Loot {
			if _, ok := items.Get(row.Arg); !ok {
				report("card %q: loot[%d] references unknown item %q", tmpl.ID, i, row.Arg)
			}
		}
		for _, id := range tmpl.Guaranteed {
			if _, ok := items.Get(id); !ok {
				report("card %q: guaranteed drop references unknown item %q", tmpl.ID, id)
			}
		}
	}

	// Gather yields must reference known items.
	for _, d := range abilities.All() {
		if d.Kind == ability.KindGather {
			if _, ok := items.Get(d.Yield); !ok {
				report("ability %q: yield references unknown item %q", d.ID, d.Yield)
			}
		}
	}

	// Calling starting items must reference known items; unlock keys
	// should correspond to at least one gated ability.
	unlockKeys := make(map[string]bool)
	for _, c := range callings.All() {
		for _, id := range c.StartingItems {
			if _, ok := items.Get(id); !ok {
				report("calling %q: starting item references unknown item %q", c.ID, id)
			}
		}
		for _, key := range c.Unlocks {
			unlockKeys[key] = true
		}
	}
	gated := make(map[string]bool)
	for _, d := range abilities.Reactions() {
		if d.UnlockKey != "" {
			gated[d.UnlockKey] = true
		}
	}
	for key := range unlockKeys {
		if !gated[key] && !abilityUnlockExists(abilities, key) {
			report("unlock key %q is granted by a calling but gates no ability", key)
		}
	}

	if len(problems) > 0 {
		for _, p := range problems {
			fmt.Fprintln(os.Stderr, p)
		}
		os.Exit(1)
	}

	fmt.Printf("content ok: %d cards, %d zones, %d items, %d abilities, %d callings\n",
		len(templates), len(zones), items.Len(), abilities.Len(), callings.Len())
}

// abilityUnlockExists reports whether any loaded ability is gated by key.
func abilityUnlockExists(reg *ability.Registry, key string) bool {
	for _, d := range reg.All() {
		if d.UnlockKey == key {
			return true
		}
	}
	return false
}
