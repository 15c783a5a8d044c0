package card

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mverrilli/deckbound/internal/game/dice"
)

// ZoneEntry puts count copies of a card template into a zone's deck.
type ZoneEntry struct {
	CardID string `yaml:"card"`
	Count  int    `yaml:"count"`
}

// Zone defines an explorable area: its deck composition and how many
// card slots an encounter in it exposes.
type Zone struct {
	ID          string      `yaml:"id"`
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	Slots       int         `yaml:"slots"`
	Deck        []ZoneEntry `yaml:"deck"`
}

// Validate checks the zone definition against the loaded card templates.
func (z *Zone) Validate(templates map[string]*Template) error {
	if z.ID == "" {
		return fmt.Errorf("zone: id must not be empty")
	}
	if z.Name == "" {
		return fmt.Errorf("zone %q: name must not be empty", z.ID)
	}
	if z.Slots < 1 {
		return fmt.Errorf("zone %q: slots must be >= 1", z.ID)
	}
	if len(z.Deck) == 0 {
		return fmt.Errorf("zone %q: deck must not be empty", z.ID)
	}
	for i, e := range z.Deck {
		if e.Count < 1 {
			return fmt.Errorf("zone %q: deck[%d] count must be >= 1", z.ID, i)
		}
		if _, ok := templates[e.CardID]; !ok {
			return fmt.Errorf("zone %q: deck[%d] references unknown card %q", z.ID, i, e.CardID)
		}
	}
	return nil
}

// Deck is a finite draw pile of card templates. Draws remove from the
// pile; an exhausted deck stops producing cards.
type Deck struct {
	remaining []*Template
}

// NewDeck builds a shuffled draw pile from the zone's composition.
//
// Precondition: zone must have passed Validate against templates.
func NewDeck(zone *Zone, templates map[string]*Template, src dice.Source) *Deck {
	var pile []*Template
	for _, e := range zone.Deck {
		tmpl := templates[e.CardID]
		for i := 0; i < e.Count; i++ {
			pile = append(pile, tmpl)
		}
	}
	// Fisher-Yates.
	for i := len(pile) - 1; i > 0; i-- {
		j := src.Intn(i + 1)
		pile[i], pile[j] = pile[j], pile[i]
	}
	return &Deck{remaining: pile}
}

// Draw removes and returns the top template, or (nil, false) when the
// deck is exhausted.
func (d *Deck) Draw() (*Template, bool) {
	if len(d.remaining) == 0 {
		return nil, false
	}
	top := d.remaining[len(d.remaining)-1]
	d.remaining = d.remaining[:len(d.remaining)-1]
	return top, true
}

// Remaining returns the number of undrawn cards.
func (d *Deck) Remaining() int { return len(d.remaining) }

// LoadZones reads every *.yaml file in dir as a Zone and validates each
// against templates.
func LoadZones(dir string, templates map[string]*Template) (map[string]*Zone, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading zone dir %q: %w", dir, err)
	}
	zones := make(map[string]*Zone)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		var zone Zone
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&zone); err != nil {
			return nil, fmt.Errorf("parsing %q: %w", path, err)
		}
		if err := zone.Validate(templates); err != nil {
			return nil, fmt.Errorf("loading %q: %w", path, err)
		}
		zones[zone.ID] = &zone
	}
	return zones, nil
}
