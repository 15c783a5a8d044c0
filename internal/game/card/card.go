// Package card provides hostile-card templates, live card instances, and
// the zone decks PvE sessions draw from.
package card

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mverrilli/deckbound/internal/game/combat"
	"github.com/mverrilli/deckbound/internal/game/effect"
)

// Range-table outcome tags. Attack rolls outside every range miss; loot
// rolls outside every range drop nothing beyond the guaranteed list.
const (
	OutcomeMiss    = "miss"
	OutcomeAttack  = "attack"
	OutcomeSpecial = "special"
	OutcomeItem    = "item"
)

// Template defines a reusable hostile card archetype loaded from YAML.
type Template struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	MaxHealth   int    `yaml:"max_health"`

	// Dialogue is the optional line shown to the party leader when a
	// member interacts with the card instead of attacking it.
	Dialogue string `yaml:"dialogue,omitempty"`

	// Might feeds the card's attack damage; Damage is the dice expression
	// rolled on an attack outcome.
	Might      int    `yaml:"might"`
	Damage     string `yaml:"damage"`
	DamageType string `yaml:"damage_type"`

	// Attacks maps a fresh d20 to miss/attack/special outcomes.
	Attacks combat.RangeTable `yaml:"attacks"`

	// Debuff is the optional on-hit effect an attack applies.
	Debuff *effect.Spec `yaml:"debuff,omitempty"`

	// Loot is the range-based loot table rolled on death, entries with
	// the "item" outcome and the item id in Arg; Guaranteed drops always.
	Loot       combat.RangeTable `yaml:"loot,omitempty"`
	Guaranteed []string          `yaml:"guaranteed,omitempty"`
}

// Validate checks that the template satisfies its invariants.
//
// Postcondition: Returns nil iff the template is internally consistent.
func (t *Template) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("card template: id must not be empty")
	}
	if t.Name == "" {
		return fmt.Errorf("card template %q: name must not be empty", t.ID)
	}
	if t.MaxHealth < 1 {
		return fmt.Errorf("card template %q: max_health must be >= 1", t.ID)
	}
	if t.Damage == "" {
		return fmt.Errorf("card template %q: damage expression must not be empty", t.ID)
	}
	if err := t.Attacks.Validate(); err != nil {
		return fmt.Errorf("card template %q: attacks: %w", t.ID, err)
	}
	for _, e := range t.Attacks {
		switch e.Outcome {
		case OutcomeMiss, OutcomeAttack:
		case OutcomeSpecial:
			if e.Arg == "" {
				return fmt.Errorf("card template %q: special outcome requires a hook name", t.ID)
			}
		default:
			return fmt.Errorf("card template %q: unknown attack outcome %q", t.ID, e.Outcome)
		}
	}
	if err := t.Loot.Validate(); err != nil {
		return fmt.Errorf("card template %q: loot: %w", t.ID, err)
	}
	for i, l := range t.Loot {
		if l.Outcome != OutcomeItem {
			return fmt.Errorf("card template %q: loot[%d] outcome must be %q", t.ID, i, OutcomeItem)
		}
		if l.Arg == "" {
			return fmt.Errorf("card template %q: loot[%d] must name an item", t.ID, i)
		}
	}
	if t.Debuff != nil {
		if err := t.Debuff.Validate(); err != nil {
			return fmt.Errorf("card template %q: %w", t.ID, err)
		}
	}
	return nil
}

// RollLoot returns the item ids dropped for the given roll: the matching
// loot-table row (if any) plus every guaranteed drop.
func (t *Template) RollLoot(roll int) []string {
	var out []string
	if e, ok := t.Loot.Lookup(roll); ok {
		out = append(out, e.Arg)
	}
	return append(out, t.Guaranteed...)
}

// Instance is a live hostile card occupying a zone slot.
type Instance struct {
	ID         string
	TemplateID string
	Name       string
	Health     int
	MaxHealth  int
	Effects    *effect.Set
	tmpl       *Template
}

// NewInstance creates a live card from a template.
//
// Precondition: id must be non-empty; tmpl must have passed Validate.
// Postcondition: Health equals tmpl.MaxHealth.
func NewInstance(id string, tmpl *Template) *Instance {
	return &Instance{
		ID:         id,
		TemplateID: tmpl.ID,
		Name:       tmpl.Name,
		Health:     tmpl.MaxHealth,
		MaxHealth:  tmpl.MaxHealth,
		Effects:    effect.NewSet(),
		tmpl:       tmpl,
	}
}

// Template returns the source template.
func (i *Instance) Template() *Template { return i.tmpl }

// IsDead reports whether the card has zero health.
func (i *Instance) IsDead() bool { return i.Health <= 0 }

// ApplyDamage reduces Health by amount, flooring at zero.
//
// Precondition: amount >= 0.
// Postcondition: Health >= 0; returns true iff this call killed the card.
func (i *Instance) ApplyDamage(amount int) bool {
	if i.IsDead() {
		return false
	}
	i.Health -= amount
	if i.Health <= 0 {
		i.Health = 0
		return true
	}
	return false
}

// LoadTemplates reads every *.yaml file in dir, parses and validates each
// as a Template, and returns them keyed by ID.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns all templates, or an error on the first parse or
// validation failure.
func LoadTemplates(dir string) (map[string]*Template, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading card dir %q: %w", dir, err)
	}
	templates := make(map[string]*Template)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		var tmpl Template
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&tmpl); err != nil {
			return nil, fmt.Errorf("parsing %q: %w", path, err)
		}
		if err := tmpl.Validate(); err != nil {
			return nil, fmt.Errorf("loading %q: %w", path, err)
		}
		templates[tmpl.ID] = &tmpl
	}
	return templates, nil
}
