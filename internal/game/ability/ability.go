// Package ability defines the static ability catalog: weapon-independent
// attacks, spells, resource gathers, and the reactions a defender may use
// to interrupt incoming damage.
package ability

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mverrilli/deckbound/internal/game/effect"
)

// Kind constants for Def.Kind.
const (
	KindAttack   = "attack"
	KindSpell    = "spell"
	KindReaction = "reaction"
	KindGather   = "gather"
)

var validKinds = map[string]bool{
	KindAttack:   true,
	KindSpell:    true,
	KindReaction: true,
	KindGather:   true,
}

// Reaction modes for Def.ReactionMode.
const (
	ReactionDodge = "dodge" // success zeroes the incoming damage
	ReactionBlock = "block" // success subtracts a fixed mitigation value
)

// Def is the static definition of an ability, loaded from YAML.
type Def struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Kind        string `yaml:"kind"`

	// Hit is the target number the check total must meet.
	Hit int `yaml:"hit"`
	// Stat names the attacker stat feeding the check ("might", "agility").
	Stat string `yaml:"stat"`

	Damage     string `yaml:"damage"`      // dice expression; empty for gathers
	DamageType string `yaml:"damage_type"` // "physical" or "arcane"

	APCost   int `yaml:"ap_cost"`
	Cooldown int `yaml:"cooldown"` // phases

	// UnlockKey gates the ability behind a character progression flag.
	// Empty means always available.
	UnlockKey string `yaml:"unlock_key,omitempty"`

	// IncompatibleGear lists gear tags that block this ability while a
	// matching item is equipped (e.g. heavy armor blocks dodge).
	IncompatibleGear []string `yaml:"incompatible_gear,omitempty"`

	// ReactionMode is set for KindReaction: "dodge" or "block".
	ReactionMode string `yaml:"reaction_mode,omitempty"`
	// Mitigation is the fixed value a successful block subtracts.
	Mitigation int `yaml:"mitigation,omitempty"`

	// Yield is the item definition a successful gather grants.
	Yield string `yaml:"yield,omitempty"`

	// Debuff is the optional on-hit effect for offensive kinds.
	Debuff *effect.Spec `yaml:"debuff,omitempty"`
}

// Validate checks that the Def satisfies its invariants.
//
// Postcondition: Returns nil iff the def is internally consistent.
func (d *Def) Validate() error {
	var errs []string
	if d.ID == "" {
		errs = append(errs, "id must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "name must not be empty")
	}
	if !validKinds[d.Kind] {
		errs = append(errs, fmt.Sprintf("kind must be one of attack, spell, reaction, gather; got %q", d.Kind))
	}
	if d.Hit <= 0 {
		errs = append(errs, "hit target must be > 0")
	}
	if d.APCost < 0 {
		errs = append(errs, "ap_cost must be >= 0")
	}
	if d.Cooldown < 0 {
		errs = append(errs, "cooldown must be >= 0")
	}
	switch d.Kind {
	case KindReaction:
		if d.ReactionMode != ReactionDodge && d.ReactionMode != ReactionBlock {
			errs = append(errs, fmt.Sprintf("reaction_mode must be dodge or block; got %q", d.ReactionMode))
		}
		if d.ReactionMode == ReactionBlock && d.Mitigation <= 0 {
			errs = append(errs, "block reactions require mitigation > 0")
		}
	case KindAttack, KindSpell:
		if d.Damage == "" {
			errs = append(errs, "offensive abilities require a damage expression")
		}
	case KindGather:
		if d.Yield == "" {
			errs = append(errs, "gathers require a yield item")
		}
	}
	if d.Debuff != nil {
		if err := d.Debuff.Validate(); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("ability %q validation failed: %s", d.ID, strings.Join(errs, "; "))
	}
	return nil
}

// Registry holds all known ability Defs keyed by ID.
type Registry struct {
	defs map[string]*Def
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*Def)}
}

// Register adds def, overwriting any existing entry with the same ID.
// Precondition: def must not be nil and def.ID must not be empty.
func (r *Registry) Register(def *Def) {
	r.defs[def.ID] = def
}

// Get returns the Def for id, or (nil, false) if not found.
func (r *Registry) Get(id string) (*Def, bool) {
	d, ok := r.defs[id]
	return d, ok
}

// Len returns the number of registered defs.
func (r *Registry) Len() int { return len(r.defs) }

// All returns every registered def in unspecified order.
func (r *Registry) All() []*Def {
	out := make([]*Def, 0, len(r.defs))
	for _, d := range r.defs {
		out = append(out, d)
	}
	return out
}

// Reactions returns every KindReaction def in the registry.
func (r *Registry) Reactions() []*Def {
	var out []*Def
	for _, d := range r.defs {
		if d.Kind == KindReaction {
			out = append(out, d)
		}
	}
	return out
}

// LoadDirectory reads every *.yaml file in dir, parses each as a Def,
// validates it, and returns a populated Registry.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns a non-nil Registry, or an error if any file
// fails to parse or validate.
func LoadDirectory(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading ability dir %q: %w", dir, err)
	}
	reg := NewRegistry()
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		var def Def
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&def); err != nil {
			return nil, fmt.Errorf("parsing %q: %w", path, err)
		}
		if err := def.Validate(); err != nil {
			return nil, fmt.Errorf("validating %q: %w", path, err)
		}
		reg.Register(&def)
	}
	return reg, nil
}
