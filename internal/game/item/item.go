// Package item defines item content, player inventories, equipment slots,
// and per-encounter ground loot. Item payloads are opaque to the engine;
// only the fields that drive combat resolution are typed.
package item

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Kind constants for Def.Kind.
const (
	KindWeapon     = "weapon"
	KindArmor      = "armor"
	KindShield     = "shield"
	KindConsumable = "consumable"
	KindTrinket    = "trinket"
)

var validKinds = map[string]bool{
	KindWeapon:     true,
	KindArmor:      true,
	KindShield:     true,
	KindConsumable: true,
	KindTrinket:    true,
}

// Rarity orders drops for loot arbitration: contested rolls open only for
// rare-or-better items.
type Rarity int

const (
	Common Rarity = iota
	Uncommon
	Rare
	Epic
)

// String returns the content tag for the rarity.
func (r Rarity) String() string {
	switch r {
	case Common:
		return "common"
	case Uncommon:
		return "uncommon"
	case Rare:
		return "rare"
	case Epic:
		return "epic"
	default:
		return "unknown"
	}
}

// ParseRarity maps a content tag to its Rarity.
func ParseRarity(tag string) (Rarity, error) {
	switch tag {
	case "common":
		return Common, nil
	case "uncommon":
		return Uncommon, nil
	case "rare":
		return Rare, nil
	case "epic":
		return Epic, nil
	default:
		return 0, fmt.Errorf("item: unknown rarity %q", tag)
	}
}

// Contested reports whether a drop of this rarity goes through a loot roll
// rather than direct distribution.
func (r Rarity) Contested() bool { return r >= Rare }

// rarityYAML is the wire form of Rarity in content files.
type rarityYAML struct {
	Rarity string `yaml:"rarity"`
}

// Def defines the static properties of an item loaded from YAML.
type Def struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Kind        string `yaml:"kind"`
	Rarity      Rarity `yaml:"-"`

	// Weapon fields.
	Hit        int    `yaml:"hit"`         // target number its attack must meet
	Damage     string `yaml:"damage"`      // dice expression, e.g. "1d6+2"
	DamageType string `yaml:"damage_type"` // "physical" or "arcane"
	Cooldown   int    `yaml:"cooldown"`    // phases between uses; 0 = every phase

	// Shield fields: a shield with its own reaction blocks Mitigation
	// damage on a successful block check against Hit.
	Reaction   bool `yaml:"reaction"`
	Mitigation int  `yaml:"mitigation"`

	// Consumable fields.
	Heal int `yaml:"heal"`

	// GearTags describe the item for ability compatibility checks
	// (e.g. "heavy" armor blocks dodge-type reactions).
	GearTags []string `yaml:"gear_tags"`

	Value int `yaml:"value"`
}

// HasTag reports whether the def carries the given gear tag.
func (d *Def) HasTag(tag string) bool {
	for _, t := range d.GearTags {
		if t == tag {
			return true
		}
	}
	return false
}

// Validate checks that the Def satisfies its invariants.
//
// Postcondition: returns nil iff all fields are valid.
func (d *Def) Validate() error {
	var errs []string
	if d.ID == "" {
		errs = append(errs, "id must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "name must not be empty")
	}
	if !validKinds[d.Kind] {
		errs = append(errs, fmt.Sprintf("kind must be one of weapon, armor, shield, consumable, trinket; got %q", d.Kind))
	}
	if d.Kind == KindWeapon {
		if d.Hit <= 0 {
			errs = append(errs, "weapon hit target must be > 0")
		}
		if d.Damage == "" {
			errs = append(errs, "weapon damage expression must not be empty")
		}
	}
	if d.Kind == KindShield && d.Reaction && d.Hit <= 0 {
		errs = append(errs, "shield reaction requires a hit target > 0")
	}
	if d.Cooldown < 0 {
		errs = append(errs, "cooldown must be >= 0")
	}
	if d.Mitigation < 0 {
		errs = append(errs, "mitigation must be >= 0")
	}
	if len(errs) > 0 {
		return fmt.Errorf("item %q validation failed: %s", d.ID, strings.Join(errs, "; "))
	}
	return nil
}

// UnmarshalYAML decodes a Def, mapping the rarity tag onto the closed enum.
func (d *Def) UnmarshalYAML(value *yaml.Node) error {
	type plain Def
	if err := value.Decode((*plain)(d)); err != nil {
		return err
	}
	var rw rarityYAML
	if err := value.Decode(&rw); err != nil {
		return err
	}
	if rw.Rarity == "" {
		d.Rarity = Common
		return nil
	}
	r, err := ParseRarity(rw.Rarity)
	if err != nil {
		return err
	}
	d.Rarity = r
	return nil
}

// Registry holds all known item Defs keyed by ID.
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

// LoadDirectory reads every *.yaml file in dir, parses each as a Def,
// validates it, and returns a populated Registry.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns a non-nil Registry, or an error if any file
// fails to parse or validate.
func LoadDirectory(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading item dir %q: %w", dir, err)
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

// ErrUnknownItem is returned when an operation references an unregistered def.
var ErrUnknownItem = errors.New("unknown item")
