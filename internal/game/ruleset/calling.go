// Package ruleset defines the character-creation rules content: callings,
// their starting statistics, and their starting possessions.
package ruleset

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Calling defines a playable archetype chosen at character creation. The
// calling fixes the starting stat line, health, gold, ability unlocks,
// and inventory.
//
// Precondition: ID, Name, and MaxHealth must be non-zero after loading.
type Calling struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	MaxHealth  int `yaml:"max_health"`
	Might      int `yaml:"might"`
	Agility    int `yaml:"agility"`
	Resistance int `yaml:"resistance"`

	StartingGold int `yaml:"starting_gold"`

	// Unlocks are progression flags granted at creation, e.g.
	// "reaction.dodge" for callings trained to evade.
	Unlocks []string `yaml:"unlocks"`

	// StartingItems lists item definition ids placed in the new
	// character's inventory.
	StartingItems []string `yaml:"starting_items"`
}

// Validate checks the structural invariants of a loaded calling.
//
// Postcondition: Returns nil iff the calling is usable for creation.
func (c *Calling) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("calling missing id")
	}
	if c.Name == "" {
		return fmt.Errorf("calling %q: missing name", c.ID)
	}
	if c.MaxHealth <= 0 {
		return fmt.Errorf("calling %q: max_health must be positive", c.ID)
	}
	if c.Might < 0 || c.Agility < 0 || c.Resistance < 0 {
		return fmt.Errorf("calling %q: stats must not be negative", c.ID)
	}
	if c.StartingGold < 0 {
		return fmt.Errorf("calling %q: starting_gold must not be negative", c.ID)
	}
	return nil
}

// Registry provides calling lookup by id.
type Registry struct {
	callings map[string]*Calling
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{callings: make(map[string]*Calling)}
}

// Register adds a Calling to the registry. The last registration for an
// id wins.
//
// Precondition: c must be non-nil with a non-empty ID.
func (r *Registry) Register(c *Calling) {
	if c == nil {
		panic("ruleset: Register: calling must be non-nil")
	}
	if c.ID == "" {
		panic("ruleset: Register: calling ID must be non-empty")
	}
	r.callings[c.ID] = c
}

// Get returns the Calling for id, if registered.
func (r *Registry) Get(id string) (*Calling, bool) {
	c, ok := r.callings[id]
	return c, ok
}

// All returns every registered calling sorted by id.
func (r *Registry) All() []*Calling {
	out := make([]*Calling, 0, len(r.callings))
	for _, c := range r.callings {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of registered callings.
func (r *Registry) Len() int { return len(r.callings) }

// LoadCallings reads every .yaml file in dir, parses each as a Calling,
// validates it, and returns a populated Registry. Unknown fields are
// rejected so content typos fail at load time.
//
// Precondition: dir must be a readable directory path.
// Postcondition: Returns a Registry with every calling validated, or a
// non-nil error naming the offending file.
func LoadCallings(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading callings dir: %w", err)
	}

	reg := NewRegistry()
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		var c Calling
		if err := dec.Decode(&c); err != nil {
			return nil, fmt.Errorf("parsing calling file %s: %w", path, err)
		}
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("validating %s: %w", path, err)
		}
		reg.Register(&c)
	}
	return reg, nil
}
