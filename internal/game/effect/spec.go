package effect

import "fmt"

// Spec is the inline wire form of an effect in YAML content: ability
// on-hit debuffs and hostile-card debuffs share it.
type Spec struct {
	Name      string `yaml:"name"`
	Kind      string `yaml:"kind"` // effect kind tag
	Duration  int    `yaml:"duration"`
	Magnitude int    `yaml:"magnitude"`
	Stat      string `yaml:"stat,omitempty"`
}

// Validate checks that the spec names a known kind and is non-empty.
func (s Spec) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("effect spec: name must not be empty")
	}
	if _, err := ParseKind(s.Kind); err != nil {
		return err
	}
	return nil
}

// Effect converts the spec into an applicable effect.
//
// Precondition: the spec must have passed Validate.
func (s Spec) Effect() Effect {
	kind, err := ParseKind(s.Kind)
	if err != nil {
		panic("effect: Spec.Effect called on unvalidated spec: " + err.Error())
	}
	return Effect{
		Name:      s.Name,
		Kind:      kind,
		Remaining: s.Duration,
		Magnitude: s.Magnitude,
		Stat:      s.Stat,
	}
}
