package combat

import "fmt"

// RangeEntry maps an inclusive numeric range to an outcome tag.
type RangeEntry struct {
	Min     int    `yaml:"min"`
	Max     int    `yaml:"max"`
	Outcome string `yaml:"outcome"`
	// Arg carries an outcome-specific payload: the item id for loot
	// tables, the Lua hook name for "special" attack outcomes.
	Arg string `yaml:"arg,omitempty"`
}

// RangeTable is a sorted list of inclusive ranges mapped to outcomes.
// Hostile-card attack tables and loot tables share this mechanism; only
// the outcome vocabulary differs.
type RangeTable []RangeEntry

// Validate checks that the table is sorted, non-overlapping, and that
// every entry has Min <= Max and a non-empty outcome.
//
// Postcondition: Returns nil iff Lookup is well-defined for every roll.
func (t RangeTable) Validate() error {
	prevMax := 0
	for i, e := range t {
		if e.Outcome == "" {
			return fmt.Errorf("range table: entry[%d] must have a non-empty outcome", i)
		}
		if e.Min > e.Max {
			return fmt.Errorf("range table: entry[%d] min (%d) must be <= max (%d)", i, e.Min, e.Max)
		}
		if e.Min <= prevMax {
			return fmt.Errorf("range table: entry[%d] overlaps or is out of order (min %d, previous max %d)", i, e.Min, prevMax)
		}
		prevMax = e.Max
	}
	return nil
}

// Lookup returns the entry whose range contains roll.
// Rolls outside every range return (RangeEntry{}, false); attack tables
// treat that as a miss.
func (t RangeTable) Lookup(roll int) (RangeEntry, bool) {
	for _, e := range t {
		if roll >= e.Min && roll <= e.Max {
			return e, true
		}
	}
	return RangeEntry{}, false
}
