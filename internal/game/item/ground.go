package item

// GroundPile holds items dropped on the battlefield of one encounter:
// overflow from full inventories, diverted contested drops, and gear
// stripped from dead PvP combatants. It is not safe for concurrent use;
// the owning session serialises access.
type GroundPile struct {
	items []Instance
}

// NewGroundPile creates an empty pile.
func NewGroundPile() *GroundPile {
	return &GroundPile{}
}

// Drop places inst on the ground.
func (g *GroundPile) Drop(inst Instance) {
	g.items = append(g.items, inst)
}

// DropAll places every instance on the ground in order.
func (g *GroundPile) DropAll(insts []Instance) {
	g.items = append(g.items, insts...)
}

// Take removes and returns the instance with the given id.
// Returns false when not present; the pile is unchanged.
func (g *GroundPile) Take(instanceID string) (Instance, bool) {
	for i, inst := range g.items {
		if inst.InstanceID == instanceID {
			g.items = append(g.items[:i], g.items[i+1:]...)
			return inst, true
		}
	}
	return Instance{}, false
}

// Items returns a copy of the pile contents in drop order.
func (g *GroundPile) Items() []Instance {
	out := make([]Instance, len(g.items))
	copy(out, g.items)
	return out
}

// Len returns the number of items on the ground.
func (g *GroundPile) Len() int { return len(g.items) }
