package item

import (
	"fmt"

	"github.com/google/uuid"
)

// Instance is a concrete copy of an item carried, equipped, or dropped.
type Instance struct {
	InstanceID string
	DefID      string
	Quantity   int
}

// NewInstance mints an Instance of the given def with a fresh instance id.
//
// Precondition: quantity > 0.
func NewInstance(defID string, quantity int) Instance {
	return Instance{
		InstanceID: uuid.New().String(),
		DefID:      defID,
		Quantity:   quantity,
	}
}

// ErrInventoryFull is returned when an Add would exceed inventory capacity.
var ErrInventoryFull = fmt.Errorf("inventory full")

// Inventory is a slot-limited container. It is not safe for concurrent
// use; the owning session serialises access.
type Inventory struct {
	MaxSlots int
	items    []Instance
}

// NewInventory creates an Inventory with the given slot limit.
//
// Precondition: maxSlots >= 0.
func NewInventory(maxSlots int) *Inventory {
	return &Inventory{MaxSlots: maxSlots}
}

// Add places inst into the inventory.
//
// Postcondition: on ErrInventoryFull, inventory state is unchanged —
// callers divert the item to ground loot.
func (inv *Inventory) Add(inst Instance) error {
	if len(inv.items) >= inv.MaxSlots {
		return ErrInventoryFull
	}
	inv.items = append(inv.items, inst)
	return nil
}

// Remove extracts the instance with the given id.
// Returns false when not present; inventory is unchanged.
func (inv *Inventory) Remove(instanceID string) (Instance, bool) {
	for i, inst := range inv.items {
		if inst.InstanceID == instanceID {
			inv.items = append(inv.items[:i], inv.items[i+1:]...)
			return inst, true
		}
	}
	return Instance{}, false
}

// Items returns a copy of the carried instances in slot order.
func (inv *Inventory) Items() []Instance {
	out := make([]Instance, len(inv.items))
	copy(out, inv.items)
	return out
}

// Len returns the number of occupied slots.
func (inv *Inventory) Len() int { return len(inv.items) }

// Full reports whether no slot remains.
func (inv *Inventory) Full() bool { return len(inv.items) >= inv.MaxSlots }

// DrainAll empties the inventory and returns everything it held.
// Used by the death drop: carried items become lootable by others.
//
// Postcondition: Len() == 0.
func (inv *Inventory) DrainAll() []Instance {
	out := inv.items
	inv.items = nil
	return out
}
