package item

import "fmt"

// Slot identifies an equipment position.
type Slot string

const (
	SlotWeapon Slot = "weapon"
	SlotArmor  Slot = "armor"
	SlotShield Slot = "shield"
)

// slotForKind maps an item kind to the slot it occupies.
func slotForKind(kind string) (Slot, bool) {
	switch kind {
	case KindWeapon:
		return SlotWeapon, true
	case KindArmor:
		return SlotArmor, true
	case KindShield:
		return SlotShield, true
	default:
		return "", false
	}
}

// Equipment holds a combatant's equipped gear, one instance per slot.
// It is not safe for concurrent use; the owning session serialises access.
type Equipment struct {
	slots map[Slot]Instance
}

// NewEquipment creates an Equipment with all slots empty.
func NewEquipment() *Equipment {
	return &Equipment{slots: make(map[Slot]Instance)}
}

// Equip places inst into the slot its kind occupies, returning any
// previously equipped instance for that slot.
//
// Precondition: def must be the registered Def for inst.DefID.
// Postcondition: Returns (previous, true) when a swap occurred in-slot.
func (e *Equipment) Equip(inst Instance, def *Def) (Instance, bool, error) {
	slot, ok := slotForKind(def.Kind)
	if !ok {
		return Instance{}, false, fmt.Errorf("item %q (kind %q) is not equippable", def.ID, def.Kind)
	}
	prev, had := e.slots[slot]
	e.slots[slot] = inst
	return prev, had, nil
}

// Equipped returns the instance in the given slot.
func (e *Equipment) Equipped(slot Slot) (Instance, bool) {
	inst, ok := e.slots[slot]
	return inst, ok
}

// Unequip removes and returns the instance in the given slot.
func (e *Equipment) Unequip(slot Slot) (Instance, bool) {
	inst, ok := e.slots[slot]
	if ok {
		delete(e.slots, slot)
	}
	return inst, ok
}

// StripAll empties every slot and returns the removed instances.
// Used by the PvP death drop: equipped gear falls to the ground.
//
// Postcondition: every slot is empty.
func (e *Equipment) StripAll() []Instance {
	out := make([]Instance, 0, len(e.slots))
	for _, slot := range []Slot{SlotWeapon, SlotArmor, SlotShield} {
		if inst, ok := e.slots[slot]; ok {
			out = append(out, inst)
			delete(e.slots, slot)
		}
	}
	return out
}
