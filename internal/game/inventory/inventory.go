// Package inventory provides the slot-bounded item container carried by
// characters, and the item instances that occupy it.
package inventory

import (
	"fmt"
	"sort"
	"strings"
)

// Item is a concrete instance of an item definition. Quality is optional
// flavor recorded at acquisition time (e.g. "good" sagewort).
type Item struct {
	DefID   string `json:"def_id"`
	Name    string `json:"name"`
	Quality string `json:"quality,omitempty"`
	Slots   int    `json:"slots"`
}

// Label returns the display name including quality, e.g. "good Sagewort".
func (i Item) Label() string {
	if i.Quality == "" {
		return i.Name
	}
	return i.Quality + " " + i.Name
}

// Inventory is a container bounded by a fixed slot capacity. Each item
// occupies Slots slots; there is no stacking.
type Inventory struct {
	capacity int
	items    []Item
}

// New creates an Inventory with the given slot capacity.
//
// Precondition: capacity >= 0.
// Postcondition: Returned Inventory is empty with the specified capacity.
func New(capacity int) *Inventory {
	return &Inventory{capacity: capacity}
}

// Capacity returns the total slot capacity.
func (inv *Inventory) Capacity() int { return inv.capacity }

// SlotsTaken returns the number of occupied slots.
func (inv *Inventory) SlotsTaken() int {
	taken := 0
	for _, it := range inv.items {
		taken += it.Slots
	}
	return taken
}

// FreeSlots returns the number of unoccupied slots.
func (inv *Inventory) FreeSlots() int {
	return inv.capacity - inv.SlotsTaken()
}

// Items returns a copy of the contained items in acquisition order.
func (inv *Inventory) Items() []Item {
	out := make([]Item, len(inv.items))
	copy(out, inv.items)
	return out
}

// Add places the item into the inventory.
//
// Precondition: item.Slots >= 1.
// Postcondition: On success the item is appended; if the item does not fit,
// an error is returned and the inventory is unchanged.
func (inv *Inventory) Add(item Item) error {
	if item.Slots < 1 {
		return fmt.Errorf("inventory: item %q has invalid slot size %d", item.Name, item.Slots)
	}
	if inv.SlotsTaken()+item.Slots > inv.capacity {
		return fmt.Errorf("inventory: no room for %s (%d slots, %d free)", item.Label(), item.Slots, inv.FreeSlots())
	}
	inv.items = append(inv.items, item)
	return nil
}

// Remove removes and returns the ordinal-th item (1-based) whose name or
// definition id matches name case-insensitively.
//
// Precondition: ordinal >= 1.
// Postcondition: Returns the removed item, or an error leaving the inventory
// unchanged when no such item exists.
func (inv *Inventory) Remove(name string, ordinal int) (Item, error) {
	if ordinal < 1 {
		return Item{}, fmt.Errorf("inventory: ordinal must be >= 1, got %d", ordinal)
	}
	seen := 0
	for idx, it := range inv.items {
		if !matches(it, name) {
			continue
		}
		seen++
		if seen == ordinal {
			inv.items = append(inv.items[:idx], inv.items[idx+1:]...)
			return it, nil
		}
	}
	if seen == 0 {
		return Item{}, fmt.Errorf("inventory: no %q carried", name)
	}
	return Item{}, fmt.Errorf("inventory: only %d of %q carried", seen, name)
}

// Clear removes every item.
func (inv *Inventory) Clear() {
	inv.items = nil
}

// Names returns the distinct item names carried, sorted, for completion.
func (inv *Inventory) Names() []string {
	set := make(map[string]bool, len(inv.items))
	for _, it := range inv.items {
		set[strings.ToLower(it.Name)] = true
	}
	names := make([]string, 0, len(set))
	for n := range set {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func matches(it Item, name string) bool {
	return strings.EqualFold(it.Name, name) || strings.EqualFold(it.DefID, name)
}
