package world

import (
	"fmt"
	"strings"

	"github.com/nymirith/adventure/internal/content"
	"github.com/nymirith/adventure/internal/game/character"
	"github.com/nymirith/adventure/internal/game/inventory"
)

// Coord identifies a grid cell.
type Coord struct {
	X, Z int
}

// String returns "(x, z)".
func (c Coord) String() string {
	return fmt.Sprintf("(%d, %d)", c.X, c.Z)
}

// Hostile is a spawned enemy instance resident in one cell.
type Hostile struct {
	ID  string
	Def *content.EnemyDef
	HP  int
	// AttackTimer counts down ticks until the next swing while TargetID
	// is set.
	AttackTimer int
	// TargetID is the character instance id this hostile is fighting, or
	// empty when passive.
	TargetID string
}

// Cell is one grid square: its biome plus the mutable occupants. A Cell
// exists in the directory only while at least one character occupies it.
type Cell struct {
	Coord Coord
	Biome *content.BiomeDef

	Characters  []*character.Character
	Hostiles    []*Hostile
	GroundItems []inventory.Item

	// SpawnTimer counts down ticks until the next spawn check.
	SpawnTimer int
}

// FindCharacter returns the resident character with the given instance id.
func (c *Cell) FindCharacter(instanceID string) *character.Character {
	for _, ch := range c.Characters {
		if ch.InstanceID == instanceID {
			return ch
		}
	}
	return nil
}

// FindHostile returns the ordinal-th hostile (1-based) whose name or
// template id matches name case-insensitively.
func (c *Cell) FindHostile(name string, ordinal int) *Hostile {
	if ordinal < 1 {
		return nil
	}
	seen := 0
	for _, h := range c.Hostiles {
		if !strings.EqualFold(h.Def.Name, name) && !strings.EqualFold(h.Def.ID, name) {
			continue
		}
		seen++
		if seen == ordinal {
			return h
		}
	}
	return nil
}

// HostileByID returns the hostile with the given instance id.
func (c *Cell) HostileByID(id string) *Hostile {
	for _, h := range c.Hostiles {
		if h.ID == id {
			return h
		}
	}
	return nil
}

// HostileNames returns the distinct lowercase hostile names present, in
// first-seen order, for completion.
func (c *Cell) HostileNames() []string {
	var names []string
	seen := make(map[string]bool)
	for _, h := range c.Hostiles {
		n := strings.ToLower(h.Def.Name)
		if !seen[n] {
			seen[n] = true
			names = append(names, n)
		}
	}
	return names
}

// Broadcast notifies every resident character except the one with instance
// id `except` (pass "" to include everyone).
func (c *Cell) Broadcast(kind, text, except string) {
	for _, ch := range c.Characters {
		if ch.InstanceID == except {
			continue
		}
		ch.Notify(kind, text)
	}
}

func (c *Cell) removeCharacter(instanceID string) bool {
	for idx, ch := range c.Characters {
		if ch.InstanceID == instanceID {
			c.Characters = append(c.Characters[:idx], c.Characters[idx+1:]...)
			return true
		}
	}
	return false
}

func (c *Cell) removeHostile(id string) bool {
	for idx, h := range c.Hostiles {
		if h.ID == id {
			c.Hostiles = append(c.Hostiles[:idx], c.Hostiles[idx+1:]...)
			return true
		}
	}
	return false
}
