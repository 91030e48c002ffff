package character

import (
	"github.com/nymirith/adventure/internal/game/inventory"
)

// Snapshot is the persisted form of a character: everything that survives a
// session. Transient fields (attack target, cell contents) are not included.
type Snapshot struct {
	Name        string                `json:"name"`
	State       string                `json:"state"`
	X           int                   `json:"x"`
	Z           int                   `json:"z"`
	HP          int                   `json:"hp"`
	ActionTimer int                   `json:"action_timer"`
	Attributes  map[string]*Attribute `json:"attributes"`
	Skills      map[string]*Skill     `json:"skills"`
	Items       []inventory.Item      `json:"items"`
	Prefs       map[string]string     `json:"prefs"`
}

// ToSnapshot captures the character's persistent state.
func (c *Character) ToSnapshot() Snapshot {
	return Snapshot{
		Name:        c.Name,
		State:       c.State.String(),
		X:           c.X,
		Z:           c.Z,
		HP:          c.HP,
		ActionTimer: c.ActionTimer,
		Attributes:  c.Attributes,
		Skills:      c.Skills,
		Items:       c.Inventory.Items(),
		Prefs:       c.Prefs,
	}
}

// FromSnapshot restores a character from persisted state, including its
// session state: a character persisted in the adventure state resumes
// in-world at its stored position without replaying the intro.
//
// Precondition: accountID > 0; instanceID must be non-empty.
func FromSnapshot(accountID int64, instanceID string, snap Snapshot) *Character {
	c := New(accountID, instanceID)
	c.Name = snap.Name
	if snap.State == StateAdventure.String() {
		c.State = StateAdventure
	}
	c.X, c.Z = snap.X, snap.Z
	if snap.HP > 0 {
		c.HP = snap.HP
	}
	c.ActionTimer = snap.ActionTimer
	if len(snap.Attributes) > 0 {
		c.Attributes = snap.Attributes
	}
	if len(snap.Skills) > 0 {
		c.Skills = snap.Skills
	}
	for _, it := range snap.Items {
		// Capacity cannot shrink below persisted contents; drop overflow.
		if err := c.Inventory.Add(it); err != nil {
			break
		}
	}
	if len(snap.Prefs) > 0 {
		c.Prefs = snap.Prefs
	}
	c.MaxHP = c.maxHP()
	if c.HP > c.MaxHP {
		c.HP = c.MaxHP
	}
	return c
}
