// Package character defines the player character domain model: session
// state, position, attributes and skills, inventory, and the action state
// machine advanced by the world tick.
package character

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/nymirith/adventure/internal/game/inventory"
)

// State is the session state gating which command groups apply.
type State int

const (
	// StateIntro is the pre-world state: the character has connected but
	// not yet entered the world.
	StateIntro State = iota
	// StateAdventure is the in-world state.
	StateAdventure
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateIntro:
		return "intro"
	case StateAdventure:
		return "adventure"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Action is the character's action-in-progress.
type Action int

const (
	ActionNone Action = iota
	ActionScavenging
	ActionAttacking
)

// String returns the lowercase action name.
func (a Action) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionScavenging:
		return "scavenging"
	case ActionAttacking:
		return "attacking"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// Action cadences, in ticks between effect resolutions.
const (
	ScavengeCadence = 5
	AttackCadence   = 3
)

// MaxNameLength bounds character names entered via begin.
const MaxNameLength = 12

// DefaultCapacity is the inventory slot capacity of a new character.
const DefaultCapacity = 20

// ErrSameAction is returned when a character sets the action it is
// already performing.
var ErrSameAction = errors.New("already performing that action")

// Message kinds delivered through a Sink. These match the outbound wire
// envelope types.
const (
	MsgGame = "game"
	MsgChat = "chat"
)

// Sink receives outbound messages for a character's connection. A nil sink
// is legal while the character is in the disconnect grace window.
type Sink interface {
	Send(kind, text string)
}

// Attribute is a leveled stat with fractional progress toward the next level.
type Attribute struct {
	Level    int     `json:"level"`
	Progress float64 `json:"progress"`
}

// Skill is a leveled proficiency with experience toward the next level.
type Skill struct {
	Level int `json:"level"`
	XP    int `json:"xp"`
}

// Character is a connected (or grace-held) player character. It is owned by
// its session; concurrent access is serialized by the engine's world lock.
type Character struct {
	AccountID int64
	// InstanceID is unique per connection epoch, regenerated on fresh
	// connects but preserved across a grace-window reconnect.
	InstanceID string

	Name  string
	State State
	X, Z  int

	Action      Action
	ActionTimer int
	// TargetID is the hostile instance id while Action is ActionAttacking.
	TargetID string

	Attributes map[string]*Attribute
	Skills     map[string]*Skill
	Inventory  *inventory.Inventory
	HP, MaxHP  int

	// Prefs are client-visible options set via the set command.
	Prefs map[string]string

	sink Sink
}

// New creates a character in the intro state with default attributes.
//
// Precondition: accountID > 0; instanceID must be non-empty.
// Postcondition: Returns a character with full hit points and an empty inventory.
func New(accountID int64, instanceID string) *Character {
	c := &Character{
		AccountID:  accountID,
		InstanceID: instanceID,
		State:      StateIntro,
		Attributes: map[string]*Attribute{
			"constitution": {Level: 1},
			"strength":     {Level: 1},
			"dexterity":    {Level: 1},
			"magic":        {Level: 1},
		},
		Skills:    map[string]*Skill{},
		Inventory: inventory.New(DefaultCapacity),
		Prefs: map[string]string{
			"input":         "command",
			"scroll":        "on",
			"map_on_survey": "on",
		},
	}
	c.MaxHP = c.maxHP()
	c.HP = c.MaxHP
	return c
}

func (c *Character) maxHP() int {
	con := 1
	if a, ok := c.Attributes["constitution"]; ok {
		con = a.Level
	}
	return 10 + 2*con
}

// AttachSink connects an outbound message sink, replacing any previous one.
func (c *Character) AttachSink(s Sink) { c.sink = s }

// DetachSink disconnects the outbound message sink. Subsequent notifications
// are dropped.
func (c *Character) DetachSink() { c.sink = nil }

// Notify sends a message of the given kind to the character's connection,
// if one is attached.
func (c *Character) Notify(kind, text string) {
	if c.sink != nil {
		c.sink.Send(kind, text)
	}
}

// ValidateName checks a begin name for length and content.
//
// Postcondition: Returns nil iff name is 1..MaxNameLength visible characters
// without spaces.
func ValidateName(name string) error {
	if name == "" {
		return errors.New("name must not be empty")
	}
	if len(name) > MaxNameLength {
		return fmt.Errorf("name must be at most %d characters", MaxNameLength)
	}
	if strings.ContainsAny(name, " \t") {
		return errors.New("name must not contain spaces")
	}
	return nil
}

// EnterWorld transitions the character into the adventure state at the
// given position.
//
// Precondition: The character must be in the intro state.
func (c *Character) EnterWorld(name string, x, z int) error {
	if c.State != StateIntro {
		return errors.New("already in the world")
	}
	if err := ValidateName(name); err != nil {
		return err
	}
	c.Name = name
	c.X, c.Z = x, z
	c.State = StateAdventure
	return nil
}

// StartScavenging sets the scavenging action.
//
// Postcondition: Returns ErrSameAction if already scavenging; otherwise the
// action timer is reset to the scavenge cadence and any attack target is cleared.
func (c *Character) StartScavenging() error {
	if c.Action == ActionScavenging {
		return ErrSameAction
	}
	c.Action = ActionScavenging
	c.ActionTimer = ScavengeCadence
	c.TargetID = ""
	return nil
}

// StartAttacking sets the attacking action against the given hostile
// instance. Target existence is checked by the caller against the current cell.
//
// Postcondition: Returns ErrSameAction if already attacking the same target.
func (c *Character) StartAttacking(targetID string) error {
	if c.Action == ActionAttacking && c.TargetID == targetID {
		return ErrSameAction
	}
	c.Action = ActionAttacking
	c.ActionTimer = AttackCadence
	c.TargetID = targetID
	return nil
}

// StopAction clears the current action and target.
//
// Postcondition: Returns ErrSameAction if no action was in progress.
func (c *Character) StopAction() error {
	if c.Action == ActionNone {
		return ErrSameAction
	}
	c.Action = ActionNone
	c.ActionTimer = 0
	c.TargetID = ""
	return nil
}

// MaxHit returns the damage ceiling for one swing, derived from the
// character's strength attribute, combat skill, and equipment bonus. An
// untrained combat skill counts as level 1, the level GainSkill starts it
// at, so a fresh character can always land a hit.
func (c *Character) MaxHit(equipBonus int) int {
	strength := 1
	if a, ok := c.Attributes["strength"]; ok {
		strength = a.Level
	}
	skill := 1
	if s, ok := c.Skills["combat"]; ok {
		skill = s.Level
	}
	return MaxHit(strength, skill, equipBonus)
}

// MaxHit computes the swing damage ceiling from raw stat levels.
//
// Postcondition: Result is >= 0 and monotonic in each argument.
func MaxHit(strength, skill, equipBonus int) int {
	if strength < 0 {
		strength = 0
	}
	if skill < 0 {
		skill = 0
	}
	base := math.Pow(float64(strength), 0.3) + math.Pow(float64(skill), 0.3)
	return int(base * (float64(equipBonus) + 16) / 32)
}

// GainSkill grants xp toward the named skill, levelling up when the
// accumulated xp reaches ten times the current level.
//
// Postcondition: Returns true if the skill levelled up.
func (c *Character) GainSkill(name string, xp int) bool {
	s, ok := c.Skills[name]
	if !ok {
		s = &Skill{Level: 1}
		c.Skills[name] = s
	}
	s.XP += xp
	if s.XP >= s.Level*10 {
		s.XP -= s.Level * 10
		s.Level++
		return true
	}
	return false
}

// Die applies death handling: the character is restored to full hit points
// at the origin with inventory and action cleared. Relocation between cells
// is the caller's responsibility.
func (c *Character) Die() {
	c.HP = c.MaxHP
	c.X, c.Z = 0, 0
	c.Inventory.Clear()
	c.Action = ActionNone
	c.ActionTimer = 0
	c.TargetID = ""
}
