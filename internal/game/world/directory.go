package world

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nymirith/adventure/internal/config"
	"github.com/nymirith/adventure/internal/content"
	"github.com/nymirith/adventure/internal/game/character"
	"github.com/nymirith/adventure/internal/game/inventory"
)

// SpawnInterval is the number of ticks between spawn checks in a cell.
const SpawnInterval = 15

// ErrImpassable is returned when movement targets a sea or mountain cell.
var ErrImpassable = errors.New("that way is impassable")

// DefeatFunc resolves the item drops for a defeated enemy template. It may
// be backed by a script hook.
type DefeatFunc func(enemyID string) ([]string, error)

// Directory owns cell existence: it maps coordinates to the currently
// active cells and runs their per-tick simulation.
//
// Directory is not safe for concurrent use. The engine serializes all
// access (command dispatch, tick, session lifecycle) under one world lock.
type Directory struct {
	gen    *Generator
	reg    *content.Registry
	rng    *rand.Rand
	logger *zap.Logger

	spawnCap    int
	spawnChance float64

	cells  map[Coord]*Cell
	defeat DefeatFunc
}

// NewDirectory creates a Directory for the given world configuration.
//
// Precondition: reg must contain definitions for every biome the generator
// produces; rng and logger must be non-nil.
// Postcondition: Returns a Directory with no active cells, or an error if a
// generator biome is missing from the registry.
func NewDirectory(cfg config.WorldConfig, reg *content.Registry, rng *rand.Rand, logger *zap.Logger) (*Directory, error) {
	for _, name := range []string{BiomeSea, BiomeMountain, BiomeForest, BiomePlains} {
		if _, ok := reg.Biome(name); !ok {
			return nil, fmt.Errorf("content registry missing biome %q", name)
		}
	}
	return &Directory{
		gen:         NewGenerator(cfg.Seed),
		reg:         reg,
		rng:         rng,
		logger:      logger,
		spawnCap:    cfg.SpawnCap,
		spawnChance: cfg.SpawnChance,
		cells:       make(map[Coord]*Cell),
	}, nil
}

// SetDefeatFunc installs the drop resolver run when a hostile is defeated.
func (d *Directory) SetDefeatFunc(fn DefeatFunc) { d.defeat = fn }

// Load returns the active cell at (x, z), materializing it if necessary,
// with ch appended to its occupant list. Repeat calls for a resident
// character are idempotent.
//
// Postcondition: The returned cell is active and contains ch exactly once.
func (d *Directory) Load(x, z int, ch *character.Character) *Cell {
	coord := Coord{X: x, Z: z}
	cell, ok := d.cells[coord]
	if !ok {
		cell = d.materialize(coord)
		d.cells[coord] = cell
		d.logger.Debug("cell loaded",
			zap.Int("x", x),
			zap.Int("z", z),
			zap.String("biome", cell.Biome.Name),
			zap.Int("hostiles", len(cell.Hostiles)),
		)
	}
	if cell.FindCharacter(ch.InstanceID) == nil {
		cell.Characters = append(cell.Characters, ch)
	}
	return cell
}

// Unload removes ch from the cell at (x, z). When the last character
// leaves, the cell is dropped from the active set; its contents are not
// preserved and will be regenerated fresh on the next Load.
func (d *Directory) Unload(x, z int, ch *character.Character) {
	coord := Coord{X: x, Z: z}
	cell, ok := d.cells[coord]
	if !ok {
		return
	}
	cell.removeCharacter(ch.InstanceID)
	if len(cell.Characters) == 0 {
		delete(d.cells, coord)
		d.logger.Debug("cell unloaded", zap.Int("x", x), zap.Int("z", z))
	}
}

// Get returns the active cell at (x, z), if any.
func (d *Directory) Get(x, z int) (*Cell, bool) {
	cell, ok := d.cells[Coord{X: x, Z: z}]
	return cell, ok
}

// Peek returns the active cell at (x, z) if present, or a synthesized
// read-only view of the coordinate with its deterministic biome and no
// occupants. Peek never registers a cell.
func (d *Directory) Peek(x, z int) *Cell {
	if cell, ok := d.Get(x, z); ok {
		return cell
	}
	biome, _ := d.reg.Biome(d.gen.BiomeName(x, z))
	return &Cell{Coord: Coord{X: x, Z: z}, Biome: biome}
}

// CellOf returns the active cell the character resides in.
func (d *Directory) CellOf(ch *character.Character) (*Cell, bool) {
	return d.Get(ch.X, ch.Z)
}

// ActiveCount returns the number of active cells.
func (d *Directory) ActiveCount() int { return len(d.cells) }

// Move relocates the character by (dx, dz).
//
// Postcondition: On success the character resides in the returned
// destination cell and has left its previous cell; on ErrImpassable nothing
// changes.
func (d *Directory) Move(ch *character.Character, dx, dz int) (*Cell, error) {
	nx, nz := ch.X+dx, ch.Z+dz
	dest := d.Peek(nx, nz)
	if dest.Biome == nil || !dest.Biome.Passable {
		return nil, ErrImpassable
	}
	oldX, oldZ := ch.X, ch.Z
	cell := d.Load(nx, nz, ch)
	d.Unload(oldX, oldZ, ch)
	ch.X, ch.Z = nx, nz
	return cell, nil
}

// Enter places the character in the world at its current position.
func (d *Directory) Enter(ch *character.Character) *Cell {
	return d.Load(ch.X, ch.Z, ch)
}

// Leave removes the character from its current cell.
func (d *Directory) Leave(ch *character.Character) {
	d.Unload(ch.X, ch.Z, ch)
}

// materialize generates a new cell: deterministic biome, then a random
// initial hostile population up to the spawn cap.
func (d *Directory) materialize(coord Coord) *Cell {
	biome, _ := d.reg.Biome(d.gen.BiomeName(coord.X, coord.Z))
	cell := &Cell{
		Coord:      coord,
		Biome:      biome,
		SpawnTimer: SpawnInterval,
	}
	if len(biome.SpawnTable) > 0 && d.spawnCap > 0 {
		for i, n := 0, d.rng.Intn(d.spawnCap+1); i < n; i++ {
			d.addHostile(cell)
		}
	}
	return cell
}

func (d *Directory) addHostile(cell *Cell) *Hostile {
	def := d.reg.PickSpawn(cell.Biome, d.rng)
	if def == nil {
		return nil
	}
	h := &Hostile{
		ID:          uuid.NewString(),
		Def:         def,
		HP:          def.MaxHP,
		AttackTimer: def.AttackTimer,
	}
	cell.Hostiles = append(cell.Hostiles, h)
	return h
}

// TickAll advances every active cell by one simulation step.
func (d *Directory) TickAll() {
	// Snapshot: stepping a cell may load or unload cells (death relocation).
	active := make([]*Cell, 0, len(d.cells))
	for _, cell := range d.cells {
		active = append(active, cell)
	}
	for _, cell := range active {
		d.tickCell(cell)
	}
}

func (d *Directory) tickCell(cell *Cell) {
	if cell.SpawnTimer > 0 {
		cell.SpawnTimer--
	} else {
		if len(cell.Characters) > 0 && len(cell.Hostiles) < d.spawnCap && d.rng.Float64() < d.spawnChance {
			if h := d.addHostile(cell); h != nil {
				cell.Broadcast(character.MsgGame, fmt.Sprintf("A %s prowls into view.", h.Def.Name), "")
			}
		}
		cell.SpawnTimer = SpawnInterval
	}

	hostiles := make([]*Hostile, len(cell.Hostiles))
	copy(hostiles, cell.Hostiles)
	for _, h := range hostiles {
		d.stepHostile(cell, h)
	}

	chars := make([]*character.Character, len(cell.Characters))
	copy(chars, cell.Characters)
	for _, ch := range chars {
		d.stepCharacter(cell, ch)
	}
}

// stepHostile advances one hostile: passive hostiles do nothing; engaged
// hostiles count down their attack timer and swing at their target.
func (d *Directory) stepHostile(cell *Cell, h *Hostile) {
	if h.TargetID == "" || h.HP <= 0 {
		return
	}
	if h.AttackTimer > 0 {
		h.AttackTimer--
		return
	}
	h.AttackTimer = h.Def.AttackTimer

	target := cell.FindCharacter(h.TargetID)
	if target == nil {
		h.TargetID = ""
		return
	}
	target.HP -= h.Def.Damage
	target.Notify(character.MsgGame,
		fmt.Sprintf("The %s hits you for %d.", h.Def.Name, h.Def.Damage))
	if target.HP <= 0 {
		d.killCharacter(cell, target)
	}
}

// stepCharacter advances one character's action-in-progress.
func (d *Directory) stepCharacter(cell *Cell, ch *character.Character) {
	if ch.Action == character.ActionNone {
		return
	}
	if ch.ActionTimer > 0 {
		ch.ActionTimer--
		return
	}
	switch ch.Action {
	case character.ActionScavenging:
		ch.ActionTimer = character.ScavengeCadence
		d.resolveScavenge(cell, ch)
	case character.ActionAttacking:
		ch.ActionTimer = character.AttackCadence
		d.resolveAttack(cell, ch)
	}
}

func (d *Directory) resolveScavenge(cell *Cell, ch *character.Character) {
	if d.rng.Float64() >= cell.Biome.ScavengeChance {
		ch.Notify(character.MsgGame, "You rummage around but find nothing.")
		return
	}
	def := d.reg.PickScavenge(cell.Biome, d.rng)
	if def == nil {
		ch.Notify(character.MsgGame, "There is nothing worth taking here.")
		return
	}
	item := inventory.Item{DefID: def.ID, Name: def.Name, Slots: def.Slots}
	if len(def.Qualities) > 0 {
		item.Quality = def.Qualities[d.rng.Intn(len(def.Qualities))]
	}
	if err := ch.Inventory.Add(item); err != nil {
		ch.Notify(character.MsgGame, "Your pack is full. You stop scavenging.")
		_ = ch.StopAction()
		return
	}
	ch.Notify(character.MsgGame,
		fmt.Sprintf("You find %s. (%d slots free)", article(item.Label()), ch.Inventory.FreeSlots()))
}

func (d *Directory) resolveAttack(cell *Cell, ch *character.Character) {
	h := cell.HostileByID(ch.TargetID)
	if h == nil {
		ch.Notify(character.MsgGame, "Your target is gone.")
		_ = ch.StopAction()
		return
	}
	// Swinging back provokes the hostile even on a miss.
	h.TargetID = ch.InstanceID

	dmg := d.rng.Intn(ch.MaxHit(0) + 1)
	if dmg == 0 {
		ch.Notify(character.MsgGame, fmt.Sprintf("You swing at the %s and miss.", h.Def.Name))
		return
	}
	h.HP -= dmg
	ch.Notify(character.MsgGame, fmt.Sprintf("You hit the %s for %d.", h.Def.Name, dmg))
	if ch.GainSkill("combat", 1) {
		ch.Notify(character.MsgGame,
			fmt.Sprintf("Your combat skill rises to %d.", ch.Skills["combat"].Level))
	}
	if h.HP <= 0 {
		d.defeatHostile(cell, h)
	}
}

// defeatHostile removes the hostile, resolves its drops onto the ground,
// and clears the action of every character that was attacking it.
func (d *Directory) defeatHostile(cell *Cell, h *Hostile) {
	cell.removeHostile(h.ID)
	cell.Broadcast(character.MsgGame, fmt.Sprintf("The %s collapses.", h.Def.Name), "")

	drops := h.Def.Drops
	if d.defeat != nil {
		hookDrops, err := d.defeat(h.Def.ID)
		if err != nil {
			d.logger.Warn("defeat hook failed",
				zap.String("enemy", h.Def.ID),
				zap.Error(err),
			)
		} else if hookDrops != nil {
			drops = hookDrops
		}
	}
	for _, id := range drops {
		def, ok := d.reg.Item(id)
		if !ok {
			d.logger.Warn("defeat drop references unknown item",
				zap.String("enemy", h.Def.ID),
				zap.String("item", id),
			)
			continue
		}
		cell.GroundItems = append(cell.GroundItems, inventory.Item{DefID: def.ID, Name: def.Name, Slots: def.Slots})
	}

	for _, ch := range cell.Characters {
		if ch.Action == character.ActionAttacking && ch.TargetID == h.ID {
			_ = ch.StopAction()
		}
	}
}

// killCharacter handles a character death: clear hostile aggro, relocate to
// the origin with a reset body, and keep the session alive.
func (d *Directory) killCharacter(cell *Cell, ch *character.Character) {
	ch.Notify(character.MsgGame, "You succumb to your wounds. The world goes dark...")
	for _, h := range cell.Hostiles {
		if h.TargetID == ch.InstanceID {
			h.TargetID = ""
		}
	}
	d.Unload(cell.Coord.X, cell.Coord.Z, ch)
	ch.Die()
	d.Load(0, 0, ch)
	ch.Notify(character.MsgGame, "You wake at the world's heart, whole but empty-handed.")
}

func article(noun string) string {
	if noun == "" {
		return noun
	}
	switch noun[0] {
	case 'a', 'e', 'i', 'o', 'u', 'A', 'E', 'I', 'O', 'U':
		return "an " + noun
	}
	return "a " + noun
}
