package world

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"pgregory.net/rapid"

	"github.com/nymirith/adventure/internal/config"
	"github.com/nymirith/adventure/internal/content"
	"github.com/nymirith/adventure/internal/game/character"
)

func testRegistry(t testing.TB) *content.Registry {
	t.Helper()
	biomes := []*content.BiomeDef{
		{
			Name: BiomePlains, Glyph: ".", Passable: true,
			Descriptions:   []string{"Open grassland."},
			SpawnTable:     []content.SpawnEntry{{Enemy: "rabbit", Weight: 1}},
			ScavengeTable:  []content.ScavengeEntry{{Item: "sagewort", Weight: 1}},
			ScavengeChance: 1.0,
		},
		{
			Name: BiomeForest, Glyph: "T", Passable: true,
			Descriptions:   []string{"Dense trees."},
			SpawnTable:     []content.SpawnEntry{{Enemy: "rabbit", Weight: 2}, {Enemy: "wolf", Weight: 1}},
			ScavengeTable:  []content.ScavengeEntry{{Item: "sagewort", Weight: 1}},
			ScavengeChance: 1.0,
		},
		{Name: BiomeSea, Glyph: "~", Passable: false},
		{Name: BiomeMountain, Glyph: "^", Passable: false},
	}
	enemies := []*content.EnemyDef{
		{ID: "rabbit", Name: "Rabbit", MaxHP: 4, AttackTimer: 3, Damage: 1, Drops: []string{"rabbit_corpse"}},
		{ID: "wolf", Name: "Wolf", MaxHP: 8, AttackTimer: 3, Damage: 1},
	}
	items := []*content.ItemDef{
		{ID: "sagewort", Name: "Sagewort", Slots: 1, Qualities: []string{"poor", "average", "good", "excellent"}},
		{ID: "rabbit_corpse", Name: "Rabbit corpse", Slots: 2},
	}
	reg, err := content.NewRegistry(biomes, enemies, items)
	require.NoError(t, err)
	return reg
}

func testDirectory(t testing.TB, seed int64) *Directory {
	t.Helper()
	cfg := config.WorldConfig{
		Seed:        seed,
		SpawnCap:    4,
		SpawnChance: 0.2,
	}
	d, err := NewDirectory(cfg, testRegistry(t), rand.New(rand.NewSource(seed)), zaptest.NewLogger(t))
	require.NoError(t, err)
	return d
}

// passableCoord scans for a coordinate classified as passable terrain.
func passableCoord(t testing.TB, d *Directory) (int, int) {
	t.Helper()
	for x := 0; x < 200; x++ {
		for z := 0; z < 200; z++ {
			if d.Peek(x, z).Biome.Passable {
				return x, z
			}
		}
	}
	t.Fatal("no passable coordinate found in scan range")
	return 0, 0
}

func newChar(id string) *character.Character {
	return character.New(1, id)
}

func TestLoadUnloadOccupancy(t *testing.T) {
	d := testDirectory(t, 42)
	a := newChar("a")
	b := newChar("b")

	cellA := d.Load(0, 0, a)
	cellB := d.Load(0, 0, b)
	assert.Same(t, cellA, cellB)
	assert.Len(t, cellA.Characters, 2)
	assert.Equal(t, 1, d.ActiveCount())

	// Idempotent repeat load.
	d.Load(0, 0, a)
	assert.Len(t, cellA.Characters, 2)

	d.Unload(0, 0, a)
	_, active := d.Get(0, 0)
	assert.True(t, active, "cell must stay active while b remains")
	assert.Nil(t, cellA.FindCharacter("a"))

	d.Unload(0, 0, b)
	_, active = d.Get(0, 0)
	assert.False(t, active, "cell must be dropped when last occupant leaves")
	assert.Equal(t, 0, d.ActiveCount())
}

func TestPeekDoesNotRegister(t *testing.T) {
	d := testDirectory(t, 42)
	cell := d.Peek(5, 5)
	require.NotNil(t, cell.Biome)
	assert.Equal(t, 0, d.ActiveCount())
	assert.Empty(t, cell.Hostiles)
}

func TestCellContentRegeneratedFreshAfterReload(t *testing.T) {
	d := testDirectory(t, 42)
	a := newChar("a")

	cell := d.Load(0, 0, a)
	cell.GroundItems = append(cell.GroundItems, d.Peek(0, 0).GroundItems...)
	cell.Hostiles = nil // deplete

	d.Unload(0, 0, a)
	fresh := d.Load(0, 0, a)
	assert.NotSame(t, cell, fresh, "reloaded cell must be a fresh object")
}

func TestMoveImpassable(t *testing.T) {
	d := testDirectory(t, 42)
	a := newChar("a")
	x, z := passableCoord(t, d)

	// Find an impassable neighbor, if one exists nearby.
	var dx, dz int
	found := false
	for _, dir := range [][2]int{{0, -1}, {0, 1}, {-1, 0}, {1, 0}} {
		if !d.Peek(x+dir[0], z+dir[1]).Biome.Passable {
			dx, dz = dir[0], dir[1]
			found = true
			break
		}
	}
	if !found {
		t.Skip("no impassable neighbor near scanned coordinate")
	}

	a.X, a.Z = x, z
	d.Enter(a)
	_, err := d.Move(a, dx, dz)
	assert.ErrorIs(t, err, ErrImpassable)
	assert.Equal(t, x, a.X)
	assert.Equal(t, z, a.Z)
}

func TestMoveRelocatesOccupancy(t *testing.T) {
	d := testDirectory(t, 42)
	a := newChar("a")
	x, z := passableCoord(t, d)

	var dx, dz int
	found := false
	for _, dir := range [][2]int{{0, -1}, {0, 1}, {-1, 0}, {1, 0}} {
		if d.Peek(x+dir[0], z+dir[1]).Biome.Passable {
			dx, dz = dir[0], dir[1]
			found = true
			break
		}
	}
	require.True(t, found, "expected at least one passable neighbor")

	a.X, a.Z = x, z
	d.Enter(a)
	dest, err := d.Move(a, dx, dz)
	require.NoError(t, err)

	assert.Equal(t, x+dx, a.X)
	assert.Equal(t, z+dz, a.Z)
	assert.NotNil(t, dest.FindCharacter("a"))
	_, stillActive := d.Get(x, z)
	assert.False(t, stillActive, "origin cell should unload when its last occupant moves away")
}

func TestScavengeForcedSuccessAddsItem(t *testing.T) {
	d := testDirectory(t, 42)
	a := newChar("a")
	x, z := passableCoord(t, d)
	a.X, a.Z = x, z
	cell := d.Enter(a)

	require.NoError(t, a.StartScavenging())
	a.ActionTimer = 0
	freeBefore := a.Inventory.FreeSlots()

	d.stepCharacter(cell, a)

	items := a.Inventory.Items()
	require.Len(t, items, 1, "scavenge chance 1.0 must yield an item")
	assert.Equal(t, "sagewort", items[0].DefID)
	assert.NotEmpty(t, items[0].Quality)
	assert.Equal(t, freeBefore-1, a.Inventory.FreeSlots())
	assert.Equal(t, character.ScavengeCadence, a.ActionTimer)
}

func TestAttackDefeatsOneHitPointHostile(t *testing.T) {
	// A fresh character's hit ceiling is 1, so every swing has even odds.
	d := testDirectory(t, 42)
	a := newChar("a")
	x, z := passableCoord(t, d)
	a.X, a.Z = x, z
	cell := d.Enter(a)

	rabbit, _ := d.reg.Enemy("rabbit")
	h := &Hostile{ID: "h-1", Def: rabbit, HP: 1, AttackTimer: rabbit.AttackTimer}
	cell.Hostiles = append(cell.Hostiles, h)

	require.NoError(t, a.StartAttacking("h-1"))
	a.ActionTimer = 0

	// Step until the swing lands; misses reset nothing but the timer.
	for i := 0; i < 100 && len(cell.Hostiles) > 0; i++ {
		a.ActionTimer = 0
		d.stepCharacter(cell, a)
	}

	assert.Empty(t, cell.Hostiles, "one-hit-point hostile should fall to a single landed swing")
	assert.Equal(t, character.ActionNone, a.Action, "defeat must clear the action")
	assert.Contains(t, a.Skills, "combat", "a landed hit grants combat experience")
	require.NotEmpty(t, cell.GroundItems, "rabbit drops its corpse")
	assert.Equal(t, "rabbit_corpse", cell.GroundItems[0].DefID)
}

func TestAttackProvokesRetaliation(t *testing.T) {
	d := testDirectory(t, 42)
	a := newChar("a")
	x, z := passableCoord(t, d)
	a.X, a.Z = x, z
	cell := d.Enter(a)

	wolf, _ := d.reg.Enemy("wolf")
	h := &Hostile{ID: "h-1", Def: wolf, HP: wolf.MaxHP, AttackTimer: wolf.AttackTimer}
	cell.Hostiles = append(cell.Hostiles, h)

	require.NoError(t, a.StartAttacking("h-1"))
	a.ActionTimer = 0
	d.stepCharacter(cell, a)

	assert.Equal(t, "a", h.TargetID, "attacked hostile must engage its attacker")

	hpBefore := a.HP
	for i := 0; i <= wolf.AttackTimer; i++ {
		d.stepHostile(cell, h)
	}
	assert.Equal(t, hpBefore-wolf.Damage, a.HP)
}

func TestHostileKillsCharacterResetsToOrigin(t *testing.T) {
	d := testDirectory(t, 42)
	a := newChar("a")
	x, z := passableCoord(t, d)
	a.X, a.Z = x, z
	cell := d.Enter(a)

	wolf, _ := d.reg.Enemy("wolf")
	h := &Hostile{ID: "h-1", Def: wolf, HP: wolf.MaxHP, AttackTimer: 0, TargetID: "a"}
	cell.Hostiles = append(cell.Hostiles, h)
	a.HP = 1

	d.stepHostile(cell, h)

	assert.Equal(t, 0, a.X)
	assert.Equal(t, 0, a.Z)
	assert.Equal(t, a.MaxHP, a.HP)
	origin, ok := d.Get(0, 0)
	require.True(t, ok)
	assert.NotNil(t, origin.FindCharacter("a"))
	if x != 0 || z != 0 {
		_, stillActive := d.Get(x, z)
		assert.False(t, stillActive, "death site should unload when empty")
	}
}

func TestDefeatHookOverridesDrops(t *testing.T) {
	d := testDirectory(t, 42)
	d.SetDefeatFunc(func(enemyID string) ([]string, error) {
		return []string{"sagewort"}, nil
	})
	a := newChar("a")
	x, z := passableCoord(t, d)
	a.X, a.Z = x, z
	cell := d.Enter(a)

	rabbit, _ := d.reg.Enemy("rabbit")
	h := &Hostile{ID: "h-1", Def: rabbit, HP: 0, AttackTimer: 1}
	cell.Hostiles = append(cell.Hostiles, h)
	d.defeatHostile(cell, h)

	require.Len(t, cell.GroundItems, 1)
	assert.Equal(t, "sagewort", cell.GroundItems[0].DefID)
}

func TestTickSpawnsWhenTimerExpires(t *testing.T) {
	cfg := config.WorldConfig{Seed: 42, SpawnCap: 4, SpawnChance: 1.0}
	d, err := NewDirectory(cfg, testRegistry(t), rand.New(rand.NewSource(42)), zaptest.NewLogger(t))
	require.NoError(t, err)

	a := newChar("a")
	x, z := passableCoord(t, d)
	a.X, a.Z = x, z
	cell := d.Enter(a)
	cell.Hostiles = nil
	cell.SpawnTimer = 0

	d.tickCell(cell)

	assert.Len(t, cell.Hostiles, 1, "spawn chance 1.0 with expired timer must spawn")
	assert.Equal(t, SpawnInterval, cell.SpawnTimer)
}

func TestTickDoesNotSpawnInEmptyCell(t *testing.T) {
	cfg := config.WorldConfig{Seed: 42, SpawnCap: 4, SpawnChance: 1.0}
	d, err := NewDirectory(cfg, testRegistry(t), rand.New(rand.NewSource(42)), zaptest.NewLogger(t))
	require.NoError(t, err)

	a := newChar("a")
	x, z := passableCoord(t, d)
	a.X, a.Z = x, z
	cell := d.Enter(a)
	cell.Characters = nil
	cell.Hostiles = nil
	cell.SpawnTimer = 0

	d.tickCell(cell)
	assert.Empty(t, cell.Hostiles, "spawns are occupant-gated")
}

// Property-based tests

func TestPropertyOccupancyIffActive(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		d := testDirectory(t, 42)
		chars := map[string]*character.Character{}
		resident := map[string]bool{}

		n := rapid.IntRange(1, 40).Draw(rt, "ops")
		for i := 0; i < n; i++ {
			id := rapid.SampledFrom([]string{"a", "b", "c"}).Draw(rt, "char")
			ch, ok := chars[id]
			if !ok {
				ch = newChar(id)
				chars[id] = ch
			}
			if rapid.Bool().Draw(rt, "load") {
				d.Load(0, 0, ch)
				resident[id] = true
			} else {
				d.Unload(0, 0, ch)
				delete(resident, id)
			}

			cell, active := d.Get(0, 0)
			if active != (len(resident) > 0) {
				rt.Fatalf("active=%v but %d residents", active, len(resident))
			}
			if active && len(cell.Characters) != len(resident) {
				rt.Fatalf("occupant list %d != resident set %d", len(cell.Characters), len(resident))
			}
		}
	})
}
