package gameserver

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/nymirith/adventure/internal/config"
	"github.com/nymirith/adventure/internal/content"
	"github.com/nymirith/adventure/internal/game/character"
	"github.com/nymirith/adventure/internal/game/session"
	"github.com/nymirith/adventure/internal/game/world"
	"github.com/nymirith/adventure/internal/storage/postgres"
)

// memStore is an in-memory SnapshotStore.
type memStore struct {
	mu    sync.Mutex
	snaps map[int64]character.Snapshot
}

func newMemStore() *memStore {
	return &memStore{snaps: make(map[int64]character.Snapshot)}
}

func (m *memStore) Load(_ context.Context, accountID int64) (character.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap, ok := m.snaps[accountID]
	if !ok {
		return character.Snapshot{}, postgres.ErrSnapshotNotFound
	}
	return snap, nil
}

func (m *memStore) Save(_ context.Context, accountID int64, snap character.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snaps[accountID] = snap
	return nil
}

type sinkRecorder struct {
	mu   sync.Mutex
	msgs []string
}

func (r *sinkRecorder) Send(kind, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, kind+": "+text)
}

func (r *sinkRecorder) joined() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return strings.Join(r.msgs, "\n")
}

func (r *sinkRecorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = nil
}

func engineContent(t testing.TB) *content.Registry {
	t.Helper()
	biomes := []*content.BiomeDef{
		{
			Name: world.BiomePlains, Glyph: ".", Passable: true,
			Descriptions:   []string{"Open grassland."},
			SpawnTable:     []content.SpawnEntry{{Enemy: "rabbit", Weight: 1}},
			ScavengeTable:  []content.ScavengeEntry{{Item: "sagewort", Weight: 1}},
			ScavengeChance: 1.0,
		},
		{
			Name: world.BiomeForest, Glyph: "T", Passable: true,
			Descriptions:   []string{"Dense trees."},
			SpawnTable:     []content.SpawnEntry{{Enemy: "rabbit", Weight: 1}},
			ScavengeTable:  []content.ScavengeEntry{{Item: "sagewort", Weight: 1}},
			ScavengeChance: 1.0,
		},
		{Name: world.BiomeSea, Glyph: "~"},
		{Name: world.BiomeMountain, Glyph: "^"},
	}
	enemies := []*content.EnemyDef{
		{ID: "rabbit", Name: "Rabbit", MaxHP: 4, AttackTimer: 3, Damage: 1, Drops: []string{"rabbit_corpse"}},
	}
	items := []*content.ItemDef{
		{ID: "sagewort", Name: "Sagewort", Slots: 1},
		{ID: "rabbit_corpse", Name: "Rabbit corpse", Slots: 2},
	}
	reg, err := content.NewRegistry(biomes, enemies, items)
	require.NoError(t, err)
	return reg
}

func testEngine(t testing.TB, store SnapshotStore) *Engine {
	t.Helper()
	cfg := config.WorldConfig{
		Seed:        7,
		GraceWindow: 30 * time.Second,
		SpawnCap:    0,
	}
	e, err := NewEngine(cfg, engineContent(t), store, nil, rand.New(rand.NewSource(7)), zaptest.NewLogger(t))
	require.NoError(t, err)
	return e
}

// placePassable moves the session's character to scanned passable terrain.
func placePassable(t testing.TB, e *Engine, sess *session.Session) {
	t.Helper()
	for x := 0; x < 200; x++ {
		for z := 0; z < 200; z++ {
			if e.world.Peek(x, z).Biome.Passable {
				sess.Char.X, sess.Char.Z = x, z
				return
			}
		}
	}
	t.Fatal("no passable coordinate found")
}

func TestConnectFreshCharacter(t *testing.T) {
	e := testEngine(t, newMemStore())
	rec := &sinkRecorder{}

	sess, err := e.Connect(context.Background(), 1, "alice", rec)
	require.NoError(t, err)

	assert.Equal(t, character.StateIntro, sess.Char.State)
	assert.Equal(t, 1, e.Sessions().Count())
	assert.Contains(t, rec.joined(), `begin <name>`)
}

func TestEndToEndAdventure(t *testing.T) {
	ctx := context.Background()
	e := testEngine(t, newMemStore())
	rec := &sinkRecorder{}

	sess, err := e.Connect(ctx, 1, "alice", rec)
	require.NoError(t, err)
	placePassable(t, e, sess)

	// Enter the world.
	require.NoError(t, e.HandleLine(sess, "begin Alice"))
	require.Equal(t, character.StateAdventure, sess.Char.State)
	assert.Contains(t, rec.joined(), "Welcome to Nymirith, Alice")

	// Scavenge until the cadence resolves an item.
	rec.reset()
	require.NoError(t, e.HandleLine(sess, "scavenge"))
	for i := 0; i <= character.ScavengeCadence; i++ {
		e.Tick(ctx)
	}
	assert.Contains(t, rec.joined(), "You find")
	assert.Positive(t, sess.Char.Inventory.SlotsTaken())
	require.NoError(t, e.HandleLine(sess, "stop"))

	// Fight a weakened rabbit to the end.
	cell, ok := e.world.CellOf(sess.Char)
	require.True(t, ok)
	rabbit, _ := e.content.Enemy("rabbit")
	tame := *rabbit
	tame.Damage = 0 // misses only cost time, not hit points
	cell.Hostiles = append(cell.Hostiles, &world.Hostile{ID: "h1", Def: &tame, HP: 1})

	// A fresh character's hit ceiling is 1: even odds per swing, one swing
	// every three ticks.
	rec.reset()
	require.NoError(t, e.HandleLine(sess, "attack rabbit"))
	for i := 0; i < 300 && cell.HostileByID("h1") != nil; i++ {
		e.Tick(ctx)
	}
	require.Nil(t, cell.HostileByID("h1"), "rabbit must fall within 300 ticks")
	assert.Contains(t, rec.joined(), "The Rabbit collapses.")
	assert.Equal(t, character.ActionNone, sess.Char.Action)
	assert.Contains(t, sess.Char.Skills, "combat")

	// The corpse landed on the ground.
	require.NotEmpty(t, cell.GroundItems)
	assert.Equal(t, "rabbit_corpse", cell.GroundItems[0].DefID)
}

func TestDisconnectGraceReclaim(t *testing.T) {
	ctx := context.Background()
	e := testEngine(t, newMemStore())
	rec := &sinkRecorder{}

	sess, err := e.Connect(ctx, 1, "alice", rec)
	require.NoError(t, err)
	placePassable(t, e, sess)
	require.NoError(t, e.HandleLine(sess, "begin Alice"))
	ch := sess.Char

	e.Disconnect(ctx, 1, sess.ConnID)
	assert.Equal(t, 0, e.Sessions().Count())
	assert.Equal(t, 1, e.Sessions().GraceCount())
	cell, ok := e.world.CellOf(ch)
	require.True(t, ok)
	assert.NotNil(t, cell.FindCharacter(ch.InstanceID), "grace-held characters stay in the world")

	rec2 := &sinkRecorder{}
	sess2, err := e.Connect(ctx, 1, "alice", rec2)
	require.NoError(t, err)
	assert.Same(t, ch, sess2.Char, "reconnect within grace resumes the identical character")
	assert.Contains(t, rec2.joined(), "Welcome back, Alice.")
	assert.Equal(t, 0, e.Sessions().GraceCount())
}

func TestGraceExpiryEvictsAndPersists(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	e := testEngine(t, store)
	e.sessions = session.NewManager(time.Millisecond)
	rec := &sinkRecorder{}

	sess, err := e.Connect(ctx, 1, "alice", rec)
	require.NoError(t, err)
	placePassable(t, e, sess)
	require.NoError(t, e.HandleLine(sess, "begin Alice"))
	ch := sess.Char

	e.Disconnect(ctx, 1, sess.ConnID)
	time.Sleep(10 * time.Millisecond)
	e.Tick(ctx)

	assert.Equal(t, 0, e.Sessions().GraceCount())
	_, active := e.world.CellOf(ch)
	assert.False(t, active, "evicted characters leave the world")

	snap, err := store.Load(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Alice", snap.Name)
}

func TestSupersedeTransfersCharacter(t *testing.T) {
	ctx := context.Background()
	e := testEngine(t, newMemStore())
	rec1 := &sinkRecorder{}

	sess1, err := e.Connect(ctx, 1, "alice", rec1)
	require.NoError(t, err)
	placePassable(t, e, sess1)
	require.NoError(t, e.HandleLine(sess1, "begin Alice"))

	rec2 := &sinkRecorder{}
	sess2, err := e.Connect(ctx, 1, "alice", rec2)
	require.NoError(t, err)

	assert.Same(t, sess1.Char, sess2.Char)
	assert.Contains(t, rec1.joined(), "You have logged in elsewhere.")
	assert.Equal(t, 1, e.Sessions().Count())

	// The old connection's disconnect must not tear down the new session.
	e.Disconnect(ctx, 1, sess1.ConnID)
	assert.Equal(t, 1, e.Sessions().Count())
}

func TestSnapshotRestoreAfterEviction(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	e := testEngine(t, store)
	e.sessions = session.NewManager(time.Millisecond)

	sess, err := e.Connect(ctx, 1, "alice", &sinkRecorder{})
	require.NoError(t, err)
	placePassable(t, e, sess)
	require.NoError(t, e.HandleLine(sess, "begin Alice"))
	sess.Char.GainSkill("combat", 4)
	savedX, savedZ := sess.Char.X, sess.Char.Z

	e.Disconnect(ctx, 1, sess.ConnID)
	time.Sleep(10 * time.Millisecond)
	e.Tick(ctx)

	rec2 := &sinkRecorder{}
	sess2, err := e.Connect(ctx, 1, "alice", rec2)
	require.NoError(t, err)
	assert.Equal(t, character.StateAdventure, sess2.Char.State, "restored characters resume in-world")
	assert.Equal(t, "Alice", sess2.Char.Name)
	assert.Contains(t, rec2.joined(), "Welcome back, Alice.")
	assert.Equal(t, savedX, sess2.Char.X)
	assert.Equal(t, savedZ, sess2.Char.Z)
	cell, ok := e.world.CellOf(sess2.Char)
	require.True(t, ok, "restored character is placed back in its cell")
	assert.NotNil(t, cell.FindCharacter(sess2.Char.InstanceID))
	require.Contains(t, sess2.Char.Skills, "combat")
	assert.Equal(t, 4, sess2.Char.Skills["combat"].XP)

	// Commands gated to the intro state no longer apply.
	require.NoError(t, e.HandleLine(sess2, "begin Mallory"))
	assert.Equal(t, "Alice", sess2.Char.Name, "a restored character cannot be renamed via begin")
}

func TestHandleLineReportsRecoverableErrors(t *testing.T) {
	ctx := context.Background()
	e := testEngine(t, newMemStore())
	rec := &sinkRecorder{}
	sess, err := e.Connect(ctx, 1, "alice", rec)
	require.NoError(t, err)

	require.NoError(t, e.HandleLine(sess, "frobnicate"), "unknown verbs are reported, not returned")
	assert.Contains(t, rec.joined(), "Unknown command")
}

func TestHandleSuggest(t *testing.T) {
	ctx := context.Background()
	e := testEngine(t, newMemStore())
	sess, err := e.Connect(ctx, 1, "alice", &sinkRecorder{})
	require.NoError(t, err)
	placePassable(t, e, sess)
	require.NoError(t, e.HandleLine(sess, "begin Alice"))

	assert.Equal(t, "attack", e.HandleSuggest(sess, "att", false))
	assert.Equal(t, "go south", e.HandleSuggest(sess, "go north", true))
}

func TestSentenceInputMode(t *testing.T) {
	ctx := context.Background()
	e := testEngine(t, newMemStore())
	rec := &sinkRecorder{}
	sess, err := e.Connect(ctx, 1, "alice", rec)
	require.NoError(t, err)
	placePassable(t, e, sess)
	require.NoError(t, e.HandleLine(sess, "begin Alice"))
	require.NoError(t, e.HandleLine(sess, "set input sentence"))

	rec.reset()
	require.NoError(t, e.HandleLine(sess, "walk to the north"))
	assert.Contains(t, rec.joined(), "north", "sentence input reduces to the go command")
}

func TestShutdownPersistsLiveCharacters(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	e := testEngine(t, store)
	sess, err := e.Connect(ctx, 1, "alice", &sinkRecorder{})
	require.NoError(t, err)
	placePassable(t, e, sess)
	require.NoError(t, e.HandleLine(sess, "begin Alice"))

	e.Shutdown(ctx)

	snap, err := store.Load(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Alice", snap.Name)
}
