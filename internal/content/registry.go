package content

import (
	"fmt"
	"math/rand"
	"path/filepath"
	"sort"
)

// Registry provides read-only lookup of biome, enemy, and item definitions.
// It is built once at startup and never mutated afterward, so lookups are
// safe for concurrent use without locking.
type Registry struct {
	biomes  map[string]*BiomeDef
	enemies map[string]*EnemyDef
	items   map[string]*ItemDef
}

// LoadRegistry loads all definitions from the biomes/, enemies/, and items/
// subdirectories of root and validates cross-references.
//
// Precondition: root must contain biomes/, enemies/, and items/ directories.
// Postcondition: Returns a fully cross-checked Registry or a non-nil error.
func LoadRegistry(root string) (*Registry, error) {
	biomes, err := LoadBiomes(filepath.Join(root, "biomes"))
	if err != nil {
		return nil, fmt.Errorf("loading biomes: %w", err)
	}
	enemies, err := LoadEnemies(filepath.Join(root, "enemies"))
	if err != nil {
		return nil, fmt.Errorf("loading enemies: %w", err)
	}
	items, err := LoadItems(filepath.Join(root, "items"))
	if err != nil {
		return nil, fmt.Errorf("loading items: %w", err)
	}
	return NewRegistry(biomes, enemies, items)
}

// NewRegistry builds a Registry from already-parsed definitions.
//
// Postcondition: Every spawn-table enemy, scavenge-table item, and drop
// reference resolves, or a non-nil error describes the first dangling one.
func NewRegistry(biomes []*BiomeDef, enemies []*EnemyDef, items []*ItemDef) (*Registry, error) {
	r := &Registry{
		biomes:  make(map[string]*BiomeDef, len(biomes)),
		enemies: make(map[string]*EnemyDef, len(enemies)),
		items:   make(map[string]*ItemDef, len(items)),
	}
	for _, e := range enemies {
		if e.ID == "" {
			return nil, fmt.Errorf("enemy %q has empty id", e.Name)
		}
		if e.MaxHP < 1 {
			return nil, fmt.Errorf("enemy %q max_hp must be >= 1, got %d", e.ID, e.MaxHP)
		}
		r.enemies[e.ID] = e
	}
	for _, it := range items {
		if it.ID == "" {
			return nil, fmt.Errorf("item %q has empty id", it.Name)
		}
		if it.Slots < 1 {
			return nil, fmt.Errorf("item %q slots must be >= 1, got %d", it.ID, it.Slots)
		}
		r.items[it.ID] = it
	}
	for _, b := range biomes {
		if b.Name == "" {
			return nil, fmt.Errorf("biome with empty name")
		}
		for _, s := range b.SpawnTable {
			if _, ok := r.enemies[s.Enemy]; !ok {
				return nil, fmt.Errorf("biome %q spawn table references unknown enemy %q", b.Name, s.Enemy)
			}
		}
		for _, s := range b.ScavengeTable {
			if _, ok := r.items[s.Item]; !ok {
				return nil, fmt.Errorf("biome %q scavenge table references unknown item %q", b.Name, s.Item)
			}
		}
		r.biomes[b.Name] = b
	}
	for _, e := range r.enemies {
		for _, d := range e.Drops {
			if _, ok := r.items[d]; !ok {
				return nil, fmt.Errorf("enemy %q drops unknown item %q", e.ID, d)
			}
		}
	}
	return r, nil
}

// Biome returns the biome definition for the given name.
func (r *Registry) Biome(name string) (*BiomeDef, bool) {
	b, ok := r.biomes[name]
	return b, ok
}

// Enemy returns the enemy template for the given id.
func (r *Registry) Enemy(id string) (*EnemyDef, bool) {
	e, ok := r.enemies[id]
	return e, ok
}

// Item returns the item template for the given id.
func (r *Registry) Item(id string) (*ItemDef, bool) {
	it, ok := r.items[id]
	return it, ok
}

// ItemIDs returns all item ids in sorted order.
func (r *Registry) ItemIDs() []string {
	ids := make([]string, 0, len(r.items))
	for id := range r.items {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// PickSpawn selects a weighted random enemy from the biome's spawn table.
//
// Postcondition: Returns nil if the biome has an empty spawn table.
func (r *Registry) PickSpawn(biome *BiomeDef, rng *rand.Rand) *EnemyDef {
	id := pickWeighted(rng, biome.SpawnTable, func(s SpawnEntry) (string, int) {
		return s.Enemy, s.Weight
	})
	if id == "" {
		return nil
	}
	return r.enemies[id]
}

// PickScavenge selects a weighted random item from the biome's scavenge table.
//
// Postcondition: Returns nil if the biome has an empty scavenge table.
func (r *Registry) PickScavenge(biome *BiomeDef, rng *rand.Rand) *ItemDef {
	id := pickWeighted(rng, biome.ScavengeTable, func(s ScavengeEntry) (string, int) {
		return s.Item, s.Weight
	})
	if id == "" {
		return nil
	}
	return r.items[id]
}

func pickWeighted[T any](rng *rand.Rand, rows []T, row func(T) (string, int)) string {
	total := 0
	for _, r := range rows {
		_, w := row(r)
		if w > 0 {
			total += w
		}
	}
	if total == 0 {
		return ""
	}
	roll := rng.Intn(total)
	for _, r := range rows {
		id, w := row(r)
		if w <= 0 {
			continue
		}
		if roll < w {
			return id
		}
		roll -= w
	}
	return ""
}
