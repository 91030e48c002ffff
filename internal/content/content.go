// Package content provides the read-only registry of biome, enemy, and item
// definitions. Definitions are loaded once at startup from YAML files and are
// immutable thereafter.
package content

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// SpawnEntry is one weighted row of a biome's hostile spawn table.
type SpawnEntry struct {
	Enemy  string `yaml:"enemy"`
	Weight int    `yaml:"weight"`
}

// ScavengeEntry is one weighted row of a biome's scavenge table.
type ScavengeEntry struct {
	Item   string `yaml:"item"`
	Weight int    `yaml:"weight"`
}

// BiomeDef defines the terrain classification of a cell: flavor text,
// passability, and the tables driving hostile spawns and scavenging.
type BiomeDef struct {
	Name           string          `yaml:"name"`
	Glyph          string          `yaml:"glyph"`
	Passable       bool            `yaml:"passable"`
	Descriptions   []string        `yaml:"descriptions"`
	SpawnTable     []SpawnEntry    `yaml:"spawn_table"`
	ScavengeTable  []ScavengeEntry `yaml:"scavenge_table"`
	ScavengeChance float64         `yaml:"scavenge_chance"`
}

// EnemyDef is the template a spawned hostile is instantiated from.
type EnemyDef struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	MaxHP       int      `yaml:"max_hp"`
	AttackTimer int      `yaml:"attack_timer"`
	Damage      int      `yaml:"damage"`
	Drops       []string `yaml:"drops"`
	// OnDefeat names a Lua hook run when the hostile is killed. May be empty.
	OnDefeat string `yaml:"on_defeat"`
}

// ItemDef is the template for an inventory or ground item.
type ItemDef struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Slots       int      `yaml:"slots"`
	Qualities   []string `yaml:"qualities"`
	Description string   `yaml:"description"`
}

// LoadBiomes reads all .yaml files in dir and parses each as a BiomeDef.
//
// Precondition: dir must be a readable directory path.
// Postcondition: Returns all parsed biomes (may be empty slice) or a non-nil error.
func LoadBiomes(dir string) ([]*BiomeDef, error) {
	files, err := yamlFiles(dir)
	if err != nil {
		return nil, err
	}
	biomes := make([]*BiomeDef, 0, len(files))
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		var b BiomeDef
		if err := yaml.Unmarshal(data, &b); err != nil {
			return nil, fmt.Errorf("parsing biome file %s: %w", path, err)
		}
		biomes = append(biomes, &b)
	}
	return biomes, nil
}

// LoadEnemies reads all .yaml files in dir and parses each as an EnemyDef.
func LoadEnemies(dir string) ([]*EnemyDef, error) {
	files, err := yamlFiles(dir)
	if err != nil {
		return nil, err
	}
	enemies := make([]*EnemyDef, 0, len(files))
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		var e EnemyDef
		if err := yaml.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("parsing enemy file %s: %w", path, err)
		}
		enemies = append(enemies, &e)
	}
	return enemies, nil
}

// LoadItems reads all .yaml files in dir and parses each as an ItemDef.
func LoadItems(dir string) ([]*ItemDef, error) {
	files, err := yamlFiles(dir)
	if err != nil {
		return nil, err
	}
	items := make([]*ItemDef, 0, len(files))
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		var it ItemDef
		if err := yaml.Unmarshal(data, &it); err != nil {
			return nil, fmt.Errorf("parsing item file %s: %w", path, err)
		}
		items = append(items, &it)
	}
	return items, nil
}

func yamlFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory %s: %w", dir, err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml") {
			paths = append(paths, filepath.Join(dir, name))
		}
	}
	return paths, nil
}
