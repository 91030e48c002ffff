// Package world provides the spatial world directory: lazily materialized
// grid cells, deterministic terrain generation, and the per-tick simulation
// of every active cell.
package world

import (
	opensimplex "github.com/ojrac/opensimplex-go"
)

// Biome names produced by the generator. Each must exist in the content
// registry.
const (
	BiomeSea      = "sea"
	BiomeMountain = "mountain"
	BiomeForest   = "forest"
	BiomePlains   = "plains"
)

// Generator derives a deterministic biome classification for any grid
// coordinate from two seeded 2D noise fields: one for elevation, one for
// tree cover.
type Generator struct {
	height opensimplex.Noise
	trees  opensimplex.Noise
}

// NewGenerator creates a Generator for the given world seed.
//
// Postcondition: Two Generators with the same seed classify every
// coordinate identically.
func NewGenerator(seed int64) *Generator {
	return &Generator{
		height: opensimplex.New(seed),
		trees:  opensimplex.New(seed + 1),
	}
}

// BiomeName returns the biome classification of (x, z).
//
// Postcondition: Returns one of the Biome* constants; repeated calls for the
// same coordinate yield the same result.
func (g *Generator) BiomeName(x, z int) string {
	fx, fz := float64(x), float64(z)
	height := fractal(g.height, fx/60, fz/60, 6)*100 + 30
	if height < 0 {
		return BiomeSea
	}
	if height > 60 {
		return BiomeMountain
	}
	trees := fractal(g.trees, (fx+1000)/30, (fz+1000)/30, 4) * 100
	if trees > 0 {
		return BiomeForest
	}
	return BiomePlains
}

// fractal sums octaves of noise with halving amplitude and doubling
// frequency, normalized back to roughly [-1, 1].
func fractal(n opensimplex.Noise, x, y float64, octaves int) float64 {
	sum, amp, freq, norm := 0.0, 1.0, 1.0, 0.0
	for i := 0; i < octaves; i++ {
		sum += amp * n.Eval2(x*freq, y*freq)
		norm += amp
		amp *= 0.5
		freq *= 2
	}
	return sum / norm
}
