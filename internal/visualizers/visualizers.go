// SPDX-License-Identifier: MIT
// Package visualizers holds the visualizers compiled into termviz. Each one
// is a viz.Visualizer registered in Catalog under a short kind name that
// manifests refer to.
package visualizers

import (
	"math/rand/v2"

	"gopkg.in/yaml.v3"

	"termviz/internal/plugin"
	"termviz/pkg/viz"
)

// Catalog returns the built-in kinds in their default display order.
func Catalog() *plugin.Catalog {
	c := plugin.NewCatalog()
	c.Register("bars", func(opts *yaml.Node) (viz.Visualizer, error) { return NewBars(opts) })
	c.Register("circle", func(opts *yaml.Node) (viz.Visualizer, error) { return NewCircle(opts) })
	c.Register("wave", func(opts *yaml.Node) (viz.Visualizer, error) { return NewWave(opts) })
	c.Register("particles", func(opts *yaml.Node) (viz.Visualizer, error) { return NewParticles(opts) })
	c.Register("flame", func(opts *yaml.Node) (viz.Visualizer, error) { return NewFlame(opts) })
	c.Register("matrix", func(opts *yaml.Node) (viz.Visualizer, error) { return NewMatrix(opts) })
	c.Register("springs", func(opts *yaml.Node) (viz.Visualizer, error) { return NewSprings(opts) })
	c.Register("starfield", func(opts *yaml.Node) (viz.Visualizer, error) { return NewStarfield(opts) })
	return c
}

// newRNG returns a generator; seed 0 picks a random seed.
func newRNG(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(v, hi))
}

// frac returns the fractional part of v in [0,1).
func frac(v float64) float64 {
	v -= float64(int64(v))
	if v < 0 {
		v++
	}
	return v
}
