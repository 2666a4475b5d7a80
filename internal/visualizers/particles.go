package visualizers

import (
	"math/rand/v2"

	"gopkg.in/yaml.v3"

	"termviz/internal/plugin"
	"termviz/pkg/viz"
)

const (
	minParticles  = 50
	maxParticles  = 500
	particlesStep = 50
)

var particleGlyphs = []string{".", "*", "+", "•", "○", "◌", "◦"}

// ParticlesOptions configures Particles.
type ParticlesOptions struct {
	Max       int     `yaml:"max"`
	Threshold float64 `yaml:"threshold"` // energy needed to spawn
	Gravity   float64 `yaml:"gravity"`
	Seed      uint64  `yaml:"seed"`
}

type particle struct {
	x, y, vx, vy float64
	life, hue    float64
	glyph        string
}

// Particles is a fountain at the bottom centre that sprays in proportion to
// energy.
type Particles struct {
	opts ParticlesOptions
	rng  *rand.Rand
	live []particle
}

func NewParticles(node *yaml.Node) (*Particles, error) {
	o := ParticlesOptions{Max: 100, Threshold: 0.1, Gravity: 0.1}
	if err := plugin.DecodeOptions(node, &o); err != nil {
		return nil, err
	}
	o.Max = max(minParticles, min(o.Max, maxParticles))
	return &Particles{opts: o, rng: newRNG(o.Seed)}, nil
}

func (p *Particles) Name() string { return "Particles" }

// Max returns the particle ceiling.
func (p *Particles) Max() int { return p.opts.Max }

// Live returns the number of particles in flight.
func (p *Particles) Live() int { return len(p.live) }

func (p *Particles) Setup() error {
	p.live = make([]particle, 0, maxParticles)
	return nil
}

func (p *Particles) Draw(s viz.Surface, _ viz.Spectrum, height, width int, energy, hue float64) error {
	if energy > p.opts.Threshold {
		for range int(energy * 10) {
			if len(p.live) >= p.opts.Max {
				break
			}
			p.live = append(p.live, particle{
				x:     float64(width/2 + p.rng.IntN(21) - 10),
				y:     float64(height - 5),
				vx:    p.rng.Float64()*4 - 2,
				vy:    -2 - p.rng.Float64()*3,
				life:  0.5 + p.rng.Float64()*0.5,
				hue:   p.rng.Float64(),
				glyph: particleGlyphs[p.rng.IntN(len(particleGlyphs))],
			})
		}
	}

	kept := p.live[:0]
	for _, q := range p.live {
		q.x += q.vx
		q.y += q.vy
		q.vy += p.opts.Gravity
		q.life -= 0.02
		if q.life <= 0 || q.y < 0 || q.y >= float64(height-1) || q.x < 0 || q.x >= float64(width) {
			continue
		}
		slot := s.ColorHSV(frac(q.hue+hue), 0.8, 0.7+0.3*q.life)
		s.DrawGlyph(int(q.y), int(q.x), q.glyph, slot, viz.AttrBold)
		kept = append(kept, q)
	}
	p.live = kept
	return nil
}

func (p *Particles) HandleKey(k viz.Key) bool {
	switch k {
	case "p":
		p.opts.Max = min(maxParticles, p.opts.Max+particlesStep)
	case "P":
		p.opts.Max = max(minParticles, p.opts.Max-particlesStep)
	default:
		return false
	}
	return true
}
