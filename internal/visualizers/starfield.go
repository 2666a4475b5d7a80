package visualizers

import (
	"math"
	"math/rand/v2"

	"gopkg.in/yaml.v3"

	"termviz/internal/plugin"
	"termviz/pkg/viz"
)

var starGlyphs = []string{".", "*", "+", "·"}

// StarfieldOptions configures Starfield.
type StarfieldOptions struct {
	Stars int     `yaml:"stars"`
	Warp  float64 `yaml:"warp"`
	Seed  uint64  `yaml:"seed"`
}

type star struct {
	x, y, angle float64
	speed, hue  float64
	glyph       string
}

// Starfield flies through stars that accelerate with energy and streak
// once they are fast.
type Starfield struct {
	opts  StarfieldOptions
	rng   *rand.Rand
	stars []star
}

func NewStarfield(node *yaml.Node) (*Starfield, error) {
	o := StarfieldOptions{Stars: 100, Warp: 1}
	if err := plugin.DecodeOptions(node, &o); err != nil {
		return nil, err
	}
	o.Stars = max(1, min(o.Stars, 1000))
	o.Warp = clamp(o.Warp, 0.1, 5)
	return &Starfield{opts: o, rng: newRNG(o.Seed)}, nil
}

func (f *Starfield) Name() string { return "Starfield Warp" }

func (f *Starfield) Setup() error {
	f.stars = make([]star, 0, f.opts.Stars)
	return nil
}

func (f *Starfield) Draw(s viz.Surface, _ viz.Spectrum, height, width int, energy, hue float64) error {
	cx, cy := float64(width)/2, float64(height)/2
	// A few births per frame keep the field from arriving as one ring.
	for range 3 {
		if len(f.stars) >= f.opts.Stars {
			break
		}
		a := f.rng.Float64() * 2 * math.Pi
		d := 1 + f.rng.Float64()*2
		f.stars = append(f.stars, star{
			x:     cx + d*math.Cos(a),
			y:     cy + d*math.Sin(a),
			angle: a,
			speed: 0.1 + f.rng.Float64()*0.2,
			hue:   f.rng.Float64(),
			glyph: starGlyphs[f.rng.IntN(len(starGlyphs))],
		})
	}

	limit := float64(max(width, height))
	kept := f.stars[:0]
	for _, st := range f.stars {
		st.speed += 0.01 * energy * f.opts.Warp
		dist := math.Hypot(st.x-cx, st.y-cy)
		cos, sin := math.Cos(st.angle), math.Sin(st.angle)
		st.x += cos * st.speed * (1 + energy)
		st.y += sin * st.speed * (1 + energy) / 2
		if st.x < 0 || st.x >= float64(width) || st.y < 0 || st.y >= float64(height) || dist >= limit {
			continue
		}

		glyph := st.glyph
		horizontal := math.Abs(cos) > math.Abs(sin)
		switch {
		case st.speed > 1 && horizontal:
			glyph = "="
		case st.speed > 1:
			glyph = "‖"
		case st.speed > 0.5 && horizontal:
			glyph = "-"
		case st.speed > 0.5:
			glyph = "|"
		}
		slot := s.ColorHSV(frac(st.hue+hue), min(1, dist/10), min(1, 0.5+dist/20))
		s.DrawGlyph(int(st.y), int(st.x), glyph, slot, viz.AttrBold)
		kept = append(kept, st)
	}
	f.stars = kept
	return nil
}

func (f *Starfield) HandleKey(k viz.Key) bool {
	switch k {
	case "w":
		f.opts.Warp = clamp(f.opts.Warp+0.1, 0.1, 5)
	case "W":
		f.opts.Warp = clamp(f.opts.Warp-0.1, 0.1, 5)
	default:
		return false
	}
	return true
}
