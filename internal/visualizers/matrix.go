package visualizers

import (
	"fmt"
	"math/rand/v2"

	"gopkg.in/yaml.v3"

	"termviz/internal/plugin"
	"termviz/pkg/viz"
)

// matrixRunes is printable ASCII followed by katakana.
var matrixRunes = func() []rune {
	var rs []rune
	for r := rune(33); r < 127; r++ {
		rs = append(rs, r)
	}
	for r := rune(0x30A0); r < 0x30FF; r++ {
		rs = append(rs, r)
	}
	return rs
}()

// MatrixOptions configures Matrix.
type MatrixOptions struct {
	Density   float64 `yaml:"density"`
	Speed     float64 `yaml:"speed"`
	Length    float64 `yaml:"length"`
	Threshold float64 `yaml:"threshold"` // energy needed to spawn drops
	MaxDrops  int     `yaml:"max_drops"`
	Seed      uint64  `yaml:"seed"`
}

type drop struct {
	x      int
	y      float64
	speed  float64
	length float64
	shift  int
	glyphs []string
	bright bool
	band   int
}

// Matrix is digital rain. Drops spawn from active bands, fall at a speed
// set by their band, and flare on beats.
type Matrix struct {
	opts     MatrixOptions
	defaults MatrixOptions
	rng      *rand.Rand
	drops    []drop
}

func NewMatrix(node *yaml.Node) (*Matrix, error) {
	o := MatrixOptions{Density: 0.2, Speed: 1, Length: 1, Threshold: 0.05, MaxDrops: 2000}
	if err := plugin.DecodeOptions(node, &o); err != nil {
		return nil, err
	}
	o.Density = clamp(o.Density, 0.05, 1)
	o.Speed = clamp(o.Speed, 0.1, 3)
	o.Length = clamp(o.Length, 0.1, 3)
	o.MaxDrops = max(1, o.MaxDrops)
	return &Matrix{opts: o, defaults: o, rng: newRNG(o.Seed)}, nil
}

func (m *Matrix) Name() string { return "Matrix Rain" }

// Drops returns the number of drops on screen.
func (m *Matrix) Drops() int { return len(m.drops) }

func (m *Matrix) spawn(count, width int, spec viz.Spectrum) {
	n := len(spec.Bands)
	for range count {
		if len(m.drops) >= m.opts.MaxDrops {
			return
		}
		band := m.rng.IntN(n/2 + 1)
		if m.rng.Float64() >= spec.At(band)*3 {
			continue
		}
		glyphs := make([]string, 5+m.rng.IntN(11))
		for i := range glyphs {
			glyphs[i] = string(matrixRunes[m.rng.IntN(len(matrixRunes))])
		}
		m.drops = append(m.drops, drop{
			x:      m.rng.IntN(width),
			speed:  (0.2 + m.rng.Float64()*0.6) * m.opts.Speed,
			length: float64(3+m.rng.IntN(18)) * m.opts.Length,
			glyphs: glyphs,
			bright: m.rng.Float64() < 0.2,
			band:   band,
		})
	}
}

func (m *Matrix) Draw(s viz.Surface, spec viz.Spectrum, height, width int, energy, hue float64) error {
	if width < 1 || height < 1 || len(spec.Bands) == 0 {
		return nil
	}
	bass := spec.Mean(0, len(spec.Bands)/6) * 2

	if energy > m.opts.Threshold {
		count := int(float64(width)*0.15*m.opts.Density) + int(energy*15)
		if spec.Beat {
			count += 5
		}
		m.spawn(count, width, spec)
	}

	kept := m.drops[:0]
	for _, d := range m.drops {
		d.y += d.speed * (1 + spec.At(d.band)*3)
		if m.rng.Float64() < 0.1 {
			d.shift++
		}
		if d.y >= float64(height) || d.x >= width {
			continue
		}
		m.drawDrop(s, d, width, bass, hue, spec.Beat)
		kept = append(kept, d)
	}
	m.drops = kept

	info := fmt.Sprintf("Drops: %d | Energy: %.2f | Bass: %.2f", len(m.drops), energy, bass)
	s.DrawGlyph(height-1, 0, info, s.ColorHSV(hue, 0.7, 1), viz.AttrBold)

	if spec.Beat {
		flash := s.ColorHSV(hue, 1, 1)
		for _, c := range [][2]int{{1, 1}, {1, width - 2}, {height - 2, 1}, {height - 2, width - 2}} {
			s.DrawGlyph(c[0], c[1], "✧", flash, viz.AttrBold)
		}
	}
	return nil
}

func (m *Matrix) drawDrop(s viz.Surface, d drop, width int, bass, hue float64, beat bool) {
	head := int(d.y)
	tail := max(0, int(d.y-d.length))
	for y := tail; y <= head; y++ {
		proximity := 1 - float64(head-y)/d.length
		g := d.glyphs[(d.shift+y)%len(d.glyphs)]

		h := frac(float64(d.x)/float64(width) + hue)
		sat, val, attr := 0.7*proximity, max(0.4, proximity)*0.8, viz.AttrNone
		if y == head {
			h = frac(h + bass*0.3)
			sat, val, attr = 0.5, 0.7, viz.AttrBold
			if d.bright {
				sat, val = 0.7, 1
			}
		}
		if beat && d.bright {
			sat, val = min(1, sat+0.3), min(1, val+0.3)
		}
		s.DrawGlyph(y, d.x, g, s.ColorHSV(h, sat, val), attr)
	}
}

func (m *Matrix) HandleKey(k viz.Key) bool {
	switch k {
	case "d":
		m.opts.Density = min(1, m.opts.Density+0.05)
	case "D":
		m.opts.Density = max(0.05, m.opts.Density-0.05)
	case "s":
		m.opts.Speed = min(3, m.opts.Speed+0.1)
	case "S":
		m.opts.Speed = max(0.1, m.opts.Speed-0.1)
	case "l":
		m.opts.Length = min(3, m.opts.Length+0.1)
	case "L":
		m.opts.Length = max(0.1, m.opts.Length-0.1)
	case "r":
		m.opts = m.defaults
	default:
		return false
	}
	return true
}
