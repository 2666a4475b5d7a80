package visualizers

import (
	"github.com/charmbracelet/harmonica"
	"gopkg.in/yaml.v3"

	"termviz/internal/plugin"
	"termviz/pkg/viz"
)

// SpringsOptions configures Springs.
type SpringsOptions struct {
	Columns   int     `yaml:"columns"`
	FPS       int     `yaml:"fps"`
	Frequency float64 `yaml:"frequency"` // angular frequency of each spring
	Damping   float64 `yaml:"damping"`   // below 1 overshoots
}

// Springs draws one column per band group whose height chases the band
// through a damped spring, so peaks overshoot and settle.
type Springs struct {
	opts   SpringsOptions
	spring harmonica.Spring
	pos    []float64
	vel    []float64
}

func NewSprings(node *yaml.Node) (*Springs, error) {
	o := SpringsOptions{Columns: 32, FPS: 60, Frequency: 7, Damping: 0.35}
	if err := plugin.DecodeOptions(node, &o); err != nil {
		return nil, err
	}
	o.Columns = max(1, o.Columns)
	o.FPS = max(1, o.FPS)
	o.Damping = max(0, o.Damping)
	return &Springs{
		opts:   o,
		spring: harmonica.NewSpring(harmonica.FPS(o.FPS), o.Frequency, o.Damping),
	}, nil
}

func (sp *Springs) Name() string { return "Springs" }

func (sp *Springs) resize(n int) {
	if len(sp.pos) == n {
		return
	}
	sp.pos = make([]float64, n)
	sp.vel = make([]float64, n)
}

// step advances column i towards target and returns its position.
func (sp *Springs) step(i int, target float64) float64 {
	sp.pos[i], sp.vel[i] = sp.spring.Update(sp.pos[i], sp.vel[i], target)
	return sp.pos[i]
}

func (sp *Springs) Draw(s viz.Surface, spec viz.Spectrum, height, width int, _, hue float64) error {
	cols := min(sp.opts.Columns, width)
	if cols < 1 || height < 3 || len(spec.Bands) == 0 {
		return nil
	}
	sp.resize(cols)

	colWidth := width / cols
	maxHeight := float64(height - 2)
	n := len(spec.Bands)
	for c := range cols {
		target := spec.Mean(c*n/cols, (c+1)*n/cols+1)
		v := clamp(sp.step(c, target), 0, 1.2)
		h := int(v * maxHeight)
		pos := float64(c) / float64(cols)
		for j := range min(h, height-2) {
			glyph, attr := "▆", viz.AttrNone
			if j == h-1 {
				glyph, attr = "▀", viz.AttrBold
			}
			slot := s.ColorHSV(frac(pos+hue), 0.6+0.4*v/1.2, 0.6+0.4*float64(j)/maxHeight)
			for x := range max(1, colWidth-1) {
				s.DrawGlyph(height-1-j, c*colWidth+x, glyph, slot, attr)
			}
		}
	}
	return nil
}

// Positions returns the current spring positions.
func (sp *Springs) Positions() []float64 {
	return append([]float64(nil), sp.pos...)
}
