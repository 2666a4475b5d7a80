package visualizers

import (
	"math"

	"gopkg.in/yaml.v3"

	"termviz/internal/plugin"
	"termviz/pkg/viz"
)

// CircleOptions configures Circle.
type CircleOptions struct {
	Rings   int `yaml:"rings"`
	Spacing int `yaml:"spacing"` // radius step between rings, in rows
	Step    int `yaml:"step"`    // angle step in degrees
}

// Circle draws concentric rings whose radius breathes with the low bands.
type Circle struct {
	opts CircleOptions
}

func NewCircle(node *yaml.Node) (*Circle, error) {
	o := CircleOptions{Rings: 5, Spacing: 3, Step: 5}
	if err := plugin.DecodeOptions(node, &o); err != nil {
		return nil, err
	}
	o.Rings = max(1, o.Rings)
	o.Step = max(1, min(o.Step, 90))
	return &Circle{opts: o}, nil
}

func (c *Circle) Name() string { return "Circle Spectrum" }

func (c *Circle) Draw(s viz.Surface, spec viz.Spectrum, height, width int, energy, hue float64) error {
	cy, cx := height/2, width/2
	base := float64(min(height, width/2) / 2)
	lows := spec.Mean(0, len(spec.Bands)/3)

	glyph := "•"
	switch {
	case energy >= 0.2:
		glyph = "★"
	case energy >= 0.1:
		glyph = "*"
	}
	tone := clamp(0.7+0.3*energy, 0, 1)

	for ring := range c.opts.Rings {
		r := base - float64(ring*c.opts.Spacing) + lows*base*1.5
		if r <= 0 {
			continue
		}
		for deg := 0; deg < 360; deg += c.opts.Step {
			rad := float64(deg) * math.Pi / 180
			// Cells are roughly twice as tall as wide.
			x := cx + int(2*r*math.Cos(rad))
			y := cy + int(r*math.Sin(rad))
			slot := s.ColorHSV(frac(float64(deg)/360+hue), tone, tone)
			s.DrawGlyph(y, x, glyph, slot, viz.AttrBold)
		}
	}
	return nil
}
