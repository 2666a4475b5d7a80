package visualizers

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"termviz/internal/plugin"
	"termviz/pkg/viz"
)

const (
	minBoost  = 0.5
	maxBoost  = 5.0
	boostStep = 0.1
)

// BarsOptions configures Bars.
type BarsOptions struct {
	Bars  int     `yaml:"bars"`
	Boost float64 `yaml:"boost"` // extra gain applied to the lowest bars, tapering to none
}

// Bars is a classic spectrum analyser: one vertical bar per band group,
// coloured by position and hue offset.
type Bars struct {
	opts  BarsOptions
	block string // one bar's worth of glyphs, rebuilt when the width changes
}

func NewBars(node *yaml.Node) (*Bars, error) {
	o := BarsOptions{Bars: 50, Boost: 1.5}
	if err := plugin.DecodeOptions(node, &o); err != nil {
		return nil, err
	}
	if o.Bars < 1 {
		return nil, fmt.Errorf("bars: bars must be positive, got %d", o.Bars)
	}
	o.Boost = clamp(o.Boost, minBoost, maxBoost)
	return &Bars{opts: o}, nil
}

func (b *Bars) Name() string { return "Spectrum Bars" }

// Boost returns the current bass boost.
func (b *Bars) Boost() float64 { return b.opts.Boost }

func (b *Bars) Draw(s viz.Surface, spec viz.Spectrum, height, width int, _, hue float64) error {
	n := b.opts.Bars
	if width < 1 || height < 3 || len(spec.Bands) == 0 {
		return nil
	}
	barWidth := max(1, width/n)
	if len(b.block) != barWidth*len("█") {
		b.block = strings.Repeat("█", barWidth)
	}
	maxHeight := height - 2
	count := min(n, width/barWidth)

	for i := range count {
		band := i * len(spec.Bands) / count
		pos := float64(i) / float64(n)
		amp := spec.Bands[band] * (1 + b.opts.Boost*(1-pos))
		h := min(int(amp*float64(maxHeight)), maxHeight)

		for j := range h {
			t := float64(j) / float64(h)
			slot := s.ColorHSV(frac(pos+hue), 0.8+0.2*t, 0.7+0.3*t)
			s.DrawGlyph(height-1-j, i*barWidth, b.block, slot, viz.AttrBold)
		}
	}
	return nil
}

func (b *Bars) HandleKey(k viz.Key) bool {
	switch k {
	case "b":
		b.opts.Boost = clamp(b.opts.Boost+boostStep, minBoost, maxBoost)
	case "B":
		b.opts.Boost = clamp(b.opts.Boost-boostStep, minBoost, maxBoost)
	default:
		return false
	}
	return true
}
