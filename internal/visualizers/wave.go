package visualizers

import (
	"math"

	"gopkg.in/yaml.v3"

	"termviz/internal/plugin"
	"termviz/pkg/viz"
)

// WaveOptions configures Wave.
type WaveOptions struct {
	Partials int     `yaml:"partials"` // number of low bands summed into the wave
	Gain     float64 `yaml:"gain"`
	Speed    float64 `yaml:"speed"` // phase advance per frame
}

// Wave sums one sine per low band, each band's magnitude setting its
// partial's amplitude.
type Wave struct {
	opts  WaveOptions
	phase float64
	ys    []float64
}

func NewWave(node *yaml.Node) (*Wave, error) {
	o := WaveOptions{Partials: 20, Gain: 0.5, Speed: 0.025}
	if err := plugin.DecodeOptions(node, &o); err != nil {
		return nil, err
	}
	o.Partials = max(1, o.Partials)
	return &Wave{opts: o}, nil
}

func (w *Wave) Name() string { return "Wave" }

func (w *Wave) Draw(s viz.Surface, spec viz.Spectrum, height, width int, _, hue float64) error {
	if width < 1 || height < 1 {
		return nil
	}
	w.phase = math.Mod(w.phase+w.opts.Speed, 2*math.Pi*1000)
	if cap(w.ys) < width {
		w.ys = make([]float64, width)
	}
	ys := w.ys[:width]
	clear(ys)

	quarter := float64(height) / 4
	for i := range min(w.opts.Partials, len(spec.Bands)) {
		amp := spec.Bands[i] * w.opts.Gain * quarter
		if amp == 0 {
			continue
		}
		freq := float64(i+1) * 2
		phase := w.phase * float64(i+1) * 1.5
		for x := range ys {
			ys[x] += amp * math.Sin(2*math.Pi*freq*float64(x)/float64(width)+phase)
		}
	}

	mid := height / 2
	for x, v := range ys {
		t := clamp(math.Abs(v)/quarter, 0, 1)
		slot := s.ColorHSV(frac(float64(x)/float64(width)+hue), 0.8+0.2*t, 0.7+0.3*t)
		s.DrawGlyph(mid+int(v), x, "•", slot, viz.AttrBold)
	}
	return nil
}
