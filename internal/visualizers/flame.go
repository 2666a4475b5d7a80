package visualizers

import (
	"math"
	"math/rand/v2"

	"gopkg.in/yaml.v3"

	"termviz/internal/plugin"
	"termviz/pkg/viz"
)

const flameGlyphs = " .,:;=+*#%@"

// FlameOptions configures Flame.
type FlameOptions struct {
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Seed   uint64 `yaml:"seed"`
}

// Flame is a heat diffusion fire fed by the bass bands from a log at the
// bottom of the screen.
type Flame struct {
	opts FlameOptions
	rng  *rand.Rand

	w, h int
	heat []float64 // row-major h*w, row 0 at the top
}

func NewFlame(node *yaml.Node) (*Flame, error) {
	o := FlameOptions{Width: 80, Height: 30}
	if err := plugin.DecodeOptions(node, &o); err != nil {
		return nil, err
	}
	o.Width = max(20, min(o.Width, 200))
	o.Height = max(10, min(o.Height, 50))
	return &Flame{opts: o, rng: newRNG(o.Seed)}, nil
}

func (f *Flame) Name() string { return "Flame" }

// Size returns the configured flame width and height.
func (f *Flame) Size() (width, height int) { return f.opts.Width, f.opts.Height }

// Setup drops the heat grid; it is rebuilt at the next frame's size.
func (f *Flame) Setup() error {
	f.w, f.h, f.heat = 0, 0, nil
	return nil
}

func (f *Flame) Draw(s viz.Surface, spec viz.Spectrum, height, width int, _, _ float64) error {
	fh := min(height-2, f.opts.Height)
	fw := min(width, f.opts.Width)
	if fh < 1 || fw < 1 {
		return nil
	}
	if fw != f.w || fh != f.h {
		f.w, f.h = fw, fh
		f.heat = make([]float64, fw*fh)
	}

	n := len(spec.Bands)
	bass := spec.Mean(0, n/6) * 3
	mids := spec.Mean(n/6, n/2) * 2

	f.cool()
	f.ignite(bass, mids)
	f.rise(bass)

	top := height - fh - 1
	left := (width - fw) / 2
	for y := range fh {
		for x := range fw {
			v := f.heat[y*fw+x]
			if v <= 0.01 {
				continue
			}
			idx := min(len(flameGlyphs)-1, int(v*float64(len(flameGlyphs))))
			slot := s.ColorHSV(0.05+(1-v)*0.08, 0.8+v*0.2, 0.6+v*0.4)
			s.DrawGlyph(top+y, left+x, flameGlyphs[idx:idx+1], slot, viz.AttrNone)
		}
	}

	logWidth := fw / 2
	logLeft := (width - logWidth) / 2
	wood := s.ColorRGB(139, 69, 19)
	for x := range logWidth {
		s.DrawGlyph(height-1, logLeft+x, "▄", wood, viz.AttrNone)
	}
	if logWidth > 0 {
		ember := s.ColorHSV(0.05, 1, 0.8)
		for range 5 {
			s.DrawGlyph(height-1, logLeft+f.rng.IntN(logWidth), "▄", ember, viz.AttrNone)
		}
	}
	return nil
}

// cool subtracts random cooling, stronger at the edges and the top.
func (f *Flame) cool() {
	half := float64(f.w) / 2
	for y := range f.h {
		rowCool := 0.1 * (1 - float64(y)/float64(f.h))
		for x := range f.w {
			edge := 0.2 * (1 - float64(min(x, f.w-x-1))/half)
			i := y*f.w + x
			f.heat[i] = clamp(f.heat[i]-(f.rng.Float64()*0.2+edge+rowCool), 0, 1)
		}
	}
}

// ignite sets the bottom row from the audio.
func (f *Flame) ignite(bass, mids float64) {
	half := float64(f.w) / 2
	bottom := (f.h - 1) * f.w
	for x := range f.w {
		bias := 1 - 0.5*math.Abs(float64(x)-half)/half
		v := bass * bias * (0.7 + f.rng.Float64()*0.3)
		if f.rng.Float64() < 0.1*(bass+mids) {
			v += f.rng.Float64() * 0.5
		}
		f.heat[bottom+x] = min(1, v)
	}
}

// rise propagates heat one row up with sideways diffusion.
func (f *Flame) rise(bass float64) {
	drift := 0.95 + 0.05*bass
	for y := f.h - 2; y >= 0; y-- {
		src := (y + 1) * f.w
		for x := range f.w {
			l, r := max(0, x-1), min(f.w-1, x+1)
			v := f.heat[src+l]*0.2 + f.heat[src+x]*0.6 + f.heat[src+r]*0.2
			f.heat[y*f.w+x] = min(1, v*drift)
		}
	}
}

func (f *Flame) HandleKey(k viz.Key) bool {
	switch k {
	case "w":
		f.opts.Width = min(200, f.opts.Width+5)
	case "W":
		f.opts.Width = max(20, f.opts.Width-5)
	case "h":
		f.opts.Height = min(50, f.opts.Height+2)
	case "H":
		f.opts.Height = max(10, f.opts.Height-2)
	default:
		return false
	}
	return f.Setup() == nil
}
