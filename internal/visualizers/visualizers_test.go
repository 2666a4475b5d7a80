// SPDX-License-Identifier: MIT
package visualizers

import (
	"math"
	"reflect"
	"testing"

	"gopkg.in/yaml.v3"

	"termviz/pkg/viz"
)

type glyph struct {
	y, x int
	text string
	slot viz.Slot
}

// recordingSurface keeps every DrawGlyph call and hands out increasing slots.
type recordingSurface struct {
	height, width int
	glyphs        []glyph
	colors        int
}

func (r *recordingSurface) ColorHSV(h, s, v float64) viz.Slot {
	if math.IsNaN(h) || math.IsNaN(s) || math.IsNaN(v) {
		panic("NaN colour")
	}
	r.colors++
	return viz.Slot(r.colors)
}

func (r *recordingSurface) ColorRGB(uint8, uint8, uint8) viz.Slot {
	r.colors++
	return viz.Slot(r.colors)
}

func (r *recordingSurface) DrawGlyph(y, x int, text string, slot viz.Slot, _ viz.Attr) {
	r.glyphs = append(r.glyphs, glyph{y, x, text, slot})
}

func (r *recordingSurface) Dimensions() (int, int) { return r.height, r.width }

func (r *recordingSurface) inBounds() int {
	n := 0
	for _, g := range r.glyphs {
		if g.y >= 0 && g.y < r.height && g.x >= 0 && g.x < r.width {
			n++
		}
	}
	return n
}

func flat(n int, v float64) viz.Spectrum {
	bands := make([]float64, n)
	for i := range bands {
		bands[i] = v
	}
	return viz.Spectrum{Bands: bands, Energy: v}
}

func build(t *testing.T, kind string, opts string) viz.Visualizer {
	t.Helper()
	f, ok := Catalog().Lookup(kind)
	if !ok {
		t.Fatalf("kind %q not registered", kind)
	}
	var node *yaml.Node
	if opts != "" {
		node = &yaml.Node{}
		if err := yaml.Unmarshal([]byte(opts), node); err != nil {
			t.Fatal(err)
		}
		// Unmarshal into a Node yields a document node.
		node = node.Content[0]
	}
	v, err := f(node)
	if err != nil {
		t.Fatalf("%s factory error: %v", kind, err)
	}
	if s, ok := v.(viz.Setupper); ok {
		if err := s.Setup(); err != nil {
			t.Fatalf("%s Setup() error: %v", kind, err)
		}
	}
	return v
}

func TestCatalog_Kinds(t *testing.T) {
	want := []string{"bars", "circle", "wave", "particles", "flame", "matrix", "springs", "starfield"}
	if got := Catalog().Kinds(); !reflect.DeepEqual(got, want) {
		t.Errorf("Kinds() = %v, want %v", got, want)
	}
}

func TestVisualizers_AnySize(t *testing.T) {
	sizes := [][2]int{{0, 0}, {1, 1}, {2, 3}, {3, 2}, {24, 80}, {50, 200}}
	spectra := map[string]viz.Spectrum{
		"silent": flat(64, 0),
		"loud":   flat(64, 1),
		"empty":  {},
	}
	spectra["beat"] = func() viz.Spectrum { s := flat(64, 0.8); s.Beat = true; return s }()

	for _, kind := range Catalog().Kinds() {
		t.Run(kind, func(t *testing.T) {
			v := build(t, kind, "")
			if v.Name() == "" {
				t.Error("empty name")
			}
			for name, spec := range spectra {
				for _, sz := range sizes {
					s := &recordingSurface{height: sz[0], width: sz[1]}
					for range 30 {
						if err := v.Draw(s, spec, sz[0], sz[1], spec.Energy, 0.95); err != nil {
							t.Fatalf("%s %dx%d Draw() error: %v", name, sz[0], sz[1], err)
						}
					}
				}
			}
		})
	}
}

func TestVisualizers_DrawWhenLoud(t *testing.T) {
	for _, kind := range Catalog().Kinds() {
		t.Run(kind, func(t *testing.T) {
			v := build(t, kind, "")
			s := &recordingSurface{height: 24, width: 80}
			spec := flat(64, 0.6)
			for range 10 {
				s.glyphs = s.glyphs[:0]
				if err := v.Draw(s, spec, 24, 80, 0.6, 0.1); err != nil {
					t.Fatal(err)
				}
			}
			if s.inBounds() == 0 {
				t.Error("nothing drawn inside the terminal")
			}
		})
	}
}

func TestBars(t *testing.T) {
	v := build(t, "bars", "bars: 10\nboost: 0\n")
	b := v.(*Bars)
	if b.Boost() != minBoost {
		t.Errorf("boost = %v, want clamped to %v", b.Boost(), minBoost)
	}

	s := &recordingSurface{height: 12, width: 40}
	b.Draw(s, flat(64, 0), 12, 40, 0, 0)
	if len(s.glyphs) != 0 {
		t.Errorf("silence drew %d glyphs", len(s.glyphs))
	}

	b.Draw(s, flat(64, 1), 12, 40, 1, 0)
	columns := map[int]bool{}
	for _, g := range s.glyphs {
		if g.y < 2 || g.y > 11 {
			t.Fatalf("bar glyph on row %d, outside 2..11", g.y)
		}
		if g.text != "████" {
			t.Fatalf("bar block = %q, want 4 cells", g.text)
		}
		columns[g.x] = true
	}
	if len(columns) != 10 {
		t.Errorf("drew %d bars, want 10", len(columns))
	}

	tests := []struct {
		key     viz.Key
		times   int
		want    float64
		handled bool
	}{
		{"b", 3, 0.8, true},
		{"B", 1, 0.7, true},
		{"b", 100, maxBoost, true},
		{"B", 100, minBoost, true},
		{"x", 1, minBoost, false},
	}
	for _, tt := range tests {
		for range tt.times {
			if got := b.HandleKey(tt.key); got != tt.handled {
				t.Fatalf("HandleKey(%q) = %v, want %v", tt.key, got, tt.handled)
			}
		}
		if math.Abs(b.Boost()-tt.want) > 1e-9 {
			t.Errorf("after %d x %q boost = %v, want %v", tt.times, tt.key, b.Boost(), tt.want)
		}
	}
}

func TestBars_InvalidOptions(t *testing.T) {
	f, _ := Catalog().Lookup("bars")
	for _, opts := range []string{"bars: 0\n", "bars: [1]\n"} {
		var node yaml.Node
		if err := yaml.Unmarshal([]byte(opts), &node); err != nil {
			t.Fatal(err)
		}
		if _, err := f(node.Content[0]); err == nil {
			t.Errorf("options %q accepted", opts)
		}
	}
}

func TestParticles(t *testing.T) {
	p := build(t, "particles", "seed: 7\n").(*Particles)

	for _, k := range []viz.Key{"p", "p", "P"} {
		p.HandleKey(k)
	}
	if p.Max() != 150 {
		t.Errorf("max = %d, want 150", p.Max())
	}
	for range 20 {
		p.HandleKey("p")
	}
	if p.Max() != maxParticles {
		t.Errorf("max = %d, want %d", p.Max(), maxParticles)
	}
	for range 20 {
		p.HandleKey("P")
	}
	if p.Max() != minParticles {
		t.Errorf("max = %d, want %d", p.Max(), minParticles)
	}

	s := &recordingSurface{height: 40, width: 80}
	for range 50 {
		p.Draw(s, viz.Spectrum{}, 40, 80, 1, 0)
		if p.Live() > p.Max() {
			t.Fatalf("live %d exceeds max %d", p.Live(), p.Max())
		}
	}

	// Below threshold nothing spawns and the fountain drains.
	for range 200 {
		p.Draw(s, viz.Spectrum{}, 40, 80, 0.05, 0)
	}
	if p.Live() != 0 {
		t.Errorf("live = %d after quiet period, want 0", p.Live())
	}
}

func TestFlame_Keys(t *testing.T) {
	f := build(t, "flame", "").(*Flame)
	for _, k := range []viz.Key{"w", "w", "h", "H", "H"} {
		if !f.HandleKey(k) {
			t.Fatalf("HandleKey(%q) not handled", k)
		}
	}
	if w, h := f.Size(); w != 90 || h != 28 {
		t.Errorf("size = %dx%d, want 90x28", w, h)
	}
	for range 100 {
		f.HandleKey("W")
	}
	if w, _ := f.Size(); w != 20 {
		t.Errorf("width = %d, want 20", w)
	}
	if f.HandleKey("q") {
		t.Error("unrelated key handled")
	}
}

func TestFlame_HeatStaysInRange(t *testing.T) {
	f := build(t, "flame", "seed: 3\n").(*Flame)
	s := &recordingSurface{height: 30, width: 60}
	for range 50 {
		f.Draw(s, flat(64, 1), 30, 60, 1, 0)
	}
	for i, v := range f.heat {
		if v < 0 || v > 1 {
			t.Fatalf("heat[%d] = %v outside [0,1]", i, v)
		}
	}
}

func TestMatrix(t *testing.T) {
	m := build(t, "matrix", "seed: 11\nmax_drops: 40\n").(*Matrix)
	s := &recordingSurface{height: 24, width: 80}

	for range 20 {
		m.Draw(s, flat(64, 0), 24, 80, 0, 0)
	}
	if m.Drops() != 0 {
		t.Errorf("silence spawned %d drops", m.Drops())
	}

	beat := flat(64, 1)
	beat.Beat = true
	for range 20 {
		m.Draw(s, beat, 24, 80, 1, 0)
		if m.Drops() > 40 {
			t.Fatalf("drops = %d, above max_drops", m.Drops())
		}
	}
	if m.Drops() == 0 {
		t.Error("loud input spawned no drops")
	}

	m.HandleKey("d")
	m.HandleKey("s")
	if m.opts == m.defaults {
		t.Fatal("keys did not change options")
	}
	m.HandleKey("r")
	if m.opts != m.defaults {
		t.Error("r did not reset options")
	}
}

func TestSprings_Settle(t *testing.T) {
	sp := build(t, "springs", "columns: 8\n").(*Springs)
	s := &recordingSurface{height: 20, width: 40}
	spec := flat(64, 0.5)

	overshoot := false
	for range 600 {
		sp.Draw(s, spec, 20, 40, 0.5, 0)
		if sp.Positions()[0] > 0.5 {
			overshoot = true
		}
	}
	if !overshoot {
		t.Error("underdamped spring never overshot")
	}
	for i, p := range sp.Positions() {
		if math.Abs(p-0.5) > 1e-3 {
			t.Errorf("column %d settled at %v, want 0.5", i, p)
		}
	}
}

func TestFrac(t *testing.T) {
	tests := []struct{ in, want float64 }{
		{0, 0}, {0.25, 0.25}, {1.5, 0.5}, {-0.25, 0.75}, {3, 0},
	}
	for _, tt := range tests {
		if got := frac(tt.in); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("frac(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
