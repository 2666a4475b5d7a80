// SPDX-License-Identifier: MIT
package surface

import (
	"math"

	list "github.com/bahlo/generic-list-go"
	"github.com/gdamore/tcell/v2"
	colorful "github.com/lucasb-eyer/go-colorful"

	"termviz/pkg/viz"
)

// ColorMode is the colour depth the palette renders to.
type ColorMode int

const (
	ModeBasic     ColorMode = iota // 8 colours, bright shades via bold
	Mode256                        // xterm 256 colour cube
	ModeTrueColor                  // 24-bit RGB
)

func (m ColorMode) String() string {
	switch m {
	case ModeBasic:
		return "8 colours"
	case Mode256:
		return "256 colours"
	default:
		return "truecolor"
	}
}

// ModeFor picks the mode for a terminal reporting colors colours.
func ModeFor(colors int) ColorMode {
	switch {
	case colors >= 1<<24:
		return ModeTrueColor
	case colors >= 256:
		return Mode256
	default:
		return ModeBasic
	}
}

// colorKey identifies a quantised colour.
type colorKey uint32

type slot struct {
	id      viz.Slot
	key     colorKey
	r, g, b uint8 // representative colour of key
	style   tcell.Style
	frame   uint64 // last frame the slot was handed out in
}

// PaletteStats reports cache behaviour.
type PaletteStats struct {
	Live      int
	Capacity  int
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// Palette maps quantised colours to a bounded set of reusable slots. When
// full, the least recently used slot that has not been handed out in the
// current frame is reassigned. Slot 0 is the terminal default and is never
// allocated or evicted.
type Palette struct {
	mode     ColorMode
	levels   int
	capacity int

	lru   *list.List[*slot] // front is most recently used
	byKey map[colorKey]*list.Element[*slot]
	byID  []*slot // index is the slot id; byID[0] is nil
	frame uint64

	stats PaletteStats
}

// NewPalette creates a palette. levels is the number of quantisation steps
// per RGB channel; capacity is the slot ceiling.
func NewPalette(mode ColorMode, levels, capacity int) *Palette {
	levels = max(2, min(levels, 256))
	capacity = max(1, capacity)
	if mode == ModeBasic {
		capacity = min(capacity, 16)
	}
	return &Palette{
		mode:     mode,
		levels:   levels,
		capacity: capacity,
		lru:      list.New[*slot](),
		byKey:    make(map[colorKey]*list.Element[*slot], capacity),
		byID:     make([]*slot, 1, capacity+1),
		stats:    PaletteStats{Capacity: capacity},
	}
}

// BeginFrame starts a new frame. Slots handed out from now on are pinned
// until the next BeginFrame.
func (p *Palette) BeginFrame() {
	p.frame++
}

// HSV returns the slot for a colour with h, s and v in [0,1]. h wraps.
func (p *Palette) HSV(h, s, v float64) viz.Slot {
	h = math.Mod(h, 1)
	if h < 0 {
		h++
	}
	c := colorful.Hsv(h*360, clamp01(s), clamp01(v)).Clamped()
	r, g, b := c.RGB255()
	return p.RGB(r, g, b)
}

// RGB returns the slot for a colour.
func (p *Palette) RGB(r, g, b uint8) viz.Slot {
	key, qr, qg, qb := p.quantize(r, g, b)

	if e, ok := p.byKey[key]; ok {
		p.stats.Hits++
		e.Value.frame = p.frame
		p.lru.MoveToFront(e)
		return e.Value.id
	}
	p.stats.Misses++

	if p.lru.Len() < p.capacity {
		s := &slot{id: viz.Slot(len(p.byID))}
		p.byID = append(p.byID, s)
		p.assign(s, key, qr, qg, qb)
		p.byKey[key] = p.lru.PushFront(s)
		return s.id
	}

	for e := p.lru.Back(); e != nil; e = e.Prev() {
		s := e.Value
		if s.frame == p.frame {
			continue
		}
		delete(p.byKey, s.key)
		p.assign(s, key, qr, qg, qb)
		p.byKey[key] = e
		p.lru.MoveToFront(e)
		p.stats.Evictions++
		return s.id
	}

	// Every slot is in use by this frame; share the closest one.
	return p.nearest(qr, qg, qb)
}

// Style returns the terminal style of a slot. Unknown ids and slot 0 map to
// the default style.
func (p *Palette) Style(id viz.Slot) tcell.Style {
	if id <= 0 || int(id) >= len(p.byID) {
		return tcell.StyleDefault
	}
	return p.byID[id].style
}

// Stats returns a snapshot of the cache counters.
func (p *Palette) Stats() PaletteStats {
	st := p.stats
	st.Live = p.lru.Len()
	return st
}

// Mode returns the colour mode.
func (p *Palette) Mode() ColorMode { return p.mode }

func (p *Palette) assign(s *slot, key colorKey, r, g, b uint8) {
	s.key = key
	s.r, s.g, s.b = r, g, b
	s.frame = p.frame
	s.style = p.styleFor(r, g, b)
}

// quantize maps a colour onto the palette's grid and returns the key and the
// grid point's colour.
func (p *Palette) quantize(r, g, b uint8) (colorKey, uint8, uint8, uint8) {
	if p.mode == ModeBasic {
		idx := basicIndex(r, g, b)
		br, bg, bb := basicRGB(idx)
		return colorKey(idx), br, bg, bb
	}
	n := p.levels - 1
	step := func(c uint8) int { return int(math.Round(float64(c) * float64(n) / 255)) }
	back := func(q int) uint8 { return uint8(math.Round(float64(q) * 255 / float64(n))) }

	qr, qg, qb := step(r), step(g), step(b)
	key := colorKey((qr*p.levels+qg)*p.levels + qb)
	return key, back(qr), back(qg), back(qb)
}

func (p *Palette) styleFor(r, g, b uint8) tcell.Style {
	switch p.mode {
	case ModeTrueColor:
		return tcell.StyleDefault.Foreground(tcell.NewRGBColor(int32(r), int32(g), int32(b)))
	case Mode256:
		cube := func(c uint8) int { return int(math.Round(float64(c) * 5 / 255)) }
		return tcell.StyleDefault.Foreground(tcell.PaletteColor(16 + 36*cube(r) + 6*cube(g) + cube(b)))
	default:
		idx := basicIndex(r, g, b)
		return tcell.StyleDefault.Foreground(tcell.PaletteColor(idx & 7)).Bold(idx >= 8)
	}
}

func (p *Palette) nearest(r, g, b uint8) viz.Slot {
	best, bestDist := viz.DefaultSlot, math.MaxInt
	for e := p.lru.Front(); e != nil; e = e.Next() {
		s := e.Value
		dr, dg, db := int(s.r)-int(r), int(s.g)-int(g), int(s.b)-int(b)
		if d := dr*dr + dg*dg + db*db; d < bestDist {
			best, bestDist = s.id, d
		}
	}
	return best
}

// basicIndex maps a colour onto the 8 ANSI colours plus their bright
// variants (8-15). A channel is on when it is at least half its maximum;
// the colour is bright when its value is high.
func basicIndex(r, g, b uint8) int {
	hi := max(r, g, b)
	if hi < 48 {
		return 0
	}
	on := func(c uint8) int {
		if int(c)*2 >= int(hi) {
			return 1
		}
		return 0
	}
	idx := on(r) | on(g)<<1 | on(b)<<2
	if hi >= 192 {
		idx += 8
	}
	return idx
}

// basicRGB returns the nominal colour of an ANSI index.
func basicRGB(idx int) (uint8, uint8, uint8) {
	level := uint8(128)
	if idx >= 8 {
		level = 255
	}
	var r, g, b uint8
	if idx&1 != 0 {
		r = level
	}
	if idx&2 != 0 {
		g = level
	}
	if idx&4 != 0 {
		b = level
	}
	return r, g, b
}

func clamp01(v float64) float64 {
	return max(0, min(v, 1))
}
