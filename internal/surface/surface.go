// SPDX-License-Identifier: MIT
/*
Package surface owns the terminal while the visualizer runs.

It wraps a tcell.Screen with:
- A bounded colour Palette keyed by quantised colour
- Bounds-checked glyph drawing against the size captured per frame
- A non-blocking key pump fed by tcell's event channel

All methods except Close must be called from the frame loop goroutine.
*/
package surface

import (
	"fmt"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	"termviz/internal/config"
	"termviz/internal/log"
	"termviz/pkg/viz"
)

// eventBacklog bounds the events buffered between tcell and PollKey.
const eventBacklog = 64

// Surface implements viz.Surface on top of a tcell screen.
type Surface struct {
	screen  tcell.Screen
	palette *Palette

	height, width int

	events chan tcell.Event
	quit   chan struct{}

	closeOnce sync.Once
}

var _ viz.Surface = (*Surface)(nil)

// Open initialises the controlling terminal and returns a Surface on it.
func Open(cfg config.DisplayConfig) (*Surface, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("failed to create terminal screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialise terminal screen: %w", err)
	}
	return New(screen, cfg), nil
}

// New wraps an initialised screen. The Surface takes ownership and finalises
// the screen on Close.
func New(screen tcell.Screen, cfg config.DisplayConfig) *Surface {
	mode := ModeFor(screen.Colors())
	s := &Surface{
		screen:  screen,
		palette: NewPalette(mode, cfg.ColorLevels, cfg.PaletteCapacity),
		events:  make(chan tcell.Event, eventBacklog),
		quit:    make(chan struct{}),
	}

	screen.HideCursor()
	screen.SetStyle(tcell.StyleDefault)
	screen.Clear()
	s.width, s.height = screen.Size()

	go screen.ChannelEvents(s.events, s.quit)

	log.Infof("surface: %dx%d terminal, %s, palette capacity %d",
		s.width, s.height, mode, s.palette.Stats().Capacity)
	return s
}

// BeginFrame captures the current terminal size, clears the screen and
// starts a palette frame.
func (s *Surface) BeginFrame() {
	s.width, s.height = s.screen.Size()
	s.screen.Clear()
	s.palette.BeginFrame()
}

// EndFrame flushes the frame to the terminal.
func (s *Surface) EndFrame() {
	s.screen.Show()
}

// Render brackets fn with BeginFrame and EndFrame. The frame is flushed even
// if fn panics.
func (s *Surface) Render(fn func() error) error {
	s.BeginFrame()
	defer s.EndFrame()
	return fn()
}

// Show flushes pending changes without clearing.
func (s *Surface) Show() {
	s.screen.Show()
}

// ClearRow blanks row y.
func (s *Surface) ClearRow(y int) {
	if y < 0 || y >= s.height {
		return
	}
	for x := range s.width {
		s.screen.SetContent(x, y, ' ', nil, tcell.StyleDefault)
	}
}

// Dimensions returns the size captured by the last BeginFrame.
func (s *Surface) Dimensions() (height, width int) {
	return s.height, s.width
}

// ColorHSV returns a palette slot for an HSV colour.
func (s *Surface) ColorHSV(h, sat, v float64) viz.Slot {
	return s.palette.HSV(h, sat, v)
}

// ColorRGB returns a palette slot for an RGB colour.
func (s *Surface) ColorRGB(r, g, b uint8) viz.Slot {
	return s.palette.RGB(r, g, b)
}

// DrawGlyph writes text at (y, x). Cells outside the frame's bounds are
// dropped; a wide rune that would straddle the right edge is dropped too.
func (s *Surface) DrawGlyph(y, x int, text string, slot viz.Slot, attrs viz.Attr) {
	if y < 0 || y >= s.height || x >= s.width {
		return
	}
	style := applyAttrs(s.palette.Style(slot), attrs)

	for _, r := range text {
		w := runewidth.RuneWidth(r)
		if w == 0 {
			continue
		}
		if x >= s.width || x+w > s.width {
			return
		}
		if x >= 0 {
			s.screen.SetContent(x, y, r, nil, style)
		}
		x += w
	}
}

func applyAttrs(st tcell.Style, attrs viz.Attr) tcell.Style {
	if attrs&viz.AttrBold != 0 {
		st = st.Bold(true)
	}
	if attrs&viz.AttrDim != 0 {
		st = st.Dim(true)
	}
	if attrs&viz.AttrReverse != 0 {
		st = st.Reverse(true)
	}
	if attrs&viz.AttrUnderline != 0 {
		st = st.Underline(true)
	}
	if attrs&viz.AttrBlink != 0 {
		st = st.Blink(true)
	}
	return st
}

// PollKey returns the next pending key press without blocking. Resize
// events are handled on the way by resynchronising the screen.
func (s *Surface) PollKey() (viz.Key, bool) {
	for {
		select {
		case ev, ok := <-s.events:
			if !ok {
				return "", false
			}
			switch ev := ev.(type) {
			case *tcell.EventResize:
				s.screen.Sync()
			case *tcell.EventKey:
				if k, ok := KeyName(ev); ok {
					return k, true
				}
				log.Debugf("surface: ignoring unnamed key %s", ev.Name())
			}
		default:
			return "", false
		}
	}
}

// Palette returns the colour palette.
func (s *Surface) Palette() *Palette { return s.palette }

// Close stops the key pump and restores the terminal. It is safe to call
// more than once.
func (s *Surface) Close() error {
	s.closeOnce.Do(func() {
		close(s.quit)
		s.screen.Fini()
		st := s.palette.Stats()
		log.Infof("surface: closed (palette live %d, hits %d, misses %d, evictions %d)",
			st.Live, st.Hits, st.Misses, st.Evictions)
	})
	return nil
}
