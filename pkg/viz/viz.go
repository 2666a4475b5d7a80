// SPDX-License-Identifier: MIT
/*
Package viz defines the contract between termviz and its visualizer plugins.

A plugin is any value implementing Visualizer. Two optional capabilities may
be implemented alongside it:

  - Setupper: called once after the plugin is loaded. An error drops the
    plugin from the registry.
  - KeyHandler: receives keys the global key map did not consume.

Plugins never reach for process state directly. Everything a frame needs is
passed to Draw: the drawing surface, the smoothed spectrum, the current
terminal dimensions, the energy scalar and the hue offset.

Plugins built with -buildmode=plugin must export:

	func NewVisualizer() viz.Visualizer
*/
package viz

import "time"

// Visualizer is the mandatory plugin capability.
type Visualizer interface {
	// Name is the display name shown in the status line.
	Name() string

	// Draw renders one frame. height and width are re-read every tick and
	// hueOffset cycles in [0,1). A returned error (or a panic) skips the
	// frame but keeps the plugin active.
	Draw(s Surface, spectrum Spectrum, height, width int, energy, hueOffset float64) error
}

// Setupper is implemented by plugins that need one-off initialisation.
type Setupper interface {
	Setup() error
}

// KeyHandler is implemented by plugins with their own key bindings. The
// return value reports whether the key was consumed.
type KeyHandler interface {
	HandleKey(k Key) bool
}

// Surface is the drawing handle passed to Draw.
type Surface interface {
	// ColorHSV returns a palette slot for the colour, h, s and v in [0,1].
	ColorHSV(h, s, v float64) Slot
	// ColorRGB returns a palette slot for the colour.
	ColorRGB(r, g, b uint8) Slot
	// DrawGlyph writes text starting at row y, column x. Cells outside the
	// terminal are silently dropped.
	DrawGlyph(y, x int, text string, slot Slot, attrs Attr)
	// Dimensions returns the terminal height and width for this frame.
	Dimensions() (height, width int)
}

// Spectrum is the per-tick feature set handed to plugins. It must be treated
// as read-only.
type Spectrum struct {
	Bands    []float64 // Smoothed band magnitudes, low to high frequency, all >= 0.
	Energy   float64   // Bass-weighted loudness, sensitivity scaled, >= 0.
	Beat     bool      // Energy crossed the configured beat threshold this tick.
	Captured time.Time // Capture time of the audio frame the bands came from.
}

// Mean returns the average of Bands[lo:hi], clamped to the valid range.
func (s Spectrum) Mean(lo, hi int) float64 {
	if lo < 0 {
		lo = 0
	}
	if hi > len(s.Bands) {
		hi = len(s.Bands)
	}
	if hi <= lo {
		return 0
	}
	var sum float64
	for _, v := range s.Bands[lo:hi] {
		sum += v
	}
	return sum / float64(hi-lo)
}

// At returns the band at i, or 0 when i is out of range.
func (s Spectrum) At(i int) float64 {
	if i < 0 || i >= len(s.Bands) {
		return 0
	}
	return s.Bands[i]
}

// Slot identifies a palette entry. Slot 0 is the terminal's default colour.
type Slot int

// DefaultSlot draws with the terminal's default foreground.
const DefaultSlot Slot = 0

// Attr is a set of text attributes.
type Attr uint8

const (
	AttrBold Attr = 1 << iota
	AttrDim
	AttrReverse
	AttrUnderline
	AttrBlink

	AttrNone Attr = 0
)

// Key is a single key press. Printable keys are the rune itself ("q", "+",
// " "); other keys use lower-case names such as "ctrl+c", "esc" or "up".
type Key string

// String implements fmt.Stringer so keys can be matched against key bindings.
func (k Key) String() string { return string(k) }
