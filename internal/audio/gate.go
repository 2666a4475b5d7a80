// SPDX-License-Identifier: MIT
package audio

import "math"

// Gate silences frames whose peak amplitude is below a threshold so that
// background hiss does not keep the visualizer moving.
type Gate struct {
	enabled   bool
	threshold int32 // Absolute amplitude threshold (0-2147483647)
}

// NewGate creates an enabled gate. threshold is a fraction of full scale.
func NewGate(threshold float64) *Gate {
	g := &Gate{enabled: true}
	g.SetThreshold(threshold)
	return g
}

func (g *Gate) Enable() {
	g.enabled = true
}

func (g *Gate) Disable() {
	g.enabled = false
}

// SetThreshold adjusts the noise gate threshold.
// The value is in the range of 0.0-1.0 where 0=always open, 1=always closed.
func (g *Gate) SetThreshold(threshold float64) {
	threshold = max(0.0, min(threshold, 1.0))
	g.threshold = int32(threshold * float64(math.MaxInt32))
}

// Threshold returns the current threshold as a fraction of full scale.
func (g *Gate) Threshold() float64 {
	return float64(g.threshold) / float64(math.MaxInt32)
}

// Open reports whether the frame's peak exceeds the threshold. A disabled
// gate is always open.
func (g *Gate) Open(samples []int32) bool {
	if !g.enabled {
		return true
	}
	return Peak(samples) > g.threshold
}

// Apply zeroes samples in place when the gate is closed and reports whether
// the frame passed.
func (g *Gate) Apply(samples []int32) bool {
	if g.Open(samples) {
		return true
	}
	clear(samples)
	return false
}

// Peak returns the largest absolute sample value without branching on the
// sample sign. math.MinInt32 saturates to math.MaxInt32.
func Peak(samples []int32) int32 {
	var peak int32
	for _, sample := range samples {
		mask := sample >> 31
		amplitude := (sample ^ mask) - mask
		if amplitude < 0 { // MinInt32 overflows back to itself
			amplitude = math.MaxInt32
		}
		diff := amplitude - peak
		peak += diff & ^(diff >> 31)
	}
	return peak
}
