package analysis

import "termviz/internal/log"

// BeatDetector flags onsets in the energy signal: energy at or above the
// threshold that rose by at least minRatio since the previous tick. After a
// beat, further beats are suppressed for cooldown ticks.
type BeatDetector struct {
	threshold  float64
	minRatio   float64
	cooldown   int
	remaining  int
	lastEnergy float64
}

// NewBeatDetector creates a detector. A ratio below 1 is treated as 1.
func NewBeatDetector(threshold, minRatio float64, cooldown int) *BeatDetector {
	log.Debugf("analysis: beat detector (threshold %.2f, min ratio %.2f, cooldown %d)", threshold, minRatio, cooldown)
	return &BeatDetector{
		threshold: threshold,
		minRatio:  max(minRatio, 1),
		cooldown:  max(cooldown, 0),
	}
}

// Update feeds one tick's energy and reports whether it is a beat.
func (d *BeatDetector) Update(energy float64) bool {
	last := d.lastEnergy
	d.lastEnergy = energy

	if d.remaining > 0 {
		d.remaining--
		return false
	}

	if energy < d.threshold || energy <= 0 {
		return false
	}
	if last > 0 && energy/last < d.minRatio {
		return false
	}

	d.remaining = d.cooldown
	return true
}

// Reset forgets the previous energy and any pending cooldown.
func (d *BeatDetector) Reset() {
	d.remaining = 0
	d.lastEnergy = 0
}
