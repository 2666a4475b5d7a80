package config

import (
	"math"
	"time"
)

// FrameInterval is the target time between frame loop ticks.
func (c *Config) FrameInterval() time.Duration {
	return time.Second / time.Duration(c.Display.FPS)
}

// FrameDuration is the span of audio carried by one captured frame.
func (c *Config) FrameDuration() time.Duration {
	return time.Duration(float64(c.Audio.FramesPerBuffer) / c.Audio.SampleRate * float64(time.Second))
}

// BinHz is the width of one FFT bin.
func (c *Config) BinHz() float64 {
	return c.Audio.SampleRate / float64(c.Audio.FramesPerBuffer)
}

// ClampSensitivity limits v to the configured sensitivity range, rounded to
// the step so repeated adjustments do not drift.
func (c *Config) ClampSensitivity(v float64) float64 {
	d := c.Display
	if d.SensitivityStep > 0 {
		v = math.Round(v/d.SensitivityStep) * d.SensitivityStep
	}
	return math.Max(d.MinSensitivity, math.Min(d.MaxSensitivity, v))
}
