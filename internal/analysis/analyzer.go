// SPDX-License-Identifier: MIT
/*
Package analysis turns audio frames into spectra for the visualizers.

Per frame the Analyzer windows the samples, takes the real FFT, compresses
each bin's magnitude to a 0..1 decibel scale, averages the bins into
log-spaced bands, scales by sensitivity and smooths each band with an
exponential moving average. Energy is a bass-weighted mean of the smoothed
bands and drives the BeatDetector.

An Analyzer is owned by the frame loop goroutine and is not safe for
concurrent use.
*/
package analysis

import (
	"fmt"
	"math"
	"math/cmplx"

	"termviz/internal/audio"
	"termviz/internal/config"
	"termviz/internal/log"
	"termviz/pkg/bitint"
	"termviz/pkg/viz"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Config combines the frame geometry with the tuning parameters.
type Config struct {
	FrameSize  int
	SampleRate float64
	config.AnalysisConfig
}

// ConfigFrom builds an analyzer Config from the application configuration.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		FrameSize:      cfg.Audio.FramesPerBuffer,
		SampleRate:     cfg.Audio.SampleRate,
		AnalysisConfig: cfg.Analysis,
	}
}

// Pre-allocated buffers, reused every frame.
type workspace struct {
	input  []float64    // Windowed samples scaled to [-1, 1).
	coeffs []complex128 // FFT output, N/2+1 bins.
	level  []float64    // Compressed per-bin level in [0, ~1].
}

// Analyzer converts audio frames into viz.Spectrum values.
type Analyzer struct {
	cfg    Config
	fft    *fourier.FFT
	window []float64
	scale  float64 // Converts FFT magnitude to sine amplitude.
	edges  []int

	weights   []float64
	weightSum float64

	smooth []float64
	beat   *BeatDetector
	ws     workspace
}

// New validates cfg and prepares the FFT, window and band layout.
func New(cfg Config) (*Analyzer, error) {
	if !bitint.IsPowerOfTwo(cfg.FrameSize) {
		return nil, fmt.Errorf("frame size must be a power of 2, got %d", cfg.FrameSize)
	}
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %f", cfg.SampleRate)
	}
	if cfg.Smoothing <= 0 || cfg.Smoothing > 1 {
		return nil, fmt.Errorf("smoothing must be in (0, 1], got %g", cfg.Smoothing)
	}
	if cfg.FloorDB <= 0 {
		return nil, fmt.Errorf("floor_db must be positive, got %g", cfg.FloorDB)
	}
	if cfg.BassFocus <= 0 {
		return nil, fmt.Errorf("bass_focus must be positive, got %g", cfg.BassFocus)
	}

	wf, err := ParseWindowFunc(cfg.Window)
	if err != nil {
		return nil, err
	}

	edges, err := bandEdges(cfg.Bands, cfg.FrameSize, cfg.SampleRate, cfg.MinHz, cfg.MaxHz)
	if err != nil {
		return nil, err
	}

	coeffs := windowCoefficients(cfg.FrameSize, wf)
	var sum float64
	for _, c := range coeffs {
		sum += c
	}

	weights := make([]float64, cfg.Bands)
	var weightSum float64
	for i := range weights {
		weights[i] = math.Exp(-float64(i) / (cfg.BassFocus * float64(cfg.Bands)))
		weightSum += weights[i]
	}

	log.Infof("analysis: %d-point FFT at %.0f Hz, %s window, %d bands %.0f-%.0f Hz",
		cfg.FrameSize, cfg.SampleRate, wf, cfg.Bands, cfg.MinHz, cfg.MaxHz)

	bins := cfg.FrameSize/2 + 1
	return &Analyzer{
		cfg:       cfg,
		fft:       fourier.NewFFT(cfg.FrameSize),
		window:    coeffs,
		scale:     2 / sum,
		edges:     edges,
		weights:   weights,
		weightSum: weightSum,
		smooth:    make([]float64, cfg.Bands),
		beat:      NewBeatDetector(cfg.BeatThreshold, cfg.BeatRatio, cfg.BeatCooldown),
		ws: workspace{
			input:  make([]float64, cfg.FrameSize),
			coeffs: make([]complex128, bins),
			level:  make([]float64, bins),
		},
	}, nil
}

// Analyze produces the spectrum for one frame. A frame whose length differs
// from the configured frame size is a programming error and panics.
func (a *Analyzer) Analyze(frame audio.Frame, sensitivity float64) viz.Spectrum {
	if frame.Len() != a.cfg.FrameSize {
		panic(fmt.Sprintf("analysis: frame has %d samples, analyzer expects %d", frame.Len(), a.cfg.FrameSize))
	}
	sensitivity = max(sensitivity, 0)

	// 1. Window and normalise int32 samples to [-1.0, 1.0).
	const normFactor = 1.0 / float64(0x80000000)
	for i, s := range frame.Samples {
		a.ws.input[i] = float64(s) * normFactor * a.window[i]
	}

	// 2. FFT, then compress each bin to the decibel scale.
	a.fft.Coefficients(a.ws.coeffs, a.ws.input)
	floor := a.cfg.FloorDB
	for i, c := range a.ws.coeffs {
		a.ws.level[i] = compress(cmplx.Abs(c)*a.scale, floor)
	}

	// 3. Average bins into bands, scale and smooth.
	alpha := a.cfg.Smoothing
	var weighted float64
	for b := range a.smooth {
		lo, hi := a.edges[b], a.edges[b+1]
		var sum float64
		for _, v := range a.ws.level[lo:hi] {
			sum += v
		}
		v := sum / float64(hi-lo) * sensitivity

		v = alpha*v + (1-alpha)*a.smooth[b]
		a.smooth[b] = v
		weighted += a.weights[b] * v
	}

	// 4. Bass-weighted energy and beat detection.
	energy := a.cfg.EnergyGain * weighted / a.weightSum

	bands := make([]float64, len(a.smooth))
	copy(bands, a.smooth)

	return viz.Spectrum{
		Bands:    bands,
		Energy:   energy,
		Beat:     a.beat.Update(energy),
		Captured: frame.Captured,
	}
}

// compress maps a linear magnitude onto [0, 1] over floor decibels: full
// scale is 1, anything floor dB quieter or less is 0.
func compress(m, floor float64) float64 {
	if m <= 0 {
		return 0
	}
	return max(0, (20*math.Log10(m)+floor)/floor)
}

// Bands returns the number of bands per spectrum.
func (a *Analyzer) Bands() int { return a.cfg.Bands }

// BandRange returns the frequency range covered by band b.
func (a *Analyzer) BandRange(b int) (lowHz, highHz float64) {
	if b < 0 || b >= a.cfg.Bands {
		return 0, 0
	}
	binHz := a.cfg.SampleRate / float64(a.cfg.FrameSize)
	return float64(a.edges[b]) * binHz, float64(a.edges[b+1]) * binHz
}

// Reset clears the smoothing history and beat state.
func (a *Analyzer) Reset() {
	clear(a.smooth)
	a.beat.Reset()
}
