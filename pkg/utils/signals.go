// SPDX-License-Identifier: MIT
package utils

import (
	"math"
	"math/rand"
)

// fullScale is the int32 headroom used by every generator so that summed
// partials never wrap.
const fullScale = math.MaxInt32 * 0.9

// GenerateSineWave returns size samples of a sine at frequency Hz.
func GenerateSineWave(size int, sampleRate, frequency float64) []int32 {
	buffer := make([]int32, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = int32(math.Sin(2*math.Pi*frequency*t) * fullScale)
	}
	return buffer
}

// GenerateComplexWave returns a 440Hz fundamental with its 2nd and 3rd
// harmonics.
func GenerateComplexWave(size int, sampleRate float64) []int32 {
	buffer := make([]int32, size)
	for i := range buffer {
		tm := float64(i) / sampleRate
		signal := math.Sin(2*math.Pi*440*tm)*0.5 +
			math.Sin(2*math.Pi*880*tm)*0.3 +
			math.Sin(2*math.Pi*1320*tm)*0.2
		buffer[i] = int32(signal * fullScale)
	}
	return buffer
}

// GenerateBinBurst sums sines centred exactly on the given FFT bins, each at
// amplitude amp (fraction of full scale). Bin-centred partials keep the Hann
// main lobe from smearing beyond the neighbouring bins, which makes band
// assertions deterministic.
func GenerateBinBurst(size int, bins []int, amp float64) []int32 {
	buffer := make([]int32, size)
	for i := range buffer {
		var signal float64
		for _, k := range bins {
			signal += math.Sin(2 * math.Pi * float64(k) * float64(i) / float64(size))
		}
		buffer[i] = int32(signal * amp * fullScale)
	}
	return buffer
}

// GenerateNoise returns uniformly distributed noise at amp of full scale. The
// seed keeps test runs reproducible.
func GenerateNoise(size int, amp float64, seed int64) []int32 {
	rng := rand.New(rand.NewSource(seed))
	buffer := make([]int32, size)
	for i := range buffer {
		buffer[i] = int32((rng.Float64()*2 - 1) * amp * fullScale)
	}
	return buffer
}

// FindPeakBin returns the index of the largest value in values[startBin:endBin+1].
func FindPeakBin(values []float64, startBin, endBin int) int {
	if len(values) == 0 {
		return 0
	}
	if startBin < 0 {
		startBin = 0
	}
	if endBin >= len(values) {
		endBin = len(values) - 1
	}

	peakBin := startBin
	peakValue := values[startBin]
	for bin := startBin + 1; bin <= endBin; bin++ {
		if values[bin] > peakValue {
			peakValue = values[bin]
			peakBin = bin
		}
	}
	return peakBin
}
