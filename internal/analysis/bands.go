package analysis

import (
	"fmt"
	"math"
)

// bandEdges splits the FFT bins between minHz and maxHz into n
// logarithmically spaced bands. Band b covers bins [edges[b], edges[b+1]).
// Every band holds at least one bin, so low bands, where the log spacing is
// narrower than a bin, are one bin wide.
func bandEdges(n, fftSize int, sampleRate, minHz, maxHz float64) ([]int, error) {
	binHz := sampleRate / float64(fftSize)
	lo := max(1, int(minHz/binHz))
	hi := min(fftSize/2, int(maxHz/binHz)+1)

	if hi-lo < n {
		return nil, fmt.Errorf("%d bands requested but only %d FFT bins lie between %.0f and %.0f Hz",
			n, hi-lo, minHz, maxHz)
	}

	edges := make([]int, n+1)
	ratio := float64(hi) / float64(lo)
	for b := range edges {
		e := int(math.Round(float64(lo) * math.Pow(ratio, float64(b)/float64(n))))
		if b > 0 && e <= edges[b-1] {
			e = edges[b-1] + 1
		}
		edges[b] = e
	}

	// Forcing low edges apart can push the top ones past hi; pull them back
	// while keeping one bin per band.
	edges[n] = hi
	for b := n - 1; b > 0 && edges[b] >= edges[b+1]; b-- {
		edges[b] = edges[b+1] - 1
	}
	return edges, nil
}
