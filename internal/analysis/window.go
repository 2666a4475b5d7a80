// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/dsp/window"
)

// WindowFunc selects the analysis window applied before the FFT.
type WindowFunc int

const (
	BartlettHann WindowFunc = iota
	Blackman
	BlackmanHarris
	BlackmanNuttall
	FlatTop
	Hamming
	Hann
	Lanczos
	Nuttall
	Rectangular
)

var windowNames = map[WindowFunc]string{
	BartlettHann:    "BartlettHann",
	Blackman:        "Blackman",
	BlackmanHarris:  "BlackmanHarris",
	BlackmanNuttall: "BlackmanNuttall",
	FlatTop:         "FlatTop",
	Hamming:         "Hamming",
	Hann:            "Hann",
	Lanczos:         "Lanczos",
	Nuttall:         "Nuttall",
	Rectangular:     "Rectangular",
}

func (w WindowFunc) String() string {
	if name, ok := windowNames[w]; ok {
		return name
	}
	return fmt.Sprintf("WindowFunc(%d)", int(w))
}

// ParseWindowFunc converts a name (case-insensitive) to a WindowFunc. Unknown
// names return Hann and an error.
func ParseWindowFunc(name string) (WindowFunc, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "hanning" {
		return Hann, nil
	}
	for w, wn := range windowNames {
		if strings.ToLower(wn) == n {
			return w, nil
		}
	}
	return Hann, fmt.Errorf("unknown window function name: '%s'", name)
}

// windowCoefficients returns size coefficients of the selected window.
func windowCoefficients(size int, w WindowFunc) []float64 {
	// The gonum functions scale the slice in place, so start from ones.
	coeffs := make([]float64, size)
	for i := range coeffs {
		coeffs[i] = 1.0
	}
	switch w {
	case BartlettHann:
		window.BartlettHann(coeffs)
	case Blackman:
		window.Blackman(coeffs)
	case BlackmanHarris:
		window.BlackmanHarris(coeffs)
	case BlackmanNuttall:
		window.BlackmanNuttall(coeffs)
	case FlatTop:
		window.FlatTop(coeffs)
	case Hamming:
		window.Hamming(coeffs)
	case Lanczos:
		window.Lanczos(coeffs)
	case Nuttall:
		window.Nuttall(coeffs)
	case Rectangular:
		window.Rectangular(coeffs)
	default:
		window.Hann(coeffs)
	}
	return coeffs
}
