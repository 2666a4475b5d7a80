package analysis

import (
	"strings"
	"testing"
)

func TestBandEdges(t *testing.T) {
	tests := []struct {
		name           string
		n, size        int
		rate, min, max float64
	}{
		{"default", 64, 2048, 44100, 30, 16000},
		{"small fft", 16, 256, 44100, 30, 16000},
		{"tight", 100, 256, 44100, 20, 20000},
		{"high rate", 128, 4096, 96000, 20, 40000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			edges, err := bandEdges(tt.n, tt.size, tt.rate, tt.min, tt.max)
			if err != nil {
				t.Fatalf("bandEdges() error: %v", err)
			}
			if len(edges) != tt.n+1 {
				t.Fatalf("len(edges) = %d, want %d", len(edges), tt.n+1)
			}
			if edges[0] < 1 {
				t.Errorf("first edge %d includes the DC bin", edges[0])
			}
			if edges[tt.n] > tt.size/2 {
				t.Errorf("last edge %d beyond Nyquist bin %d", edges[tt.n], tt.size/2)
			}
			for b := 1; b < len(edges); b++ {
				if edges[b] <= edges[b-1] {
					t.Fatalf("edges not strictly increasing at %d: %v", b, edges)
				}
			}
		})
	}
}

func TestBandEdges_LogSpacing(t *testing.T) {
	edges, err := bandEdges(64, 2048, 44100, 30, 16000)
	if err != nil {
		t.Fatal(err)
	}
	// Low bands are single bins, high bands span many.
	if w := edges[1] - edges[0]; w != 1 {
		t.Errorf("first band width = %d bins, want 1", w)
	}
	if w := edges[64] - edges[63]; w < 10 {
		t.Errorf("last band width = %d bins, want a wide band", w)
	}
}

func TestBandEdges_TooManyBands(t *testing.T) {
	_, err := bandEdges(200, 256, 44100, 30, 16000)
	if err == nil || !strings.Contains(err.Error(), "200 bands requested") {
		t.Errorf("expected too many bands error, got %v", err)
	}
}

func TestParseWindowFunc(t *testing.T) {
	tests := []struct {
		in      string
		want    WindowFunc
		wantErr bool
	}{
		{"Hann", Hann, false},
		{"hanning", Hann, false},
		{"BLACKMANHARRIS", BlackmanHarris, false},
		{" flattop ", FlatTop, false},
		{"rectangular", Rectangular, false},
		{"gaussian", Hann, true},
	}
	for _, tt := range tests {
		got, err := ParseWindowFunc(tt.in)
		if got != tt.want || (err != nil) != tt.wantErr {
			t.Errorf("ParseWindowFunc(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestWindowCoefficients(t *testing.T) {
	hann := windowCoefficients(8, Hann)
	if hann[0] != 0 {
		t.Errorf("Hann starts at %v, want 0", hann[0])
	}
	rect := windowCoefficients(8, Rectangular)
	for i, c := range rect {
		if c != 1 {
			t.Errorf("rectangular coefficient %d = %v", i, c)
		}
	}
}
