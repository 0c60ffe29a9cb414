// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"testing"

	"vizmon/pkg/testsig"
)

func TestNewSpectrumSizing(t *testing.T) {
	tests := []struct {
		snapshotLen  int
		expectedNFFT int
	}{
		{16384, 4096}, // full segment clamps to the max transform
		{4096, 4096},  // exact power of two
		{1000, 512},   // rounds down, never longer than the snapshot
		{50, 128},     // tiny snapshots still get the minimum transform
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("len%d", tt.snapshotLen), func(t *testing.T) {
			s := NewSpectrum(44100, tt.snapshotLen, 12)
			if s.NFFT() != tt.expectedNFFT {
				t.Errorf("NFFT = %d for snapshot %d, expected %d",
					s.NFFT(), tt.snapshotLen, tt.expectedNFFT)
			}
		})
	}
}

func TestSpectrumMatches(t *testing.T) {
	s := NewSpectrum(44100, 4096, 12)

	if !s.Matches(44100, 4096) {
		t.Error("Matches rejected identical parameters")
	}
	if !s.Matches(44100, 16384) {
		t.Error("Matches rejected a longer snapshot")
	}
	if s.Matches(48000, 4096) {
		t.Error("Matches accepted a different sample rate")
	}
	if s.Matches(44100, 1024) {
		t.Error("Matches accepted a snapshot shorter than the transform")
	}
}

func TestLogBandEdges(t *testing.T) {
	const (
		rate  = 44100
		nfft  = 4096
		bands = 16
	)
	edges := logBandEdges(rate, nfft, bands)
	if len(edges) != bands {
		t.Fatalf("got %d bands, expected %d", len(edges), bands)
	}

	prevEnd := 0
	for i, e := range edges {
		if e[1] <= e[0] {
			t.Errorf("band %d is empty: [%d, %d)", i, e[0], e[1])
		}
		if e[0] < prevEnd {
			t.Errorf("band %d starts at %d before previous end %d", i, e[0], prevEnd)
		}
		if e[1] > nfft/2 {
			t.Errorf("band %d ends at %d past Nyquist bin %d", i, e[1], nfft/2)
		}
		prevEnd = e[1]
	}

	// Log spacing: the top band spans more bins than the bottom one.
	first := edges[0][1] - edges[0][0]
	last := edges[bands-1][1] - edges[bands-1][0]
	if last <= first {
		t.Errorf("top band spans %d bins, bottom %d, expected log growth", last, first)
	}
}

func TestBandDBSilenceFloor(t *testing.T) {
	s := NewSpectrum(44100, 4096, 12)
	db := s.BandDB(testsig.Silence(4096), nil)
	for i, d := range db {
		if d != histFloorDB {
			t.Errorf("band %d = %g for silence, expected floor %g", i, d, histFloorDB)
		}
	}
	for i, lv := range s.BandLevels(testsig.Silence(4096), nil) {
		if lv != 0 {
			t.Errorf("band level %d = %d for silence, expected 0", i, lv)
		}
	}
}

// A full-scale sine concentrates its energy in the band containing its
// frequency bin.
func TestBandDBSinePlacement(t *testing.T) {
	const (
		rate = 44100
		n    = 4096
		freq = 1000.0
	)
	s := NewSpectrum(rate, n, 12)
	db := s.BandDB(testsig.Sine(n, rate, freq, 1.0), nil)

	loudest := 0
	for i := range db {
		if db[i] > db[loudest] {
			loudest = i
		}
	}

	binF := float64(freq) * n / rate
	bin := int(binF)
	edge := s.bandEdges[loudest]
	if bin < edge[0]-1 || bin >= edge[1]+1 {
		t.Errorf("loudest band %d covers bins [%d, %d), expected to contain bin %d",
			loudest, edge[0], edge[1], bin)
	}
	if db[loudest] < -40 {
		t.Errorf("loudest band = %g dB for a full-scale sine, expected well above floor", db[loudest])
	}
}

// Same window, same output. The reused workspace must not leak state
// between calls.
func TestBandDBDeterministic(t *testing.T) {
	s := NewSpectrum(44100, 4096, 12)
	sine := testsig.Sine(4096, 44100, 1000, 0.8)
	noise := testsig.Harmonics(4096, 44100)

	first := append([]float64(nil), s.BandDB(sine, nil)...)
	s.BandDB(noise, nil) // perturb the workspace
	second := s.BandDB(sine, nil)

	for i := range first {
		if first[i] != second[i] {
			t.Errorf("band %d differs across calls: %g vs %g", i, first[i], second[i])
		}
	}
}

func TestBandLevelsRange(t *testing.T) {
	s := NewSpectrum(44100, 4096, 16)
	for _, ch := range [][]float64{
		testsig.Sine(4096, 44100, 100, 1.0),
		testsig.Sine(4096, 44100, 8000, 1.0),
		testsig.Harmonics(4096, 44100),
	} {
		for i, lv := range s.BandLevels(ch, nil) {
			if lv > HistLevelMax {
				t.Errorf("band %d level = %d, expected <= %d", i, lv, HistLevelMax)
			}
		}
	}
}

func BenchmarkBandDB(b *testing.B) {
	s := NewSpectrum(44100, 4096, 16)
	sine := testsig.Harmonics(4096, 44100)
	out := make([]float64, 16)

	b.ReportAllocs()
	for b.Loop() {
		s.BandDB(sine, out)
	}
}
