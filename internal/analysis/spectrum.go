// SPDX-License-Identifier: MIT
package analysis

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"

	"vizmon/pkg/bitint"
)

// FFT sizing limits. The transform length adapts to the snapshot length but
// stays inside these bounds.
const (
	fftMin = 128
	fftMax = 4096

	// spectrumMinHz is the low edge of the first band.
	spectrumMinHz = 20.0
)

// spectrumWorkspace holds the pre-allocated buffers for one transform.
type spectrumWorkspace struct {
	input  []float64    // windowed real input
	coeffs []complex128 // FFT output, nfft/2+1 bins
	power  []float64    // one-sided normalized power per bin
	window []float64    // Hann coefficients
}

// Spectrum converts a PCM window into per-band display levels using a
// power-of-two FFT with a Hann window and logarithmically spaced band edges.
// It is pure with respect to its input: the plan and buffers are reused
// across calls but never influence the output.
type Spectrum struct {
	sampleRate int
	nfft       int
	bands      int
	fftObj     *fourier.FFT
	powerScale float64 // (2 / sum(window))^2, single-sided normalization
	bandEdges  [][2]int
	workspace  spectrumWorkspace
}

// NewSpectrum builds a spectrum engine for the given sample rate, snapshot
// length and band count. The FFT length is the largest power of two not
// exceeding the snapshot, clamped to [fftMin, fftMax].
func NewSpectrum(sampleRate, snapshotLen, bands int) *Spectrum {
	want := snapshotLen
	if want < fftMin {
		want = fftMin
	}
	nfft := bitint.NextPowerOfTwo(want)
	if nfft > want {
		nfft >>= 1 // never longer than the snapshot when avoidable
	}
	if nfft < fftMin {
		nfft = fftMin
	}
	if nfft > fftMax {
		nfft = fftMax
	}

	win := make([]float64, nfft)
	for i := range win {
		win[i] = 1.0
	}
	window.Hann(win)

	var winSum float64
	for _, w := range win {
		winSum += w
	}
	powerScale := (2.0 / winSum) * (2.0 / winSum)

	s := &Spectrum{
		sampleRate: sampleRate,
		nfft:       nfft,
		bands:      bands,
		fftObj:     fourier.NewFFT(nfft),
		powerScale: powerScale,
		bandEdges:  logBandEdges(sampleRate, nfft, bands),
		workspace: spectrumWorkspace{
			input:  make([]float64, nfft),
			coeffs: make([]complex128, nfft/2+1),
			power:  make([]float64, nfft/2),
			window: win,
		},
	}
	return s
}

// Matches reports whether the engine fits the given stream parameters.
// A shrinking snapshot forces a rebuild so the transform never zero-pads
// more than half its length.
func (s *Spectrum) Matches(sampleRate, snapshotLen int) bool {
	return s.sampleRate == sampleRate && snapshotLen >= s.nfft
}

// Bands returns the configured band count.
func (s *Spectrum) Bands() int { return s.bands }

// NFFT returns the transform length.
func (s *Spectrum) NFFT() int { return s.nfft }

// logBandEdges splits FFT bins into perceptually (log) spaced bands from
// spectrumMinHz up to just below Nyquist. Every band covers at least one bin.
func logBandEdges(sampleRate, nfft, bands int) [][2]int {
	nyquist := float64(sampleRate) / 2
	fmin := spectrumMinHz
	if fmin > nyquist-1 {
		fmin = math.Max(1, nyquist-1)
	}
	fmax := math.Max(nyquist*0.98, fmin+1)

	edges := make([]int, bands+1)
	for i := 0; i <= bands; i++ {
		t := float64(i) / float64(bands)
		f := fmin * math.Pow(fmax/fmin, t)
		k := int(f * float64(nfft) / float64(sampleRate))
		if k < 1 {
			k = 1
		}
		if k > nfft/2-1 {
			k = nfft/2 - 1
		}
		edges[i] = k
	}

	out := make([][2]int, bands)
	for i := 0; i < bands; i++ {
		a, b := edges[i], edges[i+1]
		if b <= a {
			b = a + 1
			if b > nfft/2 {
				b = nfft / 2
			}
		}
		out[i] = [2]int{a, b}
	}
	return out
}

// BandDB computes the per-band average power in dBFS for one channel.
// The most recent nfft samples of the window are used.
func (s *Spectrum) BandDB(ch []float64, out []float64) []float64 {
	if out == nil {
		out = make([]float64, s.bands)
	}

	need := s.nfft
	if len(ch) < need {
		need = len(ch)
	}
	start := len(ch) - need

	ws := &s.workspace
	for i := 0; i < need; i++ {
		ws.input[i] = ch[start+i] * ws.window[i]
	}
	for i := need; i < s.nfft; i++ {
		ws.input[i] = 0
	}

	s.fftObj.Coefficients(ws.coeffs, ws.input)

	half := s.nfft / 2
	for k := 0; k < half; k++ {
		mag := cmplx.Abs(ws.coeffs[k])
		p := mag * mag * s.powerScale
		if k != 0 {
			p *= 2 // single-sided correction, DC excepted
		}
		ws.power[k] = p
	}

	for bi, edge := range s.bandEdges {
		var acc float64
		for k := edge[0]; k < edge[1]; k++ {
			acc += ws.power[k]
		}
		avg := acc / float64(edge[1]-edge[0])
		if avg < 1e-12 {
			out[bi] = histFloorDB
		} else {
			db := 10 * math.Log10(avg)
			if db < histFloorDB {
				db = histFloorDB
			}
			out[bi] = db
		}
	}
	return out
}

// BandLevels maps one channel onto the 0..HistLevelMax display scale.
func (s *Spectrum) BandLevels(ch []float64, out []uint8) []uint8 {
	if out == nil {
		out = make([]uint8, s.bands)
	}
	db := s.BandDB(ch, nil)
	for i, d := range db {
		out[i] = histLevel(d)
	}
	return out
}
