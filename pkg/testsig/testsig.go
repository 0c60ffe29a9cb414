// SPDX-License-Identifier: MIT
/*
Package testsig generates deterministic PCM signals for tests. Amplitudes
are given in linear full-scale units so expected dBFS values can be computed
directly.
*/
package testsig

import "math"

// Sine returns size samples of a sine at frequency Hz, scaled to amp
// (1.0 = full scale), as normalized float64.
func Sine(size int, sampleRate, frequency, amp float64) []float64 {
	out := make([]float64, size)
	for i := range out {
		t := float64(i) / sampleRate
		out[i] = math.Sin(2*math.Pi*frequency*t) * amp
	}
	return out
}

// SineInt16 returns size samples of a sine as 16-bit PCM.
func SineInt16(size int, sampleRate, frequency, amp float64) []int16 {
	out := make([]int16, size)
	for i := range out {
		t := float64(i) / sampleRate
		out[i] = int16(math.Sin(2*math.Pi*frequency*t) * amp * 32767)
	}
	return out
}

// Harmonics returns a 440 Hz fundamental with two overtones, useful for
// checking that spectral energy lands in more than one band.
func Harmonics(size int, sampleRate float64) []float64 {
	out := make([]float64, size)
	for i := range out {
		t := float64(i) / sampleRate
		out[i] = math.Sin(2*math.Pi*440*t)*0.5 +
			math.Sin(2*math.Pi*880*t)*0.3 +
			math.Sin(2*math.Pi*1320*t)*0.2
	}
	return out
}

// Silence returns size zero samples.
func Silence(size int) []float64 {
	return make([]float64, size)
}

// PeakBin returns the index of the largest magnitude in bins [start, end].
func PeakBin(magnitudes []float64, start, end int) int {
	if len(magnitudes) == 0 {
		return 0
	}
	if start < 0 {
		start = 0
	}
	if end >= len(magnitudes) {
		end = len(magnitudes) - 1
	}
	peak := start
	for bin := start + 1; bin <= end; bin++ {
		if magnitudes[bin] > magnitudes[peak] {
			peak = bin
		}
	}
	return peak
}
