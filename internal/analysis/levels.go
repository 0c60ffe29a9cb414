// SPDX-License-Identifier: MIT
package analysis

import "math"

// Meter scale constants. Levels are bracket indices into LevelBrackets for
// peak meters, and 0..HistLevelMax steps for histogram bands.
const (
	// FloorDB is the dBFS floor reported for silence. Anything quieter is
	// indistinguishable on a small display.
	FloorDB = -96.0

	// HistLevelMax is the top of the histogram band scale.
	HistLevelMax = 48

	// Histogram display range in dBFS.
	histFloorDB = -80.0
	histCeilDB  = -12.0

	// Guard against log10(0).
	ampEpsilon = 1e-9
)

// LevelBrackets is the fixed peak-meter scale in dBFS. A measured value maps
// to the highest index whose threshold it meets or exceeds. The table must
// not change: renderers draw one segment per entry.
var LevelBrackets = [19]float64{
	-36, -30, -20, -17, -13, -10, -8, -7, -6, -5,
	-4, -3, -2, -1, 0, 2, 3, 5, 8,
}

// BracketForDB maps a dBFS value to a bracket index. The mapping is total
// and monotonic non-decreasing: values below the lowest threshold return 0,
// values at or above the highest return len(LevelBrackets)-1.
func BracketForDB(db float64) uint8 {
	idx := 0
	for i, threshold := range LevelBrackets {
		if db >= threshold {
			idx = i
		} else {
			break
		}
	}
	return uint8(idx)
}

// DBFS converts a normalized amplitude (0..1 full scale) to dBFS, clamped to
// FloorDB so silence never produces -Inf or NaN downstream.
func DBFS(amplitude float64) float64 {
	if amplitude < ampEpsilon {
		return FloorDB
	}
	db := 20 * math.Log10(amplitude)
	if db < FloorDB {
		return FloorDB
	}
	return db
}

// PeakRMS returns the instantaneous peak and RMS amplitude of one channel.
// Samples are normalized floats; out-of-range input saturates rather than
// wrapping. An empty channel reads as silence.
func PeakRMS(ch []float64) (peak, rms float64) {
	if len(ch) == 0 {
		return 0, 0
	}
	var sumsq float64
	for _, s := range ch {
		if s > 1.0 {
			s = 1.0
		} else if s < -1.0 {
			s = -1.0
		}
		a := math.Abs(s)
		if a > peak {
			peak = a
		}
		sumsq += s * s
	}
	rms = math.Sqrt(sumsq / float64(len(ch)))
	return peak, rms
}

// MonoRMS downmixes two channel RMS values: sqrt((L^2 + R^2) / 2).
func MonoRMS(rmsL, rmsR float64) float64 {
	return math.Sqrt((rmsL*rmsL + rmsR*rmsR) * 0.5)
}

// histLevel maps a band power in dBFS onto the 0..HistLevelMax display scale.
func histLevel(db float64) uint8 {
	x := (db - histFloorDB) / (histCeilDB - histFloorDB)
	if x < 0 {
		x = 0
	} else if x > 1 {
		x = 1
	}
	return uint8(math.Round(x * HistLevelMax))
}
