// SPDX-License-Identifier: MIT
/*
Package analysis converts de-interleaved PCM windows into visualization
frames: RMS levels in dBFS for VU meters, bracketed peak levels for peak
meters, and log-banded spectral levels for histograms.

Analyze is pure: the same window and kind always produce the same frame.
The FFT plan is cached per stream parameters but never carries state that
affects results.
*/
package analysis

import (
	applog "vizmon/internal/log"
	"vizmon/internal/viz"
)

// Window is one de-interleaved analysis window. For stereo input Left and
// Right have equal length; for mono input Right aliases Left. The buffers
// belong to the analyzer only for the duration of one Analyze call.
type Window struct {
	Left       []float64
	Right      []float64
	SampleRate int
	Timestamp  int64
	Playing    bool
}

// Analyzer turns windows into frames for one configured band count.
type Analyzer struct {
	bands    int
	spectrum *Spectrum
}

// NewAnalyzer creates an analyzer producing histograms with the given number
// of bands (12 for narrow displays, 16 for wide).
func NewAnalyzer(bands int) *Analyzer {
	return &Analyzer{bands: bands}
}

// Analyze computes the payload for kind from the window and wraps it into a
// fresh frame. Hold fields carry the raw observation for this window only;
// held-maximum and decay semantics belong to the meter physics.
func (a *Analyzer) Analyze(win Window, kind viz.Kind) *viz.Frame {
	frame := &viz.Frame{
		Timestamp:  win.Timestamp,
		Playing:    win.Playing,
		SampleRate: win.SampleRate,
		Kind:       kind,
	}

	switch kind {
	case viz.VuStereo:
		_, rmsL := PeakRMS(win.Left)
		_, rmsR := PeakRMS(win.Right)
		frame.VuPair = &viz.VuPairPayload{LeftDB: DBFS(rmsL), RightDB: DBFS(rmsR)}

	case viz.VuMono:
		_, rmsL := PeakRMS(win.Left)
		_, rmsR := PeakRMS(win.Right)
		frame.Vu = &viz.VuPayload{DB: DBFS(MonoRMS(rmsL, rmsR))}

	case viz.PeakStereo:
		peakL, _ := PeakRMS(win.Left)
		peakR, _ := PeakRMS(win.Right)
		l := BracketForDB(DBFS(peakL))
		r := BracketForDB(DBFS(peakR))
		frame.PeakPair = &viz.PeakPairPayload{
			LeftLevel: l, RightLevel: r,
			LeftHold: l, RightHold: r,
		}

	case viz.PeakMono:
		peakL, _ := PeakRMS(win.Left)
		peakR, _ := PeakRMS(win.Right)
		peak := peakL
		if peakR > peak {
			peak = peakR
		}
		level := BracketForDB(DBFS(peak))
		frame.Peak = &viz.PeakPayload{Level: level, Hold: level}

	case viz.HistStereo:
		s := a.ensureSpectrum(win)
		frame.HistPair = &viz.HistPairPayload{
			Left:  s.BandLevels(win.Left, nil),
			Right: s.BandLevels(win.Right, nil),
		}

	case viz.HistMono:
		s := a.ensureSpectrum(win)
		l := s.BandLevels(win.Left, nil)
		r := s.BandLevels(win.Right, nil)
		// Downmix per band as max(L,R); punchier than the mean.
		bands := make([]uint8, len(l))
		for i := range l {
			bands[i] = l[i]
			if r[i] > bands[i] {
				bands[i] = r[i]
			}
		}
		frame.Hist = &viz.HistPayload{Bands: bands}

	case viz.VuStereoWithCenterPeak:
		peakL, rmsL := PeakRMS(win.Left)
		peakR, rmsR := PeakRMS(win.Right)
		peak := peakL
		if peakR > peak {
			peak = peakR
		}
		level := BracketForDB(DBFS(peak))
		frame.Combo = &viz.ComboPayload{
			LeftDB:    DBFS(rmsL),
			RightDB:   DBFS(rmsR),
			PeakLevel: level,
			PeakHold:  level,
		}

	case viz.NoVisualization:
		// Frame with no payload; publishers treat it as a heartbeat.

	default:
		applog.Warnf("analysis: unhandled visualization kind %v", kind)
	}

	return frame
}

// ensureSpectrum rebuilds the FFT engine when the stream parameters change.
func (a *Analyzer) ensureSpectrum(win Window) *Spectrum {
	if a.spectrum == nil || !a.spectrum.Matches(win.SampleRate, len(win.Left)) {
		a.spectrum = NewSpectrum(win.SampleRate, len(win.Left), a.bands)
		applog.Debugf("analysis: spectrum engine rebuilt (rate=%d nfft=%d bands=%d)",
			win.SampleRate, a.spectrum.NFFT(), a.bands)
	}
	return a.spectrum
}
