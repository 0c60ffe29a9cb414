// SPDX-License-Identifier: MIT
package viz

import (
	"fmt"
	"strings"
)

// Kind selects which analysis runs and which payload shape a Frame carries.
// It is chosen once per session; switching kinds replaces the whole session.
type Kind int

const (
	NoVisualization Kind = iota
	VuMono
	VuStereo
	PeakMono
	PeakStereo
	HistMono
	HistStereo
	VuStereoWithCenterPeak
)

// String returns the configuration name of the kind.
func (k Kind) String() string {
	switch k {
	case NoVisualization:
		return "no_viz"
	case VuMono:
		return "vu_mono"
	case VuStereo:
		return "vu_stereo"
	case PeakMono:
		return "peak_mono"
	case PeakStereo:
		return "peak_stereo"
	case HistMono:
		return "hist_mono"
	case HistStereo:
		return "hist_stereo"
	case VuStereoWithCenterPeak:
		return "vu_stereo_with_center_peak"
	default:
		return "unknown"
	}
}

// ParseKind converts a configuration name (case-insensitive) to a Kind.
// Returns NoVisualization and an error if the name is unknown.
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(name) {
	case "no_viz", "none", "":
		return NoVisualization, nil
	case "vu_mono":
		return VuMono, nil
	case "vu_stereo":
		return VuStereo, nil
	case "peak_mono":
		return PeakMono, nil
	case "peak_stereo":
		return PeakStereo, nil
	case "hist_mono":
		return HistMono, nil
	case "hist_stereo":
		return HistStereo, nil
	case "vu_stereo_with_center_peak", "combination":
		return VuStereoWithCenterPeak, nil
	default:
		return NoVisualization, fmt.Errorf("unknown visualization kind: %q", name)
	}
}

// Spectral returns true for kinds that require FFT analysis.
func (k Kind) Spectral() bool {
	return k == HistMono || k == HistStereo
}

// VuPayload carries an RMS level in dBFS for a downmixed meter.
type VuPayload struct {
	DB float64 `json:"db"`
}

// VuPairPayload carries per-channel RMS levels in dBFS.
type VuPairPayload struct {
	LeftDB  float64 `json:"l_db"`
	RightDB float64 `json:"r_db"`
}

// PeakPayload carries a bracket index plus the raw hold observation for a
// downmixed peak meter. Hold decay is the consumer's job, not the analyzer's.
type PeakPayload struct {
	Level uint8 `json:"level"`
	Hold  uint8 `json:"hold"`
}

// PeakPairPayload carries per-channel bracket indices and hold observations.
type PeakPairPayload struct {
	LeftLevel  uint8 `json:"l_level"`
	RightLevel uint8 `json:"r_level"`
	LeftHold   uint8 `json:"l_hold"`
	RightHold  uint8 `json:"r_hold"`
}

// HistPayload carries per-band magnitudes for a downmixed histogram.
type HistPayload struct {
	Bands []uint8 `json:"bands"`
}

// HistPairPayload carries per-band magnitudes for both channels.
// Invariant: len(Left) == len(Right).
type HistPairPayload struct {
	Left  []uint8 `json:"bands_l"`
	Right []uint8 `json:"bands_r"`
}

// ComboPayload carries stereo VU levels plus a central mono peak meter.
type ComboPayload struct {
	LeftDB    float64 `json:"l_db"`
	RightDB   float64 `json:"r_db"`
	PeakLevel uint8   `json:"peak_level"`
	PeakHold  uint8   `json:"peak_hold"`
}

// Frame is the immutable unit published by the analysis loop. Exactly one
// payload field is non-nil, matching Kind. Frames are constructed fresh each
// analysis cycle and never mutated after publication.
type Frame struct {
	Timestamp  int64 `json:"ts"`
	Playing    bool  `json:"playing"`
	SampleRate int   `json:"sample_rate"`
	Kind       Kind  `json:"kind"`

	Vu       *VuPayload       `json:"vu,omitempty"`
	VuPair   *VuPairPayload   `json:"vu_pair,omitempty"`
	Peak     *PeakPayload     `json:"peak,omitempty"`
	PeakPair *PeakPairPayload `json:"peak_pair,omitempty"`
	Hist     *HistPayload     `json:"hist,omitempty"`
	HistPair *HistPairPayload `json:"hist_pair,omitempty"`
	Combo    *ComboPayload    `json:"combo,omitempty"`
}
