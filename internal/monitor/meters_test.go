// SPDX-License-Identifier: MIT
package monitor

import (
	"testing"
	"time"

	"vizmon/internal/analysis"
	"vizmon/internal/physics"
	"vizmon/internal/viz"
)

var (
	testMC = physics.Config{HoldDuration: 500 * time.Millisecond, DecayPerSecond: 8}
	testBC = physics.BandConfig{Cap: testMC, BarFallPerSecond: 6}
)

func TestMetersApplyPeakPair(t *testing.T) {
	base := time.Unix(1000, 0)
	m := NewMeters(viz.PeakStereo, 0, testMC, testBC)

	frame := &viz.Frame{
		Kind:     viz.PeakStereo,
		PeakPair: &viz.PeakPairPayload{LeftLevel: 14, RightLevel: 9, LeftHold: 14, RightHold: 9},
	}
	m.Apply(frame, base)
	m.Tick(base)

	if m.LeftLevel() != 14 || m.RightLevel() != 9 {
		t.Errorf("levels = (%d, %d), expected (14, 9)", m.LeftLevel(), m.RightLevel())
	}
	if m.LeftHold() != 14 || m.RightHold() != 9 {
		t.Errorf("holds = (%d, %d), expected (14, 9)", m.LeftHold(), m.RightHold())
	}
}

func TestMetersApplyVuPair(t *testing.T) {
	base := time.Unix(1000, 0)
	m := NewMeters(viz.VuStereo, 0, testMC, testBC)

	frame := &viz.Frame{
		Kind:   viz.VuStereo,
		VuPair: &viz.VuPairPayload{LeftDB: -3, RightDB: -20},
	}
	m.Apply(frame, base)
	m.Tick(base)

	if m.LeftDB() != -3 || m.RightDB() != -20 {
		t.Errorf("raw dB = (%g, %g), expected passthrough", m.LeftDB(), m.RightDB())
	}
	if got := m.LeftLevel(); got != int(analysis.BracketForDB(-3)) {
		t.Errorf("LeftLevel = %d, expected bracket of -3 dB", got)
	}
	if got := m.RightLevel(); got != int(analysis.BracketForDB(-20)) {
		t.Errorf("RightLevel = %d, expected bracket of -20 dB", got)
	}
}

func TestMetersApplyHistPair(t *testing.T) {
	base := time.Unix(1000, 0)
	m := NewMeters(viz.HistStereo, 3, testMC, testBC)

	frame := &viz.Frame{
		Kind: viz.HistStereo,
		HistPair: &viz.HistPairPayload{
			Left:  []uint8{48, 24, 12},
			Right: []uint8{6, 12, 18},
		},
	}
	m.Apply(frame, base)
	m.Tick(base)

	left := m.LeftBars()
	right := m.RightBars()
	for i, want := range []int{48, 24, 12} {
		if left[i] != want {
			t.Errorf("left bar %d = %d, expected %d", i, left[i], want)
		}
	}
	for i, want := range []int{6, 12, 18} {
		if right[i] != want {
			t.Errorf("right bar %d = %d, expected %d", i, right[i], want)
		}
	}
}

func TestMetersIgnoreMismatchedKind(t *testing.T) {
	base := time.Unix(1000, 0)
	m := NewMeters(viz.PeakStereo, 0, testMC, testBC)

	// A straggler frame from before a reconfiguration must not move meters.
	frame := &viz.Frame{
		Kind:   viz.VuStereo,
		VuPair: &viz.VuPairPayload{LeftDB: 0, RightDB: 0},
	}
	m.Apply(frame, base)
	m.Tick(base)

	if m.LeftLevel() != 0 || m.RightLevel() != 0 {
		t.Errorf("levels = (%d, %d) after mismatched frame, expected rest", m.LeftLevel(), m.RightLevel())
	}
}

func TestMetersNonHistKindsHaveNoBands(t *testing.T) {
	m := NewMeters(viz.VuStereo, 12, testMC, testBC)
	if m.LeftBars() != nil || m.LeftCaps() != nil || m.RightBars() != nil || m.RightCaps() != nil {
		t.Error("non-histogram kind allocated band physics")
	}
}

func TestMetersDecayWithoutFrames(t *testing.T) {
	base := time.Unix(1000, 0)
	m := NewMeters(viz.PeakStereo, 0, testMC, testBC)

	frame := &viz.Frame{
		Kind:     viz.PeakStereo,
		PeakPair: &viz.PeakPairPayload{LeftLevel: 14, RightLevel: 9, LeftHold: 14, RightHold: 9},
	}
	m.Apply(frame, base)
	m.Tick(base)

	// No frames for 2 seconds: levels at rest, holds down 12 brackets.
	m.Tick(base.Add(2 * time.Second))
	if m.LeftLevel() != 0 || m.RightLevel() != 0 {
		t.Errorf("levels = (%d, %d), expected rest", m.LeftLevel(), m.RightLevel())
	}
	if m.LeftHold() != 2 || m.RightHold() != 0 {
		t.Errorf("holds = (%d, %d), expected (2, 0)", m.LeftHold(), m.RightHold())
	}
}

func TestMetersReset(t *testing.T) {
	base := time.Unix(1000, 0)
	m := NewMeters(viz.HistStereo, 2, testMC, testBC)

	m.Apply(&viz.Frame{
		Kind:     viz.HistStereo,
		HistPair: &viz.HistPairPayload{Left: []uint8{48, 48}, Right: []uint8{48, 48}},
	}, base)
	m.Tick(base)

	m.Reset()
	for _, v := range append(m.LeftBars(), m.RightBars()...) {
		if v != 0 {
			t.Errorf("bars nonzero after Reset")
		}
	}
	if m.LeftDB() != analysis.FloorDB {
		t.Errorf("LeftDB = %g after Reset, expected floor", m.LeftDB())
	}
}
