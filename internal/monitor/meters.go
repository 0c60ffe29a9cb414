// SPDX-License-Identifier: MIT
package monitor

import (
	"time"

	"vizmon/internal/analysis"
	"vizmon/internal/physics"
	"vizmon/internal/viz"
)

// Meters is the consumer-side physics state for one visualization session:
// scalar meters for VU and peak kinds, per-band bars and caps for histogram
// kinds. It is mutated only from the render goroutine.
type Meters struct {
	kind viz.Kind

	left  *physics.Meter
	right *physics.Meter
	mono  *physics.Meter

	bandsLeft  *physics.Bands
	bandsRight *physics.Bands

	// Raw dB readings from the latest frame, for numeric VU readouts.
	leftDB  float64
	rightDB float64
}

// NewMeters allocates physics state for the given kind. Scalar meters are
// created for every kind since VU meters also display bracket positions.
func NewMeters(kind viz.Kind, bands int, mc physics.Config, bc physics.BandConfig) *Meters {
	m := &Meters{
		kind:    kind,
		left:    physics.NewMeter(mc),
		right:   physics.NewMeter(mc),
		mono:    physics.NewMeter(mc),
		leftDB:  analysis.FloorDB,
		rightDB: analysis.FloorDB,
	}
	if kind == viz.HistMono || kind == viz.HistStereo {
		m.bandsLeft = physics.NewBands(bands, bc)
		m.bandsRight = physics.NewBands(bands, bc)
	}
	return m
}

// Kind returns the session kind these meters belong to.
func (m *Meters) Kind() viz.Kind { return m.kind }

// Apply feeds one frame into the physics. Frames of a different kind are
// ignored; they can arrive briefly around a reconfiguration.
func (m *Meters) Apply(frame *viz.Frame, now time.Time) {
	if frame == nil || frame.Kind != m.kind {
		return
	}

	switch {
	case frame.Vu != nil:
		m.leftDB, m.rightDB = frame.Vu.DB, frame.Vu.DB
		m.mono.Observe(analysis.BracketForDB(frame.Vu.DB), now)

	case frame.VuPair != nil:
		m.leftDB, m.rightDB = frame.VuPair.LeftDB, frame.VuPair.RightDB
		m.left.Observe(analysis.BracketForDB(frame.VuPair.LeftDB), now)
		m.right.Observe(analysis.BracketForDB(frame.VuPair.RightDB), now)

	case frame.Peak != nil:
		m.mono.Observe(frame.Peak.Level, now)

	case frame.PeakPair != nil:
		m.left.Observe(frame.PeakPair.LeftLevel, now)
		m.right.Observe(frame.PeakPair.RightLevel, now)

	case frame.Hist != nil:
		if m.bandsLeft != nil {
			m.bandsLeft.Observe(frame.Hist.Bands, now)
		}

	case frame.HistPair != nil:
		if m.bandsLeft != nil {
			m.bandsLeft.Observe(frame.HistPair.Left, now)
			m.bandsRight.Observe(frame.HistPair.Right, now)
		}

	case frame.Combo != nil:
		m.leftDB, m.rightDB = frame.Combo.LeftDB, frame.Combo.RightDB
		m.left.Observe(analysis.BracketForDB(frame.Combo.LeftDB), now)
		m.right.Observe(analysis.BracketForDB(frame.Combo.RightDB), now)
		m.mono.Observe(frame.Combo.PeakLevel, now)
	}
}

// Tick advances every meter by elapsed wall-clock time. Call once per render
// tick, with or without a new frame.
func (m *Meters) Tick(now time.Time) {
	m.left.Tick(now)
	m.right.Tick(now)
	m.mono.Tick(now)
	if m.bandsLeft != nil {
		m.bandsLeft.Tick(now)
	}
	if m.bandsRight != nil {
		m.bandsRight.Tick(now)
	}
}

// Reset returns all physics to rest; used on stop and reconfiguration.
func (m *Meters) Reset() {
	m.left.Reset()
	m.right.Reset()
	m.mono.Reset()
	if m.bandsLeft != nil {
		m.bandsLeft.Reset()
	}
	if m.bandsRight != nil {
		m.bandsRight.Reset()
	}
	m.leftDB, m.rightDB = analysis.FloorDB, analysis.FloorDB
}

// Display accessors consumed by renderers. Values are plain ints/floats; no
// further numeric work is expected of the renderer.

func (m *Meters) LeftLevel() int  { return m.left.Level() }
func (m *Meters) RightLevel() int { return m.right.Level() }
func (m *Meters) MonoLevel() int  { return m.mono.Level() }
func (m *Meters) LeftHold() int   { return m.left.Hold() }
func (m *Meters) RightHold() int  { return m.right.Hold() }
func (m *Meters) MonoHold() int   { return m.mono.Hold() }
func (m *Meters) LeftDB() float64 { return m.leftDB }
func (m *Meters) RightDB() float64 { return m.rightDB }

// LeftBars returns histogram bar heights, or nil for non-histogram kinds.
func (m *Meters) LeftBars() []int {
	if m.bandsLeft == nil {
		return nil
	}
	return m.bandsLeft.Bars(nil)
}

// LeftCaps returns histogram cap positions, or nil for non-histogram kinds.
func (m *Meters) LeftCaps() []int {
	if m.bandsLeft == nil {
		return nil
	}
	return m.bandsLeft.Caps(nil)
}

// RightBars returns right-channel bars, or nil for mono/non-histogram kinds.
func (m *Meters) RightBars() []int {
	if m.bandsRight == nil {
		return nil
	}
	return m.bandsRight.Bars(nil)
}

// RightCaps returns right-channel caps, or nil for mono/non-histogram kinds.
func (m *Meters) RightCaps() []int {
	if m.bandsRight == nil {
		return nil
	}
	return m.bandsRight.Caps(nil)
}
