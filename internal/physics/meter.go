// SPDX-License-Identifier: MIT
/*
Package physics implements the display-side meter ballistics: instantaneous
attack, rate-limited decay and timed peak hold. The same parametrized state
transition drives scalar peak meters and every histogram band, so the logic
lives in exactly one place.

All decay arithmetic is a function of elapsed wall-clock time, never of tick
or frame counts, which keeps the motion identical across renderer frame
rates and across gaps in frame delivery.
*/
package physics

import "time"

// Reference ballistics. Config zero values fall back to these.
const (
	DefaultHoldDuration   = 500 * time.Millisecond
	DefaultDecayPerSecond = 8.0 // bracket levels per second
)

// Config parametrizes one meter or band.
type Config struct {
	HoldDuration   time.Duration // how long a new peak stays pinned
	DecayPerSecond float64       // fall rate after the hold expires
}

func (c Config) withDefaults() Config {
	if c.HoldDuration <= 0 {
		c.HoldDuration = DefaultHoldDuration
	}
	if c.DecayPerSecond <= 0 {
		c.DecayPerSecond = DefaultDecayPerSecond
	}
	return c
}

// State identifies the hold marker's phase. It is derived, not stored: the
// marker is Held while its timer runs, Decaying while above the level, and
// Idle once it rests on the level.
type State int

const (
	Idle State = iota
	Held
	Decaying
)

// Meter is the decay/hold state machine for one scalar meter. Units are
// bracket levels (or pixel steps); fractional positions accumulate
// internally so slow decay rates are not rounded away.
type Meter struct {
	cfg Config

	level    float64 // displayed level
	target   float64 // raw level driving the display, 0 when frames stop
	hold     float64 // hold marker, never below level
	holdedge time.Time
	lastTick time.Time
	observed bool // an Observe arrived since the previous Tick
}

// NewMeter creates a meter at rest.
func NewMeter(cfg Config) *Meter {
	return &Meter{cfg: cfg.withDefaults()}
}

// Observe feeds one frame's raw level into the meter. Attack is immediate:
// a higher level jumps the display with no smoothing. A peak above the hold
// marker snaps the marker up and re-arms its timer.
func (m *Meter) Observe(level uint8, now time.Time) {
	raw := float64(level)
	m.target = raw
	m.observed = true

	if raw > m.level {
		m.level = raw
	}
	if raw >= m.hold {
		m.hold = raw
		m.holdedge = now.Add(m.cfg.HoldDuration)
	}
}

// Tick advances decay by the wall-clock time since the previous Tick. Call
// once per render tick whether or not a frame arrived; a missed frame means
// more elapsed time, never a frozen meter.
func (m *Meter) Tick(now time.Time) {
	if m.lastTick.IsZero() {
		m.lastTick = now
	}
	prev := m.lastTick
	dt := now.Sub(prev).Seconds()
	if dt < 0 {
		dt = 0
	}
	m.lastTick = now

	// No frame since the last tick: the underlying signal is gone, so the
	// display chases the floor.
	if !m.observed {
		m.target = 0
	}
	m.observed = false

	fall := m.cfg.DecayPerSecond * dt

	// Displayed level: rate-limited fall toward the driving value.
	if m.level > m.target {
		m.level -= fall
		if m.level < m.target {
			m.level = m.target
		}
	}

	// Hold marker: pinned until the timer expires, then the same fall rate,
	// stopping on the displayed level. A coarse tick that straddles the
	// expiry only counts the portion past it, so the marker decays by
	// wall-clock time since expiry no matter how the ticks land.
	if now.After(m.holdedge) && m.hold > m.level {
		start := prev
		if m.holdedge.After(start) {
			start = m.holdedge
		}
		holdFall := m.cfg.DecayPerSecond * now.Sub(start).Seconds()
		m.hold -= holdFall
		if m.hold < m.level {
			m.hold = m.level
		}
	}
	if m.hold < m.level {
		m.hold = m.level
	}
}

// Level returns the displayed level, truncated to whole brackets.
func (m *Meter) Level() int { return int(m.level) }

// Hold returns the hold marker position, truncated to whole brackets.
func (m *Meter) Hold() int { return int(m.hold) }

// State reports the hold marker's phase as of the last Tick.
func (m *Meter) State() State {
	switch {
	case m.hold <= m.level && m.level == m.target:
		return Idle
	case m.lastTick.Before(m.holdedge):
		return Held
	default:
		return Decaying
	}
}

// Reset returns the meter to rest. Used on visualization-kind change or
// explicit stop.
func (m *Meter) Reset() {
	*m = Meter{cfg: m.cfg}
}
