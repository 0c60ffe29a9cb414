// SPDX-License-Identifier: MIT
package physics

import "time"

// BandConfig parametrizes histogram band ballistics. Bars fall by a fixed
// decrement per observed frame while caps use the continuous hold/decay
// machinery, preserving the relationship "caps ride above bars, bars chase
// caps downward".
type BandConfig struct {
	Cap Config // cap marker hold/decay

	// BarFallPerSecond is the bar's own fall rate. It must not exceed the
	// cap's decay rate; a zero value tracks the cap rate.
	BarFallPerSecond float64
}

func (c BandConfig) withDefaults() BandConfig {
	c.Cap = c.Cap.withDefaults()
	if c.BarFallPerSecond <= 0 || c.BarFallPerSecond > c.Cap.DecayPerSecond {
		c.BarFallPerSecond = c.Cap.DecayPerSecond
	}
	return c
}

// band is one bar plus its cap marker.
type band struct {
	bar    float64
	target float64 // raw magnitude driving the bar, 0 when frames stop
	cap    *Meter
}

// Bands applies identical attack/hold/decay rules independently to each
// band of a histogram. Bars rise instantly; caps hold then decay.
type Bands struct {
	cfg      BandConfig
	bands    []band
	lastTick time.Time
	observed bool
}

// NewBands creates n bands at rest.
func NewBands(n int, cfg BandConfig) *Bands {
	cfg = cfg.withDefaults()
	b := &Bands{cfg: cfg, bands: make([]band, n)}
	for i := range b.bands {
		b.bands[i].cap = NewMeter(cfg.Cap)
	}
	return b
}

// Len returns the band count.
func (b *Bands) Len() int { return len(b.bands) }

// Observe feeds one frame's band magnitudes. Extra values are ignored,
// missing values read as silence.
func (b *Bands) Observe(levels []uint8, now time.Time) {
	b.observed = true
	for i := range b.bands {
		var v float64
		if i < len(levels) {
			v = float64(levels[i])
		}
		b.bands[i].target = v
		if v > b.bands[i].bar {
			b.bands[i].bar = v // instant attack
		}
		b.bands[i].cap.Observe(uint8(v), now)
	}
}

// Tick advances all bars and caps by elapsed wall-clock time.
func (b *Bands) Tick(now time.Time) {
	if b.lastTick.IsZero() {
		b.lastTick = now
	}
	dt := now.Sub(b.lastTick).Seconds()
	if dt < 0 {
		dt = 0
	}
	b.lastTick = now

	fall := b.cfg.BarFallPerSecond * dt
	for i := range b.bands {
		bd := &b.bands[i]
		bd.cap.Tick(now)

		if !b.observed {
			bd.target = 0
		}
		if bd.bar > bd.target {
			bd.bar -= fall
			if bd.bar < bd.target {
				bd.bar = bd.target
			}
		}
		// A cap never sits below its bar.
		if bd.cap.hold < bd.bar {
			bd.cap.hold = bd.bar
		}
	}
	b.observed = false
}

// Bars writes the current bar heights into out, allocating when out is nil.
func (b *Bands) Bars(out []int) []int {
	if out == nil {
		out = make([]int, len(b.bands))
	}
	for i := range b.bands {
		out[i] = int(b.bands[i].bar)
	}
	return out
}

// Caps writes the current cap positions into out, allocating when out is nil.
func (b *Bands) Caps(out []int) []int {
	if out == nil {
		out = make([]int, len(b.bands))
	}
	for i := range b.bands {
		out[i] = b.bands[i].cap.Hold()
	}
	return out
}

// Reset returns every band to rest.
func (b *Bands) Reset() {
	for i := range b.bands {
		b.bands[i].bar = 0
		b.bands[i].target = 0
		b.bands[i].cap.Reset()
	}
	b.lastTick = time.Time{}
	b.observed = false
}
