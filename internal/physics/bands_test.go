// SPDX-License-Identifier: MIT
package physics

import (
	"testing"
	"time"
)

var testBandCfg = BandConfig{
	Cap:              testCfg,
	BarFallPerSecond: 6.0,
}

func TestBandsInstantAttack(t *testing.T) {
	base := time.Unix(1000, 0)
	b := NewBands(4, testBandCfg)

	b.Observe([]uint8{10, 20, 30, 48}, base)
	b.Tick(base)

	bars := b.Bars(nil)
	want := []int{10, 20, 30, 48}
	for i := range want {
		if bars[i] != want[i] {
			t.Errorf("bars[%d] = %d, expected %d", i, bars[i], want[i])
		}
	}
}

func TestBandsCapsNeverBelowBars(t *testing.T) {
	base := time.Unix(1000, 0)
	b := NewBands(3, testBandCfg)

	frames := [][]uint8{
		{40, 10, 25},
		{5, 30, 25},
		{48, 2, 0},
		{0, 0, 48},
	}
	now := base
	bars := make([]int, 3)
	caps := make([]int, 3)
	for _, f := range frames {
		b.Observe(f, now)
		b.Tick(now)
		b.Bars(bars)
		b.Caps(caps)
		for i := range bars {
			if caps[i] < bars[i] {
				t.Fatalf("caps[%d] = %d < bars[%d] = %d", i, caps[i], i, bars[i])
			}
		}
		now = now.Add(33 * time.Millisecond)
	}

	// Pure decay preserves the relationship too.
	for i := 0; i < 200; i++ {
		b.Tick(now)
		b.Bars(bars)
		b.Caps(caps)
		for j := range bars {
			if caps[j] < bars[j] {
				t.Fatalf("caps[%d] = %d < bars[%d] = %d during decay", j, caps[j], j, bars[j])
			}
		}
		now = now.Add(33 * time.Millisecond)
	}
}

func TestBandsDecayToRestWhenFramesStop(t *testing.T) {
	base := time.Unix(1000, 0)
	b := NewBands(2, testBandCfg)

	b.Observe([]uint8{48, 24}, base)
	b.Tick(base)

	// Hold 0.5s plus 48/8 s of cap decay, with margin.
	b.Tick(base.Add(10 * time.Second))

	for i, v := range b.Bars(nil) {
		if v != 0 {
			t.Errorf("bars[%d] = %d after long silence, expected 0", i, v)
		}
	}
	for i, v := range b.Caps(nil) {
		if v != 0 {
			t.Errorf("caps[%d] = %d after long silence, expected 0", i, v)
		}
	}
}

// Bars chase the observed value downward at their own rate instead of
// pinning at the historical maximum while frames keep arriving.
func TestBandsBarFallsTowardLowerTarget(t *testing.T) {
	base := time.Unix(1000, 0)
	b := NewBands(1, testBandCfg)

	b.Observe([]uint8{40}, base)
	b.Tick(base)

	now := base.Add(time.Second)
	b.Observe([]uint8{10}, now)
	b.Tick(now)

	// One second at 6/s: 40 -> 34, still above the new target of 10.
	if got := b.Bars(nil)[0]; got != 34 {
		t.Errorf("bar = %d after 1s toward lower target, expected 34", got)
	}

	// Long enough and it lands exactly on the target.
	now = now.Add(10 * time.Second)
	b.Observe([]uint8{10}, now)
	b.Tick(now)
	if got := b.Bars(nil)[0]; got != 10 {
		t.Errorf("bar = %d after settling, expected 10", got)
	}
}

func TestBandsShortFrameReadsAsSilence(t *testing.T) {
	base := time.Unix(1000, 0)
	b := NewBands(4, testBandCfg)

	b.Observe([]uint8{15, 15}, base)
	b.Tick(base)

	bars := b.Bars(nil)
	if bars[0] != 15 || bars[1] != 15 {
		t.Errorf("bars[0:2] = %v, expected 15s", bars[:2])
	}
	if bars[2] != 0 || bars[3] != 0 {
		t.Errorf("bars[2:4] = %v, expected zeros for missing values", bars[2:])
	}
}

func TestBandConfigDefaults(t *testing.T) {
	// Zero bar rate tracks the cap rate.
	c := BandConfig{Cap: testCfg}.withDefaults()
	if c.BarFallPerSecond != testCfg.DecayPerSecond {
		t.Errorf("BarFallPerSecond = %g, expected cap rate %g", c.BarFallPerSecond, testCfg.DecayPerSecond)
	}

	// A bar rate above the cap rate would let bars outfall their caps.
	c = BandConfig{Cap: testCfg, BarFallPerSecond: 99}.withDefaults()
	if c.BarFallPerSecond != testCfg.DecayPerSecond {
		t.Errorf("BarFallPerSecond = %g, expected clamp to cap rate %g", c.BarFallPerSecond, testCfg.DecayPerSecond)
	}
}

func TestBandsReset(t *testing.T) {
	base := time.Unix(1000, 0)
	b := NewBands(2, testBandCfg)
	b.Observe([]uint8{48, 48}, base)
	b.Tick(base)

	b.Reset()
	for i, v := range b.Bars(nil) {
		if v != 0 {
			t.Errorf("bars[%d] = %d after Reset, expected 0", i, v)
		}
	}
	for i, v := range b.Caps(nil) {
		if v != 0 {
			t.Errorf("caps[%d] = %d after Reset, expected 0", i, v)
		}
	}
}

func TestBandsTickAllocs(t *testing.T) {
	base := time.Unix(1000, 0)
	b := NewBands(16, testBandCfg)
	b.Observe([]uint8{48, 40, 32, 24, 16, 8, 4, 2, 48, 40, 32, 24, 16, 8, 4, 2}, base)

	var i int
	allocs := testing.AllocsPerRun(1000, func() {
		i++
		b.Tick(base.Add(time.Duration(i) * 33 * time.Millisecond))
	})
	if allocs != 0 {
		t.Errorf("Tick allocated %v times per run, expected 0", allocs)
	}
}

func BenchmarkBandsTick(b *testing.B) {
	base := time.Unix(1000, 0)
	bands := NewBands(16, testBandCfg)
	bands.Observe([]uint8{48, 40, 32, 24, 16, 8, 4, 2, 48, 40, 32, 24, 16, 8, 4, 2}, base)

	var i int64
	b.ReportAllocs()
	for b.Loop() {
		i++
		bands.Tick(base.Add(time.Duration(i) * time.Millisecond))
	}
}
